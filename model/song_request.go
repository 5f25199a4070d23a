package model

import "time"

type SongRequest struct {
	ID               string    `json:"id"`
	RequesterName    string    `json:"name"`
	SongTitle        string    `json:"songTitle"`
	SubmittedAt      time.Time `json:"timestamp"`
	Played           bool      `json:"played"`
	PlayedAt         time.Time `json:"played_at,omitempty"`
	OriginReference  string    `json:"origin_reference"`
	GatewaySessionID string    `json:"transactionId"`
}

// PublicSongRequest is the queue-page projection of a SongRequest.
type PublicSongRequest struct {
	ID            string    `json:"id"`
	RequesterName string    `json:"name"`
	SongTitle     string    `json:"songTitle"`
	SubmittedAt   time.Time `json:"timestamp"`
	Played        bool      `json:"played"`
}

// NewSongRequest materializes a request from a paid ledger entry.
func NewSongRequest(entry TransactionEntry) SongRequest {
	return SongRequest{
		ID:               NewSongRequestID(),
		RequesterName:    entry.Payload.RequesterName,
		SongTitle:        entry.Payload.SongTitle,
		SubmittedAt:      entry.CreatedAt,
		OriginReference:  entry.Reference,
		GatewaySessionID: entry.GatewaySessionID,
	}
}

func (r SongRequest) Public() PublicSongRequest {
	return PublicSongRequest{
		ID:            r.ID,
		RequesterName: r.RequesterName,
		SongTitle:     r.SongTitle,
		SubmittedAt:   r.SubmittedAt,
		Played:        r.Played,
	}
}
