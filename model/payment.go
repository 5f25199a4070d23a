package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PaymentStatus is the local three-state view of a payment attempt.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusPaid    PaymentStatus = "PAID"
	StatusFailed  PaymentStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusFailed
}

// Wire returns the lower case form used by the kiosk clients.
func (s PaymentStatus) Wire() string {
	return strings.ToLower(string(s))
}

// SongPayload is the candidate submission captured when a payment is initiated.
type SongPayload struct {
	RequesterName string `json:"name,omitempty"`
	SongTitle     string `json:"song_title"`
}

// Validate expects a normalized payload.
func (p SongPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.SongTitle, validation.Required.Error("song title is required")),
	)
}

// TransactionEntry tracks one payment attempt from initiation to consumption.
// Payload, Reference and GatewaySessionID never change after creation.
type TransactionEntry struct {
	Reference        string        `json:"reference"`
	GatewaySessionID string        `json:"gateway_session_id"`
	Status           PaymentStatus `json:"status"`
	ProviderStatus   string        `json:"provider_status,omitempty"`
	Payload          SongPayload   `json:"payload"`
	CreatedAt        time.Time     `json:"created_at"`
	Consumed         bool          `json:"consumed"`
	ConsumedAt       time.Time     `json:"consumed_at,omitempty"`
}

// PaymentSession is returned to the caller once a gateway session exists.
type PaymentSession struct {
	Reference        string `json:"reference"`
	GatewaySessionID string `json:"gateway_session_id"`
	QRPayload        string `json:"qr_payload"`
}

// PaymentStatusResult is the answer to a status poll.
type PaymentStatusResult struct {
	Reference string        `json:"reference"`
	Status    PaymentStatus `json:"status"`
	Message   string        `json:"message"`
}
