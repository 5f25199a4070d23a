package jukebox

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/jukebox/model"
)

// ListRequests returns every song request, newest first.
func (j *Jukebox) ListRequests(ctx context.Context) ([]model.SongRequest, error) {
	all, err := j.datasource.ListRequests(ctx)
	if err != nil {
		return nil, err
	}

	// Reverse first so equal timestamps keep the latest submission on top.
	out := make([]model.SongRequest, len(all))
	for i, r := range all {
		out[len(all)-1-i] = r
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].SubmittedAt.After(out[b].SubmittedAt)
	})
	return out, nil
}

// ListQueue returns the public queue: unplayed songs first, each group
// oldest first.
func (j *Jukebox) ListQueue(ctx context.Context) ([]model.PublicSongRequest, error) {
	all, err := j.datasource.ListRequests(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(all, func(a, b int) bool {
		if all[a].Played != all[b].Played {
			return !all[a].Played
		}
		return all[a].SubmittedAt.Before(all[b].SubmittedAt)
	})

	queue := make([]model.PublicSongRequest, 0, len(all))
	for _, r := range all {
		queue = append(queue, r.Public())
	}
	return queue, nil
}

func (j *Jukebox) GetRequest(ctx context.Context, id string) (*model.SongRequest, error) {
	request, err := j.datasource.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// MarkPlayed flags a request as played. Repeating it is a no-op.
func (j *Jukebox) MarkPlayed(ctx context.Context, id string) (*model.SongRequest, error) {
	request, changed, err := j.datasource.MarkPlayed(ctx, id, j.now())
	if err != nil {
		return nil, err
	}
	if changed {
		logrus.WithField("request_id", id).Info("song marked as played")
		j.publish(ctx, EventSongPlayed, request.ID, request)
	}
	return &request, nil
}

// PaymentStats counts ledger entries per wire status.
func (j *Jukebox) PaymentStats(ctx context.Context) (map[string]int, error) {
	counts, err := j.datasource.CountEntries(ctx)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int, len(counts))
	for status, n := range counts {
		stats[status.Wire()] = n
	}
	return stats, nil
}
