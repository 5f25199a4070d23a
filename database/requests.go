package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blnkfinance/jukebox/internal/apierror"
	"github.com/blnkfinance/jukebox/model"
)

// RequestStore keeps song requests in submission order with an id index.
type RequestStore struct {
	mu       sync.RWMutex
	requests []model.SongRequest
	index    map[string]int
}

func NewRequestStore() *RequestStore {
	return &RequestStore{index: make(map[string]int)}
}

func (s *RequestStore) AppendRequest(_ context.Context, request model.SongRequest) error {
	if request.ID == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "Song request id is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[request.ID]; exists {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Song request '%s' already exists", request.ID), nil)
	}
	s.index[request.ID] = len(s.requests)
	s.requests = append(s.requests, request)
	return nil
}

func (s *RequestStore) GetRequest(_ context.Context, id string) (model.SongRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return model.SongRequest{}, notFoundRequest(id)
	}
	return s.requests[i], nil
}

func (s *RequestStore) ListRequests(_ context.Context) ([]model.SongRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SongRequest, len(s.requests))
	copy(out, s.requests)
	return out, nil
}

// MarkPlayed sets the played flag. Marking an already played request is a
// no-op and reports changed=false.
func (s *RequestStore) MarkPlayed(_ context.Context, id string, at time.Time) (model.SongRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return model.SongRequest{}, false, notFoundRequest(id)
	}
	if s.requests[i].Played {
		return s.requests[i], false, nil
	}
	s.requests[i].Played = true
	s.requests[i].PlayedAt = at
	return s.requests[i], true, nil
}

func notFoundRequest(id string) error {
	return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Song request with ID '%s' not found", id), nil)
}
