/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blnkfinance/jukebox/internal/apierror"
	"github.com/blnkfinance/jukebox/model"
)

// Ledger is the in-memory transaction ledger. Entries are stored by value
// and every read returns a copy, so callers never share state with it.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]model.TransactionEntry
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]model.TransactionEntry)}
}

// InsertEntry stores a new entry. References are never overwritten.
func (l *Ledger) InsertEntry(_ context.Context, entry model.TransactionEntry) error {
	if entry.Reference == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "Reference is required", nil)
	}
	if entry.Status == "" {
		entry.Status = model.StatusPending
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.entries[entry.Reference]; exists {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Reference '%s' already exists", entry.Reference), nil)
	}
	l.entries[entry.Reference] = entry
	return nil
}

func (l *Ledger) GetEntry(_ context.Context, reference string) (model.TransactionEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.entries[reference]
	if !ok {
		return model.TransactionEntry{}, notFoundReference(reference)
	}
	return entry, nil
}

// CompareAndSetStatus moves an entry from `from` to `to`. When the stored
// status no longer equals `from` nothing is written and the current entry
// is returned with swapped=false. Terminal statuses are never left.
func (l *Ledger) CompareAndSetStatus(_ context.Context, reference string, from, to model.PaymentStatus, providerStatus string) (model.TransactionEntry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[reference]
	if !ok {
		return model.TransactionEntry{}, false, notFoundReference(reference)
	}
	if entry.Status != from || entry.Status.IsTerminal() {
		return entry, false, nil
	}

	entry.Status = to
	if providerStatus != "" {
		entry.ProviderStatus = providerStatus
	}
	l.entries[reference] = entry
	return entry, true, nil
}

// ConsumeEntry flags a Paid entry as used. The check and the flag happen
// under one lock, so at most one caller succeeds per reference.
func (l *Ledger) ConsumeEntry(_ context.Context, reference string, at time.Time) (model.TransactionEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[reference]
	if !ok {
		return model.TransactionEntry{}, notFoundReference(reference)
	}
	if entry.Status != model.StatusPaid {
		return entry, apierror.NewAPIError(apierror.ErrPaymentNotConfirmed, "Payment not confirmed for this request.", nil)
	}
	if entry.Consumed {
		return entry, apierror.NewAPIError(apierror.ErrPaymentNotConfirmed, "Payment has already been used for a song request.", nil)
	}

	entry.Consumed = true
	entry.ConsumedAt = at
	l.entries[reference] = entry
	return entry, nil
}

// ReleaseEntry clears the consumed flag so a paid reference can be used
// again. It undoes a ConsumeEntry whose song request could not be stored.
func (l *Ledger) ReleaseEntry(_ context.Context, reference string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[reference]
	if !ok {
		return notFoundReference(reference)
	}
	entry.Consumed = false
	entry.ConsumedAt = time.Time{}
	l.entries[reference] = entry
	return nil
}

func (l *Ledger) CountEntries(_ context.Context) (map[model.PaymentStatus]int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := map[model.PaymentStatus]int{
		model.StatusPending: 0,
		model.StatusPaid:    0,
		model.StatusFailed:  0,
	}
	for _, entry := range l.entries {
		counts[entry.Status]++
	}
	return counts, nil
}

func notFoundReference(reference string) error {
	return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Reference '%s' not found", reference), nil)
}
