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

package jukebox

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/blnkfinance/jukebox/gateway"
	"github.com/blnkfinance/jukebox/internal/apierror"
	"github.com/blnkfinance/jukebox/internal/notification"
	"github.com/blnkfinance/jukebox/model"
)

const (
	lockKeyPrefix = "jukebox:lock:"
	lockTimeout   = 10 * time.Second
	lockWait      = 5 * time.Second
)

// InitiatePayment opens a gateway session for payload and records a
// Pending ledger entry. Nothing is recorded when the gateway call fails.
func (j *Jukebox) InitiatePayment(ctx context.Context, payload model.SongPayload) (*model.PaymentSession, error) {
	ctx, span := tracer.Start(ctx, "InitiatePayment")
	defer span.End()

	payload = payload.Normalize()
	if err := payload.Validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Song title is required.", nil)
	}

	if err := j.cnf.Gateway.Validate(); err != nil {
		return nil, logAndRecordError(span, "payment gateway not configured: ",
			apierror.NewAPIError(apierror.ErrConfiguration, "Payment gateway is not configured.", err))
	}
	amount, err := j.cnf.Gateway.AmountMinorUnits()
	if err != nil {
		return nil, logAndRecordError(span, "invalid charge amount: ",
			apierror.NewAPIError(apierror.ErrConfiguration, "Payment amount is not configured.", err))
	}

	reference := model.NewReference()
	span.SetAttributes(attribute.String("payment.reference", reference))

	session, err := j.gateway.CreateSession(ctx, gateway.SessionRequest{
		Amount:        amount,
		Currency:      j.cnf.Gateway.Currency,
		CorrelationID: reference,
		MethodHint:    j.cnf.Gateway.PaymentMethod,
	})
	if err == nil && (session == nil || session.SessionID == "" || session.ScannablePayload == "") {
		err = errors.New("gateway response is missing the session id or QR payload")
	}
	if err != nil {
		// NotifyError logs it.
		notification.NotifyError(err)
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrGateway, "Failed to initiate payment.", err)
	}

	entry := model.TransactionEntry{
		Reference:        reference,
		GatewaySessionID: session.SessionID,
		Status:           model.StatusPending,
		Payload:          payload,
		CreatedAt:        j.now(),
	}
	if err := j.datasource.InsertEntry(ctx, entry); err != nil {
		return nil, logAndRecordError(span, "record payment: ", err)
	}

	logrus.WithFields(logrus.Fields{
		"reference":  reference,
		"session_id": session.SessionID,
	}).Info("payment initiated")

	return &model.PaymentSession{
		Reference:        reference,
		GatewaySessionID: session.SessionID,
		QRPayload:        session.ScannablePayload,
	}, nil
}

// CheckPaymentStatus reconciles the ledger with the provider. Terminal
// statuses are answered from the ledger. A gateway failure returns a
// Pending result together with the error and leaves the ledger alone, so
// callers that only want a poll answer can use the result as is.
func (j *Jukebox) CheckPaymentStatus(ctx context.Context, reference string) (*model.PaymentStatusResult, error) {
	ctx, span := tracer.Start(ctx, "CheckPaymentStatus")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", reference))

	entry, err := j.datasource.GetEntry(ctx, reference)
	if err != nil {
		return nil, err
	}
	if entry.Status.IsTerminal() {
		return cachedResult(entry), nil
	}

	// No lock is held across the provider call.
	providerStatus, err := j.gateway.GetSessionStatus(ctx, entry.GatewaySessionID)
	if err != nil {
		return deferredResult(reference), logAndRecordError(span, "get payment status: ",
			apierror.NewAPIError(apierror.ErrGateway, "Unable to confirm payment status.", err))
	}

	status := j.statuses.Map(providerStatus)
	if !status.IsTerminal() {
		return &model.PaymentStatusResult{
			Reference: reference,
			Status:    model.StatusPending,
			Message:   freshStatusMessage(status, providerStatus),
		}, nil
	}

	var (
		updated model.TransactionEntry
		swapped bool
	)
	err = j.withReferenceLock(ctx, reference, func() error {
		var casErr error
		updated, swapped, casErr = j.datasource.CompareAndSetStatus(ctx, reference, model.StatusPending, status, providerStatus)
		return casErr
	})
	if apierror.Retryable(err) {
		// Lock contention: the next poll records the status.
		return deferredResult(reference), logAndRecordError(span, "record payment status: ", err)
	}
	if err != nil {
		return nil, logAndRecordError(span, "record payment status: ", err)
	}
	if !swapped {
		// Another poll recorded a terminal status first.
		return cachedResult(updated), nil
	}

	logrus.WithFields(logrus.Fields{
		"reference":       reference,
		"status":          status,
		"provider_status": providerStatus,
	}).Info("payment status recorded")
	j.publish(ctx, getEventFromStatus(status), updated.Reference, updated)

	return &model.PaymentStatusResult{
		Reference: reference,
		Status:    status,
		Message:   freshStatusMessage(status, providerStatus),
	}, nil
}

// SubmitSong turns a Paid, unconsumed entry into a queued song request.
// Consumption happens once per reference.
func (j *Jukebox) SubmitSong(ctx context.Context, reference string) (*model.SongRequest, error) {
	ctx, span := tracer.Start(ctx, "SubmitSong")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", reference))

	var request model.SongRequest
	err := j.withReferenceLock(ctx, reference, func() error {
		entry, err := j.datasource.ConsumeEntry(ctx, reference, j.now())
		if err != nil {
			return err
		}

		request = model.NewSongRequest(entry)
		if err := j.datasource.AppendRequest(ctx, request); err != nil {
			// Give the payment back so the visitor can retry.
			if releaseErr := j.datasource.ReleaseEntry(ctx, reference); releaseErr != nil {
				err = errors.Join(err, releaseErr)
			}
			notification.NotifyError(err)
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to queue song request.", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"reference":  reference,
		"request_id": request.ID,
	}).Info("song request submitted")
	j.publish(ctx, EventSongSubmitted, request.ID, request)

	return &request, nil
}

func (j *Jukebox) withReferenceLock(ctx context.Context, reference string, fn func() error) error {
	locker := j.locks.NewLocker(lockKeyPrefix+reference, model.GenerateUUIDWithSuffix("lock"))
	if err := locker.WaitLock(ctx, lockTimeout, lockWait); err != nil {
		return apierror.NewAPIError(apierror.ErrConflict, "Payment is busy, try again.", err)
	}
	defer func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.WithField("reference", reference).Warn(err)
		}
	}()
	return fn()
}
