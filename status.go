package jukebox

import (
	"fmt"

	"github.com/blnkfinance/jukebox/model"
)

const (
	messagePaid          = "Payment successful!"
	messageCheckDeferred = "Unable to confirm payment yet. Retrying..."
)

// freshStatusMessage describes a status the provider just reported.
func freshStatusMessage(status model.PaymentStatus, providerStatus string) string {
	switch status {
	case model.StatusPaid:
		return messagePaid
	case model.StatusFailed:
		return fmt.Sprintf("Payment %s.", providerStatus)
	default:
		return fmt.Sprintf("Payment %s. Waiting...", providerStatus)
	}
}

// cachedStatusMessage describes a terminal status read from the ledger.
func cachedStatusMessage(status model.PaymentStatus) string {
	return fmt.Sprintf("Payment %s.", status.Wire())
}

// deferredResult is the Pending answer given when the status could not be
// confirmed right now.
func deferredResult(reference string) *model.PaymentStatusResult {
	return &model.PaymentStatusResult{
		Reference: reference,
		Status:    model.StatusPending,
		Message:   messageCheckDeferred,
	}
}

func cachedResult(entry model.TransactionEntry) *model.PaymentStatusResult {
	return &model.PaymentStatusResult{
		Reference: entry.Reference,
		Status:    entry.Status,
		Message:   cachedStatusMessage(entry.Status),
	}
}

// getEventFromStatus maps a terminal payment status to its webhook event.
func getEventFromStatus(status model.PaymentStatus) string {
	switch status {
	case model.StatusPaid:
		return EventPaymentPaid
	case model.StatusFailed:
		return EventPaymentFailed
	default:
		return ""
	}
}
