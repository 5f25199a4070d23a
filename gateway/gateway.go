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

package gateway

import (
	"context"
	"strings"

	"github.com/blnkfinance/jukebox/model"
)

// SessionRequest describes the charge to open with the provider.
type SessionRequest struct {
	Amount        int64  // smallest currency unit
	Currency      string // ISO 4217
	CorrelationID string // our reference, echoed by the provider as refno
	MethodHint    string // provider payment method code, e.g. TWI
}

// Session is what the provider returns for a newly created payment.
type Session struct {
	SessionID        string
	ScannablePayload string // base64 PNG of the QR code
}

// Gateway is the payment provider contract used by the workflow. Both
// calls do network I/O and may fail or be slow.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSessionStatus(ctx context.Context, sessionID string) (string, error)
}

// StatusMapping maps provider vocabulary onto the local payment status.
type StatusMapping struct {
	PaidValues   []string
	FailedValues []string
}

// Map is case insensitive. Anything not listed is still pending.
func (m StatusMapping) Map(status string) model.PaymentStatus {
	statusLower := strings.ToLower(strings.TrimSpace(status))

	for _, v := range m.PaidValues {
		if strings.ToLower(v) == statusLower {
			return model.StatusPaid
		}
	}

	for _, v := range m.FailedValues {
		if strings.ToLower(v) == statusLower {
			return model.StatusFailed
		}
	}

	return model.StatusPending
}
