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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/jukebox/config"
	"github.com/blnkfinance/jukebox/internal/request"
)

var (
	ErrMissingSessionID = errors.New("provider response has no transaction id")
	ErrMissingQRCode    = errors.New("provider response has no QR code")
	ErrMissingStatus    = errors.New("provider response has no status")
)

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned error status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether repeating the same request may succeed.
func (e *ProviderError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type createTransactionRequest struct {
	Currency       string   `json:"currency"`
	Amount         int64    `json:"amount"`
	Refno          string   `json:"refno"`
	PaymentMethods []string `json:"paymentMethods"`
	AutoSettle     bool     `json:"autoSettle"`
}

type createTransactionResponse struct {
	TransactionID string `json:"transactionId"`
	Detail        struct {
		Twint struct {
			QRCode string `json:"qrCode"`
		} `json:"twint"`
	} `json:"detail"`
}

type transactionStatusResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

// DatatransGateway talks to the Datatrans REST API.
type DatatransGateway struct {
	baseURL       string
	merchantID    string
	apiKey        string
	httpClient    *http.Client
	statusRetries uint64
	retryInterval time.Duration
}

type Option func(*DatatransGateway)

func WithHTTPClient(client *http.Client) Option {
	return func(g *DatatransGateway) {
		g.httpClient = client
	}
}

// WithRetryInterval sets the first backoff interval for status retries.
func WithRetryInterval(d time.Duration) Option {
	return func(g *DatatransGateway) {
		g.retryInterval = d
	}
}

func NewDatatransGateway(cnf config.GatewayConfig, opts ...Option) *DatatransGateway {
	g := &DatatransGateway{
		baseURL:    cnf.BaseURL,
		merchantID: cnf.MerchantID,
		apiKey:     cnf.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cnf.TimeoutSec) * time.Second,
		},
		statusRetries: uint64(cnf.StatusRetries),
		retryInterval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateSession opens a TWINT transaction. It is never retried: a second
// attempt would open a second provider session for the same reference.
func (g *DatatransGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	body := createTransactionRequest{
		Currency:       req.Currency,
		Amount:         req.Amount,
		Refno:          req.CorrelationID,
		PaymentMethods: []string{req.MethodHint},
		AutoSettle:     true,
	}

	var resp createTransactionResponse
	if err := g.do(ctx, http.MethodPost, "/v1/transactions", body, &resp); err != nil {
		return nil, errors.Wrap(err, "create session")
	}

	if resp.TransactionID == "" {
		return nil, errors.Wrap(ErrMissingSessionID, "create session")
	}
	if resp.Detail.Twint.QRCode == "" {
		return nil, errors.Wrapf(ErrMissingQRCode, "create session %s", resp.TransactionID)
	}

	return &Session{
		SessionID:        resp.TransactionID,
		ScannablePayload: resp.Detail.Twint.QRCode,
	}, nil
}

// GetSessionStatus returns the raw provider status. Transport errors and
// 5xx/429 answers are retried with exponential backoff.
func (g *DatatransGateway) GetSessionStatus(ctx context.Context, sessionID string) (string, error) {
	path := "/v1/transactions/" + url.PathEscape(sessionID)

	var resp transactionStatusResponse
	operation := func() error {
		err := g.do(ctx, http.MethodGet, path, nil, &resp)
		if err == nil {
			return nil
		}
		var providerErr *ProviderError
		if errors.As(err, &providerErr) && !providerErr.Temporary() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, g.statusRetries), ctx)

	notify := func(err error, wait time.Duration) {
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID,
			"retry_in":   wait,
		}).Warnf("payment status check failed, retrying: %v", err)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return "", errors.Wrapf(err, "get session status %s", sessionID)
	}
	if resp.Status == "" {
		return "", errors.Wrapf(ErrMissingStatus, "get session status %s", sessionID)
	}
	return resp.Status, nil
}

func (g *DatatransGateway) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := request.ToJsonReq(payload)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Basic "+request.BasicAuth(g.merchantID, g.apiKey))
	req.Header.Set("Accept", "application/json")

	_, err = request.Call(g.httpClient, req, out)
	var statusErr *request.StatusError
	if errors.As(err, &statusErr) {
		return &ProviderError{StatusCode: statusErr.StatusCode, Body: statusErr.Body}
	}
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	return nil
}
