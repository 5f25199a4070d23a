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

package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/blnkfinance/jukebox/model"
)

const (
	maxNameLength  = 100
	maxTitleLength = 200
)

type InitiatePayment struct {
	Name      string `json:"name"`
	SongTitle string `json:"songTitle"`
}

type SubmitSong struct {
	InternalRefno string `json:"internalRefno"`
}

type InitiatePaymentResponse struct {
	InternalRefno          string `json:"internalRefno"`
	DatatransTransactionID string `json:"datatransTransactionId"`
	QRCodeData             string `json:"qrCodeData"`
}

type PaymentStatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type SubmitSongResponse struct {
	Message string            `json:"message"`
	Request model.SongRequest `json:"request"`
}

type MarkPlayedResponse struct {
	Message string            `json:"message"`
	Song    model.SongRequest `json:"song"`
}

// ValidateInitiatePayment only bounds lengths. A missing title is reported
// by the workflow so every caller gets the same error.
func (p *InitiatePayment) ValidateInitiatePayment() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.RuneLength(0, maxNameLength)),
		validation.Field(&p.SongTitle, validation.RuneLength(0, maxTitleLength)),
	)
}

func (p *InitiatePayment) ToSongPayload() model.SongPayload {
	return model.SongPayload{RequesterName: p.Name, SongTitle: p.SongTitle}
}

func (s *SubmitSong) ValidateSubmitSong() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.InternalRefno, validation.Required.Error("internalRefno is required")),
	)
}

func ToInitiatePaymentResponse(session *model.PaymentSession) InitiatePaymentResponse {
	return InitiatePaymentResponse{
		InternalRefno:          session.Reference,
		DatatransTransactionID: session.GatewaySessionID,
		QRCodeData:             session.QRPayload,
	}
}

func ToPaymentStatusResponse(result *model.PaymentStatusResult) PaymentStatusResponse {
	return PaymentStatusResponse{
		Status:  result.Status.Wire(),
		Message: result.Message,
	}
}
