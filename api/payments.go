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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/blnkfinance/jukebox/api/model"
	"github.com/blnkfinance/jukebox/internal/apierror"
)

func (a Api) InitiatePayment(c *gin.Context) {
	var newPayment model2.InitiatePayment
	if err := c.ShouldBindJSON(&newPayment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body."})
		return
	}

	if err := newPayment.ValidateInitiatePayment(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	session, err := a.jukebox.InitiatePayment(c.Request.Context(), newPayment.ToSongPayload())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, model2.ToInitiatePaymentResponse(session))
}

// CheckPaymentStatus answers 503 with a pending body when the provider
// could not be reached, so kiosk poll loops keep going.
func (a Api) CheckPaymentStatus(c *gin.Context) {
	reference := c.Query("internalRefno")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reference."})
		return
	}

	result, err := a.jukebox.CheckPaymentStatus(c.Request.Context(), reference)
	if err != nil && apierror.Retryable(err) && result != nil {
		c.JSON(http.StatusServiceUnavailable, model2.ToPaymentStatusResponse(result))
		return
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, model2.ToPaymentStatusResponse(result))
}

func (a Api) SubmitSong(c *gin.Context) {
	var submission model2.SubmitSong
	if err := c.ShouldBindJSON(&submission); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body."})
		return
	}

	if err := submission.ValidateSubmitSong(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	request, err := a.jukebox.SubmitSong(c.Request.Context(), submission.InternalRefno)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model2.SubmitSongResponse{
		Message: "Song request submitted successfully!",
		Request: *request,
	})
}

func (a Api) GetPaymentStats(c *gin.Context) {
	stats, err := a.jukebox.PaymentStats(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
