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
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/jukebox"
	model2 "github.com/blnkfinance/jukebox/api/model"
	"github.com/blnkfinance/jukebox/config"
	"github.com/blnkfinance/jukebox/database"
	"github.com/blnkfinance/jukebox/gateway"
	"github.com/blnkfinance/jukebox/internal/request"
	"github.com/blnkfinance/jukebox/model"
)

const (
	gatewayURL = "https://api.sandbox.datatrans.test"
	adminKey   = "dj-secret"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		if err := json.NewDecoder(resp.Body).Decode(s.Response); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	buf, err := request.ToJsonReq(v)
	require.NoError(t, err)
	return buf
}

func setupRouter(t *testing.T, mutate ...func(*config.Configuration)) *gin.Engine {
	t.Helper()
	cnf := &config.Configuration{
		ProjectName: "Jukebox",
		Server:      config.ServerConfig{Port: "5001", AdminKey: adminKey},
		Gateway: config.GatewayConfig{
			BaseURL:        gatewayURL,
			MerchantID:     "1100000000",
			APIKey:         "secret",
			Amount:         "1.00",
			Currency:       "CHF",
			PaymentMethod:  "TWI",
			TimeoutSec:     5,
			StatusRetries:  1,
			PaidStatuses:   config.DefaultPaidStatuses,
			FailedStatuses: config.DefaultFailedStatuses,
		},
	}
	for _, m := range mutate {
		m(cnf)
	}
	config.MockConfig(cnf)

	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	gw := gateway.NewDatatransGateway(cnf.Gateway, gateway.WithHTTPClient(client), gateway.WithRetryInterval(time.Millisecond))
	j, err := jukebox.NewJukebox(database.NewDataSource(), gw)
	require.NoError(t, err)
	return NewAPI(j).Router()
}

func mockCreateSession(transactionID string) {
	httpmock.RegisterResponder(http.MethodPost, gatewayURL+"/v1/transactions",
		httpmock.NewStringResponder(http.StatusCreated,
			`{"transactionId":"`+transactionID+`","detail":{"twint":{"qrCode":"iVBORw0KGgo="}}}`))
}

func mockStatus(transactionID, status string) {
	httpmock.RegisterResponder(http.MethodGet, gatewayURL+"/v1/transactions/"+transactionID,
		httpmock.NewStringResponder(http.StatusOK, `{"transactionId":"`+transactionID+`","status":"`+status+`"}`))
}

func initiate(t *testing.T, router *gin.Engine, name, title string) model2.InitiatePaymentResponse {
	t.Helper()
	var resp model2.InitiatePaymentResponse
	rec, err := SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, model2.InitiatePayment{Name: name, SongTitle: title}),
		Router:   router,
		Response: &resp,
		Method:   http.MethodPost,
		Route:    "/api/initiate-payment",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	return resp
}

func checkStatus(t *testing.T, router *gin.Engine, reference string) (int, model2.PaymentStatusResponse) {
	t.Helper()
	var resp model2.PaymentStatusResponse
	rec, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &resp,
		Method:   http.MethodGet,
		Route:    "/api/check-payment-status?internalRefno=" + reference,
	})
	require.NoError(t, err)
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	router := setupRouter(t)
	var resp string
	rec, err := SetUpTestRequest(TestRequest{Router: router, Response: &resp, Method: http.MethodGet, Route: "/"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "server running...", resp)
}

func TestPaymentFlow(t *testing.T) {
	router := setupRouter(t)
	mockCreateSession("240101000000001")
	mockStatus("240101000000001", "initialized")

	session := initiate(t, router, "Ann", "Song A")
	assert.Equal(t, "240101000000001", session.DatatransTransactionID)
	assert.Equal(t, "iVBORw0KGgo=", session.QRCodeData)
	assert.True(t, strings.HasPrefix(session.InternalRefno, "ref_"))

	code, status := checkStatus(t, router, session.InternalRefno)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pending", status.Status)
	assert.Equal(t, "Payment initialized. Waiting...", status.Message)

	// Submitting before the payment settles is refused.
	var errResp map[string]string
	rec, err := SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, model2.SubmitSong{InternalRefno: session.InternalRefno}),
		Router:   router,
		Response: &errResp,
		Method:   http.MethodPost,
		Route:    "/api/submit-song",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "Payment not confirmed for this request.", errResp["error"])

	mockStatus("240101000000001", "settled")
	code, status = checkStatus(t, router, session.InternalRefno)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "paid", status.Status)
	assert.Equal(t, "Payment successful!", status.Message)

	var submitted model2.SubmitSongResponse
	rec, err = SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, model2.SubmitSong{InternalRefno: session.InternalRefno}),
		Router:   router,
		Response: &submitted,
		Method:   http.MethodPost,
		Route:    "/api/submit-song",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Song request submitted successfully!", submitted.Message)
	assert.Equal(t, "Song A", submitted.Request.SongTitle)
	assert.Equal(t, "Ann", submitted.Request.RequesterName)
	assert.Equal(t, "240101000000001", submitted.Request.GatewaySessionID)
	assert.False(t, submitted.Request.Played)

	// The same payment cannot be used twice.
	rec, err = SetUpTestRequest(TestRequest{
		Payload: jsonBody(t, model2.SubmitSong{InternalRefno: session.InternalRefno}),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/api/submit-song",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	var queue []model.PublicSongRequest
	rec, err = SetUpTestRequest(TestRequest{Router: router, Response: &queue, Method: http.MethodGet, Route: "/api/songs/queue"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, queue, 1)
	assert.Equal(t, submitted.Request.ID, queue[0].ID)

	var marked model2.MarkPlayedResponse
	rec, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &marked,
		Method:   http.MethodPut,
		Route:    "/api/songs/mark-played/" + submitted.Request.ID + "?key=" + adminKey,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Song marked as played", marked.Message)
	assert.True(t, marked.Song.Played)

	// The session is opened exactly once.
	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, info["POST "+gatewayURL+"/v1/transactions"])
}

func TestPaymentFlow_FailedPayment(t *testing.T) {
	router := setupRouter(t)
	mockCreateSession("tx_failed")
	mockStatus("tx_failed", "canceled")

	session := initiate(t, router, "", "Song B")

	code, status := checkStatus(t, router, session.InternalRefno)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "failed", status.Status)
	assert.Equal(t, "Payment canceled.", status.Message)

	code, status = checkStatus(t, router, session.InternalRefno)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Payment failed.", status.Message)
	assert.Equal(t, 1, httpmock.GetCallCountInfo()["GET "+gatewayURL+"/v1/transactions/tx_failed"])

	rec, err := SetUpTestRequest(TestRequest{
		Payload: jsonBody(t, model2.SubmitSong{InternalRefno: session.InternalRefno}),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/api/submit-song",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestInitiatePayment_Errors(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		mutate       func(*config.Configuration)
		gatewayCode  int
		expectedCode int
		gatewayCalls int
	}{
		{name: "empty title", body: `{"name":"Ann","songTitle":"   "}`, expectedCode: http.StatusBadRequest},
		{name: "malformed body", body: `{"songTitle":`, expectedCode: http.StatusBadRequest},
		{name: "title too long", body: `{"songTitle":"` + strings.Repeat("x", 201) + `"}`, expectedCode: http.StatusBadRequest},
		{
			name:         "placeholder api key",
			body:         `{"songTitle":"Song A"}`,
			mutate:       func(c *config.Configuration) { c.Gateway.APIKey = config.PlaceholderAPIKey },
			expectedCode: http.StatusInternalServerError,
		},
		{
			name:         "gateway failure",
			body:         `{"songTitle":"Song A"}`,
			gatewayCode:  http.StatusInternalServerError,
			expectedCode: http.StatusBadGateway,
			gatewayCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mutators []func(*config.Configuration)
			if tt.mutate != nil {
				mutators = append(mutators, tt.mutate)
			}
			router := setupRouter(t, mutators...)
			code := tt.gatewayCode
			if code == 0 {
				code = http.StatusCreated
			}
			httpmock.RegisterResponder(http.MethodPost, gatewayURL+"/v1/transactions",
				httpmock.NewStringResponder(code, `{"error":{"code":"UNKNOWN_ERROR"}}`))

			var resp map[string]interface{}
			rec, err := SetUpTestRequest(TestRequest{
				Payload:  strings.NewReader(tt.body),
				Router:   router,
				Response: &resp,
				Method:   http.MethodPost,
				Route:    "/api/initiate-payment",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, rec.Code)
			assert.Equal(t, tt.gatewayCalls, httpmock.GetTotalCallCount())
		})
	}
}

func TestCheckPaymentStatus_Errors(t *testing.T) {
	router := setupRouter(t)

	code, _ := checkStatus(t, router, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = checkStatus(t, router, "ref_unknown")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCheckPaymentStatus_GatewayDown(t *testing.T) {
	router := setupRouter(t)
	mockCreateSession("tx_down")
	httpmock.RegisterResponder(http.MethodGet, gatewayURL+"/v1/transactions/tx_down",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "maintenance"))

	session := initiate(t, router, "Ann", "Song A")

	code, status := checkStatus(t, router, session.InternalRefno)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "pending", status.Status)
	assert.Equal(t, "Unable to confirm payment yet. Retrying...", status.Message)

	// One retry is configured.
	assert.Equal(t, 2, httpmock.GetCallCountInfo()["GET "+gatewayURL+"/v1/transactions/tx_down"])

	mockStatus("tx_down", "authorized")
	code, status = checkStatus(t, router, session.InternalRefno)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "paid", status.Status)
}

func TestAdminRoutes(t *testing.T) {
	router := setupRouter(t)
	mockCreateSession("tx_admin")
	mockStatus("tx_admin", "settled")

	session := initiate(t, router, "Ann", "Song A")
	code, _ := checkStatus(t, router, session.InternalRefno)
	require.Equal(t, http.StatusOK, code)

	var submitted model2.SubmitSongResponse
	_, err := SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, model2.SubmitSong{InternalRefno: session.InternalRefno}),
		Router:   router,
		Response: &submitted,
		Method:   http.MethodPost,
		Route:    "/api/submit-song",
	})
	require.NoError(t, err)

	rec, err := SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: "/api/songs"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var songs []model.SongRequest
	rec, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &songs,
		Method:   http.MethodGet,
		Route:    "/api/songs",
		Header:   map[string]string{"X-Jukebox-Key": adminKey},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, songs, 1)
	assert.Equal(t, session.InternalRefno, songs[0].OriginReference)

	var song model.SongRequest
	rec, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &song,
		Method:   http.MethodGet,
		Route:    "/api/songs/" + submitted.Request.ID + "?key=" + adminKey,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Song A", song.SongTitle)

	rec, err = SetUpTestRequest(TestRequest{
		Router: router,
		Method: http.MethodPut,
		Route:  "/api/songs/mark-played/req_unknown?key=" + adminKey,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var stats map[string]int
	rec, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &stats,
		Method:   http.MethodGet,
		Route:    "/api/payments/stats?key=" + adminKey,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, stats["paid"])
}
