/*
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
	"encoding/json"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/jukebox/config"
	"github.com/blnkfinance/jukebox/internal/notification"
	"github.com/blnkfinance/jukebox/internal/request"
)

const (
	EventPaymentPaid   = "payment.paid"
	EventPaymentFailed = "payment.failed"
	EventSongSubmitted = "song.submitted"
	EventSongPlayed    = "song.played"
)

// NewWebhook is the body POSTed to the configured webhook URL.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// publish queues an event. Failures are reported but never fail the
// operation that produced the event.
func (j *Jukebox) publish(ctx context.Context, event, subjectID string, data interface{}) {
	if j.queue == nil || event == "" {
		return
	}
	if err := j.queue.SendWebhook(ctx, subjectID, NewWebhook{Event: event, Payload: data}); err != nil {
		notification.NotifyError(err)
	}
}

// processHTTP delivers one webhook. Any non-2xx answer is returned as an
// error so asynq retries the task.
func processHTTP(ctx context.Context, data NewWebhook) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := request.ToJsonReq(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conf.Notification.Webhook.Url, payload)
	if err != nil {
		return err
	}
	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	_, err = request.Call(nil, req, nil)
	return err
}

// ProcessWebhook is the asynq handler for WEBHOOK_QUEUE.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.Errorf("Error unmarshaling webhook payload: %v", err)
		return err
	}

	logrus.WithField("event", payload.Event).Info("processing webhook")
	if err := processHTTP(ctx, payload); err != nil {
		logrus.WithField("event", payload.Event).Errorf("webhook delivery failed: %v", err)
		return err
	}
	return nil
}
