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
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/jukebox/config"
	redis_db "github.com/blnkfinance/jukebox/internal/redis-db"
)

const WEBHOOK_QUEUE = "webhook_queue"

// Queue enqueues webhook deliveries for the workers process.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// RedisClientOpt builds asynq connection options from the Redis DSN.
func RedisClientOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("error parsing Redis URL: %v", err)
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

func NewQueue(conf *config.Configuration) (*Queue, error) {
	queueOptions, err := RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}
	return &Queue{
		Client:    asynq.NewClient(queueOptions),
		Inspector: asynq.NewInspector(queueOptions),
	}, nil
}

// TaskID is the dedup key of a webhook: one delivery per event per subject.
func TaskID(event, subjectID string) string {
	return event + ":" + subjectID
}

// SendWebhook enqueues a webhook delivery. Re-sending the same event for
// the same subject is ignored.
func (q *Queue) SendWebhook(ctx context.Context, subjectID string, hook NewWebhook) error {
	payload, err := json.Marshal(hook)
	if err != nil {
		return err
	}

	task := asynq.NewTask(WEBHOOK_QUEUE, payload,
		asynq.TaskID(TaskID(hook.Event, subjectID)),
		asynq.Queue(WEBHOOK_QUEUE),
		asynq.MaxRetry(5),
	)
	info, err := q.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "enqueue webhook %s", hook.Event)
	}

	logrus.WithFields(logrus.Fields{
		"event":   hook.Event,
		"task_id": info.ID,
	}).Debug("webhook enqueued")
	return nil
}

func (q *Queue) Close() error {
	if err := q.Inspector.Close(); err != nil {
		return err
	}
	return q.Client.Close()
}
