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
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/blnkfinance/jukebox/config"
	"github.com/blnkfinance/jukebox/database"
	"github.com/blnkfinance/jukebox/gateway"
	redlock "github.com/blnkfinance/jukebox/internal/lock"
	redis_db "github.com/blnkfinance/jukebox/internal/redis-db"
)

var tracer = otel.Tracer("jukebox.payments")

// Jukebox owns the payment workflow and the song request views. The
// ledger and request store live in the datasource handed to NewJukebox.
type Jukebox struct {
	cnf        *config.Configuration
	gateway    gateway.Gateway
	datasource database.IDataSource
	locks      redlock.Provider
	queue      *Queue
	redis      redis.UniversalClient
	statuses   gateway.StatusMapping
	now        func() time.Time
}

type Option func(*Jukebox)

// WithLockProvider replaces the per-reference lock provider.
func WithLockProvider(p redlock.Provider) Option {
	return func(j *Jukebox) {
		j.locks = p
	}
}

// WithQueue enables webhook events on the given queue.
func WithQueue(q *Queue) Option {
	return func(j *Jukebox) {
		j.queue = q
	}
}

func WithClock(now func() time.Time) Option {
	return func(j *Jukebox) {
		j.now = now
	}
}

// NewJukebox wires the workflow from the loaded configuration. Without a
// Redis DSN everything stays in process. With one, locks go through Redis
// and webhook events are queued when a webhook URL is configured.
func NewJukebox(db database.IDataSource, gw gateway.Gateway, opts ...Option) (*Jukebox, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	j := &Jukebox{
		cnf:        cnf,
		gateway:    gw,
		datasource: db,
		locks:      redlock.NewMemoryProvider(),
		statuses: gateway.StatusMapping{
			PaidValues:   cnf.Gateway.PaidStatuses,
			FailedValues: cnf.Gateway.FailedStatuses,
		},
		now: time.Now,
	}

	if cnf.Redis.Dns != "" {
		redisClient, err := redis_db.NewRedisClient([]string{cnf.Redis.Dns}, cnf.Redis.SkipTLSVerify)
		if err != nil {
			return nil, err
		}
		j.redis = redisClient.Client()
		j.locks = redlock.NewRedisProvider(j.redis)

		if cnf.Notification.Webhook.Url != "" {
			q, err := NewQueue(cnf)
			if err != nil {
				return nil, err
			}
			j.queue = q
		}
	}

	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Close releases the Redis connections, if any.
func (j *Jukebox) Close() error {
	if j.queue != nil {
		if err := j.queue.Close(); err != nil {
			logrus.Error(err)
		}
	}
	if j.redis != nil {
		return j.redis.Close()
	}
	return nil
}

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}
