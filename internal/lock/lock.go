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

package redlock

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockHeld    = errors.New("lock is already held")
	ErrNotHolder   = errors.New("lock expired or is held by another owner")
	ErrWaitTimeout = errors.New("timed out waiting for lock")
)

const (
	unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	extendScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('pexpire', KEYS[1], ARGV[2]) else return 0 end"

	// maxPollJitter bounds the pause between SETNX attempts in WaitLock.
	maxPollJitter = 50 * time.Millisecond
)

// Locker guards a single key. value identifies the holder so only the
// holder can unlock or extend the lock.
type Locker interface {
	Lock(ctx context.Context, timeout time.Duration) error
	Unlock(ctx context.Context) error
	ExtendLock(ctx context.Context, extension time.Duration) error
	WaitLock(ctx context.Context, lockTimeout, waitTimeout time.Duration) error
}

// Provider hands out lockers for keys.
type Provider interface {
	NewLocker(key, value string) Locker
}

// RedisProvider backs lockers with SETNX on a shared Redis, so several
// server processes agree on who holds a payment reference.
type RedisProvider struct {
	client redis.UniversalClient
}

func NewRedisProvider(client redis.UniversalClient) *RedisProvider {
	return &RedisProvider{client: client}
}

func (p *RedisProvider) NewLocker(key, value string) Locker {
	return NewRedisLocker(p.client, key, value)
}

type RedisLocker struct {
	client redis.UniversalClient
	key    string
	value  string
}

func NewRedisLocker(client redis.UniversalClient, key, value string) *RedisLocker {
	return &RedisLocker{
		client: client,
		key:    key,
		value:  value,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, timeout time.Duration) error {
	ok, err := l.client.SetNX(ctx, l.key, l.value, timeout).Result()
	if err != nil {
		return errors.Wrapf(err, "lock %s", l.key)
	}
	if !ok {
		return errors.Wrapf(ErrLockHeld, "lock %s", l.key)
	}
	return nil
}

func (l *RedisLocker) Unlock(ctx context.Context) error {
	return l.evalOwned(ctx, "unlock", unlockScript, l.value)
}

func (l *RedisLocker) ExtendLock(ctx context.Context, extension time.Duration) error {
	return l.evalOwned(ctx, "extend", extendScript, l.value, strconv.FormatInt(extension.Milliseconds(), 10))
}

// evalOwned runs a script that only acts when the key still holds our value.
func (l *RedisLocker) evalOwned(ctx context.Context, op, script string, args ...interface{}) error {
	result, err := l.client.Eval(ctx, script, []string{l.key}, args...).Result()
	if err != nil {
		return errors.Wrapf(err, "%s %s", op, l.key)
	}
	if result == int64(0) {
		return errors.Wrapf(ErrNotHolder, "%s %s", op, l.key)
	}
	return nil
}

// WaitLock polls SETNX with jitter until the lock is taken, waitTimeout
// passes or ctx is done.
func (l *RedisLocker) WaitLock(ctx context.Context, lockTimeout, waitTimeout time.Duration) error {
	deadline := time.NewTimer(waitTimeout)
	defer deadline.Stop()

	for {
		err := l.Lock(ctx, lockTimeout)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrLockHeld) {
			return err
		}

		pause := time.NewTimer(time.Duration(rand.Int63n(int64(maxPollJitter))) + time.Millisecond)
		select {
		case <-pause.C:
		case <-deadline.C:
			pause.Stop()
			return errors.Wrapf(ErrWaitTimeout, "lock %s", l.key)
		case <-ctx.Done():
			pause.Stop()
			return ctx.Err()
		}
	}
}
