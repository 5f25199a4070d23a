package redlock

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type memoryHold struct {
	value    string
	expires  time.Time
	released chan struct{}
}

// MemoryProvider keeps lock state in process. It is the default when no
// Redis is configured.
type MemoryProvider struct {
	mu    sync.Mutex
	holds map[string]*memoryHold
	now   func() time.Time
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		holds: make(map[string]*memoryHold),
		now:   time.Now,
	}
}

func (p *MemoryProvider) NewLocker(key, value string) Locker {
	return &memoryLocker{provider: p, key: key, value: value}
}

// current returns the live hold for key, dropping it if it has expired.
// Callers must hold p.mu.
func (p *MemoryProvider) current(key string) *memoryHold {
	h, ok := p.holds[key]
	if !ok {
		return nil
	}
	if !p.now().Before(h.expires) {
		delete(p.holds, key)
		close(h.released)
		return nil
	}
	return h
}

type memoryLocker struct {
	provider *MemoryProvider
	key      string
	value    string
}

func (l *memoryLocker) Lock(_ context.Context, timeout time.Duration) error {
	_, err := l.tryLock(timeout)
	return err
}

// tryLock returns the blocking hold when the lock is taken.
func (l *memoryLocker) tryLock(timeout time.Duration) (*memoryHold, error) {
	p := l.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	if h := p.current(l.key); h != nil {
		return h, errors.Wrapf(ErrLockHeld, "lock %s", l.key)
	}
	p.holds[l.key] = &memoryHold{
		value:    l.value,
		expires:  p.now().Add(timeout),
		released: make(chan struct{}),
	}
	return nil, nil
}

func (l *memoryLocker) Unlock(_ context.Context) error {
	p := l.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.current(l.key)
	if h == nil || h.value != l.value {
		return errors.Wrapf(ErrNotHolder, "unlock %s", l.key)
	}
	delete(p.holds, l.key)
	close(h.released)
	return nil
}

func (l *memoryLocker) ExtendLock(_ context.Context, extension time.Duration) error {
	p := l.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.current(l.key)
	if h == nil || h.value != l.value {
		return errors.Wrapf(ErrNotHolder, "extend %s", l.key)
	}
	h.expires = p.now().Add(extension)
	return nil
}

func (l *memoryLocker) WaitLock(ctx context.Context, lockTimeout, waitTimeout time.Duration) error {
	timer := time.NewTimer(waitTimeout)
	defer timer.Stop()

	for {
		held, err := l.tryLock(lockTimeout)
		if err == nil {
			return nil
		}

		// Wake up on release, or when the current hold would expire.
		l.provider.mu.Lock()
		untilExpiry := held.expires.Sub(l.provider.now())
		l.provider.mu.Unlock()
		expiry := time.NewTimer(untilExpiry)

		select {
		case <-held.released:
		case <-expiry.C:
		case <-timer.C:
			expiry.Stop()
			return errors.Wrapf(ErrWaitTimeout, "lock %s", l.key)
		case <-ctx.Done():
			expiry.Stop()
			return ctx.Err()
		}
		expiry.Stop()
	}
}
