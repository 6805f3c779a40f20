// Package coordinator caches data fetched from a device or cloud API and
// shares it between the entities built on top of it.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FetchFunc retrieves a fresh copy of the coordinated data.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Coordinator holds the last successfully fetched value and the outcome of
// the most recent refresh.
type Coordinator[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]

	mu          sync.RWMutex
	data        T
	hasData     bool
	lastErr     error
	lastSuccess bool
	lastUpdate  time.Time
	listeners   map[int]func()
	nextID      int
}

// New builds a coordinator. An interval <= 0 disables Run; owners then call
// Refresh themselves.
func New[T any](name string, interval time.Duration, fetch FetchFunc[T]) *Coordinator[T] {
	return &Coordinator[T]{
		name:      name,
		interval:  interval,
		fetch:     fetch,
		listeners: make(map[int]func()),
	}
}

func (c *Coordinator[T]) Name() string {
	return c.name
}

// Refresh fetches new data. On failure the previous data is kept and the
// coordinator reports the update as unsuccessful.
func (c *Coordinator[T]) Refresh(ctx context.Context) error {
	data, err := c.fetch(ctx)

	c.mu.Lock()
	wasSuccess := c.lastSuccess
	hadAttempt := !c.lastUpdate.IsZero() || c.lastErr != nil
	c.lastErr = err
	if err == nil {
		c.data = data
		c.hasData = true
		c.lastSuccess = true
		c.lastUpdate = time.Now()
	} else {
		c.lastSuccess = false
	}
	listeners := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	switch {
	case err != nil && (wasSuccess || !hadAttempt):
		log.Warn().Err(err).Str("component", "coordinator").Str("name", c.name).Msg("update failed; data unavailable")
	case err == nil && hadAttempt && !wasSuccess:
		log.Info().Str("component", "coordinator").Str("name", c.name).Msg("update recovered")
	}

	for _, fn := range listeners {
		fn()
	}
	return err
}

// Data returns the last successfully fetched value.
func (c *Coordinator[T]) Data() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data, c.hasData
}

func (c *Coordinator[T]) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

func (c *Coordinator[T]) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastUpdate is the time of the last successful refresh.
func (c *Coordinator[T]) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

// AddListener registers fn to run after every refresh attempt.
func (c *Coordinator[T]) AddListener(fn func()) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Run refreshes on every interval tick until ctx is done.
func (c *Coordinator[T]) Run(ctx context.Context) {
	if c.interval <= 0 {
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}
