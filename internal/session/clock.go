package session

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/examgate/examgate-backend/internal/store"
	"github.com/rs/zerolog"
)

// Clock owns the wall-clock deadline of one active session. The deadline
// is persisted under a (examID, userID) scoped key on first start and only
// read back on later starts, so a page reload can never extend the time.
// Expiry is terminal and fires the expiry callback exactly once.
type Clock struct {
	kv       store.KV
	key      string
	log      zerolog.Logger
	interval time.Duration
	now      func() time.Time

	deadline time.Time
	onTick   func(secondsRemaining int64)
	onExpire func()

	stopCh     chan struct{}
	stopOnce   sync.Once
	expireOnce sync.Once
}

// ClockOption customizes a Clock. Used by tests to compress time.
type ClockOption func(*Clock)

// WithInterval overrides the 1 s tick cadence.
func WithInterval(d time.Duration) ClockOption {
	return func(c *Clock) { c.interval = d }
}

// WithNow overrides the time source.
func WithNow(now func() time.Time) ClockOption {
	return func(c *Clock) { c.now = now }
}

// NewClock resolves the deadline for key without ticking; call Run to
// start. Construction and Run are separate so the owner can publish the
// Clock before the tick goroutine (and its expiry callback) can fire.
//
// First start for a key computes deadline = now + duration and persists
// it. A later start for the same key reads the persisted deadline
// unchanged. If the store cannot be read at all the session is treated as
// fresh: the deadline is recomputed once and persistence is retried, but
// the clock never runs without a deadline.
func NewClock(
	ctx context.Context,
	kv store.KV,
	key string,
	duration time.Duration,
	onTick func(secondsRemaining int64),
	onExpire func(),
	log zerolog.Logger,
	opts ...ClockOption,
) (*Clock, error) {
	c := &Clock{
		kv:       kv,
		key:      key,
		log:      log.With().Str("component", "session_clock").Str("key", key).Logger(),
		interval: time.Second,
		now:      time.Now,
		onTick:   onTick,
		onExpire: onExpire,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	raw, err := kv.Get(ctx, key)
	switch {
	case err == nil:
		millis, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			c.log.Warn().Str("raw", raw).Msg("Corrupt persisted deadline, recomputing")
			c.resetDeadline(ctx, duration)
		} else {
			c.deadline = time.UnixMilli(millis)
		}
	case errors.Is(err, store.ErrKeyNotFound):
		c.resetDeadline(ctx, duration)
	default:
		// Store unreadable. Never run without a deadline: recompute once
		// and keep going.
		c.log.Warn().Err(err).Msg("Deadline store unreadable, treating as fresh session")
		c.resetDeadline(ctx, duration)
	}

	return c, nil
}

// Run starts the tick goroutine. Call exactly once, after NewClock.
func (c *Clock) Run() {
	go c.run()
}

// resetDeadline computes a fresh deadline and persists it best-effort.
// Truncated to milliseconds so the in-memory deadline and the persisted
// one resolve identically on resume.
func (c *Clock) resetDeadline(ctx context.Context, duration time.Duration) {
	c.deadline = c.now().Add(duration).Truncate(time.Millisecond)
	if err := c.kv.Set(ctx, c.key, strconv.FormatInt(c.deadline.UnixMilli(), 10)); err != nil {
		c.log.Warn().Err(err).Msg("Failed to persist deadline, session will not survive a reload")
	}
}

// Remaining returns whole seconds until the deadline, clamped at zero.
func (c *Clock) Remaining() int64 {
	secs := int64(math.Round(c.deadline.Sub(c.now()).Seconds()))
	if secs < 0 {
		return 0
	}
	return secs
}

// Deadline returns the resolved absolute deadline.
func (c *Clock) Deadline() time.Time {
	return c.deadline
}

// Stop cancels ticking without touching the persisted deadline, so a
// detached session can resume later. Idempotent.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Clock) run() {
	// A resumed session may already be past its deadline.
	if c.Remaining() == 0 {
		c.expire()
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			secs := c.Remaining()
			if c.onTick != nil {
				c.onTick(secs)
			}
			if secs == 0 {
				c.expire()
				return
			}
		}
	}
}

// expire stops the clock permanently, deletes the persisted deadline and
// fires the expiry callback. Runs at most once for the lifetime of the
// Clock regardless of how many paths reach it.
func (c *Clock) expire() {
	c.expireOnce.Do(func() {
		c.Stop()
		if err := c.kv.Delete(context.Background(), c.key); err != nil {
			c.log.Warn().Err(err).Msg("Failed to delete expired deadline")
		}
		if c.onExpire != nil {
			c.onExpire()
		}
	})
}
