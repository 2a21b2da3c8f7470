package session

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/examgate/examgate-backend/internal/store"
	"github.com/rs/zerolog"
)

func TestClockPersistsDeadlineOnce(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	key := "user:u1:exam:e1:deadline"

	first, err := NewClock(ctx, kv, key, 30*time.Minute, nil, nil, zerolog.Nop(), WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	first.Run()
	defer first.Stop()

	raw, err := kv.Get(ctx, key)
	if err != nil {
		t.Fatalf("deadline not persisted: %v", err)
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		t.Fatalf("persisted deadline not parseable: %q", raw)
	}
	if got := time.UnixMilli(millis); !got.Equal(first.Deadline()) {
		t.Fatalf("persisted deadline %v != resolved %v", got, first.Deadline())
	}

	// A second start for the same key must adopt the stored deadline, even
	// with a different duration. This is what stops a reload from extending
	// the time.
	second, err := NewClock(ctx, kv, key, 2*time.Hour, nil, nil, zerolog.Nop(), WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	second.Run()
	defer second.Stop()

	if !second.Deadline().Equal(first.Deadline()) {
		t.Fatalf("restart changed deadline: %v -> %v", first.Deadline(), second.Deadline())
	}
}

func TestClockExpiresExactlyOnce(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	key := "user:u1:exam:e1:deadline"

	var fired int32
	expired := make(chan struct{})

	c, err := NewClock(ctx, kv, key, 30*time.Millisecond,
		nil,
		func() {
			if atomic.AddInt32(&fired, 1) == 1 {
				close(expired)
			}
		},
		zerolog.Nop(),
		WithInterval(5*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Run()
	defer c.Stop()

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("expiry callback never fired")
	}

	// Give stray ticks a chance to double-fire before asserting.
	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Fatalf("expiry fired %d times, want 1", n)
	}

	if _, err := kv.Get(ctx, key); !errors.Is(err, store.ErrKeyNotFound) {
		t.Fatalf("expired deadline not deleted, got err=%v", err)
	}
	if got := c.Remaining(); got != 0 {
		t.Fatalf("Remaining after expiry = %d, want 0", got)
	}
}

func TestClockExpiresImmediatelyWhenDeadlinePassed(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	key := "user:u1:exam:e1:deadline"

	past := time.Now().Add(-time.Minute).UnixMilli()
	if err := kv.Set(ctx, key, strconv.FormatInt(past, 10)); err != nil {
		t.Fatalf("seed deadline: %v", err)
	}

	expired := make(chan struct{})
	c, err := NewClock(ctx, kv, key, time.Hour,
		nil,
		func() { close(expired) },
		zerolog.Nop(),
		WithInterval(time.Hour),
	)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Run()
	defer c.Stop()

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("resumed session past its deadline did not expire on start")
	}
}

func TestClockStopKeepsDeadline(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	key := "user:u1:exam:e1:deadline"

	c, err := NewClock(ctx, kv, key, time.Hour, nil, nil, zerolog.Nop(), WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Run()

	c.Stop()
	c.Stop() // idempotent

	if _, err := kv.Get(ctx, key); err != nil {
		t.Fatalf("Stop deleted the deadline: %v", err)
	}
}

func TestClockRecoversFromCorruptDeadline(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	key := "user:u1:exam:e1:deadline"

	if err := kv.Set(ctx, key, "not-a-number"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c, err := NewClock(ctx, kv, key, time.Hour, nil, nil, zerolog.Nop(), WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Run()
	defer c.Stop()

	if got := c.Remaining(); got < 3590 || got > 3600 {
		t.Fatalf("recomputed Remaining = %d, want ~3600", got)
	}
	raw, err := kv.Get(ctx, key)
	if err != nil {
		t.Fatalf("recomputed deadline not persisted: %v", err)
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
		t.Fatalf("re-persisted deadline still corrupt: %q", raw)
	}
}
