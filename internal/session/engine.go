package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/store"
	"github.com/rs/zerolog"
)

// Engine errors.
var (
	ErrAlreadySubmitted     = errors.New("session has already been submitted")
	ErrConfirmationRequired = errors.New("unanswered questions remain, confirmation required")
)

// Submitter finalizes a session into a durable TestResult. The notify
// callback reports the best-effort remote mirror outcome and is never
// invoked before the local commit succeeded.
type Submitter interface {
	Submit(
		ctx context.Context,
		exam model.ExamDefinition,
		user model.User,
		token string,
		questions []model.Question,
		entries []model.AnswerEntry,
		auto bool,
		notify func(ok bool, message string),
	) (*model.TestResult, error)
}

// Engine is the runtime of one active session: the loaded question set,
// the answer ledger, the navigation pointer and the clock, plus the event
// channel the consumer renders from. One Engine per (examID, userID);
// starting a replacement closes the predecessor.
type Engine struct {
	exam        model.ExamDefinition
	user        model.User
	token       string
	questions   []model.Question
	ledger      *Ledger
	nav         *Navigation
	kv          store.KV
	deadlineKey string
	submitter   Submitter
	log         zerolog.Logger

	clock     *Clock
	clockOpts []ClockOption

	mu        sync.Mutex
	submitted bool
	closed    bool
	events    chan Event
}

// NewEngine builds an Engine; call Start to resolve the deadline and begin
// ticking.
func NewEngine(
	exam model.ExamDefinition,
	user model.User,
	token string,
	questions []model.Question,
	kv store.KV,
	deadlineKey string,
	submitter Submitter,
	log zerolog.Logger,
	clockOpts ...ClockOption,
) *Engine {
	e := &Engine{
		exam:        exam,
		user:        user,
		token:       token,
		questions:   questions,
		ledger:      NewLedger(questions),
		nav:         NewNavigation(len(questions)),
		kv:          kv,
		deadlineKey: deadlineKey,
		submitter:   submitter,
		log: log.With().
			Str("component", "session_engine").
			Str("exam_id", exam.ID).
			Str("user_id", user.ID).
			Logger(),
		clockOpts: clockOpts,
		events:    make(chan Event, 64),
	}
	return e
}

// Start resolves the persisted deadline (or creates one) and starts the
// tick. The expiry callback reads the live ledger at the moment it fires,
// not a snapshot captured here.
func (e *Engine) Start(ctx context.Context) error {
	duration := time.Duration(e.exam.DurationMinutes) * time.Minute

	clock, err := NewClock(ctx, e.kv, e.deadlineKey, duration,
		func(secs int64) {
			e.publish(Event{Type: EventTick, SecondsRemaining: secs})
		},
		e.autoSubmit,
		e.log,
		e.clockOpts...,
	)
	if err != nil {
		return err
	}

	// The clock must be visible before the tick goroutine exists: a resumed
	// session past its deadline expires on the very first run and the expiry
	// path reads e.clock.
	e.mu.Lock()
	e.clock = clock
	e.mu.Unlock()

	clock.Run()
	return nil
}

// SecondsRemaining returns the clamped remaining time.
func (e *Engine) SecondsRemaining() int64 {
	e.mu.Lock()
	clock := e.clock
	e.mu.Unlock()
	return clock.Remaining()
}

// Questions returns the loaded set with answer keys stripped.
func (e *Engine) Questions() []model.QuestionForCandidate {
	out := make([]model.QuestionForCandidate, len(e.questions))
	for i, q := range e.questions {
		out[i] = q.ForCandidate()
	}
	return out
}

// SelectAnswer writes one ledger entry.
func (e *Engine) SelectAnswer(questionID, optionIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.submitted {
		return ErrAlreadySubmitted
	}
	return e.ledger.Select(questionID, optionIndex)
}

// SelectAndAdvance writes one ledger entry and advances to the next
// question unless the last one is presented.
func (e *Engine) SelectAndAdvance(questionID, optionIndex int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.submitted {
		return e.nav.Current(), ErrAlreadySubmitted
	}
	if err := e.ledger.Select(questionID, optionIndex); err != nil {
		return e.nav.Current(), err
	}
	if !e.nav.AtLast() {
		return e.nav.Next(), nil
	}
	return e.nav.Current(), nil
}

// Next advances the navigation pointer, clamped.
func (e *Engine) Next() int { return e.nav.Next() }

// Previous steps the navigation pointer back, clamped.
func (e *Engine) Previous() int { return e.nav.Previous() }

// JumpTo moves the navigation pointer to index.
func (e *Engine) JumpTo(index int) error { return e.nav.JumpTo(index) }

// CurrentIndex returns the presented question index.
func (e *Engine) CurrentIndex() int { return e.nav.Current() }

// Answers returns the current ledger for presentation.
func (e *Engine) Answers() map[int]int { return e.ledger.AsMap() }

// Submitted reports whether a submission already completed.
func (e *Engine) Submitted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitted
}

// Submit finalizes the session. A manual submit (auto=false) with
// unanswered questions requires confirmed=true; declining aborts with no
// side effects. The submitted flag flips before scoring so a concurrent
// duplicate call fails with ErrAlreadySubmitted, and rolls back only when
// the local commit failed, since the session must remain submittable.
func (e *Engine) Submit(ctx context.Context, auto, confirmed bool) (*model.TestResult, error) {
	e.mu.Lock()
	if e.submitted {
		e.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	if !auto && !confirmed && e.ledger.Len() < len(e.questions) {
		e.mu.Unlock()
		return nil, ErrConfirmationRequired
	}
	e.submitted = true
	entries := e.ledger.Entries()
	clock := e.clock
	e.mu.Unlock()

	result, err := e.submitter.Submit(ctx, e.exam, e.user, e.token, e.questions, entries, auto, e.notifySync)
	if err != nil {
		e.mu.Lock()
		e.submitted = false
		e.mu.Unlock()
		return nil, err
	}

	// Local commit is durable: cancel the tick, drop the deadline and
	// freeze the ledger. The expiry path already deleted the key; Delete
	// is idempotent.
	e.ledger.Freeze()
	clock.Stop()
	if err := e.kv.Delete(ctx, e.deadlineKey); err != nil {
		e.log.Warn().Err(err).Msg("Failed to delete session deadline")
	}

	evType := EventSubmitted
	if auto {
		evType = EventExpired
	}
	e.publish(Event{Type: evType, Result: result})

	return result, nil
}

// autoSubmit is the clock expiry callback. It scores whatever the ledger
// holds at the instant of expiry; confirmation is never requested.
func (e *Engine) autoSubmit() {
	e.publish(Event{Type: EventTick, SecondsRemaining: 0})
	if _, err := e.Submit(context.Background(), true, true); err != nil {
		if !errors.Is(err, ErrAlreadySubmitted) {
			e.log.Error().Err(err).Msg("Auto-submit on expiry failed")
			e.publish(Event{Type: EventSyncStatus, SyncOK: false, Message: "automatic submission failed, result not saved"})
		}
	}
}

// notifySync relays the detached remote mirror outcome to the consumer.
func (e *Engine) notifySync(ok bool, message string) {
	e.publish(Event{Type: EventSyncStatus, SyncOK: ok, Message: message})
}

// Events is the push channel consumed by the websocket stream.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// publish drops events when the consumer lags or the engine closed;
// ticks are periodic and everything else is also surfaced in the HTTP
// response, so losing one is harmless.
func (e *Engine) publish(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.events <- ev:
	default:
	}
}

// Close cancels the tick without touching the persisted deadline, so the
// session can resume with the same deadline after a reload. Idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.clock != nil {
		e.clock.Stop()
	}
	close(e.events)
}
