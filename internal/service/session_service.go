package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/session"
	"github.com/examgate/examgate-backend/internal/store"
	"github.com/rs/zerolog"
)

// DeniedError is returned by StartSession when the attempt governor
// refuses the session.
type DeniedError struct {
	Reason DenialReason
}

func (e *DeniedError) Error() string {
	return "session start denied: " + string(e.Reason)
}

// ResultHistorySource fetches a user's remote result history.
type ResultHistorySource interface {
	FetchAll(ctx context.Context, token, userID string) ([]model.TestResult, error)
}

// SessionService orchestrates the session lifecycle: governor gate →
// question load → clock start, plus the registry of active engines. One
// engine per (examID, userID); last start wins and closes its predecessor.
type SessionService struct {
	governor  *AttemptGovernor
	loader    *QuestionLoader
	submitter *SubmissionService
	kv        store.KV
	history   ResultHistorySource
	accounts  AttemptUsage
	log       zerolog.Logger
	clockOpts []session.ClockOption

	mu     sync.Mutex
	active map[string]*session.Engine
}

// NewSessionService creates a SessionService.
func NewSessionService(
	governor *AttemptGovernor,
	loader *QuestionLoader,
	submitter *SubmissionService,
	kv store.KV,
	history ResultHistorySource,
	accounts AttemptUsage,
	log zerolog.Logger,
	clockOpts ...session.ClockOption,
) *SessionService {
	return &SessionService{
		governor:  governor,
		loader:    loader,
		submitter: submitter,
		kv:        kv,
		history:   history,
		accounts:  accounts,
		log:       log.With().Str("component", "session_service").Logger(),
		clockOpts: clockOpts,
		active:    make(map[string]*session.Engine),
	}
}

func registryKey(examID, userID string) string {
	return userID + "|" + examID
}

// CheckEligibility runs the governor without side effects.
func (s *SessionService) CheckEligibility(ctx context.Context, token string, exam model.ExamDefinition, user model.User) (Decision, error) {
	history, err := s.loadHistory(ctx, token, user)
	if err != nil {
		return Decision{}, err
	}
	return s.governor.Authorize(ctx, token, exam, user, history)
}

// StartSession gates, loads questions and starts the clock. Returns the
// running engine and whether the fallback question pool was used.
// Starting again for the same (exam, user) closes the previous engine but
// reuses the persisted deadline, so a reload cannot extend time.
func (s *SessionService) StartSession(ctx context.Context, token string, exam model.ExamDefinition, user model.User) (*session.Engine, bool, error) {
	history, err := s.loadHistory(ctx, token, user)
	if err != nil {
		return nil, false, err
	}

	decision, err := s.governor.Authorize(ctx, token, exam, user, history)
	if err != nil {
		return nil, false, fmt.Errorf("authorize attempt: %w", err)
	}
	if !decision.Allowed {
		return nil, false, &DeniedError{Reason: decision.Reason}
	}

	// Free practice attempts are consumed up front and not refunded if
	// the user abandons the session.
	if exam.Practice && !user.Subscribed {
		if err := s.accounts.ConsumePracticeAttempt(ctx, token, user.ID); err != nil {
			return nil, false, fmt.Errorf("consume practice attempt: %w", err)
		}
	}

	questions, fromFallback := s.loader.Load(ctx, exam)

	engine := session.NewEngine(
		exam,
		user,
		token,
		questions,
		s.kv,
		config.StoreKey.SessionDeadlineKey(exam.ID, user.ID),
		s.submitter,
		s.log,
		s.clockOpts...,
	)

	key := registryKey(exam.ID, user.ID)
	s.mu.Lock()
	if prev, ok := s.active[key]; ok {
		prev.Close()
	}
	s.active[key] = engine
	s.mu.Unlock()

	if err := engine.Start(ctx); err != nil {
		s.mu.Lock()
		if s.active[key] == engine {
			delete(s.active, key)
		}
		s.mu.Unlock()
		engine.Close()
		return nil, false, fmt.Errorf("start session clock: %w", err)
	}

	return engine, fromFallback, nil
}

// Get returns the active engine for (examID, userID), if any.
func (s *SessionService) Get(examID, userID string) (*session.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	engine, ok := s.active[registryKey(examID, userID)]
	return engine, ok
}

// Detach cancels the tick of the active engine without touching the
// persisted deadline, so the session resumes with the same deadline on
// the next start. No-op when no engine is active.
func (s *SessionService) Detach(examID, userID string) {
	key := registryKey(examID, userID)
	s.mu.Lock()
	engine, ok := s.active[key]
	if ok {
		delete(s.active, key)
	}
	s.mu.Unlock()

	if ok {
		engine.Close()
	}
}

// CloseAll closes every active engine. Called on shutdown.
func (s *SessionService) CloseAll() {
	s.mu.Lock()
	engines := make([]*session.Engine, 0, len(s.active))
	for _, e := range s.active {
		engines = append(engines, e)
	}
	s.active = make(map[string]*session.Engine)
	s.mu.Unlock()

	for _, e := range engines {
		e.Close()
	}
}

// loadHistory merges the authoritative local result collection with a
// best-effort remote fetch. A remote failure degrades to local-only with
// a warning; a local read failure is fatal because the governor cannot
// decide without it.
func (s *SessionService) loadHistory(ctx context.Context, token string, user model.User) ([]model.TestResult, error) {
	raw, err := s.kv.HGetAll(ctx, config.StoreKey.UserResultsKey(user.ID))
	if err != nil {
		return nil, fmt.Errorf("read local results: %w", err)
	}

	results := make([]model.TestResult, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for id, blob := range raw {
		var r model.TestResult
		if err := json.Unmarshal([]byte(blob), &r); err != nil {
			s.log.Warn().Err(err).Str("result_id", id).Msg("Skipping corrupt local result")
			continue
		}
		results = append(results, r)
		seen[r.ID] = struct{}{}
	}

	remote, err := s.history.FetchAll(ctx, token, user.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("Remote history unavailable, using local results only")
		return results, nil
	}

	for _, r := range remote {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}
