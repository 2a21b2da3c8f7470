package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RemoteResultStore mirrors finished results off the device. Best-effort
// by contract; the local store stays authoritative.
type RemoteResultStore interface {
	Submit(ctx context.Context, token string, result *model.TestResult) error
}

// SubmissionService converts a finished session into a TestResult, commits
// it synchronously to the durable local store, then mirrors it to the
// remote store off the critical path.
type SubmissionService struct {
	kv          store.KV
	results     RemoteResultStore
	syncTimeout time.Duration
	log         zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService creates a SubmissionService.
func NewSubmissionService(kv store.KV, results RemoteResultStore, syncTimeout time.Duration, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		kv:          kv,
		results:     results,
		syncTimeout: syncTimeout,
		log:         log.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

// Submit builds and persists the TestResult. The local write completes
// (or fails the call) before the function returns; the remote mirror is
// dispatched fire-and-forget and reports only through notify. A result
// identity is generated fresh per call; callers serialize duplicate
// submissions.
func (s *SubmissionService) Submit(
	ctx context.Context,
	exam model.ExamDefinition,
	user model.User,
	token string,
	questions []model.Question,
	entries []model.AnswerEntry,
	auto bool,
	notify func(ok bool, message string),
) (*model.TestResult, error) {
	score, correct := Score(questions, entries)

	result := &model.TestResult{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		ExamID:         exam.ID,
		Answers:        entries,
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: len(questions),
		CreatedAt:      s.now(),
		Review:         buildReview(questions, entries),
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	// Durability ordering: the local commit must succeed before anything
	// else happens, and its failure aborts the submission.
	key := config.StoreKey.UserResultsKey(user.ID)
	if err := s.kv.HSet(ctx, key, result.ID, string(raw)); err != nil {
		return nil, fmt.Errorf("persist result locally: %w", err)
	}

	s.log.Info().
		Str("result_id", result.ID).
		Str("exam_id", exam.ID).
		Str("user_id", user.ID).
		Float64("score", score).
		Bool("auto", auto).
		Msg("Result committed locally")

	go s.mirror(token, result, notify)

	return result, nil
}

// mirror pushes the result to the remote store with its own timeout,
// detached from the submission caller. Failure is logged and reported
// through notify only, never rolled back and never raised.
func (s *SubmissionService) mirror(token string, result *model.TestResult, notify func(ok bool, message string)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
	defer cancel()

	if err := s.results.Submit(ctx, token, result); err != nil {
		s.log.Warn().Err(err).Str("result_id", result.ID).Msg("Remote result sync failed, local copy is authoritative")
		if notify != nil {
			notify(false, fmt.Sprintf("result saved on this device, but syncing it failed: %v", err))
		}
		return
	}

	s.log.Debug().Str("result_id", result.ID).Msg("Result mirrored to remote store")
	if notify != nil {
		notify(true, "result synced")
	}
}

// Score computes the percentage score and correct count for a ledger
// against a question set. A question is correct iff an entry exists and
// its 0-based index equals CorrectOption-1. Rounded to 2 decimals; an
// empty set scores 0.
func Score(questions []model.Question, entries []model.AnswerEntry) (float64, int) {
	if len(questions) == 0 {
		return 0, 0
	}

	chosen := make(map[int]int, len(entries))
	for _, e := range entries {
		chosen[e.QuestionID] = e.OptionIndex
	}

	correct := 0
	for _, q := range questions {
		if idx, ok := chosen[q.ID]; ok && idx == q.CorrectOption-1 {
			correct++
		}
	}

	score := math.Round(float64(correct)/float64(len(questions))*100*100) / 100
	return score, correct
}

// buildReview records, for every question, the candidate's choice (or the
// unanswered sentinel) and the correct 0-based index, so the review can
// be rendered regardless of pass/fail.
func buildReview(questions []model.Question, entries []model.AnswerEntry) []model.ReviewEntry {
	chosen := make(map[int]int, len(entries))
	for _, e := range entries {
		chosen[e.QuestionID] = e.OptionIndex
	}

	review := make([]model.ReviewEntry, len(questions))
	for i, q := range questions {
		userAnswer := model.UnansweredSentinel
		if idx, ok := chosen[q.ID]; ok {
			userAnswer = idx
		}
		review[i] = model.ReviewEntry{
			QuestionID:    q.ID,
			Prompt:        q.Prompt,
			Options:       q.Options,
			UserAnswer:    userAnswer,
			CorrectAnswer: q.CorrectOption - 1,
		}
	}
	return review
}
