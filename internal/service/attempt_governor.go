package service

import (
	"context"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/rs/zerolog"
)

// Attempt quotas.
const (
	// FreePracticeAttemptLimit is the total practice attempts a
	// non-subscribed user gets across all practice exams.
	FreePracticeAttemptLimit = 10
	// CertificationAttemptLimit caps attempts at one certification exam
	// regardless of outcome.
	CertificationAttemptLimit = 3
)

// DenialReason is the user-facing reason a session may not start.
type DenialReason string

const (
	DenialAlreadyPassed     DenialReason = "ALREADY_PASSED"
	DenialAttemptsExhausted DenialReason = "ATTEMPTS_EXHAUSTED"
	DenialPracticeQuota     DenialReason = "PRACTICE_QUOTA_EXHAUSTED"
)

// Decision is the outcome of an eligibility check.
type Decision struct {
	Allowed bool         `json:"allowed"`
	Reason  DenialReason `json:"reason,omitempty"`
}

// AttemptUsage is the external collaborator tracking the free
// practice-attempt allowance.
type AttemptUsage interface {
	PracticeAttemptsUsed(ctx context.Context, token, userID string) (int, error)
	ConsumePracticeAttempt(ctx context.Context, token, userID string) error
}

// AttemptGovernor gates session starts on attempt and pass quotas.
type AttemptGovernor struct {
	accounts AttemptUsage
	log      zerolog.Logger
}

// NewAttemptGovernor creates an AttemptGovernor.
func NewAttemptGovernor(accounts AttemptUsage, log zerolog.Logger) *AttemptGovernor {
	return &AttemptGovernor{
		accounts: accounts,
		log:      log.With().Str("component", "attempt_governor").Logger(),
	}
}

// Authorize decides whether user may start a new session of exam given
// their full result history. On denial the caller must not proceed to
// load questions.
func (g *AttemptGovernor) Authorize(ctx context.Context, token string, exam model.ExamDefinition, user model.User, history []model.TestResult) (Decision, error) {
	if exam.Practice {
		return g.authorizePractice(ctx, token, user)
	}
	return g.authorizeCertification(exam, history), nil
}

// authorizePractice applies the free-tier quota. Subscribed users are
// exempt. The used count lives with the accounts collaborator, not in the
// result history, because practice results may be pruned remotely.
func (g *AttemptGovernor) authorizePractice(ctx context.Context, token string, user model.User) (Decision, error) {
	if user.Subscribed {
		return Decision{Allowed: true}, nil
	}

	used, err := g.accounts.PracticeAttemptsUsed(ctx, token, user.ID)
	if err != nil {
		return Decision{}, err
	}
	if used >= FreePracticeAttemptLimit {
		return Decision{Reason: DenialPracticeQuota}, nil
	}
	return Decision{Allowed: true}, nil
}

// authorizeCertification blocks a retake of an already-passed exam and
// caps total attempts at the exam.
func (g *AttemptGovernor) authorizeCertification(exam model.ExamDefinition, history []model.TestResult) Decision {
	attempts := 0
	for _, r := range history {
		if r.ExamID != exam.ID {
			continue
		}
		if r.Passed(exam.PassScore) {
			return Decision{Reason: DenialAlreadyPassed}
		}
		attempts++
	}
	if attempts >= CertificationAttemptLimit {
		return Decision{Reason: DenialAttemptsExhausted}
	}
	return Decision{Allowed: true}
}
