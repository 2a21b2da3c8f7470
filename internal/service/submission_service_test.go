package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/store"
	"github.com/rs/zerolog"
)

// stubRemote fakes the remote result store.
type stubRemote struct {
	mu      sync.Mutex
	err     error
	results []*model.TestResult
}

func (s *stubRemote) Submit(_ context.Context, _ string, result *model.TestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.results = append(s.results, result)
	return nil
}

func scoringQuestions() []model.Question {
	return []model.Question{
		{ID: 1, Prompt: "a", Options: []string{"x", "y"}, CorrectOption: 1},
		{ID: 2, Prompt: "b", Options: []string{"x", "y"}, CorrectOption: 2},
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		questions []model.Question
		entries   []model.AnswerEntry
		score     float64
		correct   int
	}{
		{
			name:      "one of two correct",
			questions: scoringQuestions(),
			entries: []model.AnswerEntry{
				{QuestionID: 1, OptionIndex: 0},
				{QuestionID: 2, OptionIndex: 0},
			},
			score:   50,
			correct: 1,
		},
		{
			name:      "all correct",
			questions: scoringQuestions(),
			entries: []model.AnswerEntry{
				{QuestionID: 1, OptionIndex: 0},
				{QuestionID: 2, OptionIndex: 1},
			},
			score:   100,
			correct: 2,
		},
		{
			name:      "unanswered questions count against the score",
			questions: scoringQuestions(),
			entries:   []model.AnswerEntry{{QuestionID: 1, OptionIndex: 0}},
			score:     50,
			correct:   1,
		},
		{
			name:      "empty question set scores zero",
			questions: nil,
			entries:   nil,
			score:     0,
			correct:   0,
		},
		{
			name: "thirds round to two decimals",
			questions: []model.Question{
				{ID: 1, Options: []string{"x", "y"}, CorrectOption: 1},
				{ID: 2, Options: []string{"x", "y"}, CorrectOption: 1},
				{ID: 3, Options: []string{"x", "y"}, CorrectOption: 1},
			},
			entries: []model.AnswerEntry{{QuestionID: 1, OptionIndex: 0}},
			score:   33.33,
			correct: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, correct := Score(tt.questions, tt.entries)
			if score != tt.score || correct != tt.correct {
				t.Fatalf("Score = %v,%d, want %v,%d", score, correct, tt.score, tt.correct)
			}
		})
	}
}

func TestSubmitCommitsLocallyAndMirrors(t *testing.T) {
	kv := store.NewMemoryStore()
	remote := &stubRemote{}
	svc := NewSubmissionService(kv, remote, time.Second, zerolog.Nop())

	synced := make(chan bool, 1)
	notify := func(ok bool, _ string) { synced <- ok }

	exam := model.ExamDefinition{ID: "exam-1"}
	user := model.User{ID: "user-1"}
	entries := []model.AnswerEntry{{QuestionID: 1, OptionIndex: 0}}

	result, err := svc.Submit(context.Background(), exam, user, "token", scoringQuestions(), entries, false, notify)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 50 || result.CorrectCount != 1 || result.TotalQuestions != 2 {
		t.Fatalf("result = %+v", result)
	}

	// Review covers every question; unanswered ones carry the sentinel.
	if len(result.Review) != 2 {
		t.Fatalf("review len = %d, want 2", len(result.Review))
	}
	if result.Review[0].UserAnswer != 0 || result.Review[0].CorrectAnswer != 0 {
		t.Fatalf("review[0] = %+v", result.Review[0])
	}
	if result.Review[1].UserAnswer != model.UnansweredSentinel {
		t.Fatalf("review[1].UserAnswer = %d, want sentinel", result.Review[1].UserAnswer)
	}

	// Locally durable under the user's results hash.
	stored, err := kv.HGetAll(context.Background(), config.StoreKey.UserResultsKey(user.ID))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	blob, ok := stored[result.ID]
	if !ok {
		t.Fatalf("result %s not in local store", result.ID)
	}
	var roundtrip model.TestResult
	if err := json.Unmarshal([]byte(blob), &roundtrip); err != nil {
		t.Fatalf("stored blob not valid JSON: %v", err)
	}

	select {
	case ok := <-synced:
		if !ok {
			t.Fatal("mirror reported failure with a healthy remote")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mirror never reported")
	}
}

func TestSubmitSurvivesRemoteFailure(t *testing.T) {
	kv := store.NewMemoryStore()
	remote := &stubRemote{err: errors.New("remote down")}
	svc := NewSubmissionService(kv, remote, time.Second, zerolog.Nop())

	synced := make(chan bool, 1)
	notify := func(ok bool, _ string) { synced <- ok }

	result, err := svc.Submit(
		context.Background(),
		model.ExamDefinition{ID: "exam-1"},
		model.User{ID: "user-1"},
		"token",
		scoringQuestions(),
		nil,
		true,
		notify,
	)
	if err != nil {
		t.Fatalf("submit must succeed on local commit alone: %v", err)
	}

	select {
	case ok := <-synced:
		if ok {
			t.Fatal("mirror reported success with a failing remote")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("failed mirror never reported")
	}

	// The local copy stays authoritative.
	stored, err := kv.HGetAll(context.Background(), config.StoreKey.UserResultsKey("user-1"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if _, ok := stored[result.ID]; !ok {
		t.Fatal("remote failure lost the local result")
	}
}

func TestSubmitFailsWhenLocalStoreFails(t *testing.T) {
	remote := &stubRemote{}
	svc := NewSubmissionService(failingKV{}, remote, time.Second, zerolog.Nop())

	notified := make(chan bool, 1)
	_, err := svc.Submit(
		context.Background(),
		model.ExamDefinition{ID: "exam-1"},
		model.User{ID: "user-1"},
		"token",
		scoringQuestions(),
		nil,
		false,
		func(ok bool, _ string) { notified <- ok },
	)
	if err == nil {
		t.Fatal("submit succeeded despite local store failure")
	}

	// No mirror may be dispatched when the local commit failed.
	select {
	case <-notified:
		t.Fatal("mirror ran after a failed local commit")
	case <-time.After(100 * time.Millisecond):
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if len(remote.results) != 0 {
		t.Fatal("remote received a result that was never locally durable")
	}
}

// failingKV rejects every write.
type failingKV struct{}

var errKVDown = errors.New("store down")

func (failingKV) Get(context.Context, string) (string, error) { return "", errKVDown }
func (failingKV) Set(context.Context, string, string) error   { return errKVDown }
func (failingKV) Delete(context.Context, string) error        { return errKVDown }
func (failingKV) HSet(context.Context, string, string, string) error { return errKVDown }
func (failingKV) HGetAll(context.Context, string) (map[string]string, error) {
	return nil, errKVDown
}
