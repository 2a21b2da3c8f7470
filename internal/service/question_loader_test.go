package service

import (
	"context"
	"errors"
	"testing"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/rs/zerolog"
)

// stubFetcher fakes the remote question source.
type stubFetcher struct {
	rows [][]string
	err  error
}

func (s *stubFetcher) Fetch(_ context.Context, _ string) ([][]string, error) {
	return s.rows, s.err
}

func loaderExam(count int) model.ExamDefinition {
	return model.ExamDefinition{ID: "exam-1", QuestionCount: count, SourceURL: "https://example.com/questions.csv"}
}

func TestLoadParsesSourceRows(t *testing.T) {
	fetcher := &stubFetcher{rows: [][]string{
		{"question", "options", "answer"},
		{"What is 2+2?", "3|4|5", "4"},
		{"Pick the vowel", "b | a | c", "a"},
	}}
	loader := NewQuestionLoader(fetcher, zerolog.Nop())

	questions, fromFallback := loader.Load(context.Background(), loaderExam(10))
	if fromFallback {
		t.Fatal("valid source reported as fallback")
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}

	byPrompt := make(map[string]model.Question, len(questions))
	seenIDs := make(map[int]bool, len(questions))
	for _, q := range questions {
		if seenIDs[q.ID] {
			t.Fatalf("duplicate question ID %d", q.ID)
		}
		seenIDs[q.ID] = true
		byPrompt[q.Prompt] = q
	}

	sum := byPrompt["What is 2+2?"]
	if len(sum.Options) != 3 || sum.Options[0] != "3" || sum.Options[1] != "4" || sum.Options[2] != "5" {
		t.Fatalf("options = %v", sum.Options)
	}
	if sum.CorrectOption != 2 {
		t.Fatalf("CorrectOption = %d, want 2 (1-based)", sum.CorrectOption)
	}

	// Options are trimmed before matching.
	vowel := byPrompt["Pick the vowel"]
	if vowel.CorrectOption != 2 || vowel.Options[1] != "a" {
		t.Fatalf("trimmed options = %v, correct = %d", vowel.Options, vowel.CorrectOption)
	}
}

func TestLoadSkipsBadRows(t *testing.T) {
	fetcher := &stubFetcher{rows: [][]string{
		{"prompt", "options", "correct_answer"},
		{"no options here", "", "x"},
		{"answer matches nothing", "a|b", "z"},
		{"short row"},
		{"keeper", "yes|no", "yes"},
	}}
	loader := NewQuestionLoader(fetcher, zerolog.Nop())

	questions, fromFallback := loader.Load(context.Background(), loaderExam(10))
	if fromFallback {
		t.Fatal("bad rows forced the fallback even though one row is valid")
	}
	if len(questions) != 1 || questions[0].Prompt != "keeper" {
		t.Fatalf("questions = %+v, want only the keeper row", questions)
	}
}

func TestLoadTruncatesToQuestionCount(t *testing.T) {
	rows := [][]string{{"question", "options", "answer"}}
	for i := 0; i < 30; i++ {
		rows = append(rows, []string{"q", "a|b", "a"})
	}
	loader := NewQuestionLoader(&stubFetcher{rows: rows}, zerolog.Nop())

	questions, _ := loader.Load(context.Background(), loaderExam(5))
	if len(questions) != 5 {
		t.Fatalf("got %d questions, want 5", len(questions))
	}
}

func TestLoadFallsBackOnFetchError(t *testing.T) {
	loader := NewQuestionLoader(&stubFetcher{err: errors.New("http 500")}, zerolog.Nop())

	questions, fromFallback := loader.Load(context.Background(), loaderExam(10))
	if !fromFallback {
		t.Fatal("fetch failure did not use the fallback pool")
	}
	if len(questions) != 10 {
		t.Fatalf("got %d fallback questions, want 10", len(questions))
	}
	// Fallback identities are renumbered 1..n after shuffling.
	seen := make(map[int]bool, len(questions))
	for _, q := range questions {
		seen[q.ID] = true
	}
	for i := 1; i <= 10; i++ {
		if !seen[i] {
			t.Fatalf("fallback IDs not dense 1..10: %v", seen)
		}
	}
}

func TestLoadFallsBackOnMalformedHeader(t *testing.T) {
	fetcher := &stubFetcher{rows: [][]string{
		{"title", "choices", "solution"},
		{"q", "a|b", "a"},
	}}
	loader := NewQuestionLoader(fetcher, zerolog.Nop())

	questions, fromFallback := loader.Load(context.Background(), loaderExam(3))
	if !fromFallback {
		t.Fatal("unrecognized header did not use the fallback pool")
	}
	if len(questions) != 3 {
		t.Fatalf("got %d fallback questions, want 3", len(questions))
	}
}

func TestLoadFallsBackWithoutSourceURL(t *testing.T) {
	loader := NewQuestionLoader(&stubFetcher{}, zerolog.Nop())
	exam := model.ExamDefinition{ID: "exam-1", QuestionCount: 4}

	questions, fromFallback := loader.Load(context.Background(), exam)
	if !fromFallback || len(questions) != 4 {
		t.Fatalf("fromFallback=%v len=%d, want fallback with 4 questions", fromFallback, len(questions))
	}
}
