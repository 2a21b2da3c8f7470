package session

import (
	"errors"
	"testing"

	"github.com/examgate/examgate-backend/internal/model"
)

func ledgerQuestions() []model.Question {
	return []model.Question{
		{ID: 1, Prompt: "a", Options: []string{"x", "y", "z"}, CorrectOption: 1},
		{ID: 2, Prompt: "b", Options: []string{"x", "y"}, CorrectOption: 2},
	}
}

func TestLedgerSelectValidation(t *testing.T) {
	l := NewLedger(ledgerQuestions())

	if err := l.Select(99, 0); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("unknown question: got %v", err)
	}
	if err := l.Select(2, 2); !errors.Is(err, ErrOptionOutOfRange) {
		t.Fatalf("option past range: got %v", err)
	}
	if err := l.Select(2, -1); !errors.Is(err, ErrOptionOutOfRange) {
		t.Fatalf("negative option: got %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("rejected selects changed the ledger, Len = %d", l.Len())
	}
}

func TestLedgerOverwriteAndSnapshot(t *testing.T) {
	l := NewLedger(ledgerQuestions())

	if err := l.Select(1, 2); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := l.Select(1, 0); err != nil {
		t.Fatalf("re-select: %v", err)
	}
	if err := l.Select(2, 1); err != nil {
		t.Fatalf("select: %v", err)
	}

	if idx, ok := l.Get(1); !ok || idx != 0 {
		t.Fatalf("Get(1) = %d,%v, want 0,true", idx, ok)
	}

	entries := l.Entries()
	want := []model.AnswerEntry{{QuestionID: 1, OptionIndex: 0}, {QuestionID: 2, OptionIndex: 1}}
	if len(entries) != len(want) {
		t.Fatalf("Entries len = %d, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("Entries[%d] = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestLedgerFreeze(t *testing.T) {
	l := NewLedger(ledgerQuestions())
	if err := l.Select(1, 1); err != nil {
		t.Fatalf("select: %v", err)
	}

	l.Freeze()

	if err := l.Select(2, 0); !errors.Is(err, ErrLedgerFrozen) {
		t.Fatalf("select after freeze: got %v", err)
	}
	if idx, ok := l.Get(1); !ok || idx != 1 {
		t.Fatal("freeze lost an existing entry")
	}
}
