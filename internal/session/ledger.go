package session

import (
	"errors"
	"sort"
	"sync"

	"github.com/examgate/examgate-backend/internal/model"
)

// Ledger errors.
var (
	ErrUnknownQuestion  = errors.New("question is not part of the active set")
	ErrOptionOutOfRange = errors.New("option index is out of range for this question")
	ErrLedgerFrozen     = errors.New("session is finished, answers can no longer change")
)

// Ledger is the in-memory mapping from question identity to the 0-based
// selected option. Every key is validated against the loaded question set;
// selecting again overwrites. Frozen after a successful submission.
type Ledger struct {
	mu          sync.Mutex
	entries     map[int]int
	optionCount map[int]int
	frozen      bool
}

// NewLedger creates an empty ledger validated against questions.
func NewLedger(questions []model.Question) *Ledger {
	counts := make(map[int]int, len(questions))
	for _, q := range questions {
		counts[q.ID] = len(q.Options)
	}
	return &Ledger{
		entries:     make(map[int]int),
		optionCount: counts,
	}
}

// Select records optionIndex for questionID, overwriting any prior entry.
func (l *Ledger) Select(questionID, optionIndex int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen {
		return ErrLedgerFrozen
	}
	count, ok := l.optionCount[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if optionIndex < 0 || optionIndex >= count {
		return ErrOptionOutOfRange
	}
	l.entries[questionID] = optionIndex
	return nil
}

// Get returns the selected option for questionID, if any.
func (l *Ledger) Get(questionID int) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := l.entries[questionID]
	return idx, ok
}

// Len returns the number of answered questions.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries snapshots the ledger as a list ordered by question ID.
func (l *Ledger) Entries() []model.AnswerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.AnswerEntry, 0, len(l.entries))
	for qid, idx := range l.entries {
		out = append(out, model.AnswerEntry{QuestionID: qid, OptionIndex: idx})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

// AsMap copies the ledger for read-only presentation.
func (l *Ledger) AsMap() map[int]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[int]int, len(l.entries))
	for qid, idx := range l.entries {
		out[qid] = idx
	}
	return out
}

// Freeze disables further mutation. Called once the result is durable.
func (l *Ledger) Freeze() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozen = true
}
