package service

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"math/rand"
	"strings"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/rs/zerolog"
)

// ErrMalformedSource marks a question document whose header row lacks the
// required prompt/options/answer columns. Recovered by the fallback pool,
// never surfaced to the session caller.
var ErrMalformedSource = errors.New("question document is missing required header columns")

// optionDelimiter separates option strings within one CSV cell.
const optionDelimiter = "|"

// fallbackPool is the bundled question pool used when the remote source
// is unavailable or yields nothing usable.
//
//go:embed fallback_questions.csv
var fallbackPool []byte

// QuestionFetcher retrieves the raw CSV rows of a question document.
type QuestionFetcher interface {
	Fetch(ctx context.Context, sourceURL string) ([][]string, error)
}

// QuestionLoader acquires the ordered question batch for an exam. The
// primary path fetches and parses the exam's source document; any failure
// falls through to the bundled pool, so Load never fails.
type QuestionLoader struct {
	source QuestionFetcher
	log    zerolog.Logger
}

// NewQuestionLoader creates a QuestionLoader.
func NewQuestionLoader(source QuestionFetcher, log zerolog.Logger) *QuestionLoader {
	return &QuestionLoader{
		source: source,
		log:    log.With().Str("component", "question_loader").Logger(),
	}
}

// Load returns at most exam.QuestionCount shuffled questions with unique
// identities, and whether the bundled fallback pool was used.
func (l *QuestionLoader) Load(ctx context.Context, exam model.ExamDefinition) ([]model.Question, bool) {
	if exam.SourceURL != "" {
		rows, err := l.source.Fetch(ctx, exam.SourceURL)
		if err == nil {
			questions, parseErr := l.parseRows(rows)
			if parseErr == nil && len(questions) > 0 {
				shuffleQuestions(questions)
				return truncate(questions, exam.QuestionCount), false
			}
			if parseErr != nil {
				l.log.Warn().Err(parseErr).Str("exam_id", exam.ID).Msg("Question document unusable, using fallback pool")
			} else {
				l.log.Warn().Str("exam_id", exam.ID).Msg("Question document has no valid rows, using fallback pool")
			}
		} else {
			l.log.Warn().Err(err).Str("exam_id", exam.ID).Msg("Question source fetch failed, using fallback pool")
		}
	} else {
		l.log.Warn().Str("exam_id", exam.ID).Msg("Exam has no source URL, using fallback pool")
	}

	return l.loadFallback(exam.QuestionCount), true
}

// parseRows converts CSV rows (header first) into Questions. Rows that
// yield no options or whose answer text matches no option are skipped.
// Identities are assigned in row order before shuffling, so they are
// unique within the returned set.
func (l *QuestionLoader) parseRows(rows [][]string) ([]model.Question, error) {
	if len(rows) == 0 {
		return nil, ErrMalformedSource
	}

	promptCol, optionsCol, answerCol := -1, -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "question", "prompt":
			promptCol = i
		case "options":
			optionsCol = i
		case "answer", "correct_answer":
			answerCol = i
		}
	}
	if promptCol < 0 || optionsCol < 0 || answerCol < 0 {
		return nil, ErrMalformedSource
	}

	width := promptCol
	if optionsCol > width {
		width = optionsCol
	}
	if answerCol > width {
		width = answerCol
	}

	questions := make([]model.Question, 0, len(rows)-1)
	for rowNum, row := range rows[1:] {
		if len(row) <= width {
			l.log.Debug().Int("row", rowNum+2).Msg("Skipping short question row")
			continue
		}

		options := splitOptions(row[optionsCol])
		if len(options) == 0 {
			l.log.Debug().Int("row", rowNum+2).Msg("Skipping question row without options")
			continue
		}

		answer := strings.TrimSpace(row[answerCol])
		correct := 0
		for i, opt := range options {
			if opt == answer {
				correct = i + 1
				break
			}
		}
		if correct == 0 {
			l.log.Debug().Int("row", rowNum+2).Str("answer", answer).Msg("Skipping question row with unmatched answer")
			continue
		}

		questions = append(questions, model.Question{
			ID:            len(questions) + 1,
			Prompt:        strings.TrimSpace(row[promptCol]),
			Options:       options,
			CorrectOption: correct,
		})
	}
	return questions, nil
}

// loadFallback parses the bundled pool, shuffles it, truncates to count
// and renumbers identities 1..n so they are dense and contiguous.
func (l *QuestionLoader) loadFallback(count int) []model.Question {
	reader := csv.NewReader(bytes.NewReader(fallbackPool))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		// The pool is compiled into the binary; this cannot happen with a
		// valid build. Return an empty usable set rather than failing.
		l.log.Error().Err(err).Msg("Bundled question pool unreadable")
		return []model.Question{}
	}

	questions, err := l.parseRows(rows)
	if err != nil {
		l.log.Error().Err(err).Msg("Bundled question pool malformed")
		return []model.Question{}
	}

	shuffleQuestions(questions)
	questions = truncate(questions, count)
	for i := range questions {
		questions[i].ID = i + 1
	}
	return questions
}

func splitOptions(cell string) []string {
	parts := strings.Split(cell, optionDelimiter)
	options := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			options = append(options, trimmed)
		}
	}
	return options
}

func shuffleQuestions(questions []model.Question) {
	rand.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
}

func truncate(questions []model.Question, count int) []model.Question {
	if count > 0 && len(questions) > count {
		return questions[:count]
	}
	return questions
}
