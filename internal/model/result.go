package model

import "time"

// UnansweredSentinel marks a question the candidate never answered in a
// review record.
const UnansweredSentinel = -1

// AnswerEntry associates a question with the candidate's 0-based option
// choice. At most one entry per question.
type AnswerEntry struct {
	QuestionID  int `json:"question_id"`
	OptionIndex int `json:"option_index"`
}

// ReviewEntry is the per-question review record built at submission so the
// front end can render a post-exam review regardless of pass/fail.
// UserAnswer and CorrectAnswer are 0-based; UserAnswer is
// UnansweredSentinel when no entry existed.
type ReviewEntry struct {
	QuestionID    int      `json:"question_id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	UserAnswer    int      `json:"user_answer"`
	CorrectAnswer int      `json:"correct_answer"`
}

// TestResult is the outcome of one completed session. Created exactly once
// per submission, immutable thereafter. Owned first by the durable local
// store, then mirrored best-effort to the remote result store.
type TestResult struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	ExamID         string        `json:"exam_id"`
	Answers        []AnswerEntry `json:"answers"`
	Score          float64       `json:"score"`
	CorrectCount   int           `json:"correct_count"`
	TotalQuestions int           `json:"total_questions"`
	CreatedAt      time.Time     `json:"created_at"`
	Review         []ReviewEntry `json:"review"`
}

// Passed reports whether the result meets the exam's pass threshold.
func (r TestResult) Passed(passScore float64) bool {
	return r.Score >= passScore
}
