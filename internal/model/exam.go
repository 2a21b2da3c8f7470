package model

// ExamCategory distinguishes free practice runs from scored certifications.
type ExamCategory string

const (
	ExamCategoryPractice      ExamCategory = "PRACTICE"
	ExamCategoryCertification ExamCategory = "CERTIFICATION"
)

// ExamDefinition is the immutable descriptor of an exam as resolved by the
// catalog collaborator. The engine never mutates it.
type ExamDefinition struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Practice        bool    `json:"practice"`
	QuestionCount   int     `json:"question_count"`
	DurationMinutes int     `json:"duration_minutes"`
	PassScore       float64 `json:"pass_score"`
	SourceURL       string  `json:"source_url"`
}

// Category maps the practice flag to its category.
func (e ExamDefinition) Category() ExamCategory {
	if e.Practice {
		return ExamCategoryPractice
	}
	return ExamCategoryCertification
}

// StartSessionRequest carries the exam descriptor from the caller, which
// owns catalog resolution.
type StartSessionRequest struct {
	Name            string  `json:"name" binding:"required,min=1,max=255"`
	Practice        bool    `json:"practice"`
	QuestionCount   int     `json:"question_count" binding:"required,min=1,max=500"`
	DurationMinutes int     `json:"duration_minutes" binding:"required,min=1,max=480"`
	PassScore       float64 `json:"pass_score" binding:"min=0,max=100"`
	SourceURL       string  `json:"source_url" binding:"omitempty,url"`
}

// SelectAnswerRequest records one option choice for a question.
// OptionIndex is a pointer so 0 survives required-field validation.
type SelectAnswerRequest struct {
	QuestionID  int  `json:"question_id" binding:"required,min=1"`
	OptionIndex *int `json:"option_index" binding:"required,min=0"`
	Advance     bool `json:"advance"`
}

// NavigateRequest moves the current question pointer.
type NavigateRequest struct {
	Action string `json:"action" binding:"required,oneof=next previous jump"`
	Index  int    `json:"index" binding:"min=0"`
}

// SubmitRequest finishes the session. ConfirmIncomplete acknowledges the
// unanswered-question warning on a manual submit.
type SubmitRequest struct {
	ConfirmIncomplete bool `json:"confirm_incomplete"`
}
