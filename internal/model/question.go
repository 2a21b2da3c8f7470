package model

// Question is a single loaded exam question. Immutable once loaded.
// CorrectOption is 1-based into Options; it never leaves the server.
type Question struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

// QuestionForCandidate is a question with the answer key stripped, safe to
// send to the test taker.
type QuestionForCandidate struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// ForCandidate strips the answer key.
func (q Question) ForCandidate() QuestionForCandidate {
	return QuestionForCandidate{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
}
