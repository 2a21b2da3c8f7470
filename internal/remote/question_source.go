package remote

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// QuestionSource fetches the delimited tabular question document for an
// exam. Any failure here is recoverable: the loader falls back to the
// bundled pool.
type QuestionSource struct {
	http *http.Client
	log  zerolog.Logger
}

// NewQuestionSource creates a QuestionSource with the given fetch timeout.
func NewQuestionSource(timeout time.Duration, log zerolog.Logger) *QuestionSource {
	return &QuestionSource{
		http: &http.Client{Timeout: timeout},
		log:  log.With().Str("component", "question_source").Logger(),
	}
}

// Fetch GETs sourceURL and decodes it as CSV rows (header included).
func (s *QuestionSource) Fetch(ctx context.Context, sourceURL string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch question source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: resp.Status}
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1 // Rows are validated by the loader, not here.

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode question document: %w", err)
	}
	return rows, nil
}
