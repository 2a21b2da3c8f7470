package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/rs/zerolog"
)

// ResultsClient talks to the remote result store. The local store remains
// authoritative; this mirror is best-effort by contract.
type ResultsClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewResultsClient creates a ResultsClient against baseURL.
func NewResultsClient(baseURL string, timeout time.Duration, log zerolog.Logger) *ResultsClient {
	return &ResultsClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "results_client").Logger(),
	}
}

// FetchAll retrieves every stored TestResult for a user.
func (c *ResultsClient) FetchAll(ctx context.Context, token, userID string) ([]model.TestResult, error) {
	endpoint := fmt.Sprintf("%s/users/%s/results", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp)
	}

	var payload struct {
		Data []model.TestResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return payload.Data, nil
}

// Submit mirrors one TestResult to the remote store.
func (c *ResultsClient) Submit(ctx context.Context, token string, result *model.TestResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	endpoint := c.baseURL + "/results"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submit result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	return nil
}
