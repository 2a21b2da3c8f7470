package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// AccountsClient talks to the auth collaborator that tracks the free
// practice-attempt allowance. Consumption is not reversible: abandoning a
// session after a successful Consume still costs the attempt.
type AccountsClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewAccountsClient creates an AccountsClient against baseURL.
func NewAccountsClient(baseURL string, timeout time.Duration, log zerolog.Logger) *AccountsClient {
	return &AccountsClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "accounts_client").Logger(),
	}
}

// PracticeAttemptsUsed returns how many free practice attempts the user
// has consumed so far.
func (c *AccountsClient) PracticeAttemptsUsed(ctx context.Context, token, userID string) (int, error) {
	endpoint := fmt.Sprintf("%s/users/%s/practice-attempts", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch attempt usage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, decodeAPIError(resp)
	}

	var payload struct {
		Data struct {
			Used int `json:"used"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode attempt usage: %w", err)
	}
	return payload.Data.Used, nil
}

// ConsumePracticeAttempt burns one unit of the user's free allowance.
func (c *AccountsClient) ConsumePracticeAttempt(ctx context.Context, token, userID string) error {
	endpoint := fmt.Sprintf("%s/users/%s/practice-attempts/consume", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("consume attempt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	return nil
}
