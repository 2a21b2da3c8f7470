package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError is a non-2xx response from a remote collaborator. Credential
// failures (401/403) are flagged so callers can surface the bearer-token
// misconfiguration hint instead of a generic failure.
type APIError struct {
	Status            int
	Message           string
	CredentialProblem bool
}

func (e *APIError) Error() string {
	if e.CredentialProblem {
		return fmt.Sprintf("remote rejected credential (status %d): %s (check bearer token configuration)", e.Status, e.Message)
	}
	return fmt.Sprintf("remote error (status %d): %s", e.Status, e.Message)
}

// errorBody matches the machine-readable error payload remote services
// return on non-2xx responses.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// decodeAPIError turns a non-2xx response into an *APIError.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		Status:            resp.StatusCode,
		CredentialProblem: resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		apiErr.Message = resp.Status
		return apiErr
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Error.Message != "" {
			apiErr.Message = eb.Error.Message
			return apiErr
		}
		if eb.Message != "" {
			apiErr.Message = eb.Message
			return apiErr
		}
	}
	apiErr.Message = resp.Status
	return apiErr
}
