package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/rs/zerolog"
)

func TestResultsClientFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/u1/results" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"r1","exam_id":"e1","score":85.5}]}`))
	}))
	defer srv.Close()

	client := NewResultsClient(srv.URL, time.Second, zerolog.Nop())
	results, err := client.FetchAll(context.Background(), "tok", "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(results) != 1 || results[0].ID != "r1" || results[0].Score != 85.5 {
		t.Fatalf("results = %+v", results)
	}
}

func TestResultsClientSubmit(t *testing.T) {
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/results" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		received <- r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewResultsClient(srv.URL, time.Second, zerolog.Nop())
	if err := client.Submit(context.Background(), "tok", &model.TestResult{ID: "r1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ct := <-received; ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestCredentialProblemFlagged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"token rejected"}}`))
	}))
	defer srv.Close()

	client := NewResultsClient(srv.URL, time.Second, zerolog.Nop())
	_, err := client.FetchAll(context.Background(), "bad", "u1")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if !apiErr.CredentialProblem {
		t.Fatal("401 not flagged as credential problem")
	}
	if apiErr.Message != "token rejected" {
		t.Fatalf("Message = %q", apiErr.Message)
	}
	if !strings.Contains(apiErr.Error(), "bearer token") {
		t.Fatalf("credential hint missing from %q", apiErr.Error())
	}
}

func TestAccountsClientUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/users/u1/practice-attempts":
			w.Write([]byte(`{"data":{"used":7}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/users/u1/practice-attempts/consume":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewAccountsClient(srv.URL, time.Second, zerolog.Nop())

	used, err := client.PracticeAttemptsUsed(context.Background(), "tok", "u1")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if used != 7 {
		t.Fatalf("used = %d, want 7", used)
	}

	if err := client.ConsumePracticeAttempt(context.Background(), "tok", "u1"); err != nil {
		t.Fatalf("consume: %v", err)
	}
}

func TestQuestionSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("question,options,answer\nWhat is 2+2?,3|4|5,4\n"))
	}))
	defer srv.Close()

	source := NewQuestionSource(time.Second, zerolog.Nop())
	rows, err := source.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "What is 2+2?" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestQuestionSourceFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	source := NewQuestionSource(time.Second, zerolog.Nop())
	if _, err := source.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 500")
	}
}
