package movegpt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAskSendsQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate-response" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		var q Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Errorf("unexpected body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Answer{Answer: "echo: " + q.Question, SessionID: q.SessionID})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	got, err := client.Ask(context.Background(), Question{Question: "hi", SessionID: "s"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if got.Answer != "echo: hi" || got.SessionID != "s" {
		t.Fatalf("unexpected answer: %+v", got)
	}
}

func TestAskAboutAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prefix/generate-resource-response" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(ResourceAnswer{Answer: "ok", Address: "0x1"})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL+"/prefix", srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	got, err := client.AskAboutAccount(context.Background(), Question{Question: "0x1?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if got.Address != "0x1" {
		t.Fatalf("unexpected address: %q", got.Address)
	}
}

func TestTurnsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/turns" || r.URL.Query().Get("limit") != "3" {
			t.Errorf("unexpected request: %s", r.URL.String())
		}
		_ = json.NewEncoder(w).Encode([]Turn{{ID: "t1", Question: "q"}})
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, srv.Client())
	turns, err := client.Turns(context.Background(), 3)
	if err != nil {
		t.Fatalf("turns: %v", err)
	}
	if len(turns) != 1 || turns[0].ID != "t1" {
		t.Fatalf("unexpected turns: %+v", turns)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"会话不存在","code":"NOT_FOUND"}`))
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, srv.Client())
	_, err := client.Session(context.Background(), "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "NOT_FOUND" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewClient("localhost", nil); err == nil {
		t.Fatalf("expected error for url without scheme")
	}
}
