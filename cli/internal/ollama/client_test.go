package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient_normalizesBaseURL(t *testing.T) {
	t.Parallel()
	c := NewClient("http://localhost:11434/", nil)
	if c.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %q, want no trailing slash", c.baseURL)
	}
}

func TestClient_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		model       string
		wantPresent bool
		wantErr     bool
	}{
		{"200_with_model", http.StatusOK, `{"models":[{"name":"mistral:7b"}]}`, "mistral:7b", true, false},
		{"200_without_model", http.StatusOK, `{"models":[{"name":"other:1b"}]}`, "mistral:7b", false, false},
		{"200_empty_models", http.StatusOK, `{"models":[]}`, "mistral:7b", false, false},
		{"500_unreachable", http.StatusInternalServerError, ``, "mistral:7b", false, true},
		{"invalid_json", http.StatusOK, `{`, "mistral:7b", false, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/tags" {
					t.Errorf("path = %q, want /api/tags", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, nil)
			res, err := c.Check(context.Background(), tt.model)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !res.Reachable {
				t.Error("Reachable = false")
			}
			if res.ModelPresent != tt.wantPresent {
				t.Errorf("ModelPresent = %v, want %v", res.ModelPresent, tt.wantPresent)
			}
		})
	}
}

func TestClient_Check_connectionRefused(t *testing.T) {
	t.Parallel()
	c := NewClient("http://127.0.0.1:1", nil)
	_, err := c.Check(context.Background(), "mistral:7b")
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("err = %v, want ErrUnreachable", err)
	}
}

func TestClient_Generate(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		var req struct {
			Model   string         `json:"model"`
			System  string         `json:"system"`
			Prompt  string         `json:"prompt"`
			Stream  bool           `json:"stream"`
			Options map[string]any `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream should be false")
		}
		if req.Model != "mistral:7b" || req.System == "" || req.Prompt == "" {
			t.Errorf("request = %+v", req)
		}
		if req.Options["num_ctx"] != float64(4096) {
			t.Errorf("num_ctx = %v, want 4096", req.Options["num_ctx"])
		}
		json.NewEncoder(w).Encode(map[string]any{"response": "  feat: add thing\n", "done": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	got, err := c.Generate(context.Background(), "mistral:7b", "system", "prompt",
		&GenerateOptions{Temperature: 0.2, NumCtx: 4096})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "feat: add thing" {
		t.Errorf("Generate = %q, want trimmed response", got)
	}
}

func TestClient_Generate_httpError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.Generate(context.Background(), "missing:1b", "", "prompt", nil)
	if err == nil {
		t.Fatal("want error for HTTP 404")
	}
}

func TestClient_Generate_contextDeadline(t *testing.T) {
	t.Parallel()
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Generate(ctx, "mistral:7b", "", "prompt", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}
