package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPolishScript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "  Okay, real talk: this serum changed my skin.  "}},
			},
		})
	}))
	defer srv.Close()

	svc := NewOpenAIServiceWithConfig("test-key", srv.URL)
	got := svc.PolishScript(context.Background(), "This serum improves skin.")

	if got != "Okay, real talk: this serum changed my skin." {
		t.Errorf("polished script: %q", got)
	}
}

func TestPolishScriptFallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := NewOpenAIServiceWithConfig("test-key", srv.URL)
	original := "This serum improves skin."

	if got := svc.PolishScript(context.Background(), original); got != original {
		t.Errorf("expected original script back, got %q", got)
	}
}

func TestPolishScriptFallsBackOnEmptyChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "   "}},
			},
		})
	}))
	defer srv.Close()

	svc := NewOpenAIServiceWithConfig("test-key", srv.URL)
	original := "Buy it now."

	if got := svc.PolishScript(context.Background(), original); got != original {
		t.Errorf("expected original script back, got %q", got)
	}
}

func TestBuildVideoPrompt(t *testing.T) {
	prompt := BuildVideoPrompt("Try our new coffee.")

	if !strings.Contains(prompt, `"Try our new coffee."`) {
		t.Errorf("script not embedded in prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "UGC-style") {
		t.Errorf("prompt missing framing guidance: %q", prompt)
	}
}
