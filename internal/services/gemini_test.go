package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiNoKeyPassesImageThrough(t *testing.T) {
	svc := NewGeminiService("", "")
	input := []byte("original product image")

	out, err := svc.GenerateModelImage(context.Background(), input, "image/png", "young woman")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != string(input) {
		t.Errorf("image bytes changed on passthrough: %q", out)
	}
}

func TestGeminiAPIFailurePassesImageThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := NewGeminiService("test-key", srv.URL)
	input := []byte("original product image")

	out, err := svc.GenerateModelImage(context.Background(), input, "image/png", "young woman")
	if err != nil {
		t.Fatalf("vendor failure leaked as error: %v", err)
	}
	if string(out) != string(input) {
		t.Errorf("expected input bytes back on failure, got %q", out)
	}
}

func TestComposeModelImagePrompt(t *testing.T) {
	prompt := composeModelImagePrompt("middle-aged man")
	if !strings.Contains(prompt, "middle-aged man") {
		t.Errorf("model style missing from prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "9:16") {
		t.Errorf("framing guidance missing from prompt: %q", prompt)
	}

	// Empty style falls back to a default persona
	fallback := composeModelImagePrompt("")
	if !strings.Contains(fallback, "young woman") {
		t.Errorf("default persona missing: %q", fallback)
	}
}
