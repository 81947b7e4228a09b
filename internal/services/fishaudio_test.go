package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFishAudioGenerateSpeech(t *testing.T) {
	var gotAuth string
	var gotReq fishAudioRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tts" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte("mp3 audio bytes"))
	}))
	defer srv.Close()

	svc := NewFishAudioService("test-key", srv.URL, "ref-123")
	out := filepath.Join(t.TempDir(), "voice.mp3")

	path, err := svc.GenerateSpeech(context.Background(), "Buy this now", "energetic", "en", out)
	if err != nil {
		t.Fatalf("GenerateSpeech failed: %v", err)
	}
	if path != out {
		t.Errorf("returned path %s, want %s", path, out)
	}

	data, _ := os.ReadFile(out)
	if string(data) != "mp3 audio bytes" {
		t.Errorf("audio file content: %q", data)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header: %q", gotAuth)
	}
	if gotReq.ReferenceID != "ref-123" {
		t.Errorf("reference_id: %q", gotReq.ReferenceID)
	}
	if !strings.Contains(gotReq.Text, "Buy this now") || !strings.Contains(gotReq.Text, "energetic") {
		t.Errorf("prompt text: %q", gotReq.Text)
	}
}

func TestFishAudioServerErrorWritesPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewFishAudioService("test-key", srv.URL, "")
	out := filepath.Join(t.TempDir(), "voice.mp3")

	path, err := svc.GenerateSpeech(context.Background(), "hello", "", "en", out)
	if err != nil {
		t.Fatalf("expected masked failure, got error: %v", err)
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		t.Fatalf("placeholder not written: %v", statErr)
	}
	if info.Size() == 0 {
		t.Error("placeholder file is empty")
	}

	// Placeholder is a valid WAV container
	data, _ := os.ReadFile(path)
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Errorf("placeholder is not a WAV file: % x", data[:12])
	}
}

func TestFishAudioNoKeyWritesPlaceholder(t *testing.T) {
	svc := NewFishAudioService("", "", "")
	out := filepath.Join(t.TempDir(), "voice.mp3")

	path, err := svc.GenerateSpeech(context.Background(), "hello", "", "en", out)
	if err != nil {
		t.Fatalf("expected masked failure, got error: %v", err)
	}
	if info, statErr := os.Stat(path); statErr != nil || info.Size() == 0 {
		t.Errorf("placeholder not written: %v", statErr)
	}
}

func TestFishAudioUnwritableOutputSurfacesError(t *testing.T) {
	svc := NewFishAudioService("", "", "")

	_, err := svc.GenerateSpeech(context.Background(), "hello", "", "en",
		filepath.Join(t.TempDir(), "no-such-dir", "voice.mp3"))
	if err == nil {
		t.Error("expected error when placeholder can't be written")
	}
}
