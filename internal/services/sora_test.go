package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestSoraCreateVideoJSON(t *testing.T) {
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/videos" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("auth header: %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(SoraVideo{
			ID: "video_123", Status: "queued", Model: gotBody["model"],
			Size: gotBody["size"], Seconds: gotBody["seconds"],
		})
	}))
	defer srv.Close()

	svc := NewSoraService("test-key", srv.URL)
	video, err := svc.CreateVideo(context.Background(), SoraCreateParams{Prompt: "a cat surfing"})
	if err != nil {
		t.Fatalf("CreateVideo failed: %v", err)
	}

	if video.ID != "video_123" || video.Status != "queued" {
		t.Errorf("unexpected video: %+v", video)
	}
	// Defaults applied
	if gotBody["model"] != "sora-2" || gotBody["size"] != "720x1280" || gotBody["seconds"] != "8" {
		t.Errorf("defaults not applied: %v", gotBody)
	}
}

func TestSoraCreateVideoWithReferenceIsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart request: %v", err)
		}
		if r.FormValue("prompt") != "a cat surfing" {
			t.Errorf("prompt field: %q", r.FormValue("prompt"))
		}
		if _, _, err := r.FormFile("input_reference"); err != nil {
			t.Errorf("input_reference file missing: %v", err)
		}
		json.NewEncoder(w).Encode(SoraVideo{ID: "video_456", Status: "queued"})
	}))
	defer srv.Close()

	refPath := writeTempFile(t, "ref.png", "reference image")

	svc := NewSoraService("test-key", srv.URL)
	video, err := svc.CreateVideo(context.Background(), SoraCreateParams{
		Prompt:         "a cat surfing",
		InputReference: refPath,
	})
	if err != nil {
		t.Fatalf("CreateVideo failed: %v", err)
	}
	if video.ID != "video_456" {
		t.Errorf("unexpected video: %+v", video)
	}
}

func TestSoraGetVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/video_123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(SoraVideo{ID: "video_123", Status: "in_progress", Progress: 42})
	}))
	defer srv.Close()

	svc := NewSoraService("test-key", srv.URL)
	video, err := svc.GetVideo(context.Background(), "video_123")
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if video.Status != "in_progress" || video.Progress != 42 {
		t.Errorf("unexpected video: %+v", video)
	}
}

func TestSoraRemixVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/video_123/remix" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["prompt"] != "make it sunset" {
			t.Errorf("remix prompt: %q", body["prompt"])
		}
		from := "video_123"
		json.NewEncoder(w).Encode(SoraVideo{ID: "video_789", Status: "queued", RemixedFrom: &from})
	}))
	defer srv.Close()

	svc := NewSoraService("test-key", srv.URL)
	video, err := svc.RemixVideo(context.Background(), "video_123", "make it sunset")
	if err != nil {
		t.Fatalf("RemixVideo failed: %v", err)
	}
	if video.ID != "video_789" || video.RemixedFrom == nil || *video.RemixedFrom != "video_123" {
		t.Errorf("unexpected video: %+v", video)
	}
}

func TestSoraListAndDelete(t *testing.T) {
	deleted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/videos":
			if r.URL.Query().Get("limit") != "5" {
				t.Errorf("limit param: %q", r.URL.Query().Get("limit"))
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []SoraVideo{{ID: "a"}, {ID: "b"}},
			})
		case r.Method == "DELETE" && r.URL.Path == "/videos/a":
			deleted = true
			json.NewEncoder(w).Encode(map[string]interface{}{"id": "a", "deleted": true})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	svc := NewSoraService("test-key", srv.URL)

	videos, err := svc.ListVideos(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListVideos failed: %v", err)
	}
	if len(videos) != 2 {
		t.Errorf("expected 2 videos, got %d", len(videos))
	}

	if err := svc.DeleteVideo(context.Background(), "a"); err != nil {
		t.Fatalf("DeleteVideo failed: %v", err)
	}
	if !deleted {
		t.Error("delete request never reached the server")
	}
}

func TestSoraDownloadContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/video_123/content" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("variant") != "thumbnail" {
			t.Errorf("variant param: %q", r.URL.Query().Get("variant"))
		}
		w.Write([]byte("jpeg bytes"))
	}))
	defer srv.Close()

	svc := NewSoraService("test-key", srv.URL)
	dest := filepath.Join(t.TempDir(), "thumb.jpg")

	if err := svc.DownloadContent(context.Background(), "video_123", SoraVariantThumbnail, dest); err != nil {
		t.Fatalf("DownloadContent failed: %v", err)
	}

	data, _ := os.ReadFile(dest)
	if string(data) != "jpeg bytes" {
		t.Errorf("downloaded content: %q", data)
	}
}

// Vendor errors surface — no placeholder masking in the hosted flow.
func TestSoraErrorsSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid prompt"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := NewSoraService("test-key", srv.URL)

	if _, err := svc.CreateVideo(context.Background(), SoraCreateParams{Prompt: "x"}); err == nil {
		t.Error("expected create error to surface")
	}
	if _, err := svc.GetVideo(context.Background(), "nope"); err == nil {
		t.Error("expected get error to surface")
	}
	if err := svc.DownloadContent(context.Background(), "nope", SoraVariantVideo, filepath.Join(t.TempDir(), "v.mp4")); err == nil {
		t.Error("expected download error to surface")
	}
}
