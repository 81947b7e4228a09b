package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/models"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/storage"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/store"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeImages struct {
	returnEmpty bool
	err         error
}

func (f *fakeImages) GenerateModelImage(_ context.Context, productImage []byte, _ string, _ string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.returnEmpty {
		return nil, nil
	}
	return productImage, nil
}

type fakeTTS struct {
	err error
}

func (f *fakeTTS) GenerateSpeech(_ context.Context, _, _, _, outputPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if err := os.WriteFile(outputPath, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	return outputPath, nil
}

type fakeLipsync struct {
	err error
}

func (f *fakeLipsync) GenerateLipSyncVideo(_ context.Context, _, _, outputPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if err := os.WriteFile(outputPath, []byte("video"), 0o644); err != nil {
		return "", err
	}
	return outputPath, nil
}

type fakePost struct {
	processErr bool
	thumbErr   bool
}

func (f *fakePost) PostProcess(_ context.Context, inPath, outPath string) error {
	if f.processErr {
		return fmt.Errorf("ffmpeg not available")
	}
	return storage.CopyFile(inPath, outPath)
}

func (f *fakePost) GenerateThumbnail(_ context.Context, _, thumbPath string) error {
	if f.thumbErr {
		return fmt.Errorf("extraction failed")
	}
	return os.WriteFile(thumbPath, []byte("jpg"), 0o644)
}

type fakeEnhancer struct{ called bool }

func (f *fakeEnhancer) PolishScript(_ context.Context, script string) string {
	f.called = true
	return "polished: " + script
}

// recordingStore wraps a Store and records every progress value written.
type recordingStore struct {
	store.Store
	mu       sync.Mutex
	progress []int
}

func (r *recordingStore) Update(ctx context.Context, id string, fn func(*models.Job)) (*models.Job, error) {
	job, err := r.Store.Update(ctx, id, fn)
	if err == nil {
		r.mu.Lock()
		r.progress = append(r.progress, job.Progress)
		r.mu.Unlock()
	}
	return job, err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type testEnv struct {
	store   store.Store
	storage *storage.Storage
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	base := t.TempDir()
	stor, err := storage.New(
		filepath.Join(base, "uploads"),
		filepath.Join(base, "outputs"),
		filepath.Join(base, "temp"),
	)
	if err != nil {
		t.Fatal(err)
	}
	return testEnv{store: store.NewMemoryStore(), storage: stor}
}

func (e testEnv) uploadProductImage(t *testing.T) string {
	t.Helper()
	if _, err := e.storage.SaveUpload("product.png", strings.NewReader("png bytes")); err != nil {
		t.Fatal(err)
	}
	return "/uploads/product.png"
}

func (e testEnv) startJob(t *testing.T, videoID string) {
	t.Helper()
	if err := e.store.Put(context.Background(), models.NewJob(videoID)); err != nil {
		t.Fatal(err)
	}
}

func defaultPipeline(e testEnv) *Pipeline {
	return New(e.store, e.storage, &fakeImages{}, &fakeTTS{}, &fakeLipsync{}, &fakePost{}, nil)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRunHappyPath(t *testing.T) {
	e := newTestEnv(t)
	imageURL := e.uploadProductImage(t)
	e.startJob(t, "vid-1")

	p := defaultPipeline(e)
	p.Run(context.Background(), "vid-1", models.GenerateVideoRequest{
		ProductImageURL: imageURL,
		Script:          "Buy this.",
	})

	job, err := e.store.Get(context.Background(), "vid-1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.VideoStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", job.Status, job.Message)
	}
	if job.Progress != 100 {
		t.Errorf("progress: got %d, want 100", job.Progress)
	}
	if job.VideoURL == nil || job.ThumbnailURL == nil {
		t.Fatalf("result URLs missing: video=%v thumb=%v", job.VideoURL, job.ThumbnailURL)
	}

	// The processed video is preferred and both artifacts exist on disk
	if *job.VideoURL != "/outputs/vid-1_processed.mp4" {
		t.Errorf("video URL: %s", *job.VideoURL)
	}
	for _, path := range []string{
		e.storage.VideoPath("vid-1"),
		e.storage.ProcessedVideoPath("vid-1"),
		e.storage.ThumbnailPath("vid-1"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("artifact missing: %s", path)
		}
	}

	// Scratch space is gone
	if _, err := os.Stat(filepath.Join(e.storage.TempDir, "vid-1")); !os.IsNotExist(err) {
		t.Error("temp dir still exists after success")
	}
}

func TestRunMissingProductImageFails(t *testing.T) {
	e := newTestEnv(t)
	e.startJob(t, "vid-2")

	p := defaultPipeline(e)
	p.Run(context.Background(), "vid-2", models.GenerateVideoRequest{
		ProductImageURL: "/uploads/does-not-exist.png",
		Script:          "Buy this.",
	})

	job, _ := e.store.Get(context.Background(), "vid-2")
	if job.Status != models.VideoStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("progress after failure: got %d, want 0", job.Progress)
	}
	if job.Error == nil || !strings.Contains(*job.Error, "product image not found") {
		t.Errorf("error message: %v", job.Error)
	}

	// Temp dir removed on the failure path too
	if _, err := os.Stat(filepath.Join(e.storage.TempDir, "vid-2")); !os.IsNotExist(err) {
		t.Error("temp dir still exists after failure")
	}
}

func TestRunEmptyGeneratedImageFails(t *testing.T) {
	e := newTestEnv(t)
	imageURL := e.uploadProductImage(t)
	e.startJob(t, "vid-3")

	p := New(e.store, e.storage, &fakeImages{returnEmpty: true}, &fakeTTS{}, &fakeLipsync{}, &fakePost{}, nil)
	p.Run(context.Background(), "vid-3", models.GenerateVideoRequest{
		ProductImageURL: imageURL,
		Script:          "Buy this.",
	})

	job, _ := e.store.Get(context.Background(), "vid-3")
	if job.Status != models.VideoStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Error == nil || !strings.Contains(*job.Error, "empty image") {
		t.Errorf("error message: %v", job.Error)
	}
}

func TestRunTTSStructuralErrorFails(t *testing.T) {
	e := newTestEnv(t)
	imageURL := e.uploadProductImage(t)
	e.startJob(t, "vid-4")

	p := New(e.store, e.storage, &fakeImages{}, &fakeTTS{err: fmt.Errorf("disk full")}, &fakeLipsync{}, &fakePost{}, nil)
	p.Run(context.Background(), "vid-4", models.GenerateVideoRequest{
		ProductImageURL: imageURL,
		Script:          "Buy this.",
	})

	job, _ := e.store.Get(context.Background(), "vid-4")
	if job.Status != models.VideoStatusFailed || job.Progress != 0 {
		t.Errorf("expected failed/0, got %s/%d", job.Status, job.Progress)
	}
}

func TestRunPostProcessFailureStillCompletes(t *testing.T) {
	e := newTestEnv(t)
	imageURL := e.uploadProductImage(t)
	e.startJob(t, "vid-5")

	p := New(e.store, e.storage, &fakeImages{}, &fakeTTS{}, &fakeLipsync{}, &fakePost{processErr: true, thumbErr: true}, nil)
	p.Run(context.Background(), "vid-5", models.GenerateVideoRequest{
		ProductImageURL: imageURL,
		Script:          "Buy this.",
	})

	job, _ := e.store.Get(context.Background(), "vid-5")
	if job.Status != models.VideoStatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	// Falls back to the raw video and no thumbnail
	if job.VideoURL == nil || *job.VideoURL != "/outputs/vid-5.mp4" {
		t.Errorf("video URL: %v", job.VideoURL)
	}
	if job.ThumbnailURL != nil {
		t.Errorf("thumbnail URL set despite extraction failure: %v", *job.ThumbnailURL)
	}
}

func TestRunProgressIsMonotonic(t *testing.T) {
	e := newTestEnv(t)
	imageURL := e.uploadProductImage(t)
	e.startJob(t, "vid-6")

	rec := &recordingStore{Store: e.store}
	p := New(rec, e.storage, &fakeImages{}, &fakeTTS{}, &fakeLipsync{}, &fakePost{}, nil)
	p.Run(context.Background(), "vid-6", models.GenerateVideoRequest{
		ProductImageURL: imageURL,
		Script:          "Buy this.",
	})

	if len(rec.progress) == 0 {
		t.Fatal("no progress updates recorded")
	}
	for i := 1; i < len(rec.progress); i++ {
		if rec.progress[i] < rec.progress[i-1] {
			t.Fatalf("progress went backwards: %v", rec.progress)
		}
	}
	if last := rec.progress[len(rec.progress)-1]; last != 100 {
		t.Errorf("final progress: got %d, want 100", last)
	}
}

func TestRunPolishesScriptWhenEnhancerConfigured(t *testing.T) {
	e := newTestEnv(t)
	imageURL := e.uploadProductImage(t)
	e.startJob(t, "vid-7")

	enhancer := &fakeEnhancer{}
	p := New(e.store, e.storage, &fakeImages{}, &fakeTTS{}, &fakeLipsync{}, &fakePost{}, enhancer)
	p.Run(context.Background(), "vid-7", models.GenerateVideoRequest{
		ProductImageURL: imageURL,
		Script:          "Buy this.",
	})

	if !enhancer.called {
		t.Error("script enhancer never invoked")
	}
	job, _ := e.store.Get(context.Background(), "vid-7")
	if job.Status != models.VideoStatusCompleted {
		t.Errorf("expected completed, got %s", job.Status)
	}
}
