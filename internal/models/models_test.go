package models

import "testing"

func strPtr(s string) *string { return &s }

func TestSetStageAdvancesProgress(t *testing.T) {
	job := NewJob("vid-1")

	job.SetStage(StageGeneratingImage, 10, "Generating model image...")
	if job.Status != VideoStatusProcessing {
		t.Errorf("expected status processing, got %s", job.Status)
	}
	if job.Progress != 10 {
		t.Errorf("expected progress 10, got %d", job.Progress)
	}

	job.SetStage(StageGeneratingVoice, 40, "Generating voiceover...")
	if job.Progress != 40 {
		t.Errorf("expected progress 40, got %d", job.Progress)
	}
}

func TestProgressNeverDecreasesWhileLive(t *testing.T) {
	job := NewJob("vid-2")
	job.SetStage(StageSynthesizingVideo, 60, "Synthesizing video...")

	// A stale lower checkpoint must not move progress backwards
	job.SetStage(StageGeneratingVoice, 40, "stale update")
	if job.Progress != 60 {
		t.Errorf("progress went backwards: got %d, want 60", job.Progress)
	}

	job.SetProgress(55, "")
	if job.Progress != 60 {
		t.Errorf("SetProgress lowered progress: got %d, want 60", job.Progress)
	}
}

func TestMarkCompletedIsSticky(t *testing.T) {
	job := NewJob("vid-3")
	job.SetStage(StagePostProcessing, 90, "Finalizing...")

	job.MarkCompleted(strPtr("/outputs/vid-3.mp4"), strPtr("/outputs/vid-3_thumbnail.jpg"), "Video generation complete!")

	if job.Status != VideoStatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("expected progress 100, got %d", job.Progress)
	}
	if job.VideoURL == nil || *job.VideoURL != "/outputs/vid-3.mp4" {
		t.Errorf("video URL not recorded: %v", job.VideoURL)
	}
	if job.CompletedAt == nil {
		t.Error("completed_at not set")
	}

	// A late failure report must not undo completion
	job.MarkFailed("poller raced webhook")
	if job.Status != VideoStatusCompleted {
		t.Errorf("terminal state overwritten: got %s", job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("progress changed after terminal: got %d", job.Progress)
	}
	if job.Error != nil {
		t.Errorf("error set on completed job: %v", *job.Error)
	}
}

func TestMarkFailedResetsProgress(t *testing.T) {
	job := NewJob("vid-4")
	job.SetStage(StageSynthesizingVideo, 60, "Synthesizing video...")

	job.MarkFailed("product image not found")

	if job.Status != VideoStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("expected progress reset to 0, got %d", job.Progress)
	}
	if job.Error == nil || *job.Error != "product image not found" {
		t.Errorf("error not recorded: %v", job.Error)
	}

	// Failed never becomes completed
	job.MarkCompleted(strPtr("/outputs/vid-4.mp4"), nil, "late completion")
	if job.Status != VideoStatusFailed {
		t.Errorf("failed job transitioned to %s", job.Status)
	}

	// And stage updates after failure are ignored
	job.SetStage(StagePostProcessing, 90, "ghost update")
	if job.Progress != 0 || job.Status != VideoStatusFailed {
		t.Errorf("failed job mutated: progress=%d status=%s", job.Progress, job.Status)
	}
}

func TestDoubleCompletionIsIdempotent(t *testing.T) {
	job := NewJob("vid-5")
	job.MarkCompleted(strPtr("/outputs/vid-5.mp4"), strPtr("/outputs/vid-5_thumbnail.jpg"), "done")
	first := *job

	// Webhook and poller can both report completion
	job.MarkCompleted(strPtr("/outputs/other.mp4"), nil, "done again")

	if job.VideoURL == nil || *job.VideoURL != *first.VideoURL {
		t.Errorf("second completion changed video URL: %v", job.VideoURL)
	}
	if job.CompletedAt == nil || *job.CompletedAt != *first.CompletedAt {
		t.Errorf("second completion changed completed_at")
	}
}

func TestStatusResponseSnapshot(t *testing.T) {
	job := NewJob("vid-6")
	job.SetStage(StageGeneratingImage, 10, "Generating model image...")

	resp := job.StatusResponse()
	if resp.VideoID != "vid-6" || resp.Status != VideoStatusProcessing || resp.Progress != 10 {
		t.Errorf("unexpected snapshot: %+v", resp)
	}
	if resp.VideoURL != nil {
		t.Errorf("video URL leaked before completion: %v", resp.VideoURL)
	}
}
