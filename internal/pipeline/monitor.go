package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/models"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/services"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/storage"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/store"
)

// ---------------------------------------------------------------------------
// Hosted text-to-video monitor
// One goroutine per submitted job: polls the vendor, relays status and
// progress into the store, and on completion pulls the rendered variants
// down to local disk. The webhook endpoint can finalize the same job first;
// terminal transitions are idempotent so the race is benign.
// ---------------------------------------------------------------------------

const monitorPollInterval = 2 * time.Second

type Monitor struct {
	store        store.Store
	storage      *storage.Storage
	sora         services.SoraClient
	pollInterval time.Duration
}

func NewMonitor(st store.Store, stor *storage.Storage, sora services.SoraClient) *Monitor {
	return &Monitor{
		store:        st,
		storage:      stor,
		sora:         sora,
		pollInterval: monitorPollInterval,
	}
}

// Watch polls the vendor until the job reaches a terminal state, then exits.
// Intended to be called in its own goroutine.
func (m *Monitor) Watch(ctx context.Context, videoID string) {
	log.Printf("[Monitor] Watching %s", videoID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Monitor] Watch for %s cancelled", videoID)
			return
		case <-time.After(m.pollInterval):
		}

		// The webhook may have finalized the job between polls
		if job, err := m.store.Get(ctx, videoID); err == nil && job.Status.IsTerminal() {
			log.Printf("[Monitor] %s already terminal (%s), stopping", videoID, job.Status)
			return
		}

		video, err := m.sora.GetVideo(ctx, videoID)
		if err != nil {
			log.Printf("[Monitor] Poll failed for %s: %v (retrying)", videoID, err)
			continue
		}

		if done := m.Relay(ctx, video); done {
			return
		}
	}
}

// Relay pushes one vendor snapshot into the store and, on a terminal status,
// finalizes the job. Returns true when the job is terminal. Shared by the
// poll loop and the webhook handler.
func (m *Monitor) Relay(ctx context.Context, video *services.SoraVideo) bool {
	switch video.Status {
	case "completed":
		m.finalizeCompleted(ctx, video)
		return true

	case "failed":
		errMsg := "video generation failed"
		if video.Error != nil && video.Error.Message != "" {
			errMsg = video.Error.Message
		}
		if _, err := m.store.Update(ctx, video.ID, func(j *models.Job) {
			j.MarkFailed(errMsg)
		}); err != nil && err != store.ErrNotFound {
			log.Printf("[Monitor] Failed to record failure for %s: %v", video.ID, err)
		}
		log.Printf("[Monitor] %s failed: %s", video.ID, errMsg)
		return true

	default:
		// queued or in_progress
		if _, err := m.store.Update(ctx, video.ID, func(j *models.Job) {
			if j.Status.IsTerminal() {
				return
			}
			j.Status = models.VideoStatus(video.Status)
			if video.Progress > j.Progress {
				j.Progress = video.Progress
			}
			j.Message = fmt.Sprintf("Rendering: %d%%", video.Progress)
			j.CompletedAt = video.CompletedAt
			j.ExpiresAt = video.ExpiresAt
		}); err != nil && err != store.ErrNotFound {
			log.Printf("[Monitor] Failed to relay status for %s: %v", video.ID, err)
		}
		return false
	}
}

// finalizeCompleted downloads the rendered variants and marks the job
// completed. The video itself is required; thumbnail and spritesheet are
// best-effort extras.
func (m *Monitor) finalizeCompleted(ctx context.Context, video *services.SoraVideo) {
	// Bail out early if another finalizer (webhook vs poller) won the race
	if job, err := m.store.Get(ctx, video.ID); err == nil && job.Status.IsTerminal() {
		return
	}

	videoPath := m.storage.VideoPath(video.ID)
	thumbPath := m.storage.ThumbnailPath(video.ID)
	spritePath := m.storage.SpritesheetPath(video.ID)

	var thumbOK, spriteOK bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.sora.DownloadContent(gctx, video.ID, services.SoraVariantVideo, videoPath)
	})
	g.Go(func() error {
		if err := m.sora.DownloadContent(gctx, video.ID, services.SoraVariantThumbnail, thumbPath); err != nil {
			log.Printf("[Monitor] Thumbnail download failed for %s: %v", video.ID, err)
			return nil
		}
		thumbOK = true
		return nil
	})
	g.Go(func() error {
		if err := m.sora.DownloadContent(gctx, video.ID, services.SoraVariantSpritesheet, spritePath); err != nil {
			log.Printf("[Monitor] Spritesheet download failed for %s: %v", video.ID, err)
			return nil
		}
		spriteOK = true
		return nil
	})

	if err := g.Wait(); err != nil {
		if _, uerr := m.store.Update(ctx, video.ID, func(j *models.Job) {
			j.MarkFailed(fmt.Sprintf("failed to download rendered video: %v", err))
		}); uerr != nil && uerr != store.ErrNotFound {
			log.Printf("[Monitor] Failed to record download failure for %s: %v", video.ID, uerr)
		}
		return
	}

	videoURL := m.storage.PublicURL(videoPath)
	var thumbURL *string
	if thumbOK {
		u := m.storage.PublicURL(thumbPath)
		thumbURL = &u
	}

	if _, err := m.store.Update(ctx, video.ID, func(j *models.Job) {
		if j.Status.IsTerminal() {
			return
		}
		j.MarkCompleted(&videoURL, thumbURL, "Video generation complete!")
		if spriteOK {
			u := m.storage.PublicURL(spritePath)
			j.SpritesheetURL = &u
		}
		// Prefer the vendor's timestamps when it reports them
		if video.CompletedAt != nil {
			j.CompletedAt = video.CompletedAt
		}
		j.ExpiresAt = video.ExpiresAt
	}); err != nil && err != store.ErrNotFound {
		log.Printf("[Monitor] Failed to record completion for %s: %v", video.ID, err)
		return
	}

	log.Printf("[Monitor] %s completed (%s)", video.ID, videoURL)
}
