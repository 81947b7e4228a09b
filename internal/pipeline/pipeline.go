package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/models"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/services"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/storage"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/store"
)

// ---------------------------------------------------------------------------
// Video generation pipeline
// Fixed sequence: product image -> persona image -> voiceover -> lip-sync
// video -> post-processing. Each job runs in its own goroutine; stages are
// strictly sequential because each one consumes the previous one's output.
// ---------------------------------------------------------------------------

// Progress checkpoints per stage. Failure resets the bar to zero.
const (
	progressImage     = 10
	progressVoice     = 40
	progressVideo     = 60
	progressPost      = 80
	progressFinalize  = 90
	progressCompleted = 100
)

type Pipeline struct {
	store    store.Store
	storage  *storage.Storage
	images   services.ImageGenerator
	tts      services.TTSService
	lipsync  services.LipsyncService
	post     services.PostProcessor
	enhancer services.ScriptEnhancer // Optional; nil skips script polish
}

func New(st store.Store, stor *storage.Storage, images services.ImageGenerator, tts services.TTSService, lipsync services.LipsyncService, post services.PostProcessor, enhancer services.ScriptEnhancer) *Pipeline {
	return &Pipeline{
		store:    st,
		storage:  stor,
		images:   images,
		tts:      tts,
		lipsync:  lipsync,
		post:     post,
		enhancer: enhancer,
	}
}

// Run executes the full generation for one job and drives the job record in
// the store to a terminal state. Intended to be called in its own goroutine.
//
// Vendor failures are absorbed inside the adapters (placeholders /
// pass-through); only structural failures — missing input, empty adapter
// output, filesystem errors — fail the job.
func (p *Pipeline) Run(ctx context.Context, videoID string, req models.GenerateVideoRequest) {
	// The scratch dir goes away on every exit path, success or failure
	defer p.storage.RemoveJobTempDir(videoID)

	log.Printf("[Pipeline] Starting job %s", videoID)

	tempDir, err := p.storage.CreateJobTempDir(videoID)
	if err != nil {
		p.fail(ctx, videoID, err)
		return
	}

	// Stage 1: persona image
	p.setStage(ctx, videoID, models.StageGeneratingImage, progressImage, "Generating model image...")

	imagePath, err := p.generateModelImage(ctx, tempDir, req)
	if err != nil {
		p.fail(ctx, videoID, err)
		return
	}

	// Stage 2: voiceover
	p.setStage(ctx, videoID, models.StageGeneratingVoice, progressVoice, "Generating voiceover...")

	script := req.Script
	if p.enhancer != nil {
		script = p.enhancer.PolishScript(ctx, script)
	}

	voiceStyle := ""
	if req.VoiceStyle != nil {
		voiceStyle = *req.VoiceStyle
	}

	audioPath := filepath.Join(tempDir, "voice.mp3")
	audioPath, err = p.tts.GenerateSpeech(ctx, script, voiceStyle, "en", audioPath)
	if err != nil {
		p.fail(ctx, videoID, fmt.Errorf("voiceover generation: %w", err))
		return
	}

	// Stage 3: lip-sync video
	p.setStage(ctx, videoID, models.StageSynthesizingVideo, progressVideo, "Synthesizing video...")

	rawPath := filepath.Join(tempDir, "raw.mp4")
	rawPath, err = p.lipsync.GenerateLipSyncVideo(ctx, imagePath, audioPath, rawPath)
	if err != nil {
		p.fail(ctx, videoID, fmt.Errorf("video synthesis: %w", err))
		return
	}

	videoOut := p.storage.VideoPath(videoID)
	if err := storage.CopyFile(rawPath, videoOut); err != nil {
		p.fail(ctx, videoID, fmt.Errorf("saving video: %w", err))
		return
	}

	// Stage 4: post-processing (best-effort)
	p.setStage(ctx, videoID, models.StagePostProcessing, progressPost, "Post-processing video...")

	finalPath := videoOut
	processedOut := p.storage.ProcessedVideoPath(videoID)
	if err := p.post.PostProcess(ctx, videoOut, processedOut); err != nil {
		log.Printf("[Pipeline] Post-processing skipped for %s: %v", videoID, err)
	} else {
		finalPath = processedOut
	}

	p.setProgress(ctx, videoID, progressFinalize, "Finalizing...")

	thumbPath := p.storage.ThumbnailPath(videoID)
	if err := p.post.GenerateThumbnail(ctx, finalPath, thumbPath); err != nil {
		log.Printf("[Pipeline] Thumbnail generation skipped for %s: %v", videoID, err)
		thumbPath = ""
	}

	// Terminal: completed
	videoURL := p.storage.PublicURL(finalPath)
	var thumbURL *string
	if thumbPath != "" {
		u := p.storage.PublicURL(thumbPath)
		thumbURL = &u
	}

	if _, err := p.store.Update(ctx, videoID, func(j *models.Job) {
		j.MarkCompleted(&videoURL, thumbURL, "Video generation complete!")
	}); err != nil {
		log.Printf("[Pipeline] Failed to record completion for %s: %v", videoID, err)
		return
	}

	log.Printf("[Pipeline] Job %s completed (%s)", videoID, videoURL)
}

// generateModelImage resolves the product image, runs the image generator
// and writes the persona image into the temp dir.
func (p *Pipeline) generateModelImage(ctx context.Context, tempDir string, req models.GenerateVideoRequest) (string, error) {
	productPath, err := p.storage.ResolveLocal(req.ProductImageURL)
	if err != nil {
		return "", err
	}

	productBytes, err := os.ReadFile(productPath)
	if err != nil {
		return "", fmt.Errorf("failed to read product image: %w", err)
	}

	modelStyle := ""
	if req.ModelStyle != nil {
		modelStyle = *req.ModelStyle
	}

	imageBytes, err := p.images.GenerateModelImage(ctx, productBytes, mimeTypeForImage(productPath), modelStyle)
	if err != nil {
		return "", fmt.Errorf("image generation: %w", err)
	}
	if len(imageBytes) == 0 {
		return "", fmt.Errorf("image generator returned empty image")
	}

	imagePath := filepath.Join(tempDir, "model"+filepath.Ext(productPath))
	if err := os.WriteFile(imagePath, imageBytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write model image: %w", err)
	}
	return imagePath, nil
}

func (p *Pipeline) setStage(ctx context.Context, videoID string, stage models.PipelineStage, progress int, message string) {
	if _, err := p.store.Update(ctx, videoID, func(j *models.Job) {
		j.SetStage(stage, progress, message)
	}); err != nil {
		log.Printf("[Pipeline] Failed to update stage for %s: %v", videoID, err)
	}
}

func (p *Pipeline) setProgress(ctx context.Context, videoID string, progress int, message string) {
	if _, err := p.store.Update(ctx, videoID, func(j *models.Job) {
		j.SetProgress(progress, message)
	}); err != nil {
		log.Printf("[Pipeline] Failed to update progress for %s: %v", videoID, err)
	}
}

func (p *Pipeline) fail(ctx context.Context, videoID string, cause error) {
	log.Printf("[Pipeline] Job %s failed: %v", videoID, cause)
	if _, err := p.store.Update(ctx, videoID, func(j *models.Job) {
		j.MarkFailed(cause.Error())
	}); err != nil {
		log.Printf("[Pipeline] Failed to record failure for %s: %v", videoID, err)
	}
}

func mimeTypeForImage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
