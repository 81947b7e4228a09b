package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/models"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/services"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/store"
)

// ---------------------------------------------------------------------------
// Hosted text-to-video endpoints (/api/sora/*)
// The vendor owns the rendering; these handlers submit jobs, mirror vendor
// state into the local store, and serve the downloaded artifacts.
// ---------------------------------------------------------------------------

// SoraGenerate handles POST /api/sora/generate-video
func (h *Handler) SoraGenerate(w http.ResponseWriter, r *http.Request) {
	if h.sora == nil {
		respondError(w, http.StatusServiceUnavailable, "Text-to-video is not configured")
		return
	}

	var req models.SoraGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	params := services.SoraCreateParams{Prompt: req.Prompt}
	if req.Model != nil {
		params.Model = *req.Model
	}
	if req.Size != nil {
		params.Size = *req.Size
	}
	if req.Seconds != nil {
		params.Seconds = *req.Seconds
	}
	if req.InputReference != nil && *req.InputReference != "" {
		path, err := h.storage.ResolveLocal(*req.InputReference)
		if err != nil {
			respondError(w, http.StatusBadRequest, "input_reference not found")
			return
		}
		params.InputReference = path
	}

	video, err := h.sora.CreateVideo(r.Context(), params)
	if err != nil {
		log.Printf("[API] Sora create failed: %v", err)
		respondError(w, http.StatusBadGateway, "Video generation request failed")
		return
	}

	job := h.registerSoraJob(r.Context(), video, nil)
	go h.monitor.Watch(context.Background(), video.ID)

	respondJSON(w, http.StatusOK, job.SoraResponse())
}

// SoraStatus handles GET /api/sora/video-status/{videoID}
func (h *Handler) SoraStatus(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	job, err := h.store.Get(r.Context(), videoID)
	if err == store.ErrNotFound {
		respondError(w, http.StatusNotFound, "Video ID not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read job status")
		return
	}

	respondJSON(w, http.StatusOK, job.SoraResponse())
}

// SoraRemix handles POST /api/sora/remix-video
func (h *Handler) SoraRemix(w http.ResponseWriter, r *http.Request) {
	if h.sora == nil {
		respondError(w, http.StatusServiceUnavailable, "Text-to-video is not configured")
		return
	}

	var req models.SoraRemixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.VideoID == "" || strings.TrimSpace(req.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "video_id and prompt are required")
		return
	}

	video, err := h.sora.RemixVideo(r.Context(), req.VideoID, req.Prompt)
	if err != nil {
		log.Printf("[API] Sora remix failed: %v", err)
		respondError(w, http.StatusBadGateway, "Remix request failed")
		return
	}

	remixedFrom := req.VideoID
	job := h.registerSoraJob(r.Context(), video, &remixedFrom)
	go h.monitor.Watch(context.Background(), video.ID)

	respondJSON(w, http.StatusOK, job.SoraResponse())
}

// SoraList handles GET /api/sora/videos
func (h *Handler) SoraList(w http.ResponseWriter, r *http.Request) {
	if h.sora == nil {
		respondError(w, http.StatusServiceUnavailable, "Text-to-video is not configured")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	videos, err := h.sora.ListVideos(r.Context(), limit)
	if err != nil {
		log.Printf("[API] Sora list failed: %v", err)
		respondError(w, http.StatusBadGateway, "Failed to list videos")
		return
	}

	resp := models.VideoListResponse{Videos: make([]models.SoraVideoResponse, 0, len(videos)), Total: len(videos)}
	for _, v := range videos {
		resp.Videos = append(resp.Videos, soraVideoToResponse(&v))
	}
	respondJSON(w, http.StatusOK, resp)
}

// SoraDelete handles DELETE /api/sora/videos/{videoID}
// Removes the video at the vendor and drops the local registry entry.
func (h *Handler) SoraDelete(w http.ResponseWriter, r *http.Request) {
	if h.sora == nil {
		respondError(w, http.StatusServiceUnavailable, "Text-to-video is not configured")
		return
	}

	videoID := chi.URLParam(r, "videoID")

	if err := h.sora.DeleteVideo(r.Context(), videoID); err != nil {
		log.Printf("[API] Sora delete failed: %v", err)
		respondError(w, http.StatusBadGateway, "Failed to delete video")
		return
	}

	if err := h.store.Delete(r.Context(), videoID); err != nil && err != store.ErrNotFound {
		log.Printf("[API] Failed to drop registry entry for %s: %v", videoID, err)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"video_id": videoID,
		"deleted":  true,
	})
}

// SoraDownloadVideo handles GET /api/sora/download-video/{videoID}
func (h *Handler) SoraDownloadVideo(w http.ResponseWriter, r *http.Request) {
	h.serveSoraArtifact(w, r, services.SoraVariantVideo)
}

// SoraDownloadThumbnail handles GET /api/sora/download-thumbnail/{videoID}
func (h *Handler) SoraDownloadThumbnail(w http.ResponseWriter, r *http.Request) {
	h.serveSoraArtifact(w, r, services.SoraVariantThumbnail)
}

// SoraDownloadSpritesheet handles GET /api/sora/download-spritesheet/{videoID}
func (h *Handler) SoraDownloadSpritesheet(w http.ResponseWriter, r *http.Request) {
	h.serveSoraArtifact(w, r, services.SoraVariantSpritesheet)
}

// serveSoraArtifact serves a downloaded variant from local disk, pulling it
// from the vendor on demand when the monitor hasn't fetched it yet.
func (h *Handler) serveSoraArtifact(w http.ResponseWriter, r *http.Request, variant services.SoraVariant) {
	videoID := chi.URLParam(r, "videoID")

	var path, contentType string
	switch variant {
	case services.SoraVariantThumbnail:
		path, contentType = h.storage.ThumbnailPath(videoID), "image/jpeg"
	case services.SoraVariantSpritesheet:
		path, contentType = h.storage.SpritesheetPath(videoID), "image/png"
	default:
		path, contentType = h.storage.VideoPath(videoID), "video/mp4"
	}

	if _, err := os.Stat(path); err != nil {
		if h.sora == nil {
			respondError(w, http.StatusNotFound, "Video ID not found")
			return
		}
		if err := h.sora.DownloadContent(r.Context(), videoID, variant, path); err != nil {
			log.Printf("[API] On-demand %s download failed for %s: %v", variant, videoID, err)
			respondError(w, http.StatusNotFound, "Video ID not found")
			return
		}
	}

	w.Header().Set("Content-Type", contentType)
	http.ServeFile(w, r, path)
}

// SoraWebhook handles POST /api/sora/webhook
// The vendor notifies on terminal transitions; the poller may already have
// finalized the job, which is fine — terminal transitions are idempotent.
func (h *Handler) SoraWebhook(w http.ResponseWriter, r *http.Request) {
	var event models.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	switch event.Type {
	case "video.completed", "video.failed":
		if event.Data.ID == "" || h.sora == nil {
			break
		}
		// Re-read authoritative state from the vendor rather than trusting
		// the webhook body
		video, err := h.sora.GetVideo(r.Context(), event.Data.ID)
		if err != nil {
			log.Printf("[API] Webhook state fetch failed for %s: %v", event.Data.ID, err)
			break
		}
		h.monitor.Relay(r.Context(), video)
	default:
		log.Printf("[API] Ignoring webhook event type %q", event.Type)
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// registerSoraJob mirrors a freshly created vendor job into the store.
func (h *Handler) registerSoraJob(ctx context.Context, video *services.SoraVideo, remixedFrom *string) *models.Job {
	job := models.NewJob(video.ID)
	job.Status = models.VideoStatus(video.Status)
	if job.Status == "" {
		job.Status = models.VideoStatusQueued
	}
	job.Stage = ""
	job.Progress = video.Progress
	job.Message = "Video generation queued"
	job.Model = video.Model
	job.Size = video.Size
	job.Seconds = video.Seconds
	job.RemixedFrom = remixedFrom
	if video.CreatedAt != 0 {
		job.CreatedAt = video.CreatedAt
	}

	if err := h.store.Put(ctx, job); err != nil {
		log.Printf("[API] Failed to register sora job %s: %v", video.ID, err)
	}
	return job
}

func soraVideoToResponse(v *services.SoraVideo) models.SoraVideoResponse {
	resp := models.SoraVideoResponse{
		VideoID:     v.ID,
		Status:      models.VideoStatus(v.Status),
		Progress:    v.Progress,
		Model:       v.Model,
		Size:        v.Size,
		Seconds:     v.Seconds,
		CreatedAt:   v.CreatedAt,
		CompletedAt: v.CompletedAt,
		ExpiresAt:   v.ExpiresAt,
		RemixedFrom: v.RemixedFrom,
	}
	if v.Error != nil {
		msg := v.Error.Message
		resp.Error = &msg
	}
	return resp
}
