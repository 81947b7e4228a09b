package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/models"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/pipeline"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/services"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/storage"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/store"
)

// maxUploadSize caps product image uploads at 10MB.
const maxUploadSize = 10 << 20

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

type Handler struct {
	store    store.Store
	storage  *storage.Storage
	pipeline *pipeline.Pipeline
	sora     services.SoraClient
	monitor  *pipeline.Monitor
}

func NewHandler(st store.Store, stor *storage.Storage, p *pipeline.Pipeline, sora services.SoraClient, m *pipeline.Monitor) *Handler {
	return &Handler{
		store:    st,
		storage:  stor,
		pipeline: p,
		sora:     sora,
		monitor:  m,
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GenerateVideo handles POST /api/generate-video
// Registers the job, kicks off the pipeline in the background and returns
// immediately — clients poll /api/video-status/{video_id}.
func (h *Handler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ProductImageURL == "" {
		respondError(w, http.StatusBadRequest, "product_image_url is required")
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		respondError(w, http.StatusBadRequest, "script is required")
		return
	}

	videoID := uuid.New().String()
	job := models.NewJob(videoID)

	if err := h.store.Put(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to register job")
		return
	}

	// The job outlives the request — run it on a background context
	go h.pipeline.Run(context.Background(), videoID, req)

	respondJSON(w, http.StatusOK, models.GenerateVideoResponse{
		VideoID:  videoID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  "Video generation started",
	})
}

// VideoStatus handles GET /api/video-status/{videoID}
func (h *Handler) VideoStatus(w http.ResponseWriter, r *http.Request) {
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

	respondJSON(w, http.StatusOK, job.StatusResponse())
}

// DownloadVideo handles GET /api/download-video/{videoID}
// Serves the post-processed file when present, the raw one otherwise.
func (h *Handler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	path := h.storage.ProcessedVideoPath(videoID)
	if _, err := os.Stat(path); err != nil {
		path = h.storage.VideoPath(videoID)
		if _, err := os.Stat(path); err != nil {
			respondError(w, http.StatusNotFound, "Video not found")
			return
		}
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// DownloadThumbnail handles GET /api/download-thumbnail/{videoID}
func (h *Handler) DownloadThumbnail(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	path := h.storage.ThumbnailPath(videoID)
	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "Thumbnail not found")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeFile(w, r, path)
}

// UploadProductImage handles POST /api/upload-product-image (multipart)
func (h *Handler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		respondError(w, http.StatusBadRequest, "Unsupported file type. Allowed: jpg, jpeg, png, webp")
		return
	}

	filename := uuid.New().String() + ext
	path, err := h.storage.SaveUpload(filename, file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	respondJSON(w, http.StatusOK, models.UploadResponse{
		Success:  true,
		Filename: filename,
		FilePath: path,
		FileURL:  "/uploads/" + filename,
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError writes the error body as {"detail": message}, the shape the
// existing frontend already parses.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}
