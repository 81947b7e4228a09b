package models

import "time"

// Enums

type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "pending"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusQueued     VideoStatus = "queued"      // hosted text-to-video: accepted, not started
	VideoStatusInProgress VideoStatus = "in_progress" // hosted text-to-video: rendering
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s VideoStatus) IsTerminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

type PipelineStage string

const (
	StagePending           PipelineStage = "pending"
	StageGeneratingImage   PipelineStage = "generating_image"
	StageGeneratingVoice   PipelineStage = "generating_voice"
	StageSynthesizingVideo PipelineStage = "synthesizing_video"
	StagePostProcessing    PipelineStage = "post_processing"
	StageCompleted         PipelineStage = "completed"
	StageFailed            PipelineStage = "failed"
)

// Job is the polled state of one video generation, keyed by video ID.
// A single goroutine owns the writes for any given job; readers see
// snapshots through the store.
type Job struct {
	VideoID  string        `json:"video_id"`
	Status   VideoStatus   `json:"status"`
	Stage    PipelineStage `json:"stage,omitempty"`
	Progress int           `json:"progress"`
	Message  string        `json:"message,omitempty"`

	VideoURL       *string `json:"video_url,omitempty"`
	ThumbnailURL   *string `json:"thumbnail_url,omitempty"`
	SpritesheetURL *string `json:"spritesheet_url,omitempty"`
	Error          *string `json:"error,omitempty"`

	// Hosted text-to-video metadata (empty for the standard pipeline)
	Model       string  `json:"model,omitempty"`
	Size        string  `json:"size,omitempty"`
	Seconds     string  `json:"seconds,omitempty"`
	RemixedFrom *string `json:"remixed_from,omitempty"`

	CreatedAt   int64  `json:"created_at"`
	CompletedAt *int64 `json:"completed_at,omitempty"`
	ExpiresAt   *int64 `json:"expires_at,omitempty"`
}

// NewJob creates a job in its initial pending state.
func NewJob(videoID string) *Job {
	return &Job{
		VideoID:   videoID,
		Status:    VideoStatusPending,
		Stage:     StagePending,
		Progress:  0,
		Message:   "Video generation queued",
		CreatedAt: time.Now().Unix(),
	}
}

// SetStage advances the job to a new pipeline stage with a progress checkpoint.
// Progress never moves backwards while the job is live, and terminal jobs
// ignore further stage updates.
func (j *Job) SetStage(stage PipelineStage, progress int, message string) {
	if j.Status.IsTerminal() {
		return
	}
	j.Status = VideoStatusProcessing
	j.Stage = stage
	if progress > j.Progress {
		j.Progress = progress
	}
	j.Message = message
}

// SetProgress raises the progress value without changing the stage.
func (j *Job) SetProgress(progress int, message string) {
	if j.Status.IsTerminal() {
		return
	}
	if progress > j.Progress {
		j.Progress = progress
	}
	if message != "" {
		j.Message = message
	}
}

// MarkCompleted moves the job to its completed terminal state. Calling it
// again, or after MarkFailed, is a no-op — the first terminal state wins.
func (j *Job) MarkCompleted(videoURL, thumbnailURL *string, message string) {
	if j.Status.IsTerminal() {
		return
	}
	now := time.Now().Unix()
	j.Status = VideoStatusCompleted
	j.Stage = StageCompleted
	j.Progress = 100
	j.Message = message
	j.VideoURL = videoURL
	j.ThumbnailURL = thumbnailURL
	j.CompletedAt = &now
}

// MarkFailed moves the job to its failed terminal state and resets progress
// to zero, so pollers render a failed bar rather than a stalled one.
// No-op once the job is already terminal.
func (j *Job) MarkFailed(errMsg string) {
	if j.Status.IsTerminal() {
		return
	}
	j.Status = VideoStatusFailed
	j.Stage = StageFailed
	j.Progress = 0
	j.Message = "Video generation failed: " + errMsg
	j.Error = &errMsg
}

// ---------------------------------------------------------------------------
// API request / response DTOs
// ---------------------------------------------------------------------------

type GenerateVideoRequest struct {
	ProductImageURL string  `json:"product_image_url"`
	Script          string  `json:"script"`
	ModelStyle      *string `json:"model_style,omitempty"` // e.g. "young woman", "middle-aged man"
	VoiceStyle      *string `json:"voice_style,omitempty"` // e.g. "energetic", "calm"
}

type GenerateVideoResponse struct {
	VideoID  string      `json:"video_id"`
	Status   VideoStatus `json:"status"`
	Progress int         `json:"progress"`
	Message  string      `json:"message"`
}

type VideoStatusResponse struct {
	VideoID      string      `json:"video_id"`
	Status       VideoStatus `json:"status"`
	Progress     int         `json:"progress"`
	Message      string      `json:"message,omitempty"`
	VideoURL     *string     `json:"video_url,omitempty"`
	ThumbnailURL *string     `json:"thumbnail_url,omitempty"`
	Error        *string     `json:"error,omitempty"`
}

type UploadResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	FilePath string `json:"file_path"`
	FileURL  string `json:"file_url"`
}

// ---------------------------------------------------------------------------
// Hosted text-to-video DTOs
// ---------------------------------------------------------------------------

type SoraGenerateRequest struct {
	Prompt         string  `json:"prompt"`
	Model          *string `json:"model,omitempty"`           // Default: sora-2
	Size           *string `json:"size,omitempty"`            // Default: 720x1280
	Seconds        *string `json:"seconds,omitempty"`         // Default: "8"
	InputReference *string `json:"input_reference,omitempty"` // Path to an uploaded reference image
}

type SoraRemixRequest struct {
	VideoID string `json:"video_id"`
	Prompt  string `json:"prompt"`
}

type SoraVideoResponse struct {
	VideoID        string      `json:"video_id"`
	Status         VideoStatus `json:"status"`
	Progress       int         `json:"progress"`
	Model          string      `json:"model,omitempty"`
	Size           string      `json:"size,omitempty"`
	Seconds        string      `json:"seconds,omitempty"`
	CreatedAt      int64       `json:"created_at"`
	CompletedAt    *int64      `json:"completed_at,omitempty"`
	ExpiresAt      *int64      `json:"expires_at,omitempty"`
	VideoURL       *string     `json:"video_url,omitempty"`
	ThumbnailURL   *string     `json:"thumbnail_url,omitempty"`
	SpritesheetURL *string     `json:"spritesheet_url,omitempty"`
	RemixedFrom    *string     `json:"remixed_from,omitempty"`
	Error          *string     `json:"error,omitempty"`
}

type VideoListResponse struct {
	Videos []SoraVideoResponse `json:"videos"`
	Total  int                 `json:"total"`
}

// WebhookEvent is the payload delivered by the hosted text-to-video vendor
// when a job reaches a terminal state. Only the event type and video ID
// matter — the monitor re-reads full state from the vendor.
type WebhookEvent struct {
	Type string           `json:"type"` // "video.completed" or "video.failed"
	Data WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	ID string `json:"id"`
}

// SoraResponse converts a job snapshot into the hosted-flow response shape.
func (j *Job) SoraResponse() SoraVideoResponse {
	return SoraVideoResponse{
		VideoID:        j.VideoID,
		Status:         j.Status,
		Progress:       j.Progress,
		Model:          j.Model,
		Size:           j.Size,
		Seconds:        j.Seconds,
		CreatedAt:      j.CreatedAt,
		CompletedAt:    j.CompletedAt,
		ExpiresAt:      j.ExpiresAt,
		VideoURL:       j.VideoURL,
		ThumbnailURL:   j.ThumbnailURL,
		SpritesheetURL: j.SpritesheetURL,
		RemixedFrom:    j.RemixedFrom,
		Error:          j.Error,
	}
}

// StatusResponse converts a job snapshot into the polling response shape.
func (j *Job) StatusResponse() VideoStatusResponse {
	return VideoStatusResponse{
		VideoID:      j.VideoID,
		Status:       j.Status,
		Progress:     j.Progress,
		Message:      j.Message,
		VideoURL:     j.VideoURL,
		ThumbnailURL: j.ThumbnailURL,
		Error:        j.Error,
	}
}
