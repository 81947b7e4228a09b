package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// ---------------------------------------------------------------------------
// Sora Hosted Text-to-Video Service
// REST client for an OpenAI-style /v1/videos API: create, poll, remix, list,
// delete, and download rendered content by variant. Unlike the pipeline
// adapters, errors here surface to the caller — the hosted flow has no
// meaningful placeholder to degrade to.
// ---------------------------------------------------------------------------

const (
	soraDefaultBaseURL = "https://api.openai.com/v1"
	soraDefaultModel   = "sora-2"
	soraDefaultSize    = "720x1280"
	soraDefaultSeconds = "8"
)

// SoraVideo is the vendor's representation of a video job.
type SoraVideo struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"` // "queued", "in_progress", "completed", "failed"
	Progress    int        `json:"progress"`
	Model       string     `json:"model"`
	Size        string     `json:"size"`
	Seconds     string     `json:"seconds"`
	CreatedAt   int64      `json:"created_at"`
	CompletedAt *int64     `json:"completed_at,omitempty"`
	ExpiresAt   *int64     `json:"expires_at,omitempty"`
	RemixedFrom *string    `json:"remixed_from_video_id,omitempty"`
	Error       *SoraError `json:"error,omitempty"`
}

type SoraError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SoraCreateParams are the inputs for a new video job.
type SoraCreateParams struct {
	Prompt         string
	Model          string // empty = sora-2
	Size           string // empty = 720x1280
	Seconds        string // empty = "8"
	InputReference string // Local path to a reference image, empty = none
}

// SoraVariant selects which rendered artifact to download.
type SoraVariant string

const (
	SoraVariantVideo       SoraVariant = "video"
	SoraVariantThumbnail   SoraVariant = "thumbnail"
	SoraVariantSpritesheet SoraVariant = "spritesheet"
)

// SoraClient is the hosted text-to-video capability the handlers and the
// monitor depend on.
type SoraClient interface {
	CreateVideo(ctx context.Context, params SoraCreateParams) (*SoraVideo, error)
	GetVideo(ctx context.Context, videoID string) (*SoraVideo, error)
	RemixVideo(ctx context.Context, videoID, prompt string) (*SoraVideo, error)
	ListVideos(ctx context.Context, limit int) ([]SoraVideo, error)
	DeleteVideo(ctx context.Context, videoID string) error
	DownloadContent(ctx context.Context, videoID string, variant SoraVariant, destPath string) error
}

// SoraService implements SoraClient against the real API.
type SoraService struct {
	apiKey  string
	baseURL string // Overridable for testing; empty means the public API
	client  *http.Client
}

var _ SoraClient = (*SoraService)(nil)

func NewSoraService(apiKey, baseURL string) *SoraService {
	if baseURL == "" {
		baseURL = soraDefaultBaseURL
	}
	return &SoraService{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// CreateVideo submits a new video generation job. When params.InputReference
// is set, the request goes up as multipart with the reference image attached;
// otherwise a plain JSON body is used.
func (s *SoraService) CreateVideo(ctx context.Context, params SoraCreateParams) (*SoraVideo, error) {
	if params.Model == "" {
		params.Model = soraDefaultModel
	}
	if params.Size == "" {
		params.Size = soraDefaultSize
	}
	if params.Seconds == "" {
		params.Seconds = soraDefaultSeconds
	}

	log.Printf("[Sora] Creating video (model=%s, size=%s, seconds=%s, promptLen=%d, hasRef=%v)",
		params.Model, params.Size, params.Seconds, len(params.Prompt), params.InputReference != "")

	if params.InputReference != "" {
		return s.createMultipart(ctx, params)
	}
	return s.createJSON(ctx, params)
}

func (s *SoraService) createJSON(ctx context.Context, params SoraCreateParams) (*SoraVideo, error) {
	reqBody, err := json.Marshal(map[string]string{
		"prompt":  params.Prompt,
		"model":   params.Model,
		"size":    params.Size,
		"seconds": params.Seconds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var video SoraVideo
	if err := s.doJSON(ctx, "POST", "/videos", bytes.NewReader(reqBody), "application/json", &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func (s *SoraService) createMultipart(ctx context.Context, params SoraCreateParams) (*SoraVideo, error) {
	refData, err := os.ReadFile(params.InputReference)
	if err != nil {
		return nil, fmt.Errorf("failed to read input reference: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("prompt", params.Prompt)
	mw.WriteField("model", params.Model)
	mw.WriteField("size", params.Size)
	mw.WriteField("seconds", params.Seconds)

	part, err := mw.CreateFormFile("input_reference", filepath.Base(params.InputReference))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(refData); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	mw.Close()

	var video SoraVideo
	if err := s.doJSON(ctx, "POST", "/videos", &body, mw.FormDataContentType(), &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func (s *SoraService) GetVideo(ctx context.Context, videoID string) (*SoraVideo, error) {
	var video SoraVideo
	if err := s.doJSON(ctx, "GET", "/videos/"+videoID, nil, "", &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func (s *SoraService) RemixVideo(ctx context.Context, videoID, prompt string) (*SoraVideo, error) {
	reqBody, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var video SoraVideo
	if err := s.doJSON(ctx, "POST", "/videos/"+videoID+"/remix", bytes.NewReader(reqBody), "application/json", &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func (s *SoraService) ListVideos(ctx context.Context, limit int) ([]SoraVideo, error) {
	if limit <= 0 {
		limit = 20
	}

	var list struct {
		Data []SoraVideo `json:"data"`
	}
	path := "/videos?limit=" + url.QueryEscape(fmt.Sprintf("%d", limit))
	if err := s.doJSON(ctx, "GET", path, nil, "", &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (s *SoraService) DeleteVideo(ctx context.Context, videoID string) error {
	return s.doJSON(ctx, "DELETE", "/videos/"+videoID, nil, "", nil)
}

// DownloadContent streams one rendered variant to destPath.
func (s *SoraService) DownloadContent(ctx context.Context, videoID string, variant SoraVariant, destPath string) error {
	// Videos can be large; give the download its own generous timeout
	downloadClient := &http.Client{Timeout: 300 * time.Second}

	reqURL := fmt.Sprintf("%s/videos/%s/content?variant=%s", s.baseURL, videoID, variant)
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := downloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("content download returned status %d: %s", resp.StatusCode, string(body))
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}

	log.Printf("[Sora] Downloaded %s variant for %s (%d bytes)", variant, videoID, n)
	return nil
}

func (s *SoraService) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sora returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w (body: %s)", err, string(respBody))
		}
	}
	return nil
}
