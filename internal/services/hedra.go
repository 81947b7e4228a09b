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
	"os"
	"path/filepath"
	"time"
)

// ---------------------------------------------------------------------------
// Hedra Lip-Sync Video Service
// Drives Hedra's multi-step remote workflow: create + upload an image asset
// and an audio asset, submit a generation, poll until terminal, download.
// Vendor failures never fail the pipeline: any step failing short-circuits
// to a placeholder video file.
// ---------------------------------------------------------------------------

const (
	hedraDefaultBaseURL = "https://api.hedra.com/web-app/public"
	hedraModelID        = "d1dd37a3-e39a-4854-a298-6510289f9cf2" // character-3 video model
	hedraPollInterval   = 5 * time.Second
	hedraMaxPollWait    = 600 * time.Second
	hedraResolution     = "720p"
	hedraAspectRatio    = "9:16"
)

// LipsyncService synthesizes a talking video from a still image and audio.
type LipsyncService interface {
	GenerateLipSyncVideo(ctx context.Context, imagePath, audioPath, outputPath string) (string, error)
}

// HedraService handles lip-sync video synthesis via the Hedra API.
type HedraService struct {
	apiKey       string
	baseURL      string // Overridable for testing; empty means the public API
	client       *http.Client
	pollInterval time.Duration
	maxPollWait  time.Duration
}

var _ LipsyncService = (*HedraService)(nil)

func NewHedraService(apiKey, baseURL string) *HedraService {
	if baseURL == "" {
		baseURL = hedraDefaultBaseURL
	}
	return &HedraService{
		apiKey:       apiKey,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 60 * time.Second},
		pollInterval: hedraPollInterval,
		maxPollWait:  hedraMaxPollWait,
	}
}

// ---------------------------------------------------------------------------
// Request / Response types
// ---------------------------------------------------------------------------

type hedraAssetRequest struct {
	Name string `json:"name"`
	Type string `json:"type"` // "image" or "audio"
}

type hedraAssetResponse struct {
	ID string `json:"id"`
}

type hedraGenerationRequest struct {
	Type                 string                    `json:"type"`
	AIModelID            string                    `json:"ai_model_id"`
	StartKeyframeID      string                    `json:"start_keyframe_id"`
	AudioID              string                    `json:"audio_id"`
	GeneratedVideoInputs hedraGeneratedVideoInputs `json:"generated_video_inputs"`
}

type hedraGeneratedVideoInputs struct {
	TextPrompt  string `json:"text_prompt"`
	Resolution  string `json:"resolution"`
	AspectRatio string `json:"aspect_ratio"`
}

type hedraGenerationResponse struct {
	ID string `json:"id"`
}

// hedraStatusResponse is the poll response. Progress runs 0..1; status is
// "queued", "processing", "complete" or "error".
type hedraStatusResponse struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	URL      string  `json:"url"`
	Error    string  `json:"error_message"`
}

// GenerateLipSyncVideo runs the full Hedra workflow and writes the resulting
// video to outputPath. Implements the LipsyncService interface.
//
// Any vendor failure is masked: a placeholder video file is written instead
// and its path returned. The pipeline only sees an error when even the
// placeholder can't be written.
func (s *HedraService) GenerateLipSyncVideo(ctx context.Context, imagePath, audioPath, outputPath string) (string, error) {
	if s.apiKey == "" {
		log.Printf("[Hedra] No API key configured, writing placeholder video")
		return s.writePlaceholder(outputPath)
	}

	if err := s.run(ctx, imagePath, audioPath, outputPath); err != nil {
		log.Printf("[Hedra] Lip-sync generation failed: %v (writing placeholder video)", err)
		return s.writePlaceholder(outputPath)
	}

	log.Printf("[Hedra] Lip-sync video generated: %s", outputPath)
	return outputPath, nil
}

func (s *HedraService) run(ctx context.Context, imagePath, audioPath, outputPath string) error {
	// Step 1+2: image asset
	imageAssetID, err := s.uploadAsset(ctx, imagePath, "image")
	if err != nil {
		return fmt.Errorf("image asset: %w", err)
	}
	log.Printf("[Hedra] Image asset uploaded (id=%s)", imageAssetID)

	// Step 3+4: audio asset
	audioAssetID, err := s.uploadAsset(ctx, audioPath, "audio")
	if err != nil {
		return fmt.Errorf("audio asset: %w", err)
	}
	log.Printf("[Hedra] Audio asset uploaded (id=%s)", audioAssetID)

	// Step 5: submit generation
	generationID, err := s.submitGeneration(ctx, imageAssetID, audioAssetID)
	if err != nil {
		return fmt.Errorf("submit generation: %w", err)
	}
	log.Printf("[Hedra] Generation submitted (id=%s)", generationID)

	// Step 6: poll until terminal
	videoURL, err := s.pollGeneration(ctx, generationID)
	if err != nil {
		return err
	}

	// Step 7: download
	if err := s.downloadVideo(ctx, videoURL, outputPath); err != nil {
		return fmt.Errorf("download video: %w", err)
	}
	return nil
}

// uploadAsset creates an asset record then uploads the file bytes to it.
func (s *HedraService) uploadAsset(ctx context.Context, path, assetType string) (string, error) {
	reqBody, err := json.Marshal(hedraAssetRequest{
		Name: filepath.Base(path),
		Type: assetType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal asset request: %w", err)
	}

	var created hedraAssetResponse
	if err := s.doJSON(ctx, "POST", "/assets", bytes.NewReader(reqBody), "application/json", &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("no asset id in response")
	}

	// Multipart upload of the raw file
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write form file: %w", err)
	}
	mw.Close()

	if err := s.doJSON(ctx, "POST", "/assets/"+created.ID+"/upload", &body, mw.FormDataContentType(), nil); err != nil {
		return "", err
	}

	return created.ID, nil
}

func (s *HedraService) submitGeneration(ctx context.Context, imageAssetID, audioAssetID string) (string, error) {
	reqBody, err := json.Marshal(hedraGenerationRequest{
		Type:            "video",
		AIModelID:       hedraModelID,
		StartKeyframeID: imageAssetID,
		AudioID:         audioAssetID,
		GeneratedVideoInputs: hedraGeneratedVideoInputs{
			TextPrompt:  "A person speaking naturally to the camera, presenting a product in a casual UGC ad style",
			Resolution:  hedraResolution,
			AspectRatio: hedraAspectRatio,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	var created hedraGenerationResponse
	if err := s.doJSON(ctx, "POST", "/generations", bytes.NewReader(reqBody), "application/json", &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("no generation id in response")
	}
	return created.ID, nil
}

// pollGeneration polls the generation status every 5s until it completes,
// fails, or the 600s budget is exhausted. Returns the download URL.
func (s *HedraService) pollGeneration(ctx context.Context, generationID string) (string, error) {
	deadline := time.Now().Add(s.maxPollWait)
	pollCount := 0

	for {
		if time.Now().After(deadline) {
			return "", fmt.Errorf("generation timed out after %v (polled %d times, id=%s)", s.maxPollWait, pollCount, generationID)
		}

		pollCount++

		var status hedraStatusResponse
		if err := s.doJSON(ctx, "GET", "/generations/"+generationID+"/status", nil, "", &status); err != nil {
			return "", fmt.Errorf("failed to poll generation (attempt %d): %w", pollCount, err)
		}

		log.Printf("[Hedra] Poll %d: status=%s progress=%.0f%%", pollCount, status.Status, status.Progress*100)

		switch status.Status {
		case "complete":
			if status.URL == "" {
				return "", fmt.Errorf("generation complete but no download URL")
			}
			return status.URL, nil
		case "error", "failed":
			errMsg := status.Error
			if errMsg == "" {
				errMsg = "unknown error"
			}
			return "", fmt.Errorf("generation failed: %s (id=%s)", errMsg, generationID)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("generation cancelled: %w", ctx.Err())
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *HedraService) downloadVideo(ctx context.Context, videoURL, outputPath string) error {
	// Longer timeout for the video download itself
	downloadClient := &http.Client{Timeout: 120 * time.Second}

	req, err := http.NewRequestWithContext(ctx, "GET", videoURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := downloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("video download returned status %d", resp.StatusCode)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write video file: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("downloaded video is empty (0 bytes)")
	}
	return nil
}

// doJSON performs an authenticated request against the Hedra API and decodes
// the JSON response into out (when out is non-nil).
func (s *HedraService) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-API-Key", s.apiKey)

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
		return fmt.Errorf("hedra returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w (body: %s)", err, string(respBody))
		}
	}
	return nil
}

// writePlaceholder writes a stub video file so the pipeline can complete
// even when the vendor is unavailable.
func (s *HedraService) writePlaceholder(outputPath string) (string, error) {
	if err := os.WriteFile(outputPath, placeholderVideoBytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write placeholder video: %w", err)
	}
	return outputPath, nil
}

// placeholderVideoBytes returns a minimal MP4 ftyp box. Enough for file type
// detection; not a playable video.
func placeholderVideoBytes() []byte {
	return []byte{
		0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
		'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
		'i', 's', 'o', 'm', 'm', 'p', '4', '1',
	}
}
