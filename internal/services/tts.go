package services

import "context"

// ---------------------------------------------------------------------------
// TTSService — common interface for text-to-speech providers
// The pipeline only depends on this interface, so the provider can be
// swapped without touching the orchestration code.
// ---------------------------------------------------------------------------

// TTSService is the interface that any TTS provider must implement.
type TTSService interface {
	// GenerateSpeech converts text to audio and writes it to outputPath.
	// voiceStyle is a human-readable description of the desired delivery
	// (e.g. "energetic", "calm"); language is an ISO 639-1 code.
	// Returns the path of the written audio file.
	GenerateSpeech(ctx context.Context, text, voiceStyle, language, outputPath string) (string, error)
}
