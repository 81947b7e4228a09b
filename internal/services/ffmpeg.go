package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
)

// ---------------------------------------------------------------------------
// FFmpeg Post-Processing Service
// Local exec-based post-processing: upscale the synthesized video to 1080p
// and extract a thumbnail frame. Strictly best-effort — a missing binary or
// a failed run never fails the pipeline, the prior artifact passes through.
// ---------------------------------------------------------------------------

// PostProcessor finalizes the synthesized video.
type PostProcessor interface {
	// PostProcess writes an upscaled/normalized copy of inPath to outPath.
	PostProcess(ctx context.Context, inPath, outPath string) error
	// GenerateThumbnail extracts a frame from videoPath into thumbPath.
	GenerateThumbnail(ctx context.Context, videoPath, thumbPath string) error
}

type FFmpegService struct {
	ffmpegPath string
}

var _ PostProcessor = (*FFmpegService)(nil)

func NewFFmpegService() *FFmpegService {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		log.Printf("[FFmpeg] ffmpeg binary not found — post-processing will be skipped")
		return &FFmpegService{}
	}
	return &FFmpegService{ffmpegPath: path}
}

// PostProcess re-encodes the video at 1080x1920 with H.264 + faststart so
// it streams well. Returns an error when ffmpeg is unavailable or fails;
// the caller treats that as "skip" and keeps the raw video.
func (s *FFmpegService) PostProcess(ctx context.Context, inPath, outPath string) error {
	if s.ffmpegPath == "" {
		return fmt.Errorf("ffmpeg not available")
	}

	args := []string{
		"-y",
		"-i", inPath,
		"-vf", "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "20",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		outPath,
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w (stderr: %s)", err, tail(stderr.String(), 500))
	}

	log.Printf("[FFmpeg] Post-processed %s -> %s", inPath, outPath)
	return nil
}

// GenerateThumbnail grabs a frame one second in. When ffmpeg is unavailable
// or extraction fails, a stub JPEG is written instead so the thumbnail
// endpoint still has something to serve.
func (s *FFmpegService) GenerateThumbnail(ctx context.Context, videoPath, thumbPath string) error {
	if s.ffmpegPath != "" {
		args := []string{
			"-y",
			"-i", videoPath,
			"-ss", "00:00:01",
			"-vframes", "1",
			"-q:v", "3",
			thumbPath,
		}

		cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
		if err := cmd.Run(); err == nil {
			log.Printf("[FFmpeg] Thumbnail extracted: %s", thumbPath)
			return nil
		}
		log.Printf("[FFmpeg] Thumbnail extraction failed for %s, writing stub", videoPath)
	}

	if err := os.WriteFile(thumbPath, stubJPEGBytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write stub thumbnail: %w", err)
	}
	return nil
}

// tail returns the last n bytes of s — ffmpeg puts the useful error at the end.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// stubJPEGBytes is a minimal JPEG (SOI + EOI markers).
func stubJPEGBytes() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}
}
