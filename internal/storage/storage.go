package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ---------------------------------------------------------------------------
// Local disk storage
// Three flat directories: uploads/ (product images), outputs/ (final
// artifacts, served at /outputs/), temp/ (per-job scratch space).
// Output files are keyed by video ID with fixed suffixes.
// ---------------------------------------------------------------------------

type Storage struct {
	UploadDir string
	OutputDir string
	TempDir   string
}

func New(uploadDir, outputDir, tempDir string) (*Storage, error) {
	for _, dir := range []string{uploadDir, outputDir, tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &Storage{
		UploadDir: uploadDir,
		OutputDir: outputDir,
		TempDir:   tempDir,
	}, nil
}

// ---------------------------------------------------------------------------
// Output paths — one naming scheme, used by pipeline, monitor and handlers
// ---------------------------------------------------------------------------

func (s *Storage) VideoPath(videoID string) string {
	return filepath.Join(s.OutputDir, videoID+".mp4")
}

func (s *Storage) ProcessedVideoPath(videoID string) string {
	return filepath.Join(s.OutputDir, videoID+"_processed.mp4")
}

func (s *Storage) ThumbnailPath(videoID string) string {
	return filepath.Join(s.OutputDir, videoID+"_thumbnail.jpg")
}

func (s *Storage) SpritesheetPath(videoID string) string {
	return filepath.Join(s.OutputDir, videoID+"_spritesheet.png")
}

// PublicURL maps an output file path to the URL it is served at.
func (s *Storage) PublicURL(path string) string {
	return "/outputs/" + filepath.Base(path)
}

// ---------------------------------------------------------------------------
// Uploads
// ---------------------------------------------------------------------------

// SaveUpload writes an uploaded product image into the upload directory.
func (s *Storage) SaveUpload(filename string, r io.Reader) (string, error) {
	path := filepath.Join(s.UploadDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return path, nil
}

// ResolveLocal turns a client-provided image reference into a local path.
// Accepts the /uploads/... URL form returned by the upload endpoint as well
// as a plain filesystem path. Returns an error when the file doesn't exist.
func (s *Storage) ResolveLocal(imageURL string) (string, error) {
	path := imageURL
	if strings.HasPrefix(imageURL, "/uploads/") {
		path = filepath.Join(s.UploadDir, strings.TrimPrefix(imageURL, "/uploads/"))
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("product image not found: %s", imageURL)
	}
	return path, nil
}

// ---------------------------------------------------------------------------
// Per-job temp directories
// ---------------------------------------------------------------------------

// CreateJobTempDir creates temp/{videoID} for intermediate artifacts.
func (s *Storage) CreateJobTempDir(videoID string) (string, error) {
	dir := filepath.Join(s.TempDir, videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	return dir, nil
}

// RemoveJobTempDir deletes the job's scratch directory. Safe to call on a
// directory that was never created.
func (s *Storage) RemoveJobTempDir(videoID string) {
	os.RemoveAll(filepath.Join(s.TempDir, videoID))
}

// CopyFile copies src to dst, creating or truncating dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return nil
}
