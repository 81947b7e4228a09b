package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds settings for the API router.
// Passed from main.go so the router can configure CORS and auth from env vars.
type RouterConfig struct {
	// BackendAPIKey is the key that must be provided in X-API-Key or
	// Authorization: Bearer <key>. If empty, auth is skipped (dev mode).
	BackendAPIKey string

	// CorsAllowedOrigins is a comma-separated list of allowed origins.
	// If empty, defaults to "*" (development mode).
	CorsAllowedOrigins string

	// OutputDir is served read-only at /outputs/ so completed videos and
	// thumbnails are directly linkable.
	OutputDir string

	// WebhookSecret authenticates vendor webhook deliveries via the
	// X-Webhook-Secret header. If empty, deliveries are accepted unsigned.
	WebhookSecret string
}

func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (applied to all routes including /health)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// CORS: restrict origins when configured, otherwise allow all (dev mode)
	allowedOrigins := []string{"*"}
	if cfg.CorsAllowedOrigins != "" {
		origins := strings.Split(cfg.CorsAllowedOrigins, ",")
		trimmed := make([]string, 0, len(origins))
		for _, o := range origins {
			if s := strings.TrimSpace(o); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			allowedOrigins = trimmed
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check — public, no auth required
	r.Get("/health", h.Health)

	// Completed artifacts, directly linkable
	if cfg.OutputDir != "" {
		fs := http.FileServer(http.Dir(cfg.OutputDir))
		r.Handle("/outputs/*", http.StripPrefix("/outputs/", fs))
	}

	r.Route("/api", func(r chi.Router) {
		// The vendor authenticates the webhook with its own shared secret,
		// not the backend API key
		r.With(WebhookAuth(cfg.WebhookSecret)).Post("/sora/webhook", h.SoraWebhook)

		r.Group(func(r chi.Router) {
			if cfg.BackendAPIKey != "" {
				r.Use(APIKeyAuth(cfg.BackendAPIKey))
			}

			// Standard pipeline
			r.Post("/generate-video", h.GenerateVideo)
			r.Get("/video-status/{videoID}", h.VideoStatus)
			r.Get("/download-video/{videoID}", h.DownloadVideo)
			r.Get("/download-thumbnail/{videoID}", h.DownloadThumbnail)
			r.Post("/upload-product-image", h.UploadProductImage)

			// Hosted text-to-video
			r.Post("/sora/generate-video", h.SoraGenerate)
			r.Get("/sora/video-status/{videoID}", h.SoraStatus)
			r.Post("/sora/remix-video", h.SoraRemix)
			r.Get("/sora/videos", h.SoraList)
			r.Delete("/sora/videos/{videoID}", h.SoraDelete)
			r.Get("/sora/download-video/{videoID}", h.SoraDownloadVideo)
			r.Get("/sora/download-thumbnail/{videoID}", h.SoraDownloadThumbnail)
			r.Get("/sora/download-spritesheet/{videoID}", h.SoraDownloadSpritesheet)
		})
	})

	return r
}
