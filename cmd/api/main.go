package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/api"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/config"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/pipeline"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/services"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/storage"
	"github.com/montblanchotta-tech/ugc-video-tool-sora2/internal/store"
)

func main() {
	log.Println("Starting UGC Video API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Job status store — in-memory by default, Redis/Postgres when configured
	jobStore, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize job store: %v", err)
	}
	defer jobStore.Close()
	log.Printf("Job store: %s", cfg.StatusStore)

	// Local disk storage
	stor, err := storage.New(cfg.UploadDir, cfg.OutputDir, cfg.TempDir)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Printf("Storage ready (uploads=%s, outputs=%s, temp=%s)", cfg.UploadDir, cfg.OutputDir, cfg.TempDir)

	// Vendor adapters — missing keys degrade to placeholders inside each
	// adapter, the pipeline itself doesn't care
	geminiSvc := services.NewGeminiService(cfg.GeminiKey, cfg.GeminiBaseURL)
	ttsSvc := services.NewFishAudioService(cfg.FishAudioKey, cfg.FishAudioBaseURL, cfg.FishAudioReferenceID)
	hedraSvc := services.NewHedraService(cfg.HedraKey, cfg.HedraBaseURL)
	ffmpegSvc := services.NewFFmpegService()

	if cfg.GeminiKey == "" {
		log.Println("WARNING: No GEMINI_API_KEY — image generation will pass product images through")
	}
	if cfg.FishAudioKey == "" {
		log.Println("WARNING: No FISHAUDIO_API_KEY — voiceovers will be placeholder audio")
	}
	if cfg.HedraKey == "" {
		log.Println("WARNING: No HEDRA_API_KEY — videos will be placeholder files")
	}

	// Optional script polish — nil when no OpenAI key
	var enhancer services.ScriptEnhancer
	if cfg.OpenAIKey != "" {
		enhancer = services.NewOpenAIService(cfg.OpenAIKey)
		log.Println("Script polish enabled")
	}

	p := pipeline.New(jobStore, stor, geminiSvc, ttsSvc, hedraSvc, ffmpegSvc, enhancer)

	// Hosted text-to-video — shares the OpenAI key
	var soraSvc services.SoraClient
	if cfg.OpenAIKey != "" {
		soraSvc = services.NewSoraService(cfg.OpenAIKey, cfg.SoraBaseURL)
		log.Println("Hosted text-to-video enabled")
	} else {
		log.Println("WARNING: No OPENAI_API_KEY — /api/sora endpoints disabled")
	}
	monitor := pipeline.NewMonitor(jobStore, stor, soraSvc)

	// HTTP surface
	handler := api.NewHandler(jobStore, stor, p, soraSvc, monitor)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		OutputDir:          cfg.OutputDir,
		WebhookSecret:      cfg.WebhookSecret,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StatusStore {
	case "redis":
		return store.NewRedisStore(cfg.RedisURL)
	case "postgres":
		return store.NewPostgresStore(cfg.DatabaseURL)
	default:
		return store.NewMemoryStore(), nil
	}
}
