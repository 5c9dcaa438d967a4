package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/video-frame-finder/internal/analysis"
	"github.com/fpang/video-frame-finder/internal/config"
	"github.com/fpang/video-frame-finder/internal/frame"
	"github.com/fpang/video-frame-finder/internal/httpapi"
	"github.com/fpang/video-frame-finder/internal/lambdaboot"
	"github.com/fpang/video-frame-finder/internal/logging"
	"github.com/fpang/video-frame-finder/internal/pipeline"
	"github.com/fpang/video-frame-finder/internal/s3util"
)

// CLI flags
var (
	addrFlag  string
	modelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "frame-web",
	Short: "Notification endpoint that finds and publishes the judged video frame",
	Long: `Frame Web runs the frame-finder pipeline behind a standalone HTTP server.
POST a storage notification to / and the server downloads the video, asks
Gemini for the moment a kid says "67", extracts that frame, and publishes it
to the output bucket.

Examples:
  frame-web
  frame-web --addr :9090
  frame-web --model gemini-3-pro-preview`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (overrides LISTEN_ADDR)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model to use (overrides GEMINI_MODEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()

	clients := lambdaboot.InitAWS()
	lambdaboot.LoadGeminiKey(clients.SSM)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if addrFlag != "" {
		cfg.ListenAddr = addrFlag
	}
	if modelFlag != "" {
		cfg.GeminiModel = modelFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	analyzer, err := analysis.NewClient(context.Background(), cfg.GeminiAPIKey, analysis.Options{
		Model:        cfg.GeminiModel,
		PollInterval: cfg.PollInterval,
		PollTimeout:  cfg.PollTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create analysis client")
	}

	extractor, err := frame.NewExtractor()
	if err != nil {
		log.Fatal().Err(err).Msg("Frame extraction tooling unavailable")
	}

	store := s3util.NewStore(lambdaboot.InitS3(clients.Config))
	p := pipeline.New(store, analyzer, extractor, store, pipeline.Config{
		OutputBucket:     cfg.OutputBucket,
		PublishThumbnail: cfg.PublishThumbnail,
		ThumbnailMaxDim:  cfg.ThumbnailMaxDim,
	})
	h := httpapi.NewHandler(p)

	lambdaboot.StartupLog("frame-web", initStart).
		S3Bucket("outputBucket", cfg.OutputBucket).
		Feature("publishThumbnail", cfg.PublishThumbnail).
		Config("model", cfg.GeminiModel).
		Config("pollInterval", cfg.PollInterval.String()).
		Config("pollTimeout", cfg.PollTimeout.String()).
		Config("addr", cfg.ListenAddr).
		Log()

	srv := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     h.Mux(),
		ReadTimeout: 30 * time.Second,
		// A notification response can take as long as the analysis wait
		// budget, so the write timeout has to outlive it.
		WriteTimeout: cfg.PollTimeout + 2*time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("Starting web server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
