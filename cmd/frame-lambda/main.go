// Package main provides the Lambda entry point for the frame-finder API.
//
// API Gateway events are translated back into plain HTTP requests, so the
// exact same handler serves here and in cmd/frame-web. Everything heavy --
// AWS clients, the Gemini client, the ffmpeg lookup -- happens once at cold
// start; a misconfigured function refuses to start instead of failing per
// request.
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/video-frame-finder/internal/analysis"
	"github.com/fpang/video-frame-finder/internal/config"
	"github.com/fpang/video-frame-finder/internal/frame"
	"github.com/fpang/video-frame-finder/internal/httpapi"
	"github.com/fpang/video-frame-finder/internal/lambdaboot"
	"github.com/fpang/video-frame-finder/internal/logging"
	"github.com/fpang/video-frame-finder/internal/pipeline"
	"github.com/fpang/video-frame-finder/internal/s3util"
)

var handler *httpapi.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	clients := lambdaboot.InitAWS()
	lambdaboot.LoadGeminiKey(clients.SSM)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
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
	handler = httpapi.NewHandler(p)

	lambdaboot.StartupLog("frame-lambda", initStart).
		S3Bucket("outputBucket", cfg.OutputBucket).
		SSMParam("geminiApiKey", lambdaboot.DefaultAPIKeyParam).
		Feature("publishThumbnail", cfg.PublishThumbnail).
		Config("model", cfg.GeminiModel).
		Config("pollInterval", cfg.PollInterval.String()).
		Config("pollTimeout", cfg.PollTimeout.String()).
		Log()
}

func main() {
	adapter := httpadapter.NewV2(handler.Mux())
	lambda.Start(adapter.ProxyWithContext)
}
