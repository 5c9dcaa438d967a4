// Package pipeline runs one storage notification end to end: normalize,
// fetch the video, judge it, extract the judged frame, publish the PNG.
//
// The pipeline owns the lifecycle and the cleanup guarantees. Collaborators
// are narrow interfaces so the whole flow is testable without S3, Gemini,
// or ffmpeg.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/video-frame-finder/internal/analysis"
	"github.com/fpang/video-frame-finder/internal/event"
	"github.com/fpang/video-frame-finder/internal/fault"
	"github.com/fpang/video-frame-finder/internal/frame"
	"github.com/fpang/video-frame-finder/internal/metrics"
)

// Fetcher downloads a source object to a local file. The returned cleanup
// func removes the file and must be safe to call exactly once on every
// outcome.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key string) (string, func(), error)
}

// Analyzer judges a local video file.
type Analyzer interface {
	Judge(ctx context.Context, videoPath string) (analysis.Judgment, error)
}

// Extractor produces the PNG bytes of the frame at a judged second.
type Extractor interface {
	ExtractAt(ctx context.Context, videoPath string, second float64) ([]byte, error)
}

// ObjectStore is the output side: existence checks and writes.
type ObjectStore interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// Config carries the publish-side settings.
type Config struct {
	OutputBucket     string
	PublishThumbnail bool
	ThumbnailMaxDim  int
}

// Pipeline coordinates the stages for one notification at a time. A single
// value is safe for concurrent Run calls; all per-invocation state lives on
// the stack.
type Pipeline struct {
	fetcher   Fetcher
	analyzer  Analyzer
	extractor Extractor
	store     ObjectStore
	cfg       Config
}

// New assembles a pipeline from its collaborators.
func New(fetcher Fetcher, analyzer Analyzer, extractor Extractor, store ObjectStore, cfg Config) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		analyzer:  analyzer,
		extractor: extractor,
		store:     store,
		cfg:       cfg,
	}
}

// Outcome is the terminal result of one notification.
type Outcome struct {
	State  State
	Source event.SourceReference

	// Second is the judged playback second, meaningful once the state has
	// passed ANALYZED with a positive judgment.
	Second float64

	// FrameKey is the output object key, set when the state reaches
	// PUBLISHED.
	FrameKey string

	// Written reports whether this invocation wrote the frame. False on a
	// PUBLISHED outcome means the frame already existed.
	Written bool

	// Err classifies the failure when State is FAILED.
	Err *fault.Error
}

// OutputKey derives the deterministic output object key for a source key
// and judged second. The second is rendered with one decimal so reruns of
// the same video land on the same key.
func OutputKey(sourceKey string, second float64) string {
	return fmt.Sprintf("%s-kid-67-frame-%.1fs.png", sourceKey, second)
}

// Run processes one raw notification payload to a terminal outcome. It
// never returns an error; failures are part of the outcome so the caller
// has exactly one result shape to map.
func (p *Pipeline) Run(ctx context.Context, payload []byte) (out Outcome) {
	start := time.Now()
	out.State = StateReceived

	defer func() {
		m := metrics.New().
			Dimension("Operation", "pipeline").
			Latency("PipelineLatencyMs", start).
			Count("PipelineInvocations").
			Property("state", string(out.State))
		if out.Source.Key != "" {
			m.Property("bucket", out.Source.Bucket).Property("key", out.Source.Key)
		}
		switch out.State {
		case StatePublished:
			m.Count("FramesPublished")
		case StateSkipped:
			m.Count("NotificationsSkipped")
		case StateFailed:
			m.Count("PipelineFailures")
			if out.Err != nil {
				m.Property("kind", string(out.Err.Kind))
			}
		}
		m.Flush()
	}()

	src, err := event.Normalize(payload)
	if err != nil {
		return out.fail(err, fault.KindMalformedEvent)
	}
	out.Source = src
	out.State = StateNormalized

	log.Info().
		Str("bucket", src.Bucket).
		Str("key", src.Key).
		Msg("Processing video notification")

	videoPath, cleanup, err := p.fetcher.Fetch(ctx, src.Bucket, src.Key)
	if err != nil {
		return out.fail(err, fault.KindStorageUnavailable)
	}
	defer cleanup()
	out.State = StateFetched

	judgment, err := p.analyzer.Judge(ctx, videoPath)
	if err != nil {
		return out.fail(err, fault.KindAnalysisRejected)
	}
	out.State = StateAnalyzed

	if !judgment.Found {
		out.State = StateSkipped
		log.Info().
			Str("bucket", src.Bucket).
			Str("key", src.Key).
			Msg("No matching moment found, nothing to publish")
		return out
	}
	out.Second = judgment.Second

	log.Info().
		Float64("second", judgment.Second).
		Str("key", src.Key).
		Msg("Matching moment judged, extracting frame")

	frameData, err := p.extractor.ExtractAt(ctx, videoPath, judgment.Second)
	if err != nil {
		return out.fail(err, fault.KindFrameDecodeFailed)
	}
	out.State = StateExtracted

	frameKey := OutputKey(src.Key, judgment.Second)
	out.FrameKey = frameKey

	exists, err := p.store.Exists(ctx, p.cfg.OutputBucket, frameKey)
	if err != nil {
		return out.fail(fault.Wrap(fault.KindPublishFailed, "check for existing frame", err), fault.KindPublishFailed)
	}
	if exists {
		out.State = StatePublished
		log.Info().
			Str("bucket", p.cfg.OutputBucket).
			Str("key", frameKey).
			Msg("Frame already published, skipping write")
		return out
	}

	if err := p.store.Put(ctx, p.cfg.OutputBucket, frameKey, frameData, "image/png"); err != nil {
		return out.fail(fault.Wrap(fault.KindPublishFailed, "publish frame", err), fault.KindPublishFailed)
	}
	out.Written = true
	out.State = StatePublished

	log.Info().
		Str("bucket", p.cfg.OutputBucket).
		Str("key", frameKey).
		Int("size_bytes", len(frameData)).
		Msg("Frame published")

	if p.cfg.PublishThumbnail {
		p.publishPreview(ctx, frameKey, frameData)
	}
	return out
}

// fail marks the outcome terminal with a classified fault. Stage errors
// that are not already faults get the stage's fallback kind.
func (out Outcome) fail(err error, fallback fault.Kind) Outcome {
	fe := fault.Of(err)
	if fe == nil {
		fe = fault.Wrap(fallback, "stage failed", err)
	}
	out.State = StateFailed
	out.Err = fe
	log.Error().
		Err(err).
		Str("kind", string(fe.Kind)).
		Str("bucket", out.Source.Bucket).
		Str("key", out.Source.Key).
		Msg("Pipeline failed")
	return out
}

// publishPreview writes a small JPEG companion next to the published frame.
// The frame is already durable at this point, so preview failures only log.
func (p *Pipeline) publishPreview(ctx context.Context, frameKey string, frameData []byte) {
	preview, err := frame.PreviewJPEG(frameData, p.cfg.ThumbnailMaxDim)
	if err != nil {
		log.Warn().Err(err).Str("key", frameKey).Msg("Preview generation failed")
		return
	}
	previewKey := frameKey + ".thumb.jpg"
	exists, err := p.store.Exists(ctx, p.cfg.OutputBucket, previewKey)
	if err != nil {
		log.Warn().Err(err).Str("key", previewKey).Msg("Preview existence check failed")
		return
	}
	if exists {
		log.Debug().Str("key", previewKey).Msg("Preview already published")
		return
	}
	if err := p.store.Put(ctx, p.cfg.OutputBucket, previewKey, preview, "image/jpeg"); err != nil {
		log.Warn().Err(err).Str("key", previewKey).Msg("Preview upload failed")
		return
	}
	log.Debug().Str("key", previewKey).Msg("Preview published")
}
