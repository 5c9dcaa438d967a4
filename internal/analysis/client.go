// Package analysis submits a video to the Gemini API and extracts a single
// structured judgment: whether the target moment occurs in the footage and,
// if so, at which second.
//
// The flow mirrors the Files API contract: upload, wait for the file to
// leave the processing state, run one generate call against the file
// reference, then delete the remote file. Videos cannot be inlined into
// the request; the Files API reference is the only path for footage of any
// real size.
package analysis

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/video-frame-finder/internal/fault"
	"github.com/fpang/video-frame-finder/internal/metrics"
)

// Options configure the Gemini-backed client.
type Options struct {
	// Model is the Gemini model name used for the judgment call.
	Model string

	// PollInterval is the delay between Files API state checks.
	PollInterval time.Duration

	// PollTimeout bounds the total wait for remote processing. The Files
	// API gives no completion signal other than polling, so the budget is
	// what stands between a stuck upload and an invocation that never
	// returns.
	PollTimeout time.Duration
}

// Client wraps the Gemini API for the one judgment the pipeline needs.
type Client struct {
	genai        *genai.Client
	model        string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewClient builds an analysis client against the Gemini API backend.
func NewClient(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fault.Wrap(fault.KindAnalysisRejected, "create Gemini client", err)
	}
	return &Client{
		genai:        gc,
		model:        opts.Model,
		pollInterval: opts.PollInterval,
		pollTimeout:  opts.PollTimeout,
	}, nil
}

// Judge uploads the video at videoPath, waits for the Files API to finish
// processing it, asks the model for a judgment, and deletes the remote file.
// Remote deletion is best-effort and logged; the local file stays the
// caller's to clean up.
func (c *Client) Judge(ctx context.Context, videoPath string) (Judgment, error) {
	f, err := os.Open(videoPath)
	if err != nil {
		return Judgment{}, fault.Wrap(fault.KindAnalysisRejected, "open local artifact", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Judgment{}, fault.Wrap(fault.KindAnalysisRejected, "stat local artifact", err)
	}

	mimeType := VideoMIMEType(videoPath)
	log.Debug().
		Str("path", videoPath).
		Int64("size_bytes", info.Size()).
		Str("mime_type", mimeType).
		Str("model", c.model).
		Msg("Starting Gemini Files API upload")

	var uploaded *genai.File
	defer func() {
		if uploaded == nil {
			return
		}
		if _, err := c.genai.Files.Delete(ctx, uploaded.Name, nil); err != nil {
			log.Warn().Err(err).Str("file", uploaded.Name).Msg("Failed to delete uploaded Gemini file")
		} else {
			log.Debug().Str("file", uploaded.Name).Msg("Uploaded Gemini file deleted")
		}
	}()

	uploadStart := time.Now()
	err = withRetry(ctx, "upload", func() error {
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
			return seekErr
		}
		file, uploadErr := c.genai.Files.Upload(ctx, f, &genai.UploadFileConfig{
			MIMEType: mimeType,
		})
		if uploadErr != nil {
			return uploadErr
		}
		uploaded = file
		return nil
	})
	if err != nil {
		return Judgment{}, classify(err, "upload video for analysis")
	}

	log.Debug().
		Str("name", uploaded.Name).
		Str("uri", uploaded.URI).
		Dur("upload_duration", time.Since(uploadStart)).
		Msg("Video uploaded to Gemini, waiting for processing")

	ready, err := c.awaitProcessing(ctx, uploaded)
	if err != nil {
		return Judgment{}, err
	}

	log.Info().
		Str("name", ready.Name).
		Str("state", string(ready.State)).
		Dur("total_duration", time.Since(uploadStart)).
		Msg("Gemini file ready for judgment")

	return c.generateJudgment(ctx, ready)
}

// awaitProcessing polls the Files API until the file leaves the processing
// state or the wait budget runs out. Transient poll failures are absorbed by
// the loop; the deadline is the only bound.
func (c *Client) awaitProcessing(ctx context.Context, file *genai.File) (*genai.File, error) {
	deadline := time.Now().Add(c.pollTimeout)

	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			return nil, fault.Newf(fault.KindAnalysisTimeout, "analysis not ready after %s", c.pollTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, fault.Wrap(fault.KindAnalysisTimeout, "canceled while waiting for analysis readiness", ctx.Err())
		case <-time.After(c.pollInterval):
		}

		next, err := c.genai.Files.Get(ctx, file.Name, nil)
		if err != nil {
			if !isTransient(err) {
				return nil, classify(err, "poll analysis state")
			}
			log.Warn().Err(err).Str("file", file.Name).Msg("Transient poll failure, retrying within budget")
			continue
		}
		file = next
	}

	if file.State == genai.FileStateFailed {
		return nil, fault.Newf(fault.KindAnalysisRejected, "remote processing failed for %s", file.Name)
	}
	return file, nil
}

// generateJudgment runs the single structured query against the processed
// file and parses the response strictly.
func (c *Client) generateJudgment(ctx context.Context, file *genai.File) (Judgment, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: judgmentSystemInstruction}},
		},
		MaxOutputTokens: 1024,
	}

	parts := []*genai.Part{
		{FileData: &genai.FileData{MIMEType: file.MIMEType, FileURI: file.URI}},
		{Text: judgmentPrompt},
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	genStart := time.Now()
	var resp *genai.GenerateContentResponse
	err := withRetry(ctx, "generate", func() error {
		r, genErr := c.genai.Models.GenerateContent(ctx, c.model, contents, config)
		if genErr != nil {
			return genErr
		}
		resp = r
		return nil
	})
	elapsed := time.Since(genStart)

	m := metrics.New().
		Dimension("Operation", "judge").
		Metric("GeminiApiLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls")
	if err != nil {
		m.Count("GeminiApiErrors")
	}
	if resp != nil && resp.UsageMetadata != nil {
		m.Metric("GeminiInputTokens", float64(resp.UsageMetadata.PromptTokenCount), metrics.UnitCount)
		m.Metric("GeminiOutputTokens", float64(resp.UsageMetadata.CandidatesTokenCount), metrics.UnitCount)
	}
	m.Flush()

	if err != nil {
		log.Error().Err(err).Dur("duration", elapsed).Msg("Gemini judgment call failed")
		return Judgment{}, classify(err, "generate judgment")
	}

	if resp == nil || resp.Text() == "" {
		return Judgment{}, fault.New(fault.KindAnalysisMalformed, "empty response from analysis model")
	}

	log.Debug().
		Int("response_length", len(resp.Text())).
		Dur("duration", elapsed).
		Msg("Gemini judgment response received")

	return ParseJudgment(resp.Text())
}

// classify wraps an external-call failure as a fault unless it already is one.
func classify(err error, action string) error {
	if fe := fault.Of(err); fe != nil {
		return fe
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fault.Wrap(fault.KindAnalysisTimeout, action+" canceled", err)
	}
	return fault.Wrap(fault.KindAnalysisRejected, action+" failed", err)
}

// videoMIMETypes maps the video extensions the pipeline accepts to the MIME
// type sent with the Files API upload.
var videoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

// VideoMIMEType returns the MIME type for the file's extension, defaulting
// to video/mp4 for anything unrecognized. The Files API needs a video MIME
// type; a wrong subtype is recoverable, a missing one is not.
func VideoMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := videoMIMETypes[ext]; ok {
		return mt
	}
	return "video/mp4"
}
