// Package frame turns a judged playback second into the bytes of a single
// PNG frame, using ffprobe for stream properties and ffmpeg for the
// extraction itself.
package frame

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fpang/video-frame-finder/internal/fault"
)

// Extractor extracts single frames from local video files.
type Extractor struct {
	ffmpegPath  string
	ffprobePath string
}

// NewExtractor locates the ffmpeg and ffprobe binaries. Both are required;
// failing here lets the process refuse to start instead of failing on the
// first notification.
func NewExtractor() (*Extractor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}
	return &Extractor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}, nil
}

// FrameIndex converts a playback second to a frame index at the given rate,
// rounding half away from zero.
func FrameIndex(second, fps float64) int {
	return int(math.Round(second * fps))
}

// ExtractAt returns the PNG bytes of the frame nearest to the judged second.
// The second is validated against the container duration before any
// extraction work happens.
func (e *Extractor) ExtractAt(ctx context.Context, videoPath string, second float64) ([]byte, error) {
	info, err := e.probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	if info.Duration > 0 && second > info.Duration {
		return nil, fault.Newf(fault.KindTimestampOutOfRange,
			"judged second %.3f is beyond the %.3fs video", second, info.Duration)
	}

	index := FrameIndex(second, info.FPS)
	log.Debug().
		Float64("second", second).
		Float64("fps", info.FPS).
		Int("frame_index", index).
		Str("video", filepath.Base(videoPath)).
		Msg("Extracting frame")

	out, err := os.CreateTemp("", "frame-out-*.png")
	if err != nil {
		return nil, fault.Wrap(fault.KindFrameDecodeFailed, "create frame output file", err)
	}
	outPath := out.Name()
	out.Close()
	defer func() {
		if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", outPath).Msg("Failed to remove frame output file")
		}
	}()

	args := []string{
		"-i", videoPath,
		"-vf", fmt.Sprintf(`select=eq(n\,%d)`, index),
		"-vframes", "1",
		"-vsync", "0",
		"-y", outPath,
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Error().Err(err).Str("output", string(output)).Msg("ffmpeg frame extraction failed")
		return nil, fault.Wrap(fault.KindFrameDecodeFailed, "frame extraction failed", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fault.Wrap(fault.KindFrameDecodeFailed, "read extracted frame", err)
	}
	if len(data) == 0 {
		return nil, fault.Newf(fault.KindFrameDecodeFailed, "no frame produced at index %d", index)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fault.Wrap(fault.KindFrameDecodeFailed, "extracted frame is not a valid PNG", err)
	}

	log.Debug().
		Int("frame_index", index).
		Int("size_bytes", len(data)).
		Msg("Frame extracted")

	return data, nil
}
