package frame

// probe.go reads stream properties out of a video with ffprobe. The
// extractor needs exactly two numbers from the container: the duration, to
// reject judgments past the end of the footage, and the frame rate, to turn
// a playback second into a frame index.

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/video-frame-finder/internal/fault"
)

// defaultFPS stands in when the container reports no usable frame rate.
const defaultFPS = 30.0

// VideoInfo holds the stream properties the extractor works from.
type VideoInfo struct {
	// Duration is the container duration in seconds, 0 when unknown.
	Duration float64

	// FPS is the video stream frame rate.
	FPS float64

	Width  int
	Height int
	Codec  string
}

// ffprobeOutput represents the JSON structure from ffprobe.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	Duration   string `json:"duration"`
}

// probe runs ffprobe against the file and parses the result.
func (e *Extractor) probe(ctx context.Context, videoPath string) (VideoInfo, error) {
	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return VideoInfo{}, fault.Wrap(fault.KindFrameDecodeFailed, "ffprobe failed on downloaded video", err)
	}

	info, err := parseProbeOutput(output)
	if err != nil {
		return VideoInfo{}, err
	}

	log.Debug().
		Float64("duration_s", info.Duration).
		Float64("fps", info.FPS).
		Int("width", info.Width).
		Int("height", info.Height).
		Str("codec", info.Codec).
		Msg("Video probed")

	return info, nil
}

// parseProbeOutput extracts duration and frame rate from ffprobe JSON.
// The format-level duration wins; the video stream's duration is the
// fallback for containers that only report it per stream.
func parseProbeOutput(output []byte) (VideoInfo, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return VideoInfo{}, fault.Wrap(fault.KindFrameDecodeFailed, "unparsable ffprobe output", err)
	}

	var info VideoInfo
	if probe.Format.Duration != "" {
		if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = dur
		}
	}

	found := false
	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}
		found = true
		info.Width = stream.Width
		info.Height = stream.Height
		info.Codec = stream.CodecName
		if stream.RFrameRate != "" {
			info.FPS = parseFrameRate(stream.RFrameRate)
		}
		if info.Duration == 0 && stream.Duration != "" {
			if dur, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
				info.Duration = dur
			}
		}
		break
	}

	if !found {
		return VideoInfo{}, fault.New(fault.KindFrameDecodeFailed, "no video stream in downloaded object")
	}
	if info.FPS <= 0 {
		info.FPS = defaultFPS
	}
	return info, nil
}

// parseFrameRate parses an ffprobe rate expression like "60/1" or "30000/1001".
func parseFrameRate(value string) float64 {
	parts := strings.Split(value, "/")
	if len(parts) == 2 {
		num, _ := strconv.ParseFloat(parts[0], 64)
		den, _ := strconv.ParseFloat(parts[1], 64)
		if den != 0 {
			return num / den
		}
	}
	rate, _ := strconv.ParseFloat(value, 64)
	return rate
}
