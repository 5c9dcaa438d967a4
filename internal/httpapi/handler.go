// Package httpapi exposes the frame-finder pipeline over HTTP.
//
// Two routes exist: POST / accepts a storage notification and runs it to a
// terminal outcome, GET /health answers liveness probes. Every response is
// JSON; the error shape carries the failure kind so callers can branch
// without parsing prose.
package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/video-frame-finder/internal/pipeline"
)

// maxBodySize is the maximum allowed request body size (1 MB). Storage
// notifications are small; anything larger is not a notification.
const maxBodySize = 1 << 20 // 1 MB

// notFoundMessage is the skip explanation returned when the judgment finds
// no matching moment.
const notFoundMessage = "No kid saying '67' found in video"

// Runner is the pipeline surface the handler drives.
type Runner interface {
	Run(ctx context.Context, payload []byte) pipeline.Outcome
}

// Handler routes notification and health traffic to the pipeline.
type Handler struct {
	runner Runner
}

// NewHandler creates the HTTP handler around a pipeline.
func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// Mux returns the routed handler with per-request metrics attached. Both
// entrypoints serve this mux, one behind a Lambda adapter and one behind a
// plain listener.
func (h *Handler) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/", h.handleNotification)
	return withMetrics(mux)
}

type foundResponse struct {
	Status           string  `json:"status"`
	KidDetected      bool    `json:"kid_detected"`
	TimestampSeconds float64 `json:"timestamp_seconds"`
	FrameSaved       bool    `json:"frame_saved"`
	FrameName        string  `json:"frame_name"`
}

type notFoundResponse struct {
	Status      string `json:"status"`
	KidDetected bool   `json:"kid_detected"`
	Message     string `json:"message"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// handleNotification accepts one storage notification and maps the pipeline
// outcome to the wire.
func (h *Handler) handleNotification(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httpError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read notification body")
		httpError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	defer r.Body.Close()

	invocationID := uuid.NewString()
	log.Info().
		Str("invocation_id", invocationID).
		Int("body_size", len(body)).
		Msg("Notification received")

	out := h.runner.Run(r.Context(), body)

	switch out.State {
	case pipeline.StatePublished:
		respondJSON(w, http.StatusOK, foundResponse{
			Status:           "ok",
			KidDetected:      true,
			TimestampSeconds: out.Second,
			FrameSaved:       out.Written,
			FrameName:        out.FrameKey,
		})
	case pipeline.StateSkipped:
		respondJSON(w, http.StatusOK, notFoundResponse{
			Status:      "ok",
			KidDetected: false,
			Message:     notFoundMessage,
		})
	default:
		fe := out.Err
		if fe == nil {
			// A non-terminal state here is a bug; answer as an internal error.
			log.Error().Str("state", string(out.State)).Msg("Pipeline returned non-terminal state")
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(w, fe.HTTPStatus(), errorResponse{
			Status:  "error",
			Kind:    string(fe.Kind),
			Message: fe.Message,
		})
	}
}

// handleHealth answers liveness probes.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
