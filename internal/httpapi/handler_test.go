package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fpang/video-frame-finder/internal/event"
	"github.com/fpang/video-frame-finder/internal/fault"
	"github.com/fpang/video-frame-finder/internal/pipeline"
)

type fakeRunner struct {
	out      pipeline.Outcome
	payloads [][]byte
}

func (f *fakeRunner) Run(ctx context.Context, payload []byte) pipeline.Outcome {
	f.payloads = append(f.payloads, payload)
	return f.out
}

func serve(t *testing.T, runner Runner, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	NewHandler(runner).Mux().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not JSON: %v (body: %s)", err, rr.Body.String())
	}
	return m
}

func TestNotification_Published(t *testing.T) {
	runner := &fakeRunner{out: pipeline.Outcome{
		State:    pipeline.StatePublished,
		Source:   event.SourceReference{Bucket: "raw", Key: "67.mp4"},
		Second:   3.8,
		FrameKey: "67.mp4-kid-67-frame-3.8s.png",
		Written:  true,
	}}

	rr := serve(t, runner, http.MethodPost, "/", `{"bucket":"raw","name":"67.mp4"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	body := decodeBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["kid_detected"] != true {
		t.Errorf("expected kid_detected true, got %v", body["kid_detected"])
	}
	if body["timestamp_seconds"] != 3.8 {
		t.Errorf("expected timestamp_seconds 3.8, got %v", body["timestamp_seconds"])
	}
	if body["frame_saved"] != true {
		t.Errorf("expected frame_saved true, got %v", body["frame_saved"])
	}
	if body["frame_name"] != "67.mp4-kid-67-frame-3.8s.png" {
		t.Errorf("expected frame name in response, got %v", body["frame_name"])
	}
}

func TestNotification_AlreadyPublished(t *testing.T) {
	runner := &fakeRunner{out: pipeline.Outcome{
		State:    pipeline.StatePublished,
		Second:   3.8,
		FrameKey: "67.mp4-kid-67-frame-3.8s.png",
		Written:  false,
	}}

	rr := serve(t, runner, http.MethodPost, "/", `{"bucket":"raw","name":"67.mp4"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["frame_saved"] != false {
		t.Errorf("expected frame_saved false for an existing frame, got %v", body["frame_saved"])
	}
}

func TestNotification_Skipped(t *testing.T) {
	runner := &fakeRunner{out: pipeline.Outcome{State: pipeline.StateSkipped}}

	rr := serve(t, runner, http.MethodPost, "/", `{"bucket":"raw","name":"67.mp4"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["kid_detected"] != false {
		t.Errorf("expected kid_detected false, got %v", body["kid_detected"])
	}
	if body["message"] != "No kid saying '67' found in video" {
		t.Errorf("unexpected skip message %v", body["message"])
	}
	if _, ok := body["frame_name"]; ok {
		t.Error("skip response must not name a frame")
	}
}

func TestNotification_FailureMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *fault.Error
		wantStatus int
	}{
		{
			name:       "malformed event",
			err:        fault.New(fault.KindMalformedEvent, "missing bucket or name"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "source not found",
			err:        fault.New(fault.KindSourceNotFound, "object raw/67.mp4 does not exist"),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "analysis timeout",
			err:        fault.New(fault.KindAnalysisTimeout, "analysis not ready after 5m0s"),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "publish failed",
			err:        fault.New(fault.KindPublishFailed, "publish frame"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{out: pipeline.Outcome{State: pipeline.StateFailed, Err: tt.err}}

			rr := serve(t, runner, http.MethodPost, "/", `{}`)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			body := decodeBody(t, rr)
			if body["status"] != "error" {
				t.Errorf("expected status error, got %v", body["status"])
			}
			if body["kind"] != string(tt.err.Kind) {
				t.Errorf("expected kind %s, got %v", tt.err.Kind, body["kind"])
			}
			if body["message"] != tt.err.Message {
				t.Errorf("expected message %q, got %v", tt.err.Message, body["message"])
			}
		})
	}
}

func TestNotification_PayloadReachesRunner(t *testing.T) {
	runner := &fakeRunner{out: pipeline.Outcome{State: pipeline.StateSkipped}}
	payload := `{"data":{"bucket":"raw","name":"67.mp4"}}`

	serve(t, runner, http.MethodPost, "/", payload)

	if len(runner.payloads) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runner.payloads))
	}
	if string(runner.payloads[0]) != payload {
		t.Errorf("payload was altered in transit: %s", runner.payloads[0])
	}
}

func TestNotification_MethodNotAllowed(t *testing.T) {
	runner := &fakeRunner{}

	rr := serve(t, runner, http.MethodGet, "/", "")

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
	if len(runner.payloads) != 0 {
		t.Error("pipeline must not run for non-POST requests")
	}
}

func TestNotification_UnknownPath(t *testing.T) {
	runner := &fakeRunner{}

	rr := serve(t, runner, http.MethodPost, "/frames", `{}`)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if len(runner.payloads) != 0 {
		t.Error("pipeline must not run for unknown paths")
	}
}

func TestHealth(t *testing.T) {
	rr := serve(t, &fakeRunner{}, http.MethodGet, "/health", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	rr := serve(t, &fakeRunner{}, http.MethodPost, "/health", "")

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}
