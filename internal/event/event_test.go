package event

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/fpang/video-frame-finder/internal/fault"
)

func TestNormalize_AllShapesEquivalent(t *testing.T) {
	inner := `{"bucket":"raw","name":"67.mp4"}`
	encoded := base64.StdEncoding.EncodeToString([]byte(inner))

	tests := []struct {
		name    string
		payload string
	}{
		{"top-level", `{"bucket":"raw","name":"67.mp4","contentType":"video/mp4","size":1048576}`},
		{"nested data object", fmt.Sprintf(`{"data":%s}`, inner)},
		{"base64 data string", fmt.Sprintf(`{"data":%q}`, encoded)},
	}

	want := SourceReference{Bucket: "raw", Key: "67.mp4"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize([]byte(tt.payload))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != want {
				t.Errorf("expected %+v, got %+v", want, got)
			}
		})
	}
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty object", `{}`},
		{"bucket only", `{"bucket":"raw"}`},
		{"name only", `{"name":"67.mp4"}`},
		{"empty strings", `{"bucket":"","name":""}`},
		{"data object missing name", `{"data":{"bucket":"raw"}}`},
		{"data is a number", `{"data":42}`},
		{"data not base64", `{"data":"%%%not-base64%%%"}`},
		{"base64 of non-JSON", fmt.Sprintf(`{"data":%q}`, base64.StdEncoding.EncodeToString([]byte("plain text")))},
		{"base64 of incomplete JSON", fmt.Sprintf(`{"data":%q}`, base64.StdEncoding.EncodeToString([]byte(`{"bucket":"raw"}`)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize([]byte(tt.payload))
			if err == nil {
				t.Fatal("expected error")
			}
			fe := fault.Of(err)
			if fe == nil {
				t.Fatalf("expected a fault, got %v", err)
			}
			if fe.Kind != fault.KindMalformedEvent {
				t.Errorf("expected MALFORMED_EVENT fault, got %v", err)
			}
			if fe.Message != "missing bucket or name" {
				t.Errorf("expected message %q, got %q", "missing bucket or name", fe.Message)
			}
		})
	}
}

func TestNormalize_InvalidJSON(t *testing.T) {
	_, err := Normalize([]byte("not json at all"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !fault.IsKind(err, fault.KindMalformedEvent) {
		t.Errorf("expected MALFORMED_EVENT fault, got %v", err)
	}
}

func TestNormalize_NoMergeAcrossShapes(t *testing.T) {
	// Top-level bucket plus name hidden in data must not combine.
	payload := `{"bucket":"raw","data":{"name":"67.mp4"}}`
	_, err := Normalize([]byte(payload))
	if err == nil {
		t.Fatal("expected error for split fields")
	}
	if !fault.IsKind(err, fault.KindMalformedEvent) {
		t.Errorf("expected MALFORMED_EVENT fault, got %v", err)
	}
}

func TestNormalize_FirstShapeWins(t *testing.T) {
	// A complete top-level pair beats a different pair nested in data.
	payload := `{"bucket":"raw","name":"67.mp4","data":{"bucket":"other","name":"other.mp4"}}`
	got, err := Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Bucket != "raw" || got.Key != "67.mp4" {
		t.Errorf("expected top-level shape to win, got %+v", got)
	}
}

func TestNormalize_ExtraInnerFieldsIgnored(t *testing.T) {
	inner, _ := json.Marshal(map[string]interface{}{
		"bucket":      "raw",
		"name":        "clip.mov",
		"contentType": "video/quicktime",
		"timeCreated": "2026-08-22T10:00:00Z",
	})
	payload := fmt.Sprintf(`{"data":%s}`, inner)

	got, err := Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Bucket != "raw" || got.Key != "clip.mov" {
		t.Errorf("unexpected reference: %+v", got)
	}
}
