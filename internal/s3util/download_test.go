package s3util

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fpang/video-frame-finder/internal/fault"
)

func TestClassifyGetError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind fault.Kind
	}{
		{
			name:     "missing key",
			err:      fmt.Errorf("operation error S3: GetObject, %w", &s3types.NoSuchKey{}),
			wantKind: fault.KindSourceNotFound,
		},
		{
			name:     "missing bucket",
			err:      fmt.Errorf("operation error S3: GetObject, %w", &s3types.NoSuchBucket{}),
			wantKind: fault.KindSourceNotFound,
		},
		{
			name:     "transient failure",
			err:      errors.New("connection reset by peer"),
			wantKind: fault.KindStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyGetError("raw", "67.mp4", tt.err)
			if !fault.IsKind(got, tt.wantKind) {
				t.Errorf("expected kind %s, got %v", tt.wantKind, got)
			}
		})
	}
}

func TestClassifyGetError_NotFoundNamesObject(t *testing.T) {
	got := classifyGetError("raw", "67.mp4", fmt.Errorf("wrapped: %w", &s3types.NoSuchKey{}))
	fe := fault.Of(got)
	if fe == nil {
		t.Fatal("expected a fault")
	}
	if !strings.Contains(fe.Message, "raw/67.mp4") {
		t.Errorf("expected the object reference in the message, got %q", fe.Message)
	}
}
