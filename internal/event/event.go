// Package event normalizes inbound storage notifications into a source
// object reference.
//
// The delivery mechanism's payload shape is not contractually stable across
// event-source versions: the same logical notification may arrive with
// top-level fields, nested under "data", or base64-encoded inside "data".
// Normalize tries each known shape in a fixed order and fails closed when
// none matches.
package event

import (
	"encoding/base64"
	"encoding/json"

	"github.com/fpang/video-frame-finder/internal/fault"
)

// SourceReference uniquely identifies the object to process. Both fields are
// always non-empty; Normalize rejects notifications that cannot produce one.
type SourceReference struct {
	Bucket string
	Key    string
}

// envelope covers every recognized notification shape at once. Bucket/Name
// serve the top-level shape; Data holds either the nested object or the
// base64 string of the remaining shapes.
type envelope struct {
	Bucket string          `json:"bucket"`
	Name   string          `json:"name"`
	Data   json.RawMessage `json:"data"`
}

// objectFields is the bucket/name pair as it appears inside "data".
type objectFields struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// Normalize extracts the (bucket, key) pair from a notification payload.
//
// Shapes are attempted in order:
//  1. top-level "bucket" and "name" fields
//  2. a "data" object carrying the same fields
//  3. a "data" string holding base64-encoded JSON with the same fields
//
// The first shape that yields both fields wins. Partial results are never
// merged across shapes: a top-level bucket with the name hidden in "data" is
// rejected rather than guessed at.
func Normalize(payload []byte) (SourceReference, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return SourceReference{}, fault.Wrap(fault.KindMalformedEvent, "invalid notification payload", err)
	}

	if env.Bucket != "" && env.Name != "" {
		return SourceReference{Bucket: env.Bucket, Key: env.Name}, nil
	}

	if len(env.Data) > 0 {
		var obj objectFields
		if err := json.Unmarshal(env.Data, &obj); err == nil && obj.Bucket != "" && obj.Name != "" {
			return SourceReference{Bucket: obj.Bucket, Key: obj.Name}, nil
		}

		var encoded string
		if err := json.Unmarshal(env.Data, &encoded); err == nil {
			if decoded, err := base64.StdEncoding.DecodeString(encoded); err == nil {
				var obj objectFields
				if err := json.Unmarshal(decoded, &obj); err == nil && obj.Bucket != "" && obj.Name != "" {
					return SourceReference{Bucket: obj.Bucket, Key: obj.Name}, nil
				}
			}
		}
	}

	return SourceReference{}, fault.New(fault.KindMalformedEvent, "missing bucket or name")
}
