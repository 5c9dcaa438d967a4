// Package jsonutil extracts JSON payloads from model responses that may wrap
// them in markdown code fences or surrounding prose.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes a ```json ... ``` or ``` ... ``` wrapper from text and
// returns the fenced content, or the original text when no fence is present.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}

	return strings.Join(lines[1:end], "\n")
}

// ExtractObject returns the substring from the first '{' to the last '}' in
// text. Models frequently prefix JSON with prose ("Here is the result:"); the
// brace scan recovers the object without trying to parse the prose.
func ExtractObject(text string) (string, error) {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found")
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return "", fmt.Errorf("no closing } found")
	}

	return text[start : end+1], nil
}

// DecodeStrict strips fences, extracts the JSON object from raw, and decodes
// it into T rejecting unknown fields. Use this when the model was told to
// answer in a fixed schema and anything else should be treated as malformed.
func DecodeStrict[T any](raw string) (T, error) {
	var zero T

	jsonStr, err := ExtractObject(StripFences(raw))
	if err != nil {
		return zero, fmt.Errorf("%w (response length: %d)", err, len(raw))
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(jsonStr)))
	dec.DisallowUnknownFields()

	var result T
	if err := dec.Decode(&result); err != nil {
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview(jsonStr))
	}
	return result, nil
}

// preview truncates s for inclusion in error messages.
func preview(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
