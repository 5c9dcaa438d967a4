package jsonutil

import (
	"strings"
	"testing"
)

type verdict struct {
	Found  bool    `json:"found"`
	Second float64 `json:"second"`
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fences", `{"found": true}`, `{"found": true}`},
		{"json fence", "```json\n{\"found\": true}\n```", `{"found": true}`},
		{"bare fence", "```\n{\"found\": true}\n```", `{"found": true}`},
		{"leading whitespace", "  ```json\n{\"a\": 1}\n```  ", `{"a": 1}`},
		{"unclosed fence", "```json\n{\"a\": 1}", "```json\n{\"a\": 1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.input); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExtractObject(t *testing.T) {
	got, err := ExtractObject(`The answer is {"found": true, "second": 3.8} as requested.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"found": true, "second": 3.8}` {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractObject_NoJSON(t *testing.T) {
	if _, err := ExtractObject("no braces here"); err == nil {
		t.Error("expected error for text without JSON")
	}
	if _, err := ExtractObject("} backwards {"); err == nil {
		t.Error("expected error for reversed braces")
	}
}

func TestDecodeStrict(t *testing.T) {
	v, err := DecodeStrict[verdict]("```json\n{\"found\": true, \"second\": 3.8}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Found || v.Second != 3.8 {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestDecodeStrict_UnknownField(t *testing.T) {
	_, err := DecodeStrict[verdict](`{"found": true, "second": 3.8, "confidence": 0.9}`)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDecodeStrict_NotJSON(t *testing.T) {
	if _, err := DecodeStrict[verdict]("I could not find the moment."); err == nil {
		t.Error("expected error for prose-only response")
	}
}
