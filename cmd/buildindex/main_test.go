package main

import (
	"strings"
	"testing"
)

func TestChunkText(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		maxChars   int
		wantChunks int
	}{
		{name: "empty input", text: "", maxChars: 100, wantChunks: 0},
		{name: "single short paragraph", text: "hello world", maxChars: 100, wantChunks: 1},
		{name: "paragraphs packed together", text: "aaa\n\nbbb\n\nccc", maxChars: 100, wantChunks: 1},
		{name: "paragraphs split at budget", text: "aaaa\n\nbbbb", maxChars: 6, wantChunks: 2},
		{name: "oversized paragraph hard split", text: strings.Repeat("x", 250), maxChars: 100, wantChunks: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunkText(tt.text, tt.maxChars)
			if len(chunks) != tt.wantChunks {
				t.Fatalf("got %d chunks, want %d: %q", len(chunks), tt.wantChunks, chunks)
			}
			for i, c := range chunks {
				if len(c) > tt.maxChars {
					t.Errorf("chunk %d exceeds budget: %d > %d", i, len(c), tt.maxChars)
				}
				if strings.TrimSpace(c) == "" {
					t.Errorf("chunk %d is blank", i)
				}
			}
		})
	}
}
