// Package summarize compresses extracted form text for display.
package summarize

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkChars is the per-chunk character budget for long input.
const DefaultChunkChars = 1200

// ChunkText splits text into chunks of at most maxChars characters, breaking
// at the last newline or sentence end inside the window when possible so
// chunks stay readable. Empty chunks are dropped.
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}
	var chunks []string
	length := len(text)
	start := 0
	for start < length {
		end := start + maxChars
		if end < length {
			lastNewline := strings.LastIndex(text[start:end], "\n")
			lastDot := strings.LastIndex(text[start:end], ".")
			cut := lastNewline
			if lastDot > cut {
				cut = lastDot
			}
			if cut > 0 {
				end = start + cut + 1
			} else {
				// Hard split with no break point in the window: back the cut
				// off to a rune boundary so no chunk splits a multi-byte
				// character.
				for end > start && !utf8.RuneStart(text[end]) {
					end--
				}
				if end == start {
					end = start + maxChars
				}
			}
		} else {
			end = length
		}
		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
	}
	return chunks
}
