package summarize

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/formmind/formmind/internal/generation"
)

// fallbackChars is how much of a chunk is kept verbatim when its summary fails.
const fallbackChars = 400

// summaryPrompt asks for a compact summary of one chunk of form text.
const summaryPrompt = "Summarize the following form content in a few sentences. Keep figures and field values exact.\n\n%s\n\nSummary:"

// Summarizer compresses text chunk by chunk with a generative model. A failed
// chunk degrades to its first characters instead of failing the whole call.
type Summarizer struct {
	generator generation.Generator
	chunkSize int
	logger    *zap.Logger
}

// NewSummarizer creates a summarizer. chunkSize <= 0 uses DefaultChunkChars;
// logger may be nil.
func NewSummarizer(generator generation.Generator, chunkSize int, logger *zap.Logger) *Summarizer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{generator: generator, chunkSize: chunkSize, logger: logger}
}

// Summarize returns a summary of text: per-chunk summaries joined with blank
// lines, in input order. Empty input returns "".
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}
	chunks := ChunkText(text, s.chunkSize)
	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := s.generator.Generate(ctx, fmt.Sprintf(summaryPrompt, chunk), generation.Options{
			MaxTokens:   200,
			Temperature: 0,
		})
		if err != nil {
			s.logger.Warn("chunk summary failed, using excerpt",
				zap.Int("chunk", i),
				zap.Error(err),
			)
			excerpt := chunk
			if len(excerpt) > fallbackChars {
				cut := fallbackChars
				for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
					cut--
				}
				excerpt = excerpt[:cut]
			}
			summaries = append(summaries, excerpt)
			continue
		}
		summaries = append(summaries, strings.TrimSpace(out))
	}
	return strings.Join(summaries, "\n\n"), nil
}
