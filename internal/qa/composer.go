// Package qa composes grounded answers from retrieved documents.
package qa

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/formmind/formmind/internal/generation"
	"github.com/formmind/formmind/internal/models"
)

// ContextCharBudget bounds how much of each document's text goes into the prompt.
const ContextCharBudget = 1500

// NotFoundAnswer is the sentinel the model is told to emit when the answer is
// absent from the supplied context.
const NotFoundAnswer = "Not found in documents."

// NoDocumentsAnswer is returned without a model call when nothing has been indexed.
const NoDocumentsAnswer = "No documents indexed. Upload a form first."

// maxAnswerTokens bounds the generated answer length.
const maxAnswerTokens = 256

// Composer builds grounded prompts and invokes a generative model.
type Composer struct {
	generator generation.Generator
}

// NewComposer creates a composer using generator for answers.
func NewComposer(generator generation.Generator) *Composer {
	return &Composer{generator: generator}
}

// Answer produces a natural-language answer to question grounded in docs,
// which must already be capped to the retrieval top-k.
//
// An empty question returns "" and no documents returns NoDocumentsAnswer;
// neither invokes the model. A generation failure is returned as a wrapped
// error rather than a fabricated answer.
func (c *Composer) Answer(ctx context.Context, question string, docs []*models.Document) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", nil
	}
	if len(docs) == 0 {
		return NoDocumentsAnswer, nil
	}
	prompt := BuildPrompt(question, docs)
	out, err := c.generator.Generate(ctx, prompt, generation.Options{
		MaxTokens:   maxAnswerTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// BuildPrompt assembles the grounded instruction prompt: a labeled context
// block per document in retrieval order, blank-line separated, followed by the
// question and the instruction to answer only from that context.
func BuildPrompt(question string, docs []*models.Document) string {
	contexts := make([]string, len(docs))
	for i, d := range docs {
		text := d.Text
		if len(text) > ContextCharBudget {
			// Back the cut off to a rune boundary so no document excerpt
			// ends in a split multi-byte character.
			cut := ContextCharBudget
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		contexts[i] = fmt.Sprintf("Document: %s\n%s", d.Meta.Filename, text)
	}
	return fmt.Sprintf(
		"Answer the question using the context below. If the answer is not present, say '%s'\n\nContext:\n%s\n\nQuestion: %s\nAnswer:",
		NotFoundAnswer,
		strings.Join(contexts, "\n\n"),
		question,
	)
}
