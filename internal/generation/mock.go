package generation

import (
	"context"
	"strings"
)

// MockGenerator is a deterministic generator for tests. It echoes lines of the
// prompt's context block that share tokens with the question, or the sentinel
// phrase when nothing matches, which is enough to exercise grounding behavior.
type MockGenerator struct {
	// Response, when set, is returned verbatim for every call.
	Response string
	// Err, when set, is returned for every call.
	Err error
	// Calls counts Generate invocations.
	Calls int
}

// Generate returns a canned or token-overlap-derived response.
func (g *MockGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	g.Calls++
	if g.Err != nil {
		return "", g.Err
	}
	if g.Response != "" {
		return g.Response, nil
	}
	question := questionLine(prompt)
	best := ""
	bestOverlap := 0
	qTokens := tokenSet(question)
	inContext := false
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if line == "Context:" {
			inContext = true
			continue
		}
		if strings.HasPrefix(line, "Question:") {
			break
		}
		if !inContext || line == "" || strings.HasPrefix(line, "Document:") {
			continue
		}
		overlap := 0
		for tok := range tokenSet(line) {
			if _, ok := qTokens[tok]; ok {
				overlap++
			}
		}
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = line
		}
	}
	if best == "" {
		return "Not found in documents.", nil
	}
	return best, nil
}

// Close is a no-op for MockGenerator.
func (g *MockGenerator) Close() error {
	return nil
}

func questionLine(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Question:") {
			return strings.TrimPrefix(line, "Question:")
		}
	}
	return ""
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[strings.Trim(tok, ".,?!:;$")] = struct{}{}
	}
	return set
}
