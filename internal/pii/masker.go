// Package pii masks personally identifiable information in extracted text.
// Masking only affects text returned for display; indexed text is untouched.
package pii

// Masker redacts PII from text, returning the masked text and the number of
// entities it replaced.
type Masker interface {
	// Name identifies the strategy (for logging and status reporting).
	Name() string
	// Available reports whether the strategy can run in this process.
	Available() bool
	Mask(text string) (string, int)
}

// Chain tries maskers in priority order and uses the first available one.
// A chain with no available strategy passes text through unmasked.
type Chain struct {
	maskers []Masker
}

// NewChain creates a masking chain; maskers are tried in the given order.
func NewChain(maskers ...Masker) *Chain {
	return &Chain{maskers: maskers}
}

// Name returns the name of the first available strategy, or "none".
func (c *Chain) Name() string {
	for _, m := range c.maskers {
		if m.Available() {
			return m.Name()
		}
	}
	return "none"
}

// Available reports whether any strategy in the chain can run.
func (c *Chain) Available() bool {
	for _, m := range c.maskers {
		if m.Available() {
			return true
		}
	}
	return false
}

// Mask applies the first available strategy.
func (c *Chain) Mask(text string) (string, int) {
	if text == "" {
		return "", 0
	}
	for _, m := range c.maskers {
		if m.Available() {
			return m.Mask(text)
		}
	}
	return text, 0
}
