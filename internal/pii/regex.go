package pii

import "regexp"

// Replacement tags for masked entities.
const (
	emailTag = "[EMAIL]"
	phoneTag = "[PHONE]"
	ssnTag   = "[SSN]"
	cardTag  = "[CARD]"
)

var (
	emailRe = regexp.MustCompile(`\b[\w.-]+@[\w.-]+\.\w+\b`)
	// Bare 10-digit numbers, the dominant phone shape in scanned US forms.
	phoneRe = regexp.MustCompile(`\b\d{10}\b`)
	ssnRe   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	// 16-digit card numbers, plain or grouped by spaces or dashes.
	cardRe = regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{4}\b`)
)

// RegexMasker masks emails, card numbers, 10-digit phone numbers, and SSNs
// with fixed tags. It is the always-available last resort in a masking chain.
type RegexMasker struct{}

// NewRegexMasker returns a regex-based masker.
func NewRegexMasker() *RegexMasker {
	return &RegexMasker{}
}

// Name identifies the strategy.
func (m *RegexMasker) Name() string {
	return "regex"
}

// Available is always true; regex masking has no external dependency.
func (m *RegexMasker) Available() bool {
	return true
}

// Mask replaces matched entities with tags and counts the replacements.
func (m *RegexMasker) Mask(text string) (string, int) {
	count := 0
	masked := ssnRe.ReplaceAllStringFunc(text, func(string) string {
		count++
		return ssnTag
	})
	masked = cardRe.ReplaceAllStringFunc(masked, func(string) string {
		count++
		return cardTag
	})
	masked = emailRe.ReplaceAllStringFunc(masked, func(string) string {
		count++
		return emailTag
	})
	masked = phoneRe.ReplaceAllStringFunc(masked, func(string) string {
		count++
		return phoneTag
	})
	return masked, count
}
