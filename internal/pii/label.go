package pii

import (
	"regexp"
	"strings"
)

const nameTag = "[NAME]"

// personLabels are form field labels whose values name a person.
var personLabels = []string{"employee", "name", "applicant", "account holder", "signed by"}

// labelValueRe captures "Label: Value" lines common in scanned forms.
var labelValueRe = regexp.MustCompile(`(?im)^(\s*)([A-Za-z ]{2,30}):\s*(.+?)\s*$`)

// LabelMasker masks person names identified by form field labels (Employee:,
// Name:, ...) in addition to the regex entity patterns. It is tried before the
// plain regex fallback in the default chain.
type LabelMasker struct {
	regex *RegexMasker
}

// NewLabelMasker returns a label-aware masker.
func NewLabelMasker() *LabelMasker {
	return &LabelMasker{regex: NewRegexMasker()}
}

// Name identifies the strategy.
func (m *LabelMasker) Name() string {
	return "label"
}

// Available is always true; label masking has no external dependency.
func (m *LabelMasker) Available() bool {
	return true
}

// Mask replaces person-label values with [NAME], then applies the regex
// entity patterns to the whole text.
func (m *LabelMasker) Mask(text string) (string, int) {
	count := 0
	masked := labelValueRe.ReplaceAllStringFunc(text, func(line string) string {
		parts := labelValueRe.FindStringSubmatch(line)
		if parts == nil {
			return line
		}
		label := strings.ToLower(strings.TrimSpace(parts[2]))
		for _, pl := range personLabels {
			if label == pl {
				count++
				return parts[1] + parts[2] + ": " + nameTag
			}
		}
		return line
	})
	masked, regexCount := m.regex.Mask(masked)
	return masked, count + regexCount
}

// DefaultChain is the standard masking chain: label-aware masking first, plain
// regex as the last resort.
func DefaultChain() *Chain {
	return NewChain(NewLabelMasker(), NewRegexMasker())
}
