package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as a one-page extraction, replacing invalid
// UTF-8 sequences with the replacement character.
func extractPlain(content []byte) (*Extraction, error) {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "�"))
	}
	return singlePage(string(content)), nil
}
