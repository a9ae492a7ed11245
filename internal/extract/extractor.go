// Package extract provides text extraction from uploaded form documents.
package extract

import "strings"

// Extraction is the canonical extractor output: the merged text plus the
// per-page texts it was assembled from. Formats without a page concept
// (spreadsheets, plain text) report a single page.
type Extraction struct {
	FullText string
	Pages    []string
}

// Extractor extracts text from form document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract extracts text from content based on the file extension.
// ext should include the leading dot (e.g. ".pdf"); unknown extensions are
// treated as plain text so text-like uploads still index.
func (e *Extractor) Extract(content []byte, ext string) (*Extraction, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".txt", ".md", ".csv", "":
		return extractPlain(content)
	default:
		return extractPlain(content)
	}
}

// singlePage wraps text as a one-page extraction.
func singlePage(text string) *Extraction {
	text = strings.TrimSpace(text)
	return &Extraction{FullText: text, Pages: []string{text}}
}

// mergePages joins page texts with newlines into a trimmed full text.
func mergePages(pages []string) *Extraction {
	return &Extraction{
		FullText: strings.TrimSpace(strings.Join(pages, "\n")),
		Pages:    pages,
	}
}
