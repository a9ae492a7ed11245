package models

import "fmt"

// ProcessStats summarizes one /process or /process_multi call.
type ProcessStats struct {
	ProcessingTimeMS int64 `json:"processing_time_ms"`
	DocCount         int   `json:"doc_count"`
	EntityCount      int   `json:"entity_count"`
}

// ProcessResult is the response for a processed form upload.
// Text is the PII-masked text for single uploads, or a short status line for batches.
type ProcessResult struct {
	Text    string       `json:"text"`
	Summary string       `json:"summary"`
	Answer  string       `json:"answer,omitempty"`
	Stats   ProcessStats `json:"stats"`
}

// AskRequest is a question against the indexed corpus.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// Validate normalizes the request. Returns an error when the question is empty.
func (r *AskRequest) Validate() error {
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if r.TopK <= 0 {
		r.TopK = 3
	}
	if r.TopK > 20 {
		r.TopK = 20
	}
	return nil
}

// AskSource identifies a document that contributed context to an answer.
type AskSource struct {
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
}

// AskResponse is the answer to an AskRequest with the documents it was grounded on.
type AskResponse struct {
	Answer  string      `json:"answer"`
	Sources []AskSource `json:"sources"`
}
