package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/formmind/formmind/internal/models"
	"github.com/formmind/formmind/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteProcessResult writes a process result to w in the given format.
func WriteProcessResult(w io.Writer, result *models.ProcessResult, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(w, "\nProcessed in %dms (%d documents indexed, %d entities masked)\n",
		result.Stats.ProcessingTimeMS, result.Stats.DocCount, result.Stats.EntityCount)
	if result.Summary != "" {
		fmt.Fprintf(w, "\n--- Summary ---\n%s\n", result.Summary)
	}
	if result.Answer != "" {
		fmt.Fprintf(w, "\n--- Answer ---\n%s\n", result.Answer)
	}
	if result.Text != "" {
		fmt.Fprintf(w, "\n--- Masked text ---\n%s\n", utils.Truncate(result.Text, 2000))
	}
	return nil
}

// WriteAskResponse writes an answer to w in the given format.
func WriteAskResponse(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintf(w, "\n%s\n", resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Fprintf(w, "\nSources:\n")
		for _, src := range resp.Sources {
			fmt.Fprintf(w, "  • %s (%d pages)\n", src.Filename, src.Pages)
		}
	}
	return nil
}
