package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matsen/pubmerge/internal/dedupe"
)

// Title truncation lengths by context
const (
	PromptTitleMaxLen = 70 // Used in the review prompt
	AuditTitleMaxLen  = 50 // Used in audit log listings
)

// outputJSON writes a value as formatted JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printError writes an error in the appropriate format (human or JSON).
func printError(err error) {
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return
	}
	outputJSON(os.Stderr, ErrorResponse{Error: err.Error(), Code: exitCodeFor(err)})
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// printSummaryHuman prints batch counts in the form used after a run.
func printSummaryHuman(w io.Writer, s dedupe.Summary) {
	fmt.Fprintf(w, "Records in:     %d\n", s.Initial)
	fmt.Fprintf(w, "Auto-removed:   %d\n", s.AutoRemoved)
	fmt.Fprintf(w, "Review groups:  %d\n", s.ReviewGroups)
	fmt.Fprintf(w, "Pending review: %d\n", s.PendingReview)
	fmt.Fprintf(w, "Records out:    %d\n", s.Final)
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// formatIDList formats a list of IDs as a comma-separated string.
func formatIDList(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}
