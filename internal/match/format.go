// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FormatTable writes a response as a human-readable table to w, followed by
// a summary of degraded sources.
func FormatTable(resp Response, w io.Writer) {
	if len(resp.Candidates) == 0 {
		fmt.Fprintln(w, "No matching students.")
	} else {
		fmt.Fprintf(w, "%-4s  %-16s  %-6s  %-30s  %s\n",
			"Rank", "Student", "Score", "Satisfied", "Missing")
		fmt.Fprintln(w, strings.Repeat("-", 90))

		offset := (resp.Page - 1) * resp.PageSize
		for i, c := range resp.Candidates {
			fmt.Fprintf(w, "%-4d  %-16s  %-6.3f  %-30s  %s\n",
				offset+i+1, truncate(c.StudentID, 16), c.Score,
				truncate(strings.Join(c.SatisfiedIDs(), ","), 30),
				strings.Join(c.Missing, ","))
		}
		fmt.Fprintf(w, "\nPage %d: %d of %d candidates\n", resp.Page, len(resp.Candidates), resp.Total)
	}

	m := resp.Manifest
	if m.Note != "" {
		fmt.Fprintf(w, "Note: %s\n", m.Note)
	}
	if len(m.Unsupported) > 0 {
		fmt.Fprintf(w, "Unsupported criteria: %s\n", strings.Join(m.Unsupported, ", "))
	}
	if len(m.Unanswered) > 0 {
		fmt.Fprintf(w, "Unanswered criteria: %s\n", strings.Join(m.Unanswered, ", "))
	}
	if m.Partial {
		fmt.Fprintln(w, "Partial results; failed sources:")
		for _, id := range m.FailedIDs() {
			f := m.FailedSources[id]
			if f.Message != "" {
				fmt.Fprintf(w, "  %s: %s (%s)\n", id, f.Kind, f.Message)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", id, f.Kind)
			}
		}
	}
}

// FormatJSON writes the full response as indented JSON to w.
func FormatJSON(resp Response, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
