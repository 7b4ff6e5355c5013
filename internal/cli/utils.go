// Package cli provides output formatting and an HTTP client for the medrag CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteAnswer writes a query response to w in the given format.
func WriteAnswer(w io.Writer, resp *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\nQuery:      %s\n", resp.Query)
	fmt.Fprintf(w, "Similarity: %.4f\n\n", resp.Similarity)
	fmt.Fprintf(w, "%s\n", resp.Result)
	if len(resp.Matches) > 0 {
		fmt.Fprintln(w, "\n--- Matches ---")
		for i, m := range resp.Matches {
			fmt.Fprintf(w, "%d. [#%d] %.4f  %s\n", i+1, m.Position, m.Similarity, utils.Truncate(m.Text, 120))
		}
	}
	fmt.Fprintln(w)
	return nil
}

// WriteStatus writes a status summary to w in the given format.
func WriteStatus(w io.Writer, st *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Documents:    %d\n", st.Documents)
	fmt.Fprintf(w, "Dimensions:   %d\n", st.Dimensions)
	fmt.Fprintf(w, "Model:        %s\n", st.Model)
	fmt.Fprintf(w, "Build ID:     %s\n", st.BuildID)
	fmt.Fprintf(w, "Fingerprint:  %s\n", st.CorpusFingerprint)
	if !st.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created at:   %s\n", st.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Threshold:    %.2f\n", st.Threshold)
	fmt.Fprintf(w, "Top k:        %d\n", st.TopK)
	fmt.Fprintf(w, "Index type:   %s\n", st.IndexType)
	if st.BundlePath != "" {
		fmt.Fprintf(w, "Bundle:       %s\n", st.BundlePath)
	}
	if st.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "Disk usage:   %s\n", FormatBytes(st.DiskUsageBytes))
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
