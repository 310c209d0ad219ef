package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo describes a persisted search index.
type StatusInfo struct {
	Artifact      string    `json:"artifact"`
	Format        string    `json:"format"`
	SchemaVersion int       `json:"schema_version"`
	Sections      int       `json:"sections"`
	BuiltAt       time.Time `json:"built_at"`
	Digest        string    `json:"digest"`
	SizeBytes     int64     `json:"size_bytes"`
	// Status is "ready", "missing" or "corrupt".
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render writes info for a terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Search index: "+info.Artifact))
	_, _ = fmt.Fprintf(r.out, "  Status:     %s\n", r.renderStatus(info.Status))
	if info.Error != "" {
		_, _ = fmt.Fprintf(r.out, "  Error:      %s\n", info.Error)
	}
	if info.Status != "ready" {
		return nil
	}

	_, _ = fmt.Fprintf(r.out, "  Format:     %s (schema %d)\n", info.Format, info.SchemaVersion)
	_, _ = fmt.Fprintf(r.out, "  Sections:   %d\n", info.Sections)
	_, _ = fmt.Fprintf(r.out, "  Size:       %s\n", FormatBytes(info.SizeBytes))
	if !info.BuiltAt.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Built:      %s\n", formatTime(info.BuiltAt))
	}
	if info.Digest != "" {
		_, _ = fmt.Fprintf(r.out, "  Digest:     %s\n", info.Digest)
	}
	return nil
}

// RenderJSON writes info as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready":
		return r.styles.Success.Render(status)
	case "missing":
		return r.styles.Warning.Render(status)
	case "corrupt":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

// formatTime renders t relative to now, falling back to a date after a week.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

// FormatBytes formats a byte count for humans.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
