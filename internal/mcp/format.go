package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/docsearch/internal/search"
)

// FormatResults renders search hits as a markdown list of section links.
func FormatResults(query string, results []search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No documentation sections found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Documentation results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d section", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		fmt.Fprintf(&sb, "%d. [%s](%s)\n", i+1, r.Title, Link(r))
	}
	return sb.String()
}

// Link returns the anchor URL of a hit.
func Link(r search.Result) string {
	return r.URL + "#" + r.Slug
}
