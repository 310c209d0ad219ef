package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/docsearch/internal/search"
)

func TestFormatResults_NoResults(t *testing.T) {
	assert.Equal(t, `No documentation sections found for "zzz"`, FormatResults("zzz", nil))
}

func TestFormatResults_ListsLinks(t *testing.T) {
	// Given: two hits
	results := []search.Result{
		{Title: "Install", Slug: "install", URL: "/docs/setup"},
		{Title: "Usage", Slug: "usage", URL: "/docs/usage"},
	}

	// When: formatting
	text := FormatResults("install", results)

	// Then: a numbered markdown list of anchor links in rank order
	assert.Equal(t, "## Documentation results for \"install\"\n\n"+
		"Found 2 sections\n\n"+
		"1. [Install](/docs/setup#install)\n"+
		"2. [Usage](/docs/usage#usage)\n", text)
}

func TestFormatResults_Singular(t *testing.T) {
	text := FormatResults("x", []search.Result{{Title: "A", Slug: "a", URL: "/a"}})

	assert.Contains(t, text, "Found 1 section\n")
}
