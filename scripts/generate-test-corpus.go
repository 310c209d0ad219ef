//go:build ignore

// Package main generates a synthetic documentation site for benchmarking
// index builds.
// Usage: go run scripts/generate-test-corpus.go -pages 500 -output testdata/bench/src/routes
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numPages  = flag.Int("pages", 500, "Number of pages to generate")
	outputDir = flag.String("output", "testdata/bench/src/routes", "Content root to write")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var (
	areas    = []string{"concepts", "guides", "api", "recipes", "migration", "integrations"}
	subjects = []string{"forms", "validation", "events", "stores", "loading", "errors", "options", "actions", "tainted", "snapshots", "nested data", "file uploads"}
	verbs    = []string{"Configure", "Handle", "Validate", "Reset", "Submit", "Debug", "Extend", "Customize"}
	words    = strings.Fields(`the form data is validated on the server and the client before submit
each field keeps its own error list and a tainted flag that tracks changes since load
options are passed once and merged with defaults so most pages need only a few lines`)
)

const pageTemplate = `<script lang="ts">
  import Example from './Example.svelte';
</script>

<svelte:head><title>%s</title></svelte:head>

%s
`

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	for i := range *numPages {
		area := areas[rng.Intn(len(areas))]
		subject := subjects[rng.Intn(len(subjects))]
		slug := fmt.Sprintf("%s-%d", strings.ReplaceAll(subject, " ", "-"), i)
		dir := filepath.Join(*outputDir, area, slug)

		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		title := strings.ToUpper(subject[:1]) + subject[1:]
		body := renderBody(rng, subject)
		content := fmt.Sprintf(pageTemplate, title, body)

		if err := os.WriteFile(filepath.Join(dir, "+page.md"), []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generated %d pages in %s\n", *numPages, *outputDir)
}

func renderBody(rng *rand.Rand, subject string) string {
	var sb strings.Builder
	sb.WriteString(paragraph(rng))

	for s := range 2 + rng.Intn(4) {
		fmt.Fprintf(&sb, "\n## %s %s %d\n\n", verbs[rng.Intn(len(verbs))], subject, s+1)
		sb.WriteString(paragraph(rng))
		if rng.Intn(2) == 0 {
			fmt.Fprintf(&sb, "\n```ts\nconst { form, errors } = superForm(data.form, { id: '%s-%d' });\n```\n", strings.ReplaceAll(subject, " ", "-"), s)
		}
		if rng.Intn(3) == 0 {
			fmt.Fprintf(&sb, "\n### Notes\n\n%s", paragraph(rng))
		}
	}
	return sb.String()
}

func paragraph(rng *rand.Rand) string {
	n := 20 + rng.Intn(40)
	out := make([]string, n)
	for i := range out {
		out[i] = words[rng.Intn(len(words))]
	}
	return strings.Join(out, " ") + ".\n"
}
