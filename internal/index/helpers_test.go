package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/ui"
)

// recordingRenderer implements ui.Renderer for testing.
type recordingRenderer struct {
	mu       sync.Mutex
	progress []ui.ProgressEvent
	errors   []ui.ErrorEvent
	stats    *ui.CompletionStats
}

func (r *recordingRenderer) Start(ctx context.Context) error { return nil }
func (r *recordingRenderer) Stop() error                     { return nil }

func (r *recordingRenderer) UpdateProgress(event ui.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, event)
}

func (r *recordingRenderer) AddError(event ui.ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, event)
}

func (r *recordingRenderer) Complete(stats ui.CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = &stats
}

func (r *recordingRenderer) stages() []ui.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ui.Stage
	for _, e := range r.progress {
		if len(out) == 0 || out[len(out)-1] != e.Stage {
			out = append(out, e.Stage)
		}
	}
	return out
}

func page(title, body string) string {
	return "<svelte:head><title>" + title + "</title></svelte:head>\n\n" + body
}

// writeSite creates files below a fresh content root and returns the root.
func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "src", "routes")
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	require.NoError(t, os.MkdirAll(root, 0o755))
	return root
}

func basicSite() map[string]string {
	return map[string]string{
		"+page.md":                  "# Landing\n\nNo title needed here.\n",
		"get-started/+page.md":      page("Getting Started", "Install the library.\n\n## Usage\n\nCall `superForm`.\n"),
		"concepts/events/+page.md":  page("Events", "Events fire on submit.\n"),
		"concepts/tainted/+page.md": page("Tainted fields", "Detect changes.\n\n```ts\nconst { tainted } = superForm(data);\n```\n"),
	}
}
