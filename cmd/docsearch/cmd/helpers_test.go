package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func page(title, body string) string {
	return "<svelte:head><title>" + title + "</title></svelte:head>\n\n" + body
}

// newProject creates a project with a .git marker and the given pages below
// src/routes, isolated from any user config.
func newProject(t *testing.T, pages map[string]string) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	for rel, body := range pages {
		p := filepath.Join(root, "src", "routes", filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return root
}

func docsSite() map[string]string {
	return map[string]string{
		"+page.md":             "# Landing\n",
		"get-started/+page.md": page("Getting Started", "Install the library.\n\n## Usage\n\nCall `superForm`.\n"),
		"concepts/+page.md":    page("Concepts", "Events fire on submit.\n"),
	}
}

// run executes the CLI with args and returns stdout and the error.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
