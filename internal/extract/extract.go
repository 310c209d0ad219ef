// Package extract turns one page file into its searchable sections.
//
// A page carries its title inside a <svelte:head> block. The title block,
// an optional leading frontmatter block and the first <script> block are
// removed before the remaining markdown is segmented.
package extract

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/section"
)

var (
	// TitlePattern locates the page title in the first head block. Later
	// head blocks, such as examples in code fences, are left alone.
	TitlePattern = regexp.MustCompile(`(?s)<svelte:head>.*?<title>([^<]+)</title>.*?</svelte:head>`)

	scriptPattern      = regexp.MustCompile(`(?s)<script.*?</script>`)
	frontmatterPattern = regexp.MustCompile(`(?s)^---\n(.+?)\n---\n*`)
)

// Extractor extracts sections from pages below ContentRoot.
type Extractor struct {
	// ContentRoot is the directory page URLs are derived from.
	ContentRoot string
}

// New returns an Extractor for pages under root.
func New(root string) *Extractor {
	return &Extractor{ContentRoot: root}
}

// ExtractFile reads the page at p and extracts it.
func (e *Extractor) ExtractFile(p string) ([]section.Section, error) {
	body, err := os.ReadFile(p)
	if err != nil {
		return nil, docerrors.IOError(fmt.Sprintf("failed to read page %s", p), err).
			WithDetail("path", p)
	}
	return e.Extract(p, body)
}

// Extract segments body, the content of the page at p.
// A page without a title is an error that names p.
func (e *Extractor) Extract(p string, body []byte) ([]section.Section, error) {
	url, err := e.URL(p)
	if err != nil {
		return nil, err
	}

	src := string(body)
	if loc := frontmatterPattern.FindStringIndex(src); loc != nil {
		src = src[loc[1]:]
	}

	loc := TitlePattern.FindStringSubmatchIndex(src)
	if loc == nil {
		return nil, docerrors.MissingTitle(p)
	}
	title := src[loc[2]:loc[3]]
	src = src[:loc[0]] + "\n" + src[loc[1]:]

	if loc := scriptPattern.FindStringIndex(src); loc != nil {
		src = src[:loc[0]] + src[loc[1]:]
	}

	return section.Segment(title, url, []byte(src)), nil
}

// URL derives the route of the page at p: the page's directory relative to
// the content root, rooted at "/".
func (e *Extractor) URL(p string) (string, error) {
	rel, err := filepath.Rel(e.ContentRoot, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", docerrors.New(docerrors.ErrCodeInvalidPath,
			fmt.Sprintf("page %s is outside the content root %s", p, e.ContentRoot), err).
			WithDetail("path", p)
	}
	return path.Clean("/" + filepath.ToSlash(filepath.Dir(rel))), nil
}
