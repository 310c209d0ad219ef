// Package store builds the searchable section index and persists it as a
// single artifact file.
//
// The in-memory index is a bleve index over the section fields plus the
// ordered section list. Only the section list is persisted; loading rebuilds
// the bleve index, so the artifact stays independent of bleve's on-disk
// format.
package store

import (
	"time"

	"github.com/Aman-CERP/docsearch/internal/section"
)

// Indexed field names.
const (
	FieldTitle   = "title"
	FieldSlug    = "slug"
	FieldURL     = "url"
	FieldContent = "content"
	FieldCode    = "code"
)

// SchemaVersion is the artifact schema version. Loading any other version
// fails as a corrupt index.
const SchemaVersion = 1

// Fields is the persisted field list, in column order.
var Fields = []string{FieldTitle, FieldSlug, FieldURL, FieldContent, FieldCode}

// Info describes a built index.
type Info struct {
	SchemaVersion int       `json:"schema_version"`
	BuiltAt       time.Time `json:"built_at"`
	Digest        string    `json:"digest"`
	Count         int       `json:"count"`
}

// Boost holds per-field score multipliers.
type Boost struct {
	Title   float64
	Content float64
	Code    float64
}

// DefaultBoost ranks title matches over prose over code.
var DefaultBoost = Boost{Title: 6, Content: 3, Code: 1}

// Query is a ranked search over title, content and code.
type Query struct {
	// Term is the raw query text.
	Term string
	// Fuzziness is the edit distance allowed per term (bleve caps it at 2).
	Fuzziness int
	// Limit caps the number of hits.
	Limit int
	// Boost weighs the fields.
	Boost Boost
}

// Hit is a matched section with its score.
type Hit struct {
	Section section.Section
	Score   float64
}
