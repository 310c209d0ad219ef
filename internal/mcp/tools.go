package mcp

const (
	toolSearchDocs  = "search_docs"
	toolIndexStatus = "index_status"
)

// SearchDocsInput defines the input schema for the search_docs tool.
type SearchDocsInput struct {
	Query string `json:"query" jsonschema:"words to look up in the documentation"`
}

// SearchDocsOutput defines the output schema for the search_docs tool.
type SearchDocsOutput struct {
	Results []SectionOutput `json:"results" jsonschema:"matching sections, best first"`
}

// SectionOutput is one matching documentation section.
type SectionOutput struct {
	Title string `json:"title" jsonschema:"section heading"`
	Slug  string `json:"slug" jsonschema:"heading anchor within the page"`
	URL   string `json:"url" jsonschema:"page URL path"`
	Link  string `json:"link" jsonschema:"page URL with the section anchor"`
}

// IndexStatusInput defines the (empty) input schema for index_status.
type IndexStatusInput struct{}

// IndexStatusOutput reports the state of the served index.
type IndexStatusOutput struct {
	State    string `json:"state" jsonschema:"uninitialized, loading, ready or failed"`
	Sections int    `json:"sections" jsonschema:"number of indexed sections"`
	BuiltAt  string `json:"built_at,omitempty" jsonschema:"when the index was built, RFC 3339"`
	Digest   string `json:"digest,omitempty" jsonschema:"content digest of the indexed corpus"`
}
