// Package section splits one documentation page into titled sections.
//
// The page body is lexed into a flat stream of tokens drawn from a closed
// set of kinds, and a Segmenter scoped to that single page folds the stream
// into sections: each non-enumerated heading starts a new section, prose and
// inline code accumulate into Content, fenced code into Code.
package section

// Section is the unit that gets indexed.
type Section struct {
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Code    string `json:"code"`
}

// TokenKind is the closed set of token kinds produced by Lex.
type TokenKind int

const (
	// KindHeading is a heading. Its own text follows as a separate token.
	KindHeading TokenKind = iota
	// KindText is a run of prose text.
	KindText
	// KindSpace is whitespace separating blocks or lines.
	KindSpace
	// KindCode is a fenced or indented code block.
	KindCode
	// KindCodeSpan is inline code.
	KindCodeSpan
	// KindOther covers everything that is never indexed (HTML, images, rules).
	KindOther
)

// String returns a human-readable name for the kind.
func (k TokenKind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindText:
		return "text"
	case KindSpace:
		return "space"
	case KindCode:
		return "code"
	case KindCodeSpan:
		return "codespan"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// Token is one lexed element of a page body.
type Token struct {
	Kind TokenKind
	// Text is the plain text: heading text, code block body, code span body.
	Text string
	// Raw is the source form that gets appended to section content.
	Raw string
}
