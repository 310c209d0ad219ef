package section

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// enumeratedHeading matches headings like "1. Setup" that number steps
	// inside prose rather than open a new section.
	enumeratedHeading = regexp.MustCompile(`^\d\.`)

	// fenceOpener matches the opening line of a code fence left inside prose.
	fenceOpener = regexp.MustCompile("```\\w*[\r\n]")
)

// Segmenter folds the token stream of one page into sections.
// It is not safe for concurrent use; create one per page.
type Segmenter struct {
	url       string
	slugger   *Slugger
	current   *accumulator
	skip      int
	committed []Section
}

type accumulator struct {
	title   string
	slug    string
	content strings.Builder
	code    strings.Builder
}

// NewSegmenter opens the title-section of a page and returns the segmenter.
func NewSegmenter(title, url string) *Segmenter {
	s := &Segmenter{
		url:     url,
		slugger: NewSlugger(),
	}
	// The page title is not a heading on the rendered page, so it does not
	// take a slot in the page's anchor namespace.
	s.current = &accumulator{title: title, slug: Slugify(strings.TrimSpace(title))}
	return s
}

// Feed consumes one token.
func (s *Segmenter) Feed(tok Token) {
	if s.skip > 0 {
		s.skip--
		return
	}

	switch tok.Kind {
	case KindHeading:
		title := strings.TrimSpace(tok.Text)
		if title == "" || enumeratedHeading.MatchString(title) {
			return
		}
		s.flush()
		s.open(title)
		s.skip = 1

	case KindText, KindCodeSpan, KindSpace:
		s.current.content.WriteString(fenceOpener.ReplaceAllString(tok.Raw, ""))

	case KindCode:
		s.current.code.WriteString(tok.Text)
		if !strings.HasSuffix(tok.Text, "\n") {
			s.current.code.WriteByte('\n')
		}

	case KindOther:

	default:
		panic(fmt.Sprintf("section: unhandled token kind %d", tok.Kind))
	}
}

// FeedAll consumes every token in order.
func (s *Segmenter) FeedAll(tokens []Token) {
	for _, tok := range tokens {
		s.Feed(tok)
	}
}

// Finish flushes the open section and returns everything committed, in
// document order. The segmenter must not be used afterwards.
func (s *Segmenter) Finish() []Section {
	s.flush()
	return s.committed
}

func (s *Segmenter) open(title string) {
	s.current = &accumulator{
		title: title,
		slug:  s.slugger.Slug(title),
	}
}

// flush commits the open section if it has prose content.
func (s *Segmenter) flush() {
	if s.current == nil {
		return
	}
	defer func() { s.current = nil }()

	content := strings.TrimSpace(s.current.content.String())
	if content == "" {
		return
	}

	s.committed = append(s.committed, Section{
		Title:   strings.TrimSpace(s.current.title),
		Slug:    s.current.slug,
		URL:     s.url,
		Content: content,
		Code:    s.current.code.String(),
	})
}

// Segment lexes body and segments it as a page titled title at url.
func Segment(title, url string, body []byte) []Section {
	s := NewSegmenter(title, url)
	s.FeedAll(Lex(body))
	return s.Finish()
}
