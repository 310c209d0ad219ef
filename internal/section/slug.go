package section

import (
	"strconv"
	"strings"
	"unicode"
)

// Slugger turns headings into anchor ids the way GitHub does, remembering
// what it has handed out so repeated headings get -1, -2, ... suffixes.
// One Slugger covers one page.
type Slugger struct {
	occurrences map[string]int
}

// NewSlugger returns an empty Slugger.
func NewSlugger() *Slugger {
	return &Slugger{occurrences: make(map[string]int)}
}

// Slug returns the unique slug for value within this Slugger.
func (s *Slugger) Slug(value string) string {
	slug := Slugify(value)
	original := slug

	for {
		if _, taken := s.occurrences[slug]; !taken {
			break
		}
		s.occurrences[original]++
		slug = original + "-" + strconv.Itoa(s.occurrences[original])
	}
	s.occurrences[slug] = 0

	return slug
}

// Reset forgets every slug handed out so far.
func (s *Slugger) Reset() {
	s.occurrences = make(map[string]int)
}

// Slugify lowercases value, drops punctuation and symbols, and turns each
// space into a hyphen. It does not disambiguate.
func Slugify(value string) string {
	var b strings.Builder
	b.Grow(len(value))

	for _, r := range strings.ToLower(value) {
		switch {
		case r == ' ':
			b.WriteRune('-')
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
			b.WriteRune(r)
		}
	}

	return b.String()
}
