package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/section"
)

func newIndex(t *testing.T, sections ...section.Section) *Index {
	t.Helper()
	b, err := NewBuilder()
	require.NoError(t, err)
	idx, err := b.Create()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.InsertBatch(sections))
	return idx
}

func defaultQuery(term string) Query {
	return Query{Term: term, Fuzziness: 1, Limit: 8, Boost: DefaultBoost}
}

func TestBuilder_CreateIsEmpty(t *testing.T) {
	idx := newIndex(t)

	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Sections())
	assert.Equal(t, SchemaVersion, idx.Info().SchemaVersion)
}

func TestIndex_InsertKeepsDuplicates(t *testing.T) {
	// Given: the same section inserted twice
	s := section.Section{Title: "Events", Slug: "events", URL: "/concepts/events", Content: "Events fire."}
	idx := newIndex(t)

	// When: inserting
	require.NoError(t, idx.Insert(s))
	require.NoError(t, idx.Insert(s))

	// Then: both entries exist and both match
	assert.Equal(t, 2, idx.Len())
	hits, err := idx.Search(context.Background(), defaultQuery("events"))
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestBuilder_ResetDiscardsSections(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)
	first, err := b.Create()
	require.NoError(t, err)
	require.NoError(t, first.Insert(section.Section{Title: "A", Slug: "a", URL: "/", Content: "x"}))

	second, err := b.Reset()
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, 0, second.Len())
	assert.Same(t, second, b.Current())
	assert.Error(t, first.Insert(section.Section{Title: "B"}))
}

func TestSearch_TitleOutranksContent(t *testing.T) {
	// Given: one section titled with the term, one mentioning it in prose
	idx := newIndex(t,
		section.Section{Title: "Other", Slug: "other", URL: "/b", Content: "Talk about events."},
		section.Section{Title: "Events", Slug: "events", URL: "/a", Content: "Unrelated text."},
	)

	// When: searching
	hits, err := idx.Search(context.Background(), defaultQuery("events"))

	// Then: the title match comes first
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Events", hits[0].Section.Title)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestSearch_ToleratesOneTypo(t *testing.T) {
	idx := newIndex(t, section.Section{Title: "Validation", Slug: "validation", URL: "/v", Content: "Validate forms."})

	hits, err := idx.Search(context.Background(), defaultQuery("valdation"))

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/v", hits[0].Section.URL)
}

func TestSearch_ZeroFuzzinessIsExact(t *testing.T) {
	idx := newIndex(t, section.Section{Title: "Validation", Slug: "validation", URL: "/v", Content: "Validate forms."})

	q := defaultQuery("valdation")
	q.Fuzziness = 0
	hits, err := idx.Search(context.Background(), q)

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_PrefixOfLastWord(t *testing.T) {
	idx := newIndex(t, section.Section{Title: "Proxy objects", Slug: "proxy-objects", URL: "/p", Content: "Field proxies."})

	hits, err := idx.Search(context.Background(), defaultQuery("prox"))

	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "/p", hits[0].Section.URL)
}

func TestSearch_MatchesCodeIdentifiers(t *testing.T) {
	// Given: a section whose only mention is a camelCase identifier in code
	idx := newIndex(t, section.Section{
		Title: "Usage", Slug: "usage", URL: "/u",
		Content: "Call it in load.",
		Code:    "const form = await superValidate(schema);\n",
	})

	// When: searching for a word of the identifier
	hits, err := idx.Search(context.Background(), defaultQuery("validate"))

	// Then: the code field matches
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "usage", hits[0].Section.Slug)
}

func TestSearch_LimitCapsHits(t *testing.T) {
	var sections []section.Section
	for i := 0; i < 20; i++ {
		sections = append(sections, section.Section{
			Title: fmt.Sprintf("Store %d", i), Slug: fmt.Sprintf("store-%d", i), URL: "/s", Content: "store content",
		})
	}
	idx := newIndex(t, sections...)

	hits, err := idx.Search(context.Background(), defaultQuery("store"))

	require.NoError(t, err)
	assert.Len(t, hits, 8)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestSearch_RejectsBadQuery(t *testing.T) {
	idx := newIndex(t)

	_, err := idx.Search(context.Background(), Query{Term: "x", Fuzziness: 3, Limit: 8, Boost: DefaultBoost})
	assert.Error(t, err)

	_, err = idx.Search(context.Background(), Query{Term: "x", Fuzziness: 1, Limit: 0, Boost: DefaultBoost})
	assert.Error(t, err)
}

func TestSearch_BlankTermIsEmpty(t *testing.T) {
	idx := newIndex(t, section.Section{Title: "A", Slug: "a", URL: "/", Content: "x"})

	hits, err := idx.Search(context.Background(), defaultQuery("   "))

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_ClosedIndex(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Close())

	_, err := idx.Search(context.Background(), defaultQuery("anything"))

	assert.Error(t, err)
}
