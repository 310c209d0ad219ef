package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/docsearch/internal/section"
)

// maxFuzziness is the largest edit distance bleve accepts.
const maxFuzziness = 2

// Builder creates empty indexes bound to the section schema.
type Builder struct {
	mapping mapping.IndexMapping

	mu      sync.Mutex
	current *Index
}

// NewBuilder prepares the schema.
func NewBuilder() (*Builder, error) {
	m, err := buildMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}
	return &Builder{mapping: m}, nil
}

// Create returns a fresh, empty index and makes it the builder's current one.
func (b *Builder) Create() (*Index, error) {
	idx, err := b.newIndex()
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.current = idx
	b.mu.Unlock()
	return idx, nil
}

// Reset closes the current index, if any, and creates a new empty one.
func (b *Builder) Reset() (*Index, error) {
	b.mu.Lock()
	old := b.current
	b.current = nil
	b.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return b.Create()
}

// Current returns the index last returned by Create or Reset.
func (b *Builder) Current() *Index {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *Builder) newIndex() (*Index, error) {
	bi, err := bleve.NewMemOnly(b.mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &Index{
		bleve: bi,
		info:  Info{SchemaVersion: SchemaVersion},
	}, nil
}

// Index is a searchable set of sections.
// Search is safe for concurrent use; inserts must not race with each other.
type Index struct {
	mu       sync.RWMutex
	bleve    bleve.Index
	sections []section.Section
	info     Info
	closed   bool
}

// Insert adds a section. Duplicates are kept as separate entries.
func (i *Index) Insert(s section.Section) error {
	return i.InsertBatch([]section.Section{s})
}

// InsertBatch adds sections in order with a single bleve batch.
func (i *Index) InsertBatch(sections []section.Section) error {
	if len(sections) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return fmt.Errorf("index is closed")
	}

	batch := i.bleve.NewBatch()
	for n, s := range sections {
		id := strconv.Itoa(len(i.sections) + n)
		if err := batch.Index(id, document(s)); err != nil {
			return fmt.Errorf("failed to index section %q of %s: %w", s.Title, s.URL, err)
		}
	}
	if err := i.bleve.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}

	i.sections = append(i.sections, sections...)
	return nil
}

func document(s section.Section) map[string]interface{} {
	return map[string]interface{}{
		FieldTitle:   s.Title,
		FieldSlug:    s.Slug,
		FieldURL:     s.URL,
		FieldContent: s.Content,
		FieldCode:    s.Code,
	}
}

// Sections returns the sections in insertion order.
func (i *Index) Sections() []section.Section {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]section.Section, len(i.sections))
	copy(out, i.sections)
	return out
}

// Len returns the number of sections.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.sections)
}

// Info returns the index metadata.
func (i *Index) Info() Info {
	i.mu.RLock()
	defer i.mu.RUnlock()

	info := i.info
	info.Count = len(i.sections)
	return info
}

// Stamp records the corpus digest and build time.
func (i *Index) Stamp(digest string, builtAt time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.info.Digest = digest
	i.info.BuiltAt = builtAt.UTC()
}

// Search runs q and returns hits ordered by descending score.
func (i *Index) Search(ctx context.Context, q Query) ([]Hit, error) {
	if q.Fuzziness < 0 || q.Fuzziness > maxFuzziness {
		return nil, fmt.Errorf("fuzziness must be between 0 and %d, got %d", maxFuzziness, q.Fuzziness)
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", q.Limit)
	}
	if strings.TrimSpace(q.Term) == "" {
		return []Hit{}, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, fmt.Errorf("index is closed")
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q), q.Limit, 0, false)
	res, err := i.bleve.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		n, err := strconv.Atoi(h.ID)
		if err != nil || n < 0 || n >= len(i.sections) {
			return nil, fmt.Errorf("search returned unknown document %q", h.ID)
		}
		hits = append(hits, Hit{Section: i.sections[n], Score: h.Score})
	}
	return hits, nil
}

// buildQuery ORs a fuzzy match per field with a prefix match on the last
// word, so a partially typed word still finds its section.
func buildQuery(q Query) query.Query {
	fields := []struct {
		name  string
		boost float64
	}{
		{FieldTitle, q.Boost.Title},
		{FieldContent, q.Boost.Content},
		{FieldCode, q.Boost.Code},
	}

	clauses := make([]query.Query, 0, len(fields)+2)
	for _, f := range fields {
		mq := bleve.NewMatchQuery(q.Term)
		mq.SetField(f.name)
		mq.SetFuzziness(q.Fuzziness)
		mq.SetBoost(f.boost)
		clauses = append(clauses, mq)
	}

	words := strings.Fields(strings.ToLower(q.Term))
	if last := words[len(words)-1]; utf8.RuneCountInString(last) >= 2 {
		for _, f := range fields[:2] {
			pq := bleve.NewPrefixQuery(last)
			pq.SetField(f.name)
			pq.SetBoost(f.boost)
			clauses = append(clauses, pq)
		}
	}

	return bleve.NewDisjunctionQuery(clauses...)
}

// Close releases the bleve index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true
	return i.bleve.Close()
}
