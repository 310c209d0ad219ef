package store

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// CodeTokenizerName is the name of the code tokenizer.
	CodeTokenizerName = "docsearch_code_tokenizer"

	// CodeStopFilterName is the name of the code keyword filter.
	CodeStopFilterName = "docsearch_code_stop"

	// CodeAnalyzerName is the name of the analyzer used on the code field.
	CodeAnalyzerName = "docsearch_code"
)

func init() {
	_ = registry.RegisterTokenizer(CodeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(CodeStopFilterName, codeStopFilterConstructor)
}

// buildMapping creates the fixed section schema. Nothing is stored in bleve:
// hits are mapped back to the section list by document id.
func buildMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()

	err := im.AddCustomAnalyzer(CodeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": CodeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			CodeStopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add code analyzer: %w", err)
	}

	text := func(analyzer string) *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = analyzer
		fm.Store = false
		fm.IncludeInAll = false
		return fm
	}

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(FieldTitle, text(standard.Name))
	doc.AddFieldMappingsAt(FieldContent, text(standard.Name))
	doc.AddFieldMappingsAt(FieldCode, text(CodeAnalyzerName))
	doc.AddFieldMappingsAt(FieldSlug, text(keyword.Name))
	doc.AddFieldMappingsAt(FieldURL, text(keyword.Name))

	im.DefaultMapping = doc
	im.DefaultAnalyzer = standard.Name
	return im, nil
}

func codeTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &codeTokenizer{}, nil
}

// codeTokenizer emits the TokenizeCode terms with their byte offsets.
type codeTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	result := make(analysis.TokenStream, 0, 16)
	pos := 1

	for _, loc := range identPattern.FindAllStringIndex(text, -1) {
		word := text[loc[0]:loc[1]]
		off := 0
		for _, part := range SplitCodeToken(word) {
			i := strings.Index(word[off:], part)
			if i < 0 {
				continue
			}
			start := loc[0] + off + i
			off += i + len(part)
			if len([]rune(part)) < 2 {
				continue
			}
			result = append(result, &analysis.Token{
				Term:     []byte(part),
				Start:    start,
				End:      start + len(part),
				Position: pos,
				Type:     analysis.AlphaNumeric,
			})
			pos++
		}
	}
	return result
}

func codeStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &codeStopFilter{}, nil
}

// codeStopFilter drops language keywords. It runs after lowercasing.
type codeStopFilter struct{}

// Filter implements analysis.TokenFilter.
func (f *codeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := input[:0]
	for _, token := range input {
		if !isCodeStopWord(string(token.Term)) {
			result = append(result, token)
		}
	}
	return result
}
