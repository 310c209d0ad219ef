package store

import (
	"regexp"
	"strings"
	"unicode"
)

// identPattern matches identifier-like runs, underscores included so
// snake_case survives the first split.
var identPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// codeStopWords are keywords too common in code samples to rank on.
var codeStopWords = map[string]struct{}{
	"var": {}, "let": {}, "const": {}, "function": {}, "return": {},
	"import": {}, "export": {}, "from": {}, "if": {}, "else": {},
	"for": {}, "while": {}, "await": {}, "async": {}, "new": {},
}

// TokenizeCode splits code into lowercased terms. camelCase, PascalCase
// and snake_case identifiers are broken into their words; single
// characters are dropped.
func TokenizeCode(text string) []string {
	var tokens []string
	for _, word := range identPattern.FindAllString(text, -1) {
		for _, part := range SplitCodeToken(word) {
			lower := strings.ToLower(part)
			if len([]rune(lower)) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

// SplitCodeToken splits camelCase and snake_case identifiers.
func SplitCodeToken(token string) []string {
	if !strings.Contains(token, "_") {
		return SplitCamelCase(token)
	}

	var result []string
	for _, part := range strings.Split(token, "_") {
		if part != "" {
			result = append(result, SplitCamelCase(part)...)
		}
	}
	return result
}

// SplitCamelCase splits camelCase and PascalCase identifiers.
// Examples:
//   - "superForm" -> ["super", "Form"]
//   - "HTMLFormElement" -> ["HTML", "Form", "Element"]
//   - "parseHTTPRequest" -> ["parse", "HTTP", "Request"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// an acronym ends where a lowercase run starts
			if (prevIsLower || nextIsLower) && current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func isCodeStopWord(term string) bool {
	_, ok := codeStopWords[term]
	return ok
}
