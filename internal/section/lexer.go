package section

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdown is the shared parser. goldmark parsers are safe for concurrent use.
var markdown = goldmark.New()

// Lex parses body as CommonMark and flattens it into tokens in document order.
//
// A heading yields a KindHeading token followed by the tokens of its own
// inline content, so the first token after a heading is its text. Block
// boundaries yield KindSpace tokens.
func Lex(body []byte) []Token {
	doc := markdown.Parser().Parse(text.NewReader(body))
	l := &lexer{source: body}
	_ = ast.Walk(doc, l.visit)
	return l.tokens
}

type lexer struct {
	source []byte
	tokens []Token
}

func (l *lexer) emit(kind TokenKind, txt, raw string) {
	l.tokens = append(l.tokens, Token{Kind: kind, Text: txt, Raw: raw})
}

func (l *lexer) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			t := plainText(node, l.source)
			l.emit(KindHeading, t, t)
		} else {
			l.emit(KindSpace, "", "\n\n")
		}

	case *ast.Paragraph, *ast.TextBlock:
		if !entering {
			l.emit(KindSpace, "", "\n\n")
		}

	case *ast.Text:
		if entering {
			v := string(node.Segment.Value(l.source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				v += "\n"
			}
			l.emit(KindText, v, v)
		}

	case *ast.String:
		if entering {
			v := string(node.Value)
			l.emit(KindText, v, v)
		}

	case *ast.AutoLink:
		if entering {
			v := string(node.Label(l.source))
			l.emit(KindText, v, v)
		}

	case *ast.CodeSpan:
		if entering {
			v := plainText(node, l.source)
			l.emit(KindCodeSpan, v, "`"+v+"`")
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock:
		if entering {
			body := blockLines(node, l.source)
			lang := string(node.Language(l.source))
			l.emit(KindCode, body, "```"+lang+"\n"+body+"```\n")
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock:
		if entering {
			body := blockLines(node, l.source)
			l.emit(KindCode, body, body)
		}
		return ast.WalkSkipChildren, nil

	case *ast.Image, *ast.HTMLBlock, *ast.RawHTML:
		if entering {
			l.emit(KindOther, "", "")
		}
		return ast.WalkSkipChildren, nil

	case *ast.ThematicBreak:
		if entering {
			l.emit(KindOther, "", "")
		}
	}

	return ast.WalkContinue, nil
}

// plainText concatenates the text leaves below n.
func plainText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// blockLines returns the raw lines of a block node.
func blockLines(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}
