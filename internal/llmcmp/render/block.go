// Package render turns a model's raw response text into display blocks
// (headings, paragraphs, lists, rules, fenced code) and formats those
// blocks for the terminal.
package render

import "strings"

// Kind tags the variant held by a Block.
type Kind int

const (
	KindHeading Kind = iota
	KindParagraph
	KindBulletList
	KindOrderedList
	KindRule
	KindCodeBlock
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindBulletList:
		return "bullet-list"
	case KindOrderedList:
		return "ordered-list"
	case KindRule:
		return "rule"
	case KindCodeBlock:
		return "code-block"
	default:
		return "unknown"
	}
}

// SpanKind tags an inline span.
type SpanKind int

const (
	SpanText SpanKind = iota
	SpanCode
	SpanBold
)

// Span is a run of inline text.
type Span struct {
	Kind SpanKind
	Text string
}

// Line is one source line split into spans. An empty line has no spans.
type Line []Span

// Text returns the line's visible text without inline markers.
func (l Line) Text() string {
	var b strings.Builder
	for _, s := range l {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Item is one list entry.
type Item struct {
	Spans  Line
	Depth  int // 0 for top level, 1 for an indented sub-item
	Number int // source number of an ordered item, 0 for bullets
}

// Block is a tagged variant; which fields are meaningful depends on Kind:
//
//	Heading      Level, Text
//	Paragraph    Lines
//	BulletList   Items
//	OrderedList  Items
//	Rule         -
//	CodeBlock    Language, Code
type Block struct {
	Kind     Kind
	Level    int
	Text     string
	Lines    []Line
	Items    []Item
	Language string
	Code     string
}

// Heading returns a heading block.
func Heading(level int, text string) Block {
	return Block{Kind: KindHeading, Level: level, Text: text}
}

// Paragraph returns a paragraph block.
func Paragraph(lines ...Line) Block {
	return Block{Kind: KindParagraph, Lines: lines}
}

// BulletList returns an unordered list block.
func BulletList(items ...Item) Block {
	return Block{Kind: KindBulletList, Items: items}
}

// OrderedList returns an ordered list block.
func OrderedList(items ...Item) Block {
	return Block{Kind: KindOrderedList, Items: items}
}

// Rule returns a horizontal rule block.
func Rule() Block {
	return Block{Kind: KindRule}
}

// CodeBlock returns a fenced code block.
func CodeBlock(language, code string) Block {
	return Block{Kind: KindCodeBlock, Language: language, Code: code}
}
