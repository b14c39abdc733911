package render

import (
	"strconv"
	"strings"
)

const fence = "```"

// Render scans raw once, left to right, and returns its display blocks.
//
// A fence is "```", an optional language tag and a newline; the code runs
// to the next "```". A fence with no closing delimiter is not code: the
// rest of the input, marker included, is ordinary text.
func Render(raw string) []Block {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var blocks []Block
	textStart, pos := 0, 0
	for {
		idx := strings.Index(raw[pos:], fence)
		if idx < 0 {
			break
		}
		open := pos + idx

		lang, bodyStart, ok := openingFence(raw, open)
		if !ok {
			pos = open + 1
			continue
		}
		closeIdx := strings.Index(raw[bodyStart:], fence)
		if closeIdx < 0 {
			break
		}

		blocks = append(blocks, renderText(strings.TrimSuffix(raw[textStart:open], "\n"))...)
		code := raw[bodyStart : bodyStart+closeIdx]
		blocks = append(blocks, CodeBlock(lang, strings.TrimSuffix(code, "\n")))

		pos = bodyStart + closeIdx + len(fence)
		if strings.HasPrefix(raw[pos:], "\n") {
			pos++
		}
		textStart = pos
	}
	return append(blocks, renderText(raw[textStart:])...)
}

// openingFence reports whether raw[open:] starts a code fence and returns
// its language tag and the offset where the code begins.
func openingFence(raw string, open int) (string, int, bool) {
	i := open + len(fence)
	start := i
	for i < len(raw) && isLangByte(raw[i]) {
		i++
	}
	lang := raw[start:i]
	for i < len(raw) && (raw[i] == ' ' || raw[i] == '\t') {
		i++
	}
	if i >= len(raw) || raw[i] != '\n' {
		return "", 0, false
	}
	return lang, i + 1, true
}

func isLangByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '+', c == '-', c == '#', c == '.':
		return true
	}
	return false
}

type lineKind int

const (
	lineParagraph lineKind = iota
	lineHeading
	lineBullet
	lineOrdered
	lineRule
)

type classified struct {
	kind   lineKind
	level  int    // heading level
	depth  int    // bullet depth
	number int    // ordered item number
	text   string // line content with its marker removed
}

// renderText classifies the lines of a fence-free segment and coalesces
// runs of list items and paragraph lines.
func renderText(text string) []Block {
	if text == "" {
		return nil
	}

	var blocks []Block
	var cur *Block
	flush := func() {
		if cur != nil {
			blocks = append(blocks, *cur)
			cur = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		c := classify(line)
		switch c.kind {
		case lineHeading:
			flush()
			blocks = append(blocks, Heading(c.level, c.text))
		case lineRule:
			flush()
			blocks = append(blocks, Rule())
		case lineBullet, lineOrdered:
			kind := KindBulletList
			if c.kind == lineOrdered {
				kind = KindOrderedList
			}
			if cur == nil || cur.Kind != kind {
				flush()
				cur = &Block{Kind: kind}
			}
			cur.Items = append(cur.Items, Item{Spans: parseInline(c.text), Depth: c.depth, Number: c.number})
		default:
			if cur == nil || cur.Kind != KindParagraph {
				flush()
				cur = &Block{Kind: KindParagraph}
			}
			cur.Lines = append(cur.Lines, parseInline(line))
		}
	}
	flush()
	return blocks
}

func classify(line string) classified {
	if level, rest, ok := headingMarker(line); ok {
		return classified{kind: lineHeading, level: level, text: rest}
	}
	if n, rest, ok := orderedMarker(line); ok {
		return classified{kind: lineOrdered, number: n, text: rest}
	}
	if rest, ok := bulletMarker(line); ok {
		return classified{kind: lineBullet, text: rest}
	}
	if indent := leadingSpaces(line); indent >= 2 {
		if rest, ok := bulletMarker(line[indent:]); ok {
			return classified{kind: lineBullet, depth: 1, text: rest}
		}
	}
	if isRule(line) {
		return classified{kind: lineRule}
	}
	return classified{kind: lineParagraph}
}

// headingMarker matches "# " through "#### ".
func headingMarker(line string) (int, string, bool) {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 4 || n >= len(line) || line[n] != ' ' {
		return 0, "", false
	}
	return n, line[n+1:], true
}

// orderedMarker matches one or more digits, a dot and whitespace.
func orderedMarker(line string) (int, string, bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || line[i] != '.' {
		return 0, "", false
	}
	rest, ok := afterWhitespace(line[i+1:])
	if !ok {
		return 0, "", false
	}
	n, err := strconv.Atoi(line[:i])
	if err != nil {
		// Digit runs too long for int still form an item.
		n = 0
	}
	return n, rest, true
}

// bulletMarker matches "-" or "*" followed by whitespace.
func bulletMarker(line string) (string, bool) {
	if line == "" || (line[0] != '-' && line[0] != '*') {
		return "", false
	}
	return afterWhitespace(line[1:])
}

// afterWhitespace requires at least one space or tab and strips the run.
func afterWhitespace(s string) (string, bool) {
	trimmed := strings.TrimLeft(s, " \t")
	if len(trimmed) == len(s) {
		return "", false
	}
	return trimmed, true
}

func leadingSpaces(line string) int {
	n := 0
	for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}
	return n
}

// isRule matches a line of three or more dashes, ignoring surrounding whitespace.
func isRule(line string) bool {
	t := strings.TrimSpace(line)
	return len(t) >= 3 && strings.Trim(t, "-") == ""
}
