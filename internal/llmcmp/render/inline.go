package render

import "strings"

// parseInline splits one line into text, code and bold spans.
// Code spans are found first; bold markers inside code are left alone.
// Neither kind nests and empty spans are not recognised.
func parseInline(line string) Line {
	var out Line
	pos := 0
	for pos < len(line) {
		open, close := nextCodeSpan(line, pos)
		if open < 0 {
			break
		}
		out = appendBold(out, line[pos:open])
		out = append(out, Span{Kind: SpanCode, Text: line[open+1 : close]})
		pos = close + 1
	}
	return appendBold(out, line[pos:])
}

// nextCodeSpan finds the first backtick pair at or after pos enclosing at
// least one non-backtick byte.
func nextCodeSpan(line string, pos int) (int, int) {
	for {
		i := strings.IndexByte(line[pos:], '`')
		if i < 0 {
			return -1, -1
		}
		open := pos + i
		j := strings.IndexByte(line[open+1:], '`')
		if j < 0 {
			return -1, -1
		}
		if j > 0 {
			return open, open + 1 + j
		}
		pos = open + 1
	}
}

// appendBold appends text to out, splitting **x** and __x__ into bold spans.
func appendBold(out Line, text string) Line {
	pos := 0
	for pos < len(text) {
		open, marker := nextBoldMarker(text, pos)
		if open < 0 {
			break
		}
		inner := open + len(marker)
		end := -1
		if inner < len(text) {
			if k := strings.Index(text[inner+1:], marker); k >= 0 {
				end = inner + 1 + k
			}
		}
		if end < 0 {
			// No closing marker: try the next position.
			out = appendText(out, text[pos:open+1])
			pos = open + 1
			continue
		}
		out = appendText(out, text[pos:open])
		out = append(out, Span{Kind: SpanBold, Text: text[inner:end]})
		pos = end + len(marker)
	}
	return appendText(out, text[pos:])
}

func nextBoldMarker(text string, pos int) (int, string) {
	a := strings.Index(text[pos:], "**")
	b := strings.Index(text[pos:], "__")
	switch {
	case a < 0 && b < 0:
		return -1, ""
	case b < 0 || (a >= 0 && a < b):
		return pos + a, "**"
	default:
		return pos + b, "__"
	}
}

// appendText appends a text span, merging it into a preceding text span.
func appendText(out Line, text string) Line {
	if text == "" {
		return out
	}
	if n := len(out); n > 0 && out[n-1].Kind == SpanText {
		out[n-1].Text += text
		return out
	}
	return append(out, Span{Kind: SpanText, Text: text})
}
