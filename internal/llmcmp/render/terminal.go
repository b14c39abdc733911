package render

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyles = map[int]lipgloss.Style{
		1: lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("39")),
		2: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		3: lipgloss.NewStyle().Bold(true),
		4: lipgloss.NewStyle().Bold(true).Faint(true),
	}
	boldStyle       = lipgloss.NewStyle().Bold(true)
	inlineCodeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	ruleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	codeLabelStyle  = lipgloss.NewStyle().Faint(true)
	codeBoxStyle    = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).
			PaddingLeft(1)
)

// Format renders blocks as terminal text wrapped to width columns.
func Format(blocks []Block, width int) string {
	if width < 10 {
		width = 10
	}
	wrap := lipgloss.NewStyle().Width(width)

	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case KindHeading:
			style, ok := headingStyles[b.Level]
			if !ok {
				style = boldStyle
			}
			parts = append(parts, wrap.Render(style.Render(b.Text)))
		case KindParagraph:
			lines := make([]string, len(b.Lines))
			for i, l := range b.Lines {
				lines[i] = formatLine(l)
			}
			parts = append(parts, wrap.Render(strings.Join(lines, "\n")))
		case KindBulletList, KindOrderedList:
			parts = append(parts, formatList(b, width))
		case KindRule:
			parts = append(parts, ruleStyle.Render(strings.Repeat("─", width)))
		case KindCodeBlock:
			parts = append(parts, formatCode(b.Language, b.Code))
		}
	}
	return strings.Join(parts, "\n")
}

func formatLine(l Line) string {
	var sb strings.Builder
	for _, s := range l {
		switch s.Kind {
		case SpanBold:
			sb.WriteString(boldStyle.Render(s.Text))
		case SpanCode:
			sb.WriteString(inlineCodeStyle.Render(s.Text))
		default:
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

func formatList(b Block, width int) string {
	lines := make([]string, 0, len(b.Items))
	for i, item := range b.Items {
		marker := "• "
		if b.Kind == KindOrderedList {
			n := item.Number
			if n == 0 {
				n = i + 1
			}
			marker = fmt.Sprintf("%d. ", n)
		}
		indent := strings.Repeat("  ", item.Depth)
		prefix := indent + marker
		body := lipgloss.NewStyle().Width(max(width-lipgloss.Width(prefix), 1)).Render(formatLine(item.Spans))
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, prefix, body))
	}
	return strings.Join(lines, "\n")
}

func formatCode(language, code string) string {
	highlighted, err := highlightCode(code, language)
	if err != nil {
		highlighted = code
	}
	label := language
	if label == "" {
		label = "code"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		codeLabelStyle.Render(label),
		codeBoxStyle.Render(strings.TrimRight(highlighted, "\n")),
	)
}

// highlightCode applies syntax highlighting with chroma. The lexer comes
// from the fence tag, then content analysis, then the plain-text fallback.
func highlightCode(code, language string) (string, error) {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := formatter.Format(&sb, style, iterator); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Plain renders blocks back to unstyled text; used for transcripts and
// non-terminal output.
func Plain(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case KindHeading:
			parts = append(parts, strings.Repeat("#", b.Level)+" "+b.Text)
		case KindParagraph:
			lines := make([]string, len(b.Lines))
			for i, l := range b.Lines {
				lines[i] = l.Text()
			}
			parts = append(parts, strings.Join(lines, "\n"))
		case KindBulletList, KindOrderedList:
			for i, item := range b.Items {
				marker := "- "
				if b.Kind == KindOrderedList {
					n := item.Number
					if n == 0 {
						n = i + 1
					}
					marker = fmt.Sprintf("%d. ", n)
				}
				parts = append(parts, strings.Repeat("  ", item.Depth)+marker+item.Spans.Text())
			}
		case KindRule:
			parts = append(parts, "---")
		case KindCodeBlock:
			parts = append(parts, fence+b.Language+"\n"+b.Code+"\n"+fence)
		}
	}
	return strings.Join(parts, "\n")
}
