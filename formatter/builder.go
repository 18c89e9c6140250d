package formatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	"github.com/gnoswap-labs/mmverify/internal"
	tt "github.com/gnoswap-labs/mmverify/internal/types"
)

const tabWidth = 8

// rule set
const (
	IncompleteProof = "incomplete-proof"
)

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	infoStyle    = color.New(color.FgHiWhite, color.Bold)
	ruleStyle    = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
	noteStyle    = color.New(color.FgGreen, color.Bold)
)

// SetColor turns colored output on or off for every formatter.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// issueFormatter is the interface that wraps the IssueTemplate method.
// Implementations of this interface are responsible for formatting specific kinds of diagnostics.
type issueFormatter interface {
	IssueTemplate() string
}

// getIssueFormatter returns the formatter for rule. Rules without a
// dedicated formatter use GeneralIssueFormatter.
func getIssueFormatter(rule string) issueFormatter {
	switch rule {
	case IncompleteProof:
		return &IncompleteProofFormatter{}
	default:
		return &GeneralIssueFormatter{}
	}
}

// GenerateFormattedIssue formats a slice of issues into a human-readable string.
func GenerateFormattedIssue(issues []tt.Issue, snippet *internal.SourceCode) string {
	var builder strings.Builder
	for _, issue := range issues {
		formatter := getIssueFormatter(issue.Rule)
		builder.WriteString(buildIssue(issue, snippet, formatter))
	}
	return builder.String()
}

// IssueData is what an issue template is executed with.
type IssueData struct {
	Severity string
	Rule     string
	Filename string
	Message  string
	Note     string

	StartLine   int
	StartColumn int

	// Width is the width of the widest line number shown, and Gutter the
	// blank column printed in front of every '|' and '=' line.
	Width  int
	Gutter string

	// Snippet holds the offending source lines with their shared
	// indentation removed; it is empty when the lines are not available.
	Snippet []string
	Offset  int
	Length  int
}

var funcMap = template.FuncMap{
	"header":              header,
	"snippet":             codeSnippet,
	"underlineAndMessage": underlineAndMessage,
	"note":                note,
	"hint":                hint,
}

func newIssueData(issue tt.Issue, source *internal.SourceCode) IssueData {
	start := issue.Start
	end := issue.End
	if end.Line < start.Line {
		end.Line = start.Line
	}
	if end.Line == start.Line && end.Column <= start.Column {
		end.Column = tokenEnd(source.Lines, start.Line, start.Column)
	}

	width := len(strconv.Itoa(end.Line))
	data := IssueData{
		Severity:    issue.Severity.String(),
		Rule:        issue.Rule,
		Filename:    issue.Filename,
		Message:     issue.Message,
		Note:        issue.Note,
		StartLine:   start.Line,
		StartColumn: start.Column,
		Width:       width,
		Gutter:      strings.Repeat(" ", width+1),
	}

	lines, ok := lineRange(source.Lines, start.Line, end.Line)
	if !ok {
		return data
	}
	indent := findCommonIndent(lines)
	shift := visualWidth(indent)
	for _, line := range lines {
		data.Snippet = append(data.Snippet, strings.TrimPrefix(line, indent))
	}
	data.Offset = max(visualWidth(prefix(lines[0], start.Column-1))-shift, 0)
	last := visualWidth(prefix(lines[len(lines)-1], end.Column)) - shift
	data.Length = max(last-data.Offset, 1)
	return data
}

func buildIssue(issue tt.Issue, source *internal.SourceCode, formatter issueFormatter) string {
	if source == nil {
		source = &internal.SourceCode{}
	}
	tmpl := template.Must(template.New(issue.Rule).Funcs(funcMap).Parse(formatter.IssueTemplate()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newIssueData(issue, source)); err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}
	return buf.String()
}

// template functions

func header(rule string, severity string, width int, filename string, line int, column int) string {
	var out string
	switch severity {
	case "ERROR":
		out = errorStyle.Sprint("error: ")
	case "WARNING":
		out = warningStyle.Sprint("warning: ")
	case "INFO":
		out = infoStyle.Sprint("info: ")
	}
	out += ruleStyle.Sprintf("%s\n", rule)
	out += lineStyle.Sprintf("%s--> ", strings.Repeat(" ", width))
	if line > 0 {
		return out + fileStyle.Sprintf("%s:%d:%d\n", filename, line, column)
	}
	return out + fileStyle.Sprintf("%s\n", filename)
}

func codeSnippet(lines []string, first int, width int, gutter string) string {
	if len(lines) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(lineStyle.Sprintf("%s|\n", gutter))
	for i, line := range lines {
		sb.WriteString(lineStyle.Sprintf("%*d | ", width, first+i))
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func underlineAndMessage(message string, gutter string, lines []string, offset int, length int) string {
	var out string
	if len(lines) > 0 {
		out = lineStyle.Sprintf("%s| ", gutter) + strings.Repeat(" ", offset) +
			messageStyle.Sprintf("%s\n", strings.Repeat("~", length))
	}
	return out + lineStyle.Sprintf("%s= ", gutter) + messageStyle.Sprintf("%s\n", message)
}

func note(text string, gutter string) string {
	if text == "" {
		return ""
	}
	return lineStyle.Sprintf("%s= ", gutter) + noteStyle.Sprint("note: ") + text + "\n"
}

func hint(text string, gutter string) string {
	return lineStyle.Sprintf("%s= ", gutter) + noteStyle.Sprint("help: ") + text + "\n"
}

// helpers

// lineRange returns lines first..last (1-based, inclusive).
func lineRange(lines []string, first, last int) ([]string, bool) {
	if first < 1 || last < first || last > len(lines) {
		return nil, false
	}
	return lines[first-1 : last], true
}

// prefix returns the first n bytes of line, clamped to its length.
func prefix(line string, n int) string {
	return line[:min(max(n, 0), len(line))]
}

// tokenEnd returns the column of the last character of the token starting
// at column on line.
func tokenEnd(lines []string, line int, column int) int {
	if line < 1 || line > len(lines) || column < 1 {
		return column
	}
	text := lines[line-1]
	end := column
	for end < len(text) && !unicode.IsSpace(rune(text[end])) {
		end++
	}
	return end
}

// visualWidth is the number of terminal cells s occupies, with tabs
// expanded to the next multiple of tabWidth.
func visualWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w = (w/tabWidth + 1) * tabWidth
			continue
		}
		w++
	}
	return w
}

// findCommonIndent returns the leading whitespace shared by every
// non-blank line.
func findCommonIndent(lines []string) string {
	indent := ""
	seen := false
	for _, line := range lines {
		body := strings.TrimLeftFunc(line, unicode.IsSpace)
		if body == "" {
			continue
		}
		lead := line[:len(line)-len(body)]
		if !seen {
			indent, seen = lead, true
			continue
		}
		n := 0
		for n < len(indent) && n < len(lead) && indent[n] == lead[n] {
			n++
		}
		indent = indent[:n]
	}
	return indent
}
