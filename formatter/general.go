package formatter

type GeneralIssueFormatter struct{}

func (f *GeneralIssueFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .Width .Filename .StartLine .StartColumn -}}
{{snippet .Snippet .StartLine .Width .Gutter -}}
{{underlineAndMessage .Message .Gutter .Snippet .Offset .Length -}}
{{note .Note .Gutter}}
`
}
