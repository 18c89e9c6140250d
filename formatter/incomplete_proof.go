package formatter

// IncompleteProofFormatter renders theorems whose proofs contain "?" steps.
type IncompleteProofFormatter struct{}

func (f *IncompleteProofFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .Width .Filename .StartLine .StartColumn -}}
{{snippet .Snippet .StartLine .Width .Gutter -}}
{{underlineAndMessage .Message .Gutter .Snippet .Offset .Length -}}
{{note .Note .Gutter -}}
{{hint "unknown steps were skipped; the statement was not checked" .Gutter}}
`
}
