package verify

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/gnoswap-labs/mmverify/internal"
	tt "github.com/gnoswap-labs/mmverify/internal/types"
)

// Report is the outcome of one run over every requested path.
type Report struct {
	RunID string                 `json:"run_id"`
	Files []*internal.FileReport `json:"files"`
}

// Failed reports whether any database has an issue graded as an error.
func (r *Report) Failed() bool {
	for _, f := range r.Files {
		if f.Failed() {
			return true
		}
	}
	return false
}

// IssuesByFile groups the issues by the file they point into, which may
// be an included file rather than the database that was verified.
func (r *Report) IssuesByFile() (map[string][]tt.Issue, []string) {
	byFile := make(map[string][]tt.Issue)
	for _, f := range r.Files {
		for _, issue := range f.Issues {
			byFile[issue.Filename] = append(byFile[issue.Filename], issue)
		}
	}

	files := make([]string, 0, len(byFile))
	for name := range byFile {
		files = append(files, name)
	}
	sort.Strings(files)
	return byFile, files
}

func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
