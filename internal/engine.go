package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/mmverify/internal/mm"
	tt "github.com/gnoswap-labs/mmverify/internal/types"
)

const categoryVerification = "verification"

// FileReport is the outcome of verifying one database.
type FileReport struct {
	Filename string     `json:"filename"`
	Stats    mm.Stats   `json:"stats"`
	Issues   []tt.Issue `json:"issues"`
}

// Failed reports whether the database has an issue graded as an error.
func (r *FileReport) Failed() bool {
	for _, issue := range r.Issues {
		if issue.Severity == tt.SeverityError {
			return true
		}
	}
	return false
}

// Engine verifies databases and turns diagnostics into issues.
type Engine struct {
	rootDir      string
	logger       *zap.Logger
	severities   map[string]tt.Severity
	ignoredRules map[string]bool
	ignoredPaths []string
}

// NewEngine creates a new verification engine. rootDir resolves inclusions
// of sources verified with RunSource.
func NewEngine(rootDir string, rules map[string]tt.ConfigRule, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := &Engine{
		rootDir: rootDir,
		logger:  logger,
	}
	if err := engine.applyRules(rules); err != nil {
		return nil, err
	}
	return engine, nil
}

func (e *Engine) applyRules(rules map[string]tt.ConfigRule) error {
	e.severities = map[string]tt.Severity{
		mm.KindIncompleteProof.String(): tt.SeverityWarning,
	}
	for key, rule := range rules {
		if key != mm.KindIncompleteProof.String() {
			// fatal diagnostics are always errors
			e.logger.Debug("ignoring severity of non gradable rule", zap.String("rule", key))
			continue
		}
		if rule.Severity < tt.SeverityError || rule.Severity > tt.SeverityOff {
			return fmt.Errorf("invalid severity %d for rule %s", rule.Severity, key)
		}
		e.severities[key] = rule.Severity
		if rule.Severity == tt.SeverityOff {
			e.IgnoreRule(key)
		}
	}
	return nil
}

// Check verifies the database at filename.
func (e *Engine) Check(ctx context.Context, filename string) (*FileReport, error) {
	if e.isIgnoredPath(filename) {
		return &FileReport{Filename: filename}, nil
	}

	res, err := mm.VerifyFile(ctx, filename, mm.WithLogger(e.logger.With(zap.String("file", filename))))
	return e.report(filename, res, err)
}

// CheckSource verifies an in-memory database.
func (e *Engine) CheckSource(ctx context.Context, source []byte) (*FileReport, error) {
	res, err := mm.VerifyReader(ctx, "", bytes.NewReader(source),
		mm.WithLogger(e.logger),
		mm.WithOpener(mm.DirOpener(e.rootDir)),
	)
	return e.report("", res, err)
}

// Run verifies the database at filename and returns its issues.
func (e *Engine) Run(ctx context.Context, filename string) ([]tt.Issue, error) {
	r, err := e.Check(ctx, filename)
	if err != nil {
		return nil, err
	}
	return r.Issues, nil
}

// RunSource verifies source and returns its issues.
func (e *Engine) RunSource(ctx context.Context, source []byte) ([]tt.Issue, error) {
	r, err := e.CheckSource(ctx, source)
	if err != nil {
		return nil, err
	}
	return r.Issues, nil
}

func (e *Engine) report(filename string, res *mm.Result, err error) (*FileReport, error) {
	var diag *mm.Error
	if err != nil && !errors.As(err, &diag) {
		return nil, err
	}

	r := &FileReport{Filename: filename}
	if res != nil {
		r.Stats = res.Stats
		for _, w := range res.Warnings {
			if issue, ok := e.toIssue(filename, w); ok {
				r.Issues = append(r.Issues, issue)
			}
		}
	}
	if diag != nil {
		issue, _ := e.toIssue(filename, diag)
		r.Issues = append(r.Issues, issue)
	}
	return r, nil
}

func (e *Engine) toIssue(filename string, diag *mm.Error) (tt.Issue, bool) {
	rule := diag.Kind.String()
	severity := tt.SeverityError
	if !diag.Kind.Fatal() {
		if e.ignoredRules[rule] {
			return tt.Issue{}, false
		}
		severity = e.severities[rule]
	}

	// included files report their own name
	name := diag.Pos.Filename
	if name == "" {
		name = filename
	}

	return tt.Issue{
		Rule:     rule,
		Category: categoryVerification,
		Filename: name,
		Message:  diag.Msg,
		Note:     statementNote(diag),
		Severity: severity,
		Start:    diag.Pos,
		End:      diag.Pos,
	}, true
}

func statementNote(diag *mm.Error) string {
	switch {
	case diag.Stmt != "" && diag.Label != "":
		return fmt.Sprintf("in %s statement %s", diag.Stmt, diag.Label)
	case diag.Stmt != "":
		return fmt.Sprintf("in %s statement", diag.Stmt)
	case diag.Label != "":
		return fmt.Sprintf("in statement %s", diag.Label)
	}
	return ""
}

func (e *Engine) IgnoreRule(rule string) {
	if e.ignoredRules == nil {
		e.ignoredRules = make(map[string]bool)
	}
	e.ignoredRules[rule] = true
}

// IgnorePath skips files under path.
func (e *Engine) IgnorePath(path string) {
	e.ignoredPaths = append(e.ignoredPaths, filepath.Clean(path))
}

func (e *Engine) isIgnoredPath(filename string) bool {
	clean := filepath.Clean(filename)
	for _, p := range e.ignoredPaths {
		if clean == p || strings.HasPrefix(clean, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// SourceCode stores the content of a source code file.
type SourceCode struct {
	Lines []string
}

// ReadSourceCode reads the content of a file and returns it as a `SourceCode` struct.
func ReadSourceCode(filename string) (*SourceCode, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")
	return &SourceCode{Lines: lines}, nil
}
