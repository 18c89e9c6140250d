package mm

import (
	"fmt"
	"go/token"
)

// Kind classifies a verification diagnostic.
type Kind int

const (
	KindSyntax Kind = iota
	KindDuplicateSymbol
	KindDuplicateLabel
	KindUndeclaredSymbol
	KindUndeclaredLabel
	KindScopeViolation
	KindTypeMismatch
	KindProofStackMismatch
	KindDisjointViolation
	// KindIncompleteProof is the only non-fatal kind.
	KindIncompleteProof
)

var kindNames = map[Kind]string{
	KindSyntax:             "syntax-error",
	KindDuplicateSymbol:    "duplicate-symbol",
	KindDuplicateLabel:     "duplicate-label",
	KindUndeclaredSymbol:   "undeclared-symbol",
	KindUndeclaredLabel:    "undeclared-label",
	KindScopeViolation:     "scope-violation",
	KindTypeMismatch:       "type-mismatch",
	KindProofStackMismatch: "proof-stack-mismatch",
	KindDisjointViolation:  "disjoint-violation",
	KindIncompleteProof:    "incomplete-proof",
}

// String returns the rule name of the kind, e.g. "disjoint-violation".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Fatal reports whether a diagnostic of this kind halts verification.
func (k Kind) Fatal() bool {
	return k != KindIncompleteProof
}

// Error is a verification diagnostic. Stmt is the statement keyword being
// processed (e.g. "$p") and Label the statement label, when known.
type Error struct {
	Kind  Kind
	Stmt  string
	Label string
	Pos   token.Position
	Msg   string
}

func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Pos.IsValid() {
		prefix = e.Pos.String() + ": " + prefix
	}
	return prefix + ": " + e.Msg
}

// Is matches any *Error of the same kind, so that the sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrSyntax             = &Error{Kind: KindSyntax}
	ErrDuplicateSymbol    = &Error{Kind: KindDuplicateSymbol}
	ErrDuplicateLabel     = &Error{Kind: KindDuplicateLabel}
	ErrUndeclaredSymbol   = &Error{Kind: KindUndeclaredSymbol}
	ErrUndeclaredLabel    = &Error{Kind: KindUndeclaredLabel}
	ErrScopeViolation     = &Error{Kind: KindScopeViolation}
	ErrTypeMismatch       = &Error{Kind: KindTypeMismatch}
	ErrProofStackMismatch = &Error{Kind: KindProofStackMismatch}
	ErrDisjointViolation  = &Error{Kind: KindDisjointViolation}
	ErrIncompleteProof    = &Error{Kind: KindIncompleteProof}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// at fills in statement context that the raising site did not know about.
func (e *Error) at(stmt, label string, pos token.Position) *Error {
	if e.Stmt == "" {
		e.Stmt = stmt
	}
	if e.Label == "" {
		e.Label = label
	}
	if !e.Pos.IsValid() {
		e.Pos = pos
	}
	return e
}
