package mm

import (
	"slices"
	"sort"
	"strings"
)

// Expression is a sequence of math symbols. The first one is the typecode.
type Expression []string

func (e Expression) String() string {
	return strings.Join(e, " ")
}

// Equal compares two expressions token by token.
func (e Expression) Equal(other Expression) bool {
	return slices.Equal(e, other)
}

// Hypothesis is a $f or $e statement. It is never modified once recorded.
type Hypothesis struct {
	Label      string
	Expression Expression
	Floating   bool
}

// Typecode returns the first symbol of the hypothesis.
func (h *Hypothesis) Typecode() string {
	return h.Expression[0]
}

// Variable returns the variable bound by a floating hypothesis.
func (h *Hypothesis) Variable() string {
	if !h.Floating {
		return ""
	}
	return h.Expression[1]
}

type AssertionKind int

const (
	Axiom AssertionKind = iota
	Theorem
)

func (k AssertionKind) String() string {
	if k == Theorem {
		return "$p"
	}
	return "$a"
}

// DisjointPair is an unordered pair of distinct variables, stored with X < Y.
type DisjointPair struct {
	X, Y string
}

// NewDisjointPair orders a and b.
func NewDisjointPair(a, b string) DisjointPair {
	if b < a {
		a, b = b, a
	}
	return DisjointPair{X: a, Y: b}
}

// Assertion is an axiom or a theorem together with the mandatory
// hypotheses and disjoint variable restrictions computed when it was
// declared. It is never modified afterwards.
type Assertion struct {
	Label      string
	Kind       AssertionKind
	Hypotheses []string
	Disjoint   []DisjointPair
	Expression Expression
}

// Scope is one ${ $} block.
type Scope struct {
	variables  map[string]struct{}
	hypotheses []string
	disjoint   []map[string]struct{}
	// variable -> label of its floating hypothesis
	floating map[string]string
}

func newScope() *Scope {
	return &Scope{
		variables: make(map[string]struct{}),
		floating:  make(map[string]string),
	}
}

// Stats counts the records of a database.
type Stats struct {
	Constants  int `json:"constants"`
	Variables  int `json:"variables"`
	Floating   int `json:"floating"`
	Essential  int `json:"essential"`
	Axioms     int `json:"axioms"`
	Theorems   int `json:"theorems"`
	Incomplete int `json:"incomplete"`
}

// Database holds every symbol, hypothesis and assertion declared so far,
// plus the stack of open scopes. The outermost scope is never popped.
type Database struct {
	constants  map[string]struct{}
	variables  map[string]struct{}
	hypotheses map[string]*Hypothesis
	assertions map[string]*Assertion
	scopes     []*Scope
}

// NewDatabase returns an empty database with the outermost scope open.
func NewDatabase() *Database {
	return &Database{
		constants:  make(map[string]struct{}),
		variables:  make(map[string]struct{}),
		hypotheses: make(map[string]*Hypothesis),
		assertions: make(map[string]*Assertion),
		scopes:     []*Scope{newScope()},
	}
}

func (db *Database) IsConstant(sym string) bool {
	_, ok := db.constants[sym]
	return ok
}

// IsVariable reports whether sym was ever declared as a variable.
func (db *Database) IsVariable(sym string) bool {
	_, ok := db.variables[sym]
	return ok
}

func (db *Database) IsActiveVariable(sym string) bool {
	for _, s := range db.scopes {
		if _, ok := s.variables[sym]; ok {
			return true
		}
	}
	return false
}

// FloatingHyp returns the label of the active floating hypothesis of v.
func (db *Database) FloatingHyp(v string) (string, bool) {
	for i := len(db.scopes) - 1; i >= 0; i-- {
		if label, ok := db.scopes[i].floating[v]; ok {
			return label, true
		}
	}
	return "", false
}

func (db *Database) IsActiveHyp(label string) bool {
	for _, s := range db.scopes {
		if slices.Contains(s.hypotheses, label) {
			return true
		}
	}
	return false
}

// IsDisjoint reports whether an active $d statement mentions both x and y.
// A variable is never disjoint from itself.
func (db *Database) IsDisjoint(x, y string) bool {
	if x == y {
		return false
	}
	for _, s := range db.scopes {
		for _, set := range s.disjoint {
			_, okx := set[x]
			_, oky := set[y]
			if okx && oky {
				return true
			}
		}
	}
	return false
}

// LabelUsed reports whether label names a hypothesis or an assertion.
func (db *Database) LabelUsed(label string) bool {
	_, isHyp := db.hypotheses[label]
	_, isAssert := db.assertions[label]
	return isHyp || isAssert
}

func (db *Database) Hypothesis(label string) (*Hypothesis, bool) {
	h, ok := db.hypotheses[label]
	return h, ok
}

func (db *Database) Assertion(label string) (*Assertion, bool) {
	a, ok := db.assertions[label]
	return a, ok
}

// Depth returns the number of open scopes, the outermost included.
func (db *Database) Depth() int {
	return len(db.scopes)
}

// Stats counts declared records. Incomplete is left for the caller.
func (db *Database) Stats() Stats {
	st := Stats{
		Constants: len(db.constants),
		Variables: len(db.variables),
	}
	for _, h := range db.hypotheses {
		if h.Floating {
			st.Floating++
		} else {
			st.Essential++
		}
	}
	for _, a := range db.assertions {
		if a.Kind == Theorem {
			st.Theorems++
		} else {
			st.Axioms++
		}
	}
	return st
}

func (db *Database) top() *Scope {
	return db.scopes[len(db.scopes)-1]
}

func (db *Database) PushScope() {
	db.scopes = append(db.scopes, newScope())
}

// PopScope closes the innermost scope. Its variables, hypotheses and
// disjoint variable restrictions stop being visible; the records remain.
func (db *Database) PopScope() *Error {
	if len(db.scopes) == 1 {
		return newError(KindScopeViolation, "$} without corresponding ${")
	}
	db.scopes = db.scopes[:len(db.scopes)-1]
	return nil
}

// CheckLabel verifies that label may name a new statement.
func (db *Database) CheckLabel(label string) *Error {
	switch {
	case db.IsConstant(label):
		return newError(KindDuplicateLabel, "attempt to reuse constant %s as a label", label)
	case db.IsVariable(label):
		return newError(KindDuplicateLabel, "attempt to reuse variable %s as a label", label)
	case db.LabelUsed(label):
		return newError(KindDuplicateLabel, "attempt to reuse label %s", label)
	}
	return nil
}

// AddConstant declares a constant. Constants live in the outermost scope.
func (db *Database) AddConstant(sym string) *Error {
	switch {
	case len(db.scopes) > 1:
		return newError(KindScopeViolation, "$c statement occurs in inner block")
	case !isMathSymbol(sym):
		return newError(KindSyntax, "attempt to declare %s as a constant", sym)
	case db.IsVariable(sym):
		return newError(KindDuplicateSymbol, "attempt to redeclare variable %s as a constant", sym)
	case db.LabelUsed(sym):
		return newError(KindDuplicateSymbol, "attempt to reuse label %s as a constant", sym)
	case db.IsConstant(sym):
		return newError(KindDuplicateSymbol, "attempt to redeclare constant %s", sym)
	}
	db.constants[sym] = struct{}{}
	return nil
}

// AddVariable declares a variable in the innermost scope. A variable whose
// scope has closed may be declared again.
func (db *Database) AddVariable(sym string) *Error {
	switch {
	case !isMathSymbol(sym):
		return newError(KindSyntax, "attempt to declare %s as a variable", sym)
	case db.IsConstant(sym):
		return newError(KindDuplicateSymbol, "attempt to redeclare constant %s as a variable", sym)
	case db.LabelUsed(sym):
		return newError(KindDuplicateSymbol, "attempt to reuse label %s as a variable", sym)
	case db.IsActiveVariable(sym):
		return newError(KindDuplicateSymbol, "attempt to redeclare active variable %s", sym)
	}
	db.variables[sym] = struct{}{}
	db.top().variables[sym] = struct{}{}
	return nil
}

// AddFloating records a $f hypothesis binding variable to typecode.
func (db *Database) AddFloating(label, typecode, variable string) *Error {
	if err := db.CheckLabel(label); err != nil {
		return err
	}
	if !db.IsConstant(typecode) {
		return newError(KindUndeclaredSymbol, "first symbol in $f statement %s is %s which is not a constant", label, typecode)
	}
	if !db.IsActiveVariable(variable) {
		return newError(KindUndeclaredSymbol, "second symbol in $f statement %s is %s which is not an active variable", label, variable)
	}
	if prev, ok := db.FloatingHyp(variable); ok {
		return newError(KindScopeViolation, "the variable %s appears in a second $f statement %s (first in %s)", variable, label, prev)
	}

	db.hypotheses[label] = &Hypothesis{
		Label:      label,
		Expression: Expression{typecode, variable},
		Floating:   true,
	}
	s := db.top()
	s.hypotheses = append(s.hypotheses, label)
	s.floating[variable] = label
	return nil
}

// CheckExpression validates the symbols of a $e, $a or $p expression. On
// failure it also returns the index of the offending symbol.
func (db *Database) CheckExpression(stmt, label string, expr Expression) (int, *Error) {
	if len(expr) == 0 {
		return 0, newError(KindSyntax, "%s statement %s has an empty expression", stmt, label)
	}
	if !db.IsConstant(expr[0]) {
		return 0, newError(KindUndeclaredSymbol, "first symbol in %s statement %s is %s which is not a constant", stmt, label, expr[0])
	}
	for i, sym := range expr[1:] {
		if db.IsConstant(sym) {
			continue
		}
		if _, ok := db.FloatingHyp(sym); ok {
			continue
		}
		return i + 1, newError(KindUndeclaredSymbol,
			"in %s statement %s symbol %s is not a constant or a variable in an active $f statement", stmt, label, sym)
	}
	return 0, nil
}

// AddEssential records a $e hypothesis.
func (db *Database) AddEssential(label string, expr Expression) *Error {
	if err := db.CheckLabel(label); err != nil {
		return err
	}
	if _, err := db.CheckExpression("$e", label, expr); err != nil {
		return err
	}

	db.hypotheses[label] = &Hypothesis{Label: label, Expression: expr}
	s := db.top()
	s.hypotheses = append(s.hypotheses, label)
	return nil
}

// AddDisjoint records a $d statement in the innermost scope.
func (db *Database) AddDisjoint(vars []string) *Error {
	set := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if !db.IsActiveVariable(v) {
			return newError(KindUndeclaredSymbol, "token %s is not an active variable, but was found in a $d statement", v)
		}
		if _, dup := set[v]; dup {
			return newError(KindSyntax, "$d statement mentions %s twice", v)
		}
		set[v] = struct{}{}
	}
	if len(set) < 2 {
		return newError(KindSyntax, "not enough items in $d statement")
	}
	s := db.top()
	s.disjoint = append(s.disjoint, set)
	return nil
}

// AddAssertion records an axiom or theorem, computing its mandatory
// hypotheses and disjoint variable restrictions from the active scopes.
func (db *Database) AddAssertion(label string, kind AssertionKind, expr Expression) (*Assertion, *Error) {
	if err := db.CheckLabel(label); err != nil {
		return nil, err
	}
	if _, err := db.CheckExpression(kind.String(), label, expr); err != nil {
		return nil, err
	}

	a := db.construct(label, kind, expr)
	db.assertions[label] = a
	return a, nil
}

func (db *Database) construct(label string, kind AssertionKind, expr Expression) *Assertion {
	used := make(map[string]struct{})
	db.collectVariables(expr, used)
	for _, s := range db.scopes {
		for _, hl := range s.hypotheses {
			if h := db.hypotheses[hl]; !h.Floating {
				db.collectVariables(h.Expression, used)
			}
		}
	}

	a := &Assertion{
		Label:      label,
		Kind:       kind,
		Expression: expr,
	}
	for _, s := range db.scopes {
		for _, hl := range s.hypotheses {
			h := db.hypotheses[hl]
			if !h.Floating {
				a.Hypotheses = append(a.Hypotheses, hl)
				continue
			}
			if _, ok := used[h.Variable()]; ok {
				a.Hypotheses = append(a.Hypotheses, hl)
			}
		}
	}

	seen := make(map[DisjointPair]struct{})
	for _, s := range db.scopes {
		for _, set := range s.disjoint {
			var vars []string
			for v := range set {
				if _, ok := used[v]; ok {
					vars = append(vars, v)
				}
			}
			sort.Strings(vars)
			for i := range vars {
				for j := i + 1; j < len(vars); j++ {
					p := DisjointPair{X: vars[i], Y: vars[j]}
					if _, dup := seen[p]; dup {
						continue
					}
					seen[p] = struct{}{}
					a.Disjoint = append(a.Disjoint, p)
				}
			}
		}
	}
	return a
}

func (db *Database) collectVariables(expr Expression, into map[string]struct{}) {
	for _, sym := range expr {
		if db.IsVariable(sym) {
			into[sym] = struct{}{}
		}
	}
}

// isMathSymbol reports whether tok may be declared by $c or $v.
func isMathSymbol(tok string) bool {
	return !strings.Contains(tok, "$")
}

// isLabel reports whether tok is made of letters, digits, '.', '-' and '_'.
func isLabel(tok string) bool {
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		ch := tok[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '.', ch == '-', ch == '_':
		default:
			return false
		}
	}
	return true
}
