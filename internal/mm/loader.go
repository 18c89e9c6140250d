package mm

import (
	"context"
	"errors"
	"go/token"
	"io"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Loader reads statements from a token stream into a Database, verifying
// each theorem's proof as soon as the theorem is declared.
type Loader struct {
	db     *Database
	src    TokenSource
	logger *zap.Logger

	peeked   *Token
	openings []token.Position // positions of unclosed ${

	warnings   []*Error
	incomplete int
}

// NewLoader returns a Loader filling db from src.
func NewLoader(db *Database, src TokenSource, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{db: db, src: src, logger: logger}
}

// Warnings returns the incomplete proof warnings seen so far.
func (l *Loader) Warnings() []*Error {
	return l.warnings
}

// Load processes every statement. It stops at the first fatal error.
func (l *Loader) Load(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tok, err := l.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if err := l.statement(tok); err != nil {
			return err
		}
	}

	if n := len(l.openings); n > 0 {
		return newError(KindScopeViolation, "${ without corresponding $}").at("${", "", l.openings[n-1])
	}
	return nil
}

func (l *Loader) statement(tok Token) error {
	switch tok.Text {
	case "$c":
		return l.parseConstants(tok)
	case "$v":
		return l.parseVariables(tok)
	case "$d":
		return l.parseDisjoint(tok)
	case "${":
		l.db.PushScope()
		l.openings = append(l.openings, tok.Pos)
		l.logger.Debug("scope opened", zap.Int("depth", l.db.Depth()), zap.Stringer("pos", tok.Pos))
		return nil
	case "$}":
		if err := l.db.PopScope(); err != nil {
			return err.at("$}", "", tok.Pos)
		}
		l.openings = l.openings[:len(l.openings)-1]
		l.logger.Debug("scope closed", zap.Int("depth", l.db.Depth()), zap.Stringer("pos", tok.Pos))
		return nil
	}

	if !isLabel(tok.Text) {
		return newError(KindSyntax, "unexpected token %s encountered", tok.Text).at("", "", tok.Pos)
	}
	return l.parseLabeled(tok)
}

func (l *Loader) parseLabeled(label Token) error {
	if err := l.db.CheckLabel(label.Text); err != nil {
		return err.at("", label.Text, label.Pos)
	}

	kw, err := l.expect("", label)
	if err != nil {
		return err
	}

	switch kw.Text {
	case "$f":
		return l.parseFloating(label)
	case "$e":
		return l.parseEssential(label)
	case "$a":
		return l.parseAxiom(label)
	case "$p":
		return l.parseTheorem(label)
	}
	return newError(KindSyntax, "unexpected token %s encountered after label %s", kw.Text, label.Text).
		at("", label.Text, kw.Pos)
}

func (l *Loader) parseConstants(kw Token) error {
	syms, err := l.readList("$c", kw)
	if err != nil {
		return err
	}
	if len(syms) == 0 {
		return newError(KindSyntax, "empty $c statement").at("$c", "", kw.Pos)
	}
	for _, s := range syms {
		if err := l.db.AddConstant(s.Text); err != nil {
			return err.at("$c", "", s.Pos)
		}
	}
	return nil
}

func (l *Loader) parseVariables(kw Token) error {
	syms, err := l.readList("$v", kw)
	if err != nil {
		return err
	}
	if len(syms) == 0 {
		return newError(KindSyntax, "empty $v statement").at("$v", "", kw.Pos)
	}
	for _, s := range syms {
		if err := l.db.AddVariable(s.Text); err != nil {
			return err.at("$v", "", s.Pos)
		}
	}
	return nil
}

func (l *Loader) parseDisjoint(kw Token) error {
	syms, err := l.readList("$d", kw)
	if err != nil {
		return err
	}
	vars := make([]string, len(syms))
	for i, s := range syms {
		vars[i] = s.Text
	}
	if err := l.db.AddDisjoint(vars); err != nil {
		return err.at("$d", "", kw.Pos)
	}
	return nil
}

func (l *Loader) parseFloating(label Token) error {
	typecode, err := l.expect("$f", label)
	if err != nil {
		return err
	}
	variable, err := l.expect("$f", label)
	if err != nil {
		return err
	}
	end, err := l.expect("$f", label)
	if err != nil {
		return err
	}
	if end.Text != "$." {
		return newError(KindSyntax, "expected end of $f statement %s but found %s", label.Text, end.Text).
			at("$f", label.Text, end.Pos)
	}

	if err := l.db.AddFloating(label.Text, typecode.Text, variable.Text); err != nil {
		pos := variable.Pos
		if err.Kind == KindUndeclaredSymbol && !l.db.IsConstant(typecode.Text) {
			pos = typecode.Pos
		}
		return err.at("$f", label.Text, pos)
	}
	return nil
}

func (l *Loader) parseEssential(label Token) error {
	expr, err := l.readExpression("$e", label, "$.")
	if err != nil {
		return err
	}
	if err := l.db.AddEssential(label.Text, expr); err != nil {
		return err.at("$e", label.Text, label.Pos)
	}
	return nil
}

func (l *Loader) parseAxiom(label Token) error {
	expr, err := l.readExpression("$a", label, "$.")
	if err != nil {
		return err
	}
	if _, err := l.db.AddAssertion(label.Text, Axiom, expr); err != nil {
		return err.at("$a", label.Text, label.Pos)
	}
	l.logger.Debug("axiom recorded", zap.String("label", label.Text))
	return nil
}

func (l *Loader) parseTheorem(label Token) error {
	expr, err := l.readExpression("$p", label, "$=")
	if err != nil {
		return err
	}
	theorem, aerr := l.db.AddAssertion(label.Text, Theorem, expr)
	if aerr != nil {
		return aerr.at("$p", label.Text, label.Pos)
	}

	first, err := l.peek("$p", label)
	if err != nil {
		return err
	}

	var incomplete bool
	var perr *Error
	if first.Text == "(" {
		incomplete, perr, err = l.compressedProof(label, theorem)
	} else {
		incomplete, perr, err = l.normalProof(label, theorem)
	}
	if err != nil {
		return err
	}
	if perr != nil {
		return perr
	}

	if incomplete {
		w := newError(KindIncompleteProof, "proof of theorem %s is incomplete", label.Text).at("$p", label.Text, label.Pos)
		l.warnings = append(l.warnings, w)
		l.incomplete++
		l.logger.Warn("incomplete proof", zap.String("label", label.Text), zap.Stringer("pos", label.Pos))
		return nil
	}
	l.logger.Debug("theorem verified", zap.String("label", label.Text))
	return nil
}

// normalProof reads labels up to $. and replays them.
func (l *Loader) normalProof(label Token, theorem *Assertion) (bool, *Error, error) {
	var steps []Token
	for {
		tok, err := l.expect("$p", label)
		if err != nil {
			return false, nil, err
		}
		if tok.Text == "$." {
			incomplete, perr := verifyNormal(l.db, theorem, steps, tok.Pos)
			return incomplete, perr, nil
		}
		if err := l.checkProofLabel(label, theorem, tok, false); err != nil {
			return false, nil, err
		}
		steps = append(steps, tok)
	}
}

// compressedProof reads "( labels ) LETTERS $." and replays it.
func (l *Loader) compressedProof(label Token, theorem *Assertion) (bool, *Error, error) {
	if _, err := l.next(); err != nil { // (
		return false, nil, err
	}

	var labels []string
	for {
		tok, err := l.expect("$p", label)
		if err != nil {
			return false, nil, err
		}
		if tok.Text == ")" {
			break
		}
		if err := l.checkProofLabel(label, theorem, tok, true); err != nil {
			return false, nil, err
		}
		labels = append(labels, tok.Text)
	}

	var letters strings.Builder
	var start token.Position
	for {
		tok, err := l.expect("$p", label)
		if err != nil {
			return false, nil, err
		}
		if tok.Text == "$." {
			if !start.IsValid() {
				start = tok.Pos
			}
			break
		}
		if !start.IsValid() {
			start = tok.Pos
		}
		if !isCompressedChunk(tok.Text) {
			return false, nil, newError(KindSyntax, "bogus character found in compressed proof of %s", label.Text).
				at("$p", label.Text, tok.Pos)
		}
		letters.WriteString(tok.Text)
	}

	incomplete, perr := verifyCompressed(l.db, theorem, labels, letters.String(), start)
	return incomplete, perr, nil
}

func (l *Loader) checkProofLabel(label Token, theorem *Assertion, tok Token, compressed bool) error {
	switch {
	case tok.Text == unknownStep && !compressed:
		return nil
	case tok.Text == label.Text:
		return newError(KindUndeclaredLabel, "proof of theorem %s refers to itself", label.Text).
			at("$p", label.Text, tok.Pos)
	case compressed && slices.Contains(theorem.Hypotheses, tok.Text):
		return newError(KindSyntax, "compressed proof of theorem %s has mandatory hypothesis %s in label list",
			label.Text, tok.Text).at("$p", label.Text, tok.Pos)
	}
	if _, ok := l.db.Assertion(tok.Text); ok || l.db.IsActiveHyp(tok.Text) {
		return nil
	}
	return newError(KindUndeclaredLabel, "proof of theorem %s refers to %s which is not an active statement",
		label.Text, tok.Text).at("$p", label.Text, tok.Pos)
}

// readExpression reads symbols up to terminator and validates them.
func (l *Loader) readExpression(stmt string, label Token, terminator string) (Expression, error) {
	var expr Expression
	var pos []token.Position
	for {
		tok, err := l.expect(stmt, label)
		if err != nil {
			return nil, err
		}
		if tok.Text == terminator {
			break
		}
		expr = append(expr, tok.Text)
		pos = append(pos, tok.Pos)
	}

	if i, err := l.db.CheckExpression(stmt, label.Text, expr); err != nil {
		p := label.Pos
		if i < len(pos) {
			p = pos[i]
		}
		return nil, err.at(stmt, label.Text, p)
	}
	return expr, nil
}

// readList reads tokens up to $. for $c, $v and $d.
func (l *Loader) readList(stmt string, kw Token) ([]Token, error) {
	var toks []Token
	for {
		tok, err := l.next()
		if errors.Is(err, io.EOF) {
			return nil, newError(KindSyntax, "unterminated %s statement", stmt).at(stmt, "", kw.Pos)
		}
		if err != nil {
			return nil, err
		}
		if tok.Text == "$." {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

// expect returns the next token, turning end of input into an
// "unfinished statement" error.
func (l *Loader) expect(stmt string, label Token) (Token, error) {
	tok, err := l.next()
	if errors.Is(err, io.EOF) {
		return Token{}, l.unfinished(stmt, label)
	}
	return tok, err
}

func (l *Loader) peek(stmt string, label Token) (Token, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}
	tok, err := l.src.Next()
	if errors.Is(err, io.EOF) {
		return Token{}, l.unfinished(stmt, label)
	}
	if err != nil {
		return Token{}, err
	}
	l.peeked = &tok
	return tok, nil
}

func (l *Loader) unfinished(stmt string, label Token) *Error {
	if stmt == "" {
		return newError(KindSyntax, "unfinished labeled statement %s", label.Text).at("", label.Text, label.Pos)
	}
	return newError(KindSyntax, "unfinished %s statement %s", stmt, label.Text).at(stmt, label.Text, label.Pos)
}

func (l *Loader) next() (Token, error) {
	if l.peeked != nil {
		tok := *l.peeked
		l.peeked = nil
		return tok, nil
	}
	tok, err := l.src.Next()
	if err != nil {
		return Token{}, err
	}
	return tok, nil
}

// isCompressedChunk reports whether tok holds only upper-case letters and
// question marks.
func isCompressedChunk(tok string) bool {
	for i := 0; i < len(tok); i++ {
		if (tok[i] < 'A' || tok[i] > 'Z') && tok[i] != '?' {
			return false
		}
	}
	return true
}
