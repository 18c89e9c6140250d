package mm

import (
	"bufio"
	"errors"
	"fmt"
	"go/token"
	"io"
	"strings"
)

const (
	commentOpen  = "$("
	commentClose = "$)"
)

// Token is a whitespace-delimited Metamath token and the position of its
// first character.
type Token struct {
	Text string
	Pos  token.Position
}

// TokenSource yields tokens one at a time and returns io.EOF once the
// stream is exhausted.
type TokenSource interface {
	Next() (Token, error)
}

// Tokenizer splits a character stream into tokens and strips comments.
// It never looks at file inclusion directives; see Includer.
type Tokenizer struct {
	r        *bufio.Reader
	filename string
	offset   int
	line     int
	column   int
}

// NewTokenizer returns a Tokenizer reading from r. The filename is only
// used for positions.
func NewTokenizer(filename string, r io.Reader) *Tokenizer {
	return &Tokenizer{
		r:        bufio.NewReader(r),
		filename: filename,
		line:     1,
		column:   1,
	}
}

// Next returns the next token outside of comments.
func (t *Tokenizer) Next() (Token, error) {
	for {
		tok, err := t.raw()
		if err != nil {
			return Token{}, err
		}

		if tok.Text == commentOpen {
			if err := t.skipComment(tok.Pos); err != nil {
				return Token{}, err
			}
			continue
		}

		if strings.Contains(tok.Text, commentOpen) || strings.Contains(tok.Text, commentClose) {
			return Token{}, &Error{
				Kind: KindSyntax,
				Pos:  tok.Pos,
				Msg:  "comment delimiter in token " + tok.Text + " outside of a comment",
			}
		}
		return tok, nil
	}
}

func (t *Tokenizer) skipComment(start token.Position) error {
	for {
		tok, err := t.raw()
		if errors.Is(err, io.EOF) {
			return &Error{Kind: KindSyntax, Pos: start, Msg: "unclosed comment"}
		}
		if err != nil {
			return err
		}

		switch {
		case tok.Text == commentClose:
			return nil
		case strings.Contains(tok.Text, commentOpen):
			return &Error{Kind: KindSyntax, Pos: tok.Pos, Msg: "characters $( found in a comment"}
		case strings.Contains(tok.Text, commentClose):
			return &Error{Kind: KindSyntax, Pos: tok.Pos, Msg: "characters $) found in a comment"}
		}
	}
}

// raw reads the next whitespace-delimited token, comments included.
func (t *Tokenizer) raw() (Token, error) {
	for {
		ch, err := t.r.ReadByte()
		if err != nil {
			return Token{}, err
		}
		if isWhitespace(ch) {
			t.advance(ch)
			continue
		}
		if err := t.r.UnreadByte(); err != nil {
			return Token{}, err
		}
		break
	}

	pos := t.pos()
	var sb strings.Builder
	for {
		ch, err := t.r.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Token{}, err
		}
		if isWhitespace(ch) {
			t.advance(ch)
			break
		}
		if ch < '!' || ch > '~' {
			return Token{}, &Error{
				Kind: KindSyntax,
				Pos:  t.pos(),
				Msg:  fmt.Sprintf("invalid character with code 0x%02x", ch),
			}
		}
		t.advance(ch)
		sb.WriteByte(ch)
	}
	return Token{Text: sb.String(), Pos: pos}, nil
}

func (t *Tokenizer) advance(ch byte) {
	t.offset++
	if ch == '\n' {
		t.line++
		t.column = 1
		return
	}
	t.column++
}

func (t *Tokenizer) pos() token.Position {
	return token.Position{
		Filename: t.filename,
		Offset:   t.offset,
		Line:     t.line,
		Column:   t.column,
	}
}

// isWhitespace reports Metamath white space. Vertical tab is not included.
func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\t' || ch == '\f' || ch == '\r'
}
