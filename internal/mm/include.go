package mm

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	includeOpen  = "$["
	includeClose = "$]"
)

// Opener opens a file named by a $[ $] directive.
type Opener func(name string) (io.ReadCloser, error)

// DirOpener resolves relative names against dir. Names are not cleaned or
// otherwise canonicalized.
func DirOpener(dir string) Opener {
	return func(name string) (io.ReadCloser, error) {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		return os.Open(name)
	}
}

// FSOpener opens included files from fsys.
func FSOpener(fsys fs.FS) Opener {
	return func(name string) (io.ReadCloser, error) {
		return fsys.Open(name)
	}
}

type includeFrame struct {
	tok    *Tokenizer
	closer io.Closer
}

// Includer expands file inclusion directives inline, producing one flat
// token stream. A file name that was already included (compared as a
// literal string) is skipped; two different spellings of the same file are
// both read.
type Includer struct {
	open     Opener
	frames   []includeFrame
	included map[string]struct{}
}

// NewIncluder returns an Includer reading the top-level file name from r.
func NewIncluder(name string, r io.Reader, open Opener) *Includer {
	return &Includer{
		open:     open,
		frames:   []includeFrame{{tok: NewTokenizer(name, r)}},
		included: map[string]struct{}{name: {}},
	}
}

// Next returns the next token of the flattened stream.
func (in *Includer) Next() (Token, error) {
	for len(in.frames) > 0 {
		top := in.frames[len(in.frames)-1]
		tok, err := top.tok.Next()
		if errors.Is(err, io.EOF) {
			in.pop()
			continue
		}
		if err != nil {
			return Token{}, err
		}

		if tok.Text != includeOpen {
			return tok, nil
		}
		if err := in.include(top.tok, tok); err != nil {
			return Token{}, err
		}
	}
	return Token{}, io.EOF
}

func (in *Includer) include(t *Tokenizer, open Token) error {
	unfinished := &Error{Kind: KindSyntax, Pos: open.Pos, Msg: "unfinished file inclusion command"}

	name, err := t.Next()
	if errors.Is(err, io.EOF) {
		return unfinished
	}
	if err != nil {
		return err
	}
	if strings.Contains(name.Text, "$") {
		return &Error{Kind: KindSyntax, Pos: name.Pos, Msg: "file name " + name.Text + " contains a $"}
	}

	end, err := t.Next()
	if errors.Is(err, io.EOF) {
		return unfinished
	}
	if err != nil {
		return err
	}
	if end.Text != includeClose {
		return &Error{Kind: KindSyntax, Pos: end.Pos, Msg: "didn't find closing file inclusion delimiter"}
	}

	if _, ok := in.included[name.Text]; ok {
		return nil
	}
	in.included[name.Text] = struct{}{}

	if in.open == nil {
		return fmt.Errorf("%s: could not open %s: file inclusion is not available", name.Pos, name.Text)
	}
	rc, err := in.open(name.Text)
	if err != nil {
		return fmt.Errorf("%s: could not open %s: %w", name.Pos, name.Text, err)
	}
	in.frames = append(in.frames, includeFrame{tok: NewTokenizer(name.Text, rc), closer: rc})
	return nil
}

func (in *Includer) pop() {
	top := in.frames[len(in.frames)-1]
	if top.closer != nil {
		_ = top.closer.Close()
	}
	in.frames = in.frames[:len(in.frames)-1]
}

// Close releases every file still open.
func (in *Includer) Close() error {
	for len(in.frames) > 0 {
		in.pop()
	}
	return nil
}
