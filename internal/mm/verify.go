package mm

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

type options struct {
	logger *zap.Logger
	open   Opener
}

// Option configures Verify.
type Option func(*options)

// WithLogger sets the logger used for debug events and incomplete proof
// warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithOpener sets how VerifyReader resolves $[ $] inclusions. Without it,
// inclusion fails.
func WithOpener(open Opener) Option {
	return func(o *options) {
		o.open = open
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Result is what a verification run produced. When Verify fails, Result
// still holds the tables and warnings built up to the failure.
type Result struct {
	Database *Database
	Warnings []*Error
	Stats    Stats
}

// Verify loads src into an empty database, checking every proof.
// The first fatal diagnostic is returned as an *Error; I/O failures and
// context cancellation are returned as is.
func Verify(ctx context.Context, src TokenSource, opts ...Option) (*Result, error) {
	o := buildOptions(opts)
	db := NewDatabase()
	l := NewLoader(db, src, o.logger)

	err := l.Load(ctx)

	res := &Result{
		Database: db,
		Warnings: l.Warnings(),
		Stats:    db.Stats(),
	}
	res.Stats.Incomplete = l.incomplete
	return res, err
}

// VerifyReader verifies the database read from r. The name is used for
// positions and as the first entry of the inclusion set.
func VerifyReader(ctx context.Context, name string, r io.Reader, opts ...Option) (*Result, error) {
	o := buildOptions(opts)
	in := NewIncluder(name, r, o.open)
	defer in.Close()
	return Verify(ctx, in, opts...)
}

// VerifyFile verifies the database stored at path. Included files are
// resolved relative to the directory of path.
func VerifyFile(ctx context.Context, path string, opts ...Option) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	opts = append([]Option{WithOpener(DirOpener(filepath.Dir(path)))}, opts...)
	return VerifyReader(ctx, path, f, opts...)
}
