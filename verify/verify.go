package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnoswap-labs/mmverify/internal"
	tt "github.com/gnoswap-labs/mmverify/internal/types"
)

// VerifyEngine verifies single databases.
type VerifyEngine interface {
	Check(ctx context.Context, filePath string) (*internal.FileReport, error)
	CheckSource(ctx context.Context, source []byte) (*internal.FileReport, error)
	IgnoreRule(rule string)
	IgnorePath(path string)
}

// Processor verifies one file with engine.
type Processor func(ctx context.Context, engine VerifyEngine, filePath string) (*internal.FileReport, error)

// Options controls how paths are walked and verified.
type Options struct {
	// Extensions selects the files verified when walking a directory.
	Extensions []string
	// Workers bounds concurrent verification; zero means one per CPU.
	Workers int
	// Progress receives a progress bar while a directory is verified.
	Progress io.Writer
}

// New returns an engine configured by cfg. Every log entry of the engine
// carries runID.
func New(rootDir string, cfg Config, logger *zap.Logger, runID string) (*internal.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return internal.NewEngine(rootDir, cfg.Rules, logger.With(zap.String("run_id", runID)))
}

// NewRunID identifies one invocation in logs and reports.
func NewRunID() string {
	return uuid.NewString()
}

func ProcessSources(
	ctx context.Context,
	logger *zap.Logger,
	engine VerifyEngine,
	sources [][]byte,
) ([]*internal.FileReport, error) {
	var reports []*internal.FileReport
	for i, source := range sources {
		report, err := ProcessSource(ctx, engine, source)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing source", zap.Int("source", i), zap.Error(err))
			}
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine VerifyEngine,
	paths []string,
	opts Options,
	processor Processor,
) ([]*internal.FileReport, error) {
	var reports []*internal.FileReport
	for _, path := range paths {
		pathReports, err := ProcessPath(ctx, logger, engine, path, opts, processor)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return nil, err
		}
		reports = append(reports, pathReports...)
	}
	return reports, nil
}

// ProcessPath verifies path. A directory is walked and every database in it
// is verified independently; a file is verified whatever its extension.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine VerifyEngine,
	path string,
	opts Options,
	processor Processor,
) ([]*internal.FileReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	if !info.IsDir() {
		report, err := processor(ctx, engine, path)
		if err != nil {
			return nil, err
		}
		return []*internal.FileReport{report}, nil
	}

	files, err := collectFiles(path, opts.Extensions)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription(path),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	// one slot per file keeps the walk order
	reports := make([]*internal.FileReport, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, filePath := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			report, err := processor(gctx, engine, filePath)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logger.Error("Error processing file", zap.String("file", filePath), zap.Error(err))
				report = failedReport(filePath, err)
			}
			reports[i] = report
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return compact(reports), err
	}
	if err := ctx.Err(); err != nil {
		return compact(reports), err
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return reports, nil
}

func ProcessFile(ctx context.Context, engine VerifyEngine, filePath string) (*internal.FileReport, error) {
	return engine.Check(ctx, filePath)
}

func ProcessSource(ctx context.Context, engine VerifyEngine, source []byte) (*internal.FileReport, error) {
	return engine.CheckSource(ctx, source)
}

func collectFiles(root string, extensions []string) ([]string, error) {
	desired := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		desired[ext] = true
	}

	var files []string
	err := filepath.Walk(root, func(filePath string, fileInfo os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fileInfo.IsDir() && desired[filepath.Ext(filePath)] {
			files = append(files, filePath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", root, err)
	}
	return files, nil
}

// failedReport records a database that could not be read at all.
func failedReport(filePath string, err error) *internal.FileReport {
	return &internal.FileReport{
		Filename: filePath,
		Issues: []tt.Issue{{
			Rule:     ReadErrorRule,
			Category: "io",
			Filename: filePath,
			Message:  err.Error(),
			Severity: tt.SeverityError,
		}},
	}
}

func compact(reports []*internal.FileReport) []*internal.FileReport {
	out := make([]*internal.FileReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
