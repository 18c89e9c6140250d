package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce is how long a file must stay quiet before it is verified again,
// so that several writes in a row count as one change.
const debounce = 100 * time.Millisecond

// ReportFunc receives the outcome of every re-verification.
type ReportFunc func(report *FileReport, err error)

// Watcher re-verifies databases whenever they are written.
type Watcher struct {
	engine     *Engine
	logger     *zap.Logger
	extensions map[string]bool
	report     ReportFunc

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// NewWatcher watches every directory under dirs.
func NewWatcher(engine *Engine, dirs []string, extensions []string, report ReportFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating watcher: %w", err)
	}

	w := &Watcher{
		engine:     engine,
		logger:     engine.logger,
		extensions: make(map[string]bool, len(extensions)),
		report:     report,
		watcher:    fw,
		pending:    make(map[string]*time.Timer),
	}
	for _, ext := range extensions {
		w.extensions[ext] = true
	}

	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fw.Add(path)
			}
			return nil
		})
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}
	return w, nil
}

// Watch blocks until ctx is done or the watcher fails.
func (w *Watcher) Watch(ctx context.Context) error {
	defer w.wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.shouldVerify(event) {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				continue
			}
			return err
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) shouldVerify(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	return w.extensions[filepath.Ext(event.Name)]
}

func (w *Watcher) schedule(ctx context.Context, filename string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if prev, ok := w.pending[filename]; ok && prev.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(debounce, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if w.pending[filename] == t {
			delete(w.pending, filename)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		report, err := w.engine.Check(ctx, filename)
		if err != nil {
			w.logger.Error("error verifying file", zap.String("file", filename), zap.Error(err))
		} else {
			w.logger.Info("verified", zap.String("file", filename), zap.Int("issues", len(report.Issues)))
		}
		if w.report != nil {
			w.report(report, err)
		}
	})
	w.pending[filename] = t
}

func (w *Watcher) wait() {
	w.mu.Lock()
	for name, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, name)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
