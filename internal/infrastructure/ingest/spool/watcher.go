// Package spool ingests citation events from JSONL files dropped into a
// directory — the operator- and test-friendly variant of the citation feed.
// Each file carries one JSON event per line; processed files are renamed out
// of the spool so a restart never replays what already finished.
package spool

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/CiteRank-Engine/internal/application/ingest"
	"github.com/turtacn/CiteRank-Engine/internal/config"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

var ErrAlreadyWatching = errors.New(errors.ErrCodeConflict, "spool watcher already running")

const (
	spoolExt        = ".jsonl"
	doneSuffix      = ".done"
	defaultDebounce = 500 * time.Millisecond
	// maxLineBytes bounds one spooled event; metadata-heavy events run a few
	// hundred bytes, so a megabyte is already pathological.
	maxLineBytes = 1 << 20
)

// Watcher tails a spool directory and applies every *.jsonl file through the
// ingest pipeline.  Writes are debounced so a file being copied in chunks is
// read once, after it goes quiet.
type Watcher struct {
	dir      string
	debounce time.Duration
	pipeline *ingest.Pipeline
	logger   logging.Logger

	watcher *fsnotify.Watcher
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher wires a watcher over the pipeline.  Nothing is watched until
// Start.
func NewWatcher(cfg config.SpoolConfig, pipeline *ingest.Pipeline, logger logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Dir == "" {
		return nil, errors.New(errors.ErrCodeValidation, "spool directory is required")
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		dir:      cfg.Dir,
		debounce: debounce,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// Start creates the spool directory if needed, sweeps files already waiting
// there, and begins watching for new ones.  It returns once the watch is
// established; Close stops it.
func (w *Watcher) Start(ctx context.Context) error {
	if w.running.Swap(true) {
		return ErrAlreadyWatching
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.running.Store(false)
		return errors.Wrap(err, errors.ErrCodeSpoolUnavailable, "create spool directory")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.running.Store(false)
		return errors.Wrap(err, errors.ErrCodeSpoolUnavailable, "start filesystem watcher")
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		w.running.Store(false)
		return errors.Wrap(err, errors.ErrCodeSpoolUnavailable, "watch spool directory")
	}
	w.watcher = fsw

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go w.watchLoop(ctx)

	w.logger.Info("spool watcher started",
		logging.String("dir", w.dir),
		logging.Duration("debounce", w.debounce))
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()

	// Files that were already waiting when the watcher came up.
	w.sweep(ctx)

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isSpoolFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			for _, path := range sortedPaths(pending) {
				if ctx.Err() != nil {
					return
				}
				w.processFile(ctx, path)
			}
			pending = make(map[string]struct{})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("spool watch error", logging.Err(err))
		}
	}
}

// sweep processes every spool file already on disk, in name order.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("spool scan failed",
			logging.String("dir", w.dir),
			logging.Err(err))
		return
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() || !isSpoolFile(entry.Name()) {
			continue
		}
		w.processFile(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

// processFile applies one spooled file line by line, then renames it out of
// the spool.  A file interrupted by shutdown keeps its name and is replayed
// on the next start; citation application is idempotent, so replaying the
// already-applied head is harmless.
func (w *Watcher) processFile(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return // raced with an earlier sweep of the same file
		}
		w.logger.Error("spool file open failed",
			logging.String("file", path),
			logging.Err(err))
		return
	}

	name := filepath.Base(path)
	var applied, rejected, line int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		res, err := w.pipeline.ApplyRaw(ctx, "spool", data)
		if err != nil {
			_ = f.Close()
			w.logger.Warn("spool file interrupted",
				logging.String("file", name),
				logging.Int("line", line),
				logging.Err(err))
			return
		}
		applied += res.Applied
		if res.Rejected > 0 {
			rejected += res.Rejected
			w.logger.Warn("spool line rejected",
				logging.String("file", name),
				logging.Int("line", line))
		}
	}
	scanErr := scanner.Err()
	_ = f.Close()
	if scanErr != nil {
		w.logger.Error("spool file read failed",
			logging.String("file", name),
			logging.Err(scanErr))
		return
	}

	if err := os.Rename(path, path+doneSuffix); err != nil {
		w.logger.Error("spool file rename failed",
			logging.String("file", name),
			logging.Err(err))
	}
	w.logger.Info("spool file ingested",
		logging.String("file", name),
		logging.Int("applied", applied),
		logging.Int("rejected", rejected))
}

// Close stops watching and waits for in-flight processing to wind down.
func (w *Watcher) Close() error {
	if !w.running.CompareAndSwap(true, false) {
		return nil
	}
	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	w.wg.Wait()
	w.logger.Info("spool watcher stopped")
	return err
}

func isSpoolFile(path string) bool {
	return filepath.Ext(path) == spoolExt
}

func sortedPaths(set map[string]struct{}) []string {
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
