// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch reruns the evaluation when golden fixtures change or on a
// cron schedule. Runs never overlap: triggers that arrive while a run is in
// progress collapse into a single follow-up run.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/pdiddy/specgrade/pkg/types"
)

const defaultDebounce = 500 * time.Millisecond

var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// RunFunc performs one whole evaluation.
type RunFunc func(ctx context.Context, reason string) error

// Options configures a Watcher. Run is required, and at least one of Dir
// and Schedule must be set.
type Options struct {
	// Dir is watched recursively for fixture changes.
	Dir string

	// Schedule is a cron expression or descriptor ("@hourly", "@every 1h").
	Schedule string

	// Debounce is the quiet period after the last file event before a run
	// starts. Zero uses 500ms.
	Debounce time.Duration

	// RunOnStart triggers one run immediately.
	RunOnStart bool

	Run    RunFunc
	Logger *slog.Logger
}

// Watcher turns file events and schedule ticks into sequential runs.
type Watcher struct {
	dir        string
	schedule   cron.Schedule
	debounce   time.Duration
	runOnStart bool
	run        RunFunc
	log        *slog.Logger

	pending chan string

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// New validates opts and parses the schedule.
func New(opts Options) (*Watcher, error) {
	if opts.Run == nil {
		return nil, fmt.Errorf("%w: watch requires a run function", types.ErrConfiguration)
	}
	if opts.Dir == "" && strings.TrimSpace(opts.Schedule) == "" {
		return nil, fmt.Errorf("%w: watch requires a directory or a schedule", types.ErrConfiguration)
	}

	w := &Watcher{
		dir:        opts.Dir,
		debounce:   opts.Debounce,
		runOnStart: opts.RunOnStart,
		run:        opts.Run,
		log:        opts.Logger,
		pending:    make(chan string, 1),
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	if expr := strings.TrimSpace(opts.Schedule); expr != "" {
		sched, err := cronParser.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid cron expression %q: %v", types.ErrConfiguration, expr, err)
		}
		w.schedule = sched
	}
	return w, nil
}

// Start blocks, running the evaluation whenever a trigger fires, until ctx
// is cancelled. Run errors are logged and do not stop the watcher.
func (w *Watcher) Start(ctx context.Context) error {
	if w.dir != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("creating file watcher: %w", err)
		}
		defer watcher.Close()
		if err := addTree(watcher, w.dir); err != nil {
			return err
		}
		go w.watchLoop(ctx, watcher)
		w.log.Info("watching fixtures", "dir", w.dir, "debounce", w.debounce)
	}

	if w.schedule != nil {
		c := cron.New(cron.WithParser(cronParser))
		c.Schedule(w.schedule, cron.FuncJob(func() { w.trigger("schedule") }))
		c.Start()
		defer c.Stop()
		w.log.Info("run schedule active", "next", w.schedule.Next(time.Now()))
	}

	if w.runOnStart {
		w.trigger("start")
	}

	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-w.pending:
			if ctx.Err() != nil {
				return nil
			}
			w.log.Info("evaluation triggered", "reason", reason)
			if err := w.run(ctx, reason); err != nil {
				w.log.Error("evaluation failed", "reason", reason, "error", err)
			}
		}
	}
}

// trigger queues a run. A run already queued absorbs the trigger.
func (w *Watcher) trigger(reason string) {
	select {
	case w.pending <- reason:
	default:
		w.log.Debug("run already pending", "reason", reason)
	}
}

func (w *Watcher) scheduleDebounced(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.trigger("change: " + path)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						w.log.Warn("watching new directory failed", "dir", event.Name, "error", err)
					}
				}
			}
			if !relevant(event.Name) {
				continue
			}
			w.log.Debug("fixture change", "path", event.Name, "op", event.Op.String())
			w.scheduleDebounced(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watch error", "error", err)
		}
	}
}

// relevant ignores editor swap files and other hidden files.
func relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return true
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
