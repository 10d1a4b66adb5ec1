// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/specgrade/pkg/types"
)

type recorder struct {
	mu      sync.Mutex
	reasons []string
	active  atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
}

func (r *recorder) run(_ context.Context, reason string) error {
	if r.active.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.active.Add(-1)
	time.Sleep(r.delay)
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reasons...)
}

func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func TestNewValidation(t *testing.T) {
	noop := func(context.Context, string) error { return nil }
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"no run func", Options{Dir: "x"}, true},
		{"nothing to watch", Options{Run: noop}, true},
		{"bad cron", Options{Run: noop, Schedule: "every tuesday"}, true},
		{"dir only", Options{Run: noop, Dir: "x"}, false},
		{"five fields", Options{Run: noop, Schedule: "0 3 * * *"}, false},
		{"six fields", Options{Run: noop, Schedule: "30 0 3 * * *"}, false},
		{"descriptor", Options{Run: noop, Schedule: "@hourly"}, false},
		{"every", Options{Run: noop, Schedule: "@every 15m"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrConfiguration)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRunOnStart(t *testing.T) {
	rec := &recorder{}
	w, err := New(Options{Dir: t.TempDir(), RunOnStart: true, Run: rec.run})
	require.NoError(t, err)
	start(t, w)

	require.Eventually(t, func() bool { return rec.count() == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"start"}, rec.snapshot())
}

func TestFixtureChangeTriggersDebouncedRun(t *testing.T) {
	dir := t.TempDir()
	apiDir := filepath.Join(dir, "jsonplaceholder")
	require.NoError(t, os.MkdirAll(apiDir, 0o755))

	rec := &recorder{}
	w, err := New(Options{Dir: dir, Debounce: 100 * time.Millisecond, Run: rec.run})
	require.NoError(t, err)
	start(t, w)

	// Give the watcher time to register directories.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(apiDir, "posts.yaml"), []byte("api: jsonplaceholder\n"), 0o644))
	}

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "burst of writes collapses into one run")
	assert.Contains(t, rec.snapshot()[0], "posts.yaml")
}

func TestHiddenFilesIgnored(t *testing.T) {
	assert.False(t, relevant("/data/golden_set/api/.posts.yaml.swp"))
	assert.False(t, relevant("/data/golden_set/api/posts.yaml~"))
	assert.True(t, relevant("/data/golden_set/api/posts.yaml"))
}

func TestTriggersNeverOverlap(t *testing.T) {
	rec := &recorder{delay: 50 * time.Millisecond}
	w, err := New(Options{Schedule: "@daily", Run: rec.run})
	require.NoError(t, err)
	start(t, w)

	for i := 0; i < 20; i++ {
		w.trigger("manual")
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return rec.active.Load() == 0 && rec.count() >= 2 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.False(t, rec.overlap.Load())
	assert.Less(t, rec.count(), 20, "triggers during a run are coalesced")
}

func TestScheduleTriggersRun(t *testing.T) {
	rec := &recorder{}
	w, err := New(Options{Schedule: "@every 1s", Run: rec.run})
	require.NoError(t, err)
	start(t, w)

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 4*time.Second, 20*time.Millisecond)
	assert.Equal(t, "schedule", rec.snapshot()[0])
}
