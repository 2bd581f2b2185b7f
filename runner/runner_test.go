package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"web/cellcluster/cluster"
	"web/cellcluster/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRunner(t *testing.T, maxRuns int) *Runner {
	t.Helper()
	cfg := (&config.Config{
		SaveDir: t.TempDir(),
		MaxRuns: maxRuns,
		RunTTL:  time.Hour,
	}).OrDefault()
	r, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestCreateAndGet(t *testing.T) {
	r := newTestRunner(t, 5)
	ctx := context.Background()

	points := []cluster.Point{{X: 0.05, Y: 0.05}, {X: 0.1, Y: 0.05}, {X: 0.5, Y: 0.5}}
	run, err := r.Create(ctx, points, 0.1)
	require.NoError(t, err)

	assert.Len(t, run.Info.ID, 8)
	assert.Equal(t, 3, run.Info.NumPoints)
	assert.Positive(t, run.Info.FileSize)
	assert.Equal(t, []int{2, 1}, run.Labeling.Sizes())
	assert.True(t, r.Cached(run.Info.ID))

	got, err := r.Get(ctx, run.Info.ID)
	require.NoError(t, err)
	assert.Same(t, run.Labeling, got)

	info, err := r.Info(run.Info.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Info.ID, info.ID)
	assert.Equal(t, 3, info.NumPoints)
	assert.Equal(t, run.Info.FileSize, info.FileSize)
	assert.True(t, run.Info.Timestamp.Equal(info.Timestamp))
}

func TestGetLoadsFromDisk(t *testing.T) {
	r := newTestRunner(t, 5)
	ctx := context.Background()

	run, err := r.Create(ctx, cluster.GenerateTestPoints(300, 42), 0.05)
	require.NoError(t, err)

	r.evictInactive(time.Now().Add(2 * time.Hour))
	require.False(t, r.Cached(run.Info.ID))

	got, err := r.Get(ctx, run.Info.ID)
	require.NoError(t, err)
	assert.NotSame(t, run.Labeling, got)
	assert.Equal(t, run.Labeling.Labels, got.Labels)
	assert.Equal(t, run.Labeling.Sizes(), got.Sizes())
	assert.Equal(t, run.Labeling.PointLabels(), got.PointLabels())
	assert.True(t, r.Cached(run.Info.ID))
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	r := newTestRunner(t, 2)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := r.Create(ctx, cluster.GenerateTestPoints(50, int64(i)), 0.1)
		require.NoError(t, err)
		ids = append(ids, run.Info.ID)
		time.Sleep(time.Millisecond)
	}

	assert.False(t, r.Cached(ids[0]))
	assert.True(t, r.Cached(ids[1]))
	assert.True(t, r.Cached(ids[2]))

	// Every run is still on disk.
	runs, err := r.List()
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	for i := 1; i < len(runs); i++ {
		assert.False(t, runs[i].Timestamp.After(runs[i-1].Timestamp))
	}

	_, err = r.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, r.Cached(ids[0]))
	assert.False(t, r.Cached(ids[1]))
}

func TestEvictInactive(t *testing.T) {
	r := newTestRunner(t, 5)
	ctx := context.Background()

	run, err := r.Create(ctx, cluster.GenerateTestPoints(20, 42), 0.2)
	require.NoError(t, err)

	assert.Zero(t, r.evictInactive(time.Now()))
	assert.True(t, r.Cached(run.Info.ID))

	assert.Equal(t, 1, r.evictInactive(time.Now().Add(61*time.Minute)))
	assert.False(t, r.Cached(run.Info.ID))
}

func TestNotFound(t *testing.T) {
	r := newTestRunner(t, 5)
	ctx := context.Background()

	for _, id := range []string{"", "deadbeef", "../etc", `a\b`, "run.zst"} {
		_, err := r.Get(ctx, id)
		assert.ErrorIs(t, err, ErrRunNotFound, "id %q", id)
		_, err = r.Info(id)
		assert.ErrorIs(t, err, ErrRunNotFound, "id %q", id)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	r := newTestRunner(t, 5)
	ctx := context.Background()

	_, err := r.Create(ctx, []cluster.Point{{X: 0.5, Y: 0.5}}, 0)
	assert.ErrorIs(t, err, cluster.ErrInvalidRadius)

	_, err = r.Create(ctx, []cluster.Point{{X: 2, Y: 0.5}}, 0.1)
	assert.ErrorIs(t, err, cluster.ErrPointOutOfRange)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.Create(cancelled, nil, 0.1)
	assert.ErrorIs(t, err, context.Canceled)

	runs, err := r.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListSkipsForeignFiles(t *testing.T) {
	r := newTestRunner(t, 5)
	require.NoError(t, os.WriteFile(filepath.Join(r.cfg.SaveDir, "notes.zst"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(r.cfg.SaveDir, "readme.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(r.cfg.SaveDir, "old"), 0755))

	_, err := r.Create(context.Background(), cluster.GenerateTestPoints(10, 42), 0.3)
	require.NoError(t, err)

	runs, err := r.List()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunFilename(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	name := runFilename(1200, at, "ab12cd34")
	assert.Equal(t, "run-1200p-20240309-140507-ab12cd34.zst", name)

	info, ok := parseRunFilename(name)
	require.True(t, ok)
	assert.Equal(t, "ab12cd34", info.ID)
	assert.Equal(t, 1200, info.NumPoints)
	assert.True(t, at.Equal(info.Timestamp))

	for _, bad := range []string{
		"run-1200p-20240309-140507-ab12cd34.bin",
		"job-1200p-20240309-140507-ab12cd34.zst",
		"run-1200-20240309-140507-ab12cd34.zst",
		"run-xp-20240309-140507-ab12cd34.zst",
		"run-1200p-2024-140507-ab12cd34.zst",
		"run-1200p-20240309-140507.zst",
	} {
		_, ok := parseRunFilename(bad)
		assert.False(t, ok, bad)
	}
}
