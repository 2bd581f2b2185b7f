package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"web/cellcluster/cluster"
	"web/cellcluster/internal/config"
	"web/cellcluster/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRunNotFound is returned when no saved run matches an id.
var ErrRunNotFound = errors.New("run not found")

const timestampLayout = "20060102-150405"

// RunInfo describes a saved run.
type RunInfo struct {
	ID        string    `json:"id"`
	NumPoints int       `json:"numPoints"`
	Timestamp time.Time `json:"timestamp"`
	FileSize  int64     `json:"fileSize"`
}

// Run is a labeled data set together with its saved metadata.
type Run struct {
	Info     RunInfo
	Labeling *cluster.Labeling
}

// Runner clusters data sets, saves every result as a compressed snapshot and
// keeps the most recently used ones in memory.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger

	mu           sync.RWMutex
	runs         map[string]*cluster.Labeling
	lastAccessed map[string]time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates the save directory and starts the inactive-run sweeper.
func New(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	cfg = cfg.OrDefault()
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.SaveDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	r := &Runner{
		cfg:          cfg,
		logger:       logger.Named("runner"),
		runs:         make(map[string]*cluster.Labeling),
		lastAccessed: make(map[string]time.Time),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go r.cleanupInactiveRuns()
	return r, nil
}

// Close stops the sweeper and drops every cached run.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
		<-r.done

		r.mu.Lock()
		r.runs = make(map[string]*cluster.Labeling)
		r.lastAccessed = make(map[string]time.Time)
		r.mu.Unlock()
		metrics.RunsCached.Set(0)
	})
}

func (r *Runner) cleanupInactiveRuns() {
	defer close(r.done)

	interval := r.cfg.RunTTL / 6
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.evictInactive(now)
		}
	}
}

// evictInactive drops runs not accessed within RunTTL of now.
func (r *Runner) evictInactive(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int
	for id, last := range r.lastAccessed {
		if now.Sub(last) > r.cfg.RunTTL {
			delete(r.runs, id)
			delete(r.lastAccessed, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug("evicted inactive runs", zap.Int("count", removed))
	}
	metrics.RunsCached.Set(float64(len(r.runs)))
	return removed
}

// Create clusters points, saves the result and caches it.
func (r *Runner) Create(ctx context.Context, points []cluster.Point, radius float64) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	labeling, err := cluster.Cluster(points, radius, cluster.WithMaxCells(r.cfg.MaxCells))
	if err != nil {
		metrics.RunRejected.Inc()
		return nil, err
	}
	took := time.Since(start)
	metrics.ObserveRun(len(points), labeling.NumClusters(), took)

	now := time.Now()
	id := uuid.New().String()[:8]
	savePath := filepath.Join(r.cfg.SaveDir, runFilename(len(points), now, id))
	if err := cluster.SaveCompressed(savePath, labeling); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	fileInfo, err := os.Stat(savePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	r.logger.Info("run created",
		zap.String("id", id),
		zap.Int("points", len(points)),
		zap.Float64("radius", radius),
		zap.Int("clusters", labeling.NumClusters()),
		zap.Duration("took", took),
		zap.String("path", savePath))

	r.mu.Lock()
	r.store(id, labeling)
	r.mu.Unlock()

	return &Run{
		Info: RunInfo{
			ID:        id,
			NumPoints: len(points),
			Timestamp: now.Truncate(time.Second),
			FileSize:  fileInfo.Size(),
		},
		Labeling: labeling,
	}, nil
}

// Get returns the labeling of run id, loading it from disk if it is not
// cached.
func (r *Runner) Get(ctx context.Context, id string) (*cluster.Labeling, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.runs[id]; ok {
		r.lastAccessed[id] = time.Now()
		return l, nil
	}

	path, err := r.findRunFile(id)
	if err != nil {
		return nil, err
	}
	l, err := cluster.LoadCompressed(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	r.logger.Debug("run loaded from disk", zap.String("id", id), zap.String("path", path))
	r.store(id, l)
	return l, nil
}

// store caches l, evicting the least recently used run when full. Callers
// hold mu.
func (r *Runner) store(id string, l *cluster.Labeling) {
	if _, ok := r.runs[id]; !ok && len(r.runs) >= r.cfg.MaxRuns {
		var oldestID string
		var oldestTime time.Time
		first := true
		for cid, t := range r.lastAccessed {
			if first || t.Before(oldestTime) {
				oldestID = cid
				oldestTime = t
				first = false
			}
		}
		if oldestID != "" {
			delete(r.runs, oldestID)
			delete(r.lastAccessed, oldestID)
		}
	}
	r.runs[id] = l
	r.lastAccessed[id] = time.Now()
	metrics.RunsCached.Set(float64(len(r.runs)))
}

// Cached reports whether run id is held in memory.
func (r *Runner) Cached(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.runs[id]
	return ok
}

// Info returns the saved metadata of run id.
func (r *Runner) Info(id string) (RunInfo, error) {
	path, err := r.findRunFile(id)
	if err != nil {
		return RunInfo{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return RunInfo{}, fmt.Errorf("failed to get file info: %w", err)
	}
	info, ok := parseRunFilename(fi.Name())
	if !ok {
		return RunInfo{}, fmt.Errorf("invalid run filename %s", fi.Name())
	}
	info.FileSize = fi.Size()
	return info, nil
}

// List returns every saved run, newest first.
func (r *Runner) List() ([]RunInfo, error) {
	files, err := os.ReadDir(r.cfg.SaveDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read run directory: %w", err)
	}

	runs := make([]RunInfo, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".zst" {
			continue
		}
		info, ok := parseRunFilename(file.Name())
		if !ok {
			r.logger.Warn("skipping file with unexpected name", zap.String("file", file.Name()))
			continue
		}
		fi, err := file.Info()
		if err != nil {
			r.logger.Warn("failed to stat run file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}
		info.FileSize = fi.Size()
		runs = append(runs, info)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (r *Runner) findRunFile(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return "", fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	files, err := os.ReadDir(r.cfg.SaveDir)
	if err != nil {
		return "", fmt.Errorf("failed to read run directory: %w", err)
	}
	for _, file := range files {
		if info, ok := parseRunFilename(file.Name()); ok && info.ID == id {
			return filepath.Join(r.cfg.SaveDir, file.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// runFilename formats run-{points}p-{timestamp}-{id}.zst.
func runFilename(numPoints int, at time.Time, id string) string {
	return fmt.Sprintf("run-%dp-%s-%s.zst", numPoints, at.Format(timestampLayout), id)
}

func parseRunFilename(name string) (RunInfo, bool) {
	if !strings.HasSuffix(name, ".zst") {
		return RunInfo{}, false
	}
	parts := strings.Split(strings.TrimSuffix(name, ".zst"), "-")
	if len(parts) != 5 || parts[0] != "run" || !strings.HasSuffix(parts[1], "p") {
		return RunInfo{}, false
	}
	numPoints, err := strconv.Atoi(strings.TrimSuffix(parts[1], "p"))
	if err != nil {
		return RunInfo{}, false
	}
	ts, err := time.ParseInLocation(timestampLayout, parts[2]+"-"+parts[3], time.Local)
	if err != nil {
		return RunInfo{}, false
	}
	return RunInfo{ID: parts[4], NumPoints: numPoints, Timestamp: ts}, true
}
