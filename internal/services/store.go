package services

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"retail-insights/internal/models"
)

const snapshotVersion = 1

var ErrReportNotFound = errors.New("report not found")

// StoreHooks lets the caller follow store size and evictions, e.g. for
// metrics. Both fields are optional.
type StoreHooks struct {
	OnSize  func(n int)
	OnEvict func(n int)
}

type storedReport struct {
	Report  *models.Report
	Expires time.Time
}

// Store keeps finished reports in memory, bounded by count and age.
type Store struct {
	mu         sync.RWMutex
	reports    map[string]*storedReport
	maxReports int
	ttl        time.Duration
	now        func() time.Time
	hooks      StoreHooks
	logger     *slog.Logger

	janitor *janitor
}

// janitor is one StartJanitor run. stop is closed by whoever halts it and
// done is closed once its context watcher has returned.
type janitor struct {
	scheduler *gocron.Scheduler
	stop      chan struct{}
	done      chan struct{}
}

func NewStore(maxReports int, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		reports:    make(map[string]*storedReport),
		maxReports: maxReports,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *Store) SetHooks(h StoreHooks) {
	s.mu.Lock()
	s.hooks = h
	s.mu.Unlock()
}

// Put stores r, assigning an ID and creation time when missing, and evicts
// the oldest reports beyond capacity.
func (s *Store) Put(r *models.Report) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	s.reports[r.ID] = &storedReport{Report: r, Expires: s.now().Add(s.ttl)}

	evicted := 0
	for len(s.reports) > s.maxReports {
		delete(s.reports, s.oldestLocked())
		evicted++
	}
	s.notifyLocked(evicted)

	return r.ID
}

func (s *Store) oldestLocked() string {
	var oldestID string
	var oldest time.Time
	for id, sr := range s.reports {
		if oldestID == "" || sr.Report.CreatedAt.Before(oldest) {
			oldestID, oldest = id, sr.Report.CreatedAt
		}
	}
	return oldestID
}

func (s *Store) notifyLocked(evicted int) {
	if evicted > 0 && s.hooks.OnEvict != nil {
		s.hooks.OnEvict(evicted)
	}
	if s.hooks.OnSize != nil {
		s.hooks.OnSize(len(s.reports))
	}
}

func (s *Store) Get(id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, ok := s.reports[id]
	if !ok || s.now().After(sr.Expires) {
		return nil, ErrReportNotFound
	}
	return sr.Report, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return ErrReportNotFound
	}
	delete(s.reports, id)
	s.notifyLocked(0)
	return nil
}

// List returns live reports, newest first.
func (s *Store) List() []*models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	result := make([]*models.Report, 0, len(s.reports))
	for _, sr := range s.reports {
		if !now.After(sr.Expires) {
			result = append(result, sr.Report)
		}
	}
	slices.SortFunc(result, func(a, b *models.Report) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Purge drops expired reports and returns how many were removed.
func (s *Store) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sr := range s.reports {
		if now.After(sr.Expires) {
			delete(s.reports, id)
			removed++
		}
	}
	if removed > 0 {
		s.notifyLocked(removed)
	}
	return removed
}

// StartJanitor purges expired reports every interval until ctx is done or
// Stop is called.
func (s *Store) StartJanitor(ctx context.Context, every time.Duration) error {
	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(every).Do(func() {
		if n := s.Purge(); n > 0 {
			s.logger.Info("purged expired reports", "removed", n, "remaining", s.Len())
		}
	})
	if err != nil {
		return fmt.Errorf("schedule report janitor: %w", err)
	}

	j := &janitor{
		scheduler: scheduler,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.Stop()
	s.mu.Lock()
	s.janitor = j
	s.mu.Unlock()

	scheduler.StartAsync()
	s.logger.Info("report janitor started", "interval", every, "ttl", s.ttl)

	go func() {
		defer close(j.done)
		select {
		case <-ctx.Done():
			s.stopJanitor(j)
		case <-j.stop:
		}
	}()
	return nil
}

// Stop halts the running janitor, if any.
func (s *Store) Stop() {
	s.mu.Lock()
	j := s.janitor
	s.mu.Unlock()
	if j != nil {
		s.stopJanitor(j)
	}
}

// stopJanitor halts j unless it has already been halted or replaced.
func (s *Store) stopJanitor(j *janitor) {
	s.mu.Lock()
	if s.janitor != j {
		s.mu.Unlock()
		return
	}
	s.janitor = nil
	s.mu.Unlock()

	j.scheduler.Stop()
	close(j.stop)
}

type snapshot struct {
	Version int
	Saved   time.Time
	Reports []storedReport
}

// Save writes live reports to path as gob, via a temp file and rename.
func (s *Store) Save(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	s.mu.RLock()
	now := s.now()
	snap := snapshot{Version: snapshotVersion, Saved: now.UTC()}
	for _, sr := range s.reports {
		if !now.After(sr.Expires) {
			snap.Reports = append(snap.Reports, *sr)
		}
	}
	s.mu.RUnlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".reports-*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	s.logger.Info("saved report snapshot", "path", path, "reports", len(snap.Reports))
	return nil
}

// Load restores reports saved by Save, skipping expired ones. A missing file
// is not an error.
func (s *Store) Load(path string) (int, error) {
	if path == "" {
		return 0, nil
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return 0, fmt.Errorf("snapshot version %d, want %d", snap.Version, snapshotVersion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	loaded := 0
	for i := range snap.Reports {
		sr := snap.Reports[i]
		if now.After(sr.Expires) || sr.Report == nil {
			continue
		}
		s.reports[sr.Report.ID] = &sr
		loaded++
	}

	evicted := 0
	for len(s.reports) > s.maxReports {
		delete(s.reports, s.oldestLocked())
		evicted++
	}
	s.notifyLocked(evicted)

	return loaded, nil
}

func (s *Store) Stats() map[string]any {
	reports := s.List()

	stats := map[string]any{
		"reports":     len(reports),
		"max_reports": s.maxReports,
		"ttl":         s.ttl.String(),
	}
	if len(reports) > 0 {
		stats["newest"] = reports[0].CreatedAt
		stats["oldest"] = reports[len(reports)-1].CreatedAt
	}
	return stats
}
