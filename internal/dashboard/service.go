// Package dashboard loads month snapshots for the dashboard and tells open
// browsers when they are stale.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"granabox/internal/cache"
	"granabox/internal/core"
	applog "granabox/internal/log"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultTTL      = 2 * time.Minute
	DefaultSize     = 48

	loadTimeout = 15 * time.Second
)

// Source is the backend data a snapshot is built from.
type Source interface {
	Overview(ctx context.Context, p core.Period) (core.Overview, error)
	ItemsByDate(ctx context.Context, p core.Period, status *core.Status) ([]core.Item, error)
	YearRange(ctx context.Context) core.YearRange
	ListLabels(ctx context.Context) ([]core.Label, error)
}

// Snapshot is everything the dashboard shows for one month.
type Snapshot struct {
	Period    core.Period
	Overview  core.Overview
	Items     []core.Item
	Years     core.YearRange
	Labels    []core.Label
	FetchedAt time.Time
}

// Config configures a Service.
type Config struct {
	TTL      time.Duration
	Size     int
	Debounce time.Duration
	// Notify receives the stale period keys after the debounce; nil keys
	// mean every month.
	Notify func(periods []string)
	Logger *applog.Logger
}

// Service caches snapshots and coalesces invalidations into one notification.
type Service struct {
	source    Source
	snapshots *cache.LRUCache[Snapshot]
	group     singleflight.Group
	debouncer *Debouncer
	notify    func([]string)
	logger    *applog.Logger
	now       func() time.Time
	gen       atomic.Uint64

	mu         sync.Mutex
	pending    map[string]struct{}
	pendingAll bool
}

func New(source Source, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentDashboard)
	}

	s := &Service{
		source:    source,
		snapshots: cache.NewLRUCache[Snapshot](cfg.Size, cfg.TTL),
		notify:    cfg.Notify,
		logger:    logger.WithComponent(applog.ComponentDashboard),
		now:       time.Now,
		pending:   make(map[string]struct{}),
	}
	s.debouncer = NewDebouncer(cfg.Debounce, s.publish)
	return s
}

// Snapshot returns the month's data, from cache when fresh. Concurrent
// requests for the same month share one backend round.
func (s *Service) Snapshot(ctx context.Context, p core.Period) (Snapshot, error) {
	if err := p.Validate(); err != nil {
		return Snapshot{}, err
	}
	key := p.Key()
	if snap, ok := s.snapshots.Get(key); ok {
		return snap, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		gen := s.gen.Load()
		snap, err := s.load(loadCtx, p)
		if err != nil {
			return Snapshot{}, err
		}
		// An invalidation during the load makes the result stale for the cache.
		if s.gen.Load() == gen {
			s.snapshots.Set(key, snap)
		}
		return snap, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// load fetches the snapshot parts in parallel.
func (s *Service) load(ctx context.Context, p core.Period) (Snapshot, error) {
	start := s.now()
	snap := Snapshot{Period: p}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, err := s.source.Overview(gctx, p)
		if err != nil {
			return fmt.Errorf("load overview: %w", err)
		}
		snap.Overview = o
		return nil
	})
	g.Go(func() error {
		items, err := s.source.ItemsByDate(gctx, p, nil)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		snap.Items = items
		return nil
	})
	g.Go(func() error {
		labels, err := s.source.ListLabels(gctx)
		if err != nil {
			return fmt.Errorf("load labels: %w", err)
		}
		snap.Labels = labels
		return nil
	})
	g.Go(func() error {
		snap.Years = s.source.YearRange(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "Snapshot load failed",
			applog.FieldYear, p.Year, applog.FieldMonth, p.Month,
			applog.FieldErrorType, applog.ErrorTypeBackend,
			applog.FieldError, err)
		return Snapshot{}, err
	}

	snap.FetchedAt = s.now()
	s.logger.DebugContext(ctx, "Snapshot loaded",
		applog.FieldYear, p.Year, applog.FieldMonth, p.Month,
		"items", len(snap.Items),
		applog.FieldDuration, snap.FetchedAt.Sub(start).Milliseconds())
	return snap, nil
}

// Invalidate drops the months from the cache now and schedules a refresh
// notification. The year range can change with any month, so cached
// snapshots of other months are dropped too.
func (s *Service) Invalidate(periods ...core.Period) {
	s.gen.Add(1)
	s.snapshots.Clear()

	s.mu.Lock()
	for _, p := range periods {
		s.pending[p.Key()] = struct{}{}
	}
	s.mu.Unlock()

	s.debouncer.Trigger()
}

// InvalidateAll drops every cached month and schedules a refresh notification.
func (s *Service) InvalidateAll() {
	s.gen.Add(1)
	s.snapshots.Clear()

	s.mu.Lock()
	s.pendingAll = true
	s.mu.Unlock()

	s.debouncer.Trigger()
}

// InvalidateKeys is Invalidate for period keys such as "2025-03".
func (s *Service) InvalidateKeys(keys ...string) {
	var periods []core.Period
	for _, k := range keys {
		if p, err := core.ParsePeriodKey(k); err == nil {
			periods = append(periods, p)
		}
	}
	if len(periods) == 0 {
		s.InvalidateAll()
		return
	}
	s.Invalidate(periods...)
}

// publish sends the collected invalidations.
func (s *Service) publish() {
	s.mu.Lock()
	all := s.pendingAll
	keys := make([]string, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	s.pending = make(map[string]struct{})
	s.pendingAll = false
	s.mu.Unlock()

	if all {
		keys = nil
	} else {
		sort.Strings(keys)
	}

	s.logger.Debug("Dashboard refresh published", "periods", keys, "all", all)
	if s.notify != nil {
		s.notify(keys)
	}
}

// Flush publishes pending invalidations without waiting for the debounce.
func (s *Service) Flush() bool {
	return s.debouncer.Flush()
}

// Close stops pending notifications.
func (s *Service) Close() {
	s.debouncer.Stop()
}

// CacheStats exposes the snapshot cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.snapshots.Stats()
}

// Cache returns the snapshot cache for periodic cleanup.
func (s *Service) Cache() cache.Cleaner {
	return s.snapshots
}
