// Package lookup serves the reference tables to validation and views and
// runs the administrative flows that edit them.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"kreltrack/internal/domain/lookup"
	"kreltrack/internal/shared/logger"
)

const (
	defaultLoadTimeout  = 10 * time.Second
	defaultRetryBackoff = 2 * time.Second
)

// EntrySource is the store behind the cache.
type EntrySource interface {
	ListEntries(ctx context.Context, table lookup.Table) ([]lookup.Entry, error)
}

// snapshot is an immutable, sorted copy of one table.
type snapshot struct {
	entries  []lookup.Entry
	byCode   map[string]lookup.Entry
	loadedAt time.Time
	// generation of the table when the load started
	gen uint64
}

type tableState struct {
	current  atomic.Pointer[snapshot]
	gen      atomic.Uint64
	degraded atomic.Bool
	lastErr  atomic.Pointer[string]
	// unix nanos before which a stale read does not retry a failed store
	retryAt atomic.Int64
}

// TableHealth reports the cache state of one table.
type TableHealth struct {
	Loaded    bool
	Stale     bool
	Degraded  bool
	LoadedAt  time.Time
	Entries   int
	LastError string
}

// Cache is a read-through mirror of the lookup tables. After the first load
// a table is served from memory until it is invalidated; a failed reload
// keeps serving the previous snapshot and marks the table degraded.
type Cache struct {
	source      EntrySource
	tables      map[lookup.Table]*tableState
	loads       singleflight.Group
	loadTimeout time.Duration
	backoff     time.Duration
	now         func() time.Time
	logger      logger.Interface
}

type CacheOption func(*Cache)

// WithRetryBackoff sets how long reads keep serving a stale snapshot after a
// failed reload before they try the store again.
func WithRetryBackoff(d time.Duration) CacheOption {
	return func(c *Cache) { c.backoff = d }
}

func withClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func NewCache(source EntrySource, loadTimeout time.Duration, log logger.Interface, opts ...CacheOption) *Cache {
	if loadTimeout <= 0 {
		loadTimeout = defaultLoadTimeout
	}
	tables := make(map[lookup.Table]*tableState)
	for _, t := range lookup.AllTables() {
		tables[t] = &tableState{}
	}
	c := &Cache{
		source:      source,
		tables:      tables,
		loadTimeout: loadTimeout,
		backoff:     defaultRetryBackoff,
		now:         time.Now,
		logger:      log.Named("lookup.cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) state(table lookup.Table) (*tableState, error) {
	st, ok := c.tables[table]
	if !ok {
		return nil, fmt.Errorf("unknown lookup table: %s", table)
	}
	return st, nil
}

// Get resolves one code. found is false when the code is not in the table;
// inactive entries are returned with Active=false.
func (c *Cache) Get(ctx context.Context, table lookup.Table, code string) (lookup.Entry, bool, error) {
	snap, err := c.read(ctx, table)
	if err != nil {
		return lookup.Entry{}, false, err
	}
	e, ok := snap.byCode[code]
	return e, ok, nil
}

// All returns the table ordered by sort key, then label.
func (c *Cache) All(ctx context.Context, table lookup.Table) ([]lookup.Entry, error) {
	snap, err := c.read(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make([]lookup.Entry, len(snap.entries))
	copy(out, snap.entries)
	return out, nil
}

// Active returns only the entries that may be used as new references.
func (c *Cache) Active(ctx context.Context, table lookup.Table) ([]lookup.Entry, error) {
	all, err := c.All(ctx, table)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *Cache) read(ctx context.Context, table lookup.Table) (*snapshot, error) {
	st, err := c.state(table)
	if err != nil {
		return nil, err
	}

	snap := st.current.Load()
	if snap != nil && snap.gen == st.gen.Load() {
		return snap, nil
	}
	if snap != nil && st.degraded.Load() && c.now().UnixNano() < st.retryAt.Load() {
		return snap, nil
	}

	fresh, err := c.load(ctx, table, st)
	if err != nil {
		if snap != nil {
			return snap, nil
		}
		return nil, err
	}
	return fresh, nil
}

// Refresh re-reads a table from the store and swaps the snapshot in.
func (c *Cache) Refresh(ctx context.Context, table lookup.Table) error {
	st, err := c.state(table)
	if err != nil {
		return err
	}
	_, err = c.load(ctx, table, st)
	return err
}

// Invalidate marks a table stale; the next read reloads it first, even
// while a failed reload is backing off.
func (c *Cache) Invalidate(table lookup.Table) {
	if st, err := c.state(table); err == nil {
		st.retryAt.Store(0)
		st.gen.Add(1)
	}
}

func (c *Cache) InvalidateAll() {
	for _, st := range c.tables {
		st.retryAt.Store(0)
		st.gen.Add(1)
	}
}

// load collapses concurrent loads of one table generation into a single
// store read. The read is detached from the caller's cancellation so one
// impatient caller cannot fail the others waiting on it.
func (c *Cache) load(ctx context.Context, table lookup.Table, st *tableState) (*snapshot, error) {
	gen := st.gen.Load()
	key := table.String() + "@" + strconv.FormatUint(gen, 10)

	ch := c.loads.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		entries, err := c.source.ListEntries(loadCtx, table)
		if err != nil {
			msg := err.Error()
			st.lastErr.Store(&msg)
			st.retryAt.Store(c.now().Add(c.backoff).UnixNano())
			if !st.degraded.Swap(true) {
				c.logger.Warnw("lookup refresh failed, serving last snapshot", "table", table, "error", err)
			}
			return nil, fmt.Errorf("failed to load %s: %w", table, err)
		}

		lookup.SortEntries(entries)
		snap := &snapshot{
			entries:  entries,
			byCode:   make(map[string]lookup.Entry, len(entries)),
			loadedAt: time.Now(),
			gen:      gen,
		}
		for _, e := range entries {
			snap.byCode[e.Code] = e
		}

		// never replace a snapshot taken for a newer generation
		for {
			cur := st.current.Load()
			if cur != nil && cur.gen > gen {
				break
			}
			if st.current.CompareAndSwap(cur, snap) {
				break
			}
		}
		if st.degraded.Swap(false) {
			c.logger.Infow("lookup table recovered", "table", table)
		}
		st.lastErr.Store(nil)
		st.retryAt.Store(0)
		c.logger.Debugw("lookup table loaded", "table", table, "entries", len(entries))
		return snap, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Preload loads every table concurrently.
func (c *Cache) Preload(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, table := range lookup.AllTables() {
		g.Go(func() error {
			return c.Refresh(gctx, table)
		})
	}
	return g.Wait()
}

// Degraded reports whether the last reload of table failed.
func (c *Cache) Degraded(table lookup.Table) bool {
	st, err := c.state(table)
	return err == nil && st.degraded.Load()
}

func (c *Cache) Health() map[lookup.Table]TableHealth {
	out := make(map[lookup.Table]TableHealth, len(c.tables))
	for table, st := range c.tables {
		h := TableHealth{Degraded: st.degraded.Load()}
		if snap := st.current.Load(); snap != nil {
			h.Loaded = true
			h.LoadedAt = snap.loadedAt
			h.Entries = len(snap.entries)
			h.Stale = snap.gen != st.gen.Load()
		}
		if msg := st.lastErr.Load(); msg != nil {
			h.LastError = *msg
		}
		out[table] = h
	}
	return out
}

// RefreshAll reloads every table and reports how many reloads succeeded.
// Failed tables keep serving their previous snapshot.
func (c *Cache) RefreshAll(ctx context.Context) (int, error) {
	var (
		ok   int
		errs []error
	)
	for _, table := range lookup.AllTables() {
		if err := c.Refresh(ctx, table); err != nil {
			errs = append(errs, err)
			continue
		}
		ok++
	}
	return ok, errors.Join(errs...)
}

// RefreshJob adapts the cache to a periodic batch job.
type RefreshJob struct {
	Cache *Cache
}

func (j RefreshJob) Execute(ctx context.Context) (int, error) {
	return j.Cache.RefreshAll(ctx)
}
