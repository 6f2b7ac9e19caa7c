package listview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"orphanadmin/internal/application"
	"orphanadmin/internal/ids"
	"orphanadmin/internal/notify"
	"orphanadmin/internal/query"
)

// View is one user's list view.
type View struct {
	ID    string
	Owner string
	*Coordinator

	lastUsed time.Time
}

// Registry owns the open list views of all users.
type Registry struct {
	lister   application.Lister
	notifier notify.Notifier
	store    StateStore
	log      *zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	views map[string]*View
}

func NewRegistry(l application.Lister, n notify.Notifier, store StateStore, log *zerolog.Logger) *Registry {
	if store == nil {
		store = NewMemoryStateStore()
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Registry{
		lister:   l,
		notifier: n,
		store:    store,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		views:    make(map[string]*View),
	}
}

// Open creates a view with the default query for owner. The first page is
// not fetched; callers decide when to load it.
func (r *Registry) Open(ctx context.Context, owner string) (*View, error) {
	rec := Record{ID: ids.New(), Owner: owner, State: query.Default(), UpdatedAt: r.now()}
	if err := r.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	v := r.newView(rec)
	r.mu.Lock()
	r.views[v.ID] = v
	r.mu.Unlock()
	return v, nil
}

// Get returns owner's view id, restoring it from the store when this process
// has not seen it yet.
func (r *Registry) Get(ctx context.Context, owner, id string) (*View, error) {
	r.mu.Lock()
	v, ok := r.views[id]
	if ok {
		if v.Owner != owner {
			r.mu.Unlock()
			return nil, ErrViewNotFound
		}
		v.lastUsed = r.now()
		r.mu.Unlock()
		return v, nil
	}
	r.mu.Unlock()

	rec, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Owner != owner {
		return nil, ErrViewNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.views[id]; ok {
		existing.lastUsed = r.now()
		return existing, nil
	}
	v = r.newView(rec)
	r.views[id] = v
	return v, nil
}

// Close forgets the view and its persisted state.
func (r *Registry) Close(ctx context.Context, owner, id string) error {
	if _, err := r.Get(ctx, owner, id); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.views, id)
	r.mu.Unlock()
	return r.store.Delete(ctx, id)
}

// Evict drops views idle for longer than idleFor from memory and from the
// store, returning how many were dropped.
func (r *Registry) Evict(ctx context.Context, idleFor time.Duration) int {
	cutoff := r.now().Add(-idleFor)
	var stale []string
	r.mu.Lock()
	for id, v := range r.views {
		if v.lastUsed.Before(cutoff) {
			stale = append(stale, id)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()
	for _, id := range stale {
		if err := r.store.Delete(ctx, id); err != nil {
			r.log.Warn().Err(err).Str("view_id", id).Msg("evict view")
		}
	}
	return len(stale)
}

// Len returns the number of views held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Notifier exposes the registry's notifier to callers that act on a view.
func (r *Registry) Notifier() notify.Notifier { return r.notifier }

// RefreshOwner refreshes every open view of owner, e.g. after a mutation.
func (r *Registry) RefreshOwner(ctx context.Context, owner string) {
	r.mu.Lock()
	var mine []*View
	for _, v := range r.views {
		if v.Owner == owner {
			mine = append(mine, v)
		}
	}
	r.mu.Unlock()
	for _, v := range mine {
		if _, err := v.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
			r.log.Debug().Err(err).Str("view_id", v.ID).Msg("refresh view")
		}
	}
}

func (r *Registry) newView(rec Record) *View {
	v := &View{ID: rec.ID, Owner: rec.Owner, lastUsed: r.now()}
	save := func(ctx context.Context, s query.State) {
		err := r.store.Save(ctx, Record{ID: v.ID, Owner: v.Owner, State: s, UpdatedAt: r.now()})
		if err != nil {
			r.log.Warn().Err(err).Str("view_id", v.ID).Msg("persist view state")
		}
	}
	v.Coordinator = NewCoordinator(r.lister, r.notifier, rec.State, WithStateHook(save))
	return v
}

// Janitor evicts idle views on a cron schedule.
type Janitor struct {
	cron     *cron.Cron
	registry *Registry
	idleFor  time.Duration
	schedule string
	log      *zerolog.Logger
}

// NewJanitor checks every interval for views idle longer than idleFor.
func NewJanitor(r *Registry, interval, idleFor time.Duration) *Janitor {
	return &Janitor{
		cron:     cron.New(),
		registry: r,
		idleFor:  idleFor,
		schedule: fmt.Sprintf("@every %s", interval),
		log:      r.log,
	}
}

func (j *Janitor) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	j.cron.Start()
	j.log.Info().Str("schedule", j.schedule).Msg("view janitor started")
	return nil
}

// RunOnce performs a single eviction pass.
func (j *Janitor) RunOnce(ctx context.Context) int {
	n := j.registry.Evict(ctx, j.idleFor)
	if n > 0 {
		j.log.Info().Int("evicted", n).Msg("idle list views evicted")
	}
	return n
}

// Stop waits for a running pass to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}
