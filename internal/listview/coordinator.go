// Package listview keeps the server-side state of application list views:
// the current query, the last page shown and whether a fetch is running.
package listview

import (
	"context"
	"errors"
	"sync"

	"orphanadmin/internal/application"
	"orphanadmin/internal/notify"
	"orphanadmin/internal/obs"
	"orphanadmin/internal/query"
)

// ErrSuperseded is returned to the caller of a fetch whose response arrived
// after a newer fetch had been issued. The response was discarded.
var ErrSuperseded = errors.New("list fetch superseded by a newer query")

// Snapshot is the render-ready state of a list view.
type Snapshot struct {
	State   query.State      `json:"state"`
	Page    application.Page `json:"page"`
	Loading bool             `json:"loading"`
	Err     string           `json:"error,omitempty"`
}

// Coordinator issues list fetches for one view. Every fetch is tagged with a
// sequence number and only the response to the latest one is shown.
type Coordinator struct {
	lister   application.Lister
	notifier notify.Notifier
	onState  func(context.Context, query.State)

	mu      sync.Mutex
	state   query.State
	page    application.Page
	latest  uint64
	loading bool
	err     error
}

type Option func(*Coordinator)

// WithStateHook calls fn with every state a fetch is issued for.
func WithStateHook(fn func(context.Context, query.State)) Option {
	return func(c *Coordinator) { c.onState = fn }
}

func NewCoordinator(l application.Lister, n notify.Notifier, initial query.State, opts ...Option) *Coordinator {
	if n == nil {
		n = notify.Discard
	}
	c := &Coordinator{
		lister:   l,
		notifier: n,
		state:    initial,
		page:     application.NewPage(nil, 0, initial.Size, 0),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch makes s the current state and loads its page. The lister is called
// without holding the lock; stale responses are not cancelled, only
// discarded on arrival. Failures are reported to the notifier, the previous
// page stays visible.
func (c *Coordinator) Fetch(ctx context.Context, s query.State) (application.Page, error) {
	return c.Update(ctx, func(query.State) (query.State, error) { return s, nil })
}

// Apply runs reducer against the current state and fetches the result.
func (c *Coordinator) Apply(ctx context.Context, reducer func(query.State) query.State) (application.Page, error) {
	return c.Update(ctx, func(s query.State) (query.State, error) { return reducer(s), nil })
}

// Update derives the next state from the current one and fetches it. next
// runs under the view lock, so intents issued together compose instead of
// overwriting each other. When next fails the state is left unchanged and
// nothing is fetched.
func (c *Coordinator) Update(ctx context.Context, next func(query.State) (query.State, error)) (application.Page, error) {
	c.mu.Lock()
	s, err := next(c.state)
	if err != nil {
		c.mu.Unlock()
		return application.Page{}, err
	}
	c.latest++
	seq := c.latest
	c.state = s
	c.loading = true
	c.mu.Unlock()

	return c.load(ctx, seq, s)
}

func (c *Coordinator) load(ctx context.Context, seq uint64, s query.State) (application.Page, error) {
	if c.onState != nil {
		c.onState(ctx, s)
	}

	page, err := c.lister.ListApplications(ctx, s)

	c.mu.Lock()
	if seq != c.latest {
		c.mu.Unlock()
		obs.ObserveListFetch("stale")
		return application.Page{}, ErrSuperseded
	}
	c.loading = false
	if err != nil {
		c.err = err
		c.mu.Unlock()
		obs.ObserveListFetch("error")
		c.notifier.Notify(ctx, notify.Failure("load applications", "", err))
		return application.Page{}, err
	}
	c.page = page
	c.err = nil
	c.mu.Unlock()
	obs.ObserveListFetch("ok")
	return page, nil
}

// Refresh re-fetches the current state. When the current page no longer
// exists (rows were deleted) it falls back to the last page there is, or to
// the first page when nothing matches any more.
func (c *Coordinator) Refresh(ctx context.Context) (application.Page, error) {
	var fetched query.State
	page, err := c.Update(ctx, func(s query.State) (query.State, error) {
		fetched = s
		return s, nil
	})
	if err != nil {
		return page, err
	}
	if fetched.Page == 0 || fetched.Page < page.TotalPages {
		return page, nil
	}
	return c.Update(ctx, func(s query.State) (query.State, error) {
		if !s.Equal(fetched) {
			return s, ErrSuperseded
		}
		return query.ClampPage(s, page.TotalPages), nil
	})
}

// State returns the state of the latest fetch.
func (c *Coordinator) State() query.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{State: c.state, Page: c.page, Loading: c.loading}
	if c.err != nil {
		snap.Err = c.err.Error()
	}
	return snap
}
