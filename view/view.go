// Package view is the authenticated paginated resource view: one generic
// list page configured by a Definition. It guards on the session, keeps
// the query state, fetches pages, debounces search, renders columns and
// dispatches row actions.
//
// Loads are sequenced. Starting a load cancels the one in flight, and a
// response that is not for the latest load is dropped, so a slow page 2
// can never overwrite page 3.
package view

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/hirepanel/action"
	"github.com/teranos/hirepanel/columns"
	"github.com/teranos/hirepanel/debounce"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/guard"
	"github.com/teranos/hirepanel/logger"
	"github.com/teranos/hirepanel/notify"
	"github.com/teranos/hirepanel/query"
	"github.com/teranos/hirepanel/resource"
	"github.com/teranos/hirepanel/session"
)

// ErrSuperseded is returned by a load whose response was dropped because a
// newer load started
var ErrSuperseded = errors.New("superseded by a newer request")

// RedirectError is returned when the guard refuses the view
type RedirectError struct {
	Decision guard.Decision
}

func (e *RedirectError) Error() string {
	if e.Decision.Redirect == guard.LoginPath {
		return "not logged in (redirect to " + guard.LoginPath + ")"
	}
	return "not available for this role (redirect to " + e.Decision.Redirect + ")"
}

// Unwrap maps a login redirect to ErrUnauthorized and a role redirect to
// ErrForbidden
func (e *RedirectError) Unwrap() error {
	if e.Decision.Redirect == guard.LoginPath {
		return errors.ErrUnauthorized
	}
	return errors.ErrForbidden
}

// Fetcher loads one page
type Fetcher interface {
	Fetch(ctx context.Context, endpoint, token string, q query.State) (*resource.Envelope, error)
}

// Deps are the collaborators shared by every view in a process
type Deps struct {
	Session    *session.Holder
	Fetcher    Fetcher
	Dispatcher *action.Dispatcher
	Notifier   notify.Notifier
	Log        *zap.SugaredLogger
	// Debounce is the search quiet period
	Debounce time.Duration
	// PerPage overrides every definition's page size when > 0
	PerPage int
}

// Snapshot is an immutable copy of the view state
type Snapshot struct {
	Name     string
	Query    query.State
	Data     []resource.Record
	Meta     resource.Meta
	Loading  bool
	Loaded   bool
	Err      error
	Message  string
	Seq      uint64
	Decision guard.Decision
	Schema   columns.Schema
}

// CanPrev is false on the first page
func (s Snapshot) CanPrev() bool {
	return s.Meta.CurrentPage > 1
}

// CanNext is false on the last page
func (s Snapshot) CanNext() bool {
	return s.Meta.CurrentPage < s.Meta.LastPage
}

// Rows formats Data with Schema
func (s Snapshot) Rows(opts columns.Options) [][]string {
	return s.Schema.Rows(s.Data, opts)
}

// View is one live list page
type View struct {
	def  Definition
	deps Deps
	log  *zap.SugaredLogger

	debouncer *debounce.Debouncer

	mu        sync.Mutex
	base      context.Context
	query     query.State
	data      []resource.Record
	meta      resource.Meta
	loading   bool
	loaded    bool
	err       error
	decision  guard.Decision
	seq       uint64
	cancel    context.CancelFunc
	listeners map[int]func(Snapshot)
	nextID    int
}

// New creates a view. Nothing is fetched until Load.
func New(def Definition, deps Deps) *View {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	v := &View{
		def:       def,
		deps:      deps,
		log:       logger.OrNop(deps.Log).With(logger.FieldView, def.Name),
		base:      context.Background(),
		query:     def.InitialQuery(deps.PerPage),
		data:      []resource.Record{},
		listeners: make(map[int]func(Snapshot)),
	}
	v.debouncer = debounce.New(deps.Debounce, v.searchSettled)
	// the initial term is what the first Load fetches
	v.debouncer.Trigger(v.query.Search)
	return v
}

// Definition returns the view's definition
func (v *View) Definition() Definition {
	return v.def
}

// Subscribe registers fn for every completed load, including debounced
// search loads that run in the background
func (v *View) Subscribe(fn func(Snapshot)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.listeners, id)
	}
}

// Snapshot returns the current state
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *View) snapshotLocked() Snapshot {
	data := make([]resource.Record, len(v.data))
	copy(data, v.data)

	schema := v.def.Columns
	if len(schema) == 0 {
		schema = columns.Derive(data, v.def.Exclude...)
	}

	return Snapshot{
		Name:     v.def.Name,
		Query:    v.query,
		Data:     data,
		Meta:     v.meta,
		Loading:  v.loading,
		Loaded:   v.loaded,
		Err:      v.err,
		Message:  errors.UserMessage(v.err),
		Seq:      v.seq,
		Decision: v.decision,
		Schema:   schema,
	}
}

// Query returns the query the next load will use
func (v *View) Query() query.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// SetQuery replaces the query without fetching; used to apply command
// line flags before the first Load. A pending search is dropped.
func (v *View) SetQuery(q query.State) {
	if q.PerPage <= 0 {
		q.PerPage = v.Query().PerPage
	}
	v.debouncer.Trigger(q.Search)
	v.debouncer.Cancel()
	v.mu.Lock()
	v.query = q
	v.mu.Unlock()
}

// Load fetches the current query. ctx also becomes the parent of
// background search loads.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	v.base = ctx
	q := v.query
	v.mu.Unlock()
	return v.load(ctx, q)
}

// NextPage loads the following page; a no-op on the last page
func (v *View) NextPage(ctx context.Context) error {
	s := v.Snapshot()
	if !s.CanNext() {
		return nil
	}
	return v.GoTo(ctx, s.Meta.CurrentPage+1)
}

// PrevPage loads the previous page; a no-op on the first page
func (v *View) PrevPage(ctx context.Context) error {
	s := v.Snapshot()
	if !s.CanPrev() {
		return nil
	}
	return v.GoTo(ctx, s.Meta.CurrentPage-1)
}

// GoTo loads page n, clamped to the known page range
func (v *View) GoTo(ctx context.Context, n int) error {
	v.mu.Lock()
	if v.loaded && v.meta.LastPage > 0 && n > v.meta.LastPage {
		n = v.meta.LastPage
	}
	v.query = v.query.WithPage(n)
	q := v.query
	v.mu.Unlock()
	return v.load(ctx, q)
}

// SortBy sorts on field, toggling direction when it is already the sort
func (v *View) SortBy(ctx context.Context, field string) error {
	v.mu.Lock()
	v.query = v.query.WithSort(field)
	q := v.query
	v.mu.Unlock()
	return v.load(ctx, q)
}

// FilterStatus filters by status; "" clears the filter
func (v *View) FilterStatus(ctx context.Context, status string) error {
	if !v.def.AllowsStatus(status) {
		return errors.WithHintf(
			errors.NewInvalidRequestError("view %s has no status %q", v.def.Name, status),
			"available: %v", v.def.StatusFilters)
	}
	v.mu.Lock()
	v.query = v.query.WithStatus(status)
	q := v.query
	v.mu.Unlock()
	return v.load(ctx, q)
}

// Search records a keystroke. The fetch happens once input has been quiet
// for the debounce period; Subscribe to see its result.
func (v *View) Search(term string) {
	v.debouncer.Trigger(term)
}

// SearchNow applies term immediately, skipping the debounce
func (v *View) SearchNow(ctx context.Context, term string) error {
	v.debouncer.Trigger(term)
	v.debouncer.Cancel()
	v.mu.Lock()
	v.query = v.query.WithSearch(term)
	q := v.query
	v.mu.Unlock()
	return v.load(ctx, q)
}

func (v *View) searchSettled(term string) {
	v.mu.Lock()
	v.query = v.query.WithSearch(term)
	q := v.query
	ctx := v.base
	v.mu.Unlock()

	if err := v.load(ctx, q); err != nil && !errors.Is(err, ErrSuperseded) {
		v.log.Debugw("search load failed", logger.FieldQuery, term, logger.FieldError, err)
	}
}

// Apply runs the named transition on record id and reloads on success
func (v *View) Apply(ctx context.Context, id, transition, reason string) error {
	t, ok := v.def.Transition(transition)
	if !ok {
		return errors.WithHintf(
			errors.NewInvalidRequestError("view %s has no action %q", v.def.Name, transition),
			"available: %v", v.def.TransitionNames())
	}
	if v.deps.Dispatcher == nil {
		return errors.New("view has no action dispatcher")
	}

	state := v.currentSession(ctx)
	if d := guard.Protected(state, v.def.Route, v.def.Role); !d.Render {
		return &RedirectError{Decision: d}
	}

	err := v.deps.Dispatcher.Dispatch(ctx, state.Session.Token, t,
		action.Request{ID: id, Reason: reason}, v.Load)
	if errors.IsUnauthorized(err) {
		v.logout(ctx)
	}
	return err
}

// InFlight reports whether transition on id is being submitted
func (v *View) InFlight(id, transition string) bool {
	t, ok := v.def.Transition(transition)
	if !ok || v.deps.Dispatcher == nil {
		return false
	}
	return v.deps.Dispatcher.InFlight(action.Request{ID: id, Status: t.Status}.Key())
}

// Close cancels pending search and any load in flight
func (v *View) Close() {
	v.debouncer.Stop()
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.mu.Unlock()
}

func (v *View) currentSession(ctx context.Context) session.State {
	state := v.deps.Session.Current()
	if state.Checking {
		state = v.deps.Session.Refresh(ctx)
	}
	return state
}

func (v *View) load(ctx context.Context, q query.State) error {
	state := v.currentSession(ctx)
	decision := guard.Protected(state, v.def.Route, v.def.Role)

	v.mu.Lock()
	v.seq++
	seq := v.seq
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.decision = decision
	if !decision.Render {
		err := &RedirectError{Decision: decision}
		v.failLocked(q, err)
		snap := v.snapshotLocked()
		listeners := v.listenersLocked()
		v.mu.Unlock()
		v.publish(listeners, snap)
		return err
	}
	reqCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.loading = true
	v.mu.Unlock()

	log := v.log.With(logger.FieldSeq, seq, logger.FieldPage, q.Page)
	start := time.Now()
	env, err := v.deps.Fetcher.Fetch(reqCtx, v.def.Endpoint, state.Session.Token, q)
	cancel()

	v.mu.Lock()
	if seq != v.seq {
		v.mu.Unlock()
		log.Debugw("dropping superseded response")
		return ErrSuperseded
	}
	v.cancel = nil
	v.loading = false
	v.loaded = true
	if err != nil {
		v.failLocked(q, err)
	} else {
		v.data = env.Data
		v.meta = env.Meta
		v.err = nil
	}
	snap := v.snapshotLocked()
	listeners := v.listenersLocked()
	v.mu.Unlock()

	if err != nil {
		log.Infow("load failed", logger.FieldError, err)
		if errors.IsUnauthorized(err) {
			v.logout(ctx)
		}
	} else {
		log.Debugw("loaded",
			logger.FieldTotal, env.Meta.Total,
			logger.FieldDurationMS, time.Since(start).Milliseconds())
	}

	v.publish(listeners, snap)
	return err
}

// failLocked clears the rows so a failed load never shows the previous page
func (v *View) failLocked(q query.State, err error) {
	v.loading = false
	v.err = err
	v.data = []resource.Record{}
	v.meta = resource.Meta{CurrentPage: q.Page, PerPage: q.PerPage, LastPage: q.Page}
}

func (v *View) logout(ctx context.Context) {
	if err := v.deps.Session.Logout(ctx); err != nil {
		v.log.Warnw("logout after 401 failed", logger.FieldError, err)
	}
	v.deps.Notifier.Error("Your session has expired. Please log in again.")
}

func (v *View) listenersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(v.listeners))
	for _, fn := range v.listeners {
		out = append(out, fn)
	}
	return out
}

func (v *View) publish(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}
