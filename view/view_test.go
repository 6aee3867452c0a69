package view

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/hirepanel/action"
	"github.com/teranos/hirepanel/columns"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/localstore"
	"github.com/teranos/hirepanel/notify"
	"github.com/teranos/hirepanel/query"
	"github.com/teranos/hirepanel/resource"
	"github.com/teranos/hirepanel/session"
)

type memStorage struct {
	mu sync.Mutex
	m  map[string]string
}

func (s *memStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return "", localstore.ErrNotFound
	}
	return v, nil
}

func (s *memStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *memStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func holderAs(t *testing.T, role session.Role) *session.Holder {
	t.Helper()
	h := session.NewHolder(&memStorage{m: map[string]string{}}, zaptest.NewLogger(t).Sugar())
	if role != "" {
		require.NoError(t, h.Login(context.Background(), session.Session{Token: "tok", User: session.User{Role: role}}))
	} else {
		h.Refresh(context.Background())
	}
	return h
}

type fakeFetcher struct {
	mu      sync.Mutex
	queries []query.State
	respond func(ctx context.Context, q query.State) (*resource.Envelope, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, endpoint, token string, q query.State) (*resource.Envelope, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	respond := f.respond
	f.mu.Unlock()
	return respond(ctx, q)
}

func (f *fakeFetcher) calls() []query.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]query.State(nil), f.queries...)
}

// pages serves total rows with per_page from the query
func pages(total int) func(context.Context, query.State) (*resource.Envelope, error) {
	return func(_ context.Context, q query.State) (*resource.Envelope, error) {
		env := &resource.Envelope{Data: []resource.Record{}}
		for i := (q.Page-1)*q.PerPage + 1; i <= q.Page*q.PerPage && i <= total; i++ {
			env.Data = append(env.Data, resource.Record{"id": i, "name": "row"})
		}
		env.Meta = resource.Meta{
			CurrentPage: q.Page,
			PerPage:     q.PerPage,
			Total:       total,
			LastPage:    resource.LastPage(total, q.PerPage),
		}
		return env, nil
	}
}

var candidates = Define("all-candidates").
	Endpoint("superadmin/candidates").
	Route("/superadmin/candidates").
	Role(session.RoleSuperadmin).
	PerPage(25).
	StatusFilters("active", "inactive").
	MustBuild()

func TestLoad_LoggedOutRedirects(t *testing.T) {
	f := &fakeFetcher{respond: pages(10)}
	v := New(candidates, Deps{Session: holderAs(t, ""), Fetcher: f})
	defer v.Close()

	err := v.Load(context.Background())
	var re *RedirectError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "/login", re.Decision.Redirect)
	assert.Equal(t, "/superadmin/candidates", re.Decision.ReturnTo)
	assert.True(t, errors.IsUnauthorized(err))
	assert.Empty(t, f.calls())
	assert.Empty(t, v.Snapshot().Data)
}

func TestLoad_WrongRoleRedirectsToOwnDashboard(t *testing.T) {
	f := &fakeFetcher{respond: pages(10)}
	v := New(candidates, Deps{Session: holderAs(t, session.RoleRecruiter), Fetcher: f})
	defer v.Close()

	err := v.Load(context.Background())
	assert.True(t, errors.Is(err, errors.ErrForbidden))
	assert.Equal(t, "/recruiter/dashboard", v.Snapshot().Decision.Redirect)
	assert.Empty(t, f.calls())
}

// Prev is disabled iff current_page <= 1, next iff current_page >= last_page.
func TestPager(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{respond: pages(60)}
	v := New(candidates, Deps{Session: holderAs(t, session.RoleSuperadmin), Fetcher: f})
	defer v.Close()

	require.NoError(t, v.Load(ctx))
	s := v.Snapshot()
	assert.Equal(t, 1, s.Meta.CurrentPage)
	assert.Equal(t, 3, s.Meta.LastPage)
	assert.False(t, s.CanPrev())
	assert.True(t, s.CanNext())
	assert.Len(t, s.Data, 25)

	require.NoError(t, v.NextPage(ctx))
	s = v.Snapshot()
	assert.True(t, s.CanPrev())
	assert.True(t, s.CanNext())

	require.NoError(t, v.NextPage(ctx))
	s = v.Snapshot()
	assert.Equal(t, 3, s.Meta.CurrentPage)
	assert.True(t, s.CanPrev())
	assert.False(t, s.CanNext())
	assert.Len(t, s.Data, 10)

	require.NoError(t, v.NextPage(ctx))
	assert.Len(t, f.calls(), 3, "next on the last page does not fetch")

	require.NoError(t, v.GoTo(ctx, 99))
	assert.Equal(t, 3, f.calls()[3].Page, "GoTo clamps to last_page")

	require.NoError(t, v.GoTo(ctx, 1))
	require.NoError(t, v.PrevPage(ctx))
	assert.Len(t, f.calls(), 5, "prev on the first page does not fetch")
}

func TestPager_SinglePage(t *testing.T) {
	s := Snapshot{Meta: resource.Meta{CurrentPage: 1, LastPage: 1}}
	assert.False(t, s.CanPrev())
	assert.False(t, s.CanNext())
}

// Page 2 sorted by name asks for page=2&per_page=25&sort_by=name&sort_direction=asc
// and a total of 60 shows 3 pages.
func TestLoad_QueryAndLastPageOverHTTP(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Write([]byte(`{"data":[{"id":26,"name":"Ada"}],"meta":{"current_page":2,"per_page":25,"total":60}}`))
	}))
	defer srv.Close()

	client, err := resource.NewClient(resource.Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	v := New(candidates, Deps{Session: holderAs(t, session.RoleSuperadmin), Fetcher: client})
	defer v.Close()

	require.NoError(t, v.SortBy(ctx, "name"))
	require.NoError(t, v.GoTo(ctx, 2))

	assert.Contains(t, rawQuery, "page=2&per_page=25&sort_by=name&sort_direction=asc")
	assert.Equal(t, 3, v.Snapshot().Meta.LastPage)
}

// A 500 shows the error and an empty list, never the previous page.
func TestLoad_ServerErrorResetsData(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"data":[{"id":1},{"id":2}],"meta":{"current_page":1,"per_page":25,"total":2,"last_page":1}}`))
	}))
	defer srv.Close()

	client, err := resource.NewClient(resource.Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	v := New(candidates, Deps{Session: holderAs(t, session.RoleSuperadmin), Fetcher: client})
	defer v.Close()

	require.NoError(t, v.Load(ctx))
	require.Len(t, v.Snapshot().Data, 2)

	fail.Store(true)
	err = v.Load(ctx)
	require.Error(t, err)

	s := v.Snapshot()
	assert.NotNil(t, s.Data)
	assert.Empty(t, s.Data)
	assert.Equal(t, "Server error. Please try again later.", s.Message)
	assert.False(t, s.CanNext())
	assert.True(t, v.deps.Session.Current().LoggedIn, "a 500 does not log out")
}

func TestLoad_UnauthorizedLogsOut(t *testing.T) {
	f := &fakeFetcher{respond: func(context.Context, query.State) (*resource.Envelope, error) {
		return nil, &errors.StatusError{Code: http.StatusUnauthorized}
	}}
	rec := &notify.Recorder{}
	h := holderAs(t, session.RoleSuperadmin)
	v := New(candidates, Deps{Session: h, Fetcher: f, Notifier: rec})
	defer v.Close()

	err := v.Load(context.Background())
	assert.True(t, errors.IsUnauthorized(err))
	assert.False(t, h.Current().LoggedIn)
	assert.Len(t, rec.Messages(notify.LevelError), 1)
}

// A slow response for an older request is dropped and its request is
// cancelled.
func TestLoad_StaleResponseDiscarded(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	var firstCancelled atomic.Bool

	f := &fakeFetcher{}
	f.respond = func(rctx context.Context, q query.State) (*resource.Envelope, error) {
		if q.Page == 1 {
			close(started)
			<-rctx.Done()
			firstCancelled.Store(true)
			// a server that ignores cancellation still answers
			return pages(60)(rctx, q)
		}
		return pages(60)(rctx, q)
	}

	v := New(candidates, Deps{Session: holderAs(t, session.RoleSuperadmin), Fetcher: f})
	defer v.Close()

	first := make(chan error, 1)
	go func() { first <- v.Load(ctx) }()
	<-started

	require.NoError(t, v.GoTo(ctx, 2))
	err := <-first

	assert.True(t, errors.Is(err, ErrSuperseded))
	assert.True(t, firstCancelled.Load())
	s := v.Snapshot()
	assert.Equal(t, 2, s.Meta.CurrentPage)
	assert.Equal(t, 26, s.Data[0]["id"])
}

// Rapid keystrokes produce exactly one fetch with the final term, on page 1.
func TestSearch_Debounced(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{respond: pages(60)}
	v := New(candidates, Deps{
		Session:  holderAs(t, session.RoleSuperadmin),
		Fetcher:  f,
		Debounce: 40 * time.Millisecond,
	})
	defer v.Close()

	loads := make(chan Snapshot, 4)
	unsubscribe := v.Subscribe(func(s Snapshot) { loads <- s })
	defer unsubscribe()

	require.NoError(t, v.Load(ctx))
	require.NoError(t, v.NextPage(ctx))
	<-loads
	<-loads

	for _, term := range []string{"a", "ad", "ada"} {
		v.Search(term)
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case s := <-loads:
		assert.Equal(t, "ada", s.Query.Search)
		assert.Equal(t, 1, s.Query.Page)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced search never loaded")
	}

	time.Sleep(120 * time.Millisecond)
	calls := f.calls()
	assert.Len(t, calls, 3)
	assert.Equal(t, "ada", calls[2].Search)
}

func TestSearchNow(t *testing.T) {
	f := &fakeFetcher{respond: pages(5)}
	v := New(candidates, Deps{Session: holderAs(t, session.RoleSuperadmin), Fetcher: f, Debounce: time.Hour})
	defer v.Close()

	require.NoError(t, v.SearchNow(context.Background(), "grace"))
	require.Len(t, f.calls(), 1)
	assert.Equal(t, "grace", f.calls()[0].Search)
}

func TestSetQuery_AppliesWithoutFetching(t *testing.T) {
	f := &fakeFetcher{respond: pages(100)}
	v := New(candidates, Deps{Session: holderAs(t, session.RoleSuperadmin), Fetcher: f, Debounce: 20 * time.Millisecond})
	defer v.Close()

	v.SetQuery(query.State{Page: 3, Search: "ada", SortBy: "name", SortDirection: query.Desc})
	assert.Empty(t, f.calls())
	assert.Equal(t, 25, v.Query().PerPage)

	require.NoError(t, v.Load(context.Background()))
	time.Sleep(60 * time.Millisecond)

	calls := f.calls()
	require.Len(t, calls, 1, "the search set through SetQuery must not trigger a debounced load")
	assert.Equal(t, 3, calls[0].Page)
	assert.Equal(t, "ada", calls[0].Search)
	assert.Equal(t, "page=3&per_page=25&search=ada&sort_by=name&sort_direction=desc", calls[0].Encode())
}

func TestFilterStatus(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{respond: pages(5)}
	v := New(candidates, Deps{Session: holderAs(t, session.RoleSuperadmin), Fetcher: f})
	defer v.Close()

	require.NoError(t, v.FilterStatus(ctx, "active"))
	assert.Equal(t, "active", f.calls()[0].Status)

	err := v.FilterStatus(ctx, "archived")
	assert.True(t, errors.IsInvalidRequest(err))
	assert.Len(t, f.calls(), 1)

	require.NoError(t, v.FilterStatus(ctx, ""))
	assert.Empty(t, f.calls()[1].Status)
}

func TestSnapshot_DerivedColumns(t *testing.T) {
	f := &fakeFetcher{respond: func(context.Context, query.State) (*resource.Envelope, error) {
		return &resource.Envelope{
			Data: []resource.Record{
				{"id": 1, "full_name": "Ada"},
				{"id": 2, "full_name": "Grace", "email": "g@example.com"},
			},
			Meta: resource.Meta{CurrentPage: 1, LastPage: 1, PerPage: 25, Total: 2},
		}, nil
	}}
	v := New(candidates, Deps{Session: holderAs(t, session.RoleSuperadmin), Fetcher: f})
	defer v.Close()

	require.NoError(t, v.Load(context.Background()))
	s := v.Snapshot()
	assert.Equal(t, []string{"full_name", "email"}, s.Schema.Fields())
	assert.Equal(t, [][]string{{"Ada", columns.Empty}, {"Grace", "g@example.com"}}, s.Rows(columns.Options{}))
}

func TestApply(t *testing.T) {
	var mutations atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"data":[{"id":7,"status":"pending"}],"meta":{"current_page":1,"per_page":15,"total":1}}`))
			return
		}
		mutations.Add(1)
		w.Write([]byte(`{"success":true,"message":"Recruiter approved"}`))
	}))
	defer srv.Close()

	client, err := resource.NewClient(resource.Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	def := Define("pending-recruiters").
		Endpoint("superadmin/recruiters/pending").
		Role(session.RoleSuperadmin).
		Transition(action.Transition{Name: "approve", Status: "approved", Path: "superadmin/recruiters/{id}/status"}).
		Transition(action.Transition{Name: "decline", Status: "declined", Path: "superadmin/recruiters/{id}/status"}).
		MustBuild()

	rec := &notify.Recorder{}
	f := &countingFetcher{Fetcher: client}
	v := New(def, Deps{
		Session:    holderAs(t, session.RoleSuperadmin),
		Fetcher:    f,
		Dispatcher: action.NewDispatcher(client, rec, nil),
		Notifier:   rec,
	})
	defer v.Close()

	ctx := context.Background()
	require.NoError(t, v.Load(ctx))
	require.NoError(t, v.Apply(ctx, "7", "approve", ""))
	assert.Equal(t, int32(1), mutations.Load())
	assert.Equal(t, int32(2), f.n.Load(), "list reloads after the action")
	assert.Equal(t, []string{"Recruiter approved"}, rec.Messages(notify.LevelSuccess))

	err = v.Apply(ctx, "7", "decline", "")
	assert.True(t, errors.IsInvalidRequest(err))
	assert.Equal(t, int32(1), mutations.Load())

	err = v.Apply(ctx, "7", "promote", "")
	assert.True(t, errors.IsInvalidRequest(err))
	assert.False(t, v.InFlight("7", "approve"))
}

type countingFetcher struct {
	Fetcher
	n atomic.Int32
}

func (c *countingFetcher) Fetch(ctx context.Context, endpoint, token string, q query.State) (*resource.Envelope, error) {
	c.n.Add(1)
	return c.Fetcher.Fetch(ctx, endpoint, token, q)
}
