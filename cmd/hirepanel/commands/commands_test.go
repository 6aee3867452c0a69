package commands

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/hirepanel/action"
	"github.com/teranos/hirepanel/am"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/localstore"
	"github.com/teranos/hirepanel/query"
	"github.com/teranos/hirepanel/resource"
	"github.com/teranos/hirepanel/session"
	"github.com/teranos/hirepanel/view"
)

func TestParseBrowseLine(t *testing.T) {
	tests := []struct {
		line string
		want browseCommand
	}{
		{"", browseCommand{}},
		{"n", browseCommand{Op: "next"}},
		{"prev", browseCommand{Op: "prev"}},
		{"g 3", browseCommand{Op: "goto", Args: []string{"3"}}},
		{"/ ada lovelace", browseCommand{Op: "search", Args: []string{"ada lovelace"}}},
		{"/grace", browseCommand{Op: "search", Args: []string{"grace"}}},
		{"/", browseCommand{Op: "search", Args: []string{""}}},
		{"s created_at", browseCommand{Op: "sort", Args: []string{"created_at"}}},
		{"f", browseCommand{Op: "filter"}},
		{"f pending", browseCommand{Op: "filter", Args: []string{"pending"}}},
		{`a 42 decline "Incomplete company profile"`, browseCommand{Op: "act", Args: []string{"42", "decline", "Incomplete company profile"}}},
		{"a 42 approve", browseCommand{Op: "act", Args: []string{"42", "approve", ""}}},
		{"Q", browseCommand{Op: "quit"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseBrowseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBrowseLine_Errors(t *testing.T) {
	for _, line := range []string{"g", "g two", "s", "f a b", "a 42", "launch", `a 1 decline "unterminated`} {
		t.Run(line, func(t *testing.T) {
			_, err := parseBrowseLine(line)
			assert.Error(t, err)
		})
	}
}

func TestPagerLine(t *testing.T) {
	snap := view.Snapshot{
		Query: query.State{Page: 2, PerPage: 25, SortBy: "name", SortDirection: query.Desc, Search: "ada"},
		Meta:  resource.Meta{CurrentPage: 2, PerPage: 25, Total: 60, LastPage: 3, From: 26, To: 50},
	}
	assert.Equal(t, `Page 2 of 3 | showing 26-50 of 60 | sorted by name desc | search "ada" | prev/next`, pagerLine(snap))

	snap.Meta = resource.Meta{CurrentPage: 1, LastPage: 1}
	snap.Query = query.State{Page: 1}
	assert.Equal(t, "Page 1 of 1 | 0 total", pagerLine(snap))
}

func TestQueryFromFlags(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{Use: "ls"}
		c.Flags().Int("page", 1, "")
		c.Flags().StringP("search", "s", "", "")
		c.Flags().String("sort", "", "")
		c.Flags().Bool("desc", false, "")
		c.Flags().String("status", "", "")
		return c
	}
	base := query.New(25).WithSortDirection("created_at", query.Desc)

	c := newCmd()
	require.NoError(t, c.ParseFlags([]string{"--search", "ada", "--page", "2", "--sort", "name"}))
	q, err := queryFromFlags(c, base)
	require.NoError(t, err)
	assert.Equal(t, "page=2&per_page=25&search=ada&sort_by=name&sort_direction=asc", q.Encode())

	c = newCmd()
	require.NoError(t, c.ParseFlags([]string{"--desc"}))
	_, err = queryFromFlags(c, query.New(15))
	assert.Error(t, err, "--desc without any sort field")

	c = newCmd()
	require.NoError(t, c.ParseFlags([]string{"--status", "pending"}))
	q, err = queryFromFlags(c, base.WithPage(4))
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, "pending", q.Status)
}

func TestWriteConfig(t *testing.T) {
	cfg := &am.Config{API: am.APIConfig{BaseURL: "https://api.example.com", TimeoutSeconds: 10}}

	for format, want := range map[string]string{
		"toml": "timeout_seconds = 10",
		"yaml": "base_url: https://api.example.com",
		"json": `"base_url": "https://api.example.com"`,
	} {
		var buf bytes.Buffer
		require.NoError(t, writeConfig(&buf, cfg, format), format)
		assert.Contains(t, buf.String(), want, format)
	}

	assert.Error(t, writeConfig(&bytes.Buffer{}, cfg, "ini"))
}

func TestExplainValidation(t *testing.T) {
	err := explainValidation(&action.ValidationError{
		Message: "Invalid",
		Fields:  map[string][]string{"reason": {"too long"}, "email": {"taken"}},
	})
	hints := errors.GetAllHints(err)
	assert.ElementsMatch(t, []string{"email: taken", "reason: too long"}, hints)
	assert.Equal(t, "Invalid", errors.UserMessage(err))
}

func TestDispatchNotified(t *testing.T) {
	assert.True(t, dispatchNotified(&errors.StatusError{Code: 500}))
	assert.True(t, dispatchNotified(errors.Wrap(&action.ValidationError{}, "x")))
	assert.True(t, dispatchNotified(errors.Mark(errors.New("dial"), errors.ErrTransport)))
	assert.False(t, dispatchNotified(errors.NewInvalidRequestError("a reason is required")))
	assert.False(t, dispatchNotified(action.ErrInFlight))
}

type pagedFetcher struct {
	total int
	calls []query.State
}

func (f *pagedFetcher) Fetch(_ context.Context, _, _ string, q query.State) (*resource.Envelope, error) {
	f.calls = append(f.calls, q)
	env := &resource.Envelope{Data: []resource.Record{}}
	for i := (q.Page-1)*q.PerPage + 1; i <= q.Page*q.PerPage && i <= f.total; i++ {
		env.Data = append(env.Data, resource.Record{"id": i, "name": "row"})
	}
	env.Meta = resource.Meta{CurrentPage: q.Page, PerPage: q.PerPage, Total: f.total, LastPage: resource.LastPage(f.total, q.PerPage)}
	return env, nil
}

func TestBrowser_Run(t *testing.T) {
	ctx := context.Background()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "storage.db"), nil)
	require.NoError(t, err)
	defer store.Close()
	holder := session.NewHolder(store, nil)
	require.NoError(t, holder.Login(ctx, session.Session{Token: "tok", User: session.User{Role: session.RoleStaff}}))

	def := view.Define("people").Endpoint("people").PerPage(10).MustBuild()
	f := &pagedFetcher{total: 25}
	v := view.New(def, view.Deps{Session: holder, Fetcher: f})
	defer v.Close()

	var out bytes.Buffer
	b := &browser{env: &Env{Log: zap.NewNop().Sugar()}, v: v, out: &out}
	defer v.Subscribe(b.render)()
	require.NoError(t, v.Load(ctx))

	run := func(line string) error {
		c, err := parseBrowseLine(line)
		require.NoError(t, err)
		quit, err := b.run(ctx, c)
		assert.False(t, quit)
		return err
	}

	require.NoError(t, run("n"))
	require.NoError(t, run("n"))
	assert.Error(t, run("n"), "already on the last page")
	require.NoError(t, run("g 1"))
	assert.Error(t, run("p"), "already on the first page")
	require.NoError(t, run("s name"))

	pagesSeen := make([]int, len(f.calls))
	for i, q := range f.calls {
		pagesSeen[i] = q.Page
	}
	assert.Equal(t, []int{1, 2, 3, 1, 1}, pagesSeen)
	assert.Equal(t, "name", f.calls[4].SortBy)
	assert.Contains(t, out.String(), "Page 3 of 3")

	quit, err := b.run(ctx, browseCommand{Op: "quit"})
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestLs_RendersPage(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{
			"data": [{"id": 1, "full_name": "Ada Lovelace", "email": "ada@example.com", "status": "active",
			          "created_at": "2024-03-01T09:30:00Z", "skills": ["go", "sql"]}],
			"meta": {"current_page": 1, "per_page": 25, "total": 1}
		}`))
	}))
	defer srv.Close()

	storage := filepath.Join(t.TempDir(), "storage.db")
	t.Setenv("HIREPANEL_API_BASE_URL", srv.URL)
	t.Setenv("HIREPANEL_STORAGE_PATH", storage)
	t.Setenv("HIREPANEL_DISPLAY_TIMEZONE", "UTC")
	am.Reset()
	t.Cleanup(am.Reset)

	store, err := localstore.Open(storage, nil)
	require.NoError(t, err)
	require.NoError(t, session.Write(context.Background(), store, session.Session{
		Token: "tok",
		User:  session.User{Role: session.RoleSuperadmin, FullName: "Root"},
	}))
	require.NoError(t, store.Close())

	var out bytes.Buffer
	LsCmd.SetOut(&out)
	LsCmd.SetArgs([]string{"all-candidates", "--search", "ada"})
	require.NoError(t, LsCmd.Execute())

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "page=1&per_page=25&search=ada&sort_by=created_at&sort_direction=desc", gotQuery)

	text := out.String()
	assert.Contains(t, text, "Ada Lovelace")
	assert.Contains(t, text, "2024-03-01 09:30")
	assert.True(t, strings.Contains(text, "Page 1 of 1"), text)
}

func TestLoginPrompts_SharePipedInput(t *testing.T) {
	t.Setenv(PasswordEnv, "")
	cmd := &cobra.Command{Use: "login"}
	cmd.Flags().String("password", "", "")
	cmd.SetIn(strings.NewReader("ada@example.com\nsecret\n"))
	var prompts bytes.Buffer
	cmd.SetErr(&prompts)

	in := bufio.NewReader(cmd.InOrStdin())
	email, err := readLine(cmd, in, "Email: ")
	require.NoError(t, err)
	password, err := readPassword(cmd, in)
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", email)
	assert.Equal(t, "secret", password)
	assert.Equal(t, "Email: Password: ", prompts.String())
}

func TestScanLines_StopsWhenDone(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	done := make(chan struct{})
	lines := scanLines(pr, done)

	go pw.Write([]byte("n\n"))
	assert.Equal(t, "n", <-lines)

	close(done)
	go pw.Write([]byte("q\n"))
	select {
	case _, ok := <-lines:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("scanner goroutine still running")
	}
}
