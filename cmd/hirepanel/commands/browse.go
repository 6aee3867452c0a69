package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hirepanel/am"
	"github.com/teranos/hirepanel/columns"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/logger"
	"github.com/teranos/hirepanel/session"
	"github.com/teranos/hirepanel/view"
)

// sessionWatchDebounce coalesces the several writes of one login/logout
const sessionWatchDebounce = 200 * time.Millisecond

const browseHelp = `Open a view and page through it with short commands:

  n, next              next page
  p, prev              previous page
  g <n>                go to page n
  / <term>             search (applied after typing pauses)
  s <field>            sort by field (again to reverse)
  f [status]           filter by status; no status clears
  a <id> <action> [reason...]
                       apply a row action, e.g. a 42 decline "No company"
  r                    reload
  h, help              show this help
  q, quit              leave

Logging out in another terminal ends the session here too.`

// BrowseCmd pages through a view interactively
var BrowseCmd = &cobra.Command{
	Use:   "browse [view]",
	Short: "Page through a view interactively",
	Long:  browseHelp,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBrowse,
}

type browseCommand struct {
	Op   string
	Args []string
}

// parseBrowseLine splits a line with shell quoting rules and checks
// argument counts
func parseBrowseLine(line string) (browseCommand, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return browseCommand{}, nil
	}
	// "/term" without a space is a search too
	if strings.HasPrefix(line, "/") && !strings.HasPrefix(line, "/ ") {
		line = "/ " + line[1:]
	}

	words, err := shellquote.Split(line)
	if err != nil {
		return browseCommand{}, errors.Wrap(err, "could not parse input")
	}
	op, rest := strings.ToLower(words[0]), words[1:]

	switch op {
	case "n", "next":
		return browseCommand{Op: "next"}, nil
	case "p", "prev":
		return browseCommand{Op: "prev"}, nil
	case "r", "reload":
		return browseCommand{Op: "reload"}, nil
	case "q", "quit", "exit":
		return browseCommand{Op: "quit"}, nil
	case "h", "help", "?":
		return browseCommand{Op: "help"}, nil
	case "g", "goto":
		if len(rest) != 1 {
			return browseCommand{}, errors.NewInvalidRequestError("usage: g <page>")
		}
		if _, err := strconv.Atoi(rest[0]); err != nil {
			return browseCommand{}, errors.NewInvalidRequestError("page must be a number, got %q", rest[0])
		}
		return browseCommand{Op: "goto", Args: rest}, nil
	case "/":
		return browseCommand{Op: "search", Args: []string{strings.Join(rest, " ")}}, nil
	case "s", "sort":
		if len(rest) != 1 {
			return browseCommand{}, errors.NewInvalidRequestError("usage: s <field>")
		}
		return browseCommand{Op: "sort", Args: rest}, nil
	case "f", "filter":
		if len(rest) > 1 {
			return browseCommand{}, errors.NewInvalidRequestError("usage: f [status]")
		}
		return browseCommand{Op: "filter", Args: rest}, nil
	case "a", "act":
		if len(rest) < 2 {
			return browseCommand{}, errors.NewInvalidRequestError("usage: a <id> <action> [reason]")
		}
		reason := strings.Join(rest[2:], " ")
		return browseCommand{Op: "act", Args: []string{rest[0], rest[1], reason}}, nil
	}
	return browseCommand{}, errors.WithHint(
		errors.NewInvalidRequestError("unknown command %q", words[0]), "type h for help")
}

// browser serialises terminal output between the prompt loop and
// background loads
type browser struct {
	env *Env
	v   *view.View
	out io.Writer

	mu   sync.Mutex
	opts columns.Options
}

// reconfigure picks up display.timezone and display.currency edits
func (b *browser) reconfigure(cfg *am.Config) error {
	b.mu.Lock()
	b.opts = columns.Options{Location: cfg.Location(), Currency: cfg.GetCurrency()}
	b.mu.Unlock()
	return nil
}

func (b *browser) render(snap view.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !snap.Loaded && snap.Err == nil {
		return
	}
	if err := renderPage(b.out, b.v.Definition(), snap, b.opts); err != nil {
		b.env.Log.Debugw("render failed", logger.FieldError, err)
	}
}

func (b *browser) run(ctx context.Context, c browseCommand) (quit bool, err error) {
	switch c.Op {
	case "":
	case "quit":
		return true, nil
	case "help":
		b.mu.Lock()
		fmt.Fprintln(b.out, browseHelp)
		b.mu.Unlock()
	case "next":
		if !b.v.Snapshot().CanNext() {
			return false, errors.NewInvalidRequestError("already on the last page")
		}
		err = b.v.NextPage(ctx)
	case "prev":
		if !b.v.Snapshot().CanPrev() {
			return false, errors.NewInvalidRequestError("already on the first page")
		}
		err = b.v.PrevPage(ctx)
	case "reload":
		err = b.v.Load(ctx)
	case "goto":
		n, _ := strconv.Atoi(c.Args[0])
		err = b.v.GoTo(ctx, n)
	case "search":
		b.v.Search(c.Args[0])
	case "sort":
		err = b.v.SortBy(ctx, c.Args[0])
	case "filter":
		status := ""
		if len(c.Args) == 1 {
			status = c.Args[0]
		}
		err = b.v.FilterStatus(ctx, status)
	case "act":
		err = explainValidation(b.v.Apply(ctx, c.Args[0], c.Args[1], c.Args[2]))
	}
	if errors.Is(err, view.ErrSuperseded) {
		err = nil
	}
	return false, err
}

func runBrowse(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	name, err := env.viewName(cmd, args)
	if err != nil {
		return err
	}
	v, err := env.View(name)
	if err != nil {
		return err
	}
	defer v.Close()

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	watcher, err := session.NewWatcher(env.Session, env.Store.Path(), sessionWatchDebounce, env.Log.Named("session-watch"))
	if err != nil {
		env.Log.Warnw("cross-terminal logout detection unavailable", logger.FieldError, err)
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	ended := make(chan struct{})
	var endOnce sync.Once
	unsubscribeSession := env.Session.Subscribe(func(st session.State) {
		if !st.LoggedIn && !st.Checking {
			endOnce.Do(func() { close(ended) })
		}
	})
	defer unsubscribeSession()

	b := &browser{env: env, v: v, out: cmd.OutOrStdout(), opts: env.ColumnOptions()}
	defer v.Subscribe(b.render)()

	if path := am.ActiveConfigFile(); path != "" {
		if cw, err := am.NewConfigWatcher(path, env.Log.Named("config-watch")); err == nil {
			cw.OnReload(b.reconfigure)
			cw.Start()
			defer cw.Stop()
		} else {
			env.Log.Debugw("config watch unavailable", logger.FieldError, err)
		}
	}

	if err := v.Load(ctx); err != nil && !v.Snapshot().Loaded {
		return withLoginHint(err)
	}

	done := make(chan struct{})
	defer close(done)
	lines := scanLines(cmd.InOrStdin(), done)

	prompt := fmt.Sprintf("%s> ", v.Definition().Name)
	for {
		b.mu.Lock()
		fmt.Fprint(b.out, pterm.Cyan(prompt))
		b.mu.Unlock()

		select {
		case <-ended:
			env.Notifier.Error("Session ended. Please log in again.")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			c, err := parseBrowseLine(line)
			if err != nil {
				env.Notifier.Error(errors.UserMessage(err))
				continue
			}
			quit, err := b.run(ctx, c)
			if quit {
				return nil
			}
			if err != nil {
				if !(c.Op == "act" && dispatchNotified(err)) {
					env.Notifier.Error(errors.UserMessage(err))
				}
				for _, hint := range errors.GetAllHints(err) {
					env.Notifier.Info(hint)
				}
			}
		}
	}
}

// scanLines feeds lines from r until r ends or done is closed
func scanLines(r io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case <-done:
				return
			default:
			}
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}
