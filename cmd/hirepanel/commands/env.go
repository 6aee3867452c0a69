package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/hirepanel/action"
	"github.com/teranos/hirepanel/am"
	"github.com/teranos/hirepanel/catalog"
	"github.com/teranos/hirepanel/columns"
	"github.com/teranos/hirepanel/display"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/guard"
	"github.com/teranos/hirepanel/localstore"
	"github.com/teranos/hirepanel/logger"
	"github.com/teranos/hirepanel/notify"
	"github.com/teranos/hirepanel/resource"
	"github.com/teranos/hirepanel/session"
	"github.com/teranos/hirepanel/view"
)

// Env is what every API-facing command works with
type Env struct {
	Config     *am.Config
	Log        *zap.SugaredLogger
	Store      *localstore.Store
	Session    *session.Holder
	Client     *resource.Client
	Dispatcher *action.Dispatcher
	Notifier   notify.Notifier
	Catalog    *catalog.Catalog
	JSON       bool
}

func openEnv(cmd *cobra.Command) (*Env, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	log := logger.Logger
	jsonOut := display.ShouldOutputJSON(cmd)

	var notifier notify.Notifier
	if jsonOut {
		notifier = notify.NewJSON(os.Stderr)
	} else {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		notifier = notify.NewCLI(verbosity)
	}

	cat, err := catalog.Load(cfg.Views.Path, log.Named("catalog"))
	if err != nil {
		return nil, err
	}

	client, err := resource.NewClient(resource.ConfigFrom(cfg), log.Named("api"))
	if err != nil {
		return nil, err
	}

	store, err := localstore.Open(cfg.Storage.Path, log.Named("storage"))
	if err != nil {
		return nil, err
	}

	holder := session.NewHolder(store, log.Named("session"))
	holder.Refresh(commandContext(cmd))

	return &Env{
		Config:     cfg,
		Log:        log,
		Store:      store,
		Session:    holder,
		Client:     client,
		Dispatcher: action.NewDispatcher(client, notifier, log.Named("action")),
		Notifier:   notifier,
		Catalog:    cat,
		JSON:       jsonOut,
	}, nil
}

// Close releases local storage
func (e *Env) Close() {
	if err := e.Store.Close(); err != nil {
		e.Log.Debugw("failed to close local storage", logger.FieldError, err)
	}
}

// ColumnOptions carries display.timezone and display.currency
func (e *Env) ColumnOptions() columns.Options {
	return columns.Options{Location: e.Config.Location(), Currency: e.Config.GetCurrency()}
}

// View opens name for the current session role. A view that exists only
// for another role is reported the way the route guard would: as a
// redirect to the session's own dashboard.
func (e *Env) View(name string) (*view.View, error) {
	state := e.Session.Current()
	if !state.LoggedIn {
		return nil, errors.WithHint(&view.RedirectError{Decision: guard.Protected(state, "/"+name, "")},
			"run `hirepanel login`")
	}
	def, err := e.Catalog.Lookup(state.Role, name)
	if err != nil {
		if errors.Is(err, errors.ErrForbidden) {
			return nil, errors.WithHintf(err, "your dashboard is %s; run `hirepanel dashboard`", guard.DashboardFor(state.Role))
		}
		return nil, err
	}
	return view.New(def, view.Deps{
		Session:    e.Session,
		Fetcher:    e.Client,
		Dispatcher: e.Dispatcher,
		Notifier:   e.Notifier,
		Log:        e.Log,
		Debounce:   e.Config.DebounceInterval(),
		PerPage:    e.Config.Views.PerPage,
	}), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
