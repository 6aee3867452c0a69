package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teranos/hirepanel/display"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/localstore"
)

// preferences are the UI keys users may write; token and user belong to
// the login flow
var preferences = map[string]func(string) error{
	localstore.KeySidebarCollapsed: func(v string) error {
		if _, err := strconv.ParseBool(v); err != nil {
			return errors.NewInvalidRequestError("%s must be true or false", localstore.KeySidebarCollapsed)
		}
		return nil
	},
	localstore.KeyDefaultView: func(string) error { return nil },
}

// PrefsCmd manages stored UI preferences
var PrefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Read and write stored UI preferences",
	Long: `Read and write the UI preferences kept next to the session.

  default_view       view opened by 'ls' and 'browse' when none is named
  sidebar_collapsed  shared with the web dashboard (true/false)`,
}

var prefsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one preference, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPrefsGet,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a preference",
	Args:  cobra.ExactArgs(2),
	RunE:  runPrefsSet,
}

var prefsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a preference",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrefsUnset,
}

func init() {
	PrefsCmd.AddCommand(prefsGetCmd)
	PrefsCmd.AddCommand(prefsSetCmd)
	PrefsCmd.AddCommand(prefsUnsetCmd)
}

func checkPreference(key string) error {
	if _, ok := preferences[key]; !ok {
		names := make([]string, 0, len(preferences))
		for k := range preferences {
			names = append(names, k)
		}
		sort.Strings(names)
		return errors.WithHintf(errors.NewInvalidRequestError("unknown preference %q", key), "known: %v", names)
	}
	return nil
}

func runPrefsGet(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	ctx := commandContext(cmd)

	keys := args
	if len(keys) == 0 {
		for k := range preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	values := make(map[string]string, len(keys))
	for _, k := range keys {
		if err := checkPreference(k); err != nil {
			return err
		}
		v, err := env.Store.Get(ctx, k)
		if errors.Is(err, localstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		values[k] = v
	}

	if env.JSON {
		return display.OutputJSON(values)
	}
	for _, k := range keys {
		v, ok := values[k]
		if !ok {
			v = "(unset)"
		}
		fmt.Printf("%s = %s\n", k, v)
	}
	return nil
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if err := checkPreference(key); err != nil {
		return err
	}
	if err := preferences[key](value); err != nil {
		return err
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if key == localstore.KeyDefaultView {
		// the name must at least exist for some role
		found := false
		for _, d := range env.Catalog.All() {
			if d.Name == value {
				found = true
				break
			}
		}
		if !found {
			return errors.WithHint(errors.Wrapf(errors.ErrNotFound, "view %q", value), "run `hirepanel views --all`")
		}
	}
	if err := env.Store.Set(commandContext(cmd), key, value); err != nil {
		return err
	}
	env.Notifier.Success(fmt.Sprintf("%s = %s", key, value))
	return nil
}

func runPrefsUnset(cmd *cobra.Command, args []string) error {
	if err := checkPreference(args[0]); err != nil {
		return err
	}
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	return env.Store.Remove(commandContext(cmd), args[0])
}

// viewName is the view argument, or the default_view preference
func (e *Env) viewName(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	name, err := e.Store.Get(commandContext(cmd), localstore.KeyDefaultView)
	if err != nil || name == "" {
		return "", errors.WithHint(errors.NewInvalidRequestError("no view named"),
			"pass a view, or set one with `hirepanel prefs set default_view <view>`")
	}
	return name, nil
}
