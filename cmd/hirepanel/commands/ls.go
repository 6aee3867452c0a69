package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/hirepanel/display"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/query"
)

// LsCmd lists one page of a view
var LsCmd = &cobra.Command{
	Use:   "ls [view]",
	Short: "List one page of a view",
	Long: `List one page of a view as a table.

Examples:
  hirepanel ls all-candidates
  hirepanel ls all-candidates --search ada --page 2
  hirepanel ls pending-recruiters --sort created_at --desc
  hirepanel ls all-offers --status open --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func init() {
	LsCmd.Flags().Int("page", 1, "Page number")
	LsCmd.Flags().StringP("search", "s", "", "Search term")
	LsCmd.Flags().String("sort", "", "Sort field")
	LsCmd.Flags().Bool("desc", false, "Sort descending")
	LsCmd.Flags().String("status", "", "Status filter")
}

func runLs(cmd *cobra.Command, args []string) error {
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

	def := v.Definition()
	q, err := queryFromFlags(cmd, v.Query())
	if err != nil {
		return err
	}
	if !def.AllowsStatus(q.Status) {
		return errors.WithHintf(
			errors.NewInvalidRequestError("view %s has no status %q", def.Name, q.Status),
			"available: %v", def.StatusFilters)
	}
	v.SetQuery(q)

	loadErr := v.Load(commandContext(cmd))
	snap := v.Snapshot()

	if env.JSON {
		if err := display.OutputJSON(newPageOutput(snap)); err != nil {
			return err
		}
		return withLoginHint(loadErr)
	}
	if loadErr != nil && !snap.Loaded {
		// the guard refused before anything was fetched
		return withLoginHint(loadErr)
	}
	if err := renderPage(cmd.OutOrStdout(), def, snap, env.ColumnOptions()); err != nil {
		return err
	}
	return withLoginHint(loadErr)
}

// queryFromFlags applies --page, --search, --sort, --desc and --status on
// top of the view's initial query
func queryFromFlags(cmd *cobra.Command, q query.State) (query.State, error) {
	flags := cmd.Flags()
	if flags.Changed("search") {
		s, _ := flags.GetString("search")
		q = q.WithSearch(s)
	}
	if flags.Changed("status") {
		s, _ := flags.GetString("status")
		q = q.WithStatus(s)
	}
	if flags.Changed("sort") || flags.Changed("desc") {
		field, _ := flags.GetString("sort")
		if field == "" {
			field = q.SortBy
		}
		if field == "" {
			return q, errors.NewInvalidRequestError("--desc needs a sort field")
		}
		dir := query.Asc
		if desc, _ := flags.GetBool("desc"); desc {
			dir = query.Desc
		}
		q = q.WithSortDirection(field, dir)
	}
	if flags.Changed("page") {
		page, _ := flags.GetInt("page")
		q = q.WithPage(page)
	}
	return q, nil
}
