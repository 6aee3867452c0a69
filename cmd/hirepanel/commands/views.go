package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hirepanel/display"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/guard"
	"github.com/teranos/hirepanel/session"
	"github.com/teranos/hirepanel/view"
)

// ViewsCmd lists the views the session may open
var ViewsCmd = &cobra.Command{
	Use:   "views",
	Short: "List available views",
	Long: `List the views available to the logged-in role, with their row
actions and status filters. --all lists every role's views.`,
	RunE: runViews,
}

// DashboardCmd is the landing page for the session role
var DashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the dashboard for your role",
	RunE:  runDashboard,
}

func init() {
	ViewsCmd.Flags().Bool("all", false, "List views of every role")
}

type viewInfo struct {
	Name     string       `json:"name"`
	Title    string       `json:"title"`
	Role     session.Role `json:"role,omitempty"`
	Route    string       `json:"route"`
	Endpoint string       `json:"endpoint"`
	Actions  []string     `json:"actions,omitempty"`
	Statuses []string     `json:"statuses,omitempty"`
}

func newViewInfo(d view.Definition) viewInfo {
	return viewInfo{
		Name:     d.Name,
		Title:    d.Title,
		Role:     d.Role,
		Route:    d.Route,
		Endpoint: d.Endpoint,
		Actions:  d.TransitionNames(),
		Statuses: d.StatusFilters,
	}
}

func runViews(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	var defs []view.Definition
	if all, _ := cmd.Flags().GetBool("all"); all {
		defs = env.Catalog.All()
	} else {
		state := env.Session.Current()
		if !state.LoggedIn {
			return errors.WithHint(errors.Wrap(errors.ErrUnauthorized, "not logged in"),
				"run `hirepanel login`, or `hirepanel views --all`")
		}
		defs = env.Catalog.ForRole(state.Role)
	}

	infos := make([]viewInfo, len(defs))
	for i, d := range defs {
		infos[i] = newViewInfo(d)
	}
	if env.JSON {
		return display.OutputJSON(infos)
	}

	rows := make([][]string, len(infos))
	for i, in := range infos {
		rows[i] = []string{in.Name, string(in.Role), in.Title, strings.Join(in.Actions, ", "), strings.Join(in.Statuses, ", ")}
	}
	table, err := display.Table([]string{"View", "Role", "Title", "Actions", "Statuses"}, rows)
	if err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	fmt.Fprint(os.Stdout, table)
	return nil
}

type dashboardOutput struct {
	Route string     `json:"route"`
	User  string     `json:"user"`
	Views []viewInfo `json:"views"`
}

func runDashboard(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	state := env.Session.Current()
	route := guard.DashboardFor(state.Role)
	if d := guard.Protected(state, route, state.Role); !d.Render {
		return errors.WithHint(&view.RedirectError{Decision: d}, "run `hirepanel login`")
	}

	defs := env.Catalog.ForRole(state.Role)
	out := dashboardOutput{Route: route, User: state.Session.User.DisplayName()}
	for _, d := range defs {
		out.Views = append(out.Views, newViewInfo(d))
	}
	if env.JSON {
		return display.OutputJSON(out)
	}

	pterm.DefaultHeader.Println(fmt.Sprintf("%s dashboard", roleTitle(state.Role)))
	fmt.Printf("Welcome, %s (%s)\n\n", out.User, route)

	items := make([]pterm.BulletListItem, 0, len(defs))
	for _, d := range defs {
		text := fmt.Sprintf("%s  %s", pterm.Bold.Sprint(d.Name), d.Title)
		if d.Description != "" {
			text += pterm.Gray(" - " + d.Description)
		}
		items = append(items, pterm.BulletListItem{Level: 0, Text: text})
	}
	if err := pterm.DefaultBulletList.WithItems(items).Render(); err != nil {
		return errors.Wrap(err, "failed to render dashboard")
	}
	fmt.Println()
	fmt.Println(pterm.Gray("Open a view with `hirepanel ls <view>` or `hirepanel browse <view>`."))
	return nil
}

func roleTitle(role session.Role) string {
	switch role {
	case session.RoleStaff:
		return "Internal team"
	case session.RoleSuperadmin:
		return "Superadmin"
	case session.RoleRecruiter:
		return "Recruiter"
	}
	return "Candidate"
}
