package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/hirepanel/cmd/hirepanel/commands"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/logger"
)

var rootCmd = &cobra.Command{
	Use:   "hirepanel",
	Short: "hirepanel - recruiting platform admin console",
	Long: `hirepanel - admin console for the recruiting platform API.

Every list in the web dashboards (candidates, recruiters, job offers,
applications, contact inquiries) is available as a paginated, searchable,
sortable view. Row actions such as approving a recruiter or withdrawing an
offer are sent through the same API the dashboards use.

Available commands:
  login     - Log in and store the session token
  logout    - Clear the stored session
  whoami    - Show the current session
  dashboard - Show the views available to your role
  ls        - List one page of a view
  act       - Apply a row action (approve, decline, withdraw, ...)
  browse    - Page through a view interactively
  prefs     - Read and write stored UI preferences
  am        - Manage hirepanel configuration ("I am")

Examples:
  hirepanel login --email admin@example.com
  hirepanel ls pending-recruiters --sort created_at --desc
  hirepanel act pending-recruiters 42 decline --reason "Incomplete company profile"
  hirepanel browse all-candidates`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(verbosity, jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Output results as JSON")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Write logs as JSON lines to stderr")

	rootCmd.AddCommand(commands.LoginCmd)
	rootCmd.AddCommand(commands.LogoutCmd)
	rootCmd.AddCommand(commands.WhoamiCmd)
	rootCmd.AddCommand(commands.DashboardCmd)
	rootCmd.AddCommand(commands.ViewsCmd)
	rootCmd.AddCommand(commands.LsCmd)
	rootCmd.AddCommand(commands.ActCmd)
	rootCmd.AddCommand(commands.BrowseCmd)
	rootCmd.AddCommand(commands.PrefsCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !commands.Reported(err) {
			fmt.Fprintln(os.Stderr, "Error:", errors.UserMessage(err))
		}
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		logger.Debugw("command failed", logger.FieldError, fmt.Sprintf("%+v", err))
		os.Exit(1)
	}
}
