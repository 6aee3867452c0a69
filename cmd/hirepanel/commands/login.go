package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/teranos/hirepanel/auth"
	"github.com/teranos/hirepanel/display"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/guard"
	"github.com/teranos/hirepanel/session"
)

// PasswordEnv supplies the password non-interactively
const PasswordEnv = "HIREPANEL_PASSWORD"

// LoginCmd exchanges credentials for a session token
var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the recruiting API",
	Long: `Log in with email and password. The token and user profile returned by
the API are stored locally and shared by every hirepanel process.

The password is read from --password, then $HIREPANEL_PASSWORD, then
prompted for without echo.`,
	RunE: runLogin,
}

// LogoutCmd clears the session
var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear the stored session",
	RunE:  runLogout,
}

// WhoamiCmd shows the current session
var WhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE:  runWhoami,
}

func init() {
	LoginCmd.Flags().String("email", "", "Account email")
	LoginCmd.Flags().String("password", "", "Account password (prefer the prompt or $"+PasswordEnv+")")
	LoginCmd.Flags().Bool("force", false, "Log in again even when a session exists")

	WhoamiCmd.Flags().Bool("remote", false, "Fetch the profile from the API instead of local storage")
}

func runLogin(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	ctx := commandContext(cmd)

	force, _ := cmd.Flags().GetBool("force")
	if d := guard.PublicOnly(env.Session.Current()); d.Redirected() && !force {
		u := env.Session.Current().Session.User
		pterm.Info.Printfln("Already logged in as %s (%s). Use --force to switch accounts.", u.DisplayName(), u.Role)
		return nil
	}

	in := bufio.NewReader(cmd.InOrStdin())
	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		if email, err = readLine(cmd, in, "Email: "); err != nil {
			return err
		}
	}
	password, err := readPassword(cmd, in)
	if err != nil {
		return err
	}

	sess, err := auth.Login(ctx, env.Client, env.Session, auth.Credentials{Email: email, Password: password})
	if err != nil {
		return explainValidation(err)
	}

	if env.JSON {
		return display.OutputJSON(sessionSummary(env.Session.Current()))
	}
	env.Notifier.Success(fmt.Sprintf("Logged in as %s (%s)", sess.User.DisplayName(), sess.User.Role))
	fmt.Printf("Dashboard: %s\n", guard.DashboardFor(sess.User.Role))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if !env.Session.Current().LoggedIn {
		env.Notifier.Info("Not logged in")
		return nil
	}
	if err := auth.Logout(commandContext(cmd), env.Client, env.Session, env.Log); err != nil {
		return err
	}
	env.Notifier.Success("Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	state := env.Session.Current()
	if !state.LoggedIn {
		return errors.WithHint(errors.Wrap(errors.ErrUnauthorized, "not logged in"), "run `hirepanel login`")
	}

	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		u, err := auth.Me(commandContext(cmd), env.Client, state.Session.Token)
		if err != nil {
			if errors.IsUnauthorized(err) {
				_ = env.Session.Logout(commandContext(cmd))
			}
			return withLoginHint(err)
		}
		state.Session.User = u
		state.Role = u.Role
	}

	summary := sessionSummary(state)
	if env.JSON {
		return display.OutputJSON(summary)
	}
	pterm.DefaultSection.Println(summary.Name)
	fmt.Printf("Role:      %s\n", summary.Role)
	if summary.Email != "" {
		fmt.Printf("Email:     %s\n", summary.Email)
	}
	fmt.Printf("Dashboard: %s\n", summary.Dashboard)
	if summary.ExpiresAt != "" {
		fmt.Printf("Expires:   %s\n", summary.ExpiresAt)
	}
	return nil
}

type whoami struct {
	Name      string       `json:"name"`
	Role      session.Role `json:"role"`
	Email     string       `json:"email,omitempty"`
	Dashboard string       `json:"dashboard"`
	ExpiresAt string       `json:"expires_at,omitempty"`
}

func sessionSummary(state session.State) whoami {
	u := state.Session.User
	w := whoami{
		Name:      u.DisplayName(),
		Role:      state.Role,
		Email:     u.ContactEmail,
		Dashboard: guard.DashboardFor(state.Role),
	}
	if w.Email == "" {
		w.Email = u.Email
	}
	if exp, ok := session.TokenExpiry(state.Session.Token); ok {
		w.ExpiresAt = exp.Local().Format("2006-01-02 15:04")
	}
	return w
}

// readLine prompts on stderr and reads one line from in. Callers share one
// reader per command so buffered input survives between prompts.
func readLine(cmd *cobra.Command, in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrap(err, "failed to read input")
	}
	return strings.TrimSpace(line), nil
}

func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	if pw, _ := cmd.Flags().GetString("password"); pw != "" {
		return pw, nil
	}
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if cmd.InOrStdin() != os.Stdin || !term.IsTerminal(fd) {
		return readLine(cmd, in, "Password: ")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", errors.Wrap(err, "failed to read password")
	}
	return string(pw), nil
}
