package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/hirepanel/display"
	"github.com/teranos/hirepanel/errors"
)

// ActCmd applies a row action
var ActCmd = &cobra.Command{
	Use:   "act <view> <id> <action>",
	Short: "Apply a row action (approve, decline, withdraw, ...)",
	Long: `Apply a status transition to one record of a view.

Declining, rejecting and withdrawing need --reason (at most 1000
characters). Run 'hirepanel views' to see the actions of each view.

Examples:
  hirepanel act pending-recruiters 42 approve
  hirepanel act pending-recruiters 42 decline --reason "Incomplete company profile"
  hirepanel act my-offers 7 withdraw --reason "Position filled"`,
	Args: cobra.ExactArgs(3),
	RunE: runAct,
}

func init() {
	ActCmd.Flags().StringP("reason", "r", "", "Reason sent with the status change")
}

type actOutput struct {
	View   string `json:"view"`
	ID     string `json:"id"`
	Action string `json:"action"`
	Status string `json:"status"`
}

func runAct(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	v, err := env.View(args[0])
	if err != nil {
		return err
	}
	defer v.Close()

	id, name := args[1], args[2]
	reason, _ := cmd.Flags().GetString("reason")

	// Apply refetches the list; the page itself is not printed here
	if err := v.Apply(commandContext(cmd), id, name, reason); err != nil {
		err = withLoginHint(explainValidation(err))
		if dispatchNotified(err) {
			err = errors.Mark(err, ErrReported)
		}
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		t, _ := v.Definition().Transition(name)
		return display.OutputJSON(actOutput{View: args[0], ID: id, Action: t.Name, Status: t.Status})
	}
	return nil
}
