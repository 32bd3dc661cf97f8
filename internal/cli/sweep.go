package cli

import (
	"github.com/spf13/cobra"
)

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions, deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue pending matches once",
		Long:  "Run a single expiry sweep: overdue pending matches become expired and unsettled terminal matches are repaired.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, release, err := openAdmin(cmd.Context(), deps)
			if err != nil {
				return err
			}
			defer release()

			n, err := admin.ExpireSweep(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "sweep", err)
			}
			return printer{format: rootOpts.Format, w: cmd.OutOrStdout()}.print(sweepView{Expired: n})
		},
	}
}
