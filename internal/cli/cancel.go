package cli

import (
	"github.com/spf13/cobra"
)

// CancelOptions holds flags for the cancel command.
type CancelOptions struct {
	*RootOptions
	Reason string
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions, deps Deps) *cobra.Command {
	opts := &CancelOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cancel <match-id>",
		Short: "Cancel a pending match",
		Long: `Cancel a pending match. Both catalog entries are released and the
parties receive a cancelled event. A match that is already terminal is left
unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, release, err := openAdmin(cmd.Context(), deps)
			if err != nil {
				return err
			}
			defer release()

			res, err := admin.Cancel(cmd.Context(), args[0], opts.Reason)
			if err != nil {
				return refused("cancel match", err)
			}
			return printer{format: opts.Format, w: cmd.OutOrStdout()}.print(toResultView(res))
		},
	}

	cmd.Flags().StringVar(&opts.Reason, "reason", "", "note recorded on the resolution")

	return cmd
}
