package cli

import (
	"github.com/spf13/cobra"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	MatchID string
	OrderID string
	PartyID string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions, deps Deps) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a match record",
		Long: `Show a match record by match id or by one of its order ids.

Examples:
  matchctl show --match 0b6f...
  matchctl show --order F --party bob --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts, deps)
		},
	}

	cmd.Flags().StringVar(&opts.MatchID, "match", "", "match id")
	cmd.Flags().StringVar(&opts.OrderID, "order", "", "order id of either side")
	cmd.Flags().StringVar(&opts.PartyID, "party", "", "only show the match if this party is in it")
	cmd.MarkFlagsMutuallyExclusive("match", "order")
	cmd.MarkFlagsOneRequired("match", "order")

	return cmd
}

func runShow(cmd *cobra.Command, opts *ShowOptions, deps Deps) error {
	admin, release, err := openAdmin(cmd.Context(), deps)
	if err != nil {
		return err
	}
	defer release()

	ctx := cmd.Context()
	if opts.MatchID != "" {
		rec, err := admin.Get(ctx, opts.MatchID)
		if err != nil {
			return refused("show match", err)
		}
		if opts.PartyID != "" && !rec.IsParty(opts.PartyID) {
			return NewExitError(ExitFailure, "party "+opts.PartyID+" is not in match "+rec.ID)
		}
		return printer{format: opts.Format, w: cmd.OutOrStdout()}.print(toMatchView(rec))
	}

	rec, err := admin.FindByOrder(ctx, opts.OrderID, opts.PartyID)
	if err != nil {
		return refused("show match", err)
	}
	return printer{format: opts.Format, w: cmd.OutOrStdout()}.print(toMatchView(rec))
}
