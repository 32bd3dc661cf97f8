// Package cli implements matchctl, the operator and client tool of the match
// service.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"service-courier-match/internal/agent"
	"service-courier-match/internal/domain"
	"service-courier-match/internal/service/match"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// Admin is the coordinator surface used by operators.
type Admin interface {
	Get(ctx context.Context, matchID string) (domain.MatchRecord, error)
	FindByOrder(ctx context.Context, orderID, partyID string) (domain.MatchRecord, error)
	Cancel(ctx context.Context, matchID, reason string) (match.Result, error)
	ExpireSweep(ctx context.Context) (int, error)
}

// Watcher opens a watch on one order.
type Watcher interface {
	Watch(ctx context.Context, orderID string) (*agent.Handle, error)
}

// Deps opens the backends lazily so that --help works without them.
type Deps struct {
	// OpenAdmin returns the coordinator and a release func.
	OpenAdmin func(ctx context.Context) (Admin, func(), error)
	// NewWatcher builds an agent that reports to p.
	NewWatcher func(opts *WatchOptions, p agent.Prompter) (Watcher, error)
	// In feeds interactive commands to watch.
	In io.Reader
}

// NewRootCommand creates the root command of matchctl.
func NewRootCommand(deps Deps) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "matchctl",
		Short: "matchctl - inspect and drive courier matches",
		Long:  "Operator and client tool for the courier match service: show, cancel and sweep matches, or watch an order and answer its prompts.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewShowCommand(opts, deps))
	cmd.AddCommand(NewCancelCommand(opts, deps))
	cmd.AddCommand(NewSweepCommand(opts, deps))
	cmd.AddCommand(NewWatchCommand(opts, deps))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func openAdmin(ctx context.Context, deps Deps) (Admin, func(), error) {
	if deps.OpenAdmin == nil {
		return nil, nil, NewExitError(ExitCommandError, "admin backend is not configured")
	}
	a, release, err := deps.OpenAdmin(ctx)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open match store", err)
	}
	if release == nil {
		release = func() {}
	}
	return a, release, nil
}
