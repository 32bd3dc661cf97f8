package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"service-courier-match/internal/agent"
	"service-courier-match/internal/gateway/matchapi"
	"service-courier-match/internal/logx"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	APIURL  string
	OrderID string
	PartyID string
	Token   string
	Timeout time.Duration
	// Once exits after the first terminal state.
	Once bool

	logOut io.Writer
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions, deps Deps) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch an order and answer its match prompts",
		Long: `Subscribe to the match events of an order and answer prompts from stdin:

  confirm           accept the current match
  reject [reason]   decline it
  dismiss           hide the prompt; the match stays pending until it expires`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.logOut = cmd.ErrOrStderr()
			return runWatch(cmd, opts, deps)
		},
	}

	cmd.Flags().StringVar(&opts.APIURL, "api", "http://localhost:8080", "match API base url")
	cmd.Flags().StringVar(&opts.OrderID, "order", "", "order id to watch")
	cmd.Flags().StringVar(&opts.PartyID, "party", "", "your party id")
	cmd.Flags().StringVar(&opts.Token, "token", "", "bearer token; sent instead of X-Party-ID")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "per-request timeout")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "exit when the match is resolved")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("party")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions, deps Deps) error {
	newWatcher := deps.NewWatcher
	if newWatcher == nil {
		newWatcher = NewAgentWatcher
	}

	out := &lockedWriter{w: cmd.OutOrStdout()}
	p := &termPrompter{out: out, format: opts.Format}

	w, err := newWatcher(opts, p)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build watcher", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	h, err := w.Watch(ctx, opts.OrderID)
	if err != nil {
		return refused("watch order", err)
	}
	defer h.Close()

	in := deps.In
	if in == nil {
		in = cmd.InOrStdin()
	}
	lines := readLines(ctx, in)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.Done():
			return nil
		case s, ok := <-h.Updates():
			if !ok {
				return nil
			}
			if opts.Verbose {
				p.state(s)
			}
			if opts.Once && s.Phase.Terminal() {
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if done := execLine(ctx, h, line, p, opts.Once); done {
				return nil
			}
		}
	}
}

// execLine runs one interactive command and reports whether watch should end.
func execLine(ctx context.Context, h *agent.Handle, line string, p *termPrompter, once bool) bool {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	var (
		s   agent.State
		err error
	)
	switch strings.ToLower(verb) {
	case "":
		return false
	case "confirm", "y":
		s, err = h.Confirm(ctx)
	case "reject", "n":
		s, err = h.Reject(ctx, strings.TrimSpace(rest))
	case "dismiss", "d":
		h.Dismiss()
		p.printf("prompt dismissed\n")
		return false
	case "quit", "q":
		return true
	default:
		p.printf("unknown command %q (confirm | reject [reason] | dismiss | quit)\n", verb)
		return false
	}
	if err != nil {
		// Другие ошибки агент уже залогировал, запрос можно повторить.
		if agent.Visible(err) {
			p.printf("could not submit your answer, try again: %v\n", err)
		}
		return false
	}
	p.state(s)
	return once && s.Phase.Terminal()
}

func readLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// NewAgentWatcher builds an agent talking to the match API over HTTP and
// websocket.
func NewAgentWatcher(opts *WatchOptions, p agent.Prompter) (Watcher, error) {
	logger := newCLILogger(opts.logOut, opts.Verbose)

	cfg := matchapi.Config{
		BaseURL: opts.APIURL,
		Token:   opts.Token,
		PartyID: opts.PartyID,
		Timeout: opts.Timeout,
	}
	retry := matchapi.RetryConfig{MaxAttempts: 4, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}

	gw, err := matchapi.NewHTTPGateway(cfg, &http.Client{})
	if err != nil {
		return nil, err
	}
	feed, err := matchapi.NewFeed(cfg, retry, logger)
	if err != nil {
		return nil, err
	}
	return agent.New(opts.PartyID, feed, matchapi.NewRetryingGateway(gw, logger, retry), p, logger), nil
}

func newCLILogger(w io.Writer, verbose bool) logx.Logger {
	if w == nil {
		return logx.Nop()
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.WarnLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return logx.NewLogrusAdapter(l)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type stateView struct {
	Phase           string    `json:"phase" yaml:"phase"`
	MatchID         string    `json:"match_id,omitempty" yaml:"match_id,omitempty"`
	OrderID         string    `json:"order_id,omitempty" yaml:"order_id,omitempty"`
	MatchedOrderID  string    `json:"matched_order_id,omitempty" yaml:"matched_order_id,omitempty"`
	ChatID          string    `json:"chat_id,omitempty" yaml:"chat_id,omitempty"`
	Reason          string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Deadline        time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	AlreadyResolved bool      `json:"already_resolved,omitempty" yaml:"already_resolved,omitempty"`
}

func (v stateView) Text() string {
	switch agent.Phase(v.Phase) {
	case agent.PhasePending:
		return fmt.Sprintf("match %s: order %s <-> %s, answer before %s (confirm | reject [reason] | dismiss)",
			v.MatchID, v.OrderID, v.MatchedOrderID, v.Deadline.Format(time.Kitchen))
	case agent.PhaseWaiting:
		return fmt.Sprintf("match %s: confirmed, waiting on counterpart", v.MatchID)
	case agent.PhaseConfirmed:
		return fmt.Sprintf("match %s: confirmed, chat %s", v.MatchID, v.ChatID)
	case agent.PhaseIdle:
		return "no match yet"
	}
	if v.Reason != "" {
		return fmt.Sprintf("match %s: %s (%s)", v.MatchID, v.Phase, v.Reason)
	}
	return fmt.Sprintf("match %s: %s", v.MatchID, v.Phase)
}

func toStateView(s agent.State) stateView {
	v := stateView{
		Phase:           string(s.Phase),
		MatchID:         s.MatchID,
		OrderID:         s.OrderID,
		MatchedOrderID:  s.MatchedOrderID,
		ChatID:          s.ChatID,
		Reason:          s.Reason,
		AlreadyResolved: s.AlreadyResolved,
	}
	if !s.Deadline.IsZero() {
		v.Deadline = s.Deadline.UTC()
	}
	return v
}

// termPrompter prints prompts and resolutions to the terminal.
type termPrompter struct {
	out    io.Writer
	format string
}

func (p *termPrompter) Prompt(s agent.State)   { p.state(s) }
func (p *termPrompter) Resolved(s agent.State) { p.state(s) }

func (p *termPrompter) state(s agent.State) {
	_ = printer{format: p.format, w: p.out}.print(toStateView(s))
}

func (p *termPrompter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}
