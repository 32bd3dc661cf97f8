package agent

//go:generate mockgen -source=contracts.go -destination=mocks_test.go -package=agent_test

import (
	"context"

	"service-courier-match/internal/gateway/matchapi"
)

// Gateway sends decisions to the coordinator.
type Gateway interface {
	Decide(ctx context.Context, req matchapi.DecisionRequest) (*matchapi.DecisionReply, error)
}

// Prompter presents matches to the user. Calls come from the watch goroutine
// and must not block.
type Prompter interface {
	// Prompt asks the user to confirm or reject a pending match. It is called
	// once per match.
	Prompt(s State)
	// Resolved reports the terminal state of a match.
	Resolved(s State)
}

type nopPrompter struct{}

func (nopPrompter) Prompt(State)   {}
func (nopPrompter) Resolved(State) {}
