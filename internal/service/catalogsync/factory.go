package catalogsync

import (
	"context"
	"strings"
)

type actionFunc func(context.Context, Event) error

type actionFactory struct {
	byChange map[string]actionFunc
}

func newActionFactory(onAvailable, onRemoved actionFunc) *actionFactory {
	return &actionFactory{
		byChange: map[string]actionFunc{
			"created":   onAvailable,
			"updated":   onAvailable,
			"deleted":   onRemoved,
			"withdrawn": onRemoved,
		},
	}
}

func (f *actionFactory) get(change string) (actionFunc, bool) {
	change = strings.ToLower(strings.TrimSpace(change))
	fn, ok := f.byChange[change]
	return fn, ok
}
