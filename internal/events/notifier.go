package events

import (
	"context"
	"errors"
)

// Notifier is a one-way sink for transfer outcomes. A failed Publish never
// affects the ledger; callers only log it.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

type NotifierFunc func(ctx context.Context, event Event) error

func (f NotifierFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Discard drops every event.
var Discard Notifier = NotifierFunc(func(context.Context, Event) error { return nil })

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
