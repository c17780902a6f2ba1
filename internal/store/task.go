package store

import (
	"context"
	"errors"
)

// userMessager is implemented by errors that carry a display message.
type userMessager interface {
	UserMessage() string
}

// Message extracts the display message stored in a container's Error:
// the error's user message when it has one, else fallback, else the
// error text.
func Message(err error, fallback string) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}

// Task performs a remote call and returns the event describing its success.
// A nil event settles the call without changing data.
type Task func(ctx context.Context) (Event, error)

// Run dispatches Started, executes task and then dispatches either the
// task's event or Failed. A failed task never touches items or selection.
// The task error is returned unchanged.
func Run[S any](ctx context.Context, st *Store[S], op Op, fallback string, task Task) error {
	st.Dispatch(Started{Op: op})
	ev, err := task(ctx)
	if err != nil {
		st.Dispatch(Failed{Op: op, Message: Message(err, fallback)})
		return err
	}
	if ev == nil {
		ev = Settled{Op: op}
	}
	st.Dispatch(ev)
	return nil
}
