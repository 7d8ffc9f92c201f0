package dispatch

import "errors"

var (
	// ErrCapabilityUnavailable is returned when no input injector is attached.
	// The caller should surface it as status text and retry on the next gesture.
	ErrCapabilityUnavailable = errors.New("dispatch: input injection unavailable")

	// ErrCooldownActive is returned when another action was accepted inside
	// the cooldown window.
	ErrCooldownActive = errors.New("dispatch: cooldown active")

	// ErrBusy is returned when the worker queue is full.
	ErrBusy = errors.New("dispatch: worker busy")

	// ErrStopped is returned after the worker has shut down.
	ErrStopped = errors.New("dispatch: stopped")

	// ErrEmptyAction is returned for the zero action.
	ErrEmptyAction = errors.New("dispatch: empty action")
)
