package engine

import (
	"errors"
	"fmt"

	"lifequest/internal/storage"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("concurrent modification")
	ErrStoreFailure     = errors.New("store failure")
)

// StoreError wraps a failure that came back from the document store. It
// matches ErrStoreFailure, and ErrConflict or ErrNotFound when the store said so.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrStoreFailure:
		return true
	case ErrConflict:
		return errors.Is(e.Err, storage.ErrConflict)
	case ErrNotFound:
		return errors.Is(e.Err, storage.ErrNotFound)
	}
	return false
}

// TransitionError is returned for a status change the lifecycle does not allow.
type TransitionError struct {
	From QuestStatus
	To   QuestStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move quest from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidState }

// storeErr wraps err as a StoreError unless it already carries an engine error.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	var te *TransitionError
	switch {
	case errors.As(err, &se), errors.As(err, &te),
		errors.Is(err, ErrNotAuthenticated),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidInput):
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
