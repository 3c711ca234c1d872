package errors

import "errors"

var (
	ErrNotFound = errors.New("nudge not found")

	// ErrPairExists is returned when another writer created the pair's
	// nudge first.
	ErrPairExists = errors.New("nudge already exists for pair")

	// ErrNotApplicable means the conditional response matched nothing: the
	// nudge is not pending or the responder is not its recipient.
	ErrNotApplicable = errors.New("nudge response not applicable")
)
