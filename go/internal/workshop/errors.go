package workshop

import "errors"

var (
	// ErrInvalidTransition reports a lifecycle action attempted from a status
	// that does not permit it. No state is mutated.
	ErrInvalidTransition = errors.New("invalid workshop status transition")

	// ErrSequenceExhausted reports an AdvancePhase call past the end of the
	// fixed phase sequence.
	ErrSequenceExhausted = errors.New("phase sequence exhausted")

	// ErrNotOrganizer reports a lifecycle action attempted by a participant
	// without the organizer role.
	ErrNotOrganizer = errors.New("actor is not the workshop organizer")

	// ErrWorkshopNotFound reports an unknown workshop id.
	ErrWorkshopNotFound = errors.New("workshop not found")
)
