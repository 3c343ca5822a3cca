package rsvp

import "errors"

var (
	// ErrNotFound is returned when no published, unexpired invitation
	// matches the requested slug, or an RSVP row does not exist.
	ErrNotFound = errors.New("rsvp: invitation not found")
	// ErrDisabled is returned when the invitation does not accept replies.
	ErrDisabled = errors.New("rsvp: responses disabled")
	// ErrDeadlinePassed is returned when the reply deadline has elapsed.
	ErrDeadlinePassed = errors.New("rsvp: deadline passed")
	// ErrInvalidSubmission is returned when the guest input fails validation.
	ErrInvalidSubmission = errors.New("rsvp: invalid submission")
)
