package services

import "errors"

// Sentinel errors returned by the ladder services. Handlers map these to
// HTTP status codes with errors.Is.
var (
	// ErrBusy: a player is already locked into an interaction, a report
	// already exists for the match, or the caller repeats an action that
	// only the other participant may take.
	ErrBusy = errors.New("busy")

	// ErrInvalidState: the interaction presented no longer matches the
	// coordination state (stale invite, no pending report, no open rematch
	// offer, already-consumed transition).
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound: no such match or player.
	ErrNotFound = errors.New("not found")

	// ErrForbidden: the caller is not a participant of the interaction.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation: the request names a winner outside the match, an
	// unknown handle, or an otherwise malformed claim.
	ErrValidation = errors.New("validation failed")

	// ErrResourceBusy: the rating rows could not be locked within the
	// configured timeout; nothing was committed and the caller may retry.
	ErrResourceBusy = errors.New("resource busy")
)
