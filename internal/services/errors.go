// Package services implements the community features on top of the
// repository layer: branch rooms, private conversations, member profiles, and
// reference content. This file centralizes the service-level error values so
// handlers can map them to HTTP results consistently.
//
// Validation failures all wrap ErrValidation; callers that only need to know
// "was this the caller's fault" can test errors.Is(err, ErrValidation).
package services

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of every input validation error.
var ErrValidation = errors.New("validation failed")

// Validation errors. None of these reach the store.
var (
	// ErrEmptyContent is returned when a message body is empty after trimming.
	ErrEmptyContent = fmt.Errorf("%w: content is empty", ErrValidation)

	// ErrContentTooLong is returned when a message body exceeds the configured
	// rune limit.
	ErrContentTooLong = fmt.Errorf("%w: content too long", ErrValidation)

	// ErrMissingParticipant is returned when the sender or receiver id is blank.
	ErrMissingParticipant = fmt.Errorf("%w: sender and receiver are required", ErrValidation)

	// ErrSelfMessage is returned when sender and receiver are the same member.
	ErrSelfMessage = fmt.Errorf("%w: cannot message yourself", ErrValidation)

	// ErrInvalidRole is returned for a role outside admin/moderator/user.
	ErrInvalidRole = fmt.Errorf("%w: invalid role", ErrValidation)

	// ErrInvalidProfile is returned for oversized profile fields.
	ErrInvalidProfile = fmt.Errorf("%w: invalid profile fields", ErrValidation)

	// ErrNothingToUpdate is returned for an admin patch that changes nothing.
	ErrNothingToUpdate = fmt.Errorf("%w: nothing to update", ErrValidation)

	// ErrInvalidReference is returned for an unknown kind or an empty title.
	ErrInvalidReference = fmt.Errorf("%w: invalid reference item", ErrValidation)

	// ErrEmptyQuery is returned when a search query has no content.
	ErrEmptyQuery = fmt.Errorf("%w: query is empty", ErrValidation)
)

// Lookup, permission and flow errors.
var (
	// ErrUnauthenticated is returned when an operation needs a current member
	// and none was supplied.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrProfileNotFound indicates the referenced member does not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrRoomNotFound indicates the requested room does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomAccessDenied is returned when the access resolver denies the
	// current member entry to a room.
	ErrRoomAccessDenied = errors.New("room access denied")

	// ErrNotParticipant is returned when the current member is not one of the
	// two participants of a conversation.
	ErrNotParticipant = errors.New("not a participant of this conversation")

	// ErrForbidden is returned for admin operations attempted by non-admins.
	ErrForbidden = errors.New("insufficient privileges")

	// ErrProfilesUnavailable is returned when sender profiles could not be
	// loaded for a conversation. Messages are never shown without them.
	ErrProfilesUnavailable = errors.New("sender profiles unavailable")

	// ErrStaleRequest is returned when a newer conversation load from the same
	// member superseded this one. It is not a failure and should not be logged
	// as one.
	ErrStaleRequest = errors.New("stale request")
)
