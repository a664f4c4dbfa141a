// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them. Generic
// codes mirror HTTP status semantics; domain codes carry what the status
// alone cannot (a denied room versus a forbidden admin action, a superseded
// screen load).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "room_access_denied",
//	  "message": "room access denied"
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeValidation          = "validation_failed"
	ErrCodeRoomAccessDenied    = "room_access_denied"
	ErrCodeNotParticipant      = "not_participant"
	ErrCodeStaleRequest        = "stale_request"
	ErrCodeProfilesUnavailable = "profiles_unavailable"
	ErrCodeCreateFailed        = "create_failed"
	ErrCodeListFailed          = "list_failed"
	ErrCodeUpdateFailed        = "update_failed"
	ErrCodeStreamUnavailable   = "stream_unavailable"
	ErrCodeMethodNotAllowed    = "method_not_allowed"
)
