// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints:
// the error envelope, the fail/ok helpers, and failErr, which maps service
// sentinel errors onto HTTP statuses and codes in one place.
//
// Conventions:
//   - All error responses return an ErrorResponse with a stable `code`.
//   - `fail()` logs 5xx responses with the request-scoped logger.
//   - Superseded screen loads answer 499 and are never logged as errors.
//
// Example error response:
//
//	HTTP/1.1 403 Forbidden
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "room_access_denied",
//	  "message": "room access denied"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/medic-community-backend/internal/http/middleware"
	"github.com/tbourn/medic-community-backend/internal/services"
)

// StatusClientClosedRequest is returned when a newer load from the same
// member superseded the request, or the client went away.
const StatusClientClosedRequest = 499

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// fail aborts with the error envelope. 5xx responses are logged with the
// request-scoped logger; client errors are left to the access log.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

// Fail is fail for callers outside the package (NoRoute, NoMethod).
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// errorMap is checked in order with errors.Is; the first match wins.
var errorMap = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrValidation, http.StatusBadRequest, ErrCodeValidation},
	{services.ErrUnauthenticated, http.StatusUnauthorized, ErrCodeUnauthorized},
	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{services.ErrRoomAccessDenied, http.StatusForbidden, ErrCodeRoomAccessDenied},
	{services.ErrNotParticipant, http.StatusForbidden, ErrCodeNotParticipant},
	{services.ErrProfileNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrRoomNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrProfilesUnavailable, http.StatusBadGateway, ErrCodeProfilesUnavailable},
}

// failErr translates a service error. Anything unmapped is a 500 labelled
// with fallbackCode. A superseded load answers 499 with no body.
func failErr(c *gin.Context, err error, fallbackCode string) {
	if errors.Is(err, services.ErrStaleRequest) {
		middleware.LoggerFrom(c).Debug().Msg("stale request discarded")
		c.AbortWithStatus(StatusClientClosedRequest)
		return
	}
	for _, m := range errorMap {
		if errors.Is(err, m.err) {
			fail(c, m.status, m.code, err.Error())
			return
		}
	}
	fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
