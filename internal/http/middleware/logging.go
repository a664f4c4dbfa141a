// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file carries the correlation id, the request-scoped logger and panic
// recovery. Both access loggers (Logger and RedactingLogger) stash a zerolog
// logger under the "logger" context key; handlers pick it up with LoggerFrom.
//
// Chain order:
//
//	RequestID -> Logger | RedactingLogger -> Recovery -> Authenticate
package middleware

import (
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	maxLoggedQuery = 2048

	// statusClientClosedRequest marks a conversation load superseded by a
	// newer one from the same caller.
	statusClientClosedRequest = 499
)

// Client ids are echoed into logs and response headers; anything outside
// this alphabet is replaced with a fresh id.
var clientRequestID = regexp.MustCompile(`^[A-Za-z0-9._:\-]{1,128}$`)

// RequestID reuses a well-formed X-Request-ID from the client or mints a
// UUID, then exposes it on the response and under the "requestID" key.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !clientRequestID.MatchString(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation id set by RequestID. Without it the
// response and then the request header are consulted.
func RequestIDFrom(c *gin.Context) string {
	if rid := ctxString(c, requestIDKey); rid != "" {
		return rid
	}
	if rid := c.Writer.Header().Get(requestIDHeader); rid != "" {
		return rid
	}
	return c.GetHeader(requestIDHeader)
}

// Logger is the plain access logger used in development. It records client
// address, user agent and query, which RedactingLogger deliberately omits
// or scrubs.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		lg := attachLogger(c, loggedPath(c), func(ctx zerolog.Context) zerolog.Context {
			return ctx.
				Str("remote_ip", c.ClientIP()).
				Str("user_agent", c.Request.UserAgent()).
				Str("query", clip(c.Request.URL.RawQuery, maxLoggedQuery)).
				Int64("bytes_in", c.Request.ContentLength)
		})

		c.Next()

		status := c.Writer.Status()
		ev := lg.WithLevel(accessLevel(status, len(c.Errors) > 0)).
			Str("user_id", UserID(c)).
			Str("role", ctxString(c, ctxKeyRole)).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size())
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		if status == statusClientClosedRequest {
			ev.Msg("request superseded")
			return
		}
		ev.Msg("request")
	}
}

// attachLogger builds the request-scoped logger from the global one and
// stores it for LoggerFrom. extra may add access-logger specific fields.
func attachLogger(c *gin.Context, path string, extra func(zerolog.Context) zerolog.Context) *zerolog.Logger {
	ctx := log.With().
		Str("request_id", RequestIDFrom(c)).
		Str("method", c.Request.Method).
		Str("path", path)
	if extra != nil {
		ctx = extra(ctx)
	}
	lg := ctx.Logger()
	c.Set(loggerKey, &lg)
	return &lg
}

// loggedPath prefers the route template so member ids in the URL do not
// reach the logs.
func loggedPath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// accessLevel maps an outcome to a log level. A superseded load is routine
// and stays at debug.
func accessLevel(status int, failed bool) zerolog.Level {
	switch {
	case failed, status >= 500:
		return zerolog.ErrorLevel
	case status == statusClientClosedRequest:
		return zerolog.DebugLevel
	case status >= 400:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Recovery turns a panic into the standard 500 envelope. When the handler
// already wrote part of a response only the status is aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			httpPanics.WithLabelValues(routeLabel(c)).Inc()
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or a copy of the global
// logger when no access logger ran.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.Logger
	return &l
}

func ctxString(c *gin.Context, key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// clip cuts s to n bytes and marks the cut. n <= 0 disables clipping.
func clip(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
