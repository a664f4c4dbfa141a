// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, an access logger that scrubs
// personal data from request metadata before it reaches the logs. Members
// are health workers; request lines may carry national id numbers, mobile
// numbers, e-mail addresses, member UUIDs and bearer tokens.
//
// Bodies are never logged. Sensitive headers (Authorization, Cookie,
// Set-Cookie, plus any configured) are masked entirely; every other header
// value, the raw query and unmatched raw paths are pattern-redacted.
//
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Api-Key"},
//	}))
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders names extra headers whose values are replaced with
// "[REDACTED]". Matching is case-insensitive.
type RedactOptions struct {
	MaskHeaders []string
}

type redaction struct {
	re   *regexp.Regexp
	repl string
}

// Order matters: tokens and UUIDs first, then e-mail, then digit runs from
// the most to the least specific. The generic phone pattern is the loosest.
var redactions = []redaction{
	{regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`), "[REDACTED:token]"},
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	// T.C. kimlik numarası: 11 digits, never starting with 0.
	{regexp.MustCompile(`\b[1-9]\d{10}\b`), "[REDACTED:tckn]"},
	// Turkish mobile: optional +90 or 0, then 5xx xxx xx xx.
	{regexp.MustCompile(`(?:\+90[ .-]?|\b0?)5\d{2}[ .-]?\d{3}[ .-]?\d{2}[ .-]?\d{2}\b`), "[REDACTED:phone]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

// redact applies every pattern in order.
func redact(s string) string {
	if s == "" {
		return s
	}
	for _, r := range redactions {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

// RedactingLogger returns a Gin middleware that logs each request with
// sensitive values scrubbed, at INFO, WARN for 4xx (DEBUG for 499), and
// ERROR for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(strings.Join(vv, ", "))
		}

		path := c.FullPath()
		if path == "" {
			path = redact(c.Request.URL.Path)
		}
		lg := attachLogger(c, path, nil)

		c.Next()

		status := c.Writer.Status()
		lg.WithLevel(accessLevel(status, false)).
			Bool("authenticated", UserID(c) != "").
			Str("query", redact(c.Request.URL.RawQuery)).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
