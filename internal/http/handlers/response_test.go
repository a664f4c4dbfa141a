package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/medic-community-backend/internal/services"
)

func envelopeRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	lg := zerolog.New(buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-1")
		c.Set("logger", &lg)
		c.Next()
	})
	return r
}

func Test_fail_Envelope(t *testing.T) {
	cases := []struct {
		status  int
		code    string
		logsErr bool
	}{
		{http.StatusInternalServerError, "internal_error", true},
		{http.StatusBadGateway, ErrCodeProfilesUnavailable, true},
		{http.StatusNotFound, ErrCodeNotFound, false},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			var buf bytes.Buffer
			r := envelopeRouter(&buf)
			r.GET("/x", func(c *gin.Context) { Fail(c, tc.status, tc.code, "nope") })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			if w.Code != tc.status {
				t.Fatalf("status=%d", w.Code)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er != (ErrorResponse{RequestID: "rid-1", Code: tc.code, Message: "nope"}) {
				t.Fatalf("unexpected body: %+v", er)
			}
			if logged := strings.Contains(buf.String(), `"level":"error"`); logged != tc.logsErr {
				t.Fatalf("error logged=%v, want %v: %s", logged, tc.logsErr, buf.String())
			}
		})
	}
}

func Test_ok(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { ok(c, http.StatusCreated, gin.H{"id": "m1"}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusCreated || strings.TrimSpace(w.Body.String()) != `{"id":"m1"}` {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func Test_failErr_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrContentTooLong, http.StatusBadRequest, ErrCodeValidation},
		{services.ErrUnauthenticated, http.StatusUnauthorized, ErrCodeUnauthorized},
		{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
		{services.ErrRoomAccessDenied, http.StatusForbidden, ErrCodeRoomAccessDenied},
		{fmt.Errorf("open: %w", services.ErrNotParticipant), http.StatusForbidden, ErrCodeNotParticipant},
		{services.ErrProfileNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrRoomNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrProfilesUnavailable, http.StatusBadGateway, ErrCodeProfilesUnavailable},
		{errors.New("db down"), http.StatusInternalServerError, ErrCodeListFailed},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { failErr(c, tc.err, ErrCodeListFailed) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			if w.Code != tc.status {
				t.Fatalf("status=%d want %d", w.Code, tc.status)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code != tc.code {
				t.Fatalf("code=%q want %q", er.Code, tc.code)
			}
		})
	}
}

func Test_failErr_StaleIsQuiet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/open", func(c *gin.Context) { failErr(c, services.ErrStaleRequest, ErrCodeUpdateFailed) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	if w.Code != StatusClientClosedRequest {
		t.Fatalf("status=%d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", w.Body.String())
	}
	if strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("stale request must not log an error: %s", buf.String())
	}
}
