// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Redis is optional: without it badges recount on demand, reference lists
//     are read from the store, and badge streaming answers 503
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/medic-community-backend/internal/auth"
	"github.com/tbourn/medic-community-backend/internal/badge"
	"github.com/tbourn/medic-community-backend/internal/cache"
	"github.com/tbourn/medic-community-backend/internal/config"
	"github.com/tbourn/medic-community-backend/internal/http/handlers"
	"github.com/tbourn/medic-community-backend/internal/http/middleware"
	"github.com/tbourn/medic-community-backend/internal/repo"
	"github.com/tbourn/medic-community-backend/internal/services"
)

const swaggerSpecRoute = "/docs/swagger.json"

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. rdb may be nil.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Authenticate (never rejects anonymous callers)
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS, security headers, compression
func RegisterRoutes(r *gin.Engine, db *gorm.DB, rdb *redis.Client, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// Dependency injection: services ← repo/db/redis
	store := repo.Store{}
	countUnread := func(ctx context.Context, userID string) (int64, error) {
		return repo.CountUnread(ctx, db, userID)
	}

	var (
		refresher services.BadgeRefresher = badge.Nop{Count: countUnread}
		stream    handlers.UnreadStream
		refCache  services.JSONCache
	)
	if rdb != nil {
		b := badge.NewRedis(rdb, countUnread, cfg.Redis.UnreadChannel, 0)
		refresher, stream = b, b
		refCache = cache.NewRedis(rdb, "medic:", cfg.Redis.ReferenceTTL)
	}

	roomSvc := services.NewRoomService(db, store, store, cfg.MessageMaxRunes)
	dmSvc := services.NewDirectMessageService(db, store, store, refresher, cfg.MessageMaxRunes)
	profSvc := services.NewProfileService(db, store)
	refSvc := services.NewReferenceService(db, store, store, refCache)
	idemSvc := services.NewIdempotencyService(db, cfg.IdempotencyTTL)

	h := handlers.New(handlers.Deps{
		Rooms:       roomSvc,
		DMs:         dmSvc,
		Idempotency: idemSvc,
		Profiles:    profSvc,
		Reference:   refSvc,
		Stream:      stream,
	})

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"Authorization", middleware.HeaderUserID},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Resolve the caller
	r.Use(middleware.Authenticate(tokenValidator(cfg.Auth)))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200, Scope: middleware.ConversationScope},
		idemSvc.Seen,
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderUserID, middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	apiBase := cfg.APIBasePath // e.g. "/api/v1"

	// Security headers (HSTS only when enabled and request is HTTPS).
	// Private content is never stored by intermediaries.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
		NoStorePrefixes: []string{
			joinPath(apiBase, "/conversations"),
			joinPath(apiBase, "/me"),
			joinPath(apiBase, "/admin"),
		},
	}))

	// Compress JSON bodies; the badge stream must flush event by event.
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics"}),
		gzip.WithExcludedPathsRegexs([]string{`/stream$`}),
	))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs (swagger.json generated offline, served as a static file)
	if cfg.SwaggerEnabled {
		r.StaticFile(swaggerSpecRoute, cfg.SwaggerSpecPath)
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(swaggerSpecRoute)))
	}

	api := groupWithPrefix(r, apiBase)
	{
		// Public: room list with access decisions, reference content
		api.GET("/rooms", h.ListRooms)
		api.GET("/rooms/:id/messages", h.ListRoomMessages)
		api.GET("/reference", h.ListReference)
		api.GET("/reference/search", h.SearchReference)
	}

	member := api.Group("", middleware.RequireUser())
	{
		// Rooms
		member.POST("/rooms/:id/messages", h.PostRoomMessage)

		// Conversations
		member.GET("/conversations", h.ListConversations)
		member.GET("/conversations/:peer/messages", h.GetConversation)
		member.POST("/conversations/:peer/messages", h.SendPrivateMessage)
		member.POST("/conversations/:peer/open", h.OpenConversation)

		// Profile and badge
		member.GET("/me", h.GetMe)
		member.PUT("/me", h.PutMe)
		member.GET("/me/unread-count", h.UnreadCount)
		member.GET("/me/unread-count/stream", h.StreamUnreadCount)

		// Admin (role checked by the services)
		member.PATCH("/admin/profiles/:id", h.PatchProfile)
		member.PUT("/admin/reference/:id", h.PutReference)
	}
}

// tokenValidator returns nil (development header mode) when no secret is
// configured. It never returns a typed nil.
func tokenValidator(cfg config.AuthConfig) middleware.TokenValidator {
	if cfg.JWTSecret == "" {
		return nil
	}
	return auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
