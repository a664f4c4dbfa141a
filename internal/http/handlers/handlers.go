// Package handlers exposes the community API over HTTP.
//
// Handlers are transport-thin: they bind and validate input, resolve the
// caller, delegate to the services, and translate results (including
// conditional responses and idempotent replays) into HTTP responses.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/search"
	"github.com/tbourn/medic-community-backend/internal/services"
	"github.com/tbourn/medic-community-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// RoomService lists rooms with access decisions and gates room messages.
type RoomService interface {
	ListForUser(ctx context.Context, userID string) ([]services.RoomView, error)
	ListMessages(ctx context.Context, userID, roomID string, page, pageSize int) ([]domain.RoomMessage, int64, error)
	MessagesStats(ctx context.Context, userID, roomID string) (int64, *time.Time, error)
	PostMessage(ctx context.Context, userID, roomID, content string) (*domain.RoomMessage, error)
}

// DirectMessageService covers private conversations and the unread badge.
type DirectMessageService interface {
	Send(ctx context.Context, senderID, receiverID, content string) (*domain.PrivateMessage, error)
	FetchConversation(ctx context.Context, conversationID, currentUserID string) ([]services.DisplayMessage, error)
	Open(ctx context.Context, viewerID, peerID string) (*services.ConversationView, error)
	Inbox(ctx context.Context, viewerID string) ([]services.ConversationSummary, error)
	UnreadCount(ctx context.Context, viewerID string) (int64, error)
	ConversationStats(ctx context.Context, conversationID, viewerID string) (int64, int64, *time.Time, error)
}

// IdempotencyStore replays and records private sends by Idempotency-Key.
type IdempotencyStore interface {
	ReplayPrivate(ctx context.Context, userID, scope, key string) (*domain.PrivateMessage, bool)
	Remember(ctx context.Context, userID, scope, key, messageID string) error
}

// ProfileService manages member profiles.
type ProfileService interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	UpsertSelf(ctx context.Context, userID, fullName, branch string) (*domain.UserProfile, error)
	AdminUpdate(ctx context.Context, actorID, targetID string, role *string, blocked *bool) (*domain.UserProfile, error)
}

// ReferenceService serves drug sheets and emergency algorithms.
type ReferenceService interface {
	List(ctx context.Context, kind domain.ReferenceKind) ([]domain.ReferenceItem, error)
	Search(ctx context.Context, query string, k int) ([]search.Result, error)
	Upsert(ctx context.Context, actorID string, item domain.ReferenceItem) (*domain.ReferenceItem, error)
}

// UnreadStream pushes badge updates. Optional.
type UnreadStream interface {
	Subscribe(ctx context.Context, userID string) (<-chan int64, func() error, error)
}

//
// Handler wiring
//

// Deps bundles the services the handlers depend on.
type Deps struct {
	Rooms       RoomService
	DMs         DirectMessageService
	Idempotency IdempotencyStore
	Profiles    ProfileService
	Reference   ReferenceService
	Stream      UnreadStream
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	roomSvc RoomService
	dmSvc   DirectMessageService
	idem    IdempotencyStore
	profSvc ProfileService
	refSvc  ReferenceService
	stream  UnreadStream
}

// New constructs and returns a Handlers instance bound to the given services.
func New(d Deps) *Handlers {
	return &Handlers{
		roomSvc: d.Rooms,
		dmSvc:   d.DMs,
		idem:    d.Idempotency,
		profSvc: d.Profiles,
		refSvc:  d.Reference,
		stream:  d.Stream,
	}
}

// userID returns the caller set by the auth middleware, or "" for an
// anonymous request. Services reject "" where identity is required.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPageSize = 50
		maxPageSize     = 100
	)
	return utils.ClampPage(c.Query("page"), c.Query("page_size"), defaultPageSize, maxPageSize)
}

// etagMatches sets the weak ETag and reports whether the client's copy is
// current.
func etagMatches(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	inm := c.GetHeader("If-None-Match")
	return inm != "" && inm == etag
}
