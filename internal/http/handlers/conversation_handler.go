// Conversation HTTP handlers.
//
// This file exposes the private messaging endpoints:
//   - GET  /conversations                  (inbox, newest activity first)
//   - GET  /conversations/{peer}/messages  (fetch without side effects, ETag)
//   - POST /conversations/{peer}/messages  (send, Idempotency-Key aware)
//   - POST /conversations/{peer}/open      (fetch, then mark read)
//   - GET  /me/unread-count                (badge value)
//   - GET  /me/unread-count/stream         (badge updates as server-sent events)
//
// A conversation is always addressed by peer; the canonical conversation id
// is derived from the caller and the peer.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous send with
// the same key exists for (caller, conversation), the handler returns the
// recorded message with 200 and sets `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/http/middleware"
	"github.com/tbourn/medic-community-backend/internal/services"
)

// InboxResponse lists the caller's conversations.
type InboxResponse struct {
	Conversations []services.ConversationSummary `json:"conversations"`
}

// ConversationResponse is a conversation as displayed to the caller.
type ConversationResponse struct {
	ConversationID string                    `json:"conversation_id"`
	Messages       []services.DisplayMessage `json:"messages"`
}

// UnreadCountResponse carries the unread badge value.
type UnreadCountResponse struct {
	Unread int64 `json:"unread" example:"3"`
}

// conversationOf resolves the caller and the canonical conversation id with
// peer. It aborts with 401 when the caller is anonymous.
func conversationOf(c *gin.Context) (uid, peer, convID string, okay bool) {
	uid = userID(c)
	if uid == "" {
		failErr(c, services.ErrUnauthenticated, ErrCodeUnauthorized)
		return "", "", "", false
	}
	peer = strings.TrimSpace(c.Param("peer"))
	if peer == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "peer required")
		return "", "", "", false
	}
	return uid, peer, domain.ConversationID(uid, peer), true
}

// ListConversations godoc
// @ID          listConversations
// @Summary     Inbox
// @Description One entry per conversation the caller takes part in, with the last message and the unread count.
// @Tags        Conversations
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token"
// @Success     200  {object}  handlers.InboxResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	items, err := h.dmSvc.Inbox(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, InboxResponse{Conversations: items})
}

// GetConversation godoc
// @ID          getConversation
// @Summary     Fetch a conversation
// @Description Returns every message with the peer, oldest first, with sender display info. Does not mark anything read.
// @Tags        Conversations
// @Produce     json
// @Param       Authorization  header  string  true   "Bearer token"
// @Param       peer           path    string  true   "Peer user ID"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ConversationResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     502  {object}  handlers.ErrorResponse  "Sender profiles unavailable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{peer}/messages [get]
func (h *Handlers) GetConversation(c *gin.Context) {
	ctx := c.Request.Context()
	uid, _, convID, okay := conversationOf(c)
	if !okay {
		return
	}

	count, unread, latest, err := h.dmSvc.ConversationStats(ctx, convID, uid)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	if etagMatches(c, fmt.Sprintf(`W/"conv:%s:%d:%d:%d"`, convID, count, unread, ts)) {
		c.Status(http.StatusNotModified)
		return
	}

	msgs, err := h.dmSvc.FetchConversation(ctx, convID, uid)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ConversationResponse{ConversationID: convID, Messages: msgs})
}

// SendPrivateMessage godoc
// @ID          sendPrivateMessage
// @Summary     Send a private message
// @Description Sends content to the peer. Supports idempotency via the Idempotency-Key header (same key, same result).
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Param       Authorization    header  string  true   "Bearer token"
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       peer             path    string  true   "Receiver user ID"
// @Param       body             body    handlers.PostMessageRequest  true  "Message payload"
// @Success     201  {object}  domain.PrivateMessage  "Sent"
// @Success     200  {object}  domain.PrivateMessage  "Replayed"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Receiver not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{peer}/messages [post]
func (h *Handlers) SendPrivateMessage(c *gin.Context) {
	ctx := c.Request.Context()
	uid, peer, convID, okay := conversationOf(c)
	if !okay {
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.idem != nil {
		if prev, found := h.idem.ReplayPrivate(ctx, uid, convID, idemKey); found {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusOK, prev)
			return
		}
	}

	m, err := h.dmSvc.Send(ctx, uid, peer, req.Content)
	if err != nil {
		failErr(c, err, ErrCodeCreateFailed)
		return
	}

	if idemKey != "" && h.idem != nil {
		if err := h.idem.Remember(ctx, uid, convID, idemKey, m.ID); err != nil {
			lg := middleware.LoggerFrom(c)
			lg.Warn().Err(err).Msg("idempotency record not stored")
		}
	}
	ok(c, http.StatusCreated, m)
}

// OpenConversation godoc
// @ID          openConversation
// @Summary     Open a conversation
// @Description Fetches the conversation and then marks the caller's incoming messages read. A newer open by the same caller supersedes this one (499).
// @Tags        Conversations
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       peer           path    string  true  "Peer user ID"
// @Success     200  {object}  services.ConversationView
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     499  {string}  string  "Superseded by a newer open"
// @Failure     502  {object}  handlers.ErrorResponse  "Sender profiles unavailable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{peer}/open [post]
func (h *Handlers) OpenConversation(c *gin.Context) {
	uid, peer, _, okay := conversationOf(c)
	if !okay {
		return
	}
	view, err := h.dmSvc.Open(c.Request.Context(), uid, peer)
	if err != nil {
		failErr(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, view)
}

// UnreadCount godoc
// @ID          unreadCount
// @Summary     Unread badge
// @Tags        Conversations
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token"
// @Success     200  {object}  handlers.UnreadCountResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /me/unread-count [get]
func (h *Handlers) UnreadCount(c *gin.Context) {
	n, err := h.dmSvc.UnreadCount(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, UnreadCountResponse{Unread: n})
}

// StreamUnreadCount godoc
// @ID          streamUnreadCount
// @Summary     Unread badge updates
// @Description Server-sent events: one `unread` event with the current value, then one per change. Requires Redis.
// @Tags        Conversations
// @Produce     text/event-stream
// @Param       Authorization  header  string  true  "Bearer token"
// @Success     200  {object}  handlers.UnreadCountResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     503  {object}  handlers.ErrorResponse  "Streaming unavailable"
// @Router      /me/unread-count/stream [get]
func (h *Handlers) StreamUnreadCount(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	if uid == "" {
		failErr(c, services.ErrUnauthenticated, ErrCodeUnauthorized)
		return
	}
	if h.stream == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeStreamUnavailable, "badge streaming is disabled")
		return
	}
	updates, stop, err := h.stream.Subscribe(ctx, uid)
	if err != nil {
		lg := middleware.LoggerFrom(c)
		lg.Warn().Err(err).Msg("badge subscribe failed")
		fail(c, http.StatusServiceUnavailable, ErrCodeStreamUnavailable, "badge streaming is unavailable")
		return
	}
	defer func() { _ = stop() }()

	current, err := h.dmSvc.UnreadCount(ctx, uid)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.SSEvent("unread", UnreadCountResponse{Unread: current})
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case n, open := <-updates:
			if !open {
				return false
			}
			c.SSEvent("unread", UnreadCountResponse{Unread: n})
			return true
		}
	})
}
