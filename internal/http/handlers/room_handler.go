// Room HTTP handlers.
//
//   - GET  /rooms                 (every room with the caller's access decision)
//   - GET  /rooms/{id}/messages   (paginated, oldest first, ETag support)
//   - POST /rooms/{id}/messages   (post to a room the caller may enter)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/services"
)

// PostMessageRequest is the JSON payload for posting a message.
type PostMessageRequest struct {
	// Content is trimmed; it must be non-empty and within the size limit.
	Content string `json:"content" binding:"required" example:"Vardiya devri 08:00'de."`
}

// ListRoomsResponse lists rooms in display order.
type ListRoomsResponse struct {
	Rooms []services.RoomView `json:"rooms"`
}

// ListRoomMessagesResponse is a page of room messages.
type ListRoomMessagesResponse struct {
	Messages   []domain.RoomMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

// ListRooms godoc
// @ID          listRooms
// @Summary     List chat rooms
// @Description Returns every room in priority order, each annotated with whether the caller may enter it. Works without authentication.
// @Tags        Rooms
// @Produce     json
// @Param       Authorization  header  string  false  "Bearer token"
// @Success     200  {object}  handlers.ListRoomsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rooms [get]
func (h *Handlers) ListRooms(c *gin.Context) {
	views, err := h.roomSvc.ListForUser(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListRoomsResponse{Rooms: views})
}

// ListRoomMessages godoc
// @ID          listRoomMessages
// @Summary     List messages in a room
// @Description Returns a page of room messages, oldest first. Supports weak ETag via If-None-Match.
// @Tags        Rooms
// @Produce     json
// @Param       id             path    string  true   "Room ID"  example(paramedik)
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(50)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListRoomMessagesResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     403  {object}  handlers.ErrorResponse  "Room access denied"
// @Failure     404  {object}  handlers.ErrorResponse  "Room not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rooms/{id}/messages [get]
func (h *Handlers) ListRoomMessages(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	roomID := c.Param("id")

	count, latest, err := h.roomSvc.MessagesStats(ctx, uid, roomID)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	if etagMatches(c, fmt.Sprintf(`W/"room:%s:%d:%d"`, roomID, count, ts)) {
		c.Status(http.StatusNotModified)
		return
	}

	page, pageSize := clampPagination(c)
	items, total, err := h.roomSvc.ListMessages(ctx, uid, roomID, page, pageSize)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListRoomMessagesResponse{
		Messages:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// PostRoomMessage godoc
// @ID          postRoomMessage
// @Summary     Post a message to a room
// @Tags        Rooms
// @Accept      json
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id             path    string  true  "Room ID"  example(genel)
// @Param       body           body    handlers.PostMessageRequest  true  "Message payload"
// @Success     201  {object}  domain.RoomMessage
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Room access denied"
// @Failure     404  {object}  handlers.ErrorResponse  "Room or profile not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rooms/{id}/messages [post]
func (h *Handlers) PostRoomMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	m, err := h.roomSvc.PostMessage(c.Request.Context(), userID(c), c.Param("id"), req.Content)
	if err != nil {
		failErr(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, m)
}
