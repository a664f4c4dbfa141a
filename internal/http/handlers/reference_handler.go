// Reference content HTTP handlers.
//
//   - GET /reference?kind=            (drug sheets or emergency algorithms)
//   - GET /reference/search?q=&k=     (ranked search over both kinds)
//   - PUT /admin/reference/{id}       (admin upsert)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/search"
	"github.com/tbourn/medic-community-backend/internal/utils"
)

const (
	defaultSearchK = 5
	maxSearchK     = 50
)

// ReferenceListResponse lists the items of one kind, ordered by title.
type ReferenceListResponse struct {
	Kind  domain.ReferenceKind   `json:"kind"`
	Items []domain.ReferenceItem `json:"items"`
}

// ReferenceSearchResponse holds ranked hits.
type ReferenceSearchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

// PutReferenceRequest is the admin upsert payload.
type PutReferenceRequest struct {
	Kind  domain.ReferenceKind `json:"kind"  binding:"required" example:"drug"`
	Title string               `json:"title" binding:"required" example:"Adrenalin"`
	Body  string               `json:"body"  example:"Anafilakside 0.5 mg IM."`
}

// ListReference godoc
// @ID          listReference
// @Summary     List reference content
// @Tags        Reference
// @Produce     json
// @Param       kind  query  string  true  "drug or algorithm"  Enums(drug, algorithm)
// @Success     200  {object}  handlers.ReferenceListResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown kind"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reference [get]
func (h *Handlers) ListReference(c *gin.Context) {
	kind := domain.ReferenceKind(strings.ToLower(strings.TrimSpace(c.Query("kind"))))
	items, err := h.refSvc.List(c.Request.Context(), kind)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ReferenceListResponse{Kind: kind, Items: items})
}

// SearchReference godoc
// @ID          searchReference
// @Summary     Search reference content
// @Tags        Reference
// @Produce     json
// @Param       q  query  string  true   "Query"
// @Param       k  query  int     false  "Max results"  minimum(1) maximum(50) default(5)
// @Success     200  {object}  handlers.ReferenceSearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Empty query"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reference/search [get]
func (h *Handlers) SearchReference(c *gin.Context) {
	q := c.Query("q")
	k := utils.AtoiDefault(c.Query("k"), defaultSearchK)
	if k < 1 {
		k = 1
	}
	if k > maxSearchK {
		k = maxSearchK
	}
	hits, err := h.refSvc.Search(c.Request.Context(), q, k)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ReferenceSearchResponse{Query: strings.TrimSpace(q), Results: hits})
}

// PutReference godoc
// @ID          putReference
// @Summary     Create or replace a reference item
// @Description Admin only. Cached lists are invalidated.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id             path    string  true  "Item ID"
// @Param       body           body    handlers.PutReferenceRequest  true  "Item"
// @Success     200  {object}  domain.ReferenceItem
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     403  {object}  handlers.ErrorResponse  "Not an admin"
// @Router      /admin/reference/{id} [put]
func (h *Handlers) PutReference(c *gin.Context) {
	var req PutReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind and title required")
		return
	}
	item, err := h.refSvc.Upsert(c.Request.Context(), userID(c), domain.ReferenceItem{
		ID:    c.Param("id"),
		Kind:  req.Kind,
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		failErr(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, item)
}
