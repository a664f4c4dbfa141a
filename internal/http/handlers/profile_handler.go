// Profile HTTP handlers.
//
//   - GET   /me                    (caller's profile)
//   - PUT   /me                    (create or update name and branch)
//   - PATCH /admin/profiles/{id}   (admin: role and blocked flag)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UpdateMeRequest is the self-service profile payload. Role cannot be set here.
type UpdateMeRequest struct {
	FullName string `json:"full_name" example:"Ayşe Yılmaz"`
	Branch   string `json:"branch"    example:"Paramedik"`
}

// AdminProfilePatch changes moderation fields. Omitted fields are kept.
type AdminProfilePatch struct {
	Role      *string `json:"role,omitempty"       example:"moderator"`
	IsBlocked *bool   `json:"is_blocked,omitempty" example:"false"`
}

// GetMe godoc
// @ID          getMe
// @Summary     Caller's profile
// @Tags        Profiles
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token"
// @Success     200  {object}  domain.UserProfile
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "No profile yet"
// @Router      /me [get]
func (h *Handlers) GetMe(c *gin.Context) {
	p, err := h.profSvc.Get(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, p)
}

// PutMe godoc
// @ID          putMe
// @Summary     Create or update the caller's profile
// @Description Sets full name and branch. New profiles get the user role.
// @Tags        Profiles
// @Accept      json
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       body           body    handlers.UpdateMeRequest  true  "Profile fields"
// @Success     200  {object}  domain.UserProfile
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Router      /me [put]
func (h *Handlers) PutMe(c *gin.Context) {
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.profSvc.UpsertSelf(c.Request.Context(), userID(c), req.FullName, req.Branch)
	if err != nil {
		failErr(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, p)
}

// PatchProfile godoc
// @ID          patchProfile
// @Summary     Moderate a profile
// @Description Admin only. Changes role and/or the blocked flag.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id             path    string  true  "Target user ID"
// @Param       body           body    handlers.AdminProfilePatch  true  "Fields to change"
// @Success     200  {object}  domain.UserProfile
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     403  {object}  handlers.ErrorResponse  "Not an admin"
// @Failure     404  {object}  handlers.ErrorResponse  "Profile not found"
// @Router      /admin/profiles/{id} [patch]
func (h *Handlers) PatchProfile(c *gin.Context) {
	var req AdminProfilePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.profSvc.AdminUpdate(c.Request.Context(), userID(c), c.Param("id"), req.Role, req.IsBlocked)
	if err != nil {
		failErr(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, p)
}
