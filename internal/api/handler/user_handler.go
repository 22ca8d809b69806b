package handler

import (
	"net/http"

	"blogapi/internal/api/middleware"
	"blogapi/internal/app/service"
	"blogapi/internal/common"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService *service.UserService
	auth        *middleware.Auth
}

func NewUserHandler(us *service.UserService, auth *middleware.Auth) *UserHandler {
	return &UserHandler{userService: us, auth: auth}
}

type profileUpdateEnvelope struct {
	Message string      `json:"message"`
	User    profileView `json:"user"`
}

type profileView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio"`
}

type adminStatusView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}/posts", h.getUserPosts)

	r.Group(func(authed chi.Router) {
		authed.Use(h.auth.Authenticator)
		authed.Get("/profile", h.getProfile)
		authed.Put("/profile", h.updateProfile)
		authed.Delete("/profile", h.deleteProfile)
		authed.Get("/{id}", h.getUser)

		authed.Group(func(admin chi.Router) {
			admin.Use(middleware.AdminOnly)
			admin.Get("/", h.listUsers)
			admin.Put("/{id}/admin", h.updateAdminStatus)
		})
	})
}

func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.GetProfile(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}

func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProfileRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	user, err := h.userService.UpdateProfile(r.Context(), middleware.IdentityFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profileUpdateEnvelope{
		Message: "Profile updated successfully",
		User:    profileView{ID: user.ID, Username: user.Username, Email: user.Email, Bio: user.Bio},
	})
}

func (h *UserHandler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.DeleteProfile(r.Context(), middleware.IdentityFromContext(r.Context())); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "Profile and associated data deleted successfully"})
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.GetUser(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}

func (h *UserHandler) getUserPosts(w http.ResponseWriter, r *http.Request) {
	page, err := h.userService.GetUserPosts(r.Context(), chi.URLParam(r, "id"), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *UserHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.userService.ListUsers(r.Context(), middleware.IdentityFromContext(r.Context()), service.ListUsersQuery{
		Search: r.URL.Query().Get("search"),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	})
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *UserHandler) updateAdminStatus(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateAdminStatusRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	user, err := h.userService.UpdateAdminStatus(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User admin status updated successfully",
		"user":    adminStatusView{ID: user.ID, Username: user.Username, Email: user.Email, IsAdmin: user.IsAdmin},
	})
}
