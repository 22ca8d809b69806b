package handler

import (
	"net/http"

	"blogapi/internal/api/middleware"
	"blogapi/internal/app/service"
	"blogapi/internal/common"

	"github.com/go-chi/chi/v5"
)

type SearchHandler struct {
	searchService *service.SearchService
	auth          *middleware.Auth
}

func NewSearchHandler(ss *service.SearchService, auth *middleware.Auth) *SearchHandler {
	return &SearchHandler{searchService: ss, auth: auth}
}

func (h *SearchHandler) RegisterRoutes(r chi.Router) {
	r.Get("/posts", h.searchPosts)
	r.With(h.auth.Authenticator).Get("/users", h.searchUsers)
}

func (h *SearchHandler) searchPosts(w http.ResponseWriter, r *http.Request) {
	result, err := h.searchService.SearchPosts(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *SearchHandler) searchUsers(w http.ResponseWriter, r *http.Request) {
	result, err := h.searchService.SearchUsers(r.Context(), middleware.IdentityFromContext(r.Context()), r.URL.Query().Get("query"))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}
