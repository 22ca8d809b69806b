package handler

import (
	"net/http"

	"blogapi/internal/api/middleware"
	"blogapi/internal/app/service"
	"blogapi/internal/common"
	"blogapi/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type CommentHandler struct {
	commentService *service.CommentService
	auth           *middleware.Auth
}

func NewCommentHandler(cs *service.CommentService, auth *middleware.Auth) *CommentHandler {
	return &CommentHandler{commentService: cs, auth: auth}
}

type commentEnvelope struct {
	Message string         `json:"message"`
	Comment *model.Comment `json:"comment"`
}

func (h *CommentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{postId}", h.listComments)

	r.Group(func(authed chi.Router) {
		authed.Use(h.auth.Authenticator)
		authed.Post("/{postId}", h.createComment)
		authed.Put("/{id}", h.updateComment)
		authed.Delete("/{id}", h.deleteComment)
		authed.Put("/{id}/like", h.likeComment)
		authed.Put("/{id}/unlike", h.unlikeComment)
	})
}

func (h *CommentHandler) createComment(w http.ResponseWriter, r *http.Request) {
	var req service.CommentRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	comment, err := h.commentService.Create(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "postId"), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, commentEnvelope{Message: "Comment added successfully", Comment: comment})
}

func (h *CommentHandler) listComments(w http.ResponseWriter, r *http.Request) {
	page, err := h.commentService.List(r.Context(), chi.URLParam(r, "postId"), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *CommentHandler) updateComment(w http.ResponseWriter, r *http.Request) {
	var req service.CommentRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	comment, err := h.commentService.Update(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, commentEnvelope{Message: "Comment updated successfully", Comment: comment})
}

func (h *CommentHandler) deleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.commentService.Delete(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "Comment deleted successfully"})
}

func (h *CommentHandler) likeComment(w http.ResponseWriter, r *http.Request) {
	likes, err := h.commentService.Like(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, likesEnvelope{Message: "Comment liked successfully", Likes: likes})
}

func (h *CommentHandler) unlikeComment(w http.ResponseWriter, r *http.Request) {
	likes, err := h.commentService.Unlike(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, likesEnvelope{Message: "Comment unliked successfully", Likes: likes})
}
