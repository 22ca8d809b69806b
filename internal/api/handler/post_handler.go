package handler

import (
	"net/http"

	"blogapi/internal/api/middleware"
	"blogapi/internal/app/service"
	"blogapi/internal/common"
	"blogapi/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type PostHandler struct {
	postService *service.PostService
	auth        *middleware.Auth
}

func NewPostHandler(ps *service.PostService, auth *middleware.Auth) *PostHandler {
	return &PostHandler{postService: ps, auth: auth}
}

type postEnvelope struct {
	Message string      `json:"message"`
	Post    *model.Post `json:"post"`
}

type likesEnvelope struct {
	Message string `json:"message"`
	Likes   int    `json:"likes"`
}

func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listPosts)                                      // GET /api/posts
	r.With(h.auth.OptionalAuthenticator).Get("/{id}", h.getPost) // GET /api/posts/{id}

	r.Group(func(authed chi.Router) {
		authed.Use(h.auth.Authenticator)
		authed.Post("/", h.createPost)
		authed.Put("/{id}", h.updatePost)
		authed.Delete("/{id}", h.deletePost)
		authed.Put("/{id}/like", h.likePost)
		authed.Put("/{id}/unlike", h.unlikePost)
	})
}

func (h *PostHandler) createPost(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePostRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	post, err := h.postService.Create(r.Context(), middleware.IdentityFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, postEnvelope{Message: "Post created successfully", Post: post})
}

func (h *PostHandler) listPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.postService.List(r.Context(), service.ListPostsQuery{
		Tag:      q.Get("tag"),
		AuthorID: q.Get("author"),
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *PostHandler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.Get(r.Context(), chi.URLParam(r, "id"), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, post)
}

func (h *PostHandler) updatePost(w http.ResponseWriter, r *http.Request) {
	var req service.UpdatePostRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	post, err := h.postService.Update(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, postEnvelope{Message: "Post updated successfully", Post: post})
}

func (h *PostHandler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.postService.Delete(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "Post deleted successfully"})
}

func (h *PostHandler) likePost(w http.ResponseWriter, r *http.Request) {
	likes, err := h.postService.Like(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, likesEnvelope{Message: "Post liked successfully", Likes: likes})
}

func (h *PostHandler) unlikePost(w http.ResponseWriter, r *http.Request) {
	likes, err := h.postService.Unlike(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, likesEnvelope{Message: "Post unliked successfully", Likes: likes})
}
