package handler

import (
	"net/http"

	"blogapi/internal/api/middleware"
	"blogapi/internal/app/service"
	"blogapi/internal/common"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService *service.AuthService
	auth        *middleware.Auth
}

func NewAuthHandler(authService *service.AuthService, auth *middleware.Auth) *AuthHandler {
	return &AuthHandler{authService: authService, auth: auth}
}

type authEnvelope struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    service.AuthUser `json:"user"`
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.With(h.auth.Authenticator).Post("/logout", h.logout)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}

	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, authEnvelope{
		Message: "User registered successfully",
		Token:   resp.Token,
		User:    resp.User,
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, authEnvelope{
		Message: "Login successful",
		Token:   resp.Token,
		User:    resp.User,
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.IdentityFromContext(r.Context())); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "Logged out successfully"})
}
