package api

import (
	"net/http"
	"time"

	"blogapi/internal/api/handler"
	"blogapi/internal/api/middleware"
	"blogapi/internal/app/service"
	"blogapi/internal/common"
	"blogapi/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
)

// Services is everything the HTTP layer dispatches to.
type Services struct {
	Access   *service.AccessControl
	Auth     *service.AuthService
	Posts    *service.PostService
	Comments *service.CommentService
	Search   *service.SearchService
	Users    *service.UserService
}

func NewRouter(svc Services, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Looks for "Authorization: Bearer T" and stores the verification result in the context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	auth := middleware.NewAuth(svc.Access)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", handler.NewAuthHandler(svc.Auth, auth).RegisterRoutes)
		api.Route("/posts", handler.NewPostHandler(svc.Posts, auth).RegisterRoutes)
		api.Route("/comments", handler.NewCommentHandler(svc.Comments, auth).RegisterRoutes)
		api.Route("/search", handler.NewSearchHandler(svc.Search, auth).RegisterRoutes)
		api.Route("/users", handler.NewUserHandler(svc.Users, auth).RegisterRoutes)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithError(w, http.StatusNotFound, "Route not found")
	})

	return r
}
