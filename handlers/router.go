package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"messageboard/auth"
)

// NewRouter wires the routes. POST /posts and PUT /posts/{postId} require a
// bearer token accepted by gatekeeper.
func NewRouter(h *HTTPHandler, gatekeeper auth.Gatekeeper, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	requireIdentity := auth.RequireIdentity(gatekeeper)

	r.HandleFunc("/maintenance/ping", h.HealthCheck).Methods("GET")
	r.Handle("/posts", requireIdentity(http.HandlerFunc(h.HandleCreatePost))).Methods("POST")
	r.HandleFunc("/posts", h.HandleGetPosts).Methods("GET")
	r.HandleFunc("/posts/{postId}", h.HandleGetPost).Methods("GET")
	r.Handle("/posts/{postId}", requireIdentity(http.HandlerFunc(h.HandleUpdatePost))).Methods("PUT")
	r.HandleFunc("/posts/{postId}/comments", h.HandleCreateComment).Methods("POST")
	r.HandleFunc("/posts/{postId}/comments", h.HandleGetComments).Methods("GET")

	// Outside mux so preflight requests and unmatched routes pass through too.
	return chi.Chain(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}),
	).Handler(r)
}
