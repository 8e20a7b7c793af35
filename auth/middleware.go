package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// RequireIdentity rejects requests without a verifiable bearer token with 401
// and hands the resolved Identity to the next handler through the context.
// Gatekeeper failures other than ErrRejected are answered with 500.
func RequireIdentity(g Gatekeeper) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthenticated(w, "Missing bearer token")
				return
			}
			id, err := g.Verify(r.Context(), token)
			if errors.Is(err, ErrRejected) {
				log.Printf("Rejected credential for %s %s: %s", r.Method, r.URL.Path, err.Error())
				unauthenticated(w, "Invalid token")
				return
			}
			if err != nil {
				log.Printf("Failed to verify credential for %s %s: %s", r.Method, r.URL.Path, err.Error())
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthenticated(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
