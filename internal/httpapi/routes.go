// Package httpapi serves read-only game state and operator overrides over HTTP.
package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"werewolf-bot/internal/game/werewolf"
)

// Sessions is the part of werewolf.Manager the API needs.
type Sessions interface {
	ActiveSessions() []int64
	GetState(chatID int64) (werewolf.Snapshot, error)
	ForceTimeout(ctx context.Context, chatID int64) error
	Abort(ctx context.Context, chatID int64, reason string) error
}

// HealthFunc reports whether a backing dependency is reachable.
type HealthFunc func(ctx context.Context) error

// SetupRoutes builds the router. Operator routes are only mounted when
// adminToken is set. health may be nil.
func SetupRoutes(s Sessions, health HealthFunc, adminToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", Healthz(health))
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", ListSessions(s))
		r.Get("/{chatID}", GetSession(s))

		if adminToken != "" {
			r.Group(func(r chi.Router) {
				r.Use(requireToken(adminToken))
				r.Get("/{chatID}/full", GetSessionFull(s))
				r.Post("/{chatID}/timeout", ForceTimeout(s))
				r.Post("/{chatID}/abort", Abort(s))
			})
		}
	})
	return r
}

func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}
