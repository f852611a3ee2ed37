package server

import (
	"context"
	"net/http"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/trackarr/trackarr/pkg/logger"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
	"go.uber.org/zap"
)

func (s Server) LogMiddleware() mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := s.baseLogger.With(zap.String("request_path", r.URL.Path)).With(zap.String("id", uuid.New().String()))
			h.ServeHTTP(w, r.WithContext(logger.WithCtx(r.Context(), log)))
		})
	}
}

type userIDKey struct{}

// UserMiddleware resolves the requesting user from the X-API-Token header
// and stores the user id in the request context.
func (s Server) UserMiddleware() mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-API-Token")
			if token == "" {
				http.Error(w, "missing api token", http.StatusUnauthorized)
				return
			}

			user, err := s.store.GetUser(r.Context(), table.User.Token.EQ(sqlite.String(token)))
			if err != nil {
				http.Error(w, "unknown api token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey{}, int64(user.ID))
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey{}).(int64)
	return id
}
