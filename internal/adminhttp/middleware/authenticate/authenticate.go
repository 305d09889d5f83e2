// Package authenticate guards the admin HTTP surface with a single
// shared session key (§6 SESSION_KEY) rather than per-user bearer
// tokens: there is exactly one seeded operator account, not a user
// directory, so a constant-time comparison against one secret is all
// the surface needs.
package authenticate

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"citywords/entity"
	"citywords/lib/api/cont"
	"citywords/lib/api/response"
	"citywords/lib/sl"
)

func New(log *slog.Logger, sessionKey string, admin entity.AdminUser) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")
	log.With(mod).Info("authenticate middleware initialized")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			id := middleware.GetReqID(r.Context())
			remote := r.RemoteAddr
			if xRemote := r.Header.Get("X-Forwarded-For"); xRemote != "" {
				remote = xRemote
			}
			logger := log.With(
				mod,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", remote),
				slog.String("request_id", id),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			t1 := time.Now()
			defer func() {
				logger.With(
					slog.Int("status", ww.Status()),
					slog.Int("size", ww.BytesWritten()),
					slog.Float64("duration", time.Since(t1).Seconds()),
				).Info("incoming request")
			}()

			given := r.Header.Get("X-Session-Key")
			if sessionKey == "" || subtle.ConstantTimeCompare([]byte(given), []byte(sessionKey)) != 1 {
				authFailed(ww, r, "Unauthorized: invalid session key")
				return
			}

			ctx := cont.PutAdmin(r.Context(), &admin)
			ww.Header().Set("X-Request-ID", id)
			next.ServeHTTP(ww, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func authFailed(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(message))
}
