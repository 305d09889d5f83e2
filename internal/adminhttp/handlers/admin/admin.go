// Package admin holds the stub handlers behind the out-of-scope admin HTTP
// surface (§1: "interfaces only"). Nothing here reaches the game core; it
// exists so the surface has shapes to authenticate and render against.
package admin

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"citywords/entity"
	"citywords/lib/api/response"
	"citywords/lib/sl"
)

// Health reports process liveness for load balancers and operators.
func Health(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok(map[string]string{"status": "ok"}))
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	SessionKey string `json:"session_key"`
}

// Login checks the submitted credentials against the one seeded operator
// account and, on match, hands back the session key the rest of the
// surface expects on the X-Session-Key header.
func Login(log *slog.Logger, admin entity.AdminUser, password, sessionKey string) http.HandlerFunc {
	mod := sl.Module("handlers.admin.login")
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return
		}

		emailOk := subtle.ConstantTimeCompare([]byte(req.Email), []byte(admin.Email)) == 1
		passOk := subtle.ConstantTimeCompare([]byte(req.Password), []byte(password)) == 1
		if !emailOk || !passOk {
			log.With(mod).Warn("login failed", slog.String("email", req.Email))
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid credentials"))
			return
		}

		render.JSON(w, r, response.Ok(loginResponse{SessionKey: sessionKey}))
	}
}

type theme struct {
	Id   int64  `json:"id"`
	Name string `json:"name"`
}

// ListThemes is a placeholder for the theming catalogue the admin surface
// would manage; the game core does not read themes today.
func ListThemes(log *slog.Logger) http.HandlerFunc {
	mod := sl.Module("handlers.admin.themes")
	return func(w http.ResponseWriter, r *http.Request) {
		log.With(mod).Debug("list themes requested")
		render.JSON(w, r, response.Ok([]theme{}))
	}
}

type question struct {
	Id   int64  `json:"id"`
	Text string `json:"text"`
}

// ListQuestions is a placeholder for a future question bank; Cities and
// Words draw from the cities/words tables directly, not from this surface.
func ListQuestions(log *slog.Logger) http.HandlerFunc {
	mod := sl.Module("handlers.admin.questions")
	return func(w http.ResponseWriter, r *http.Request) {
		log.With(mod).Debug("list questions requested")
		render.JSON(w, r, response.Ok([]question{}))
	}
}
