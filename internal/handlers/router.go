// internal/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jason-s-yu/ludo/internal/auth"
	"github.com/jason-s-yu/ludo/internal/middleware"
	"github.com/jason-s-yu/ludo/internal/notify"
	"github.com/sirupsen/logrus"
)

// Deps are the services behind the HTTP surface.
type Deps struct {
	Logger     *logrus.Logger
	Auth       *auth.Authority
	Rooms      RoomService
	Games      GameService
	Themes     ThemeService
	Subscriber notify.Subscriber
	Checkers   map[string]Checker
}

// NewRouter wires every route. All routes except /healthz require identity.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LogMiddleware(d.Logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", HealthHandler(d.Logger, d.Checkers))

	r.Group(func(r chi.Router) {
		r.Use(d.Auth.Middleware(func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, d.Logger, err)
		}))

		r.Get("/themes", ListThemesHandler(d.Logger, d.Themes))

		r.Post("/rooms", CreateRoomHandler(d.Logger, d.Rooms))
		r.Post("/rooms/join", JoinRoomHandler(d.Logger, d.Rooms))
		r.Route("/rooms/{id}", func(r chi.Router) {
			r.Get("/", GetRoomHandler(d.Logger, d.Rooms))
			r.Put("/theme", SetSeatThemeHandler(d.Logger, d.Rooms))
			r.Post("/start", StartGameHandler(d.Logger, d.Rooms, d.Games))
			r.Get("/session", GetSessionHandler(d.Logger, d.Rooms, d.Games))
			r.Get("/ws", RoomWSHandler(d.Logger, d.Rooms, d.Subscriber))
		})
	})

	return r
}
