package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	RoomID      string
	Room        Viewer
	Hub         StatsSource
	Connections func() int
	WS          http.Handler
	Log         *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLog(d.Log))

	// Public routes
	r.Get("/healthz", Healthz(d.Hub))
	r.Get("/room", RoomInfo(d.RoomID, d.Room, d.Connections))
	r.Method(http.MethodGet, "/ws", d.WS)
	return r
}

// requestLog logs completed requests through zap. Upgraded websocket
// requests are logged when the connection ends.
func requestLog(log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)))
		})
	}
}
