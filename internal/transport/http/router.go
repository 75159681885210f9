package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/remotedesk/signal-service/internal/metrics"
	"github.com/remotedesk/signal-service/internal/transport/ws"
	"github.com/remotedesk/signal-service/pkg/ratelimit"
)

type RouterConfig struct {
	StaticDir       string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

func NewRouter(h *Handler, wsServer *ws.Server, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// WS endpoint; no timeout middleware on this route, the socket lives
	// until the peer hangs up.
	r.Get("/ws/{room}/{role}", wsServer.HandleWS)

	rl := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)
	r.Group(func(pr chi.Router) {
		pr.Use(rl.Middleware)
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Get("/", h.Index)
		pr.Get("/create-room", h.CreateRoom)
		pr.Get("/check-room/{room}", h.CheckRoom)
	})

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = "./static"
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	// health + metrics
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	return r
}
