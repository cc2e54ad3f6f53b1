package api

import (
	"net/http"
	"time"

	handlers "cryptosim/src/api/handlers"
	"cryptosim/src/config"
	"cryptosim/src/repositories"
	"cryptosim/src/services"
	"cryptosim/src/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

type Server struct {
	Router  *chi.Mux
	Handler *handlers.Handler
	Logger  *logrus.Logger
	cfg     *config.Config
}

// NewServer builds the services over store and mounts the API routes. The
// caller owns store and closes it after the HTTP server stops.
func NewServer(cfg *config.Config, logger *logrus.Logger, store repositories.Store) *Server {
	tokens := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	auth := services.NewAuthService(store.Repositories().Users, tokens, cfg.Auth.BcryptCost)
	trading := services.NewTradingService(store)

	server := &Server{
		Router:  chi.NewRouter(),
		Handler: handlers.NewHandler(auth, trading, store, cfg.Service.RequestTimeout),
		Logger:  logger,
		cfg:     cfg,
	}
	server.InitRoutes()
	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) InitRoutes() {
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(requestLogger(s.Logger))
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.New(cors.Options{
		AllowedOrigins: s.cfg.Service.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}).Handler)

	s.Router.Get("/alive", handlers.Healthcheck)
	s.Router.Get("/ready", s.Handler.Ready)

	s.Router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.Handler.Register)
		r.Post("/login", s.Handler.Login)
	})

	s.Router.Route("/api/crypto", func(r chi.Router) {
		r.Use(s.Handler.RequireSession)
		r.Get("/portfolio/{userId}", s.Handler.GetPortfolio)
		r.Post("/addFunds", s.Handler.AddFunds)
		r.Post("/buy", s.Handler.Buy)
		r.Post("/sell", s.Handler.Sell)
	})
}

// requestLogger puts a request-scoped entry in the context and logs one line
// per request once the response is written.
func requestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := logger.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
			})
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(utils.WithLogger(r.Context(), entry)))

			entry.WithFields(logrus.Fields{
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).String(),
			}).Info("request handled")
		})
	}
}

func NewHTTPServer(server *Server, port string) *http.Server {
	httpServer := &http.Server{
		Addr:         ":" + port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Handler:      server,
	}
	return httpServer
}
