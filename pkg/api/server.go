package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aym-n/SneakByte/pkg/api/handlers"
	"github.com/aym-n/SneakByte/pkg/frontend"
	"github.com/aym-n/SneakByte/pkg/log"
	"github.com/aym-n/SneakByte/pkg/registry"
	"github.com/aym-n/SneakByte/pkg/repositories"
	"github.com/gorilla/mux"
)

// Server hosts the frontend control channel and the read-only REST surface.
type Server struct {
	server *http.Server
}

type NewServerOptions struct {
	Port       int
	Gateway    *frontend.Gateway
	Registry   *registry.BotRegistry
	Repository repositories.Repository
}

// NewServer creates a new http.Server for the frontend and API routes.
func NewServer(opts NewServerOptions) *Server {
	router := mux.NewRouter()
	router.HandleFunc("/", opts.Gateway.HandleWS)
	router.HandleFunc("/ws", opts.Gateway.HandleWS)
	router.HandleFunc("/api/bots", handlers.HandleListBots(opts.Registry)).Methods(http.MethodGet)
	router.HandleFunc("/api/ratings", handlers.HandleListRatings(opts.Repository)).Methods(http.MethodGet)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}
	return &Server{
		server: server,
	}
}

// Start starts the Server.
func (s *Server) Start() {
	log.Info("Frontend server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("Frontend server closed")
			return
		}
		log.Error("Frontend server error: %v", err)
	}
}

// Stop stops the Server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
