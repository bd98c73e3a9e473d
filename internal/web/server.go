package web

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/QwQ-dev/LiveStatus/internal/config"
)

type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
}

func NewServer(cfg *config.Config, handler *Handler) *Server {
	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:         cfg.WebAddress(),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		server:  httpServer,
	}
}

func (s *Server) Start() error {
	log.Printf("Starting web server on http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Serve accepts connections on l, used when the caller binds the port.
func (s *Server) Serve(l net.Listener) error {
	log.Printf("Starting web server on http://%s", l.Addr())
	return s.server.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}
