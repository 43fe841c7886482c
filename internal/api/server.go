package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aatumaykin/cronkeeper/internal/logger"
)

// ServerConfig holds listener settings.
type ServerConfig struct {
	Listen       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

// Server owns the listener and the http.Server.
type Server struct {
	cfg        ServerConfig
	httpServer *http.Server
	listener   net.Listener
	logger     *logger.Logger
	done       chan error
}

// NewServer creates a server for handler. Nothing listens until Start.
func NewServer(cfg ServerConfig, handler http.Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("server")
	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ErrorLog:          slog.NewLogLogger(log.StdLogger().Handler(), slog.LevelWarn),
		},
		logger: log,
		done:   make(chan error, 1),
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	s.listener = ln

	tls := s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != ""
	s.logger.Info("gateway listening",
		logger.Field{Key: "address", Value: ln.Addr().String()},
		logger.Field{Key: "tls", Value: tls})

	go func() {
		var err error
		if tls {
			err = s.httpServer.ServeTLS(ln, s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		} else {
			err = s.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway stopped", err)
			s.done <- err
		}
		close(s.done)
	}()

	return nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Listen
	}
	return s.listener.Addr().String()
}

// Done is closed when the server stops serving. A serve failure is sent first.
func (s *Server) Done() <-chan error {
	return s.done
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	s.logger.Info("shutting down gateway")
	return s.httpServer.Shutdown(ctx)
}
