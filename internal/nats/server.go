package nats

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

const (
	defaultPort = 4222
	defaultHost = "127.0.0.1"

	// readyTimeout bounds how long Start waits for the listener.
	readyTimeout = 5 * time.Second
)

// ServerOptions configures the embedded NATS server.
type ServerOptions struct {
	Port   int
	Host   string
	Name   string
	Logger *slog.Logger
}

// Server runs a NATS server inside the daemon process, so a deployment
// gets a broker without operating one separately.
type Server struct {
	opts   ServerOptions
	srv    *server.Server
	logger *slog.Logger
}

// NewServer prepares an embedded server. Zero-value options fall back
// to 127.0.0.1:4222 under the name "camnode".
func NewServer(opts ServerOptions) *Server {
	if opts.Port == 0 {
		opts.Port = defaultPort
	}
	if opts.Host == "" {
		opts.Host = defaultHost
	}
	if opts.Name == "" {
		opts.Name = "camnode"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:   opts,
		logger: logger.With("component", "nats-server"),
	}
}

// Start launches the server and blocks until it accepts connections.
func (s *Server) Start() error {
	srv, err := server.NewServer(&server.Options{
		Host:       s.opts.Host,
		Port:       s.opts.Port,
		ServerName: s.opts.Name,
		// The daemon owns process signals and logging
		NoLog:          true,
		NoSigs:         true,
		MaxControlLine: 4096,
		MaxPayload:     1024 * 1024, // subjects carry metadata, never pixel data
	})
	if err != nil {
		return fmt.Errorf("failed to create NATS server: %w", err)
	}

	go srv.Start()

	if !srv.ReadyForConnections(readyTimeout) {
		srv.Shutdown()
		return fmt.Errorf("NATS server not ready after %s", readyTimeout)
	}

	s.srv = srv
	s.logger.Info("NATS server started", "url", s.ClientURL())
	return nil
}

// Stop shuts the server down and waits for it to finish.
func (s *Server) Stop() {
	if s.srv == nil {
		return
	}
	s.logger.Info("Stopping NATS server")
	s.srv.Shutdown()
	s.srv.WaitForShutdown()
	s.srv = nil
}

// ClientURL returns the URL clients connect to. Before Start it is
// derived from the configured host and port.
func (s *Server) ClientURL() string {
	if s.srv == nil {
		return fmt.Sprintf("nats://%s:%d", s.opts.Host, s.opts.Port)
	}
	return s.srv.ClientURL()
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	return s.srv != nil && s.srv.Running()
}
