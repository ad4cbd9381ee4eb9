package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/barcheck/internal/common"
)

// Server serves a directory tree over plain HTTP for the browser under test
type Server struct {
	root     string
	logger   arbor.ILogger
	listener net.Listener
	server   *http.Server
	done     <-chan struct{}
	serveErr error

	stopOnce sync.Once
	stopErr  error
}

// Start binds host:port, rebindable right after Stop, and serves root on a
// background goroutine. Port 0 asks the OS for an ephemeral port; the bound
// port is available from Port once Start returns.
func Start(ctx context.Context, root, host string, port int, logger arbor.ILogger) (*Server, error) {
	if logger == nil {
		logger = common.GetLogger()
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	lc := net.ListenConfig{Control: listenControl}

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind static server on %s: %w", addr, err)
	}

	s := &Server{
		root:     root,
		logger:   logger,
		listener: listener,
	}

	s.server = &http.Server{
		Handler:      s.withMiddleware(staticHandler(root)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.done = common.SafeGo(logger, "static-server", func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr = err
			logger.Error().Err(err).Str("address", listener.Addr().String()).Msg("Static server stopped unexpectedly")
		}
	})

	logger.Info().
		Str("root", root).
		Str("url", s.URL()).
		Msg("Static server listening")

	return s, nil
}

// Addr returns the bound listener address
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Port returns the bound TCP port
func (s *Server) Port() int {
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// URL returns the base URL browsers should navigate to
func (s *Server) URL() string {
	host := "localhost"
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok && !tcp.IP.IsUnspecified() && !tcp.IP.IsLoopback() {
		host = tcp.IP.String()
	}
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, strconv.Itoa(s.Port())))
}

// Stop stops accepting connections, closes the listener and waits for the
// serve goroutine to exit. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.logger.Debug().Str("url", s.URL()).Msg("Shutting down static server")

		if err := s.server.Shutdown(ctx); err != nil {
			// Deadline hit with connections still open; force them closed
			s.logger.Warn().Err(err).Msg("Graceful shutdown incomplete, closing connections")
			if closeErr := s.server.Close(); closeErr != nil {
				s.stopErr = fmt.Errorf("static server close failed: %w", closeErr)
			}
		}

		// Shutdown closes the listener; wait for Serve to return
		<-s.done

		if s.stopErr == nil && s.serveErr != nil {
			s.stopErr = fmt.Errorf("static server failed: %w", s.serveErr)
		}

		s.logger.Debug().Msg("Static server stopped")
	})
	return s.stopErr
}

func staticHandler(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		// Repeated runs must always see freshly built assets
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
}
