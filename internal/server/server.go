package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/daemon"
	"github.com/muurk/backlight/internal/discovery"
	"github.com/muurk/backlight/internal/logging"
	"github.com/muurk/backlight/internal/version"
)

// DefaultBoards is the board count of a fresh daemon without a state file.
const DefaultBoards = 1

// Config holds the server configuration
type Config struct {
	Host      string
	Port      int
	Boards    int    // Board count when no state file exists
	StatePath string // YAML state file (empty = in-memory only)
	Advertise bool   // Announce the daemon over mDNS
	Instance  string // mDNS instance name (default: backlight-<id>)
	LogLevel  string // Empty leaves the current logger alone
	Username  string // Basic auth (empty = disabled)
	Password  string
}

// Server is the backlight daemon: an HTTP API and a WebSocket hub over an
// in-memory board store, optionally persisted to a state file.
type Server struct {
	config *Config
	id     string
	store  *daemon.Memory
	hub    *Hub
	state  *StateStore

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	watcher    *StateWatcher
	ad         *discovery.Advertisement
}

// New creates a server, loading the state file when one exists.
func New(config *Config) (*Server, error) {
	if config.LogLevel != "" {
		if err := logging.Initialize(config.LogLevel); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	n := config.Boards
	if n <= 0 {
		n = DefaultBoards
	}

	s := &Server{
		config: config,
		id:     uuid.NewString(),
		store:  daemon.NewMemory(n, color.Black),
	}
	s.hub = NewHub(s.store)

	if config.StatePath != "" {
		s.state = NewStateStore(config.StatePath)
		boards, ok, err := s.state.Load()
		if err != nil {
			return nil, err
		}
		if ok {
			s.store.Restore(boards)
			logging.Info("Loaded board state", zap.String("path", config.StatePath), zap.Int("boards", len(boards)))
		} else if err := s.state.Save(s.store.Snapshot()); err != nil {
			return nil, err
		}
	}

	s.store.OnChange(s.onChange)
	return s, nil
}

// ID returns the daemon's identity, advertised in the mDNS TXT record.
func (s *Server) ID() string {
	return s.id
}

// Store returns the board store.
func (s *Server) Store() *daemon.Memory {
	return s.store
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) onChange(board int, c color.RGB) {
	logging.Info("Board color changed", zap.Int("board", board), zap.String("color", c.Hex()))
	s.hub.BroadcastChanged(board, c)
	if s.state != nil {
		if err := s.state.Save(s.store.Snapshot()); err != nil {
			logging.Error("Failed to save board state", zap.Error(err))
		}
	}
}

// Reload replaces the boards with an externally edited state and broadcasts
// "changed" for every board whose color differs.
func (s *Server) Reload(boards []daemon.Board) {
	before := s.store.Snapshot()
	s.store.Restore(boards)

	for i, b := range boards {
		if i < len(before) && before[i].Color == b.Color {
			continue
		}
		s.hub.BroadcastChanged(i, b.Color)
	}
}

// Listen binds the configured address without serving.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the HTTP server on the bound listener until Shutdown. It also
// starts the state watcher and the mDNS advertisement.
func (s *Server) Serve() error {
	s.mu.Lock()
	listener, httpServer := s.listener, s.httpServer
	s.mu.Unlock()
	if listener == nil {
		return errors.New("server is not listening")
	}

	if s.state != nil {
		watcher, err := WatchState(s.state, s.Reload)
		if err != nil {
			logging.Warn("State file will not be reloaded on external edits", zap.Error(err))
		} else {
			s.mu.Lock()
			s.watcher = watcher
			s.mu.Unlock()
		}
	}

	if s.config.Advertise {
		s.advertise(listener.Addr())
	}

	logging.Info("Server listening for connections", zap.String("addr", listener.Addr().String()))

	if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) advertise(addr net.Addr) {
	port := s.config.Port
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	instance := s.config.Instance
	if instance == "" {
		instance = "backlight-" + s.id[:8]
	}

	ad, err := discovery.Advertise(instance, s.id, port, len(s.store.Snapshot()), version.Version)
	if err != nil {
		logging.Warn("mDNS advertisement failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.ad = ad
	s.mu.Unlock()
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	logging.Info("Starting backlight daemon",
		zap.String("host", s.config.Host),
		zap.Int("port", s.config.Port),
		zap.Int("boards", len(s.store.Snapshot())),
		zap.String("state", s.config.StatePath),
		zap.Bool("auth", s.config.Username != ""),
	)

	if err := s.Listen(); err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer, watcher, ad := s.httpServer, s.watcher, s.ad
	s.watcher, s.ad = nil, nil
	s.mu.Unlock()

	ad.Shutdown()
	if watcher != nil {
		_ = watcher.Stop()
	}

	// Hijacked WebSocket connections are not tracked by http.Server.
	s.hub.CloseAll()

	var err error
	if httpServer != nil {
		err = httpServer.Shutdown(ctx)
	}

	logging.Info("Server shutdown complete")
	logging.Sync()
	return err
}

// GetActiveConnections returns the number of connected WebSocket clients
func (s *Server) GetActiveConnections() int {
	return s.hub.ClientCount()
}
