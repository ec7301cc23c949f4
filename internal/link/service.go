package link

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/wlmlink/internal/capture"
	"github.com/danmuck/wlmlink/internal/observability"
	"github.com/danmuck/wlmlink/internal/protocol/frame"
	"github.com/danmuck/wlmlink/internal/reply"
	"github.com/rs/zerolog/log"
)

// Control endpoint configuration.
type ServiceConfig struct {
	ListenAddr    string
	ReadChunkSize int
	// ReadTimeout bounds each request read; zero blocks indefinitely.
	ReadTimeout time.Duration
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:    ":5009",
		ReadChunkSize: frame.DefaultChunkSize,
	}
}

// Service accepts instrument connections and runs one Session per connection.
type Service struct {
	cfg    ServiceConfig
	engine *reply.Engine
	sink   capture.Sink

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	sessionClientCount atomic.Int64
}

func NewService(cfg ServiceConfig, engine *reply.Engine, sink capture.Sink) *Service {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = DefaultServiceConfig().ListenAddr
	}
	if cfg.ReadChunkSize <= 0 {
		cfg.ReadChunkSize = frame.DefaultChunkSize
	}
	if sink == nil {
		sink = capture.Nop{}
	}
	return &Service{
		cfg:    cfg,
		engine: engine,
		sink:   sink,
		conns:  make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Service) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on ln. It returns nil once ctx is cancelled.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	log.Info().Str("addr", ln.Addr().String()).Msg("link listening")
	go func() {
		<-ctx.Done()
		s.closeAllConns()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.trackConn(conn)
		go s.handleConn(conn)
	}
}

// ActiveClients reports currently connected sessions.
func (s *Service) ActiveClients() int64 {
	return s.sessionClientCount.Load()
}

func (s *Service) handleConn(conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)
	remote := conn.RemoteAddr().String()
	active := s.sessionClientCount.Add(1)
	observability.SessionStarted()
	log.Info().Str("remote", remote).Int64("active_clients", active).Msg("link client connected")

	sess := NewSession(conn, s.engine, s.sink, s.cfg)
	err := sess.Run()
	reason := endReason(err)
	if err != nil {
		log.Warn().
			Err(err).
			Str("remote", remote).
			Str("reason", reason).
			Uint64("replies", sess.Seq()).
			Msg("link session terminated")
	}

	remaining := s.sessionClientCount.Add(-1)
	observability.SessionEnded(reason)
	log.Info().Str("remote", remote).Int64("active_clients", remaining).Msg("link client disconnected")
}

func (s *Service) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Service) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

func (s *Service) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, conn)
	}
}
