package link

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/danmuck/wlmlink/internal/capture"
	"github.com/danmuck/wlmlink/internal/observability"
	"github.com/danmuck/wlmlink/internal/protocol"
	"github.com/danmuck/wlmlink/internal/protocol/frame"
	"github.com/danmuck/wlmlink/internal/reply"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session drives one accepted connection until the peer stops or a request
// cannot be answered.
type Session struct {
	conn    net.Conn
	reader  *frame.Reader
	engine  *reply.Engine
	sink    capture.Sink
	timeout time.Duration

	remote  string
	localIP string
	seq     uint64
	logger  zerolog.Logger
}

func NewSession(conn net.Conn, engine *reply.Engine, sink capture.Sink, cfg ServiceConfig) *Session {
	if sink == nil {
		sink = capture.Nop{}
	}
	remote := conn.RemoteAddr().String()
	return &Session{
		conn:    conn,
		reader:  frame.NewReaderSize(conn, cfg.ReadChunkSize),
		engine:  engine,
		sink:    sink,
		timeout: cfg.ReadTimeout,
		remote:  remote,
		localIP: hostOf(conn.LocalAddr()),
		logger:  log.With().Str("remote", remote).Logger(),
	}
}

// Run returns nil when the peer ends the stream cleanly.
func (s *Session) Run() error {
	for {
		if err := s.serveOne(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Seq is the sequence number the next reply will carry.
func (s *Session) Seq() uint64 {
	return s.seq
}

func (s *Session) serveOne() error {
	if s.timeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.timeout))
	}
	fr, err := s.reader.Next()
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	defer s.record(fr.Raw)
	if err != nil {
		return err
	}

	req, err := protocol.ParseRequest(fr.Doc)
	if err != nil {
		return err
	}
	env, err := s.engine.Build(req, reply.Session{Seq: s.seq, LocalAddr: s.localIP})
	if err != nil {
		return err
	}
	out, err := protocol.Encode(env)
	if err != nil {
		return fmt.Errorf("link: encode reply: %w", err)
	}
	if _, err := s.conn.Write(out); err != nil {
		return fmt.Errorf("link: write reply: %w", err)
	}

	s.logger.Debug().
		Str("task", req.Name).
		Int64("peer_transmission_id", req.TransmissionID).
		Uint64("seq", s.seq).
		Msg("link reply written")
	observability.RecordReply(req.Task.String())
	s.seq++
	return nil
}

func (s *Session) record(raw []byte) {
	if err := s.sink.Record(s.remote, raw); err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(raw)).Msg("link capture failed")
	}
}

// endReason labels why a session stopped.
func endReason(err error) string {
	switch {
	case err == nil:
		return "eof"
	case errors.Is(err, frame.ErrFraming):
		return "framing"
	case errors.Is(err, protocol.ErrStructure):
		return "structure"
	case errors.Is(err, reply.ErrUnimplemented):
		return "unimplemented"
	default:
		return "io"
	}
}

func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
