// Package daemon wires the control link, the update gateway, the capture
// store and the metrics listener around one shared wavelength cell.
package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/wlmlink/internal/capture"
	"github.com/danmuck/wlmlink/internal/gateway"
	"github.com/danmuck/wlmlink/internal/link"
	"github.com/danmuck/wlmlink/internal/observability"
	"github.com/danmuck/wlmlink/internal/reply"
	"github.com/danmuck/wlmlink/internal/wavelength"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Link              link.ServiceConfig
	Gateway           gateway.Config
	CaptureEnabled    bool
	Capture           capture.Config
	MetricsListenAddr string
}

func DefaultConfig() Config {
	return Config{
		Link:           link.DefaultServiceConfig(),
		Gateway:        gateway.DefaultConfig(),
		CaptureEnabled: true,
		Capture:        capture.DefaultConfig(),
	}
}

// Daemon owns the process-wide components.
type Daemon struct {
	cfg     Config
	cell    *wavelength.Cell
	sink    capture.Sink
	store   *capture.FileStore
	link    *link.Service
	gateway *gateway.Server
}

func New(cfg Config) (*Daemon, error) {
	d := &Daemon{
		cfg:  cfg,
		cell: wavelength.NewCell(),
		sink: capture.Nop{},
	}
	if cfg.CaptureEnabled {
		store, err := capture.NewFileStore(cfg.Capture)
		if err != nil {
			return nil, err
		}
		d.store = store
		d.sink = store
	}
	d.link = link.NewService(cfg.Link, reply.NewEngine(d.cell), d.sink)
	d.gateway = gateway.NewServer(cfg.Gateway, d.cell)
	return d, nil
}

// Cell is the shared measurement slot.
func (d *Daemon) Cell() *wavelength.Cell {
	return d.cell
}

// Run listens on the configured addresses and blocks until SIGINT/SIGTERM
// or the first component failure.
func (d *Daemon) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	linkLn, err := net.Listen("tcp", d.cfg.Link.ListenAddr)
	if err != nil {
		return err
	}
	gatewayLn, err := net.Listen("tcp", d.cfg.Gateway.ListenAddr)
	if err != nil {
		_ = linkLn.Close()
		return err
	}
	var metricsLn net.Listener
	if addr := strings.TrimSpace(d.cfg.MetricsListenAddr); addr != "" {
		metricsLn, err = net.Listen("tcp", addr)
		if err != nil {
			_ = linkLn.Close()
			_ = gatewayLn.Close()
			return err
		}
	}
	return d.Serve(ctx, linkLn, gatewayLn, metricsLn)
}

// Serve runs every component on the given listeners. metricsLn may be nil.
func (d *Daemon) Serve(ctx context.Context, linkLn, gatewayLn, metricsLn net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer d.closeStore()

	count := 2
	errCh := make(chan error, 3)
	go func() {
		errCh <- d.link.Serve(ctx, linkLn)
	}()
	go func() {
		errCh <- d.gateway.Serve(ctx, gatewayLn)
	}()
	if metricsLn != nil {
		count++
		go func() {
			errCh <- serveMetrics(ctx, metricsLn)
		}()
	}

	var first error
	for i := 0; i < count; i++ {
		err := <-errCh
		if err != nil && first == nil {
			first = err
			log.Error().Err(err).Msg("daemon component failed")
		}
		cancel()
	}
	return first
}

func (d *Daemon) closeStore() {
	if d.store == nil {
		return
	}
	if err := d.store.Close(); err != nil {
		log.Warn().Err(err).Msg("daemon capture close failed")
	}
}

func serveMetrics(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	log.Info().Str("addr", ln.Addr().String()).Msg("metrics listening")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
