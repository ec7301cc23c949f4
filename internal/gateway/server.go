package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/wlmlink/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidValue = errors.New("gateway: invalid wavelength value")

	valuePattern = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)
)

// Store is the side of the wavelength cell the gateway touches.
type Store interface {
	Set(v float64)
	Peek() float64
}

type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server serves the update gateway routes.
type Server struct {
	cfg    Config
	store  Store
	router *gin.Engine
}

func NewServer(cfg Config, store Store) *Server {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = DefaultConfig().ListenAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.HandleMethodNotAllowed = false
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())

	s := &Server{cfg: cfg, store: store, router: r}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/get", func(c *gin.Context) {
		c.String(http.StatusOK, "Current value is [%.15f]", s.store.Peek())
	})

	s.router.PUT("/set/:value", func(c *gin.Context) {
		v, err := ParseValue(c.Param("value"))
		if err != nil {
			c.String(http.StatusInternalServerError, "%s", err.Error())
			return
		}
		s.store.Set(v)
		observability.RecordWavelengthUpdate()
		log.Info().Float64("wavelength", v).Msg("gateway wavelength set")
		c.String(http.StatusOK, "Seting the value to [%.15f]", v)
	})

	s.router.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "No route matches %s %s", c.Request.Method, c.Request.URL.Path)
	})
}

// ParseValue accepts signed integers and decimals with digits on both sides
// of the point.
func ParseValue(raw string) (float64, error) {
	if !valuePattern.MatchString(raw) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return v, nil
}

// Serve answers gateway calls on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("gateway listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
