package capture

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultDir          = "captures"
	DefaultFileTemplate = "{host}.raw"
)

var (
	ErrPathEscapesRoot = errors.New("capture: path escapes capture dir")
)

// Sink receives the raw bytes of each processed request.
type Sink interface {
	Record(remoteAddr string, raw []byte) error
}

// Nop discards records.
type Nop struct{}

func (Nop) Record(string, []byte) error { return nil }

// Config configures the file-backed store.
type Config struct {
	Dir          string
	FileTemplate string
	// MaxSizeMB is the rotation threshold; zero uses the lumberjack default.
	MaxSizeMB  int
	MaxBackups int
}

func DefaultConfig() Config {
	return Config{
		Dir:          DefaultDir,
		FileTemplate: DefaultFileTemplate,
	}
}

// FileStore appends records to one file per template expansion.
type FileStore struct {
	root string
	cfg  Config

	mu      sync.Mutex
	writers map[string]*lumberjack.Logger
}

func NewFileStore(cfg Config) (*FileStore, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = DefaultDir
	}
	if strings.TrimSpace(cfg.FileTemplate) == "" {
		cfg.FileTemplate = DefaultFileTemplate
	}
	root, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("capture: create dir %q: %w", root, err)
	}
	return &FileStore{
		root:    root,
		cfg:     cfg,
		writers: make(map[string]*lumberjack.Logger),
	}, nil
}

// Record appends raw verbatim. Empty records are skipped.
func (s *FileStore) Record(remoteAddr string, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	w, err := s.writer(remoteAddr)
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("capture: append %q: %w", w.Filename, err)
	}
	return nil
}

// Path returns the file that records for remoteAddr are appended to.
func (s *FileStore) Path(remoteAddr string) (string, error) {
	host, port := splitAddr(remoteAddr)
	name := strings.NewReplacer(
		"{host}", sanitize(host),
		"{port}", sanitize(port),
	).Replace(s.cfg.FileTemplate)
	p := filepath.Clean(filepath.Join(s.root, name))
	if !isWithin(p, s.root) || p == s.root {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRoot, name)
	}
	return p, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for path, w := range s.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(s.writers, path)
	}
	return errors.Join(errs...)
}

func (s *FileStore) writer(remoteAddr string) (*lumberjack.Logger, error) {
	p, err := s.Path(remoteAddr)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.writers[p]; ok {
		return w, nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}
	w := &lumberjack.Logger{
		Filename:   p,
		MaxSize:    s.cfg.MaxSizeMB,
		MaxBackups: s.cfg.MaxBackups,
	}
	s.writers[p] = w
	return w, nil
}

func splitAddr(addr string) (string, string) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return strings.TrimSpace(addr), ""
	}
	return host, port
}

func sanitize(part string) string {
	if part == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, part)
}

func isWithin(path string, root string) bool {
	p := filepath.Clean(path)
	r := filepath.Clean(root)
	if p == r {
		return true
	}
	return strings.HasPrefix(p, r+string(os.PathSeparator))
}
