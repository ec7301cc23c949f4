package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/wlmlink/internal/daemon"
)

// wlmlinkd config.toml key mapping to daemon settings.
type fileConfig struct {
	ListenAddr          string `toml:"listen_addr"`
	ReadChunkSize       int    `toml:"read_chunk_size"`
	ReadTimeout         string `toml:"read_timeout"`
	GatewayListenAddr   string `toml:"gateway_listen_addr"`
	MetricsListenAddr   string `toml:"metrics_listen_addr"`
	CaptureEnabled      bool   `toml:"capture_enabled"`
	CaptureDir          string `toml:"capture_dir"`
	CaptureFileTemplate string `toml:"capture_file_template"`
	CaptureMaxSizeMB    int    `toml:"capture_max_size_mb"`
	CaptureMaxBackups   int    `toml:"capture_max_backups"`
}

// loadDaemonConfig overlays the keys present in path onto defaults.
func loadDaemonConfig(path string) (daemon.Config, error) {
	cfg := daemon.DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return daemon.Config{}, fmt.Errorf("load wlmlinkd config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return daemon.Config{}, fmt.Errorf("load wlmlinkd config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("listen_addr") {
		cfg.Link.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("read_chunk_size") {
		if raw.ReadChunkSize <= 0 {
			return daemon.Config{}, fmt.Errorf("load wlmlinkd config: read_chunk_size must be positive, got %d", raw.ReadChunkSize)
		}
		cfg.Link.ReadChunkSize = raw.ReadChunkSize
	}
	if meta.IsDefined("read_timeout") && strings.TrimSpace(raw.ReadTimeout) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return daemon.Config{}, fmt.Errorf("load wlmlinkd config: read_timeout: %w", err)
		}
		cfg.Link.ReadTimeout = d
	}
	if meta.IsDefined("gateway_listen_addr") {
		cfg.Gateway.ListenAddr = strings.TrimSpace(raw.GatewayListenAddr)
	}
	if meta.IsDefined("metrics_listen_addr") {
		cfg.MetricsListenAddr = strings.TrimSpace(raw.MetricsListenAddr)
	}
	if meta.IsDefined("capture_enabled") {
		cfg.CaptureEnabled = raw.CaptureEnabled
	}
	if meta.IsDefined("capture_dir") {
		cfg.Capture.Dir = strings.TrimSpace(raw.CaptureDir)
	}
	if meta.IsDefined("capture_file_template") {
		cfg.Capture.FileTemplate = strings.TrimSpace(raw.CaptureFileTemplate)
	}
	if meta.IsDefined("capture_max_size_mb") {
		cfg.Capture.MaxSizeMB = raw.CaptureMaxSizeMB
	}
	if meta.IsDefined("capture_max_backups") {
		cfg.Capture.MaxBackups = raw.CaptureMaxBackups
	}

	if err := validateDaemonConfig(cfg); err != nil {
		return daemon.Config{}, err
	}
	return cfg, nil
}

func validateDaemonConfig(cfg daemon.Config) error {
	if strings.TrimSpace(cfg.Link.ListenAddr) == "" {
		return fmt.Errorf("load wlmlinkd config: listen_addr is required")
	}
	if strings.TrimSpace(cfg.Gateway.ListenAddr) == "" {
		return fmt.Errorf("load wlmlinkd config: gateway_listen_addr is required")
	}
	if cfg.Link.ListenAddr == cfg.Gateway.ListenAddr {
		return fmt.Errorf("load wlmlinkd config: listen_addr and gateway_listen_addr must differ (%q)", cfg.Link.ListenAddr)
	}
	if cfg.CaptureEnabled && strings.TrimSpace(cfg.Capture.FileTemplate) != "" &&
		!strings.Contains(cfg.Capture.FileTemplate, "{host}") {
		return fmt.Errorf("load wlmlinkd config: capture_file_template must contain {host}")
	}
	if cfg.Capture.MaxSizeMB < 0 || cfg.Capture.MaxBackups < 0 {
		return fmt.Errorf("load wlmlinkd config: capture rotation values must not be negative")
	}
	return nil
}
