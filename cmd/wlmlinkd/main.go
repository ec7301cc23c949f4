package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/wlmlink/internal/daemon"
	"github.com/danmuck/wlmlink/internal/gateway"
	"github.com/danmuck/wlmlink/internal/link"
	"github.com/danmuck/wlmlink/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const defaultGatewayURL = "http://127.0.0.1:8080"

func main() {
	logging.ConfigureRuntime()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wlmlinkd: %v\n", err)
		os.Exit(1)
	}
}

type serveFlags struct {
	configPath    string
	listen        string
	gatewayListen string
	metricsListen string
	captureDir    string
	noCapture     bool
	readTimeout   time.Duration
}

func newRootCommand() *cobra.Command {
	var flags serveFlags
	root := &cobra.Command{
		Use:           "wlmlinkd",
		Short:         "Wavelength meter link endpoint with an out-of-band update gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	bindServeFlags(root, &flags)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the control link and update gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	bindServeFlags(serve, &flags)

	root.AddCommand(serve, newProbeCommand(), newGetCommand(), newSetCommand())
	return root
}

func bindServeFlags(cmd *cobra.Command, flags *serveFlags) {
	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "path to wlmlinkd TOML config")
	f.StringVar(&flags.listen, "listen", "", "control link listen address")
	f.StringVar(&flags.gatewayListen, "gateway-listen", "", "update gateway listen address")
	f.StringVar(&flags.metricsListen, "metrics-listen", "", "prometheus metrics listen address")
	f.StringVar(&flags.captureDir, "capture-dir", "", "directory for raw request captures")
	f.BoolVar(&flags.noCapture, "no-capture", false, "disable raw request capture")
	f.DurationVar(&flags.readTimeout, "read-timeout", 0, "per-request read deadline (0 blocks indefinitely)")
}

func runServe(cmd *cobra.Command, flags serveFlags) error {
	cfg, err := resolveServeConfig(cmd, flags)
	if err != nil {
		return err
	}
	log.Info().
		Str("listen", cfg.Link.ListenAddr).
		Str("gateway_listen", cfg.Gateway.ListenAddr).
		Str("metrics_listen", cfg.MetricsListenAddr).
		Bool("capture", cfg.CaptureEnabled).
		Str("capture_dir", cfg.Capture.Dir).
		Dur("read_timeout", cfg.Link.ReadTimeout).
		Msg("wlmlinkd configuration")

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}
	return d.Run()
}

// resolveServeConfig applies defaults, then the config file, then flags that
// were set explicitly.
func resolveServeConfig(cmd *cobra.Command, flags serveFlags) (daemon.Config, error) {
	cfg := daemon.DefaultConfig()
	if path := strings.TrimSpace(flags.configPath); path != "" {
		loaded, err := loadDaemonConfig(path)
		if err != nil {
			return daemon.Config{}, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("listen") {
		cfg.Link.ListenAddr = strings.TrimSpace(flags.listen)
	}
	if changed("gateway-listen") {
		cfg.Gateway.ListenAddr = strings.TrimSpace(flags.gatewayListen)
	}
	if changed("metrics-listen") {
		cfg.MetricsListenAddr = strings.TrimSpace(flags.metricsListen)
	}
	if changed("capture-dir") {
		cfg.Capture.Dir = strings.TrimSpace(flags.captureDir)
	}
	if changed("no-capture") {
		cfg.CaptureEnabled = !flags.noCapture
	}
	if changed("read-timeout") {
		cfg.Link.ReadTimeout = flags.readTimeout
	}
	if err := validateDaemonConfig(cfg); err != nil {
		return daemon.Config{}, err
	}
	return cfg, nil
}

func newProbeCommand() *cobra.Command {
	var addr string
	var task string
	var handshake bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Act as the instrument against a running control link",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			c, err := link.Dial(ctx, addr)
			if err != nil {
				return err
			}
			defer c.Close()

			var replies []link.Reply
			if handshake {
				replies, err = c.Handshake(ctx)
				if err != nil {
					return err
				}
			}
			r, err := c.Send(ctx, task, nil)
			if err != nil {
				return err
			}
			replies = append(replies, r)
			for _, r := range replies {
				fmt.Fprintln(cmd.OutOrStdout(), string(r.Raw))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "127.0.0.1:5009", "control link address")
	f.StringVar(&task, "task", "get-wavelength", "task name to send")
	f.BoolVar(&handshake, "handshake", false, "replay the start-up handshake first")
	f.DurationVar(&timeout, "timeout", 5*time.Second, "overall probe timeout")
	return cmd
}

func newGetCommand() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Read the current wavelength from the update gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := gateway.NewClient(url).Get(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "gateway", defaultGatewayURL, "update gateway base URL")
	return cmd
}

func newSetCommand() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "set <value>",
		Short: "Overwrite the current wavelength through the update gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := gateway.NewClient(url).SetLiteral(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "gateway", defaultGatewayURL, "update gateway base URL")
	return cmd
}
