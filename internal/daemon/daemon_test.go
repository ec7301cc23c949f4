package daemon

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/wlmlink/internal/gateway"
	"github.com/danmuck/wlmlink/internal/link"
	"github.com/danmuck/wlmlink/internal/reply"
	"github.com/danmuck/wlmlink/internal/testutil/testlog"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

func TestDaemonGatewayFeedsControlLink(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.Capture.Dir = t.TempDir()
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}

	linkLn, gatewayLn, metricsLn := listen(t), listen(t), listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- d.Serve(ctx, linkLn, gatewayLn, metricsLn)
	}()

	callCtx, callCancel := context.WithTimeout(ctx, 5*time.Second)
	defer callCancel()
	gw := gateway.NewClient(gatewayLn.Addr().String())
	if _, err := gw.Set(callCtx, 3.14); err != nil {
		t.Fatalf("gateway set: %v", err)
	}
	body, err := gw.Get(callCtx)
	if err != nil {
		t.Fatalf("gateway get: %v", err)
	}
	if body != "Current value is [3.140000000000000]" {
		t.Fatalf("unexpected get body=%q", body)
	}

	c, err := link.Dial(callCtx, linkLn.Addr().String())
	if err != nil {
		t.Fatalf("dial link: %v", err)
	}
	v, status, err := c.GetWavelength(callCtx)
	if err != nil {
		t.Fatalf("get wavelength: %v", err)
	}
	if v != 3.14 || status != reply.StatusOK {
		t.Fatalf("unexpected first poll v=%v status=%q", v, status)
	}
	v, status, err = c.GetWavelength(callCtx)
	if err != nil {
		t.Fatalf("get wavelength: %v", err)
	}
	if v != 0 || status != reply.StatusNoSignal {
		t.Fatalf("unexpected second poll v=%v status=%q", v, status)
	}
	_ = c.Close()

	if _, err := gw.SetLiteral(callCtx, "abc"); err == nil {
		t.Fatalf("expected malformed set to fail")
	}
	if got := d.Cell().Peek(); got != 0 {
		t.Fatalf("malformed set must not touch the cell, got %v", got)
	}

	resp, err := http.Get("http://" + metricsLn.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(raw), "wlmlink_link_replies_total") {
		t.Fatalf("metrics missing link replies")
	}

	deadline := time.Now().Add(3 * time.Second)
	path := filepath.Join(cfg.Capture.Dir, "127.0.0.1.raw")
	var captured []byte
	for time.Now().Before(deadline) {
		captured, _ = os.ReadFile(path)
		if strings.Count(string(captured), "get-wavelength") == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if strings.Count(string(captured), "get-wavelength") != 2 {
		t.Fatalf("capture file should hold both requests, got %q", captured)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("serve exit err: %v", err)
	}
}

func TestDaemonGetDoesNotConsume(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.CaptureEnabled = false
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	linkLn, gatewayLn := listen(t), listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- d.Serve(ctx, linkLn, gatewayLn, nil)
	}()

	d.Cell().Set(1550.25)
	callCtx, callCancel := context.WithTimeout(ctx, 5*time.Second)
	defer callCancel()
	gw := gateway.NewClient("http://" + gatewayLn.Addr().String() + "/")
	for i := 0; i < 3; i++ {
		if _, err := gw.Get(callCtx); err != nil {
			t.Fatalf("gateway get: %v", err)
		}
	}
	c, err := link.Dial(callCtx, linkLn.Addr().String())
	if err != nil {
		t.Fatalf("dial link: %v", err)
	}
	defer c.Close()
	v, status, err := c.GetWavelength(callCtx)
	if err != nil {
		t.Fatalf("get wavelength: %v", err)
	}
	if v != 1550.25 || status != reply.StatusOK {
		t.Fatalf("peeks must not consume, got v=%v status=%q", v, status)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("serve exit err: %v", err)
	}
}
