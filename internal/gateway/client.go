package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client calls a running update gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Get returns the gateway's text answer for the current value.
func (c *Client) Get(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodGet, "/get")
}

// Set overwrites the current value.
func (c *Client) Set(ctx context.Context, v float64) (string, error) {
	return c.SetLiteral(ctx, strconv.FormatFloat(v, 'f', -1, 64))
}

// SetLiteral sends raw unparsed so gateway-side validation applies.
func (c *Client) SetLiteral(ctx context.Context, raw string) (string, error) {
	return c.do(ctx, http.MethodPut, "/set/"+raw)
}

func (c *Client) do(ctx context.Context, method, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway: %s %s status=%d body=%q", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}
