package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultMaxURLLength   = 8192
	DefaultMaxBodySize    = 1 << 20 // 1MB
	DefaultRequestTimeout = 30 * time.Second
)

type HTTPConfig struct {
	AllowedHosts   []string
	MaxBodySize    int64
	MaxURLLength   int
	RequestTimeout time.Duration
}

// HTTP performs outbound requests restricted to an allow-list of hosts.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.MaxURLLength == 0 {
		cfg.MaxURLLength = DefaultMaxURLLength
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	return &HTTP{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// Get fetches rawURL and returns the response body.
func (h *HTTP) Get(ctx context.Context, rawURL string) (string, error) {
	return h.do(ctx, http.MethodGet, rawURL, "")
}

// Post sends body to rawURL and returns the response body.
func (h *HTTP) Post(ctx context.Context, rawURL, body string) (string, error) {
	if int64(len(body)) > h.cfg.MaxBodySize {
		return "", errors.New("request body exceeds max size")
	}
	return h.do(ctx, http.MethodPost, rawURL, body)
}

func (h *HTTP) do(ctx context.Context, method, rawURL, body string) (string, error) {
	if rawURL == "" {
		return "", errors.New("url required")
	}
	if len(rawURL) > h.cfg.MaxURLLength {
		return "", errors.New("url exceeds max length")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.New("invalid url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("scheme must be http or https")
	}
	if len(h.cfg.AllowedHosts) == 0 {
		return "", errors.New("http not enabled")
	}
	host := parsed.Hostname()
	if !h.isHostAllowed(host) {
		return "", fmt.Errorf("host not allowed: %s", host)
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.cfg.MaxBodySize))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s %s: status %d", method, rawURL, resp.StatusCode)
	}
	return string(data), nil
}

func (h *HTTP) isHostAllowed(host string) bool {
	for _, allowed := range h.cfg.AllowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// Register adds http_get and http_post to r.
func (h *HTTP) Register(r *Registry) error {
	return registerMethods(r, h, map[string]any{
		"http_get":  (*HTTP).Get,
		"http_post": (*HTTP).Post,
	})
}
