package tool

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	coreconfig "github.com/coco4atJP/tepora-alpha-sub000/internal/config"
)

// FetchConfig tunes the web_fetch SSRF guard and byte/char ceilings.
type FetchConfig struct {
	AllowWebSearch bool
	Denylist       []string // host patterns, "*" wildcard at prefix or suffix
	MaxChars       int      // default 6000, clamped [256, 200000]
	MaxBytes       int      // default 1_000_000, clamped [1024, 10_000_000]
	TimeoutSecs    int      // default 10, clamped [1, 120]
}

// DefaultDenylist mirrors the hard-coded fallback used when no
// privacy.url_denylist is configured.
var DefaultDenylist = []string{
	"localhost", "*.localhost", "127.0.0.1", "0.0.0.0",
	"192.168.*", "10.*",
	"172.16.*", "172.17.*", "172.18.*", "172.19.*", "172.20.*", "172.21.*",
	"172.22.*", "172.23.*", "172.24.*", "172.25.*", "172.26.*", "172.27.*",
	"172.28.*", "172.29.*", "172.30.*", "172.31.*",
	"169.254.*", "::1", "fd*", "fe80:*",
}

func (c FetchConfig) denylist() []string {
	if len(c.Denylist) > 0 {
		return c.Denylist
	}
	return DefaultDenylist
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (c FetchConfig) maxChars() int {
	if c.MaxChars == 0 {
		return 6000
	}
	return clamp(c.MaxChars, 256, 200_000)
}

func (c FetchConfig) maxBytes() int {
	if c.MaxBytes == 0 {
		return 1_000_000
	}
	return clamp(c.MaxBytes, 1024, 10_000_000)
}

func (c FetchConfig) timeout() time.Duration {
	secs := c.TimeoutSecs
	if secs == 0 {
		secs = 10
	}
	return time.Duration(clamp(secs, 1, 120)) * time.Second
}

// WebFetch implements the web_fetch native tool: HTTPS-first URL fetch with
// an SSRF guard over both the literal host and its resolved addresses.
type WebFetch struct {
	cfg     FetchConfig
	resolve func(ctx context.Context, host string) ([]net.IP, error)
}

// NewWebFetch constructs a WebFetch tool using net.DefaultResolver.
func NewWebFetch(cfg FetchConfig) *WebFetch {
	return &WebFetch{
		cfg: cfg,
		resolve: func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip", host)
		},
	}
}

func (w *WebFetch) Name() string        { return "native_web_fetch" }
func (w *WebFetch) Description() string { return "Fetch the text content of an http(s) URL." }
func (w *WebFetch) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"url": map[string]any{"type": "string"}},
		"required":   []string{"url"},
	}
}

// Call fetches the URL named by args["url"] (or args["link"]).
func (w *WebFetch) Call(ctx context.Context, args map[string]any) (Result, error) {
	if !w.cfg.AllowWebSearch {
		return Result{}, coreconfig.Forbidden("web access is disabled")
	}

	raw, _ := args["url"].(string)
	if raw == "" {
		raw, _ = args["link"].(string)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{}, coreconfig.Validation("URL missing")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return Result{}, coreconfig.Validation("invalid URL: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Result{}, coreconfig.Validation("only http/https URLs are supported")
	}

	if err := w.validateTarget(ctx, parsed); err != nil {
		return Result{}, err
	}

	client := &http.Client{
		Timeout: w.cfg.timeout(),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return Result{}, coreconfig.Internal(err, "building fetch request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, coreconfig.Internal(err, "fetching %s", parsed.Host)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, coreconfig.Upstream(nil, "fetch failed with status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, int64(w.cfg.maxBytes())+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return Result{}, coreconfig.Internal(err, "reading fetch response")
	}
	if len(body) > w.cfg.maxBytes() {
		return Result{}, coreconfig.Validation("fetched content exceeded max size of %d bytes", w.cfg.maxBytes())
	}

	text := string(body)
	runes := []rune(text)
	if len(runes) > w.cfg.maxChars() {
		text = string(runes[:w.cfg.maxChars()])
	}
	return Result{Output: text}, nil
}

func (w *WebFetch) validateTarget(ctx context.Context, u *url.URL) error {
	host := u.Hostname()
	if host == "" {
		return coreconfig.Validation("URL host is missing")
	}

	for _, pattern := range w.cfg.denylist() {
		if hostMatchesPattern(host, pattern) {
			return coreconfig.Forbidden("host %s is denylisted", host)
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return coreconfig.Forbidden("target IP %s is not publicly routable", ip)
		}
		return nil
	}

	addrs, err := w.resolve(ctx, host)
	if err != nil {
		return coreconfig.Internal(err, "resolving host %s", host)
	}
	if len(addrs) == 0 {
		return coreconfig.Validation("URL host could not be resolved")
	}
	for _, ip := range addrs {
		if isBlockedIP(ip) {
			return coreconfig.Forbidden("target IP %s is not publicly routable", ip)
		}
	}
	return nil
}

func hostMatchesPattern(host, pattern string) bool {
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)

	if strings.Contains(pattern, "*") {
		if strings.HasPrefix(pattern, "*") {
			return strings.HasSuffix(host, strings.TrimPrefix(pattern, "*"))
		}
		return strings.HasPrefix(host, strings.TrimSuffix(pattern, "*"))
	}
	return host == pattern
}
