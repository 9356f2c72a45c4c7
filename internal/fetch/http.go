package fetch

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// defaultUserAgent identifies oneclick to download servers
const defaultUserAgent = "oneclick/0.1"

// HTTPClient is the HTTP/HTTPS protocol adapter
type HTTPClient struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
}

// HTTPClientOption configures HTTPClient
type HTTPClientOption func(*HTTPClient)

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) HTTPClientOption {
	return func(c *HTTPClient) {
		c.userAgent = ua
	}
}

// WithHeader adds a custom header
func WithHeader(key, value string) HTTPClientOption {
	return func(c *HTTPClient) {
		c.headers[key] = value
	}
}

// WithBasicAuth sets Basic authentication
func WithBasicAuth(username, password string) HTTPClientOption {
	return func(c *HTTPClient) {
		if username != "" {
			auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
			c.headers["Authorization"] = "Basic " + auth
		}
	}
}

// WithProxy sets an HTTP or HTTPS proxy
func WithProxy(proxyURL string) HTTPClientOption {
	return func(c *HTTPClient) {
		if proxyURL == "" {
			return
		}
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return
		}
		c.transport().Proxy = http.ProxyURL(parsed)
	}
}

// WithSOCKS5Proxy sets a SOCKS5 proxy
func WithSOCKS5Proxy(proxyAddr string, auth *proxy.Auth) HTTPClientOption {
	return func(c *HTTPClient) {
		if proxyAddr == "" {
			return
		}

		if strings.HasPrefix(proxyAddr, "socks5://") {
			parsed, err := url.Parse(proxyAddr)
			if err != nil {
				return
			}
			proxyAddr = parsed.Host
			if parsed.User != nil {
				password, _ := parsed.User.Password()
				auth = &proxy.Auth{
					User:     parsed.User.Username(),
					Password: password,
				}
			}
		}

		dialer, err := proxy.SOCKS5("tcp", proxyAddr, auth, proxy.Direct)
		if err != nil {
			return
		}

		c.transport().DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification
func WithInsecureSkipVerify(skip bool) HTTPClientOption {
	return func(c *HTTPClient) {
		if !skip {
			return
		}
		t := c.transport()
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{}
		}
		t.TLSClientConfig.InsecureSkipVerify = true
	}
}

// transport returns the underlying transport, creating one if needed
func (c *HTTPClient) transport() *http.Transport {
	if t, ok := c.client.Transport.(*http.Transport); ok {
		return t
	}
	t := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	c.client.Transport = t
	return t
}

// NewHTTPClient creates a new HTTP client with the given options
func NewHTTPClient(opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: defaultUserAgent,
		headers:   make(map[string]string),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Supports checks if the URL is supported by this adapter
func (c *HTTPClient) Supports(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// Head fetches metadata about the file without downloading it
func (c *HTTPClient) Head(ctx context.Context, rawURL string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating HEAD request: %w", err)
	}

	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing HEAD request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HEAD request failed: %s", resp.Status)
	}

	return parseMetadata(rawURL, resp), nil
}

// Get downloads the entire file
func (c *HTTPClient) Get(ctx context.Context, rawURL string) (io.ReadCloser, *Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating GET request: %w", err)
	}

	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("executing GET request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("GET request failed: %s", resp.Status)
	}

	return resp.Body, parseMetadata(rawURL, resp), nil
}

// setHeaders sets common headers on the request
func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "identity") // No compressed responses for downloads

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
}

// parseMetadata extracts file metadata from an HTTP response
func parseMetadata(rawURL string, resp *http.Response) *Metadata {
	meta := &Metadata{
		URL:         rawURL,
		ContentType: resp.Header.Get("Content-Type"),
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if length, err := strconv.ParseInt(cl, 10, 64); err == nil {
			meta.ContentLength = length
		}
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			meta.LastModified = t
		}
	}

	meta.Filename = extractFilename(rawURL, resp)
	return meta
}

// extractFilename extracts filename from Content-Disposition header or URL
func extractFilename(rawURL string, resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if filename := parseContentDisposition(cd); filename != "" {
			return filename
		}
	}
	return FilenameFromURL(rawURL)
}

// FilenameFromURL returns the decoded last path segment of the URL,
// or "download" when the path has none.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}

	p := u.Path
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		p = p[idx+1:]
	}

	if decoded, err := url.QueryUnescape(p); err == nil {
		p = decoded
	}

	if p == "" {
		return "download"
	}
	return p
}

// parseContentDisposition extracts filename from a Content-Disposition header
func parseContentDisposition(cd string) string {
	// Handles: filename="example.zip", filename=example.zip and
	// filename*=UTF-8''example.zip (RFC 5987)
	parts := strings.Split(cd, ";")
	for _, part := range parts {
		part = strings.TrimSpace(part)

		if strings.HasPrefix(strings.ToLower(part), "filename*=") {
			value := part[10:]
			if idx := strings.Index(value, "''"); idx >= 0 {
				value = value[idx+2:]
			}
			if decoded, err := url.QueryUnescape(value); err == nil {
				return decoded
			}
			return value
		}

		if strings.HasPrefix(strings.ToLower(part), "filename=") {
			return strings.Trim(part[9:], `"'`)
		}
	}
	return ""
}
