package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPClient is the FTP/FTPS protocol adapter
type FTPClient struct {
	timeout       time.Duration
	username      string
	password      string
	useTLS        bool
	skipTLSVerify bool
}

// FTPClientOption configures FTPClient
type FTPClientOption func(*FTPClient)

// WithFTPTimeout sets the connection timeout
func WithFTPTimeout(timeout time.Duration) FTPClientOption {
	return func(c *FTPClient) {
		c.timeout = timeout
	}
}

// WithFTPAuth sets FTP credentials
func WithFTPAuth(username, password string) FTPClientOption {
	return func(c *FTPClient) {
		c.username = username
		c.password = password
	}
}

// WithFTPS enables explicit FTPS (AUTH TLS)
func WithFTPS(useTLS bool) FTPClientOption {
	return func(c *FTPClient) {
		c.useTLS = useTLS
	}
}

// WithFTPSkipTLSVerify skips TLS certificate verification
func WithFTPSkipTLSVerify(skip bool) FTPClientOption {
	return func(c *FTPClient) {
		c.skipTLSVerify = skip
	}
}

// NewFTPClient creates a new FTP client with the given options
func NewFTPClient(opts ...FTPClientOption) *FTPClient {
	c := &FTPClient{
		timeout:  30 * time.Second,
		username: "anonymous",
		password: "oneclick@example.com",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Supports checks if the URL is supported by this adapter
func (c *FTPClient) Supports(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return scheme == "ftp" || scheme == "ftps"
}

// connect dials and authenticates, returning the connection and file path
func (c *FTPClient) connect(rawURL string) (*ftp.ServerConn, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parsing URL: %w", err)
	}

	useTLS := c.useTLS || strings.EqualFold(parsed.Scheme, "ftps")

	host := parsed.Host
	if !strings.Contains(host, ":") {
		host += ":21"
	}

	dialOpts := []ftp.DialOption{ftp.DialWithTimeout(c.timeout)}
	if useTLS {
		dialOpts = append(dialOpts, ftp.DialWithExplicitTLS(&tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: c.skipTLSVerify,
			ServerName:         parsed.Hostname(),
		}))
	}

	conn, err := ftp.Dial(host, dialOpts...)
	if err != nil {
		return nil, "", fmt.Errorf("connecting to FTP server: %w", err)
	}

	username := c.username
	password := c.password
	if parsed.User != nil {
		username = parsed.User.Username()
		if p, ok := parsed.User.Password(); ok {
			password = p
		}
	}

	if err := conn.Login(username, password); err != nil {
		conn.Quit()
		return nil, "", fmt.Errorf("FTP login failed: %w", err)
	}

	filePath := parsed.Path
	if filePath == "" {
		filePath = "/"
	}
	return conn, filePath, nil
}

// Head fetches metadata about the file without downloading it
func (c *FTPClient) Head(ctx context.Context, rawURL string) (*Metadata, error) {
	conn, filePath, err := c.connect(rawURL)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	size, err := conn.FileSize(filePath)
	if err != nil {
		return nil, fmt.Errorf("getting file size: %w", err)
	}

	// Some servers don't support MDTM; that's non-fatal
	modTime, err := conn.GetTime(filePath)
	if err != nil {
		modTime = time.Time{}
	}

	return &Metadata{
		URL:           rawURL,
		Filename:      baseFilename(filePath),
		ContentLength: size,
		ContentType:   "application/octet-stream",
		LastModified:  modTime,
	}, nil
}

// Get downloads the entire file
func (c *FTPClient) Get(ctx context.Context, rawURL string) (io.ReadCloser, *Metadata, error) {
	conn, filePath, err := c.connect(rawURL)
	if err != nil {
		return nil, nil, err
	}

	size, err := conn.FileSize(filePath)
	if err != nil {
		conn.Quit()
		return nil, nil, fmt.Errorf("getting file size: %w", err)
	}

	resp, err := conn.Retr(filePath)
	if err != nil {
		conn.Quit()
		return nil, nil, fmt.Errorf("retrieving file: %w", err)
	}

	meta := &Metadata{
		URL:           rawURL,
		Filename:      baseFilename(filePath),
		ContentLength: size,
		ContentType:   "application/octet-stream",
	}

	return &ftpReadCloser{resp: resp, conn: conn}, meta, nil
}

// baseFilename returns the last path element, or "download" when empty
func baseFilename(p string) string {
	name := path.Base(p)
	if name == "" || name == "." || name == "/" {
		return "download"
	}
	return name
}

// ftpReadCloser closes both the data connection and the control connection
type ftpReadCloser struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpReadCloser) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpReadCloser) Close() error {
	err := r.resp.Close()
	if quitErr := r.conn.Quit(); err == nil {
		err = quitErr
	}
	return err
}
