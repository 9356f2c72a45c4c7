// Package fetch provides protocol adapters used to retrieve catalog items.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"
)

// Metadata contains information about a remote file
type Metadata struct {
	URL           string
	Filename      string
	ContentLength int64
	ContentType   string
	LastModified  time.Time
}

// Client is a protocol adapter. Each adapter decides from the URL scheme
// whether it can serve a request.
type Client interface {
	Supports(u *url.URL) bool
	Head(ctx context.Context, rawURL string) (*Metadata, error)
	Get(ctx context.Context, rawURL string) (io.ReadCloser, *Metadata, error)
}

// Dispatcher routes requests to the first adapter supporting the URL.
type Dispatcher struct {
	clients []Client
}

// NewDispatcher creates a dispatcher over the given adapters, in order.
func NewDispatcher(clients ...Client) *Dispatcher {
	return &Dispatcher{clients: clients}
}

// ForURL returns the adapter responsible for the URL.
func (d *Dispatcher) ForURL(rawURL string) (Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}
	for _, c := range d.clients {
		if c.Supports(parsed) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no protocol adapter for scheme %q", parsed.Scheme)
}

// Head fetches metadata through the adapter for the URL.
func (d *Dispatcher) Head(ctx context.Context, rawURL string) (*Metadata, error) {
	c, err := d.ForURL(rawURL)
	if err != nil {
		return nil, err
	}
	return c.Head(ctx, rawURL)
}

// Get opens a download stream through the adapter for the URL.
func (d *Dispatcher) Get(ctx context.Context, rawURL string) (io.ReadCloser, *Metadata, error) {
	c, err := d.ForURL(rawURL)
	if err != nil {
		return nil, nil, err
	}
	return c.Get(ctx, rawURL)
}
