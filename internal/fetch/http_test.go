package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestHTTPClient_Supports(t *testing.T) {
	client := NewHTTPClient()

	tests := []struct {
		name     string
		rawURL   string
		expected bool
	}{
		{"http scheme", "http://example.com/file.zip", true},
		{"https scheme", "https://example.com/file.zip", true},
		{"HTTP uppercase", "HTTP://example.com/file.zip", true},
		{"ftp scheme", "ftp://example.com/file.zip", false},
		{"sftp scheme", "sftp://example.com/file.zip", false},
		{"no scheme", "example.com/file.zip", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.rawURL)
			if err != nil {
				t.Fatalf("Failed to parse URL: %v", err)
			}
			if got := client.Supports(u); got != tt.expected {
				t.Errorf("Supports(%q) = %v, want %v", tt.rawURL, got, tt.expected)
			}
		})
	}
}

func TestHTTPClient_Head(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("Expected HEAD request, got %s", r.Method)
		}
		w.Header().Set("Content-Length", "1024")
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient()
	meta, err := client.Head(context.Background(), server.URL+"/file.zip")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}

	if meta.ContentLength != 1024 {
		t.Errorf("ContentLength = %d, want 1024", meta.ContentLength)
	}
	if meta.ContentType != "application/zip" {
		t.Errorf("ContentType = %s", meta.ContentType)
	}
	if meta.Filename != "file.zip" {
		t.Errorf("Filename = %s, want file.zip", meta.Filename)
	}
	if meta.LastModified.IsZero() {
		t.Error("LastModified not parsed")
	}
}

func TestHTTPClient_HeadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPClient()
	if _, err := client.Head(context.Background(), server.URL+"/missing.zip"); err == nil {
		t.Error("Head on 404 expected error")
	}
}

func TestHTTPClient_Get(t *testing.T) {
	content := []byte("file content here")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got %s", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); ua != "test-agent/1.0" {
			t.Errorf("User-Agent = %s, want test-agent/1.0", ua)
		}
		if got := r.Header.Get("X-Custom"); got != "value" {
			t.Errorf("X-Custom = %s, want value", got)
		}
		w.Header().Set("Content-Disposition", `attachment; filename="latest.exe"`)
		w.Write(content)
	}))
	defer server.Close()

	client := NewHTTPClient(
		WithUserAgent("test-agent/1.0"),
		WithHeader("X-Custom", "value"),
		WithTimeout(5*time.Second),
	)

	body, meta, err := client.Get(context.Background(), server.URL+"/file.exe")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("body = %q, want %q", data, content)
	}
	if meta.Filename != "latest.exe" {
		t.Errorf("Filename = %s, want latest.exe (from Content-Disposition)", meta.Filename)
	}
}

func TestHTTPClient_GetError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient()
	if _, _, err := client.Get(context.Background(), server.URL+"/file.exe"); err == nil {
		t.Error("Get on 500 expected error")
	}
}

func TestHTTPClient_BasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			t.Errorf("BasicAuth = (%s, %s, %v)", user, pass, ok)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(WithBasicAuth("alice", "secret"))
	if _, err := client.Head(context.Background(), server.URL); err != nil {
		t.Fatalf("Head: %v", err)
	}
}

func TestFilenameFromURL(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		want   string
	}{
		{"simple", "https://example.com/file.zip", "file.zip"},
		{"nested path", "https://example.com/a/b/setup.exe", "setup.exe"},
		{"query ignored", "https://example.com/app.msi?token=abc", "app.msi"},
		{"encoded", "https://example.com/my%20file.zip", "my file.zip"},
		{"trailing slash", "https://example.com/downloads/", "download"},
		{"no path", "https://example.com", "download"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilenameFromURL(tt.rawURL); got != tt.want {
				t.Errorf("FilenameFromURL(%q) = %q, want %q", tt.rawURL, got, tt.want)
			}
		})
	}
}

func TestParseContentDisposition(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"quoted", `attachment; filename="example.zip"`, "example.zip"},
		{"unquoted", `attachment; filename=example.zip`, "example.zip"},
		{"rfc5987", `attachment; filename*=UTF-8''na%C3%AFve.exe`, "naïve.exe"},
		{"no filename", `attachment`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseContentDisposition(tt.input); got != tt.want {
				t.Errorf("parseContentDisposition(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
