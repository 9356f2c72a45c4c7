package repair

import (
	"context"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	"github.com/budingricky/oneclick/internal/catalog"
	"github.com/budingricky/oneclick/internal/fetch"
	"github.com/budingricky/oneclick/internal/logging"
	"github.com/budingricky/oneclick/internal/storage"
	"github.com/budingricky/oneclick/internal/verify"
)

// knownExtensions is the allow-list used when guessing a filename
// extension from the URL path. Scan order is fixed so derivation stays
// deterministic.
var knownExtensions = []string{
	".exe", ".msi", ".zip", ".rar", ".7z", ".dmg", ".pkg", ".deb", ".rpm",
}

// Fetcher opens a download stream for a URL. *fetch.Dispatcher satisfies it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (io.ReadCloser, *fetch.Metadata, error)
}

// Config holds corrector settings.
type Config struct {
	MaxRetries int           // HTTP attempt budget per record
	Backoff    Backoff       // delay between attempts
	RateLimit  *rate.Limiter // optional download throttle, nil = unlimited

	// Optional observers, nil is fine.
	OnRepair func()      // invalid file deleted ahead of a re-download
	OnBytes  func(int64) // bytes written per completed stream
}

// DefaultConfig returns the default corrector configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		Backoff:    DefaultBackoff(),
	}
}

// Corrector guarantees a catalog record ends up as a validated local file,
// or reports definitive failure within a bounded attempt budget.
type Corrector struct {
	fetcher   Fetcher
	validator *verify.Validator
	log       *logging.Logger
	config    Config
}

// NewCorrector creates a Corrector.
func NewCorrector(fetcher Fetcher, validator *verify.Validator, log *logging.Logger, config Config) *Corrector {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.Backoff.Initial <= 0 {
		config.Backoff = DefaultBackoff()
	}
	return &Corrector{
		fetcher:   fetcher,
		validator: validator,
		log:       log,
		config:    config,
	}
}

// TargetPath returns the deterministic local path for a record.
func (c *Corrector) TargetPath(rec *catalog.Record, targetDir string) string {
	return filepath.Join(targetDir, Filename(rec))
}

// Correct validates the record's local file, re-downloading and repairing
// it as needed. It returns (ok, message) rather than an error; every
// failure is scoped to this record.
func (c *Corrector) Correct(ctx context.Context, rec *catalog.Record, targetDir string) (bool, string) {
	filePath := c.TargetPath(rec, targetDir)
	mirrors := NewMirrors(rec.URL, rec.Mirrors)

	var lastReason string

	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, fmt.Sprintf("canceled: %v", err)
		}

		c.log.Info(logging.ChannelValidation, "repair attempt",
			"software", rec.Name, "attempt", attempt+1, "max", c.config.MaxRetries)

		// An existing valid file ends the loop without touching the network.
		if storage.FileExists(filePath) {
			if ok, reason := c.validator.Validate(filePath, rec.Hash, rec.Size); ok {
				c.log.Info(logging.ChannelValidation, "file verified",
					"software", rec.Name, "path", filePath)
				return true, "file intact"
			} else {
				lastReason = reason
				c.log.Warn(logging.ChannelValidation, "file invalid, re-downloading",
					"software", rec.Name, "reason", reason)
				if c.config.OnRepair != nil {
					c.config.OnRepair()
				}
				if err := storage.RemoveFile(filePath); err != nil {
					lastReason = fmt.Sprintf("removing invalid file: %v", err)
					c.log.Error(logging.ChannelValidation, "removing invalid file failed",
						"software", rec.Name, "path", filePath, "error", err)
				}
			}
		}

		downloadURL := mirrors.Next()
		if err := c.download(ctx, downloadURL, filePath, rec.Hash); err != nil {
			lastReason = err.Error()
			c.log.Error(logging.ChannelDownload, "download failed",
				"software", rec.Name, "url", downloadURL, "error", err)
		} else {
			ok, reason := c.validator.Validate(filePath, rec.Hash, rec.Size)
			if ok {
				c.log.Info(logging.ChannelDownload, "download verified",
					"software", rec.Name, "path", filePath)
				return true, "download verified"
			}
			lastReason = reason
			c.log.Warn(logging.ChannelValidation, "downloaded file invalid",
				"software", rec.Name, "reason", reason)
			// Never leave a corrupt file that a later run could accept.
			if err := storage.RemoveFile(filePath); err != nil {
				c.log.Error(logging.ChannelValidation, "removing invalid download failed",
					"software", rec.Name, "path", filePath, "error", err)
			}
		}

		if attempt < c.config.MaxRetries-1 {
			if err := c.config.Backoff.Wait(ctx, attempt); err != nil {
				return false, fmt.Sprintf("canceled: %v", err)
			}
		}
	}

	exhausted := &ExhaustedRetriesError{
		Name:     rec.Name,
		Attempts: c.config.MaxRetries,
		LastErr:  fmt.Errorf("%s", lastReason),
	}
	c.log.Error(logging.ChannelDownload, "retries exhausted",
		"software", rec.Name, "attempts", c.config.MaxRetries, "last", lastReason)
	return false, exhausted.Error()
}

// download streams the URL to the target path, digesting the stream
// against expectedHash as it goes. A failed stream removes the partial
// file so retries start clean.
func (c *Corrector) download(ctx context.Context, rawURL, filePath, expectedHash string) error {
	body, meta, err := c.fetcher.Get(ctx, rawURL)
	if err != nil {
		return &TransportError{URL: rawURL, Err: err}
	}
	defer body.Close()

	writer, err := storage.NewFileWriter(filePath)
	if err != nil {
		return err
	}

	var reader io.Reader = fetch.NewLimitedReader(ctx, body, c.config.RateLimit)

	// An unparseable expected hash is left for validation to report.
	var hasher hash.Hash
	expected, err := verify.ParseChecksumAuto(expectedHash)
	if err == nil && expected != nil {
		if hasher, err = expected.Hasher(); err == nil {
			reader = io.TeeReader(reader, hasher)
		}
	}

	written, err := io.Copy(writer, reader)
	if err != nil {
		writer.Close()
		storage.RemoveFile(filePath)
		return &TransportError{URL: rawURL, Err: err}
	}

	if err := writer.Sync(); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	// A truncated stream that ended without an error still isn't a
	// complete download.
	if meta.ContentLength > 0 && written != meta.ContentLength {
		storage.RemoveFile(filePath)
		return &SizeMismatchError{Expected: meta.ContentLength, Actual: written}
	}

	if hasher != nil {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(actual, expected.Value) {
			storage.RemoveFile(filePath)
			return &HashMismatchError{Expected: expected.Value, Actual: actual}
		}
	}

	if c.config.OnBytes != nil {
		c.config.OnBytes(written)
	}
	c.log.Info(logging.ChannelDownload, "download complete",
		"url", rawURL, "path", filePath, "bytes", written, "declared", meta.ContentLength)
	return nil
}

// Filename derives the deterministic local filename for a record:
// the explicit filename field when set; else the URL path basename when
// it carries an extension; else the sanitized record name plus an
// extension guessed from the URL path, defaulting to .exe.
func Filename(rec *catalog.Record) string {
	if rec.Filename != "" {
		return rec.Filename
	}

	var urlPath string
	if u, err := url.Parse(rec.URL); err == nil {
		urlPath = u.Path
		base := path.Base(urlPath)
		if base != "." && base != "/" && path.Ext(base) != "" {
			if decoded, err := url.PathUnescape(base); err == nil {
				base = decoded
			}
			return base
		}
	}

	ext := ".exe"
	lowerPath := strings.ToLower(urlPath)
	for _, known := range knownExtensions {
		if strings.Contains(lowerPath, known) {
			ext = known
			break
		}
	}

	return sanitizeName(rec.Name) + ext
}

// sanitizeName keeps letters, digits and "._- ", replacing the rest with
// underscores, matching how target filenames are generated everywhere.
func sanitizeName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.' || r == '_' || r == '-' || r == ' ':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "download"
	}
	return sb.String()
}
