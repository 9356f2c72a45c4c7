package verify

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/budingricky/oneclick/internal/logging"
)

// readProbeSize is how much of the file is read to confirm readability.
const readProbeSize = 1024

// executableExtensions is the set of installer/archive types the manager
// accepts as download targets.
var executableExtensions = map[string]struct{}{
	".exe": {},
	".msi": {},
	".zip": {},
	".rar": {},
	".7z":  {},
	".dmg": {},
	".pkg": {},
	".deb": {},
	".rpm": {},
}

// Validator decides whether a local file is an acceptable copy of a
// catalog record. It never returns errors; every outcome is an
// (ok, reason) pair so callers can report and move on.
type Validator struct {
	log       *logging.Logger
	algorithm Algorithm
}

// NewValidator creates a Validator hashing with the given algorithm.
func NewValidator(log *logging.Logger, algorithm Algorithm) *Validator {
	if algorithm == "" {
		algorithm = AlgorithmSHA256
	}
	return &Validator{log: log, algorithm: algorithm}
}

// Algorithm returns the validator's digest algorithm.
func (v *Validator) Algorithm() Algorithm {
	return v.algorithm
}

// HashFile streams the file and returns its hex digest.
// Any I/O failure is logged and yields an empty string, never an error.
func (v *Validator) HashFile(path string) string {
	return v.hashWith(path, v.algorithm)
}

func (v *Validator) hashWith(path string, algorithm Algorithm) string {
	sum, err := Calculate(path, algorithm)
	if err != nil {
		v.log.Error(logging.ChannelValidation, "hashing file failed",
			"path", path, "algorithm", string(algorithm), "error", err)
		return ""
	}
	return sum.Value
}

// Validate checks a local file against optional expected hash and size.
// The expected hash may carry an "algorithm:" prefix; without one the
// algorithm is detected from the digest length. The comparison is
// case-insensitive. expectedSize <= 0 means the size is unknown.
func (v *Validator) Validate(path, expectedHash string, expectedSize int64) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, "file does not exist"
	}

	if expectedSize > 0 && info.Size() != expectedSize {
		return false, fmt.Sprintf("size mismatch: expected %d, got %d", expectedSize, info.Size())
	}

	if expectedHash != "" {
		expected, err := ParseChecksumAuto(expectedHash)
		if err != nil {
			return false, fmt.Sprintf("invalid expected hash: %v", err)
		}
		actual := v.hashWith(path, expected.Algorithm)
		if actual == "" {
			return false, "hashing file failed"
		}
		if !strings.EqualFold(actual, expected.Value) {
			return false, fmt.Sprintf("hash mismatch: expected %s, got %s", expected.Value, actual)
		}
	}

	if ok, reason := v.probeReadable(path); !ok {
		return false, reason
	}

	return true, "file intact"
}

// probeReadable reads the first 1KB to confirm the file is readable.
func (v *Validator) probeReadable(path string) (bool, string) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Sprintf("file not readable: %v", err)
	}
	defer f.Close()

	buf := make([]byte, readProbeSize)
	if _, err := f.Read(buf); err != nil && err != io.EOF {
		return false, fmt.Sprintf("file not readable: %v", err)
	}
	return true, "readable"
}

// ValidateExecutable checks that a file looks like a plausible installer
// package: known extension, non-zero size, and for .exe an MZ header.
func (v *Validator) ValidateExecutable(path string) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, "file does not exist"
	}

	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := executableExtensions[ext]; !ok {
		return false, fmt.Sprintf("unsupported file type: %s", ext)
	}

	if info.Size() == 0 {
		return false, "file is empty"
	}

	if ext == ".exe" {
		f, err := os.Open(path)
		if err != nil {
			return false, fmt.Sprintf("file not readable: %v", err)
		}
		defer f.Close()

		header := make([]byte, 2)
		if _, err := io.ReadFull(f, header); err != nil {
			return false, fmt.Sprintf("reading header: %v", err)
		}
		if header[0] != 'M' || header[1] != 'Z' {
			return false, "invalid PE header"
		}
	}

	return true, "executable looks valid"
}
