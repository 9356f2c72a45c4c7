// Package verify provides file integrity checks for downloaded software.
package verify

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm identifies a supported digest algorithm
type Algorithm string

const (
	AlgorithmMD5    Algorithm = "md5"
	AlgorithmSHA1   Algorithm = "sha1"
	AlgorithmSHA256 Algorithm = "sha256"
	AlgorithmSHA512 Algorithm = "sha512"
	AlgorithmBLAKE3 Algorithm = "blake3"
)

// Checksum is a digest value paired with its algorithm
type Checksum struct {
	Algorithm Algorithm
	Value     string
}

// ParseChecksum parses a checksum string in format "algorithm:value"
// Examples: "sha256:abc123...", "md5:def456..."
func ParseChecksum(s string) (*Checksum, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid checksum format, expected 'algorithm:value'")
	}

	algorithm := Algorithm(strings.ToLower(parts[0]))
	value := strings.ToLower(parts[1])

	switch algorithm {
	case AlgorithmMD5, AlgorithmSHA1, AlgorithmSHA256, AlgorithmSHA512, AlgorithmBLAKE3:
		// Valid
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm: %s", algorithm)
	}

	if _, err := hex.DecodeString(value); err != nil {
		return nil, fmt.Errorf("invalid checksum hex value: %w", err)
	}

	return &Checksum{
		Algorithm: algorithm,
		Value:     value,
	}, nil
}

// String returns the checksum in "algorithm:value" format
func (c *Checksum) String() string {
	return fmt.Sprintf("%s:%s", c.Algorithm, c.Value)
}

// Hasher returns a fresh hash.Hash for the checksum's algorithm, for
// callers that digest a stream as they consume it.
func (c *Checksum) Hasher() (hash.Hash, error) {
	return newHasher(c.Algorithm)
}

// newHasher creates a new hash.Hash for the given algorithm
func newHasher(algorithm Algorithm) (hash.Hash, error) {
	switch algorithm {
	case AlgorithmMD5:
		return md5.New(), nil
	case AlgorithmSHA1:
		return sha1.New(), nil
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmSHA512:
		return sha512.New(), nil
	case AlgorithmBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algorithm)
	}
}

// Calculate calculates the checksum of a file
func Calculate(path string, algorithm Algorithm) (*Checksum, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	hasher, err := newHasher(algorithm)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(hasher, file); err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return &Checksum{
		Algorithm: algorithm,
		Value:     hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// CalculateReader calculates a checksum from a reader
func CalculateReader(r io.Reader, algorithm Algorithm) (*Checksum, error) {
	hasher, err := newHasher(algorithm)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(hasher, r); err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	return &Checksum{
		Algorithm: algorithm,
		Value:     hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Matches verifies a file against an expected checksum.
// A nil expected checksum always matches.
func Matches(path string, expected *Checksum) (bool, error) {
	if expected == nil {
		return true, nil
	}

	actual, err := Calculate(path, expected.Algorithm)
	if err != nil {
		return false, err
	}

	return strings.EqualFold(actual.Value, expected.Value), nil
}

// DetectAlgorithmFromLength tries to detect the algorithm from digest length
func DetectAlgorithmFromLength(value string) Algorithm {
	switch len(value) {
	case 32: // MD5 (16 bytes)
		return AlgorithmMD5
	case 40: // SHA1 (20 bytes)
		return AlgorithmSHA1
	case 128: // SHA512 (64 bytes)
		return AlgorithmSHA512
	default: // SHA256 and BLAKE3 are both 64 hex chars; default to SHA256
		return AlgorithmSHA256
	}
}

// ParseChecksumAuto parses a checksum value and auto-detects the algorithm
// when no "algorithm:" prefix is present.
func ParseChecksumAuto(value string) (*Checksum, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return nil, nil
	}

	if strings.Contains(value, ":") {
		return ParseChecksum(value)
	}

	if _, err := hex.DecodeString(value); err != nil {
		return nil, fmt.Errorf("invalid checksum hex value: %w", err)
	}

	return &Checksum{
		Algorithm: DetectAlgorithmFromLength(value),
		Value:     value,
	}, nil
}
