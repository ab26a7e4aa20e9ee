package installer

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrChecksumMismatch indicates the downloaded bytes do not match the
// registry-published digest.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ChecksumError details a digest verification failure.
type ChecksumError struct {
	Filename string
	Expected string
	Got      string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s: expected %s, got %s", e.Filename, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// parseDigest extracts the hex hash from a "sha256:<hex>" digest.
func parseDigest(digest string) (string, bool) {
	algo, sum, found := strings.Cut(digest, ":")
	if !found || !strings.EqualFold(algo, "sha256") || !isValidHexHash(sum) {
		return "", false
	}
	return strings.ToLower(sum), true
}

func compareDigest(filename, want string, sum []byte) error {
	got := hex.EncodeToString(sum)
	if got != want {
		return &ChecksumError{Filename: filename, Expected: want, Got: got}
	}
	return nil
}

// isValidHexHash checks if s is a valid 64-character hex-encoded SHA256 hash.
func isValidHexHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
