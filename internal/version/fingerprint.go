package version

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// fingerprintLength is the number of hex characters kept from a digest.
const fingerprintLength = 16

// Fingerprinter derives a content fingerprint for an object path.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, path string) (string, error)
}

// FingerprintFunc adapts a function to Fingerprinter.
type FingerprintFunc func(ctx context.Context, path string) (string, error)

// Fingerprint calls f.
func (f FingerprintFunc) Fingerprint(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// HashReader returns a short blake2b-256 hex digest of r's content.
func HashReader(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("init blake2b: %w", err)
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLength], nil
}
