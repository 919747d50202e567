package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Token format: aw_{env}_{prefix}_{secret}
// Example: aw_live_7a9x3k_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	TokenPrefixLen = 6  // Visible prefix length (hex encoded 3 bytes)
	TokenSecretLen = 32 // Secret length (hex encoded 16 bytes)
)

// Environment indicators for token prefix.
const (
	EnvLive = "live"
	EnvTest = "test"
)

var (
	// ErrInvalidTokenFormat indicates the token format is invalid.
	ErrInvalidTokenFormat = errors.New("invalid token format")
	// ErrInvalidKeyringEntry indicates a configured entry is not prefix=hash.
	ErrInvalidKeyringEntry = errors.New("keyring entry must be prefix=argon2id-hash")

	tokenFormatRegex = regexp.MustCompile(`^aw_(live|test)_([a-f0-9]{6})_([a-f0-9]{32})$`)
)

// GeneratedToken contains the parts of a newly generated token.
type GeneratedToken struct {
	Plaintext string // Full token (show once only)
	Hash      string // Argon2id hash for configuration
	Prefix    string // 6-char visible prefix
}

// KeyringEntry renders the prefix=hash form ADMIN_TOKENS expects.
func (g *GeneratedToken) KeyringEntry() string {
	return g.Prefix + "=" + g.Hash
}

// GenerateToken creates a new operator token for env.
func GenerateToken(env string) (*GeneratedToken, error) {
	if env != EnvLive && env != EnvTest {
		env = EnvLive
	}

	prefixBytes := make([]byte, 3)
	if _, err := rand.Read(prefixBytes); err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	prefix := hex.EncodeToString(prefixBytes)

	secretBytes := make([]byte, 16)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := fmt.Sprintf("aw_%s_%s_%s", env, prefix, hex.EncodeToString(secretBytes))

	hash, err := HashToken(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash token: %w", err)
	}

	return &GeneratedToken{
		Plaintext: plaintext,
		Hash:      hash,
		Prefix:    prefix,
	}, nil
}

// ParsedToken contains the parsed parts of a token.
type ParsedToken struct {
	Env    string
	Prefix string
	Secret string
}

// ParseToken extracts the components from a plaintext token.
func ParseToken(token string) (*ParsedToken, error) {
	matches := tokenFormatRegex.FindStringSubmatch(token)
	if matches == nil {
		return nil, ErrInvalidTokenFormat
	}

	return &ParsedToken{
		Env:    matches[1],
		Prefix: matches[2],
		Secret: matches[3],
	}, nil
}

// Keyring holds the configured token hashes, grouped by prefix.
// Successful verifications are remembered by digest so that the argon2
// cost is paid once per token per process.
type Keyring struct {
	hashes   map[string][]string
	verified sync.Map // QuickHash(token) -> prefix
}

// ParseKeyring builds a Keyring from prefix=hash entries. Blank entries are
// skipped.
func ParseKeyring(entries []string) (*Keyring, error) {
	k := &Keyring{hashes: make(map[string][]string)}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		prefix, hash, ok := strings.Cut(entry, "=")
		if !ok || len(prefix) != TokenPrefixLen || !strings.HasPrefix(hash, "$argon2id$") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKeyringEntry, truncateEntry(entry))
		}
		k.hashes[prefix] = append(k.hashes[prefix], hash)
	}
	return k, nil
}

// Len returns the number of configured hashes.
func (k *Keyring) Len() int {
	n := 0
	for _, hashes := range k.hashes {
		n += len(hashes)
	}
	return n
}

// Verify reports whether token matches a configured hash and returns the
// token prefix for logging.
func (k *Keyring) Verify(token string) (string, bool) {
	digest := QuickHash(token)
	if prefix, ok := k.verified.Load(digest); ok {
		return prefix.(string), true
	}

	parsed, err := ParseToken(token)
	if err != nil {
		return "", false
	}

	// Prefix collisions are possible, so every candidate is checked
	for _, hash := range k.hashes[parsed.Prefix] {
		match, err := VerifyToken(token, hash)
		if err != nil || !match {
			continue
		}
		k.verified.Store(digest, parsed.Prefix)
		return parsed.Prefix, true
	}
	return "", false
}

func truncateEntry(entry string) string {
	if len(entry) > 16 {
		return entry[:16] + "..."
	}
	return entry
}

// Principal identifies the operator behind a request.
type Principal struct {
	TokenPrefix string
}

type contextKey string

const principalContextKey contextKey = "principal"

// ContextWithPrincipal adds p to ctx.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}
