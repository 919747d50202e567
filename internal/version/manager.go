// Package version resolves cache-busting version tokens for asset paths and
// tracks the last token issued per path.
package version

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/assetwatch/assetwatch/internal/model"
)

// Manager issues version descriptors and answers staleness queries.
type Manager struct {
	store         Store
	fingerprinter Fingerprinter
	baseURL       string
	now           func() time.Time
	logger        *slog.Logger
}

// Option customises a Manager.
type Option func(*Manager)

// WithStore sets where last-known versions are kept.
func WithStore(store Store) Option {
	return func(m *Manager) {
		if store != nil {
			m.store = store
		}
	}
}

// WithFingerprinter enables true content hashes for the hash strategy.
func WithFingerprinter(f Fingerprinter) Option {
	return func(m *Manager) {
		m.fingerprinter = f
	}
}

// WithBaseURL sets the prefix of resolved URLs.
func WithBaseURL(base string) Option {
	return func(m *Manager) {
		m.baseURL = base
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager backed by a MemoryStore unless WithStore is
// given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		store:  NewMemoryStore(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "version")
	return m
}

// Resolve issues a version for path.
//
// Timestamp versions always succeed. Hash versions use explicit as the
// content fingerprint when given, then the configured Fingerprinter; with
// neither, or when fingerprinting fails, the descriptor carries a
// time-derived token and Fallback is set. Semantic and manual versions
// require explicit and fail with a *ConfigError otherwise.
//
// The descriptor is remembered as the path's latest version. A store
// failure is logged and does not fail the call.
func (m *Manager) Resolve(ctx context.Context, path string, strategy model.VersionStrategy, explicit string) (model.VersionDescriptor, error) {
	if !strategy.IsValid() {
		return model.VersionDescriptor{}, &ConfigError{Path: path, Strategy: strategy, Err: ErrUnknownStrategy}
	}
	explicit = strings.TrimSpace(explicit)
	if strategy.RequiresExplicit() && explicit == "" {
		return model.VersionDescriptor{}, &ConfigError{Path: path, Strategy: strategy, Err: ErrVersionRequired}
	}

	now := m.now()
	desc := model.VersionDescriptor{
		Path:      path,
		Strategy:  strategy,
		CreatedAt: now,
	}

	switch strategy {
	case model.StrategyTimestamp:
		desc.Version = timestampToken(now)
	case model.StrategyHash:
		desc.Version, desc.Fallback = m.hashToken(ctx, path, explicit, now)
	default:
		desc.Version = explicit
	}
	desc.ResolvedURL = BuildURL(m.baseURL, path, desc.Version)

	if err := m.store.Put(ctx, desc); err != nil {
		m.logger.Warn("failed to store version",
			"path", path,
			"version", desc.Version,
			"error", err,
		)
	}
	return desc, nil
}

func (m *Manager) hashToken(ctx context.Context, path, explicit string, now time.Time) (string, bool) {
	if explicit != "" {
		return explicit, false
	}
	if m.fingerprinter != nil {
		fp, err := m.fingerprinter.Fingerprint(ctx, path)
		if err == nil && fp != "" {
			return fp, false
		}
		m.logger.Warn("content fingerprint unavailable, using time-derived token",
			"path", path,
			"error", err,
		)
	}
	return strconv.FormatInt(now.UnixMilli(), 36), true
}

// Latest returns the last descriptor issued for path.
func (m *Manager) Latest(ctx context.Context, path string) (model.VersionDescriptor, bool, error) {
	return m.store.Get(ctx, path)
}

// NeedsInvalidation reports whether path's last-known version is older than
// maxAge. A path with no known version, or whose version cannot be read,
// needs invalidation.
func (m *Manager) NeedsInvalidation(ctx context.Context, path string, maxAge time.Duration) bool {
	desc, ok, err := m.store.Get(ctx, path)
	if err != nil {
		m.logger.Warn("failed to load version", "path", path, "error", err)
		return true
	}
	if !ok {
		return true
	}
	return m.now().Sub(desc.CreatedAt) > maxAge
}

// Compare orders two version tokens. See the package-level Compare.
func (m *Manager) Compare(v1, v2 string) model.Comparison {
	return Compare(v1, v2)
}

func timestampToken(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// BuildURL joins base and path and appends the version as the v query
// parameter.
func BuildURL(base, path, version string) string {
	base = strings.TrimSuffix(base, "/")
	if base != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := base + path
	if version == "" {
		return u
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return u + sep + "v=" + url.QueryEscape(version)
}
