package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/assetwatch/assetwatch/internal/model"
)

const versionKeyPrefix = "version:"

func versionKey(path string) string {
	return versionKeyPrefix + normalizePath(path)
}

// VersionStore keeps the latest version descriptor per path in a Redis hash
// so every instance sees the same version.
type VersionStore struct {
	cache *Cache
}

// NewVersionStore creates a VersionStore on c.
func NewVersionStore(c *Cache) *VersionStore {
	return &VersionStore{cache: c}
}

// Get returns the stored descriptor for path, if any.
func (s *VersionStore) Get(ctx context.Context, path string) (model.VersionDescriptor, bool, error) {
	result, err := s.cache.client.HGetAll(ctx, versionKey(path)).Result()
	if err != nil {
		return model.VersionDescriptor{}, false, fmt.Errorf("redis hgetall failed: %w", err)
	}
	if len(result) == 0 {
		return model.VersionDescriptor{}, false, nil
	}

	desc, err := descriptorFromFields(path, result)
	if err != nil {
		return model.VersionDescriptor{}, false, err
	}
	return desc, true, nil
}

// Put stores desc, replacing any previous descriptor for its path.
func (s *VersionStore) Put(ctx context.Context, desc model.VersionDescriptor) error {
	key := versionKey(desc.Path)

	pipe := s.cache.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, descriptorFields(desc))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store version: %w", err)
	}
	return nil
}

func descriptorFields(desc model.VersionDescriptor) map[string]any {
	return map[string]any{
		"strategy":     string(desc.Strategy),
		"version":      desc.Version,
		"resolved_url": desc.ResolvedURL,
		"created_at":   desc.CreatedAt.UTC().Format(time.RFC3339Nano),
		"fallback":     strconv.FormatBool(desc.Fallback),
	}
}

func descriptorFromFields(path string, fields map[string]string) (model.VersionDescriptor, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return model.VersionDescriptor{}, fmt.Errorf("invalid created_at for %s: %w", path, err)
	}
	fallback, _ := strconv.ParseBool(fields["fallback"])

	return model.VersionDescriptor{
		Path:        path,
		Strategy:    model.VersionStrategy(fields["strategy"]),
		Version:     fields["version"],
		ResolvedURL: fields["resolved_url"],
		CreatedAt:   createdAt,
		Fallback:    fallback,
	}, nil
}
