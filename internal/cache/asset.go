package cache

import (
	"context"
	"fmt"
	"strings"
)

// Asset key layout. Renditions (resized or re-encoded variants) live under
// the asset key with a further suffix.
const (
	assetKeyPrefix    = "asset:"
	negCacheKeySuffix = ":neg"
	renditionSep      = ":r:"
)

// assetKey returns the key of the cached asset entry for path.
func assetKey(path string) string {
	return assetKeyPrefix + normalizePath(path)
}

// renditionPattern matches every cached rendition of path. Glob
// metacharacters in the path are escaped so a path like /img/* only matches
// its own renditions.
func renditionPattern(path string) string {
	return globEscaper.Replace(assetKey(path)) + renditionSep + "*"
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

// PurgeAsset removes the cached entry, negative-cache marker and every
// rendition of path.
func (c *Cache) PurgeAsset(ctx context.Context, path string) error {
	key := assetKey(path)
	keys := []string{key, key + negCacheKeySuffix}

	renditions, err := c.scanKeys(ctx, renditionPattern(path))
	if err != nil {
		return err
	}
	keys = append(keys, renditions...)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to purge cached asset %s: %w", path, err)
	}
	return nil
}

func (c *Cache) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		var batch []string
		var err error

		batch, cursor, err = c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", pattern, err)
		}
		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
