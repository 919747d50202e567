package middleware

import (
	"errors"
	"strings"
)

// MaxAssetPathLength bounds asset paths accepted by the API.
const MaxAssetPathLength = 2048

// Asset path validation errors.
var (
	ErrPathEmpty       = errors.New("path is required")
	ErrPathTooLong     = errors.New("path exceeds maximum length")
	ErrPathInvalid     = errors.New("path contains control characters or whitespace")
	ErrPathTraversal   = errors.New("path contains a parent directory segment")
	ErrPathAbsoluteURL = errors.New("path must not include a scheme or host")
)

// ValidateAssetPath checks a path before it reaches the monitor, version
// store or purge backends. Query strings are allowed.
func ValidateAssetPath(path string) error {
	if path == "" {
		return ErrPathEmpty
	}
	if len(path) > MaxAssetPathLength {
		return ErrPathTooLong
	}
	for i := 0; i < len(path); i++ {
		if c := path[i]; c <= ' ' || c == 0x7f {
			return ErrPathInvalid
		}
	}
	if strings.Contains(path, "://") || strings.HasPrefix(path, "//") {
		return ErrPathAbsoluteURL
	}

	clean := path
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	for _, segment := range strings.Split(clean, "/") {
		if segment == ".." {
			return ErrPathTraversal
		}
	}
	return nil
}
