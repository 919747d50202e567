package version

import (
	"strings"

	"golang.org/x/mod/semver"

	"github.com/assetwatch/assetwatch/internal/model"
)

// Compare orders v1 relative to v2.
//
// Digit-only tokens (timestamp versions) compare numerically and semantic
// versions compare by precedence, with or without a leading "v". Any other
// pair is opaque: Same only on exact equality, otherwise byte-wise
// lexicographic order decides. That tie-break carries no meaning about which
// content is more recent.
func Compare(v1, v2 string) model.Comparison {
	if v1 == v2 {
		return model.Same
	}
	if isDigits(v1) && isDigits(v2) {
		return fromInt(compareDigits(v1, v2))
	}
	if s1, s2 := canonicalSemver(v1), canonicalSemver(v2); s1 != "" && s2 != "" {
		return fromInt(semver.Compare(s1, s2))
	}
	return fromInt(strings.Compare(v1, v2))
}

func fromInt(c int) model.Comparison {
	switch {
	case c > 0:
		return model.Newer
	case c < 0:
		return model.Older
	default:
		return model.Same
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// compareDigits compares unsigned decimal strings of any length.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) > len(b) {
			return 1
		}
		return -1
	}
	return strings.Compare(a, b)
}

// canonicalSemver returns v in x/mod form, or "" when v is not a semantic
// version.
func canonicalSemver(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}
