package model

import "time"

// VersionStrategy selects how a cache-busting token is derived.
type VersionStrategy string

const (
	StrategyTimestamp VersionStrategy = "timestamp"
	StrategySemantic  VersionStrategy = "semantic"
	StrategyHash      VersionStrategy = "hash"
	StrategyManual    VersionStrategy = "manual"
)

// IsValid checks if the strategy is one of the known values.
func (s VersionStrategy) IsValid() bool {
	switch s {
	case StrategyTimestamp, StrategySemantic, StrategyHash, StrategyManual:
		return true
	}
	return false
}

// RequiresExplicit reports whether the caller must supply the version string.
func (s VersionStrategy) RequiresExplicit() bool {
	return s == StrategySemantic || s == StrategyManual
}

// VersionDescriptor is the result of resolving a version for a path.
type VersionDescriptor struct {
	Path        string          `json:"path"`
	Strategy    VersionStrategy `json:"strategy"`
	Version     string          `json:"version"`
	ResolvedURL string          `json:"resolved_url"`
	CreatedAt   time.Time       `json:"created_at"`

	// Fallback is true when the hash strategy had no content fingerprint and
	// produced a time-derived token instead.
	Fallback bool `json:"fallback,omitempty"`
}

// Comparison is the ordering of two version tokens.
type Comparison string

const (
	Newer Comparison = "newer"
	Older Comparison = "older"
	Same  Comparison = "same"
)

// BatchResult partitions the input paths of a batch invalidation.
// Every input path appears in exactly one of the two lists.
type BatchResult struct {
	Successful []string `json:"successful"`
	Failed     []string `json:"failed"`
}

// Total returns the number of paths accounted for.
func (r BatchResult) Total() int {
	return len(r.Successful) + len(r.Failed)
}
