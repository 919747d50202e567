package version

import (
	"errors"
	"fmt"

	"github.com/assetwatch/assetwatch/internal/model"
)

// Version errors.
var (
	ErrVersionRequired = errors.New("explicit version required")
	ErrUnknownStrategy = errors.New("unknown version strategy")
)

// ConfigError reports a Resolve call the caller set up incorrectly.
// It unwraps to ErrVersionRequired or ErrUnknownStrategy.
type ConfigError struct {
	Path     string
	Strategy model.VersionStrategy
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("resolve %q with strategy %q: %v", e.Path, e.Strategy, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
