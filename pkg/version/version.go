// Package version reports the cloudseek build version and checks config
// schema compatibility.
package version

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Build metadata, set with -ldflags "-X".
//
//nolint:gochecknoglobals // Overridden at link time.
var (
	version   = "0.1.0-dev"
	commit    = "none"
	buildDate = "unknown"
)

// SchemaVersion is the config schema this build writes.
const SchemaVersion = "1.0.0"

// SupportedSchema is the constraint a config schema_version must satisfy.
const SupportedSchema = "^1"

var (
	// ErrInvalidVersion is returned for strings that are not semantic versions.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrIncompatibleSchema is returned when a config schema is not supported.
	ErrIncompatibleSchema = errors.New("incompatible config schema")
)

// GetVersion returns the build version.
func GetVersion() string {
	return version
}

// GetCommit returns the build commit.
func GetCommit() string {
	return commit
}

// GetBuildDate returns the build date.
func GetBuildDate() string {
	return buildDate
}

// String renders version, commit and build date on one line.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
}

// ParseConstraint parses a semver constraint such as ">=1.0.0,<2.0.0".
func ParseConstraint(s string) (*semver.Constraints, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty constraint", ErrInvalidVersion)
	}
	c, err := semver.NewConstraint(s)
	if err != nil {
		return nil, fmt.Errorf("%w: constraint %q: %w", ErrInvalidVersion, s, err)
	}
	return c, nil
}

// Satisfies reports whether v satisfies c.
func Satisfies(v string, c *semver.Constraints) (bool, error) {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return false, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, v, err)
	}
	return c.Check(sv), nil
}

// CheckSchema returns an error unless schema satisfies SupportedSchema. An
// empty schema is treated as the current SchemaVersion.
func CheckSchema(schema string) error {
	if schema == "" {
		return nil
	}
	c, err := ParseConstraint(SupportedSchema)
	if err != nil {
		return err
	}
	ok, err := Satisfies(schema, c)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatibleSchema, schema, SupportedSchema)
	}
	return nil
}
