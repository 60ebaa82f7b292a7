package plugin

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is an immutable major.minor.patch triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

// NewVersion constructs a version from its components.
func NewVersion(major, minor, patch int) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// ParseVersion parses "1.2.3" or "v1.2.3". Pre-release and build suffixes are rejected.
func ParseVersion(raw string) (Version, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Version{}, fmt.Errorf("version cannot be empty")
	}
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	if !semver.IsValid(s) || semver.Prerelease(s) != "" || semver.Build(s) != "" {
		return Version{}, fmt.Errorf("invalid version %q", raw)
	}
	parts := strings.Split(strings.TrimPrefix(s, "v"), ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: expected major.minor.patch", raw)
	}
	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", raw, err)
		}
		nums[i] = n
	}
	return NewVersion(nums[0], nums[1], nums[2]), nil
}

// MustParseVersion is like ParseVersion but panics on error. Intended for constants.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version as major.minor.patch.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to or after other.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return sign(v.Major - other.Major)
	case v.Minor != other.Minor:
		return sign(v.Minor - other.Minor)
	default:
		return sign(v.Patch - other.Patch)
	}
}

// IsCompatibleWith reports whether v satisfies a requirement of required.
// Majors must match and v must not be older than required.
func (v Version) IsCompatibleWith(required Version) bool {
	if v.Major != required.Major {
		return false
	}
	if v.Minor > required.Minor {
		return true
	}
	return v.Minor == required.Minor && v.Patch >= required.Patch
}

// IsZero reports whether the version is 0.0.0.
func (v Version) IsZero() bool { return v == Version{} }

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
