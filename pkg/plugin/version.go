package plugin

import (
	"fmt"
	"strconv"
	"strings"
)

// MinCompatibleVersion is the oldest exporter protocol the host accepts.
const MinCompatibleVersion = "0.1.0"

// Version is a parsed MAJOR.MINOR.PATCH protocol version.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses a version string in "MAJOR.MINOR.PATCH" format.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version format: %q (expected MAJOR.MINOR.PATCH)", s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version component %q in %q", p, s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

// CheckCompatible returns an error unless an exporter speaking protocol s
// can be driven by this host. The major version must match and the version
// must not be older than MinCompatibleVersion. Newer minor and patch
// versions are accepted.
func CheckCompatible(s string) error {
	v, err := ParseVersion(s)
	if err != nil {
		return fmt.Errorf("failed to parse exporter protocol version: %w", err)
	}

	current, _ := ParseVersion(ProtocolVersion)
	if v.Major != current.Major {
		return fmt.Errorf("incompatible exporter protocol %s, backdrop requires %d.x.x", v, current.Major)
	}

	minimum, _ := ParseVersion(MinCompatibleVersion)
	if v.Less(minimum) {
		return fmt.Errorf("exporter protocol %s is too old, minimum is %s", v, minimum)
	}
	return nil
}
