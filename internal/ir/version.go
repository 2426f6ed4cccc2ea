package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

// Field limits of a Windows Installer ProductVersion.
const (
	maxMajor    = 255
	maxMinor    = 255
	maxBuild    = 65535
	maxRevision = 65535
)

// ParseVersion parses a product version of the form major.minor.build[.revision].
// The returned version carries the first three fields only, which is all the
// installer compares during upgrade detection.
func ParseVersion(v string) (*semver.Version, error) {
	if v == "" {
		return nil, fmt.Errorf("product version is empty")
	}
	parts := strings.Split(v, ".")
	if len(parts) < 3 || len(parts) > 4 {
		return nil, fmt.Errorf("product version '%s' must have 3 or 4 fields", v)
	}
	fields := make([]uint64, len(parts))
	for i, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return nil, fmt.Errorf("product version '%s' must be dotted numeric", v)
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("product version '%s': %w", v, err)
		}
		fields[i] = n
	}

	if fields[0] > maxMajor || fields[1] > maxMinor || fields[2] > maxBuild {
		return nil, fmt.Errorf("product version '%s' exceeds %d.%d.%d", v, maxMajor, maxMinor, maxBuild)
	}
	if len(fields) == 4 && fields[3] > maxRevision {
		return nil, fmt.Errorf("product version '%s': revision exceeds %d", v, maxRevision)
	}
	sv := semver.New(fields[0], fields[1], fields[2], "", "")
	return sv, nil
}

// ValidateVersion reports whether v is a valid product version.
func ValidateVersion(v string) error {
	_, err := ParseVersion(v)
	return err
}

// CompareVersions compares two product versions the way upgrade detection
// does, ignoring the revision field. It returns -1, 0 or 1.
func CompareVersions(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// StableComponentID derives a component GUID from the product's upgrade code
// and a relative install path. The same inputs always yield the same GUID, so
// components keep their identity across rebuilds.
func StableComponentID(upgradeCode uuid.UUID, relPath string) uuid.UUID {
	key := strings.ToLower(strings.ReplaceAll(relPath, "/", `\`))
	return uuid.NewSHA1(upgradeCode, []byte(key))
}
