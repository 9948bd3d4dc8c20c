package migrations

import (
	"fmt"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Version is a schema version in major.minor.patch form. Each component is
// assumed to stay below 1000 so the whole version packs into a single integer.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Parse splits a version string into its components. Anything other than
// exactly three dot-separated non-negative integers is a validation error.
func Parse(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Version{}, versionError(s)
	}
	components := [3]int{}
	for i, part := range parts {
		if part == "" || strings.TrimSpace(part) != part {
			return Version{}, versionError(s)
		}
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 {
			return Version{}, versionError(s)
		}
		components[i] = value
	}
	return Version{
		Major: components[0],
		Minor: components[1],
		Patch: components[2],
	}, nil
}

func versionError(s string) error {
	return goerrors.New(
		fmt.Sprintf("migrations: invalid schema version %q", s),
		goerrors.CategoryValidation,
	).WithTextCode("STORE_BAD_INPUT")
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Number encodes the version as major*10^6 + minor*10^3 + patch.
func (v Version) Number() int64 {
	return int64(v.Major)*1_000_000 + int64(v.Minor)*1_000 + int64(v.Patch)
}

// Compare orders two version strings numerically per component. It parses both
// sides and returns -1, 0, or 1, so it plugs directly into slices.SortFunc.
// Unparseable inputs sort before everything else; the catalog never feeds
// those in, since ListVersions filters them out.
func Compare(a, b string) int {
	va, errA := Parse(a)
	vb, errB := Parse(b)
	if errA != nil || errB != nil {
		switch {
		case errA == nil:
			return 1
		case errB == nil:
			return -1
		default:
			return strings.Compare(a, b)
		}
	}
	switch {
	case va.Number() < vb.Number():
		return -1
	case va.Number() > vb.Number():
		return 1
	default:
		return 0
	}
}
