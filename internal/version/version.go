package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version, CommitSHA, and BuildDate are set via ldflags at build time.
// Example: go build -ldflags "-X .../version.Version=0.2.0 -X .../version.CommitSHA=abc1234"
var (
	Version   = "0.1.0"
	CommitSHA = "dev"
	BuildDate = "unknown"
)

// RuntimeVersion is the vbport-runtime release the generated code is
// written against.
const RuntimeVersion = "0.1.0"

// Info returns the version line printed by `vbport version`.
// For dev builds: "0.1.0 (runtime 0.1.0)"
// For release builds: "0.1.0 (abc1234, 2026-10-01, runtime 0.1.0)"
func Info() string {
	v := strings.TrimPrefix(Version, "v")
	if CommitSHA == "dev" || CommitSHA == "" {
		return fmt.Sprintf("%s (runtime %s)", v, RuntimeVersion)
	}
	return fmt.Sprintf("%s (%s, %s, runtime %s)", v, CommitSHA, BuildDate, RuntimeVersion)
}

// SemVer is a parsed major.minor.patch version.
type SemVer struct {
	Major int
	Minor int
	Patch int
}

// Parse parses "0.1.0" or "v0.1.0". A pre-release suffix is ignored.
func Parse(s string) (SemVer, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	s, _, _ = strings.Cut(s, "-")

	segments := strings.Split(s, ".")
	if len(segments) != 3 {
		return SemVer{}, fmt.Errorf("invalid version %q: expected major.minor.patch", s)
	}

	var parts [3]int
	for i, seg := range segments {
		n, err := strconv.Atoi(seg)
		if err != nil || n < 0 {
			return SemVer{}, fmt.Errorf("invalid version segment %q in %q", seg, s)
		}
		parts[i] = n
	}
	return SemVer{Major: parts[0], Minor: parts[1], Patch: parts[2]}, nil
}

func (v SemVer) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or 1 depending on whether v is less than, equal to,
// or greater than other.
func (v SemVer) Compare(other SemVer) int {
	if v.Major != other.Major {
		return cmpInt(v.Major, other.Major)
	}
	if v.Minor != other.Minor {
		return cmpInt(v.Minor, other.Minor)
	}
	return cmpInt(v.Patch, other.Patch)
}

// CheckRuntime reports whether an installed runtime version can run code
// produced by this build. Before 1.0 the minor version must match; after,
// the major version must match. Either way the installed patch level must
// not be older.
func CheckRuntime(installed string) error {
	want, err := Parse(RuntimeVersion)
	if err != nil {
		return err
	}
	got, err := Parse(installed)
	if err != nil {
		return err
	}
	compatible := got.Major == want.Major
	if want.Major == 0 {
		compatible = compatible && got.Minor == want.Minor
	}
	if !compatible || got.Compare(want) < 0 {
		return fmt.Errorf("runtime %s is not compatible with generated code (needs %s)", got, compatibleRange(want))
	}
	return nil
}

func compatibleRange(v SemVer) string {
	if v.Major == 0 {
		return fmt.Sprintf(">=%s <0.%d.0", v, v.Minor+1)
	}
	return fmt.Sprintf(">=%s <%d.0.0", v, v.Major+1)
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
