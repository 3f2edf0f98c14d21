package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a dotted migration version such as 1, 1.2 or 2.0.13.
// A nil Version belongs to files that are not migrations.
type Version []uint64

// ParseVersion parses a dotted version. Leading zeros are dropped, so 001.2
// is 1.2.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return nil, fmt.Errorf("empty version")
	}
	parts := strings.Split(s, ".")
	v := make(Version, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q", s)
		}
		v[i] = n
	}
	return v, nil
}

// Compare returns -1, 0 or +1 comparing v with o part by part. Missing
// trailing parts count as zero: 1 and 1.0 are the same version.
func (v Version) Compare(o Version) int {
	for i := 0; i < max(len(v), len(o)); i++ {
		a, b := v.part(i), o.part(i)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// Truncate keeps the first n parts of v; 1.2.3 truncated to 2 is 1.2
func (v Version) Truncate(n int) Version {
	if n <= 0 {
		return Version{0}
	}
	if len(v) <= n {
		return v
	}
	return v[:n:n]
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, p := range v {
		parts[i] = strconv.FormatUint(p, 10)
	}
	return strings.Join(parts, ".")
}

func (v Version) part(i int) uint64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}
