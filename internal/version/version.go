package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidVersion = errors.New("version: invalid version")

// Version is a parsed Debian package version: [epoch:]upstream[-revision].
type Version struct {
	Epoch    int
	Upstream string
	Revision string
}

// Parse splits a dpkg version string into epoch, upstream and revision parts.
func Parse(raw string) (Version, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Version{}, fmt.Errorf("%w: empty", ErrInvalidVersion)
	}
	if strings.ContainsAny(s, " \t") {
		return Version{}, fmt.Errorf("%w: %q contains whitespace", ErrInvalidVersion, raw)
	}

	var v Version
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		epoch, err := strconv.Atoi(s[:idx])
		if err != nil || epoch < 0 {
			return Version{}, fmt.Errorf("%w: %q has bad epoch", ErrInvalidVersion, raw)
		}
		v.Epoch = epoch
		s = s[idx+1:]
	}
	if idx := strings.LastIndexByte(s, '-'); idx >= 0 {
		v.Revision = s[idx+1:]
		s = s[:idx]
		if v.Revision == "" {
			return Version{}, fmt.Errorf("%w: %q has empty revision", ErrInvalidVersion, raw)
		}
	}
	if s == "" {
		return Version{}, fmt.Errorf("%w: %q has empty upstream version", ErrInvalidVersion, raw)
	}
	if !isDigit(s[0]) {
		return Version{}, fmt.Errorf("%w: %q must start with a digit", ErrInvalidVersion, raw)
	}
	for i := 0; i < len(s); i++ {
		if !validUpstreamChar(s[i]) {
			return Version{}, fmt.Errorf("%w: %q has invalid character %q", ErrInvalidVersion, raw, s[i])
		}
	}
	v.Upstream = s
	return v, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	var b strings.Builder
	if v.Epoch > 0 {
		b.WriteString(strconv.Itoa(v.Epoch))
		b.WriteByte(':')
	}
	b.WriteString(v.Upstream)
	if v.Revision != "" {
		b.WriteByte('-')
		b.WriteString(v.Revision)
	}
	return b.String()
}

// Compare orders two versions the way dpkg --compare-versions does.
// It returns -1, 0 or 1.
func Compare(a, b Version) int {
	if a.Epoch != b.Epoch {
		if a.Epoch < b.Epoch {
			return -1
		}
		return 1
	}
	if c := compareFragment(a.Upstream, b.Upstream); c != 0 {
		return c
	}
	return compareFragment(a.Revision, b.Revision)
}

// CompareStrings parses and compares two raw version strings.
func CompareStrings(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return Compare(va, vb), nil
}

// compareFragment walks alternating non-digit and digit runs. Non-digit runs
// compare by charOrder, digit runs numerically.
func compareFragment(a, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		for (i < len(a) && !isDigit(a[i])) || (j < len(b) && !isDigit(b[j])) {
			ac, bc := charOrder(a, i), charOrder(b, j)
			if ac != bc {
				return sign(ac - bc)
			}
			i++
			j++
		}
		for i < len(a) && a[i] == '0' {
			i++
		}
		for j < len(b) && b[j] == '0' {
			j++
		}
		firstDiff := 0
		for i < len(a) && j < len(b) && isDigit(a[i]) && isDigit(b[j]) {
			if firstDiff == 0 {
				firstDiff = int(a[i]) - int(b[j])
			}
			i++
			j++
		}
		if i < len(a) && isDigit(a[i]) {
			return 1
		}
		if j < len(b) && isDigit(b[j]) {
			return -1
		}
		if firstDiff != 0 {
			return sign(firstDiff)
		}
	}
	return 0
}

// charOrder ranks '~' before end of string, end of string before letters,
// letters before everything else.
func charOrder(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	c := s[i]
	switch {
	case isDigit(c):
		return 0
	case isAlpha(c):
		return int(c)
	case c == '~':
		return -1
	default:
		return int(c) + 256
	}
}

func validUpstreamChar(c byte) bool {
	return isDigit(c) || isAlpha(c) || strings.IndexByte(".+~-:", c) >= 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
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
