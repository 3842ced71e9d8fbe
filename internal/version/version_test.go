package version

import (
	"errors"
	"testing"
)

func TestCompareOrdering(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.0.1", -1},
		{"2.10", "2.9", 1},
		{"007", "7", 0},
		{"1.0~rc1", "1.0", -1},
		{"1.0~~", "1.0~", -1},
		{"1.0~", "1.0~a", -1},
		{"1.0~a", "1.0", -1},
		{"1.0a", "1.0", 1},
		{"1.0a", "1.0.1", -1},
		{"1.0+dfsg", "1.0", 1},
		{"1:0.9", "2.0", 1},
		{"0:2.0", "2.0", 0},
		{"1.0-1", "1.0-2", -1},
		{"1.0", "1.0-0", 0},
		{"1.2.3-1ubuntu1", "1.2.3-1", 1},
		{"2.72.4-0ubuntu2", "2.72.4-0ubuntu10", -1},
		{"1.20.3-1build2", "1.20.3-1", 1},
	}
	for _, tc := range cases {
		got, err := CompareStrings(tc.a, tc.b)
		if err != nil {
			t.Fatalf("compare %q %q: %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Fatalf("compare %q %q: got %d want %d", tc.a, tc.b, got, tc.want)
		}
		back, err := CompareStrings(tc.b, tc.a)
		if err != nil {
			t.Fatalf("compare %q %q: %v", tc.b, tc.a, err)
		}
		if back != -tc.want {
			t.Fatalf("compare %q %q not antisymmetric: got %d", tc.b, tc.a, back)
		}
	}
}

func TestParseSplitsEpochAndRevision(t *testing.T) {
	v, err := Parse("2:1.4.2-3ubuntu1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.Epoch != 2 || v.Upstream != "1.4.2" || v.Revision != "3ubuntu1" {
		t.Fatalf("unexpected parts: %+v", v)
	}
	if v.String() != "2:1.4.2-3ubuntu1" {
		t.Fatalf("unexpected string: %q", v.String())
	}

	v, err = Parse("1.2-rc-4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.Upstream != "1.2-rc" || v.Revision != "4" {
		t.Fatalf("revision must split on the last hyphen: %+v", v)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "  ", "a1.0", "x:1.0", "1.0-", "1.0 2", "1.0_1", ":1.0"} {
		if _, err := Parse(raw); !errors.Is(err, ErrInvalidVersion) {
			t.Fatalf("parse %q: expected ErrInvalidVersion, got %v", raw, err)
		}
	}
}

func TestParseConstraintOperators(t *testing.T) {
	cases := []struct {
		raw string
		op  Op
		ver string
	}{
		{"1.2", OpGE, "1.2"},
		{">= 1.2", OpGE, "1.2"},
		{">=1.2", OpGE, "1.2"},
		{">> 1.2", OpGT, "1.2"},
		{"> 1.2", OpGT, "1.2"},
		{"= 1.2-1", OpEQ, "1.2-1"},
		{"== 1.2", OpEQ, "1.2"},
		{"<= 3", OpLE, "3"},
		{"<< 3", OpLT, "3"},
		{"< 3", OpLT, "3"},
	}
	for _, tc := range cases {
		c, err := ParseConstraint(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if c.Op != tc.op || c.Version.String() != tc.ver {
			t.Fatalf("parse %q: got %q %q", tc.raw, c.Op, c.Version.String())
		}
	}

	c, err := ParseConstraint("  ")
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if !c.IsAny() || c.String() != "" {
		t.Fatalf("expected any constraint, got %+v", c)
	}

	for _, raw := range []string{">=", "<< ", ">= x1"} {
		if _, err := ParseConstraint(raw); !errors.Is(err, ErrInvalidConstraint) {
			t.Fatalf("parse %q: expected ErrInvalidConstraint, got %v", raw, err)
		}
	}
}

func TestConstraintAllows(t *testing.T) {
	cases := []struct {
		constraint string
		installed  string
		want       bool
	}{
		{"", "0.1", true},
		{"1.2", "1.2", true},
		{"1.2", "1.10", true},
		{"1.2", "1.1.9", false},
		{">= 2.0", "1:1.0", true},
		{">> 1.0", "1.0", false},
		{">> 1.0", "1.0-1", true},
		{"= 1.0-1", "1.0-1", true},
		{"= 1.0-1", "1.0-2", false},
		{"<= 1.0", "1.0~beta", true},
		{"<< 1.0", "1.0", false},
	}
	for _, tc := range cases {
		c, err := ParseConstraint(tc.constraint)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.constraint, err)
		}
		got, err := c.AllowsString(tc.installed)
		if err != nil {
			t.Fatalf("allows %q: %v", tc.installed, err)
		}
		if got != tc.want {
			t.Fatalf("%q allows %q: got %v want %v", tc.constraint, tc.installed, got, tc.want)
		}
	}
}

func TestMustParse(t *testing.T) {
	v := MustParse("1:2.0.5-5ubuntu1")
	if v.Epoch != 1 || v.Upstream != "2.0.5" || v.Revision != "5ubuntu1" {
		t.Fatalf("unexpected version: %+v", v)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic for malformed version")
		}
	}()
	MustParse("not a version")
}
