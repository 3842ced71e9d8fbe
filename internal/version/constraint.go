package version

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidConstraint = errors.New("version: invalid constraint")

// Op is a dpkg relation operator.
type Op string

const (
	OpAny Op = ""
	OpGE  Op = ">="
	OpGT  Op = ">>"
	OpEQ  Op = "="
	OpLE  Op = "<="
	OpLT  Op = "<<"
)

// Constraint is a relation against a version. The zero value accepts anything.
type Constraint struct {
	Op      Op
	Version Version
}

// Ordered longest first so ">=" wins over ">".
var opPrefixes = []struct {
	prefix string
	op     Op
}{
	{">=", OpGE},
	{">>", OpGT},
	{"<=", OpLE},
	{"<<", OpLT},
	{"==", OpEQ},
	{">", OpGT},
	{"<", OpLT},
	{"=", OpEQ},
}

// ParseConstraint accepts "", a bare version (minimum), or an operator followed
// by a version. Both the dpkg (">>", "<<") and the short (">", "<") spellings of
// the strict operators are accepted.
func ParseConstraint(raw string) (Constraint, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Constraint{}, nil
	}

	op := OpGE
	for _, p := range opPrefixes {
		if strings.HasPrefix(s, p.prefix) {
			op = p.op
			s = strings.TrimSpace(s[len(p.prefix):])
			break
		}
	}
	if s == "" {
		return Constraint{}, fmt.Errorf("%w: %q missing version", ErrInvalidConstraint, raw)
	}
	v, err := Parse(s)
	if err != nil {
		return Constraint{}, fmt.Errorf("%w: %q: %v", ErrInvalidConstraint, raw, err)
	}
	return Constraint{Op: op, Version: v}, nil
}

// IsAny reports whether the constraint accepts every version.
func (c Constraint) IsAny() bool {
	return c.Op == OpAny
}

// Allows reports whether installed satisfies the constraint.
func (c Constraint) Allows(installed Version) bool {
	if c.IsAny() {
		return true
	}
	cmp := Compare(installed, c.Version)
	switch c.Op {
	case OpGE:
		return cmp >= 0
	case OpGT:
		return cmp > 0
	case OpEQ:
		return cmp == 0
	case OpLE:
		return cmp <= 0
	case OpLT:
		return cmp < 0
	default:
		return false
	}
}

// AllowsString parses installed and checks it against the constraint.
func (c Constraint) AllowsString(installed string) (bool, error) {
	v, err := Parse(installed)
	if err != nil {
		return false, err
	}
	return c.Allows(v), nil
}

func (c Constraint) String() string {
	if c.IsAny() {
		return ""
	}
	return string(c.Op) + " " + c.Version.String()
}
