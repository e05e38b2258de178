// Package constraint parses dependency version constraints.
//
// Manifests mix two dialects: PEP 440 specifier sets (">=1.24,<2.0",
// "~=1.4.2", "==2.1.*") and Poetry shorthands (carets "^1.2", tildes
// "~1.2", bare wildcards "1.*", unions "a || b"). Poetry shorthands are
// translated to PEP 440 ranges the same way Poetry expands them, and
// all version math is delegated to go-pep440-version.
package constraint

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// Constraint is a parsed version constraint. The zero value is not
// usable; obtain one from Parse.
type Constraint struct {
	raw string
	any bool
	// alts are union alternatives: a version matches when any one
	// specifier set accepts it.
	alts []pep440.Specifiers
}

// Parse parses a constraint string. Empty and "*" match any version.
func Parse(s string) (*Constraint, error) {
	raw := strings.TrimSpace(s)
	if raw == "" || raw == "*" {
		return &Constraint{raw: "*", any: true}, nil
	}

	c := &Constraint{raw: raw}
	for _, clause := range strings.Split(raw, "||") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			return nil, fmt.Errorf("constraint %q: empty union clause", raw)
		}
		translated, err := translateClause(clause)
		if err != nil {
			return nil, fmt.Errorf("constraint %q: %w", raw, err)
		}
		spec, err := pep440.NewSpecifiers(translated)
		if err != nil {
			return nil, fmt.Errorf("constraint %q: %w", raw, err)
		}
		c.alts = append(c.alts, spec)
	}
	return c, nil
}

// String returns the constraint as written.
func (c *Constraint) String() string {
	return c.raw
}

// IsAny reports whether the constraint matches every version.
func (c *Constraint) IsAny() bool {
	return c.any
}

// Check reports whether the given version string satisfies the
// constraint. Invalid versions return an error, never a silent false.
func (c *Constraint) Check(version string) (bool, error) {
	v, err := pep440.Parse(version)
	if err != nil {
		return false, fmt.Errorf("version %q: %w", version, err)
	}
	return c.Matches(v), nil
}

// Matches reports whether an already-parsed version satisfies the
// constraint.
func (c *Constraint) Matches(v pep440.Version) bool {
	if c.any {
		return true
	}
	for _, alt := range c.alts {
		if alt.Check(v) {
			return true
		}
	}
	return false
}

// LowerBound returns the lowest version the first clause admits, or ""
// when the constraint has no lower bound. Used for requires-python
// compatibility checks.
func (c *Constraint) LowerBound() string {
	if c.any {
		return ""
	}
	clause := strings.TrimSpace(strings.Split(c.raw, "||")[0])
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		for _, prefix := range []string{">=", "==", "~=", "^", "~"} {
			if strings.HasPrefix(part, prefix) {
				v := strings.TrimSpace(strings.TrimPrefix(part, prefix))
				v = strings.TrimSuffix(v, ".*")
				if v != "" {
					return v
				}
			}
		}
		if releaseRe.MatchString(part) {
			return strings.TrimSuffix(part, ".*")
		}
	}
	return ""
}

// translateClause rewrites one comma-separated clause into a PEP 440
// specifier set.
func translateClause(clause string) (string, error) {
	parts := strings.Split(clause, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := translatePart(part)
		if err != nil {
			return "", err
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("empty clause")
	}
	return strings.Join(out, ", "), nil
}

var releaseRe = regexp.MustCompile(`^\d+(\.\d+)*(\.\*)?$`)

func translatePart(part string) (string, error) {
	switch {
	case strings.HasPrefix(part, "^"):
		return caretRange(strings.TrimPrefix(part, "^"))
	case strings.HasPrefix(part, "~="):
		return part, nil
	case strings.HasPrefix(part, "~"):
		return tildeRange(strings.TrimPrefix(part, "~"))
	case strings.HasPrefix(part, "==") || strings.HasPrefix(part, "!=") ||
		strings.HasPrefix(part, "<") || strings.HasPrefix(part, ">") ||
		strings.HasPrefix(part, "==="):
		return part, nil
	case releaseRe.MatchString(part):
		// Bare versions pin exactly; bare wildcards become ==X.*.
		return "==" + part, nil
	default:
		return "", fmt.Errorf("unrecognized requirement %q", part)
	}
}

// caretRange expands ^X.Y.Z the way Poetry does: the upper bound bumps
// the leftmost nonzero release component, so ^1.2.3 allows <2.0.0 and
// ^0.2.3 allows <0.3.0.
func caretRange(v string) (string, error) {
	nums, err := releaseComponents(v)
	if err != nil {
		return "", err
	}
	upper := make([]int, len(nums))
	bumped := false
	for i, n := range nums {
		if n != 0 {
			upper[i] = n + 1
			bumped = true
			break
		}
	}
	if !bumped {
		// ^0, ^0.0 and friends bump the last given component.
		copy(upper, nums)
		upper[len(upper)-1]++
	}
	return fmt.Sprintf(">=%s, <%s", v, joinComponents(upper)), nil
}

// tildeRange expands ~X.Y[.Z]: patch-level changes are allowed when a
// minor version is given, minor-level changes when only a major is.
func tildeRange(v string) (string, error) {
	nums, err := releaseComponents(v)
	if err != nil {
		return "", err
	}
	var upper []int
	if len(nums) == 1 {
		upper = []int{nums[0] + 1}
	} else {
		upper = []int{nums[0], nums[1] + 1}
	}
	return fmt.Sprintf(">=%s, <%s", v, joinComponents(upper)), nil
}

func releaseComponents(v string) ([]int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, fmt.Errorf("missing version")
	}
	// Pre-release or local suffixes are not allowed in shorthand
	// constraints; Poetry rejects them as well.
	parts := strings.Split(v, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid release component %q", p)
		}
		nums[i] = n
	}
	return nums, nil
}

func joinComponents(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}
