package tools

import (
	"fmt"
	"regexp"

	"github.com/git-pkgs/pyproject/internal/core"
)

// Black is the [tool.black] formatter configuration.
type Black struct {
	LineLength              int      `toml:"line-length"`
	TargetVersion           []string `toml:"target-version"`
	Include                 string   `toml:"include"`
	Exclude                 string   `toml:"exclude"`
	ExtendExclude           string   `toml:"extend-exclude"`
	ForceExclude            string   `toml:"force-exclude"`
	Preview                 bool     `toml:"preview"`
	SkipStringNormalization bool     `toml:"skip-string-normalization"`
	SkipMagicTrailingComma  bool     `toml:"skip-magic-trailing-comma"`
}

// DecodeBlack decodes a raw [tool.black] section.
func DecodeBlack(sec core.Tool) (*Black, error) {
	var b Black
	if err := decodeSection(sec, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

var targetVersionRe = regexp.MustCompile(`^py\d{2,3}$`)

// Validate checks the section against black's own option constraints:
// exclusion patterns must compile as regular expressions and the line
// length must be a sane positive value.
func (b *Black) Validate() []Problem {
	var problems []Problem
	prob := func(field, msg string) {
		problems = append(problems, Problem{Tool: "black", Field: field, Msg: msg})
	}

	if b.LineLength < 0 {
		prob("line-length", fmt.Sprintf("must be positive, got %d", b.LineLength))
	} else if b.LineLength > 320 {
		prob("line-length", fmt.Sprintf("%d is outside the usable range", b.LineLength))
	}

	for _, tv := range b.TargetVersion {
		if !targetVersionRe.MatchString(tv) {
			prob("target-version", fmt.Sprintf("%q is not a py3x identifier", tv))
		}
	}

	regexFields := []struct {
		field   string
		pattern string
	}{
		{"include", b.Include},
		{"exclude", b.Exclude},
		{"extend-exclude", b.ExtendExclude},
		{"force-exclude", b.ForceExclude},
	}
	for _, rf := range regexFields {
		if rf.pattern == "" {
			continue
		}
		if _, err := regexp.Compile(rf.pattern); err != nil {
			prob(rf.field, fmt.Sprintf("pattern does not compile: %v", err))
		}
	}
	return problems
}
