// Package tools decodes known [tool.*] sections into typed schemas.
//
// Sections arrive as the generic maps kept on core.Project; decoding
// round-trips them through the TOML codec so struct tags and type
// coercion behave exactly as they would on the original document.
package tools

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/git-pkgs/pyproject/internal/core"
)

// Problem is a single schema violation in a tool section.
type Problem struct {
	Tool  string
	Field string
	Msg   string
}

func (p Problem) String() string {
	return fmt.Sprintf("[tool.%s] %s: %s", p.Tool, p.Field, p.Msg)
}

func decodeSection(sec core.Tool, v any) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]any(sec)); err != nil {
		return fmt.Errorf("re-encoding section: %w", err)
	}
	if err := toml.Unmarshal(buf.Bytes(), v); err != nil {
		return fmt.Errorf("decoding section: %w", err)
	}
	return nil
}

// Known reports whether a typed schema exists for the tool name.
func Known(name string) bool {
	switch name {
	case "black", "jupytext":
		return true
	}
	return false
}

// Check decodes and validates a named section, returning schema
// problems. Unknown tools produce no problems.
func Check(name string, sec core.Tool) ([]Problem, error) {
	switch name {
	case "black":
		b, err := DecodeBlack(sec)
		if err != nil {
			return nil, err
		}
		return b.Validate(), nil
	case "jupytext":
		j, err := DecodeJupytext(sec)
		if err != nil {
			return nil, err
		}
		return j.Validate(), nil
	}
	return nil, nil
}
