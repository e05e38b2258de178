package tools

import (
	"fmt"
	"strings"

	"github.com/git-pkgs/pyproject/internal/core"
)

// Jupytext is the [tool.jupytext] notebook-pairing configuration.
type Jupytext struct {
	Formats                string `toml:"formats"`
	NotebookMetadataFilter string `toml:"notebook_metadata_filter"`
	CellMetadataFilter     string `toml:"cell_metadata_filter"`
}

// DecodeJupytext decodes a raw [tool.jupytext] section.
func DecodeJupytext(sec core.Tool) (*Jupytext, error) {
	var j Jupytext
	if err := decodeSection(sec, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

var jupytextExtensions = map[string]bool{
	"ipynb": true, "md": true, "markdown": true, "Rmd": true, "qmd": true,
	"py": true, "r": true, "R": true, "jl": true, "auto": true,
}

var jupytextVariants = map[string]bool{
	"light": true, "percent": true, "hydrogen": true, "nomarker": true,
	"sphinx": true, "spin": true, "myst": true, "pandoc": true, "quarto": true,
}

// Validate checks the formats pairing string. Each comma-separated
// entry is "[prefix//]extension[:variant]", e.g. "ipynb,md" or
// "notebooks//ipynb,scripts//py:percent". Pairing needs at least two
// entries to convert between.
func (j *Jupytext) Validate() []Problem {
	var problems []Problem
	prob := func(msg string) {
		problems = append(problems, Problem{Tool: "jupytext", Field: "formats", Msg: msg})
	}

	if j.Formats == "" {
		return nil
	}

	entries := strings.Split(j.Formats, ",")
	valid := 0
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			prob("empty format entry")
			continue
		}

		// Strip the directory prefix, if any.
		ext := entry
		if idx := strings.LastIndex(ext, "//"); idx >= 0 {
			ext = ext[idx+2:]
		}
		ext = strings.TrimPrefix(ext, ".")

		variant := ""
		if idx := strings.Index(ext, ":"); idx >= 0 {
			variant = ext[idx+1:]
			ext = ext[:idx]
		}

		if !jupytextExtensions[ext] {
			prob(fmt.Sprintf("unknown notebook format %q", ext))
			continue
		}
		if variant != "" && !jupytextVariants[variant] {
			prob(fmt.Sprintf("unknown format variant %q for %q", variant, ext))
			continue
		}
		valid++
	}

	if len(entries) == 1 && valid == 1 {
		prob("pairing needs at least two formats")
	}
	return problems
}
