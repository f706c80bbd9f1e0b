package bot

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Glossary maps a water-quality parameter name to its operator-facing
// definition, served by the /info command.
type Glossary map[string]string

// DefaultGlossary returns the built-in parameter definitions.
func DefaultGlossary() Glossary {
	return Glossary{
		"ph":          "Measure of acidity/alkalinity. Safe range: 6.5 - 8.5.",
		"turbidity":   "Measure of water clarity. Should stay below 4.0 NTU.",
		"chloramines": "Disinfectant used to treat the water. Ideal range: < 4 ppm.",
		"sulfates":    "Mineral salts. In excess they cause a bitter taste. Ideal < 250 mg/L.",
		"solids":      "Total dissolved solids. Indicates overall mineralisation.",
	}
}

// LoadGlossary reads parameter definitions from a YAML file, merging them
// over the built-in defaults so a partial file only overrides what it
// names.
func LoadGlossary(path string) (Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary file: %w", err)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse glossary file: %w", err)
	}

	g := DefaultGlossary()
	for param, definition := range overrides {
		g[strings.ToLower(param)] = definition
	}
	return g, nil
}

// Params returns the parameter names in sorted order for usage replies.
func (g Glossary) Params() []string {
	params := make([]string, 0, len(g))
	for p := range g {
		params = append(params, p)
	}
	sort.Strings(params)
	return params
}

// Lookup returns the definition for a parameter, case-insensitively.
func (g Glossary) Lookup(param string) (string, bool) {
	definition, ok := g[strings.ToLower(param)]
	return definition, ok
}
