package rules

import (
	"fmt"

	"prism/internal/analyzer"
)

// All returns the built-in analyzers in stable order.
func All() []analyzer.Analyzer {
	return []analyzer.Analyzer{NewDeadCode(), NewAssign(), NewNaming()}
}

// Enabled returns the built-ins selected by name; an empty selection
// enables everything. Unknown names are an error so configuration typos
// do not silently disable a rule.
func Enabled(names []string) ([]analyzer.Analyzer, error) {
	all := All()
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]analyzer.Analyzer, len(all))
	for _, a := range all {
		byName[a.Name()] = a
	}
	out := make([]analyzer.Analyzer, 0, len(names))
	for _, name := range names {
		a, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("rules: unknown rule %q", name)
		}
		out = append(out, a)
	}
	return out, nil
}
