package manifest

import (
	"sort"

	"github.com/pelletier/go-toml/v2"
	"lab47.dev/sitevet/pkg/depspec"
)

type pyproject struct {
	Project struct {
		Name                 string              `toml:"name"`
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

// parsePyproject reads the declared dependencies out of a
// pyproject.toml. Optional dependency groups flatten in after the
// main list, in group name order so the result is stable.
func parsePyproject(text string) ([]depspec.Item, []*depspec.LineError) {
	var (
		doc  pyproject
		errs []*depspec.LineError
	)

	err := toml.Unmarshal([]byte(text), &doc)
	if err != nil {
		errs = append(errs, &depspec.LineError{Raw: "pyproject.toml", Reason: err.Error()})
		return nil, errs
	}

	lines := append([]string{}, doc.Project.Dependencies...)

	groups := make([]string, 0, len(doc.Project.OptionalDependencies))
	for g := range doc.Project.OptionalDependencies {
		groups = append(groups, g)
	}

	sort.Strings(groups)

	for _, g := range groups {
		lines = append(lines, doc.Project.OptionalDependencies[g]...)
	}

	var items []depspec.Item

	for _, line := range lines {
		item, err := depspec.ParseLine(line, 0)
		if err != nil {
			if le, ok := err.(*depspec.LineError); ok {
				errs = append(errs, le)
			} else {
				errs = append(errs, &depspec.LineError{Raw: line, Reason: err.Error()})
			}

			continue
		}

		if item != nil && item.Spec != nil {
			items = append(items, *item)
		}
	}

	return items, errs
}
