package extract

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/fields"
)

//go:embed labels.yaml
var defaultLabelsYAML []byte

// LabelTable groups label synonyms. It is read-only once built.
type LabelTable struct {
	groups  map[string][]string // group -> folded labels
	byLabel map[string]string   // folded label or group name -> group
}

// DefaultLabels returns the built-in table.
func DefaultLabels() *LabelTable {
	t, err := ParseLabels(defaultLabelsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded labels.yaml: %v", err))
	}
	return t
}

// LoadLabels returns the built-in table merged with the groups in path.
// Groups in the file replace built-in groups of the same name.
func LoadLabels(path string) (*LabelTable, error) {
	if path == "" {
		return DefaultLabels(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "read labels file", err)
	}
	var base, extra map[string][]string
	if err := yaml.Unmarshal(defaultLabelsYAML, &base); err != nil {
		return nil, fmt.Errorf("embedded labels: %w", err)
	}
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, common.NewAppError(common.CodeConfig, "parse labels file "+path, err)
	}
	for k, v := range extra {
		base[k] = v
	}
	return newLabelTable(base), nil
}

// ParseLabels builds a table from YAML of the form group: [label, ...].
func ParseLabels(data []byte) (*LabelTable, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse labels: %w", err)
	}
	return newLabelTable(raw), nil
}

func newLabelTable(raw map[string][]string) *LabelTable {
	t := &LabelTable{
		groups:  make(map[string][]string, len(raw)),
		byLabel: make(map[string]string),
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	// sorted so a label listed in two groups always resolves the same way
	sort.Strings(names)
	for _, name := range names {
		var labels []string
		for _, l := range raw[name] {
			if f := foldLabel(l); f != "" {
				labels = append(labels, f)
			}
		}
		t.groups[name] = labels
		for _, key := range append([]string{foldLabel(name)}, labels...) {
			if _, taken := t.byLabel[key]; !taken {
				t.byLabel[key] = name
			}
		}
	}
	return t
}

// Labels returns the folded labels for sp: its display name, its key and
// every synonym of the groups either one belongs to. Longer labels first.
func (t *LabelTable) Labels(sp fields.Spec) []string {
	seen := map[string]bool{}
	var out []string
	add := func(l string) {
		if l != "" && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}

	name, key := foldLabel(sp.Name), foldLabel(sp.Key)
	add(name)
	add(key)
	if t != nil {
		for _, cand := range []string{key, name} {
			if g, ok := t.byLabel[cand]; ok {
				for _, l := range t.groups[g] {
					add(l)
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}
