package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConsolidatorRole is the agent whose structured verdict is the only
// one persisted from an engine run.
const DefaultConsolidatorRole = "Chief Risk Assessment Officer"

// Criteria holds the Green/Amber/Red rating criteria text for one optic.
type Criteria struct {
	Green string `yaml:"Green"`
	Amber string `yaml:"Amber"`
	Red   string `yaml:"Red"`
}

// Agent is the role template for one specialist rater.
type Agent struct {
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
}

// Optic pairs a risk dimension's name with its criteria and agent template.
type Optic struct {
	Name     string
	Criteria Criteria
	Agent    Agent
}

// Optics is the loaded knowledge base: the ordered set of risk dimensions
// the engine rates, plus the consolidating role name. Loaded once at
// startup and injected wherever needed; never package-level state.
type Optics struct {
	Optics           []Optic
	ConsolidatorRole string
}

type opticsFile struct {
	Optics           map[string]Criteria `yaml:"optics"`
	Agents           map[string]Agent    `yaml:"agents"`
	Order            []string            `yaml:"order"`
	ConsolidatorRole string              `yaml:"consolidator_role"`
}

// LoadOptics parses the optics knowledge-base YAML. Every optic needs all
// three criteria; the optional order list fixes iteration order, otherwise
// names sort alphabetically inside ParseOptics.
func LoadOptics(path string) (Optics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Optics{}, fmt.Errorf("read optics config %s: %w", path, err)
	}
	return ParseOptics(data)
}

// ParseOptics decodes and validates an optics knowledge-base payload.
func ParseOptics(data []byte) (Optics, error) {
	var file opticsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Optics{}, fmt.Errorf("decode optics config: %w", err)
	}
	if len(file.Optics) == 0 {
		return Optics{}, fmt.Errorf("optics config defines no optics")
	}

	names := file.Order
	if len(names) == 0 {
		names = sortedKeys(file.Optics)
	}

	out := Optics{ConsolidatorRole: strings.TrimSpace(file.ConsolidatorRole)}
	if out.ConsolidatorRole == "" {
		out.ConsolidatorRole = DefaultConsolidatorRole
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		crit, ok := file.Optics[name]
		if !ok {
			return Optics{}, fmt.Errorf("order references unknown optic %q", name)
		}
		if _, dup := seen[name]; dup {
			return Optics{}, fmt.Errorf("optic %q listed twice", name)
		}
		seen[name] = struct{}{}
		if strings.TrimSpace(crit.Green) == "" || strings.TrimSpace(crit.Amber) == "" || strings.TrimSpace(crit.Red) == "" {
			return Optics{}, fmt.Errorf("optic %q is missing rating criteria", name)
		}
		out.Optics = append(out.Optics, Optic{
			Name:     name,
			Criteria: crit,
			Agent:    file.Agents[name],
		})
	}
	if len(out.Optics) != len(file.Optics) {
		return Optics{}, fmt.Errorf("order lists %d optics, config defines %d", len(out.Optics), len(file.Optics))
	}
	return out, nil
}

// Names returns optic names in configured order.
func (o Optics) Names() []string {
	names := make([]string, 0, len(o.Optics))
	for _, opt := range o.Optics {
		names = append(names, opt.Name)
	}
	return names
}

func sortedKeys(m map[string]Criteria) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
