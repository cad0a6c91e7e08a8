// Package problemfile loads planning problems from YAML documents. Since JSON
// is valid YAML, the same parser accepts problems embedded in API requests.
package problemfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/rogersf/strips-engine/internal/blocks"
	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/heuristic"
	"github.com/rogersf/strips-engine/internal/strips"
)

// GeneratorBlocks selects the blocks-world domain generator.
const GeneratorBlocks = "blocks"

// Spec is a decoded problem file. Direction, Strategy, Bound and Heuristic are
// search defaults the caller may override.
type Spec struct {
	Name      string            `yaml:"name" json:"name"`
	Direction string            `yaml:"direction,omitempty" json:"direction,omitempty"`
	Strategy  string            `yaml:"strategy,omitempty" json:"strategy,omitempty"`
	Bound     float64           `yaml:"bound,omitempty" json:"bound,omitempty"`
	Heuristic string            `yaml:"heuristic,omitempty" json:"heuristic,omitempty"`
	Domain    DomainSpec        `yaml:"domain" json:"domain"`
	Initial   map[string]string `yaml:"initial,omitempty" json:"initial,omitempty"`
	Goal      map[string]string `yaml:"goal" json:"goal"`
}

// DomainSpec is either a generator reference or an explicit universe with
// actions.
type DomainSpec struct {
	Generator string              `yaml:"generator,omitempty" json:"generator,omitempty"`
	Blocks    []string            `yaml:"blocks,omitempty" json:"blocks,omitempty"`
	Universe  map[string][]string `yaml:"universe,omitempty" json:"universe,omitempty"`
	Actions   []ActionSpec        `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// ActionSpec declares one action of an explicit domain. A nil Cost means
// strips.DefaultCost.
type ActionSpec struct {
	Name string            `yaml:"name" json:"name"`
	Pre  map[string]string `yaml:"pre,omitempty" json:"pre,omitempty"`
	Eff  map[string]string `yaml:"eff" json:"eff"`
	Cost *float64          `yaml:"cost,omitempty" json:"cost,omitempty"`
}

// Load reads and parses a problem file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem file: %w", err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Parse decodes a YAML (or JSON) problem document and checks its search
// settings. Unknown keys are rejected.
func Parse(data []byte) (*Spec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrProblemFile.Detail("empty document")
		}
		return nil, domain.WrapEngineError(domain.ErrProblemFile.Code, domain.ErrProblemFile.Message, err)
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *Spec) validate() error {
	var problems []string

	if _, err := domain.ParseDirection(s.Direction); err != nil {
		problems = append(problems, fmt.Sprintf("direction %q", s.Direction))
	}
	if _, err := domain.ParseStrategy(s.Strategy); err != nil {
		problems = append(problems, fmt.Sprintf("strategy %q", s.Strategy))
	}
	if s.Heuristic != "" && !slices.Contains(heuristic.Names(), s.Heuristic) {
		problems = append(problems, fmt.Sprintf("heuristic %q", s.Heuristic))
	}
	if s.Bound < 0 {
		problems = append(problems, "bound must not be negative")
	}
	if len(s.Goal) == 0 {
		problems = append(problems, "goal is required")
	}

	switch s.Domain.Generator {
	case GeneratorBlocks:
		if len(s.Domain.Blocks) == 0 {
			problems = append(problems, "blocks generator needs at least one block")
		}
		if len(s.Domain.Universe) > 0 || len(s.Domain.Actions) > 0 {
			problems = append(problems, "blocks generator does not take universe or actions")
		}
	case "":
		if len(s.Domain.Universe) == 0 {
			problems = append(problems, "domain.universe is required without a generator")
		}
		if len(s.Initial) == 0 {
			problems = append(problems, "initial is required without a generator")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown generator %q", s.Domain.Generator))
	}

	if len(problems) > 0 {
		return domain.ErrProblemFile.Detail("%v", problems)
	}
	return nil
}

// Build constructs the validated planning problem.
func (s *Spec) Build() (*strips.Problem, error) {
	d, err := s.buildDomain()
	if err != nil {
		return nil, fmt.Errorf("%w: domain: %w", domain.ErrProblemFile, err)
	}

	var initial strips.State
	switch {
	case len(s.Initial) > 0:
		initial = toState(s.Initial)
	case s.Domain.Generator == GeneratorBlocks:
		initial = blocks.AllOnTable(s.Domain.Blocks...)
	}

	name := s.Name
	if name == "" {
		name = "unnamed"
	}
	p, err := strips.NewProblem(name, d, initial, toState(s.Goal))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProblemFile, err)
	}
	return p, nil
}

func (s *Spec) buildDomain() (*strips.Domain, error) {
	if s.Domain.Generator == GeneratorBlocks {
		return blocks.NewDomain(s.Domain.Blocks...)
	}

	universe := make(strips.Universe, len(s.Domain.Universe))
	for p, values := range s.Domain.Universe {
		vs := make([]strips.Value, len(values))
		for i, v := range values {
			vs[i] = strips.Value(v)
		}
		universe[strips.Proposition(p)] = vs
	}

	actions := make([]*strips.Action, 0, len(s.Domain.Actions))
	for _, as := range s.Domain.Actions {
		var opts []strips.ActionOption
		if as.Cost != nil {
			opts = append(opts, strips.WithCost(*as.Cost))
		}
		a, err := strips.NewAction(as.Name, toState(as.Pre), toState(as.Eff), opts...)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return strips.NewDomain(universe, actions)
}

func toState(m map[string]string) strips.State {
	facts := make(map[strips.Proposition]strips.Value, len(m))
	for p, v := range m {
		facts[strips.Proposition(p)] = strips.Value(v)
	}
	return strips.NewState(facts)
}
