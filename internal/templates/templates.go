// Package templates loads the per-category workflow templates that
// licensing workflows are generated from.
package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
)

//go:embed default.yaml
var defaultTemplates []byte

var (
	ErrInvalidTemplate = errors.New("invalid workflow template")
	ErrUnknownCategory = errors.New("no template for license category")
)

var hundred = decimal.NewFromInt(100)

type StepTemplate struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Required  bool     `yaml:"required" json:"required"`
	Recurring bool     `yaml:"recurring" json:"recurring"`
	DependsOn []string `yaml:"depends_on" json:"depends_on"`
}

type MilestoneTemplate struct {
	ID                string `yaml:"id" json:"id"`
	Name              string `yaml:"name" json:"name"`
	PaymentPercentage string `yaml:"payment_percentage" json:"payment_percentage"`
	OffsetDays        int    `yaml:"offset_days" json:"offset_days"`
}

// Percentage parses PaymentPercentage as an exact decimal.
func (m MilestoneTemplate) Percentage() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(m.PaymentPercentage)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: milestone %q has malformed percentage %q", ErrInvalidTemplate, m.ID, m.PaymentPercentage)
	}
	return d, nil
}

type Template struct {
	Category    models.LicenseCategory `yaml:"category" json:"category"`
	Description string                 `yaml:"description" json:"description"`
	Steps       []StepTemplate         `yaml:"steps" json:"steps"`
	Milestones  []MilestoneTemplate    `yaml:"milestones" json:"milestones"`
}

type file struct {
	Templates []Template `yaml:"templates"`
}

// Registry holds one validated template per license category.
type Registry struct {
	templates map[models.LicenseCategory]*Template
}

// LoadDefault returns the registry built from the bundled templates.
func LoadDefault() (*Registry, error) {
	return Parse(defaultTemplates)
}

// Load reads templates from path, or the bundled defaults when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return LoadDefault()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("%w: no templates defined", ErrInvalidTemplate)
	}

	r := &Registry{templates: make(map[models.LicenseCategory]*Template)}
	for i := range f.Templates {
		t := f.Templates[i]
		if _, dup := r.templates[t.Category]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidTemplate, t.Category)
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		r.templates[t.Category] = &t
	}
	return r, nil
}

// ForCategory returns a copy of the template for category, re-validated so a
// caller never builds a workflow from a template that breaks its invariants.
func (r *Registry) ForCategory(category models.LicenseCategory) (*Template, error) {
	t, ok := r.templates[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	out := t.clone()
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Registry) Categories() []models.LicenseCategory {
	out := make([]models.LicenseCategory, 0, len(r.templates))
	for c := range r.templates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks the template's structural invariants: known category,
// unique ids, milestone percentages summing to exactly 100, dependency
// references that resolve, an acyclic step graph and a single recurring step.
func (t *Template) Validate() error {
	if !knownCategory(t.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidTemplate, t.Category)
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("%w: %s has no steps", ErrInvalidTemplate, t.Category)
	}
	if len(t.Milestones) == 0 {
		return fmt.Errorf("%w: %s has no milestones", ErrInvalidTemplate, t.Category)
	}

	seen := make(map[string]bool, len(t.Steps))
	recurring := 0
	for _, s := range t.Steps {
		if s.ID == "" {
			return fmt.Errorf("%w: %s has a step without id", ErrInvalidTemplate, t.Category)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: %s has duplicate step %q", ErrInvalidTemplate, t.Category, s.ID)
		}
		seen[s.ID] = true
		if s.Recurring {
			recurring++
		}
	}
	if recurring != 1 {
		return fmt.Errorf("%w: %s must have exactly one recurring step, has %d", ErrInvalidTemplate, t.Category, recurring)
	}
	for _, s := range t.Steps {
		for _, dep := range s.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("%w: step %q depends on unknown step %q", ErrInvalidTemplate, s.ID, dep)
			}
			if dep == s.ID {
				return fmt.Errorf("%w: step %q depends on itself", ErrInvalidTemplate, s.ID)
			}
		}
	}
	if _, err := t.OrderedSteps(); err != nil {
		return err
	}

	total := decimal.Zero
	milestoneIDs := make(map[string]bool, len(t.Milestones))
	for _, m := range t.Milestones {
		if m.ID == "" {
			return fmt.Errorf("%w: %s has a milestone without id", ErrInvalidTemplate, t.Category)
		}
		if milestoneIDs[m.ID] {
			return fmt.Errorf("%w: %s has duplicate milestone %q", ErrInvalidTemplate, t.Category, m.ID)
		}
		milestoneIDs[m.ID] = true
		if m.OffsetDays < 0 {
			return fmt.Errorf("%w: milestone %q has negative offset", ErrInvalidTemplate, m.ID)
		}
		p, err := m.Percentage()
		if err != nil {
			return err
		}
		if !p.IsPositive() || p.GreaterThan(hundred) || !p.Equal(p.Round(2)) {
			return fmt.Errorf("%w: milestone %q percentage %s out of range", ErrInvalidTemplate, m.ID, p)
		}
		total = total.Add(p)
	}
	if !total.Equal(hundred) {
		return fmt.Errorf("%w: %s milestone percentages sum to %s, want 100", ErrInvalidTemplate, t.Category, total)
	}
	return nil
}

// OrderedSteps returns the steps in dependency order using Kahn's algorithm,
// keeping declaration order among steps that are ready at the same time. A
// cycle yields ErrInvalidTemplate.
func (t *Template) OrderedSteps() ([]StepTemplate, error) {
	indegree := make(map[string]int, len(t.Steps))
	dependents := make(map[string][]string, len(t.Steps))
	for _, s := range t.Steps {
		indegree[s.ID] += 0
		for _, dep := range s.DependsOn {
			indegree[s.ID]++
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	ordered := make([]StepTemplate, 0, len(t.Steps))
	emitted := make(map[string]bool, len(t.Steps))
	for len(ordered) < len(t.Steps) {
		progressed := false
		for _, s := range t.Steps {
			if emitted[s.ID] || indegree[s.ID] > 0 {
				continue
			}
			emitted[s.ID] = true
			ordered = append(ordered, s)
			for _, next := range dependents[s.ID] {
				indegree[next]--
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, fmt.Errorf("%w: %s step dependencies contain a cycle", ErrInvalidTemplate, t.Category)
		}
	}
	return ordered, nil
}

func (t *Template) clone() *Template {
	out := *t
	out.Steps = make([]StepTemplate, len(t.Steps))
	for i, s := range t.Steps {
		s.DependsOn = append([]string(nil), s.DependsOn...)
		out.Steps[i] = s
	}
	out.Milestones = append([]MilestoneTemplate(nil), t.Milestones...)
	return &out
}

func knownCategory(c models.LicenseCategory) bool {
	switch c {
	case models.LicenseCategoryAdaptation, models.LicenseCategoryAudio,
		models.LicenseCategoryTranslation, models.LicenseCategoryMerchandising:
		return true
	}
	return false
}
