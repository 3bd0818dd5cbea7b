// Package catalog holds the immutable list of service plans offered by the
// registration wizard.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultPlans []byte

// Plan is a single subscribable service plan.
type Plan struct {
	ID              string   `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	Speed           string   `yaml:"speed,omitempty" json:"speed,omitempty"`
	MonthlyPrice    int64    `yaml:"monthlyPrice" json:"monthlyPrice"`
	Features        []string `yaml:"features" json:"features"`
	EligibilityNote string   `yaml:"eligibilityNote" json:"eligibilityNote"`
}

// Summary is the compact view of a plan sent to the recommendation model.
type Summary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	EligibilityNote string `json:"eligibilityNote"`
}

// Catalog is safe for concurrent use; it is never mutated after Parse.
type Catalog struct {
	plans []Plan
	byID  map[string]int
}

// Parse decodes and validates a YAML plan list.
func Parse(data []byte) (*Catalog, error) {
	var plans []Plan
	if err := yaml.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("catalog: decode plans: %w", err)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("catalog: no plans defined")
	}

	c := &Catalog{
		plans: make([]Plan, 0, len(plans)),
		byID:  make(map[string]int, len(plans)),
	}
	for i, p := range plans {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.ID == "" {
			return nil, fmt.Errorf("catalog: plan %d has no id", i)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("catalog: plan %q has no name", p.ID)
		}
		if p.MonthlyPrice < 0 {
			return nil, fmt.Errorf("catalog: plan %q has negative price %d", p.ID, p.MonthlyPrice)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate plan id %q", p.ID)
		}
		c.byID[p.ID] = len(c.plans)
		c.plans = append(c.plans, p)
	}
	return c, nil
}

// Load reads a catalog from path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultPlans)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Parse(defaultPlans)
	if err != nil {
		panic(err)
	}
	return c
})

// Default returns the built-in catalog.
func Default() *Catalog {
	return defaultCatalog()
}

// Plans returns a copy of every plan in catalog order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, len(c.plans))
	for i, p := range c.plans {
		out[i] = p.clone()
	}
	return out
}

// Plan looks up a plan by id.
func (c *Catalog) Plan(id string) (Plan, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Plan{}, false
	}
	return c.plans[i].clone(), true
}

func (c *Catalog) Contains(id string) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *Catalog) Len() int {
	return len(c.plans)
}

// Summaries returns the compact id/name/price/eligibility view of every plan.
func (c *Catalog) Summaries() []Summary {
	out := make([]Summary, len(c.plans))
	for i, p := range c.plans {
		out[i] = Summary{
			ID:              p.ID,
			Name:            p.Name,
			Price:           p.MonthlyPrice,
			EligibilityNote: p.EligibilityNote,
		}
	}
	return out
}

func (p Plan) clone() Plan {
	p.Features = append([]string(nil), p.Features...)
	return p
}
