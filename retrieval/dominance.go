package retrieval

import (
	"fmt"

	"github.com/itish2003/sectionrag/models"
)

// DominanceRule selects the test a section count must pass to be dominant.
type DominanceRule string

const (
	// RuleFraction: count/N >= MinFraction.
	RuleFraction DominanceRule = "fraction"
	// RulePlurality: count is the top count (ties included) and >= MinCount.
	RulePlurality DominanceRule = "plurality"
)

const (
	DefaultMinFraction = 0.4
	DefaultMinCount    = 3

	fractionEpsilon = 1e-9
)

// DominanceConfig holds the thresholds used by DominantSections.
type DominanceConfig struct {
	Rule        DominanceRule `mapstructure:"rule"`
	MinFraction float64       `mapstructure:"min_fraction"`
	MinCount    int           `mapstructure:"min_count"`
}

// DefaultDominanceConfig returns the fraction rule at 40% with a floor of 3.
func DefaultDominanceConfig() DominanceConfig {
	return DominanceConfig{
		Rule:        RuleFraction,
		MinFraction: DefaultMinFraction,
		MinCount:    DefaultMinCount,
	}
}

// Normalize fills unset fields with defaults.
func (c DominanceConfig) Normalize() DominanceConfig {
	if c.Rule == "" {
		c.Rule = RuleFraction
	}
	if c.MinFraction <= 0 {
		c.MinFraction = DefaultMinFraction
	}
	if c.MinCount <= 0 {
		c.MinCount = DefaultMinCount
	}
	return c
}

// Validate rejects unknown rules and out-of-range thresholds.
func (c DominanceConfig) Validate() error {
	switch c.Rule {
	case RuleFraction, RulePlurality:
	default:
		return fmt.Errorf("dominance rule %q must be %q or %q", c.Rule, RuleFraction, RulePlurality)
	}
	if c.MinFraction <= 0 || c.MinFraction > 1 {
		return fmt.Errorf("dominance min_fraction %v must be in (0, 1]", c.MinFraction)
	}
	if c.MinCount < 1 {
		return fmt.Errorf("dominance min_count %d must be >= 1", c.MinCount)
	}
	return nil
}

// DominantSections reports the sections over-represented among metas, the
// metadata of a single query's top-N search results. N is len(metas);
// metas without a section title or page number count towards N but never
// towards a section. The result is ordered by first appearance in metas and
// is empty when no section qualifies.
func DominantSections(metas []models.ChunkMeta, cfg DominanceConfig) []string {
	if len(metas) == 0 {
		return nil
	}
	cfg = cfg.Normalize()

	counts := make(map[string]int)
	var order []string
	top := 0
	for _, m := range metas {
		title, ok := m.Section()
		if !ok {
			continue
		}
		if _, seen := counts[title]; !seen {
			order = append(order, title)
		}
		counts[title]++
		if counts[title] > top {
			top = counts[title]
		}
	}

	n := float64(len(metas))
	var dominant []string
	for _, title := range order {
		c := counts[title]
		switch cfg.Rule {
		case RulePlurality:
			if c == top && c >= cfg.MinCount {
				dominant = append(dominant, title)
			}
		default:
			if float64(c)/n >= cfg.MinFraction-fractionEpsilon {
				dominant = append(dominant, title)
			}
		}
	}
	return dominant
}

// MetasOf extracts the metadata of chunks in order.
func MetasOf(chunks []models.Chunk) []models.ChunkMeta {
	metas := make([]models.ChunkMeta, len(chunks))
	for i, c := range chunks {
		metas[i] = c.Meta
	}
	return metas
}
