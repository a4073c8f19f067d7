package hooks

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/threads-agent/internal/config"
)

// ThemePlaceholder is the literal token replaced with the theme text.
// Substitution is a single literal pass, never recursive.
const ThemePlaceholder = "{theme}"

// Hook is one selected rhetorical framing template
type Hook struct {
	Type     string
	Template string
}

// Apply substitutes the theme into the hook template
func (h Hook) Apply(theme string) string {
	return strings.ReplaceAll(h.Template, ThemePlaceholder, theme)
}

// Selector draws hook templates from weighted buckets. Any positive total
// weight is accepted; the draw normalizes implicitly by walking the buckets.
type Selector struct {
	buckets     []config.HookBucket
	totalWeight float64
	rng         *rand.Rand
}

// NewSelector builds a selector over the configured buckets. The rand
// source is injected so batch runs are reproducible in tests.
func NewSelector(buckets []config.HookBucket, rng *rand.Rand) (*Selector, error) {
	var total float64
	for _, bucket := range buckets {
		if bucket.Weight < 0 {
			return nil, fmt.Errorf("hook bucket %q has negative weight %v", bucket.Type, bucket.Weight)
		}
		if bucket.Weight > 0 && len(bucket.Templates) == 0 {
			return nil, fmt.Errorf("hook bucket %q has weight but no templates", bucket.Type)
		}
		total += bucket.Weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("hook buckets have no positive weight")
	}
	return &Selector{buckets: buckets, totalWeight: total, rng: rng}, nil
}

// Select draws one hook. The draw walks buckets in declaration order
// subtracting weights, so ties break toward earlier buckets and buckets
// with zero weight are never chosen.
func (s *Selector) Select() Hook {
	r := s.rng.Float64() * s.totalWeight
	for _, bucket := range s.buckets {
		if bucket.Weight <= 0 {
			continue
		}
		r -= bucket.Weight
		if r <= 0 {
			return s.pick(bucket)
		}
	}
	// Float64 rounding can leave a sliver; fall back to the first
	// selectable bucket.
	for _, bucket := range s.buckets {
		if bucket.Weight > 0 {
			return s.pick(bucket)
		}
	}
	return Hook{}
}

// SelectForced draws uniformly from the named bucket regardless of weights.
// Unknown bucket types fall back to a weighted draw.
func (s *Selector) SelectForced(bucketType string) Hook {
	for _, bucket := range s.buckets {
		if bucket.Type == bucketType && len(bucket.Templates) > 0 {
			return s.pick(bucket)
		}
	}
	return s.Select()
}

func (s *Selector) pick(bucket config.HookBucket) Hook {
	template := bucket.Templates[s.rng.Intn(len(bucket.Templates))]
	return Hook{Type: bucket.Type, Template: template}
}
