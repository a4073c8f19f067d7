package curation

import (
	"math/rand"
	"strings"

	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/internal/models"
)

// EmptyPoolFallback is handed to the prompt composer when curation has
// nothing to offer. The composer emits it verbatim in the exemplar section.
const EmptyPoolFallback = "参考になる成功事例が見つかりませんでした。一般的なThreads運用のベストプラクティスに従って作成してください。"

// Exemplar is one curated post. StructureOnly marks posts whose theme does
// not match the run's keywords; the composer must use their rhetorical
// shape but never their subject matter.
type Exemplar struct {
	Post          models.ScoredPost
	StructureOnly bool
	Flagship      bool
}

// Curator samples high performing competitor posts into a prompt-sized
// exemplar set.
type Curator struct {
	cfg config.CurationConfig
	rng *rand.Rand
}

func New(cfg config.CurationConfig, rng *rand.Rand) *Curator {
	return &Curator{cfg: cfg, rng: rng}
}

// Curate filters, caps and samples the competitor pool, then merges the
// flagship subset on top. An empty pool is not an error; callers fall back
// to EmptyPoolFallback.
func (c *Curator) Curate(pool []models.ScoredPost, themeKeywords []string) []Exemplar {
	general := c.sampleGeneral(pool, themeKeywords)
	flagship := c.sampleFlagship(pool)
	// Flagship exemplars lead and do not count against the sample size.
	return append(flagship, general...)
}

func (c *Curator) sampleGeneral(pool []models.ScoredPost, themeKeywords []string) []Exemplar {
	eligible := make([]models.ScoredPost, 0, len(pool))
	perAccountTier := make(map[string]int)
	for _, post := range pool {
		if !isCurationTier(post.Tier) || !isCurationEvaluation(post.Evaluation) {
			continue
		}
		key := string(post.Tier) + "|" + post.Username
		if perAccountTier[key] >= c.cfg.MaxPerAccountTier {
			continue
		}
		perAccountTier[key]++
		eligible = append(eligible, post)
	}

	sampled := c.sample(eligible, c.cfg.SampleSize)
	exemplars := make([]Exemplar, 0, len(sampled))
	for _, post := range sampled {
		exemplars = append(exemplars, Exemplar{
			Post:          post,
			StructureOnly: !matchesTheme(post, themeKeywords),
		})
	}
	return exemplars
}

// sampleFlagship runs an independent draw over the flagship account's
// longer form posts. Tier and evaluation filters do not apply here.
func (c *Curator) sampleFlagship(pool []models.ScoredPost) []Exemplar {
	if c.cfg.FlagshipAccount == "" {
		return nil
	}
	eligible := make([]models.ScoredPost, 0)
	for _, post := range pool {
		if post.Username != c.cfg.FlagshipAccount {
			continue
		}
		if len([]rune(post.Content)) <= c.cfg.FlagshipMinLength {
			continue
		}
		eligible = append(eligible, post)
	}

	sampled := c.sample(eligible, c.cfg.FlagshipSampleSize)
	exemplars := make([]Exemplar, 0, len(sampled))
	for _, post := range sampled {
		exemplars = append(exemplars, Exemplar{Post: post, Flagship: true})
	}
	return exemplars
}

// sample draws up to n posts without replacement
func (c *Curator) sample(pool []models.ScoredPost, n int) []models.ScoredPost {
	if len(pool) <= n {
		return pool
	}
	shuffled := make([]models.ScoredPost, len(pool))
	copy(shuffled, pool)
	c.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

func isCurationTier(tier models.Tier) bool {
	return tier == models.TierS || tier == models.TierA
}

func isCurationEvaluation(eval models.Evaluation) bool {
	switch eval {
	case models.EvaluationWin, models.EvaluationNicheHit, models.EvaluationHiddenGem:
		return true
	}
	return false
}

func matchesTheme(post models.ScoredPost, keywords []string) bool {
	haystack := strings.ToLower(post.Genre + " " + post.Content)
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
