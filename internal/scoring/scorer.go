package scoring

import (
	"strings"

	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/internal/models"
)

// TierRule is one ordered tiering predicate; first match wins
type TierRule struct {
	Tier  models.Tier
	Match func(impressions, followersDelta int) bool
}

// EvaluationRule is one ordered evaluation predicate; first match wins
type EvaluationRule struct {
	Evaluation models.Evaluation
	Match      func(impressions, followersDelta int) bool
}

// Scorer derives score, tier and evaluation for a post. All outputs are
// pure functions of (impressions, followersDelta, genre).
type Scorer struct {
	cfg              config.ScoringConfig
	priorityKeywords []string
	priorityTiers    []TierRule
	standardTiers    []TierRule
	evaluations      []EvaluationRule
}

// New builds a scorer from threshold configuration
func New(cfg config.ScoringConfig) *Scorer {
	s := &Scorer{cfg: cfg}
	for _, kw := range cfg.PriorityGenreKeywords {
		s.priorityKeywords = append(s.priorityKeywords, strings.ToLower(kw))
	}

	// Priority-genre posts are tiered on impressions alone
	s.priorityTiers = []TierRule{
		{models.TierS, func(imp, _ int) bool { return imp >= cfg.PriorityTierS }},
		{models.TierA, func(imp, _ int) bool { return imp >= cfg.PriorityTierA }},
		{models.TierB, func(imp, _ int) bool { return imp >= cfg.PriorityTierB }},
		{models.TierC, func(_, _ int) bool { return true }},
	}

	s.standardTiers = []TierRule{
		{models.TierS, func(imp, delta int) bool {
			return imp >= cfg.TierSImpressions && delta >= cfg.TierSDelta
		}},
		{models.TierA, func(imp, delta int) bool {
			return (imp >= cfg.TierAImpressions && delta >= cfg.TierADelta) ||
				(imp < cfg.TierAImpressions && delta >= cfg.TierAAltDelta)
		}},
		{models.TierB, func(imp, delta int) bool {
			return imp >= cfg.TierBImpressions && delta >= cfg.TierBDelta
		}},
		{models.TierC, func(_, _ int) bool { return true }},
	}

	s.evaluations = []EvaluationRule{
		{models.EvaluationWin, func(imp, delta int) bool {
			return imp >= cfg.WinImpressions && delta >= cfg.WinDelta
		}},
		{models.EvaluationNicheHit, func(imp, delta int) bool {
			return imp >= cfg.NicheImpression && delta >= cfg.NicheDelta
		}},
		{models.EvaluationHiddenGem, func(imp, delta int) bool {
			return imp < cfg.WinImpressions && delta >= cfg.GemDelta
		}},
		{models.EvaluationBuzzOnly, func(imp, _ int) bool {
			return imp >= cfg.WinImpressions
		}},
		{models.EvaluationFail, func(imp, delta int) bool {
			return imp < cfg.FailImpression && delta < cfg.NicheDelta
		}},
		{models.EvaluationOther, func(_, _ int) bool { return true }},
	}

	return s
}

// IsPriorityGenre reports whether the account genre matches the priority
// theme keyword set
func (s *Scorer) IsPriorityGenre(genre string) bool {
	if genre == "" {
		return false
	}
	lower := strings.ToLower(genre)
	for _, kw := range s.priorityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ScoreValue computes the numeric score for a post
func (s *Scorer) ScoreValue(impressions, followersDelta int, genre string) float64 {
	if s.IsPriorityGenre(genre) {
		return float64(impressions) / 100.0
	}
	return float64(followersDelta)*12.0 + float64(impressions)/2000.0
}

// TierFor resolves the tier for the given metrics
func (s *Scorer) TierFor(impressions, followersDelta int, genre string) models.Tier {
	rules := s.standardTiers
	if s.IsPriorityGenre(genre) {
		rules = s.priorityTiers
	}
	for _, rule := range rules {
		if rule.Match(impressions, followersDelta) {
			return rule.Tier
		}
	}
	return models.TierC
}

// EvaluationFor resolves the evaluation label for the given metrics
func (s *Scorer) EvaluationFor(impressions, followersDelta int) models.Evaluation {
	for _, rule := range s.evaluations {
		if rule.Match(impressions, followersDelta) {
			return rule.Evaluation
		}
	}
	return models.EvaluationOther
}

// Score derives the full scored view of a post
func (s *Scorer) Score(post models.Post) models.ScoredPost {
	return models.ScoredPost{
		Post:       post,
		Score:      s.ScoreValue(post.Impressions, post.FollowersDelta, post.Genre),
		Tier:       s.TierFor(post.Impressions, post.FollowersDelta, post.Genre),
		Evaluation: s.EvaluationFor(post.Impressions, post.FollowersDelta),
	}
}

// ScoreAll derives scored views for a pool of posts
func (s *Scorer) ScoreAll(posts []models.Post) []models.ScoredPost {
	scored := make([]models.ScoredPost, 0, len(posts))
	for _, post := range posts {
		scored = append(scored, s.Score(post))
	}
	return scored
}
