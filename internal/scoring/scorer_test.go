package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/internal/models"
)

func defaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		PriorityGenreKeywords: []string{"ai"},
		PriorityTierS:         30000,
		PriorityTierA:         15000,
		PriorityTierB:         5000,
		TierSImpressions:      30000,
		TierSDelta:            100,
		TierAImpressions:      20000,
		TierADelta:            50,
		TierAAltDelta:         80,
		TierBImpressions:      20000,
		TierBDelta:            30,
		WinImpressions:        30000,
		WinDelta:              40,
		NicheDelta:            15,
		NicheImpression:       10000,
		GemDelta:              40,
		FailImpression:        10000,
	}
}

func TestScoreHighPerformer(t *testing.T) {
	s := New(defaultConfig())

	scored := s.Score(models.Post{Impressions: 35000, FollowersDelta: 120, Genre: "education"})

	assert.Equal(t, models.TierS, scored.Tier)
	assert.Equal(t, models.EvaluationWin, scored.Evaluation)
	assert.InDelta(t, 120*12.0+35000/2000.0, scored.Score, 0.001)
}

func TestScoreLowPerformer(t *testing.T) {
	s := New(defaultConfig())

	scored := s.Score(models.Post{Impressions: 8000, FollowersDelta: 5, Genre: "education"})

	assert.Equal(t, models.TierC, scored.Tier)
	assert.NotContains(t, []models.Evaluation{
		models.EvaluationWin, models.EvaluationNicheHit, models.EvaluationHiddenGem,
	}, scored.Evaluation)
	assert.Equal(t, models.EvaluationFail, scored.Evaluation)
}

func TestScoreIsDeterministic(t *testing.T) {
	s := New(defaultConfig())
	post := models.Post{Impressions: 21500, FollowersDelta: 55, Genre: "business"}

	first := s.Score(post)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Score(post))
	}
}

func TestPriorityGenreUsesImpressionOnlyFormula(t *testing.T) {
	s := New(defaultConfig())

	scored := s.Score(models.Post{Impressions: 16000, FollowersDelta: 0, Genre: "AI活用"})

	assert.InDelta(t, 160.0, scored.Score, 0.001)
	assert.Equal(t, models.TierA, scored.Tier)
}

func TestPriorityGenreTiers(t *testing.T) {
	s := New(defaultConfig())

	tests := []struct {
		impressions int
		want        models.Tier
	}{
		{30000, models.TierS},
		{29999, models.TierA},
		{15000, models.TierA},
		{14999, models.TierB},
		{5000, models.TierB},
		{4999, models.TierC},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.TierFor(tt.impressions, 0, "ai"), "impressions=%d", tt.impressions)
	}
}

func TestTierMonotonicity(t *testing.T) {
	s := New(defaultConfig())

	// Increasing impressions while delta is fixed never lowers the tier
	for _, delta := range []int{0, 15, 30, 50, 80, 100, 150} {
		prev := -1
		for imp := 0; imp <= 40000; imp += 500 {
			rank := s.TierFor(imp, delta, "").Rank()
			require.GreaterOrEqual(t, rank, prev, "delta=%d imp=%d", delta, imp)
			prev = rank
		}
	}

	// Increasing delta while impressions are fixed never lowers the tier
	for _, imp := range []int{0, 5000, 19999, 20000, 29999, 30000, 40000} {
		prev := -1
		for delta := 0; delta <= 200; delta += 5 {
			rank := s.TierFor(imp, delta, "").Rank()
			require.GreaterOrEqual(t, rank, prev, "imp=%d delta=%d", imp, delta)
			prev = rank
		}
	}
}

func TestEvaluationBands(t *testing.T) {
	s := New(defaultConfig())

	tests := []struct {
		name        string
		impressions int
		delta       int
		want        models.Evaluation
	}{
		{"win", 30000, 40, models.EvaluationWin},
		{"niche on big reach", 30000, 20, models.EvaluationNicheHit},
		{"niche on mid reach", 12000, 18, models.EvaluationNicheHit},
		{"hidden gem", 9000, 60, models.EvaluationHiddenGem},
		{"buzz only", 50000, 3, models.EvaluationBuzzOnly},
		{"fail", 4000, 2, models.EvaluationFail},
		{"other", 15000, 5, models.EvaluationOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.EvaluationFor(tt.impressions, tt.delta))
		})
	}
}

func TestZeroDeltaAtSeriesStart(t *testing.T) {
	s := New(defaultConfig())

	// First day of a series carries delta 0, never a null propagated into
	// arithmetic; the post still scores and tiers cleanly.
	scored := s.Score(models.Post{Impressions: 25000, FollowersDelta: 0})
	assert.Equal(t, models.TierC, scored.Tier)
	assert.InDelta(t, 12.5, scored.Score, 0.001)
}
