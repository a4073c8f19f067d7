package models

import "time"

// Tier is the discrete performance bucket assigned to a post
type Tier string

const (
	TierS Tier = "tier_S"
	TierA Tier = "tier_A"
	TierB Tier = "tier_B"
	TierC Tier = "tier_C"
)

// Rank returns an ordinal for tier comparisons (C < B < A < S)
func (t Tier) Rank() int {
	switch t {
	case TierS:
		return 3
	case TierA:
		return 2
	case TierB:
		return 1
	default:
		return 0
	}
}

// Evaluation is the categorical outcome classification of a post, used for
// curation filtering; distinct from tier
type Evaluation string

const (
	EvaluationWin       Evaluation = "win"
	EvaluationNicheHit  Evaluation = "niche_hit"
	EvaluationHiddenGem Evaluation = "hidden_gem"
	EvaluationBuzzOnly  Evaluation = "buzz_only"
	EvaluationFail      Evaluation = "fail"
	EvaluationOther     Evaluation = "other"
)

// Post is a raw post record read from the analytics store. followers_delta
// is derived day-over-day in the store query and zero-filled at the start
// of each account's series.
type Post struct {
	AccountName    string
	Username       string
	PostDate       time.Time
	Content        string
	Impressions    int
	Likes          int
	Followers      int
	FollowersDelta int
	Genre          string
}

// ScoredPost is a Post plus the derived score, tier and evaluation. The
// derived fields are recomputed per run and never persisted.
type ScoredPost struct {
	Post
	Score      float64
	Tier       Tier
	Evaluation Evaluation
}

// AccountSummary describes the own account's recent trajectory
type AccountSummary struct {
	AverageFollowers   int
	AverageProfileView int
	TotalProfileViews  int
	FollowersChange    int
	ProfileViewsChange int
	RecentDates        []string
}

// TrendingTheme is a genre-level aggregate over recent competitor activity
type TrendingTheme struct {
	ThemeTag          string
	AvgFollowersDelta float64
	AvgViews          float64
	SampleAccounts    []string
}

// TemplateSummary is per-template average performance over a recent window
type TemplateSummary struct {
	TemplateID      string
	PostCount       int
	ImpressionAvg   float64
	LikeAvg         float64
	Status          string
	StructureNotes  string
}

// OwnPost is one of the account's own published posts
type OwnPost struct {
	PostID      string
	PostedAt    time.Time
	Content     string
	Impressions int
	Likes       int
	Permalink   string
}
