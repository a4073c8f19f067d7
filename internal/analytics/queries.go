package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/threads-agent/internal/models"
)

// AccountSummary aggregates the own account's last seven tracked days.
// Zero rows is not an error; an empty summary reads as a fresh account.
func (g *Gateway) AccountSummary(ctx context.Context) (models.AccountSummary, error) {
	const query = `
		WITH recent AS (
			SELECT date, followers_snapshot, profile_views
			FROM threads_daily_metrics
			ORDER BY date DESC
			LIMIT 7
		)
		SELECT
			toInt64(round(avg(followers_snapshot))),
			toInt64(round(avg(profile_views))),
			toInt64(sum(profile_views)),
			toInt64(argMax(followers_snapshot, date) - argMin(followers_snapshot, date)),
			toInt64(argMax(profile_views, date) - argMin(profile_views, date)),
			groupArray(toString(date))
		FROM recent`

	var summary models.AccountSummary
	row := g.db.QueryRowContext(ctx, query)
	err := row.Scan(
		&summary.AverageFollowers,
		&summary.AverageProfileView,
		&summary.TotalProfileViews,
		&summary.FollowersChange,
		&summary.ProfileViewsChange,
		&summary.RecentDates,
	)
	if err != nil {
		return models.AccountSummary{}, fmt.Errorf("account summary query: %w", err)
	}
	return summary, nil
}

// CompetitorPool returns all competitor posts inside the lookback window
// with the day-over-day follower delta joined in. The delta is zero at the
// start of each account's series and when the previous snapshot is zero.
func (g *Gateway) CompetitorPool(ctx context.Context, lookbackDays int) ([]models.Post, error) {
	const query = `
		WITH latest_genre AS (
			SELECT username, argMax(genre, date) AS genre
			FROM competitor_account_daily
			GROUP BY username
		),
		daily AS (
			SELECT
				username,
				date,
				followers,
				if(lagInFrame(followers) OVER (PARTITION BY username ORDER BY date) = 0,
					0,
					followers - lagInFrame(followers) OVER (PARTITION BY username ORDER BY date)
				) AS followers_delta
			FROM competitor_account_daily
			WHERE followers > 0
		)
		SELECT
			p.account_name,
			p.username,
			p.post_date,
			p.content,
			toInt64(p.impressions),
			toInt64(p.likes),
			toInt64(coalesce(d.followers, 0)),
			toInt64(coalesce(d.followers_delta, 0)),
			coalesce(g.genre, 'その他')
		FROM competitor_posts_raw AS p
		LEFT JOIN latest_genre AS g ON p.username = g.username
		LEFT JOIN daily AS d ON p.username = d.username AND toDate(p.post_date) = d.date
		WHERE toDate(p.post_date) >= today() - ?`

	rows, err := g.db.QueryContext(ctx, query, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("competitor pool query: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		err := rows.Scan(
			&post.AccountName,
			&post.Username,
			&post.PostDate,
			&post.Content,
			&post.Impressions,
			&post.Likes,
			&post.Followers,
			&post.FollowersDelta,
			&post.Genre,
		)
		if err != nil {
			return nil, fmt.Errorf("competitor pool scan: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("competitor pool rows: %w", err)
	}

	g.log.Debug().Int("count", len(posts)).Int("lookback_days", lookbackDays).Msg("Fetched competitor pool")
	return posts, nil
}

// OwnTopPosts returns the account's own posts ordered by impressions
func (g *Gateway) OwnTopPosts(ctx context.Context, limit int) ([]models.OwnPost, error) {
	const query = `
		SELECT post_id, posted_at, content, toInt64(impressions_total), toInt64(likes_total), permalink
		FROM threads_posts
		WHERE posted_at IS NOT NULL
		ORDER BY impressions_total DESC
		LIMIT ?`

	rows, err := g.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("own top posts query: %w", err)
	}
	defer rows.Close()

	var posts []models.OwnPost
	for rows.Next() {
		var post models.OwnPost
		var postedAt time.Time
		err := rows.Scan(&post.PostID, &postedAt, &post.Content, &post.Impressions, &post.Likes, &post.Permalink)
		if err != nil {
			return nil, fmt.Errorf("own top posts scan: %w", err)
		}
		post.PostedAt = postedAt
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("own top posts rows: %w", err)
	}
	return posts, nil
}

// TrendingThemes aggregates recent competitor activity by genre: the three
// fastest growing genres plus the three fastest shrinking ones.
func (g *Gateway) TrendingThemes(ctx context.Context) ([]models.TrendingTheme, error) {
	const query = `
		WITH grouped AS (
			SELECT
				coalesce(genre, 'その他') AS theme_tag,
				avg(followers_delta) AS avg_followers_delta,
				avg(views) AS avg_views,
				groupUniqArray(5)(coalesce(username, account_name)) AS accounts
			FROM competitor_account_daily
			WHERE date >= today() - 7
			GROUP BY theme_tag
		)
		SELECT theme_tag, avg_followers_delta, avg_views, accounts
		FROM (
			SELECT * FROM grouped WHERE avg_followers_delta >= 0 ORDER BY avg_followers_delta DESC LIMIT 3
			UNION ALL
			SELECT * FROM grouped WHERE avg_followers_delta < 0 ORDER BY avg_followers_delta ASC LIMIT 3
		)`

	rows, err := g.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("trending themes query: %w", err)
	}
	defer rows.Close()

	var themes []models.TrendingTheme
	for rows.Next() {
		var theme models.TrendingTheme
		err := rows.Scan(&theme.ThemeTag, &theme.AvgFollowersDelta, &theme.AvgViews, &theme.SampleAccounts)
		if err != nil {
			return nil, fmt.Errorf("trending themes scan: %w", err)
		}
		themes = append(themes, theme)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trending themes rows: %w", err)
	}
	return themes, nil
}

// TemplateSummaries returns per-template performance, newest version per
// template, at most ten templates.
func (g *Gateway) TemplateSummaries(ctx context.Context) ([]models.TemplateSummary, error) {
	const query = `
		SELECT
			t.template_id,
			toInt64(coalesce(s.post_count, 0)),
			coalesce(s.impression_avg72h, 0),
			coalesce(s.like_avg72h, 0),
			t.status,
			t.structure_notes
		FROM threads_prompt_templates AS t
		LEFT JOIN threads_prompt_template_scores AS s ON t.template_id = s.template_id
		ORDER BY t.status, t.template_id, t.version DESC`

	rows, err := g.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("template summaries query: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var summaries []models.TemplateSummary
	for rows.Next() {
		var summary models.TemplateSummary
		err := rows.Scan(
			&summary.TemplateID,
			&summary.PostCount,
			&summary.ImpressionAvg,
			&summary.LikeAvg,
			&summary.Status,
			&summary.StructureNotes,
		)
		if err != nil {
			return nil, fmt.Errorf("template summaries scan: %w", err)
		}
		// Versions are ordered newest first; keep the first per template.
		if seen[summary.TemplateID] {
			continue
		}
		seen[summary.TemplateID] = true
		summaries = append(summaries, summary)
		if len(summaries) == 10 {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("template summaries rows: %w", err)
	}
	return summaries, nil
}
