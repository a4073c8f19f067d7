package realtime

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/pkg/logger"
)

// Headline is one recent trend item used to theme authority hooks
type Headline struct {
	Title       string
	FeedName    string
	URL         string
	PublishedAt time.Time
}

// Fetcher pulls trend headlines from configured RSS feeds. Failures are
// never fatal; a run with no headlines just falls back to catalog themes.
type Fetcher struct {
	cfg    config.RealtimeConfig
	parser *gofeed.Parser
	log    *logger.Logger
}

func New(cfg config.RealtimeConfig, log *logger.Logger) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		parser: gofeed.NewParser(),
		log:    log.WithComponent("realtime"),
	}
}

// FetchHeadlines retrieves up to MaxHeadlines recent items across all feeds.
// Feeds that fail to parse are logged and skipped.
func (f *Fetcher) FetchHeadlines(ctx context.Context) []Headline {
	if !f.cfg.Enabled {
		return nil
	}

	headlines := make([]Headline, 0, f.cfg.MaxHeadlines)
	for _, feed := range f.cfg.Feeds {
		if len(headlines) >= f.cfg.MaxHeadlines {
			break
		}

		parsed, err := f.parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			f.log.Warn().Err(err).Str("feed", feed.Name).Msg("Failed to parse trend feed")
			continue
		}

		for _, item := range parsed.Items {
			if len(headlines) >= f.cfg.MaxHeadlines {
				break
			}

			// Stale items would date the generated posts.
			publishedAt := time.Now()
			if item.PublishedParsed != nil {
				publishedAt = *item.PublishedParsed
				if time.Since(publishedAt) > 48*time.Hour {
					continue
				}
			}

			title := cleanTitle(item.Title)
			if title == "" {
				continue
			}

			headlines = append(headlines, Headline{
				Title:       title,
				FeedName:    feed.Name,
				URL:         item.Link,
				PublishedAt: publishedAt,
			})
		}
	}

	f.log.Info().Int("count", len(headlines)).Msg("Fetched trend headlines")
	return headlines
}

// HealthCheck verifies every configured feed is reachable
func (f *Fetcher) HealthCheck(ctx context.Context) error {
	for _, feed := range f.cfg.Feeds {
		if _, err := f.parser.ParseURLWithContext(feed.URL, ctx); err != nil {
			return err
		}
	}
	return nil
}

// cleanTitle strips HTML tags and collapses whitespace
func cleanTitle(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(strings.Join(strings.Fields(result.String()), " "))
}
