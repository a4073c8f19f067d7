package threads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/internal/models"
	"github.com/threads-agent/pkg/logger"
	"github.com/threads-agent/pkg/ratelimit"
)

const (
	containerPollAttempts = 10
	containerPollInterval = 2 * time.Second
)

// Client publishes plans to the Threads Graph API.
// A post is a container create followed by a publish; comments go out
// as replies chained to the previous thread id.
type Client struct {
	httpClient   *http.Client
	cfg          config.ThreadsConfig
	rateLimiter  *ratelimit.MultiLimiter
	pollInterval time.Duration
	log          *logger.Logger
}

// NewClient creates a new Threads API client
func NewClient(cfg config.ThreadsConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		cfg:          cfg,
		rateLimiter:  limiter,
		pollInterval: containerPollInterval,
		log:          log.WithComponent("threads"),
	}
}

type jobPayload struct {
	MainText string   `json:"mainText"`
	Comments []string `json:"comments"`
}

// Publish posts the job's main text and chains its comments as replies.
// Returns the thread id of the main post. When posting is disabled the
// whole publish is a dry run and a mock id is returned.
func (c *Client) Publish(ctx context.Context, job *models.Job) (string, error) {
	var payload jobPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return "", fmt.Errorf("failed to decode job payload: %w", err)
	}
	if payload.MainText == "" {
		return "", fmt.Errorf("job %s has an empty main text", job.JobID)
	}

	if !c.cfg.PostingEnabled {
		mockID := fmt.Sprintf("dryrun-%d", time.Now().UnixMilli())
		c.log.Info().
			Str("job_id", job.JobID).
			Str("thread_id", mockID).
			Msg("Posting disabled, skipping Threads publish (dry run)")
		return mockID, nil
	}

	if c.cfg.AccessToken == "" || c.cfg.AccountID == "" {
		return "", fmt.Errorf("threads API credentials are not configured")
	}

	mainID, err := c.postThread(ctx, payload.MainText, "")
	if err != nil {
		return "", fmt.Errorf("failed to publish main post: %w", err)
	}

	replyTo := mainID
	for i, comment := range payload.Comments {
		if comment == "" {
			continue
		}
		if err := c.sleep(ctx, c.replyDelay()); err != nil {
			return mainID, err
		}
		commentID, err := c.postThread(ctx, comment, replyTo)
		if err != nil {
			// The main post is already live; report it with the error
			return mainID, fmt.Errorf("failed to publish comment %d: %w", i+1, err)
		}
		replyTo = commentID
	}

	c.log.Info().
		Str("job_id", job.JobID).
		Str("thread_id", mainID).
		Int("comments", len(payload.Comments)).
		Msg("Published thread")

	return mainID, nil
}

// postThread creates a media container and publishes it
func (c *Client) postThread(ctx context.Context, text, replyToID string) (string, error) {
	containerID, err := c.createContainer(ctx, text, replyToID)
	if err != nil {
		return "", err
	}
	return c.publishContainer(ctx, containerID)
}

func (c *Client) createContainer(ctx context.Context, text, replyToID string) (string, error) {
	body := map[string]string{
		"text":       text,
		"media_type": "TEXT",
	}
	if replyToID != "" {
		body["reply_to_id"] = replyToID
	}

	var res struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("%s/threads", c.cfg.AccountID)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &res); err != nil {
		return "", err
	}
	if res.ID == "" {
		return "", fmt.Errorf("container creation returned no id")
	}
	return res.ID, nil
}

func (c *Client) publishContainer(ctx context.Context, containerID string) (string, error) {
	var res struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("%s/threads_publish", c.cfg.AccountID)
	params := url.Values{"creation_id": {containerID}}
	if err := c.do(ctx, http.MethodPost, path, params, nil, &res); err != nil {
		return "", err
	}
	if res.ID != "" {
		return res.ID, nil
	}

	// Some containers finish asynchronously; poll until ready
	if err := c.waitForContainer(ctx, containerID); err != nil {
		return "", err
	}
	if err := c.do(ctx, http.MethodGet, containerID, url.Values{"fields": {"id"}}, nil, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

func (c *Client) waitForContainer(ctx context.Context, containerID string) error {
	params := url.Values{"fields": {"status,error_message"}}
	for i := 0; i < containerPollAttempts; i++ {
		var res struct {
			Status       string `json:"status"`
			ErrorMessage string `json:"error_message"`
		}
		if err := c.do(ctx, http.MethodGet, containerID, params, nil, &res); err != nil {
			return err
		}
		switch res.Status {
		case "ERROR":
			if res.ErrorMessage != "" {
				return fmt.Errorf("container failed: %s", res.ErrorMessage)
			}
			return fmt.Errorf("container creation failed")
		case "FINISHED":
			return nil
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("timed out waiting for container %s", containerID)
}

// do performs an authenticated request against the Graph API
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterThreads); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.cfg.AccessToken)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Msg("Threads API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("threads API error: %s %s", resp.Status, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) replyDelay() time.Duration {
	if c.cfg.ReplyDelay > 0 {
		return c.cfg.ReplyDelay
	}
	return 3 * time.Second
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
