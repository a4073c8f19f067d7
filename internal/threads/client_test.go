package threads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/internal/models"
	"github.com/threads-agent/pkg/logger"
	"github.com/threads-agent/pkg/ratelimit"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled", Format: "json"})
}

func testLimiter() *ratelimit.MultiLimiter {
	m := ratelimit.NewMultiLimiter()
	m.AddLimiter(ratelimit.LimiterThreads, 1000, 1000)
	return m
}

func newTestClient(cfg config.ThreadsConfig) *Client {
	return NewClient(cfg, testLimiter(), testLogger())
}

func testJob(mainText string, comments ...string) *models.Job {
	payload, _ := json.Marshal(jobPayload{MainText: mainText, Comments: comments})
	return &models.Job{JobID: "job-1", PlanID: "plan-01", Payload: string(payload)}
}

func TestPublishDryRun(t *testing.T) {
	client := newTestClient(config.ThreadsConfig{PostingEnabled: false})

	threadID, err := client.Publish(context.Background(), testJob("本文", "コメント1", "コメント2"))

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(threadID, "dryrun-"))
}

func TestPublishRequiresCredentials(t *testing.T) {
	client := newTestClient(config.ThreadsConfig{PostingEnabled: true})

	_, err := client.Publish(context.Background(), testJob("本文"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}

func TestPublishRejectsEmptyMainText(t *testing.T) {
	client := newTestClient(config.ThreadsConfig{PostingEnabled: false})

	_, err := client.Publish(context.Background(), testJob(""))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty main text")
}

func TestPublishChainsCommentsAsReplies(t *testing.T) {
	type containerReq struct {
		Text      string `json:"text"`
		MediaType string `json:"media_type"`
		ReplyToID string `json:"reply_to_id"`
	}

	var containers []containerReq
	var published []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-x", r.URL.Query().Get("access_token"))
		switch {
		case strings.HasSuffix(r.URL.Path, "/acct-1/threads"):
			var req containerReq
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			containers = append(containers, req)
			json.NewEncoder(w).Encode(map[string]string{"id": "container-" + req.Text})
		case strings.HasSuffix(r.URL.Path, "/acct-1/threads_publish"):
			creationID := r.URL.Query().Get("creation_id")
			published = append(published, creationID)
			json.NewEncoder(w).Encode(map[string]string{"id": strings.TrimPrefix(creationID, "container-") + "-thread"})
		default:
			t.Fatalf("unexpected request path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(config.ThreadsConfig{
		PostingEnabled: true,
		BaseURL:        server.URL,
		AccountID:      "acct-1",
		AccessToken:    "token-x",
		ReplyDelay:     time.Millisecond,
	})

	threadID, err := client.Publish(context.Background(), testJob("main", "c1", "c2"))

	require.NoError(t, err)
	assert.Equal(t, "main-thread", threadID)
	require.Len(t, containers, 3)
	assert.Equal(t, "", containers[0].ReplyToID)
	assert.Equal(t, "main-thread", containers[1].ReplyToID)
	assert.Equal(t, "c1-thread", containers[2].ReplyToID)
	assert.Equal(t, []string{"container-main", "container-c1", "container-c2"}, published)
}

func TestPublishPollsAsyncContainer(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/acct-1/threads"):
			json.NewEncoder(w).Encode(map[string]string{"id": "container-1"})
		case strings.HasSuffix(r.URL.Path, "/acct-1/threads_publish"):
			// No id yet; the container finishes asynchronously
			json.NewEncoder(w).Encode(map[string]string{})
		case strings.HasSuffix(r.URL.Path, "/container-1"):
			if r.URL.Query().Get("fields") == "id" {
				json.NewEncoder(w).Encode(map[string]string{"id": "thread-async"})
				return
			}
			polls++
			status := "IN_PROGRESS"
			if polls >= 2 {
				status = "FINISHED"
			}
			json.NewEncoder(w).Encode(map[string]string{"status": status})
		default:
			t.Fatalf("unexpected request path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(config.ThreadsConfig{
		PostingEnabled: true,
		BaseURL:        server.URL,
		AccountID:      "acct-1",
		AccessToken:    "token-x",
	})
	client.pollInterval = time.Millisecond

	threadID, err := client.Publish(context.Background(), testJob("main"))

	require.NoError(t, err)
	assert.Equal(t, "thread-async", threadID)
	assert.Equal(t, 2, polls)
}

func TestPublishSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad token"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(config.ThreadsConfig{
		PostingEnabled: true,
		BaseURL:        server.URL,
		AccountID:      "acct-1",
		AccessToken:    "token-x",
	})

	_, err := client.Publish(context.Background(), testJob("main"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad token")
}
