package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cartoonclub-backend-go/internal/core"
	"cartoonclub-backend-go/internal/models"
)

type countingContentRepo struct {
	mu           sync.Mutex
	totalMinutes map[string]int64
	weekly       map[string]int64
	followers    map[string]int64
}

func newCountingContentRepo() *countingContentRepo {
	return &countingContentRepo{
		totalMinutes: make(map[string]int64),
		weekly:       make(map[string]int64),
		followers:    make(map[string]int64),
	}
}

func (r *countingContentRepo) ListAll(ctx context.Context) ([]*models.Content, error) {
	return nil, nil
}
func (r *countingContentRepo) Create(ctx context.Context, c *models.Content) error { return nil }
func (r *countingContentRepo) WeeklyMinutes(ctx context.Context, contentID, weekKey string) (int64, error) {
	return 0, nil
}

func (r *countingContentRepo) AddWatchMinutes(ctx context.Context, contentID string, minutes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalMinutes[contentID] += minutes
	return nil
}

func (r *countingContentRepo) AddWeeklyMinutes(ctx context.Context, contentID, weekKey string, minutes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weekly[contentID+"/"+weekKey] += minutes
	return nil
}

func (r *countingContentRepo) AddFollowers(ctx context.Context, contentID string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followers[contentID] += delta
	return nil
}

func setupPlaybackRouter(repo *countingContentRepo) (*gin.Engine, *core.WatchTimeService) {
	gin.SetMode(gin.TestMode)
	watchTime := core.NewWatchTimeService(repo, time.Hour, zap.NewNop())
	h := NewPlaybackHandler(watchTime, zap.NewNop())
	r := gin.New()
	r.POST("/playback/heartbeat", h.Heartbeat)
	r.POST("/playback/complete", h.Complete)
	r.POST("/content/:contentId/follow", h.Follow)
	r.DELETE("/content/:contentId/follow", h.Unfollow)
	return r, watchTime
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestPlaybackHandler_HeartbeatThenComplete(t *testing.T) {
	repo := newCountingContentRepo()
	router, _ := setupPlaybackRouter(repo)

	w := postJSON(router, "/playback/heartbeat", `{"contentId":"c1","seconds":90}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Empty(t, repo.totalMinutes)

	w = postJSON(router, "/playback/complete", `{"contentId":"c1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got CompleteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, int64(1), got.MinutesFlushed)
	require.Equal(t, int64(1), repo.totalMinutes["c1"])
}

func TestPlaybackHandler_CompleteWithClientTalliedMinutes(t *testing.T) {
	repo := newCountingContentRepo()
	router, _ := setupPlaybackRouter(repo)

	// A session watched offline: no heartbeats arrived, the client reports
	// its own whole-minute total on completion.
	w := postJSON(router, "/playback/complete", `{"contentId":"c1","minutes":12}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got CompleteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, int64(12), got.MinutesFlushed)
	require.Equal(t, int64(12), repo.totalMinutes["c1"])

	weekKey := core.WeekKey(time.Now().UTC())
	require.Equal(t, int64(12), repo.weekly["c1/"+weekKey])
}

func TestPlaybackHandler_CompleteCombinesBufferAndTally(t *testing.T) {
	repo := newCountingContentRepo()
	router, _ := setupPlaybackRouter(repo)

	postJSON(router, "/playback/heartbeat", `{"contentId":"c1","seconds":120}`)
	w := postJSON(router, "/playback/complete", `{"contentId":"c1","minutes":5}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got CompleteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, int64(7), got.MinutesFlushed)
	require.Equal(t, int64(7), repo.totalMinutes["c1"])
}

func TestPlaybackHandler_RejectsBadPayloads(t *testing.T) {
	router, _ := setupPlaybackRouter(newCountingContentRepo())

	require.Equal(t, http.StatusBadRequest,
		postJSON(router, "/playback/heartbeat", `{"seconds":60}`).Code)
	require.Equal(t, http.StatusBadRequest,
		postJSON(router, "/playback/heartbeat", `{"contentId":"c1","seconds":0}`).Code)
	require.Equal(t, http.StatusBadRequest,
		postJSON(router, "/playback/complete", `{}`).Code)
}

func TestPlaybackHandler_FollowUnfollow(t *testing.T) {
	repo := newCountingContentRepo()
	router, _ := setupPlaybackRouter(repo)

	require.Equal(t, http.StatusOK, postJSON(router, "/content/c1/follow", "").Code)
	require.Equal(t, http.StatusOK, postJSON(router, "/content/c1/follow", "").Code)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/content/c1/follow", nil))
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, int64(1), repo.followers["c1"])
}
