package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailsync/backend/internal/config"
	"mailsync/backend/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.ProviderConfig{
		BaseURL:        baseURL,
		Timeout:        5 * time.Second,
		RateLimit:      1000,
		RateBurst:      1000,
		SyncWindowDays: 14,
	}, zap.NewNop())
}

func TestClientStartSync(t *testing.T) {
	t.Run("携带窗口参数与凭证", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/email/sync", r.URL.Path)
			assert.Equal(t, "14", r.URL.Query().Get("daysWithin"))
			assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
			w.Write([]byte(`{"ready":false,"syncUpdatedToken":"D0"}`))
		}))
		defer server.Close()

		resp, err := newTestClient(server.URL).StartSync(context.Background(), "token-1", 14)
		require.NoError(t, err)
		assert.False(t, resp.Ready)
		assert.Equal(t, "D0", resp.SyncUpdatedToken)
	})
}

func TestClientFetchChangedPage(t *testing.T) {
	t.Run("页游标优先于增量游标", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/email/sync/updated", r.URL.Path)
			assert.Equal(t, "P1", r.URL.Query().Get("pageToken"))
			assert.Empty(t, r.URL.Query().Get("deltaToken"))
			w.Write([]byte(`{"records":[],"nextDeltaToken":"D1"}`))
		}))
		defer server.Close()

		page, err := newTestClient(server.URL).FetchChangedPage(context.Background(), "t",
			domain.SyncCursor{DeltaToken: "D0", PageToken: "P1"})
		require.NoError(t, err)
		assert.Equal(t, "D1", page.NextDeltaToken)
	})

	t.Run("无页游标时使用增量游标", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "D0", r.URL.Query().Get("deltaToken"))
			assert.Empty(t, r.URL.Query().Get("pageToken"))
			w.Write([]byte(`{"records":[{"id":"m1","threadId":"t1","subject":"hi"}],"nextPageToken":"P1"}`))
		}))
		defer server.Close()

		page, err := newTestClient(server.URL).FetchChangedPage(context.Background(), "t",
			domain.SyncCursor{DeltaToken: "D0"})
		require.NoError(t, err)
		require.Len(t, page.Records, 1)
		assert.Equal(t, "m1", page.Records[0].ID)
		assert.Equal(t, "P1", page.NextPageToken)
	})
}

func TestClientErrorClassification(t *testing.T) {
	t.Run("5xx 归类为 RemoteUnavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).StartSync(context.Background(), "t", 14)
		assert.ErrorIs(t, err, ErrRemoteUnavailable)
	})

	t.Run("4xx 归类为 RemoteRejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).StartSync(context.Background(), "expired", 14)
		assert.ErrorIs(t, err, ErrRemoteRejected)
	})

	t.Run("网络错误归类为 RemoteUnavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // 立即关闭，制造连接失败

		_, err := newTestClient(server.URL).FetchAccountProfile(context.Background(), "t")
		assert.ErrorIs(t, err, ErrRemoteUnavailable)
	})
}

func TestClientFetchAccountProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account", r.URL.Path)
		w.Write([]byte(`{"email":"user@example.com","name":"User Example"}`))
	}))
	defer server.Close()

	profile, err := newTestClient(server.URL).FetchAccountProfile(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", profile.Email)
	assert.Equal(t, "User Example", profile.Name)
}
