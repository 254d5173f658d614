package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/neptube/internal/testutil"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/tier"
)

// newAnalyticsBackend は内部サービスと同じ認証で管理者だけを通すバックエンドを起動する。
func newAnalyticsBackend(t *testing.T) *httptest.Server {
	t.Helper()

	r := gin.New()
	r.GET("/api/v1/premium/analytics/earnings", middleware.ServiceJWTAuth(testJWTSecret), func(c *gin.Context) {
		if middleware.GetRole(c) != tier.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "管理者権限が必要です"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": middleware.GetUserID(c)})
	})
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func TestProxy(t *testing.T) {
	t.Parallel()

	t.Run("パスとクエリとボディとユーザー情報を転送する", func(t *testing.T) {
		t.Parallel()
		backend := testutil.NewUpstream(t, map[string]testutil.Response{
			"POST /api/v1/posts/p1/vote": {Status: http.StatusOK, Body: `{"total_votes":1}`},
		})
		s := newTestServer(t, backend.URL)
		u := seedUser(t, s, "Nirmala", RoleUser, tier.Free)
		// トークンには古い表示名とロールが入っている
		stale := u
		stale.DisplayName = "Old Name"
		stale.Role = tier.RoleAdmin
		token := tokenFor(t, stale)

		w := do(s, http.MethodPost, "/api/v1/posts/p1/vote?src=feed", token, `{"option_id":"o1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"total_votes":1}`, w.Body.String())

		reqs := backend.Requests("POST /api/v1/posts/p1/vote")
		require.Len(t, reqs, 1)
		got := reqs[0]
		assert.Equal(t, "src=feed", got.Query)
		assert.JSONEq(t, `{"option_id":"o1"}`, string(got.Body))
		assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
		assert.NotEqual(t, "Bearer "+token, got.Header.Get("Authorization"))
		assert.True(t, strings.HasPrefix(got.Header.Get("Authorization"), "Bearer "))
		assert.Equal(t, u.ID, got.Header.Get(headerUserID))
		assert.Equal(t, "Nirmala", got.Header.Get(headerUserName))
		assert.Equal(t, RoleUser, got.Header.Get(headerUserRole))
	})

	t.Run("内部サービスのステータスをそのまま返す", func(t *testing.T) {
		t.Parallel()
		backend := testutil.NewUpstream(t, map[string]testutil.Response{
			"POST /api/v1/subscriptions/me/toggle": {Status: http.StatusBadRequest, Body: `{"error":"自分自身は登録できません"}`},
		})
		s := newTestServer(t, backend.URL)
		u := seedUser(t, s, "Prakash", RoleUser, tier.Free)

		w := do(s, http.MethodPost, "/api/v1/subscriptions/me/toggle", tokenFor(t, u), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "自分自身")
	})

	t.Run("内部サービスに接続できない場合は502を返す", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)
		u := seedUser(t, s, "Rajan", RoleUser, tier.Free)

		w := do(s, http.MethodGet, "/api/v1/notifications", tokenFor(t, u), "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("認証が必要なルートはトークン無しで401を返す", func(t *testing.T) {
		t.Parallel()
		backend := testutil.NewUpstream(t, nil)
		s := newTestServer(t, backend.URL)

		w := do(s, http.MethodGet, "/api/v1/feed/subscriptions/videos", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, backend.Requests("GET /api/v1/feed/subscriptions/videos"))
	})

	t.Run("公開ルートはトークン無しで転送する", func(t *testing.T) {
		t.Parallel()
		backend := testutil.NewUpstream(t, map[string]testutil.Response{
			"GET /api/v1/premium/plans": {Status: http.StatusOK, Body: `[]`},
		})
		s := newTestServer(t, backend.URL)

		w := do(s, http.MethodGet, "/api/v1/premium/plans", "", "")
		require.Equal(t, http.StatusOK, w.Code)

		reqs := backend.Requests("GET /api/v1/premium/plans")
		require.Len(t, reqs, 1)
		assert.Empty(t, reqs[0].Header.Get(headerUserID))
	})

	t.Run("管理者用のイベント一覧はeventstoreのパスに書き換える", func(t *testing.T) {
		t.Parallel()
		backend := testutil.NewUpstream(t, map[string]testutil.Response{
			"GET /api/v1/events": {Status: http.StatusOK, Body: `{"events":[]}`},
		})
		s := newTestServer(t, backend.URL)
		admin := seedUser(t, s, "Suman", tier.RoleAdmin, tier.Free)

		w := do(s, http.MethodGet, "/api/v1/admin/events?aggregate_type=user", tokenFor(t, admin), "")
		require.Equal(t, http.StatusOK, w.Code)

		reqs := backend.Requests("GET /api/v1/events")
		require.Len(t, reqs, 1)
		assert.Equal(t, "aggregate_type=user", reqs[0].Query)
	})
}

func TestProxyServiceToken(t *testing.T) {
	t.Parallel()

	t.Run("降格された管理者の古いトークンでは管理者向けAPIを使えない", func(t *testing.T) {
		t.Parallel()
		backend := newAnalyticsBackend(t)
		s := newTestServer(t, backend.URL)
		u := seedUser(t, s, "Bishnu", RoleUser, tier.Free)
		// 降格前に発行されたトークン
		demoted := u
		demoted.Role = tier.RoleAdmin
		token := tokenFor(t, demoted)

		w := do(s, http.MethodGet, "/api/v1/premium/analytics/earnings", token, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("現在の管理者は管理者向けAPIを使える", func(t *testing.T) {
		t.Parallel()
		backend := newAnalyticsBackend(t)
		s := newTestServer(t, backend.URL)
		admin := seedUser(t, s, "Kamala", tier.RoleAdmin, tier.Free)

		w := do(s, http.MethodGet, "/api/v1/premium/analytics/earnings", tokenFor(t, admin), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"`+admin.ID+`"}`, w.Body.String())
	})

	t.Run("ログイン用のトークンを内部サービスに直接送ると401", func(t *testing.T) {
		t.Parallel()
		backend := newAnalyticsBackend(t)
		s := newTestServer(t, backend.URL)
		admin := seedUser(t, s, "Kamala", tier.RoleAdmin, tier.Free)

		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, backend.URL+"/api/v1/premium/analytics/earnings", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, admin))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
