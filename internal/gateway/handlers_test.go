package gateway

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	gatewaydb "github.com/nao1215/neptube/internal/gateway/db"
	"github.com/nao1215/neptube/internal/testutil"
	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/httpclient"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/profile"
	"github.com/nao1215/neptube/pkg/tier"
)

const routeEvents = "POST /api/v1/events"

func newEventStore(t *testing.T) *testutil.Upstream {
	t.Helper()
	return testutil.NewUpstream(t, map[string]testutil.Response{
		routeEvents: {Status: http.StatusCreated, Body: `{}`},
	})
}

func TestAdminModeration(t *testing.T) {
	t.Parallel()

	t.Run("管理者以外は403を返す", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)
		u := seedUser(t, s, "Om", RoleUser, tier.VIP)
		target := seedUser(t, s, "Pramila", RoleUser, tier.Free)

		w := do(s, http.MethodPut, "/api/v1/admin/users/"+target.ID+"/ban", tokenFor(t, u), `{"reason":"spam"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("トークンのロールではなくDBのロールで判定する", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)
		u := seedUser(t, s, "Rita", RoleUser, tier.Free)
		forged := u
		forged.Role = tier.RoleAdmin

		w := do(s, http.MethodGet, "/api/v1/admin/users", tokenFor(t, forged), "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("利用停止にすると以降のリクエストが403になり解除で戻る", func(t *testing.T) {
		t.Parallel()
		events := newEventStore(t)
		s := newTestServer(t, events.URL)
		admin := seedUser(t, s, "Sabin", tier.RoleAdmin, tier.Free)
		target := seedUser(t, s, "Tara", RoleUser, tier.Free)

		w := do(s, http.MethodPut, "/api/v1/admin/users/"+target.ID+"/ban", tokenFor(t, admin), `{"reason":"spam"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"id":"`+target.ID+`","is_banned":true,"banned_reason":"spam"}`, w.Body.String())

		assert.Equal(t, http.StatusForbidden, do(s, http.MethodGet, "/api/v1/me", tokenFor(t, target), "").Code)

		reqs := events.Requests(routeEvents)
		require.Len(t, reqs, 1)
		ev := testutil.DecodeBody[event.AppendRequest](t, reqs[0])
		assert.Equal(t, target.ID, ev.AggregateID)
		assert.Equal(t, event.AggregateTypeUser, ev.AggregateType)
		assert.Equal(t, event.TypeUserBanned, ev.EventType)
		assert.JSONEq(t, `{"moderator_id":"`+admin.ID+`","reason":"spam"}`, string(ev.Data))

		w = do(s, http.MethodPut, "/api/v1/admin/users/"+target.ID+"/unban", tokenFor(t, admin), "")
		require.Equal(t, http.StatusOK, w.Code)

		me := do(s, http.MethodGet, "/api/v1/me", tokenFor(t, target), "")
		require.Equal(t, http.StatusOK, me.Code)
		assert.Nil(t, testutil.DecodeJSON[userResponse](t, me).BannedReason)
		assert.Len(t, events.Requests(routeEvents), 2)
	})

	t.Run("不正な利用停止は拒否する", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)
		admin := seedUser(t, s, "Usha", tier.RoleAdmin, tier.Free)
		target := seedUser(t, s, "Vivek", RoleUser, tier.Free)
		token := tokenFor(t, admin)

		assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPut, "/api/v1/admin/users/"+target.ID+"/ban", token, `{}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPut, "/api/v1/admin/users/"+admin.ID+"/ban", token, `{"reason":"x"}`).Code)
		assert.Equal(t, http.StatusNotFound, do(s, http.MethodPut, "/api/v1/admin/users/"+uuid.New().String()+"/ban", token, `{"reason":"x"}`).Code)
		assert.Equal(t, http.StatusNotFound, do(s, http.MethodPut, "/api/v1/admin/users/"+uuid.New().String()+"/unban", token, "").Code)
	})

	t.Run("ロールを変更する", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)
		admin := seedUser(t, s, "Yam", tier.RoleAdmin, tier.Free)
		target := seedUser(t, s, "Asha", RoleUser, tier.Free)
		token := tokenFor(t, admin)

		w := do(s, http.MethodPut, "/api/v1/admin/users/"+target.ID+"/role", token, `{"role":"admin"}`)
		require.Equal(t, http.StatusOK, w.Code)

		// 昇格したユーザーは古いトークンのままでも管理者APIを使える
		assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/v1/admin/users", tokenFor(t, target), "").Code)

		assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPut, "/api/v1/admin/users/"+target.ID+"/role", token, `{"role":"owner"}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPut, "/api/v1/admin/users/"+admin.ID+"/role", token, `{"role":"user"}`).Code)
	})

	t.Run("利用停止中のユーザーだけを一覧する", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)
		admin := seedUser(t, s, "Binod", tier.RoleAdmin, tier.Free)
		banned := seedUser(t, s, "Chandra", RoleUser, tier.Free)
		seedUser(t, s, "Dipak", RoleUser, tier.Free)
		require.NoError(t, s.users.Ban(t.Context(), banned.ID, "abuse"))

		w := do(s, http.MethodGet, "/api/v1/admin/users?banned=true", tokenFor(t, admin), "")
		require.Equal(t, http.StatusOK, w.Code)
		users := testutil.DecodeJSON[[]userResponse](t, w)
		require.Len(t, users, 1)
		assert.Equal(t, banned.ID, users[0].ID)
		require.NotNil(t, users[0].BannedReason)
		assert.Equal(t, "abuse", *users[0].BannedReason)

		all := testutil.DecodeJSON[[]userResponse](t, do(s, http.MethodGet, "/api/v1/admin/users", tokenFor(t, admin), ""))
		assert.Len(t, all, 3)

		assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/v1/admin/users?limit=0", tokenFor(t, admin), "").Code)
	})
}

func TestLookupUsers(t *testing.T) {
	t.Parallel()

	t.Run("存在するユーザーのプロフィールだけを返す", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)
		ram := seedUser(t, s, "Ram", RoleUser, tier.Free)
		sita := seedUser(t, s, "Sita", RoleUser, tier.Free)

		w := doInternal(s, http.MethodPost, profile.LookupPath, `{"ids":["`+ram.ID+`","`+sita.ID+`","`+uuid.New().String()+`"]}`)
		require.Equal(t, http.StatusOK, w.Code)

		resp := testutil.DecodeJSON[profile.LookupResponse](t, w)
		assert.ElementsMatch(t, []profile.Profile{
			{ID: ram.ID, Name: "Ram", ImageURL: ram.AvatarUrl},
			{ID: sita.ID, Name: "Sita", ImageURL: sita.AvatarUrl},
		}, resp.Users)
	})

	t.Run("IDが空の場合は空配列を返す", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)

		w := doInternal(s, http.MethodPost, profile.LookupPath, `{"ids":[]}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"users":[]}`, w.Body.String())
	})

	t.Run("共有トークンが無い場合は401を返す", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)
		ram := seedUser(t, s, "Ram", RoleUser, tier.Free)

		w := do(s, http.MethodPost, profile.LookupPath, "", `{"ids":["`+ram.ID+`"]}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotContains(t, w.Body.String(), "Ram")
	})

	t.Run("内部サービスのクライアントから参照できる", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)
		ram := seedUser(t, s, "Ram", RoleUser, tier.Free)
		ts := httptest.NewServer(s.router)
		t.Cleanup(ts.Close)

		profiles, err := profile.Lookup(t.Context(), profile.NewGatewayClient(ts.URL, testInternalToken), []string{ram.ID})
		require.NoError(t, err)
		assert.Equal(t, "Ram", profiles[ram.ID].Name)

		_, err = profile.Lookup(t.Context(), profile.NewGatewayClient(ts.URL, "wrong-token"), []string{ram.ID})
		var se *httpclient.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	})

	t.Run("上限を超えるIDは400を返す", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)

		ids := make([]string, maxLookupIDs+1)
		for i := range ids {
			ids[i] = uuid.New().String()
		}
		body := `{"ids":["` + ids[0]
		for _, id := range ids[1:] {
			body += `","` + id
		}
		body += `"]}`

		w := doInternal(s, http.MethodPost, profile.LookupPath, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSetTier(t *testing.T) {
	t.Parallel()

	t.Run("プランを保存してサイドバーに反映する", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)
		u := seedUser(t, s, "Gita", RoleUser, tier.Free)

		w := doInternal(s, http.MethodPut, "/internal/v1/users/"+u.ID+"/tier", `{"tier":"vip"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"`+u.ID+`","tier":"vip"}`, w.Body.String())

		sidebar := testutil.DecodeJSON[sidebarResponse](t, do(s, http.MethodGet, "/api/v1/sidebar", tokenFor(t, u), ""))
		assert.True(t, sidebar.IsPremium)
	})

	t.Run("不正なプランは400を返す", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)
		u := seedUser(t, s, "Hari", RoleUser, tier.Free)

		assert.Equal(t, http.StatusBadRequest, doInternal(s, http.MethodPut, "/internal/v1/users/"+u.ID+"/tier", `{"tier":"gold"}`).Code)
		assert.Equal(t, http.StatusBadRequest, doInternal(s, http.MethodPut, "/internal/v1/users/"+u.ID+"/tier", `{}`).Code)
	})

	t.Run("共有トークンが無い場合はプランを変更できない", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)
		u := seedUser(t, s, "Gita", RoleUser, tier.Free)

		w := do(s, http.MethodPut, "/internal/v1/users/"+u.ID+"/tier", tokenFor(t, u), `{"tier":"vip"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		got, err := s.users.Get(t.Context(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, string(tier.Free), got.SubscriptionTier)
	})

	t.Run("存在しないユーザーは404を返す", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, unreachableURL)

		w := doInternal(s, http.MethodPut, "/internal/v1/users/"+uuid.New().String()+"/tier", `{"tier":"lite"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUserStore(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, unreachableURL)
	u := seedUser(t, s, "Indira", RoleUser, tier.Free)
	ctx := t.Context()

	require.NoError(t, s.users.SetRole(ctx, u.ID, tier.RoleAdmin))
	require.NoError(t, s.users.SetTier(ctx, u.ID, tier.Lite))
	require.NoError(t, s.users.Ban(ctx, u.ID, ""))

	got, err := s.users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, tier.RoleAdmin, got.Role)
	assert.Equal(t, "lite", got.SubscriptionTier)
	assert.Equal(t, int64(1), got.IsBanned)
	assert.False(t, got.BannedReason.Valid)

	_, err = ParseRole("owner")
	require.Error(t, err)
	require.Error(t, s.users.SetRole(ctx, u.ID, "owner"))
	require.ErrorIs(t, s.users.SetTier(ctx, uuid.New().String(), tier.VIP), ErrUserNotFound)
	_, err = s.users.Get(ctx, uuid.New().String())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestStorageError(t *testing.T) {
	t.Parallel()

	newMockServer := func(t *testing.T) (*Server, sqlmock.Sqlmock) {
		t.Helper()
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { mockDB.Close() })

		s := newServer(mockDB, zap.NewNop(), options{jwtSecret: testJWTSecret, internalToken: testInternalToken, rateLimitRPS: 1000, rateLimitBurst: 1000}, serviceURLConfig{})
		s.setupRoutes(middleware.JWTAuth(testJWTSecret))
		return s, mock
	}

	t.Run("ユーザー読み込みに失敗した場合は500を返す", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockServer(t)
		mock.ExpectQuery("SELECT (.+) FROM users").WillReturnError(errors.New("disk I/O error"))

		w := do(s, http.MethodGet, "/api/v1/me", tokenFor(t, gatewaydb.User{ID: uuid.New().String(), Role: RoleUser}), "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("プロフィールの一括取得に失敗した場合は500を返す", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockServer(t)
		mock.ExpectQuery("SELECT (.+) FROM users").WillReturnError(errors.New("disk I/O error"))

		w := doInternal(s, http.MethodPost, profile.LookupPath, `{"ids":["`+uuid.New().String()+`"]}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "ユーザー情報の取得に失敗しました")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
