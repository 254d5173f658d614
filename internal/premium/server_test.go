package premium

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	premiumdb "github.com/nao1215/neptube/internal/premium/db"
	"github.com/nao1215/neptube/internal/testutil"
	"github.com/nao1215/neptube/pkg/httpclient"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/profile"
	"github.com/nao1215/neptube/pkg/tier"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const routeEvents = "POST /api/v1/events"

// testInternalToken はゲートウェイの内部APIに送る共有トークン。
const testInternalToken = "test-internal-token"

// testNow はテスト中の現在時刻。
var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// testEnv はテスト用サーバーと上流サービスのモックをまとめる。
type testEnv struct {
	s          *Server
	gateway    *testutil.Upstream
	eventStore *testutil.Upstream
}

// setupTestServer はテスト用のプレミアムサーバーをインメモリSQLiteで構築する。
// 現在時刻はtestNowに固定する。
func setupTestServer(t *testing.T) testEnv {
	t.Helper()

	sqlDB := testutil.OpenMemoryDB(t)
	require.NoError(t, initSchema(t.Context(), sqlDB, zap.NewNop()))

	env := testEnv{
		gateway: testutil.NewUpstream(t, nil),
		eventStore: testutil.NewUpstream(t, map[string]testutil.Response{
			routeEvents: {Status: http.StatusCreated, Body: `{}`},
		}),
	}
	env.s = newServer(sqlDB, zap.NewNop(), tier.Default(), clients{
		eventStore: httpclient.New(env.eventStore.URL),
		gateway:    profile.NewGatewayClient(env.gateway.URL, testInternalToken),
	})
	env.s.now = func() time.Time { return testNow }
	env.s.setupRoutes(testutil.HeaderAuth())
	return env
}

// do は指定ユーザーとしてリクエストを実行する。
func (e testEnv) do(t *testing.T, method, path string, id middleware.Identity, body any) (int, map[string]any) {
	t.Helper()
	w := testutil.DoRequest(e.s.router, method, path, id, body)
	if w.Body.Len() == 0 || w.Body.Bytes()[0] != '{' {
		return w.Code, nil
	}
	return w.Code, testutil.DecodeJSON[map[string]any](t, w)
}

// routeTier はゲートウェイのプラン同期APIのルート。
func routeTier(userID string) string {
	return "PUT /internal/v1/users/" + userID + "/tier"
}

func newUser(name string) middleware.Identity {
	return middleware.Identity{UserID: uuid.New().String(), Name: name}
}

// seedSubscription はサブスクリプションを直接登録する。
func seedSubscription(t *testing.T, env testEnv, userID string, tr tier.Tier, status string, end time.Time, autoRenew bool) premiumdb.PremiumSubscription {
	t.Helper()

	sub := premiumdb.PremiumSubscription{
		ID:        uuid.New().String(),
		UserID:    userID,
		Tier:      string(tr),
		Status:    status,
		StartDate: end.Add(-subscriptionPeriod),
		EndDate:   end,
		CreatedAt: end.Add(-subscriptionPeriod),
		UpdatedAt: end.Add(-subscriptionPeriod),
	}
	if autoRenew {
		sub.AutoRenew = 1
	}
	require.NoError(t, env.s.queries.CreatePremiumSubscription(t.Context(), premiumdb.CreatePremiumSubscriptionParams(sub)))
	return sub
}

// seedPayment は支払いを直接登録する。
func seedPayment(t *testing.T, env testEnv, userID, status string, createdAt time.Time) premiumdb.Payment {
	t.Helper()

	p := premiumdb.Payment{
		ID:        uuid.New().String(),
		UserID:    userID,
		Tier:      string(tier.Premium),
		Amount:    19900,
		Currency:  currencyNPR,
		Gateway:   "khalti",
		Status:    status,
		CreatedAt: createdAt,
	}
	require.NoError(t, env.s.queries.CreatePayment(t.Context(), premiumdb.CreatePaymentParams(p)))
	return p
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	env := setupTestServer(t)

	code, resp := env.do(t, http.MethodGet, "/health", middleware.Identity{}, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "premium", resp["service"])
}

func TestHandlePlans(t *testing.T) {
	t.Parallel()
	env := setupTestServer(t)

	w := testutil.DoRequest(env.s.router, http.MethodGet, "/api/v1/premium/plans", middleware.Identity{}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	plans := testutil.DecodeJSON[[]planResponse](t, w)
	require.Len(t, plans, 4)
	assert.Equal(t, tier.Free, plans[0].Tier)
	assert.Equal(t, "NPR 199", plans[2].PriceDisplay)
	assert.True(t, plans[3].Analytics)
}

func TestHandleMe(t *testing.T) {
	t.Parallel()

	t.Run("契約が無ければfreeプランになる", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		code, resp := env.do(t, http.MethodGet, "/api/v1/premium/me", newUser("Sita"), nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "free", resp["tier"])
		assert.Nil(t, resp["subscription"])
		assert.Equal(t, false, resp["is_expired"])
		assert.Equal(t, "480p", resp["tier_config"].(map[string]any)["max_quality"])
		assert.Equal(t, true, resp["ad_config"].(map[string]any)["show_ads"])
		assert.Equal(t, float64(0), resp["download_quota"].(map[string]any)["max_per_month"])
	})

	t.Run("有効な契約のプランと今月のダウンロード数を返す", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		seedSubscription(t, env, user.UserID, tier.Lite, statusActive, testNow.Add(72*time.Hour), true)
		seedDownload(t, env, user.UserID, testNow.Add(-time.Hour))
		// 先月のダウンロードは数えない
		seedDownload(t, env, user.UserID, monthStart(testNow).Add(-time.Hour))

		code, resp := env.do(t, http.MethodGet, "/api/v1/premium/me", user, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "lite", resp["tier"])
		assert.Equal(t, false, resp["is_expired"])
		assert.Equal(t, map[string]any{
			"name":          "Lite",
			"max_quality":   "720p",
			"price_monthly": float64(9900),
			"price_display": "NPR 99",
		}, resp["tier_config"])
		assert.Equal(t, map[string]any{"show_ads": true, "reduced_frequency": true}, resp["ad_config"])
		assert.Equal(t, float64(10), resp["download_quota"].(map[string]any)["max_per_month"])
		assert.Equal(t, float64(1), resp["downloads_this_month"])
		assert.Equal(t, true, resp["subscription"].(map[string]any)["auto_renew"])
	})

	t.Run("期限切れの契約はfreeプランとして扱う", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		seedSubscription(t, env, user.UserID, tier.Premium, statusActive, testNow.Add(-time.Hour), false)

		code, resp := env.do(t, http.MethodGet, "/api/v1/premium/me", user, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "premium", resp["tier"])
		assert.Equal(t, true, resp["is_expired"])
		assert.Equal(t, "480p", resp["tier_config"].(map[string]any)["max_quality"])
		assert.Equal(t, true, resp["ad_config"].(map[string]any)["show_ads"])
	})

	t.Run("認証が無い場合401を返す", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		code, _ := env.do(t, http.MethodGet, "/api/v1/premium/me", middleware.Identity{}, nil)
		assert.Equal(t, http.StatusUnauthorized, code)
	})
}

func TestHandleSubscribe(t *testing.T) {
	t.Parallel()

	t.Run("カタログの価格で保留中の支払いを作成する", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")

		code, resp := env.do(t, http.MethodPost, "/api/v1/premium/subscribe", user, gin.H{"tier": "vip", "gateway": "esewa"})
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "pending", resp["status"])
		assert.Equal(t, float64(49900), resp["amount"])
		assert.Equal(t, "NPR 499", resp["amount_display"])
		assert.Equal(t, "esewa", resp["gateway"])

		p, err := env.s.queries.GetPayment(t.Context(), resp["id"].(string))
		require.NoError(t, err)
		assert.Equal(t, user.UserID, p.UserID)
	})

	tests := []struct {
		name string
		body gin.H
	}{
		{name: "freeプランは契約できない", body: gin.H{"tier": "free", "gateway": "card"}},
		{name: "未知のプランは400", body: gin.H{"tier": "gold", "gateway": "card"}},
		{name: "未対応の決済手段は400", body: gin.H{"tier": "lite", "gateway": "paypal"}},
		{name: "決済手段が無い場合は400", body: gin.H{"tier": "lite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := setupTestServer(t)

			code, _ := env.do(t, http.MethodPost, "/api/v1/premium/subscribe", newUser("Sita"), tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
		})
	}

	t.Run("同じプランを契約中なら409", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		seedSubscription(t, env, user.UserID, tier.Premium, statusActive, testNow.Add(24*time.Hour), true)

		code, _ := env.do(t, http.MethodPost, "/api/v1/premium/subscribe", user, gin.H{"tier": "premium", "gateway": "card"})
		assert.Equal(t, http.StatusConflict, code)

		code, _ = env.do(t, http.MethodPost, "/api/v1/premium/subscribe", user, gin.H{"tier": "vip", "gateway": "card"})
		assert.Equal(t, http.StatusCreated, code)
	})
}

func TestSyncTier(t *testing.T) {
	t.Parallel()

	t.Run("ゲートウェイにユーザーが無い場合はその旨を記録する", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		core, logs := observer.New(zap.WarnLevel)
		env.s.logger = zap.New(core)

		env.s.syncTier(t.Context(), "missing-user", tier.Lite)

		entries := logs.FilterMessage("ゲートウェイにユーザーが存在しないためプランを同期できません").All()
		require.Len(t, entries, 1)
		assert.Equal(t, env.gateway.URL, entries[0].ContextMap()["gateway"])
	})

	t.Run("ゲートウェイのエラーは警告だけ記録する", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		core, logs := observer.New(zap.WarnLevel)
		env.s.logger = zap.New(core)
		env.gateway.SetRoute(routeTier("u-1"), testutil.Response{Status: http.StatusUnauthorized, Body: `{"error":"内部APIの認証に失敗しました"}`})

		env.s.syncTier(t.Context(), "u-1", tier.VIP)

		assert.Equal(t, 1, logs.FilterMessage("プランの同期に失敗").Len())
	})
}

func TestHandleConfirmPayment(t *testing.T) {
	t.Parallel()

	confirmPath := func(id string) string { return "/internal/v1/payments/" + id + "/confirm" }

	t.Run("支払い成功で30日間の契約を開始しプランを同期する", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		env.gateway.SetRoute(routeTier(user.UserID), testutil.Response{Status: http.StatusOK, Body: `{}`})
		p := seedPayment(t, env, user.UserID, paymentPending, testNow)

		code, resp := env.do(t, http.MethodPost, confirmPath(p.ID), middleware.Identity{}, gin.H{"transaction_id": "txn-1", "success": true})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "completed", resp["status"])
		sub := resp["subscription"].(map[string]any)
		assert.Equal(t, "premium", sub["tier"])
		assert.Equal(t, testNow.Add(subscriptionPeriod).Format(time.RFC3339), sub["end_date"])
		assert.Equal(t, true, sub["auto_renew"])

		stored, err := env.s.queries.GetPayment(t.Context(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, paymentCompleted, stored.Status)
		assert.Equal(t, "txn-1", stored.TransactionID.String)
		assert.True(t, stored.CompletedAt.Valid)

		reqs := env.gateway.Requests(routeTier(user.UserID))
		require.Len(t, reqs, 1)
		assert.JSONEq(t, `{"tier":"premium"}`, string(reqs[0].Body))
		assert.Equal(t, testInternalToken, reqs[0].Header.Get(middleware.InternalTokenHeader))
		assert.Len(t, env.eventStore.Requests(routeEvents), 2)
	})

	t.Run("解約済みの同じプランに支払うと期限を延長して自動更新を再開する", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		env.gateway.SetRoute(routeTier(user.UserID), testutil.Response{Status: http.StatusOK, Body: `{}`})
		end := testNow.Add(5 * 24 * time.Hour)
		existing := seedSubscription(t, env, user.UserID, tier.Premium, statusCancelled, end, false)
		p := seedPayment(t, env, user.UserID, paymentPending, testNow)

		code, resp := env.do(t, http.MethodPost, confirmPath(p.ID), middleware.Identity{}, gin.H{"success": true})
		require.Equal(t, http.StatusOK, code)
		sub := resp["subscription"].(map[string]any)
		assert.Equal(t, existing.ID, sub["id"])
		assert.Equal(t, "active", sub["status"])
		assert.Equal(t, true, sub["auto_renew"])
		assert.Equal(t, end.Add(subscriptionPeriod).Format(time.RFC3339), sub["end_date"])

		stored, err := env.s.queries.GetLatestSubscription(t.Context(), user.UserID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.AutoRenew)
	})

	t.Run("処理済みの支払いは409", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		p := seedPayment(t, env, newUser("Sita").UserID, paymentPending, testNow)

		code, _ := env.do(t, http.MethodPost, confirmPath(p.ID), middleware.Identity{}, gin.H{"success": true})
		require.Equal(t, http.StatusOK, code)
		code, _ = env.do(t, http.MethodPost, confirmPath(p.ID), middleware.Identity{}, gin.H{"success": true})
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("支払い失敗では契約を開始しない", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		p := seedPayment(t, env, user.UserID, paymentPending, testNow)

		code, resp := env.do(t, http.MethodPost, confirmPath(p.ID), middleware.Identity{}, gin.H{"transaction_id": "txn-x", "success": false})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "failed", resp["status"])

		_, err := env.s.queries.GetLatestSubscription(t.Context(), user.UserID)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Empty(t, env.gateway.Requests(routeTier(user.UserID)))
	})

	t.Run("同じプランの契約は期限から延長する", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		end := testNow.Add(10 * 24 * time.Hour)
		existing := seedSubscription(t, env, user.UserID, tier.Premium, statusCancelled, end, false)
		p := seedPayment(t, env, user.UserID, paymentPending, testNow)

		code, resp := env.do(t, http.MethodPost, confirmPath(p.ID), middleware.Identity{}, gin.H{"success": true})
		require.Equal(t, http.StatusOK, code)
		sub := resp["subscription"].(map[string]any)
		assert.Equal(t, existing.ID, sub["id"])
		assert.Equal(t, "active", sub["status"])
		assert.Equal(t, end.Add(subscriptionPeriod).Format(time.RFC3339), sub["end_date"])
	})

	t.Run("別プランの契約は終了して新しい契約に置き換える", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		old := seedSubscription(t, env, user.UserID, tier.Lite, statusActive, testNow.Add(48*time.Hour), true)
		p := seedPayment(t, env, user.UserID, paymentPending, testNow)

		code, resp := env.do(t, http.MethodPost, confirmPath(p.ID), middleware.Identity{}, gin.H{"success": true})
		require.Equal(t, http.StatusOK, code)
		assert.NotEqual(t, old.ID, resp["subscription"].(map[string]any)["id"])

		latest, err := env.s.queries.GetLatestSubscription(t.Context(), user.UserID)
		require.NoError(t, err)
		assert.Equal(t, string(tier.Premium), latest.Tier)

		_, err = env.s.queries.GetActiveSubscription(t.Context(), premiumdb.GetActiveSubscriptionParams{UserID: user.UserID, EndDate: testNow})
		require.NoError(t, err)
		code, me := env.do(t, http.MethodGet, "/api/v1/premium/me", user, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "premium", me["tier"])
	})

	t.Run("存在しない支払いは404", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		code, _ := env.do(t, http.MethodPost, confirmPath("missing"), middleware.Identity{}, gin.H{"success": true})
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("successが無い場合は400", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		code, _ := env.do(t, http.MethodPost, confirmPath("any"), middleware.Identity{}, gin.H{"transaction_id": "t"})
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestHandleCancel(t *testing.T) {
	t.Parallel()

	t.Run("解約後も期限までは有効", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		end := testNow.Add(5 * 24 * time.Hour)
		seedSubscription(t, env, user.UserID, tier.Premium, statusActive, end, true)

		code, resp := env.do(t, http.MethodPost, "/api/v1/premium/cancel", user, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, end.Format(time.RFC3339), resp["active_until"])

		_, me := env.do(t, http.MethodGet, "/api/v1/premium/me", user, nil)
		sub := me["subscription"].(map[string]any)
		assert.Equal(t, "cancelled", sub["status"])
		assert.Equal(t, false, sub["auto_renew"])
		assert.Equal(t, false, me["is_expired"])
		assert.Equal(t, "1080p", me["tier_config"].(map[string]any)["max_quality"])
	})

	t.Run("有効な契約が無ければ404", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		seedSubscription(t, env, user.UserID, tier.Premium, statusActive, testNow.Add(-time.Minute), true)

		code, _ := env.do(t, http.MethodPost, "/api/v1/premium/cancel", user, nil)
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestHandleToggleAutoRenew(t *testing.T) {
	t.Parallel()

	t.Run("自動更新設定が交互に切り替わる", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		seedSubscription(t, env, user.UserID, tier.VIP, statusActive, testNow.Add(time.Hour), true)

		code, resp := env.do(t, http.MethodPost, "/api/v1/premium/auto-renew", user, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, resp["auto_renew"])

		_, resp = env.do(t, http.MethodPost, "/api/v1/premium/auto-renew", user, nil)
		assert.Equal(t, true, resp["auto_renew"])
		assert.Len(t, env.eventStore.Requests(routeEvents), 2)
	})

	t.Run("有効な契約が無ければ404", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		code, _ := env.do(t, http.MethodPost, "/api/v1/premium/auto-renew", newUser("Sita"), nil)
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestHandlePaymentHistory(t *testing.T) {
	t.Parallel()

	t.Run("新しい順にカーソルでページングする", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		var ids []string
		for i := range 5 {
			p := seedPayment(t, env, user.UserID, paymentCompleted, testNow.Add(time.Duration(i)*time.Minute))
			ids = append(ids, p.ID)
		}
		seedPayment(t, env, newUser("Ram").UserID, paymentCompleted, testNow)

		var got []string
		cursor := ""
		for page := 0; ; page++ {
			require.Less(t, page, 5, "ページングが終わらない")
			path := "/api/v1/premium/payments?limit=2"
			if cursor != "" {
				path += "&cursor=" + cursor
			}
			code, resp := env.do(t, http.MethodGet, path, user, nil)
			require.Equal(t, http.StatusOK, code)
			for _, item := range resp["items"].([]any) {
				got = append(got, item.(map[string]any)["id"].(string))
			}
			if resp["next_cursor"] == nil {
				break
			}
			cursor = resp["next_cursor"].(string)
		}

		assert.Equal(t, []string{ids[4], ids[3], ids[2], ids[1], ids[0]}, got)
	})

	t.Run("支払いが無ければ空の一覧", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		code, resp := env.do(t, http.MethodGet, "/api/v1/premium/payments", newUser("Sita"), nil)
		require.Equal(t, http.StatusOK, code)
		assert.Empty(t, resp["items"])
		assert.Nil(t, resp["next_cursor"])
	})

	for _, q := range []string{"limit=0", "limit=101", "limit=abc", "cursor=!!!", "cursor=" + encodeCursor(testNow, "")} {
		t.Run("不正なパラメータは400: "+q, func(t *testing.T) {
			t.Parallel()
			env := setupTestServer(t)

			code, _ := env.do(t, http.MethodGet, "/api/v1/premium/payments?"+q, newUser("Sita"), nil)
			assert.Equal(t, http.StatusBadRequest, code)
		})
	}
}

func TestCursorRoundTrip(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 2, 3, 4, 5, 678900000, time.UTC)
	gotTime, gotID, err := decodeCursor(encodeCursor(ts, "pay-1"))
	require.NoError(t, err)
	assert.True(t, ts.Equal(gotTime))
	assert.Equal(t, "pay-1", gotID)
}

func TestStorageFailure(t *testing.T) {
	t.Parallel()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	mock.ExpectQuery("SELECT (.+) FROM premium_subscriptions").WillReturnError(errors.New("disk I/O error"))

	s := newServer(mockDB, zap.NewNop(), tier.Default(), clients{})
	s.setupRoutes(testutil.HeaderAuth())

	w := testutil.DoRequest(s.router, http.MethodGet, "/api/v1/premium/me", newUser("Sita"), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "サブスクリプションの取得に失敗しました")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExtendFrom(t *testing.T) {
	t.Parallel()

	future := testNow.Add(time.Hour)
	assert.Equal(t, future.Add(subscriptionPeriod), extendFrom(future, testNow))
	assert.Equal(t, testNow.Add(subscriptionPeriod), extendFrom(testNow.Add(-time.Hour), testNow))
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), monthStart(testNow))
}
