package premium

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	premiumdb "github.com/nao1215/neptube/internal/premium/db"
	"github.com/nao1215/neptube/internal/testutil"
	"github.com/nao1215/neptube/pkg/tier"
)

// seedDownload はダウンロードを直接登録する。
func seedDownload(t *testing.T, env testEnv, userID string, createdAt time.Time) premiumdb.Download {
	t.Helper()

	d := premiumdb.Download{
		ID:         uuid.New().String(),
		UserID:     userID,
		VideoID:    uuid.New().String(),
		VideoTitle: "Everest Base Camp Trek",
		Quality:    "720p",
		Status:     downloadReady,
		ExpiresAt:  createdAt.Add(downloadRetention),
		CreatedAt:  createdAt,
	}
	require.NoError(t, env.s.queries.CreateDownload(t.Context(), premiumdb.CreateDownloadParams{
		ID:         d.ID,
		UserID:     d.UserID,
		VideoID:    d.VideoID,
		VideoTitle: d.VideoTitle,
		Quality:    d.Quality,
		Status:     d.Status,
		ExpiresAt:  d.ExpiresAt,
		CreatedAt:  d.CreatedAt,
	}))
	return d
}

func downloadBody(quality string) gin.H {
	return gin.H{
		"video_id":      uuid.New().String(),
		"video_title":   "Pokhara Lakeside",
		"thumbnail_url": "https://cdn.neptube.com/t.jpg",
		"quality":       quality,
	}
}

func TestHandleRequestDownload(t *testing.T) {
	t.Parallel()

	t.Run("プランの範囲内なら30日後に期限切れになるダウンロードを登録する", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		seedSubscription(t, env, user.UserID, tier.Premium, statusActive, testNow.Add(24*time.Hour), true)

		code, resp := env.do(t, http.MethodPost, "/api/v1/premium/downloads", user, downloadBody("1080p"))
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "ready", resp["status"])
		assert.Equal(t, "1080p", resp["quality"])
		assert.Equal(t, testNow.Add(downloadRetention).Format(time.RFC3339), resp["expires_at"])
		video := resp["video"].(map[string]any)
		assert.Equal(t, "Pokhara Lakeside", video["title"])
		assert.Equal(t, "https://cdn.neptube.com/t.jpg", video["thumbnail_url"])
		assert.Len(t, env.eventStore.Requests(routeEvents), 1)
	})

	t.Run("freeプランは403", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		code, _ := env.do(t, http.MethodPost, "/api/v1/premium/downloads", newUser("Sita"), downloadBody("480p"))
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("期限切れの契約は403", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		seedSubscription(t, env, user.UserID, tier.VIP, statusExpired, testNow.Add(24*time.Hour), false)

		code, _ := env.do(t, http.MethodPost, "/api/v1/premium/downloads", user, downloadBody("480p"))
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("プランの最大画質を超える場合は400", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		seedSubscription(t, env, user.UserID, tier.Lite, statusActive, testNow.Add(24*time.Hour), true)

		code, _ := env.do(t, http.MethodPost, "/api/v1/premium/downloads", user, downloadBody("1080p"))
		assert.Equal(t, http.StatusBadRequest, code)

		code, _ = env.do(t, http.MethodPost, "/api/v1/premium/downloads", user, downloadBody("8k"))
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("今月の上限に達していたら409", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		seedSubscription(t, env, user.UserID, tier.Lite, statusActive, testNow.Add(24*time.Hour), true)
		for range 10 {
			seedDownload(t, env, user.UserID, testNow.Add(-time.Hour))
		}

		code, _ := env.do(t, http.MethodPost, "/api/v1/premium/downloads", user, downloadBody("720p"))
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("削除したダウンロードも今月の上限に数える", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		seedSubscription(t, env, user.UserID, tier.Lite, statusActive, testNow.Add(24*time.Hour), true)

		for i := range 10 {
			code, resp := env.do(t, http.MethodPost, "/api/v1/premium/downloads", user, downloadBody("720p"))
			require.Equal(t, http.StatusCreated, code, "request %d", i)
			code, _ = env.do(t, http.MethodDelete, "/api/v1/premium/downloads/"+resp["id"].(string), user, nil)
			require.Equal(t, http.StatusOK, code)
		}

		code, _ := env.do(t, http.MethodPost, "/api/v1/premium/downloads", user, downloadBody("720p"))
		assert.Equal(t, http.StatusConflict, code)

		_, me := env.do(t, http.MethodGet, "/api/v1/premium/me", user, nil)
		assert.Equal(t, float64(10), me["downloads_this_month"])
	})

	t.Run("同時に要求しても上限を超えない", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		seedSubscription(t, env, user.UserID, tier.Lite, statusActive, testNow.Add(24*time.Hour), true)
		for range 8 {
			seedDownload(t, env, user.UserID, testNow.Add(-time.Hour))
		}

		const workers = 6
		codes := make(chan int, workers)
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w := testutil.DoRequest(env.s.router, http.MethodPost, "/api/v1/premium/downloads", user, downloadBody("720p"))
				codes <- w.Code
			}()
		}
		wg.Wait()
		close(codes)

		created := 0
		for code := range codes {
			if code == http.StatusCreated {
				created++
			} else {
				assert.Equal(t, http.StatusConflict, code)
			}
		}
		assert.Equal(t, 2, created)
	})

	t.Run("VIPは上限なし", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		seedSubscription(t, env, user.UserID, tier.VIP, statusActive, testNow.Add(24*time.Hour), true)
		for range 60 {
			seedDownload(t, env, user.UserID, testNow.Add(-time.Hour))
		}

		code, _ := env.do(t, http.MethodPost, "/api/v1/premium/downloads", user, downloadBody("2160p"))
		assert.Equal(t, http.StatusCreated, code)
	})

	t.Run("必須項目が無い場合は400", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		code, _ := env.do(t, http.MethodPost, "/api/v1/premium/downloads", newUser("Sita"), gin.H{"quality": "720p"})
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestHandleListDownloads(t *testing.T) {
	t.Parallel()
	env := setupTestServer(t)
	user := newUser("Sita")
	older := seedDownload(t, env, user.UserID, testNow.Add(-2*time.Hour))
	newer := seedDownload(t, env, user.UserID, testNow.Add(-time.Hour))
	seedDownload(t, env, newUser("Ram").UserID, testNow)

	w := testutil.DoRequest(env.s.router, http.MethodGet, "/api/v1/premium/downloads", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := testutil.DecodeJSON[[]map[string]any](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0]["id"])
	assert.Equal(t, older.ID, list[1]["id"])
	assert.Nil(t, list[0]["video"].(map[string]any)["thumbnail_url"])
}

func TestHandleDeleteDownload(t *testing.T) {
	t.Parallel()

	t.Run("自分のダウンロードを削除できる", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		d := seedDownload(t, env, user.UserID, testNow)

		code, _ := env.do(t, http.MethodDelete, "/api/v1/premium/downloads/"+d.ID, user, nil)
		require.Equal(t, http.StatusOK, code)

		w := testutil.DoRequest(env.s.router, http.MethodGet, "/api/v1/premium/downloads", user, nil)
		assert.Empty(t, testutil.DecodeJSON[[]map[string]any](t, w))
	})

	t.Run("削除済みのダウンロードは404", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		user := newUser("Sita")
		d := seedDownload(t, env, user.UserID, testNow)

		code, _ := env.do(t, http.MethodDelete, "/api/v1/premium/downloads/"+d.ID, user, nil)
		require.Equal(t, http.StatusOK, code)
		code, _ = env.do(t, http.MethodDelete, "/api/v1/premium/downloads/"+d.ID, user, nil)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("他人のダウンロードは403", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		d := seedDownload(t, env, newUser("Ram").UserID, testNow)

		code, _ := env.do(t, http.MethodDelete, "/api/v1/premium/downloads/"+d.ID, newUser("Sita"), nil)
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("存在しないダウンロードは404", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		code, _ := env.do(t, http.MethodDelete, "/api/v1/premium/downloads/missing", newUser("Sita"), nil)
		assert.Equal(t, http.StatusNotFound, code)
	})
}
