package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// newCORSRouter はフロントエンド向けCORS設定を適用したルーターを返す。
// ハンドラが呼ばれた回数をcallsに数える。
func newCORSRouter(calls *int, origins ...string) *gin.Engine {
	router := gin.New()
	router.Use(CORS(FrontendCORS(origins...)))
	router.GET("/videos", func(c *gin.Context) {
		*calls++
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func corsRequest(router *gin.Engine, method, origin, requestMethod string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/videos", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if requestMethod != "" {
		req.Header.Set("Access-Control-Request-Method", requestMethod)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	t.Parallel()

	t.Run("許可したオリジンの通常リクエストに許可ヘッダーを付ける", func(t *testing.T) {
		t.Parallel()

		calls := 0
		router := newCORSRouter(&calls, "http://localhost:3000/", "https://neptube.example")
		w := corsRequest(router, http.MethodGet, "http://localhost:3000", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, calls)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "Retry-After", w.Header().Get("Access-Control-Expose-Headers"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
		// プリフライト専用のヘッダーは付けない
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("許可していないオリジンでもハンドラは実行しヘッダーを付けない", func(t *testing.T) {
		t.Parallel()

		calls := 0
		router := newCORSRouter(&calls, "http://localhost:3000")
		w := corsRequest(router, http.MethodGet, "https://evil.example", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, calls)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("プリフライトは204で許可内容を返しハンドラを呼ばない", func(t *testing.T) {
		t.Parallel()

		calls := 0
		router := newCORSRouter(&calls, "http://localhost:3000")
		w := corsRequest(router, http.MethodOptions, "http://localhost:3000", http.MethodPost)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Zero(t, calls)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, PUT, DELETE", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Authorization, Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("許可していないオリジンやメソッドのプリフライトは403", func(t *testing.T) {
		t.Parallel()

		calls := 0
		router := newCORSRouter(&calls, "http://localhost:3000")

		assert.Equal(t, http.StatusForbidden, corsRequest(router, http.MethodOptions, "https://evil.example", http.MethodGet).Code)
		assert.Equal(t, http.StatusForbidden, corsRequest(router, http.MethodOptions, "http://localhost:3000", http.MethodPatch).Code)
		assert.Zero(t, calls)
	})

	t.Run("オリジンを設定しなければ許可ヘッダーを付けない", func(t *testing.T) {
		t.Parallel()

		calls := 0
		router := newCORSRouter(&calls)
		w := corsRequest(router, http.MethodGet, "http://localhost:3000", "")

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
