package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig はブラウザからのクロスオリジンアクセスの許可内容。
type CORSConfig struct {
	// Origins は許可するオリジン。末尾のスラッシュは無視する。
	Origins []string
	// Methods はプリフライトで許可するHTTPメソッド。
	Methods []string
	// Headers はプリフライトで許可するリクエストヘッダー。
	Headers []string
	// Expose はブラウザのスクリプトに見せるレスポンスヘッダー。
	Expose []string
	// MaxAge はプリフライト結果をブラウザがキャッシュする期間。
	MaxAge time.Duration
}

// FrontendCORS はフロントエンドからゲートウェイを呼ぶためのCORS設定を返す。
// レート制限時のRetry-Afterをスクリプトから読めるようにする。
func FrontendCORS(origins ...string) CORSConfig {
	return CORSConfig{
		Origins: origins,
		Methods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		Headers: []string{"Authorization", "Content-Type"},
		Expose:  []string{"Retry-After"},
		MaxAge:  12 * time.Hour,
	}
}

// CORS はcfgに従ってCORSヘッダーを付けるGinミドルウェアを返す。
// Access-Control-Request-Methodを持つOPTIONSはプリフライトとして扱い、
// 許可したオリジンには204を、それ以外には403を返してハンドラを呼ばない。
func CORS(cfg CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Origins))
	for _, o := range cfg.Origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	methods := strings.Join(cfg.Methods, ", ")
	headers := strings.Join(cfg.Headers, ", ")
	expose := strings.Join(cfg.Expose, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))

	return func(c *gin.Context) {
		c.Writer.Header().Add("Vary", "Origin")
		origin := c.GetHeader("Origin")
		ok := origin != "" && allowed[origin]
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		if ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			if expose != "" {
				c.Header("Access-Control-Expose-Headers", expose)
			}
		}
		if !preflight {
			c.Next()
			return
		}

		requested := c.GetHeader("Access-Control-Request-Method")
		if !ok || !slices.Contains(cfg.Methods, requested) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Max-Age", maxAge)
		c.AbortWithStatus(http.StatusNoContent)
	}
}
