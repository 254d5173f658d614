package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// InternalTokenHeader はサービス間通信の認証トークンを送るHTTPヘッダー。
const InternalTokenHeader = "X-Internal-Token"

// InternalAuth は共有トークンを持つサービスだけを通すGinミドルウェアを返す。
// tokenが空の場合はすべてのリクエストを拒否する。
func InternalAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(InternalTokenHeader)
		if token == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "内部APIの認証に失敗しました",
			})
			return
		}
		c.Next()
	}
}
