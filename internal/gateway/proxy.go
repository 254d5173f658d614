package gateway

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/neptube/pkg/middleware"
)

// 内部サービスに認証情報を伝えるヘッダー。
const (
	headerUserID   = "X-User-ID"
	headerUserName = "X-User-Name"
	headerUserRole = "X-User-Role"
)

// handleProxy は同じパスのまま指定されたサービスにリクエストをプロキシするハンドラを返す。
func (s *Server) handleProxy(service, baseURL string) gin.HandlerFunc {
	return s.handleProxyTo(service, baseURL, "")
}

// handleProxyTo はpathに書き換えてリクエストをプロキシするハンドラを返す。
// pathが空の場合は元のパスを使う。クエリパラメータはそのまま転送する。
func (s *Server) handleProxyTo(service, baseURL, path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := path
		if target == "" {
			target = c.Request.URL.Path
		}
		proxyURL := baseURL + target
		if c.Request.URL.RawQuery != "" {
			proxyURL += "?" + c.Request.URL.RawQuery
		}
		s.doProxy(c, service, proxyURL)
	}
}

// doProxy はリクエストを内部サービスにプロキシする共通処理。
// 利用者のトークンは転送せず、loadUserがデータベースから読み直した認証情報で
// 短命のトークンを発行し直す。降格されたユーザーのトークンに残る古いロールは内部サービスに届かない。
func (s *Server) doProxy(c *gin.Context, service, url string) {
	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, url, c.Request.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "プロキシリクエストの作成に失敗しました"})
		return
	}

	if ct := c.GetHeader("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	if id := middleware.GetIdentity(c); id.UserID != "" {
		token, err := middleware.GenerateServiceJWT(s.jwtSecret, id)
		if err != nil {
			s.logger.Error("内部トークン生成エラー", zap.String("user_id", id.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "プロキシリクエストの作成に失敗しました"})
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(headerUserID, id.UserID)
		req.Header.Set(headerUserName, id.Name)
		req.Header.Set(headerUserRole, id.Role)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.proxied.WithLabelValues(service, "error").Inc()
		s.logger.Error("プロキシエラー", zap.String("service", service), zap.String("url", url), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "内部サービスとの通信に失敗しました"})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.proxied.WithLabelValues(service, "error").Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": "レスポンスの読み取りに失敗しました"})
		return
	}
	s.proxied.WithLabelValues(service, "ok").Inc()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, body)
}
