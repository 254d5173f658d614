package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testSecret はテスト用のJWTシークレット。
const testSecret = "test-secret-key-for-unit-tests"

// testIdentity はテスト用の認証情報。
var testIdentity = Identity{
	UserID: "user-123",
	Email:  "test@example.com",
	Name:   "Ram Bahadur",
	Role:   "user",
}

// parseClaims はテスト用にトークンを検証してクレームを返す。
func parseClaims(t *testing.T, tokenStr, secret string) (*JWTClaims, error) {
	t.Helper()

	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	return claims, err
}

// TestGenerateJWT はGenerateJWT関数を検証する。
func TestGenerateJWT(t *testing.T) {
	t.Parallel()

	t.Run("正常にJWTトークンを生成できること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := GenerateJWT(testSecret, testIdentity)
		require.NoError(t, err)
		require.NotEmpty(t, tokenStr)

		claims, err := parseClaims(t, tokenStr, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID)
		assert.Equal(t, "user-123", claims.Subject)
		assert.Equal(t, "test@example.com", claims.Email)
		assert.Equal(t, "Ram Bahadur", claims.Name)
		assert.Equal(t, "user", claims.Role)
		assert.Equal(t, "neptube-gateway", claims.Issuer)
	})

	t.Run("トークンの有効期限が24時間後であること", func(t *testing.T) {
		t.Parallel()

		before := time.Now()
		tokenStr, err := GenerateJWT(testSecret, testIdentity)
		require.NoError(t, err)

		claims, err := parseClaims(t, tokenStr, testSecret)
		require.NoError(t, err)
		assert.WithinDuration(t, before.Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
	})

	t.Run("異なるシークレットでは検証に失敗すること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := GenerateJWT(testSecret, testIdentity)
		require.NoError(t, err)

		_, err = parseClaims(t, tokenStr, "wrong-secret")
		assert.Error(t, err)
	})
}

// newAuthRouter はJWTAuthを適用し、コンテキストの認証情報を返すルーターを生成する。
func newAuthRouter() *gin.Engine {
	router := gin.New()
	router.Use(JWTAuth(testSecret))
	router.GET("/protected", func(c *gin.Context) {
		id := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":   id.UserID,
			"email":     id.Email,
			"user_name": id.Name,
			"role":      id.Role,
		})
	})
	return router
}

// TestJWTAuth はJWTAuthミドルウェアを検証する。
func TestJWTAuth(t *testing.T) {
	t.Parallel()

	t.Run("有効なトークンで認証情報がコンテキストに設定されること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := GenerateJWT(testSecret, testIdentity)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		w := httptest.NewRecorder()
		newAuthRouter().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "user-123", resp["user_id"])
		assert.Equal(t, "test@example.com", resp["email"])
		assert.Equal(t, "Ram Bahadur", resp["user_name"])
		assert.Equal(t, "user", resp["role"])
		assert.Equal(t, "user-123", w.Header().Get("X-User-ID"))
	})

	tests := []struct {
		name   string
		header func(t *testing.T) string
	}{
		{
			name:   "Authorizationヘッダーが無い場合401が返ること",
			header: func(_ *testing.T) string { return "" },
		},
		{
			name: "Bearer接頭辞が無い場合401が返ること",
			header: func(t *testing.T) string {
				tok, err := GenerateJWT(testSecret, testIdentity)
				require.NoError(t, err)
				return tok
			},
		},
		{
			name:   "無効なトークンで401が返ること",
			header: func(_ *testing.T) string { return "Bearer not-a-jwt" },
		},
		{
			name: "異なるシークレットで署名されたトークンで401が返ること",
			header: func(t *testing.T) string {
				tok, err := GenerateJWT("other-secret", testIdentity)
				require.NoError(t, err)
				return "Bearer " + tok
			},
		},
		{
			name: "期限切れトークンで401が返ること",
			header: func(t *testing.T) string {
				claims := JWTClaims{
					RegisteredClaims: jwt.RegisteredClaims{
						ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
						IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
					},
					UserID: "user-expired",
				}
				tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
				require.NoError(t, err)
				return "Bearer " + tok
			},
		},
		{
			name: "ユーザーIDが空のトークンで401が返ること",
			header: func(t *testing.T) string {
				tok, err := GenerateJWT(testSecret, Identity{Email: "no-id@example.com"})
				require.NoError(t, err)
				return "Bearer " + tok
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if h := tt.header(t); h != "" {
				req.Header.Set("Authorization", h)
			}
			w := httptest.NewRecorder()
			newAuthRouter().ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

// TestServiceJWTAuth はゲートウェイが転送時に発行するトークンの検証を確認する。
func TestServiceJWTAuth(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(ServiceJWTAuth(testSecret))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": GetRole(c)})
	})
	call := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("転送用トークンは5分で失効すること", func(t *testing.T) {
		t.Parallel()

		before := time.Now()
		tokenStr, err := GenerateServiceJWT(testSecret, testIdentity)
		require.NoError(t, err)

		claims, err := parseClaims(t, tokenStr, testSecret)
		require.NoError(t, err)
		assert.WithinDuration(t, before.Add(5*time.Minute), claims.ExpiresAt.Time, 10*time.Second)
		assert.Equal(t, jwt.ClaimStrings{"neptube-services"}, claims.Audience)
	})

	t.Run("転送用トークンのロールがコンテキストに設定されること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := GenerateServiceJWT(testSecret, Identity{UserID: "u-1", Role: "admin"})
		require.NoError(t, err)

		w := call(tokenStr)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"role":"admin"}`, w.Body.String())
	})

	t.Run("ログイン用のトークンは401が返ること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := GenerateJWT(testSecret, Identity{UserID: "u-1", Role: "admin"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, call(tokenStr).Code)
	})
}

// TestGetUserID はコンテキストからのユーザーID取得を検証する。
func TestGetUserID(t *testing.T) {
	t.Parallel()

	t.Run("設定されていない場合は空文字列が返ること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.Empty(t, GetUserID(c))
		assert.Empty(t, GetUserName(c))
	})

	t.Run("文字列以外の型の場合は空文字列が返ること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("user_id", 12345)
		assert.Empty(t, GetUserID(c))
	})

	t.Run("SetIdentityで設定した値が取得できること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		SetIdentity(c, Identity{UserID: "u-1", Name: "Sita", Role: "admin"})
		assert.Equal(t, "u-1", GetUserID(c))
		assert.Equal(t, "Sita", GetUserName(c))
		assert.Equal(t, "admin", GetRole(c))
	})
}
