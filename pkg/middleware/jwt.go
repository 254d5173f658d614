package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Gin コンテキストに認証情報を格納するキー。
const (
	contextKeyUserID   = "user_id"
	contextKeyEmail    = "email"
	contextKeyUserName = "user_name"
	contextKeyRole     = "role"
)

// tokenIssuer はトークン発行者。
const tokenIssuer = "neptube-gateway"

// tokenTTL はトークンの有効期間。
const tokenTTL = 24 * time.Hour

// ゲートウェイが内部サービスへの転送ごとに発行するトークンの設定。
// 内部サービスはこのaudienceを持つトークンしか受け付けない。
const (
	serviceTokenTTL = 5 * time.Minute
	serviceAudience = "neptube-services"
)

// Identity は認証済みユーザーの情報。
type Identity struct {
	// UserID はユーザーの一意識別子。
	UserID string
	// Email はユーザーのメールアドレス。
	Email string
	// Name はチャンネル名として表示される名前。通知メッセージに使う。
	Name string
	// Role はユーザーのロール（user または admin）。
	Role string
}

// JWTClaims はJWTトークンのクレーム（ペイロード）を表す。
type JWTClaims struct {
	jwt.RegisteredClaims
	// UserID は認証済みユーザーの一意識別子。
	UserID string `json:"user_id"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Name はユーザーの表示名。
	Name string `json:"name"`
	// Role はユーザーのロール。
	Role string `json:"role"`
}

// headerKeyUserID はサービス間でユーザーIDを伝播するためのHTTPヘッダーキー。
const headerKeyUserID = "X-User-ID"

// GenerateJWT はユーザー情報からJWTトークンを生成する。
// gatewayサービスがログイン時に呼び出す。
func GenerateJWT(secret string, id Identity) (string, error) {
	return signJWT(secret, id, tokenTTL)
}

// GenerateServiceJWT は内部サービスへ転送する短命のトークンを生成する。
// idにはゲートウェイがデータベースから読み直した最新のロールを渡す。
func GenerateServiceJWT(secret string, id Identity) (string, error) {
	return signJWT(secret, id, serviceTokenTTL, serviceAudience)
}

func signJWT(secret string, id Identity, ttl time.Duration, audience ...string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
		UserID: id.UserID,
		Email:  id.Email,
		Name:   id.Name,
		Role:   id.Role,
	}
	if len(audience) > 0 {
		claims.Audience = jwt.ClaimStrings(audience)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// JWTAuth はJWTトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストにユーザーID・メール・表示名・ロールを設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	return jwtAuth(secret)
}

// ServiceJWTAuth はゲートウェイ経由のトークンだけを受け付けるミドルウェアを返す。
// ログイン時に発行した24時間有効のトークンを直接送っても401になる。
func ServiceJWTAuth(secret string) gin.HandlerFunc {
	return jwtAuth(secret, jwt.WithAudience(serviceAudience))
}

func jwtAuth(secret string, opts ...jwt.ParserOption) gin.HandlerFunc {
	parserOpts := append([]jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}, opts...)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorizationヘッダーが必要です",
			})
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer トークン形式が不正です",
			})
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, parserOpts...)
		if err != nil || !token.Valid || claims.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "トークンが無効です",
			})
			return
		}

		SetIdentity(c, Identity{
			UserID: claims.UserID,
			Email:  claims.Email,
			Name:   claims.Name,
			Role:   claims.Role,
		})
		c.Header(headerKeyUserID, claims.UserID)
		c.Next()
	}
}

// SetIdentity はGinコンテキストに認証情報を設定する。
// テストやゲートウェイ内部で認証済みユーザーを差し替える場合にも使う。
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(contextKeyUserID, id.UserID)
	c.Set(contextKeyEmail, id.Email)
	c.Set(contextKeyUserName, id.Name)
	c.Set(contextKeyRole, id.Role)
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}

// GetUserName はGinコンテキストからユーザーの表示名を取得する。
func GetUserName(c *gin.Context) string {
	return c.GetString(contextKeyUserName)
}

// GetRole はGinコンテキストからユーザーのロールを取得する。
func GetRole(c *gin.Context) string {
	return c.GetString(contextKeyRole)
}

// GetIdentity はGinコンテキストから認証情報をまとめて取得する。
func GetIdentity(c *gin.Context) Identity {
	return Identity{
		UserID: GetUserID(c),
		Email:  c.GetString(contextKeyEmail),
		Name:   GetUserName(c),
		Role:   GetRole(c),
	}
}
