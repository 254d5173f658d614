package gateway

import (
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	gatewaydb "github.com/nao1215/neptube/internal/gateway/db"
	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/profile"
	"github.com/nao1215/neptube/pkg/tier"
)

// supportEmail は利用停止中のユーザーに案内する問い合わせ先。
const supportEmail = "support@neptube.com"

// 開発用ユーザーの既定値。
const (
	devProvider    = "dev"
	devEmail       = "dev@localhost"
	devDisplayName = "開発ユーザー"
)

// contextKeyUser はloadUserが読み込んだユーザーを格納するキー。
const contextKeyUser = "gateway_user"

const (
	defaultUserListLimit = 50
	maxUserListLimit     = 500
	maxLookupIDs         = 500
)

// suspendedResponse は利用停止中のユーザーに返す403のボディ。
func suspendedResponse() gin.H {
	return gin.H{
		"error":         "アカウントは利用停止中です",
		"code":          "account_suspended",
		"support_email": supportEmail,
	}
}

// userResponse はユーザー情報のJSONレスポンス構造。
type userResponse struct {
	ID               string  `json:"id"`
	Email            string  `json:"email"`
	DisplayName      string  `json:"display_name"`
	AvatarURL        string  `json:"avatar_url"`
	Provider         string  `json:"provider"`
	Role             string  `json:"role"`
	SubscriptionTier string  `json:"subscription_tier"`
	IsBanned         bool    `json:"is_banned"`
	BannedReason     *string `json:"banned_reason"`
	CreatedAt        string  `json:"created_at"`
	LastLoginAt      string  `json:"last_login_at"`
}

func toUserResponse(u gatewaydb.User) userResponse {
	resp := userResponse{
		ID:               u.ID,
		Email:            u.Email,
		DisplayName:      u.DisplayName,
		AvatarURL:        u.AvatarUrl,
		Provider:         u.Provider,
		Role:             u.Role,
		SubscriptionTier: u.SubscriptionTier,
		IsBanned:         u.IsBanned != 0,
		CreatedAt:        u.CreatedAt.Format(time.RFC3339),
		LastLoginAt:      u.LastLoginAt.Format(time.RFC3339),
	}
	if u.BannedReason.Valid {
		resp.BannedReason = &u.BannedReason.String
	}
	return resp
}

// devTokenRequest は開発用トークン発行のリクエストボディ。省略可能。
type devTokenRequest struct {
	Name  string `json:"name" binding:"max=50"`
	Email string `json:"email" binding:"omitempty,email"`
}

// handleDevToken は開発用JWTトークンを発行するハンドラを返す。
// メールアドレスごとに開発ユーザーを作り、2回目以降は同じユーザーのトークンを返す。
// 本番環境では無効化すべき。
func (s *Server) handleDevToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req devTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}
		if req.Email == "" {
			req.Email = devEmail
		}
		if req.Name == "" {
			req.Name = devDisplayName
		}
		ctx := c.Request.Context()

		user, err := s.queries.GetUserByProvider(ctx, gatewaydb.GetUserByProviderParams{
			Provider:       devProvider,
			ProviderUserID: req.Email,
		})
		switch {
		case errors.Is(err, sql.ErrNoRows):
			now := s.now()
			user = gatewaydb.User{
				ID:               uuid.New().String(),
				Provider:         devProvider,
				ProviderUserID:   req.Email,
				Email:            req.Email,
				DisplayName:      req.Name,
				Role:             RoleUser,
				SubscriptionTier: string(tier.Free),
				CreatedAt:        now,
				LastLoginAt:      now,
			}
			if err := s.queries.CreateUser(ctx, gatewaydb.CreateUserParams{
				ID:               user.ID,
				Provider:         user.Provider,
				ProviderUserID:   user.ProviderUserID,
				Email:            user.Email,
				DisplayName:      user.DisplayName,
				AvatarUrl:        user.AvatarUrl,
				Role:             user.Role,
				SubscriptionTier: user.SubscriptionTier,
				CreatedAt:        user.CreatedAt,
				LastLoginAt:      user.LastLoginAt,
			}); err != nil {
				s.logger.Error("開発ユーザー作成エラー", zap.String("email", req.Email), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー作成に失敗しました"})
				return
			}
		case err != nil:
			s.logger.Error("開発ユーザー取得エラー", zap.String("email", req.Email), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー取得に失敗しました"})
			return
		default:
			if user.IsBanned != 0 {
				c.JSON(http.StatusForbidden, suspendedResponse())
				return
			}
			if err := s.queries.UpdateLastLogin(ctx, gatewaydb.UpdateLastLoginParams{LastLoginAt: s.now(), ID: user.ID}); err != nil {
				s.logger.Warn("最終ログイン日時の更新に失敗", zap.String("user_id", user.ID), zap.Error(err))
			}
		}

		token, err := middleware.GenerateJWT(s.jwtSecret, middleware.Identity{
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.DisplayName,
			Role:   user.Role,
		})
		if err != nil {
			s.logger.Error("JWT生成エラー", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークン生成に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":   token,
			"user_id": user.ID,
		})
	}
}

// loadUser は認証済みユーザーをDBから読み込むミドルウェアを返す。
// 利用停止中なら403を返し、ロールと表示名はトークンではなくDBの値で上書きする。
func (s *Server) loadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		user, err := s.users.Get(c.Request.Context(), userID)
		if errors.Is(err, ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "ユーザーが見つかりません"})
			return
		}
		if err != nil {
			s.logger.Error("ユーザー取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ユーザー取得に失敗しました"})
			return
		}
		if user.IsBanned != 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, suspendedResponse())
			return
		}

		middleware.SetIdentity(c, middleware.Identity{
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.DisplayName,
			Role:   user.Role,
		})
		c.Set(contextKeyUser, user)
		c.Next()
	}
}

// currentUser はloadUserが読み込んだユーザーを返す。
func currentUser(c *gin.Context) gatewaydb.User {
	user, _ := c.MustGet(contextKeyUser).(gatewaydb.User)
	return user
}

// requireAdmin は管理者以外を403で拒否するミドルウェアを返す。
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if middleware.GetRole(c) != tier.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "管理者権限が必要です"})
			return
		}
		c.Next()
	}
}

// handleGetCurrentUser は認証済みユーザーの情報を返すハンドラを返す。
func (s *Server) handleGetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, toUserResponse(currentUser(c)))
	}
}

// handleListUsers はユーザー一覧を返す管理者用ハンドラ。
// banned=trueで利用停止中のユーザーに絞り込む。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := int64(defaultUserListLimit)
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxUserListLimit {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limitは1から500の整数で指定してください"})
				return
			}
			limit = int64(n)
		}

		users, err := s.users.List(c.Request.Context(), limit, c.Query("banned") == "true")
		if err != nil {
			s.logger.Error("ユーザー一覧取得エラー", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー一覧の取得に失敗しました"})
			return
		}

		resp := make([]userResponse, 0, len(users))
		for _, u := range users {
			resp = append(resp, toUserResponse(u))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// banRequest は利用停止のリクエストボディ。
type banRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// handleBan はユーザーを利用停止にする管理者用ハンドラ。自分自身は停止できない。
func (s *Server) handleBan() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := middleware.GetUserID(c)
		target := c.Param("id")

		var req banRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "停止理由を指定してください"})
			return
		}
		if target == admin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "自分自身は利用停止にできません"})
			return
		}

		ctx := c.Request.Context()
		if err := s.users.Ban(ctx, target, req.Reason); err != nil {
			s.writeUserError(c, target, "利用停止", err)
			return
		}

		s.moderation.WithLabelValues("ban").Inc()
		s.events.Emit(ctx, target, event.AggregateTypeUser, event.TypeUserBanned, event.UserModerationData{
			ModeratorID: admin,
			Reason:      req.Reason,
		})
		s.logger.Info("ユーザーを利用停止にしました", zap.String("user_id", target), zap.String("moderator_id", admin))
		c.JSON(http.StatusOK, gin.H{"id": target, "is_banned": true, "banned_reason": req.Reason})
	}
}

// handleUnban はユーザーの利用停止を解除する管理者用ハンドラ。
func (s *Server) handleUnban() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := middleware.GetUserID(c)
		target := c.Param("id")
		ctx := c.Request.Context()

		if err := s.users.Unban(ctx, target); err != nil {
			s.writeUserError(c, target, "利用停止の解除", err)
			return
		}

		s.moderation.WithLabelValues("unban").Inc()
		s.events.Emit(ctx, target, event.AggregateTypeUser, event.TypeUserUnbanned, event.UserModerationData{ModeratorID: admin})
		c.JSON(http.StatusOK, gin.H{"id": target, "is_banned": false})
	}
}

// roleRequest はロール変更のリクエストボディ。
type roleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

// handleSetRole はユーザーのロールを変更する管理者用ハンドラ。
// 管理者が自分自身のロールを変えることはできない。
func (s *Server) handleSetRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		target := c.Param("id")

		var req roleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "roleはuserまたはadminで指定してください"})
			return
		}
		if target == middleware.GetUserID(c) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "自分自身のロールは変更できません"})
			return
		}

		if err := s.users.SetRole(c.Request.Context(), target, req.Role); err != nil {
			s.writeUserError(c, target, "ロールの変更", err)
			return
		}
		s.moderation.WithLabelValues("set_role").Inc()
		c.JSON(http.StatusOK, gin.H{"id": target, "role": req.Role})
	}
}

// writeUserError はUserStoreのエラーをステータスコードに変換して返す。
func (s *Server) writeUserError(c *gin.Context, userID, op string, err error) {
	if errors.Is(err, ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.logger.Error(op+"エラー", zap.String("user_id", userID), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": op + "に失敗しました"})
}

// handleLookupUsers はユーザーIDからプロフィールを一括で返す内部API。
// 存在しないIDは結果に含めない。
func (s *Server) handleLookupUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req profile.LookupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}
		if len(req.IDs) > maxLookupIDs {
			c.JSON(http.StatusBadRequest, gin.H{"error": "一度に参照できるユーザーは500件までです"})
			return
		}

		resp := profile.LookupResponse{Users: []profile.Profile{}}
		if len(req.IDs) == 0 {
			c.JSON(http.StatusOK, resp)
			return
		}

		users, err := s.queries.ListUsersByIDs(c.Request.Context(), req.IDs)
		if err != nil {
			s.logger.Error("ユーザー一括取得エラー", zap.Int("ids", len(req.IDs)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー情報の取得に失敗しました"})
			return
		}
		for _, u := range users {
			resp.Users = append(resp.Users, profile.Profile{ID: u.ID, Name: u.DisplayName, ImageURL: u.AvatarUrl})
		}
		c.JSON(http.StatusOK, resp)
	}
}

// tierRequest はプラン同期のリクエストボディ。
type tierRequest struct {
	Tier string `json:"tier" binding:"required"`
}

// handleSetTier はプレミアムサービスから契約中のプランを受け取って保存する内部API。
func (s *Server) handleSetTier() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		var req tierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tierを指定してください"})
			return
		}
		t, err := tier.Parse(req.Tier)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := s.users.SetTier(c.Request.Context(), userID, t); err != nil {
			s.writeUserError(c, userID, "プランの変更", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": userID, "tier": t})
	}
}
