package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	notificationdb "github.com/nao1215/neptube/internal/notification/db"
	"github.com/nao1215/neptube/pkg/config"
	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/httpclient"
	"github.com/nao1215/neptube/pkg/httpserver"
	"github.com/nao1215/neptube/pkg/metrics"
	"github.com/nao1215/neptube/pkg/middleware"
)

const (
	// serviceName はメトリクスとログに使うサービス名。
	serviceName = "notification"
	// defaultListLimit は一覧取得の既定件数。
	defaultListLimit = 50
	// maxListLimit は一覧取得の上限件数。
	maxListLimit = 100
)

// Type は通知の種類。
type Type string

const (
	TypeSubscription Type = "subscription"
	TypeNewVideo     Type = "new_video"
	TypeComment      Type = "comment"
	TypeReply        Type = "reply"
	TypeLike         Type = "like"
	TypeMention      Type = "mention"
	TypeSystem       Type = "system"
)

// validTypes は受け付ける通知の種類。
var validTypes = map[Type]bool{
	TypeSubscription: true,
	TypeNewVideo:     true,
	TypeComment:      true,
	TypeReply:        true,
	TypeLike:         true,
	TypeMention:      true,
	TypeSystem:       true,
}

// Server は通知サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *notificationdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// logger は構造化ロガー。
	logger *zap.Logger
	// metrics はPrometheusメトリクス。
	metrics *metrics.Metrics
	// created は作成した通知の件数（種類別）。
	created *prometheus.CounterVec
	// events はeventstoreへのイベント送信。
	events *event.Emitter
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
}

// NewServer は新しい通知サーバーを生成する。
// SQLiteデータベースの初期化とマイグレーションを行う。
func NewServer(cfg config.Config, logger *zap.Logger) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(context.Background(), sqlDB, logger); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	eventStoreURL := config.GetEnvOr("EVENTSTORE_URL", "http://localhost:8084")

	s := newServer(sqlDB, logger, httpclient.New(eventStoreURL))
	s.port = cfg.Port
	s.setupRoutes(middleware.ServiceJWTAuth(cfg.JWTSecret))
	return s, nil
}

// newServer はルーティング以外の依存関係を組み立てる。
func newServer(sqlDB *sql.DB, logger *zap.Logger, eventStore *httpclient.Client) *Server {
	m := metrics.New(serviceName)

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.AccessLog(logger))
	router.Use(m.Middleware())

	return &Server{
		router:  router,
		queries: notificationdb.New(sqlDB),
		db:      sqlDB,
		logger:  logger,
		metrics: m,
		created: m.NewCounterVec("notifications_created_total", "Number of notifications created.", "type"),
		events:  event.NewEmitter(eventStore, logger),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動する。
func (s *Server) Run(ctx context.Context) error {
	defer s.db.Close()
	return httpserver.Serve(ctx, s.port, s.router, s.logger)
}

// setupRoutes はAPIルーティングを設定する。
// authは公開APIの認証ミドルウェア。
func (s *Server) setupRoutes(auth gin.HandlerFunc) {
	api := s.router.Group("/api/v1")
	api.Use(auth)
	{
		notifications := api.Group("/notifications")
		{
			notifications.GET("", s.handleList())
			notifications.GET("/unread", s.handleListUnread())
			notifications.GET("/unread/count", s.handleUnreadCount())
			notifications.PUT("/:id/read", s.handleMarkAsRead())
			notifications.PUT("/read-all", s.handleMarkAllAsRead())
		}
	}

	// サービス間通信用。ゲートウェイからは公開しない。
	internal := s.router.Group("/internal/v1")
	{
		internal.POST("/notifications", s.handleSend())
		internal.POST("/notifications/bulk", s.handleBulkSend())
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	s.router.GET("/metrics", s.metrics.Handler())
}

// notificationResponse は通知のJSONレスポンス構造。
type notificationResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Link       string `json:"link,omitempty"`
	FromUserID string `json:"from_user_id,omitempty"`
	IsRead     bool   `json:"is_read"`
	// CreatedAt は通知の作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toNotificationResponse はDB行をJSONレスポンスに変換する。
func toNotificationResponse(n notificationdb.Notification) notificationResponse {
	return notificationResponse{
		ID:         n.ID,
		UserID:     n.UserID,
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		Link:       n.Link.String,
		FromUserID: n.FromUserID.String,
		IsRead:     n.IsRead != 0,
		CreatedAt:  n.CreatedAt.Format(time.RFC3339),
	}
}

// toNotificationResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toNotificationResponses(notifications []notificationdb.Notification) []notificationResponse {
	responses := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, toNotificationResponse(n))
	}
	return responses
}

// parseLimit はlimitクエリパラメータを解釈する。未指定なら既定値、範囲外は上限に丸める。
func parseLimit(c *gin.Context, def, maxLimit int) (int64, error) {
	raw := c.Query("limit")
	if raw == "" {
		return int64(def), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limitは1以上の整数で指定してください")
	}
	if n > maxLimit {
		n = maxLimit
	}
	return int64(n), nil
}

// handleList は認証済みユーザーの通知一覧を新しい順に返すハンドラ。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		limit, err := parseLimit(c, defaultListLimit, maxListLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		notifications, err := s.queries.ListNotificationsByUserID(c.Request.Context(), notificationdb.ListNotificationsByUserIDParams{
			UserID: userID,
			Limit:  limit,
		})
		if err != nil {
			s.logger.Error("通知一覧取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知一覧の取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(notifications))
	}
}

// handleListUnread は認証済みユーザーの未読通知一覧を返すハンドラ。
func (s *Server) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		limit, err := parseLimit(c, defaultListLimit, maxListLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		notifications, err := s.queries.ListUnreadNotifications(c.Request.Context(), notificationdb.ListUnreadNotificationsParams{
			UserID: userID,
			Limit:  limit,
		})
		if err != nil {
			s.logger.Error("未読通知一覧取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読通知一覧の取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(notifications))
	}
}

// handleUnreadCount は未読通知の件数を返すハンドラ。
func (s *Server) handleUnreadCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		count, err := s.queries.CountUnreadNotifications(c.Request.Context(), userID)
		if err != nil {
			s.logger.Error("未読件数取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読件数の取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

// handleMarkAsRead は指定された通知を既読にするハンドラ。
func (s *Server) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notificationID := c.Param("id")

		// 通知の存在確認と所有者チェック
		n, err := s.queries.GetNotificationByID(c.Request.Context(), notificationID)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "通知が見つかりません"})
			return
		}
		if err != nil {
			s.logger.Error("通知取得エラー", zap.String("notification_id", notificationID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の取得に失敗しました"})
			return
		}

		if n.UserID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "この通知を操作する権限がありません"})
			return
		}

		if err := s.queries.MarkAsRead(c.Request.Context(), notificationID); err != nil {
			s.logger.Error("通知既読処理エラー", zap.String("notification_id", notificationID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の既読処理に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "通知を既読にしました"})
	}
}

// handleMarkAllAsRead は認証済みユーザーの全通知を既読にするハンドラ。
func (s *Server) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		updated, err := s.queries.MarkAllAsRead(c.Request.Context(), userID)
		if err != nil {
			s.logger.Error("全通知既読処理エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "全通知の既読処理に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "全通知を既読にしました", "updated": updated})
	}
}

// sendRequest は通知送信リクエストのJSON構造。
type sendRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	Type       Type   `json:"type" binding:"required"`
	Title      string `json:"title" binding:"required"`
	Message    string `json:"message" binding:"required"`
	Link       string `json:"link"`
	FromUserID string `json:"from_user_id"`
}

// handleSend は通知を1件作成しNotificationSentイベントを発行するハンドラ。
func (s *Server) handleSend() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if !validTypes[req.Type] {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不明な通知種別です: %s", req.Type)})
			return
		}

		notificationID := uuid.New().String()
		if err := s.queries.CreateNotification(c.Request.Context(), notificationdb.CreateNotificationParams{
			ID:         notificationID,
			UserID:     req.UserID,
			Type:       string(req.Type),
			Title:      req.Title,
			Message:    req.Message,
			Link:       nullString(req.Link),
			FromUserID: nullString(req.FromUserID),
			CreatedAt:  s.now(),
		}); err != nil {
			s.logger.Error("通知作成エラー", zap.String("user_id", req.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の作成に失敗しました"})
			return
		}
		s.created.WithLabelValues(string(req.Type)).Inc()

		s.events.Emit(c.Request.Context(), notificationID, event.AggregateTypeNotification, event.TypeNotificationSent,
			event.NotificationSentData{
				UserID:     req.UserID,
				Type:       string(req.Type),
				Title:      req.Title,
				Recipients: 1,
			})

		c.JSON(http.StatusCreated, gin.H{
			"id":      notificationID,
			"message": "通知を送信しました",
		})
	}
}

// nullString は空文字をNULLとして扱う。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
