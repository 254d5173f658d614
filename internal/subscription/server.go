package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	subscriptiondb "github.com/nao1215/neptube/internal/subscription/db"
	"github.com/nao1215/neptube/pkg/config"
	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/httpclient"
	"github.com/nao1215/neptube/pkg/httpserver"
	"github.com/nao1215/neptube/pkg/metrics"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/profile"
	"github.com/nao1215/neptube/pkg/sqliteutil"
)

const serviceName = "subscription"

// clients はサービス間通信に使うクライアント群。
type clients struct {
	// eventStore はイベントの送信先。
	eventStore *httpclient.Client
	// gateway はチャンネル情報の参照先。
	gateway *httpclient.Client
	// notification は通知の送信先。
	notification *httpclient.Client
}

// Server は購読サービスのHTTPサーバー。
type Server struct {
	router  *gin.Engine
	port    string
	queries *subscriptiondb.Queries
	db      *sql.DB
	logger  *zap.Logger
	metrics *metrics.Metrics
	// toggles は購読・購読解除の件数。
	toggles *prometheus.CounterVec
	// liveNotified はライブ通知を送った購読者数。
	liveNotified prometheus.Counter
	events       *event.Emitter
	clients      clients
	// cache は購読者数のキャッシュ。
	cache CountCache
	now   func() time.Time
	// closers はRun終了時に閉じるリソース。
	closers []func() error
}

// NewServer は新しい購読サーバーを生成する。
// REDIS_URLが設定されていれば購読者数をRedisにキャッシュする。
func NewServer(cfg config.Config, logger *zap.Logger) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(context.Background(), sqlDB, logger); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	s := newServer(sqlDB, logger, clients{
		eventStore:   httpclient.New(config.GetEnvOr("EVENTSTORE_URL", "http://localhost:8084")),
		gateway:      profile.NewGatewayClient(config.GetEnvOr("GATEWAY_URL", "http://localhost:8080"), cfg.InternalToken),
		notification: httpclient.New(config.GetEnvOr("NOTIFICATION_URL", "http://localhost:8086")),
	})
	s.port = cfg.Port

	if redisURL := config.GetEnvOr("REDIS_URL", ""); redisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cache, err := NewRedisCache(ctx, redisURL)
		if err != nil {
			sqlDB.Close()
			return nil, err
		}
		s.cache = cache
		s.closers = append(s.closers, cache.Close)
		logger.Info("購読者数のキャッシュにRedisを使用します")
	}

	s.setupRoutes(middleware.ServiceJWTAuth(cfg.JWTSecret))
	return s, nil
}

// newServer はルーティング以外の依存関係を組み立てる。
func newServer(sqlDB *sql.DB, logger *zap.Logger, c clients) *Server {
	m := metrics.New(serviceName)

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.AccessLog(logger))
	router.Use(m.Middleware())

	return &Server{
		router:       router,
		queries:      subscriptiondb.New(sqlDB),
		db:           sqlDB,
		logger:       logger,
		metrics:      m,
		toggles:      m.NewCounterVec("toggles_total", "Number of subscription toggles.", "action"),
		liveNotified: m.NewCounter("live_notified_subscribers_total", "Number of subscribers notified of a live stream."),
		events:       event.NewEmitter(c.eventStore, logger),
		clients:      c,
		cache:        noopCache{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動する。
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		for _, closeFn := range s.closers {
			_ = closeFn()
		}
		s.db.Close()
	}()
	return httpserver.Serve(ctx, s.port, s.router, s.logger)
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(auth gin.HandlerFunc) {
	public := s.router.Group("/api/v1")
	{
		// 購読者数は未ログインでも参照できる
		public.GET("/channels/:channel_id/subscribers/count", s.handleCount())
	}

	api := s.router.Group("/api/v1")
	api.Use(auth)
	{
		api.GET("/subscriptions", s.handleListMine())
		api.GET("/subscriptions/:channel_id/status", s.handleStatus())
		api.POST("/subscriptions/:channel_id/toggle", s.handleToggle())
		api.POST("/live/notify", s.handleNotifyLive())
	}

	internal := s.router.Group("/internal/v1")
	{
		internal.GET("/subscribers/:user_id/channels", s.handleInternalChannels())
		internal.GET("/channels/:channel_id/subscribers", s.handleInternalSubscribers())
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	s.router.GET("/metrics", s.metrics.Handler())
}

// channelIDParam はパスのチャンネルIDを取り出し、UUID形式か検証する。
func channelIDParam(c *gin.Context) (string, bool) {
	channelID := c.Param("channel_id")
	if _, err := uuid.Parse(channelID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "チャンネルIDはUUID形式で指定してください"})
		return "", false
	}
	return channelID, true
}

// handleStatus は認証済みユーザーがチャンネルを購読しているかを返すハンドラ。
func (s *Server) handleStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		channelID, ok := channelIDParam(c)
		if !ok {
			return
		}

		_, err := s.queries.GetSubscription(c.Request.Context(), subscriptiondb.GetSubscriptionParams{
			SubscriberID: userID,
			ChannelID:    channelID,
		})
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"subscribed": true})
		case errors.Is(err, sql.ErrNoRows):
			c.JSON(http.StatusOK, gin.H{"subscribed": false})
		default:
			s.logger.Error("購読状態取得エラー", zap.String("channel_id", channelID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読状態の取得に失敗しました"})
		}
	}
}

// handleCount はチャンネルの購読者数を返すハンドラ。
func (s *Server) handleCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		channelID, ok := channelIDParam(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		if count, hit, err := s.cache.Get(ctx, channelID); err != nil {
			s.logger.Warn("購読者数キャッシュの取得に失敗", zap.String("channel_id", channelID), zap.Error(err))
		} else if hit {
			c.JSON(http.StatusOK, gin.H{"count": count})
			return
		}

		count, err := s.queries.CountSubscribers(ctx, channelID)
		if err != nil {
			s.logger.Error("購読者数取得エラー", zap.String("channel_id", channelID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読者数の取得に失敗しました"})
			return
		}
		if err := s.cache.Set(ctx, channelID, count); err != nil {
			s.logger.Warn("購読者数キャッシュの保存に失敗", zap.String("channel_id", channelID), zap.Error(err))
		}

		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

// subscriptionResponse は購読一覧の要素。
type subscriptionResponse struct {
	ID        string          `json:"id"`
	CreatedAt string          `json:"created_at"`
	Channel   profile.Profile `json:"channel"`
}

// handleListMine は認証済みユーザーの購読一覧をチャンネル情報付きで返すハンドラ。
// ゲートウェイに存在しないチャンネルの購読は一覧に含めない。
func (s *Server) handleListMine() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		subs, err := s.queries.ListSubscriptionsBySubscriber(c.Request.Context(), userID)
		if err != nil {
			s.logger.Error("購読一覧取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読一覧の取得に失敗しました"})
			return
		}

		ids := make([]string, 0, len(subs))
		for _, sub := range subs {
			ids = append(ids, sub.ChannelID)
		}
		profiles, err := profile.Lookup(c.Request.Context(), s.clients.gateway, ids)
		if err != nil {
			s.logger.Error("チャンネル情報取得エラー", zap.Int("channels", len(ids)), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "チャンネル情報の取得に失敗しました"})
			return
		}

		resp := make([]subscriptionResponse, 0, len(subs))
		for _, sub := range subs {
			channel, ok := profiles[sub.ChannelID]
			if !ok {
				continue
			}
			resp = append(resp, subscriptionResponse{
				ID:        sub.ID,
				CreatedAt: sub.CreatedAt.Format(time.RFC3339),
				Channel:   channel,
			})
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleToggle は購読状態を切り替えるハンドラ。
// 購読済みなら解除し、未購読なら購読してチャンネル所有者に通知する。
func (s *Server) handleToggle() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := middleware.GetIdentity(c)
		channelID, ok := channelIDParam(c)
		if !ok {
			return
		}
		if id.UserID == channelID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "自分自身のチャンネルは購読できません"})
			return
		}
		ctx := c.Request.Context()

		existing, err := s.queries.GetSubscription(ctx, subscriptiondb.GetSubscriptionParams{
			SubscriberID: id.UserID,
			ChannelID:    channelID,
		})
		if err == nil {
			if _, err := s.queries.DeleteSubscription(ctx, existing.ID); err != nil {
				s.logger.Error("購読解除エラー", zap.String("channel_id", channelID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "購読の解除に失敗しました"})
				return
			}
			s.afterToggle(ctx, channelID, id.UserID, false)
			c.JSON(http.StatusOK, gin.H{"subscribed": false})
			return
		}
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("購読状態取得エラー", zap.String("channel_id", channelID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読状態の取得に失敗しました"})
			return
		}

		err = s.queries.CreateSubscription(ctx, subscriptiondb.CreateSubscriptionParams{
			ID:           uuid.New().String(),
			SubscriberID: id.UserID,
			ChannelID:    channelID,
			CreatedAt:    s.now(),
		})
		if sqliteutil.IsConstraintError(err) {
			// 同時に購読された場合は既に購読済みとして扱う
			c.JSON(http.StatusOK, gin.H{"subscribed": true})
			return
		}
		if err != nil {
			s.logger.Error("購読作成エラー", zap.String("channel_id", channelID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読に失敗しました"})
			return
		}

		s.afterToggle(ctx, channelID, id.UserID, true)
		s.notifyNewSubscriber(ctx, channelID, id)
		c.JSON(http.StatusOK, gin.H{"subscribed": true})
	}
}

// afterToggle は購読状態の変更後にキャッシュ破棄、メトリクス、イベント送信を行う。
func (s *Server) afterToggle(ctx context.Context, channelID, subscriberID string, subscribed bool) {
	if err := s.cache.Invalidate(ctx, channelID); err != nil {
		s.logger.Warn("購読者数キャッシュの破棄に失敗", zap.String("channel_id", channelID), zap.Error(err))
	}

	evType, action := event.TypeChannelUnsubscribed, "unsubscribe"
	if subscribed {
		evType, action = event.TypeChannelSubscribed, "subscribe"
	}
	s.toggles.WithLabelValues(action).Inc()
	s.events.Emit(ctx, channelID, event.AggregateTypeChannel, evType, event.ChannelSubscriptionData{SubscriberID: subscriberID})
}

// handleInternalChannels はユーザーが購読しているチャンネルIDを返す内部API。
func (s *Server) handleInternalChannels() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("user_id")
		ids, err := s.queries.ListChannelIDsBySubscriber(c.Request.Context(), userID)
		if err != nil {
			s.logger.Error("購読チャンネル取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読チャンネルの取得に失敗しました"})
			return
		}
		if ids == nil {
			ids = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"channel_ids": ids})
	}
}

// handleInternalSubscribers はチャンネルの購読者IDを返す内部API。
func (s *Server) handleInternalSubscribers() gin.HandlerFunc {
	return func(c *gin.Context) {
		channelID := c.Param("channel_id")
		ids, err := s.queries.ListSubscriberIDsByChannel(c.Request.Context(), channelID)
		if err != nil {
			s.logger.Error("購読者取得エラー", zap.String("channel_id", channelID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読者の取得に失敗しました"})
			return
		}
		if ids == nil {
			ids = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"subscriber_ids": ids})
	}
}
