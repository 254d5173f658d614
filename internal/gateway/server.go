package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	gatewaydb "github.com/nao1215/neptube/internal/gateway/db"
	"github.com/nao1215/neptube/pkg/config"
	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/httpclient"
	"github.com/nao1215/neptube/pkg/httpserver"
	"github.com/nao1215/neptube/pkg/metrics"
	"github.com/nao1215/neptube/pkg/middleware"
)

const serviceName = "gateway"

// limiterCleanupInterval は使われていないレートリミッタを削除する間隔。
const limiterCleanupInterval = time.Minute

// serviceURLConfig は内部サービスのURL設定。
type serviceURLConfig struct {
	Subscription string
	Feed         string
	Notification string
	Premium      string
	EventStore   string
}

// options はゲートウェイ固有の設定。
type options struct {
	jwtSecret   string
	frontendURL string
	// internalToken は内部APIを呼び出すサービスと共有するトークン。
	internalToken string
	// rateLimitRPS と rateLimitBurst はユーザーまたはIPごとの許容リクエスト数。
	rateLimitRPS   float64
	rateLimitBurst int
}

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *gatewaydb.Queries
	// users はロール、プラン、利用停止状態の更新に使う。
	users *UserStore
	// db はSQLiteデータベース接続。
	db     *sql.DB
	logger *zap.Logger
	// jwtSecret はJWT署名用の秘密鍵。
	jwtSecret     string
	internalToken string
	// serviceURLs は内部サービスのURL。
	serviceURLs serviceURLConfig
	// httpClient はプロキシ先へのリクエストに使う。
	httpClient *http.Client
	limiter    *middleware.RateLimiter
	metrics    *metrics.Metrics
	// proxied はサービスごとのプロキシ結果。outcomeはokまたはerror。
	proxied *prometheus.CounterVec
	// moderation は管理操作の件数。
	moderation *prometheus.CounterVec
	events     *event.Emitter
	now        func() time.Time
}

// NewServer は新しいGatewayサーバーを生成する。
func NewServer(cfg config.Config, logger *zap.Logger) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(context.Background(), sqlDB, logger); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	urls := serviceURLConfig{
		Subscription: config.GetEnvOr("SUBSCRIPTION_URL", "http://localhost:8081"),
		Feed:         config.GetEnvOr("FEED_URL", "http://localhost:8082"),
		Notification: config.GetEnvOr("NOTIFICATION_URL", "http://localhost:8086"),
		Premium:      config.GetEnvOr("PREMIUM_URL", "http://localhost:8087"),
		EventStore:   config.GetEnvOr("EVENTSTORE_URL", "http://localhost:8084"),
	}
	opts := options{
		jwtSecret:      cfg.JWTSecret,
		internalToken:  cfg.InternalToken,
		frontendURL:    config.GetEnvOr("FRONTEND_URL", "http://localhost:3000"),
		rateLimitRPS:   float64(config.GetEnvInt("RATE_LIMIT_RPS", 20)),
		rateLimitBurst: config.GetEnvInt("RATE_LIMIT_BURST", 40),
	}

	s := newServer(sqlDB, logger, opts, urls)
	s.port = cfg.Port
	s.setupRoutes(middleware.JWTAuth(cfg.JWTSecret))
	return s, nil
}

// newServer はルーティング以外の依存関係を組み立てる。
func newServer(sqlDB *sql.DB, logger *zap.Logger, opts options, urls serviceURLConfig) *Server {
	m := metrics.New(serviceName)

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.CORS(middleware.FrontendCORS(opts.frontendURL)))
	router.Use(m.Middleware())

	return &Server{
		router:        router,
		queries:       gatewaydb.New(sqlDB),
		users:         NewUserStore(sqlDB),
		db:            sqlDB,
		logger:        logger,
		jwtSecret:     opts.jwtSecret,
		internalToken: opts.internalToken,
		serviceURLs:   urls,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		limiter:       middleware.NewRateLimiter(opts.rateLimitRPS, opts.rateLimitBurst),
		metrics:       m,
		proxied:       m.NewCounterVec("proxy_requests_total", "Number of requests proxied to internal services.", "service", "outcome"),
		moderation:    m.NewCounterVec("moderation_actions_total", "Number of admin moderation actions.", "action"),
		events:        event.NewEmitter(httpclient.New(urls.EventStore), logger),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動する。
// 使われなくなったレートリミッタは定期的に削除する。
func (s *Server) Run(ctx context.Context) error {
	defer s.db.Close()

	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.limiter.Cleanup()
			}
		}
	}()

	return httpserver.Serve(ctx, s.port, s.router, s.logger)
}

// setupRoutes はAPIルーティングを設定する。
// authはJWT検証ミドルウェア。
func (s *Server) setupRoutes(auth gin.HandlerFunc) {
	rateLimit := middleware.RateLimit(s.limiter)

	// 開発用トークン発行（認証不要）
	s.router.POST("/auth/dev-token", rateLimit, s.handleDevToken())

	// 未ログインでも参照できるAPI
	public := s.router.Group("/api/v1")
	public.Use(rateLimit)
	{
		public.GET("/premium/plans", s.handleProxy("premium", s.serviceURLs.Premium))
		public.GET("/channels/:channel_id/subscribers/count", s.handleProxy("subscription", s.serviceURLs.Subscription))
	}

	// 認証必須のAPI。利用停止中のユーザーはここで拒否する
	api := s.router.Group("/api/v1")
	api.Use(auth, s.loadUser(), rateLimit)
	{
		api.GET("/me", s.handleGetCurrentUser())
		api.GET("/sidebar", s.handleSidebar())

		// 購読
		subscription := s.handleProxy("subscription", s.serviceURLs.Subscription)
		api.GET("/subscriptions", subscription)
		api.GET("/subscriptions/:channel_id/status", subscription)
		api.POST("/subscriptions/:channel_id/toggle", subscription)
		api.POST("/live/notify", subscription)

		// フィード
		feed := s.handleProxy("feed", s.serviceURLs.Feed)
		api.GET("/feed/subscriptions/videos", feed)
		api.GET("/feed/subscriptions/shorts", feed)
		api.GET("/feed/subscriptions/posts", feed)
		api.POST("/videos", feed)
		api.POST("/videos/:id/view", feed)
		api.POST("/posts", feed)
		api.POST("/posts/:id/vote", feed)
		api.POST("/posts/:id/like", feed)

		// 通知
		notification := s.handleProxy("notification", s.serviceURLs.Notification)
		api.GET("/notifications", notification)
		api.GET("/notifications/unread", notification)
		api.GET("/notifications/unread/count", notification)
		api.PUT("/notifications/:id/read", notification)
		api.PUT("/notifications/read-all", notification)

		// プレミアム
		premium := s.handleProxy("premium", s.serviceURLs.Premium)
		api.GET("/premium/me", premium)
		api.POST("/premium/subscribe", premium)
		api.POST("/premium/cancel", premium)
		api.POST("/premium/auto-renew", premium)
		api.GET("/premium/payments", premium)
		api.GET("/premium/downloads", premium)
		api.POST("/premium/downloads", premium)
		api.DELETE("/premium/downloads/:id", premium)
		api.GET("/premium/analytics/earnings", premium)
		api.GET("/premium/analytics/watch-time", premium)
		api.POST("/premium/watch", premium)

		// 管理者専用
		admin := api.Group("/admin")
		admin.Use(s.requireAdmin())
		{
			admin.GET("/users", s.handleListUsers())
			admin.PUT("/users/:id/ban", s.handleBan())
			admin.PUT("/users/:id/unban", s.handleUnban())
			admin.PUT("/users/:id/role", s.handleSetRole())
			// イベントログ
			admin.GET("/events", s.handleProxyTo("eventstore", s.serviceURLs.EventStore, "/api/v1/events"))
		}
	}

	// サービス間通信用。共有トークンを持つサービスだけが呼び出せる
	internal := s.router.Group("/internal/v1")
	internal.Use(middleware.InternalAuth(s.internalToken))
	{
		internal.POST("/users/lookup", s.handleLookupUsers())
		internal.PUT("/users/:id/tier", s.handleSetTier())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	s.router.GET("/metrics", s.metrics.Handler())
}
