package premium

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	premiumdb "github.com/nao1215/neptube/internal/premium/db"
	"github.com/nao1215/neptube/pkg/config"
	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/format"
	"github.com/nao1215/neptube/pkg/httpclient"
	"github.com/nao1215/neptube/pkg/httpserver"
	"github.com/nao1215/neptube/pkg/metrics"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/profile"
	"github.com/nao1215/neptube/pkg/tier"
)

const serviceName = "premium"

// subscriptionPeriod は1回の支払いで有効になる期間。
const subscriptionPeriod = 30 * 24 * time.Hour

// defaultSweepSchedule は期限切れスイープの既定スケジュール。
const defaultSweepSchedule = "@every 5m"

// clients はサービス間通信に使うクライアント群。
type clients struct {
	// eventStore はイベントの送信先。
	eventStore *httpclient.Client
	// gateway はユーザーのプラン同期先。
	gateway *httpclient.Client
}

// Server はプレミアムサービスのHTTPサーバー。
type Server struct {
	router    *gin.Engine
	port      string
	queries   *premiumdb.Queries
	db        *sql.DB
	logger    *zap.Logger
	metrics   *metrics.Metrics
	catalogue *tier.Catalogue
	// payments は支払い結果ごとの件数。
	payments *prometheus.CounterVec
	// downloads はダウンロード要求の件数。
	downloads prometheus.Counter
	// sweepActions はスイープで処理した件数。
	sweepActions  *prometheus.CounterVec
	events        *event.Emitter
	clients       clients
	sweepSchedule string
	now           func() time.Time
}

// NewServer は新しいプレミアムサーバーを生成する。
// TIER_CATALOGUE_PATHが設定されていればプラン定義をそのYAMLから読み込む。
func NewServer(cfg config.Config, logger *zap.Logger) (*Server, error) {
	catalogue := tier.Default()
	if path := config.GetEnvOr("TIER_CATALOGUE_PATH", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("プラン定義ファイルの読み込みに失敗: %w", err)
		}
		if catalogue, err = tier.Load(data); err != nil {
			return nil, err
		}
	}

	sqlDB, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(context.Background(), sqlDB, logger); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	s := newServer(sqlDB, logger, catalogue, clients{
		eventStore: httpclient.New(config.GetEnvOr("EVENTSTORE_URL", "http://localhost:8084")),
		gateway:    profile.NewGatewayClient(config.GetEnvOr("GATEWAY_URL", "http://localhost:8080"), cfg.InternalToken),
	})
	s.port = cfg.Port
	s.sweepSchedule = config.GetEnvOr("PREMIUM_SWEEP_SCHEDULE", defaultSweepSchedule)
	s.setupRoutes(middleware.ServiceJWTAuth(cfg.JWTSecret))
	return s, nil
}

// newServer はルーティング以外の依存関係を組み立てる。
func newServer(sqlDB *sql.DB, logger *zap.Logger, catalogue *tier.Catalogue, c clients) *Server {
	m := metrics.New(serviceName)

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.AccessLog(logger))
	router.Use(m.Middleware())

	return &Server{
		router:        router,
		queries:       premiumdb.New(sqlDB),
		db:            sqlDB,
		logger:        logger,
		metrics:       m,
		catalogue:     catalogue,
		payments:      m.NewCounterVec("payments_total", "Number of finished payments by status.", "status"),
		downloads:     m.NewCounter("downloads_requested_total", "Number of offline download requests."),
		sweepActions:  m.NewCounterVec("sweep_actions_total", "Number of subscriptions and downloads processed by the sweep.", "action"),
		events:        event.NewEmitter(c.eventStore, logger),
		clients:       c,
		sweepSchedule: defaultSweepSchedule,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Run はctxがキャンセルされるまでHTTPサーバーと期限切れスイープを起動する。
func (s *Server) Run(ctx context.Context) error {
	defer s.db.Close()

	stop, err := s.startSweeper(s.sweepSchedule)
	if err != nil {
		return err
	}
	defer stop()

	return httpserver.Serve(ctx, s.port, s.router, s.logger)
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(auth gin.HandlerFunc) {
	public := s.router.Group("/api/v1/premium")
	{
		public.GET("/plans", s.handlePlans())
	}

	api := s.router.Group("/api/v1/premium")
	api.Use(auth)
	{
		api.GET("/me", s.handleMe())
		api.POST("/subscribe", s.handleSubscribe())
		api.POST("/cancel", s.handleCancel())
		api.POST("/auto-renew", s.handleToggleAutoRenew())
		api.GET("/payments", s.handlePaymentHistory())

		api.GET("/downloads", s.handleListDownloads())
		api.POST("/downloads", s.handleRequestDownload())
		api.DELETE("/downloads/:id", s.handleDeleteDownload())

		api.GET("/analytics/earnings", s.handleEarnings())
		api.GET("/analytics/watch-time", s.handleWatchTime())
		api.POST("/watch", s.handleRecordWatch())
	}

	internal := s.router.Group("/internal/v1")
	{
		internal.POST("/payments/:id/confirm", s.handleConfirmPayment())
		internal.POST("/earnings", s.handleRecordEarning())
		internal.POST("/earnings/payout", s.handlePayout())
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	s.router.GET("/metrics", s.metrics.Handler())
}

// parseLimit はlimitクエリパラメータを解釈する。未指定なら既定値を返す。
func parseLimit(c *gin.Context, def, maxLimit int) (int64, error) {
	raw := c.Query("limit")
	if raw == "" {
		return int64(def), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, fmt.Errorf("limitは1から%dの整数で指定してください", maxLimit)
	}
	return int64(n), nil
}

// planResponse はプラン定義のレスポンス。
type planResponse struct {
	Tier              tier.Tier `json:"tier"`
	Name              string    `json:"name"`
	PriceMonthly      int64     `json:"price_monthly"`
	PriceDisplay      string    `json:"price_display"`
	MaxQuality        string    `json:"max_quality"`
	ShowAds           bool      `json:"show_ads"`
	ReducedFrequency  bool      `json:"reduced_frequency"`
	DownloadsPerMonth int       `json:"downloads_per_month"`
	Analytics         bool      `json:"analytics"`
}

// handlePlans はプラン一覧を返すハンドラ。
func (s *Server) handlePlans() gin.HandlerFunc {
	return func(c *gin.Context) {
		plans := s.catalogue.Plans()
		resp := make([]planResponse, 0, len(plans))
		for _, p := range plans {
			resp = append(resp, planResponse{
				Tier:              p.Tier,
				Name:              p.Name,
				PriceMonthly:      p.PriceMonthly,
				PriceDisplay:      format.NPR(p.PriceMonthly),
				MaxQuality:        p.MaxQuality,
				ShowAds:           p.ShowAds,
				ReducedFrequency:  p.ReducedAdFrequency,
				DownloadsPerMonth: p.DownloadsPerMonth,
				Analytics:         p.Analytics,
			})
		}
		c.JSON(http.StatusOK, resp)
	}
}

// syncTier はゲートウェイのユーザーのプランを更新する。
// 失敗してもプランの状態はこのサービスが正なので、ログに記録するだけにする。
func (s *Server) syncTier(ctx context.Context, userID string, t tier.Tier) {
	if s.clients.gateway == nil {
		return
	}
	path := "/internal/v1/users/" + userID + "/tier"
	err := s.clients.gateway.PutJSON(ctx, path, gin.H{"tier": t}, nil)
	switch {
	case err == nil:
	case httpclient.IsNotFound(err):
		s.logger.Warn("ゲートウェイにユーザーが存在しないためプランを同期できません",
			zap.String("user_id", userID), zap.String("gateway", s.clients.gateway.BaseURL()))
	default:
		s.logger.Warn("プランの同期に失敗",
			zap.String("user_id", userID), zap.String("tier", string(t)),
			zap.String("gateway", s.clients.gateway.BaseURL()), zap.Error(err))
	}
}

// nullString は空文字列をNULLとして扱う。
func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// nullableString はNULLをnilとしてJSONに出力するための変換。
func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
