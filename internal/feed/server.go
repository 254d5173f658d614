package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	feeddb "github.com/nao1215/neptube/internal/feed/db"
	"github.com/nao1215/neptube/pkg/config"
	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/httpclient"
	"github.com/nao1215/neptube/pkg/httpserver"
	"github.com/nao1215/neptube/pkg/metrics"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/profile"
)

const serviceName = "feed"

const (
	defaultVideoLimit = 30
	defaultPostLimit  = 20
	maxFeedLimit      = 100
)

// clients はサービス間通信に使うクライアント群。
type clients struct {
	// subscription は購読チャンネルの参照先。
	subscription *httpclient.Client
	// gateway は投稿者情報の参照先。
	gateway *httpclient.Client
	// eventStore はイベントの送信先。
	eventStore *httpclient.Client
}

// Server はフィードサービスのHTTPサーバー。
type Server struct {
	router  *gin.Engine
	port    string
	queries *feeddb.Queries
	db      *sql.DB
	logger  *zap.Logger
	metrics *metrics.Metrics
	// created は作成されたコンテンツ数。kindはvideo, short, text, image, poll。
	created *prometheus.CounterVec
	// votes は投票数。actionはnewまたはchanged。
	votes   *prometheus.CounterVec
	events  *event.Emitter
	clients clients
	now     func() time.Time
}

// NewServer は新しいフィードサーバーを生成する。
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
		subscription: httpclient.New(config.GetEnvOr("SUBSCRIPTION_URL", "http://localhost:8081")),
		gateway:      profile.NewGatewayClient(config.GetEnvOr("GATEWAY_URL", "http://localhost:8080"), cfg.InternalToken),
		eventStore:   httpclient.New(config.GetEnvOr("EVENTSTORE_URL", "http://localhost:8084")),
	})
	s.port = cfg.Port
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
		router:  router,
		queries: feeddb.New(sqlDB),
		db:      sqlDB,
		logger:  logger,
		metrics: m,
		created: m.NewCounterVec("content_created_total", "Number of videos and community posts created.", "kind"),
		votes:   m.NewCounterVec("poll_votes_total", "Number of poll votes.", "action"),
		events:  event.NewEmitter(c.eventStore, logger),
		clients: c,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動する。
func (s *Server) Run(ctx context.Context) error {
	defer s.db.Close()
	return httpserver.Serve(ctx, s.port, s.router, s.logger)
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(auth gin.HandlerFunc) {
	api := s.router.Group("/api/v1")
	api.Use(auth)
	{
		api.GET("/feed/subscriptions/videos", s.handleVideosFeed())
		api.GET("/feed/subscriptions/shorts", s.handleShortsFeed())
		api.GET("/feed/subscriptions/posts", s.handlePostsFeed())

		api.POST("/videos", s.handleCreateVideo())
		api.POST("/videos/:id/view", s.handleView())

		api.POST("/posts", s.handleCreatePost())
		api.POST("/posts/:id/vote", s.handleVote())
		api.POST("/posts/:id/like", s.handleToggleLike())
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	s.router.GET("/metrics", s.metrics.Handler())
}

// parseLimit はクエリのlimitを取り出す。範囲外の値は1からmaxLimitに丸める。
func parseLimit(c *gin.Context, def int) (int64, error) {
	raw := c.Query("limit")
	if raw == "" {
		return int64(def), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limitは整数で指定してください")
	}
	return int64(min(max(n, 1), maxFeedLimit)), nil
}

// channelsResponse は購読サービスの購読チャンネル一覧のレスポンス。
type channelsResponse struct {
	ChannelIDs []string `json:"channel_ids"`
}

// followedChannels はユーザーが購読しているチャンネルIDを購読サービスから取得する。
func (s *Server) followedChannels(ctx context.Context, userID string) ([]string, error) {
	var resp channelsResponse
	path := "/internal/v1/subscribers/" + userID + "/channels"
	if err := s.clients.subscription.GetJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("購読チャンネルの取得に失敗: %w", err)
	}
	return resp.ChannelIDs, nil
}

// uniqueIDs は出現順を保ったまま重複を取り除く。
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
