package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
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

	eventstoredb "github.com/nao1215/neptube/internal/eventstore/db"
	"github.com/nao1215/neptube/pkg/config"
	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/httpserver"
	"github.com/nao1215/neptube/pkg/metrics"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/sqliteutil"
)

const (
	serviceName = "eventstore"
	// defaultListLimit は一覧取得の既定件数。
	defaultListLimit = 100
	// maxListLimit は一覧取得の上限件数。
	maxListLimit = 1000
	// appendRetries はバージョン競合時の再試行回数。
	appendRetries = 3
)

// errVersionConflict は同じAggregateに同時に追記され、バージョンが衝突したことを表す。
var errVersionConflict = errors.New("バージョンが競合しました")

// Server はイベントストアサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *eventstoredb.Queries
	// db はSQLiteデータベース接続。
	db      *sql.DB
	logger  *zap.Logger
	metrics *metrics.Metrics
	// appended は追記したイベント数（種類別）。
	appended *prometheus.CounterVec
	now      func() time.Time
}

// NewServer は新しいイベントストアサーバーを生成する。
func NewServer(cfg config.Config, logger *zap.Logger) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(context.Background(), sqlDB, logger); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	s := newServer(sqlDB, logger)
	s.port = cfg.Port
	s.setupRoutes()
	return s, nil
}

// newServer はルーティング以外の依存関係を組み立てる。
func newServer(sqlDB *sql.DB, logger *zap.Logger) *Server {
	m := metrics.New(serviceName)

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.AccessLog(logger))
	router.Use(m.Middleware())

	return &Server{
		router:   router,
		queries:  eventstoredb.New(sqlDB),
		db:       sqlDB,
		logger:   logger,
		metrics:  m,
		appended: m.NewCounterVec("events_appended_total", "Number of events appended.", "event_type"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動する。
func (s *Server) Run(ctx context.Context) error {
	defer s.db.Close()
	return httpserver.Serve(ctx, s.port, s.router, s.logger)
}

// setupRoutes はAPIルーティングを設定する。
// イベントストアはゲートウェイから公開されず、サービス間通信でのみ使われる。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		events := api.Group("/events")
		{
			// イベントの追記
			events.POST("", s.handleAppendEvent())
			// 全イベント取得
			events.GET("", s.handleGetAllEvents())
			// AggregateIDによるイベント取得
			events.GET("/aggregate/:aggregate_id", s.handleGetEventsByAggregateID())
			// AggregateIDの最新バージョン取得
			events.GET("/aggregate/:aggregate_id/version", s.handleGetLatestVersion())
			// イベントタイプによるイベント取得
			events.GET("/type/:event_type", s.handleGetEventsByType())
			// 日時指定によるイベント取得（クエリパラメータ: since）
			events.GET("/since", s.handleGetEventsSince())
		}
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	s.router.GET("/metrics", s.metrics.Handler())
}

// eventResponse はイベントのJSONレスポンス構造。
type eventResponse struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Version       int64           `json:"version"`
	// CreatedAt はイベントの作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toEventResponse はDB行をJSONレスポンスに変換する。
func toEventResponse(e eventstoredb.Event) eventResponse {
	return eventResponse{
		ID:            e.ID,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		EventType:     e.EventType,
		Data:          json.RawMessage(e.Data),
		Version:       e.Version,
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// toEventResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toEventResponses(events []eventstoredb.Event) []eventResponse {
	responses := make([]eventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, toEventResponse(e))
	}
	return responses
}

// parseLimit はlimitクエリパラメータを解釈する。
func parseLimit(c *gin.Context) (int64, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limitは1以上の整数で指定してください")
	}
	return int64(min(n, maxListLimit)), nil
}

// handleAppendEvent はイベントの追記を処理するハンドラを返す。
// バージョンはAggregateごとの最新バージョン+1を採番する。
func (s *Server) handleAppendEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req event.AppendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if !json.Valid(req.Data) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dataはJSON形式で指定してください"})
			return
		}

		var (
			stored eventstoredb.Event
			err    error
		)
		for range appendRetries {
			stored, err = s.append(c.Request.Context(), req)
			if !errors.Is(err, errVersionConflict) {
				break
			}
		}
		if err != nil {
			s.logger.Error("イベント追記エラー",
				zap.String("aggregate_id", req.AggregateID),
				zap.String("event_type", string(req.EventType)),
				zap.Error(err),
			)
			if errors.Is(err, errVersionConflict) {
				c.JSON(http.StatusConflict, gin.H{"error": "同時に追記されたため保存できませんでした"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの追記に失敗しました"})
			return
		}
		s.appended.WithLabelValues(stored.EventType).Inc()

		c.JSON(http.StatusCreated, toEventResponse(stored))
	}
}

// append は最新バージョンの取得と追記を1つのトランザクションで行う。
func (s *Server) append(ctx context.Context, req event.AppendRequest) (eventstoredb.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eventstoredb.Event{}, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	qtx := s.queries.WithTx(tx)
	latest, err := qtx.GetLatestVersion(ctx, req.AggregateID)
	if err != nil {
		return eventstoredb.Event{}, fmt.Errorf("最新バージョンの取得に失敗: %w", err)
	}

	e := eventstoredb.Event{
		ID:            uuid.New().String(),
		AggregateID:   req.AggregateID,
		AggregateType: string(req.AggregateType),
		EventType:     string(req.EventType),
		Data:          string(req.Data),
		Version:       latest + 1,
		CreatedAt:     s.now(),
	}
	if err := qtx.AppendEvent(ctx, eventstoredb.AppendEventParams(e)); err != nil {
		if sqliteutil.IsConstraintError(err) || sqliteutil.IsBusyError(err) {
			return eventstoredb.Event{}, errVersionConflict
		}
		return eventstoredb.Event{}, fmt.Errorf("イベントの保存に失敗: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if sqliteutil.IsBusyError(err) {
			return eventstoredb.Event{}, errVersionConflict
		}
		return eventstoredb.Event{}, fmt.Errorf("コミットに失敗: %w", err)
	}
	return e, nil
}

// handleGetAllEvents は全イベントを作成順に返すハンドラを返す。
func (s *Server) handleGetAllEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := parseLimit(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		events, err := s.queries.ListAllEvents(c.Request.Context(), limit)
		if err != nil {
			s.logger.Error("全イベント取得エラー", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, toEventResponses(events))
	}
}

// handleGetEventsByAggregateID はAggregateIDによるイベント取得を処理するハンドラを返す。
func (s *Server) handleGetEventsByAggregateID() gin.HandlerFunc {
	return func(c *gin.Context) {
		aggregateID := c.Param("aggregate_id")

		events, err := s.queries.ListEventsByAggregateID(c.Request.Context(), aggregateID)
		if err != nil {
			s.logger.Error("Aggregateイベント取得エラー", zap.String("aggregate_id", aggregateID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, toEventResponses(events))
	}
}

// handleGetLatestVersion はAggregateIDの最新バージョン取得を処理するハンドラを返す。
// イベントが無いAggregateは0を返す。
func (s *Server) handleGetLatestVersion() gin.HandlerFunc {
	return func(c *gin.Context) {
		aggregateID := c.Param("aggregate_id")

		latest, err := s.queries.GetLatestVersion(c.Request.Context(), aggregateID)
		if err != nil {
			s.logger.Error("最新バージョン取得エラー", zap.String("aggregate_id", aggregateID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "最新バージョンの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"aggregate_id": aggregateID, "latest_version": latest})
	}
}

// handleGetEventsByType はイベントタイプによるイベント取得を処理するハンドラを返す。
func (s *Server) handleGetEventsByType() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := parseLimit(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		eventType := c.Param("event_type")
		events, err := s.queries.ListEventsByType(c.Request.Context(), eventstoredb.ListEventsByTypeParams{
			EventType: eventType,
			Limit:     limit,
		})
		if err != nil {
			s.logger.Error("タイプ別イベント取得エラー", zap.String("event_type", eventType), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, toEventResponses(events))
	}
}

// handleGetEventsSince は日時指定によるイベント取得を処理するハンドラを返す。
func (s *Server) handleGetEventsSince() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("since")
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sinceパラメータが必要です"})
			return
		}
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sinceはRFC3339形式で指定してください"})
			return
		}
		limit, err := parseLimit(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		events, err := s.queries.ListEventsSince(c.Request.Context(), eventstoredb.ListEventsSinceParams{
			CreatedAt: since.UTC(),
			Limit:     limit,
		})
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("日時指定イベント取得エラー", zap.Time("since", since), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, toEventResponses(events))
	}
}
