package premium

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	premiumdb "github.com/nao1215/neptube/internal/premium/db"
	"github.com/nao1215/neptube/pkg/format"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/tier"
)

const (
	// trendMonths は月次推移の対象月数（当月を含む）。
	trendMonths = 6
	// recentEarningsLimit は最近の収益の件数。
	recentEarningsLimit = 10
	// topVideosLimit は視聴時間ランキングの件数。
	topVideosLimit = 10
)

// requireAnalytics はアナリティクスを利用できるユーザーか確認する。
// VIPプランのユーザーと管理者のみ利用でき、それ以外は403を返してfalseになる。
func (s *Server) requireAnalytics(c *gin.Context) (string, bool) {
	id := middleware.GetIdentity(c)
	if id.Role == tier.RoleAdmin {
		return id.UserID, true
	}

	sub, err := s.latestSubscription(c.Request.Context(), id.UserID)
	if err != nil {
		s.logger.Error("サブスクリプション取得エラー", zap.String("user_id", id.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "サブスクリプションの取得に失敗しました"})
		return "", false
	}
	if !s.effectivePlan(sub, s.now()).Analytics {
		c.JSON(http.StatusForbidden, gin.H{"error": "アナリティクスはVIPプランで利用できます"})
		return "", false
	}
	return id.UserID, true
}

type earningTotals struct {
	Total          int64  `json:"total"`
	Unpaid         int64  `json:"unpaid"`
	PaidOut        int64  `json:"paid_out"`
	TotalDisplay   string `json:"total_display"`
	UnpaidDisplay  string `json:"unpaid_display"`
	PaidOutDisplay string `json:"paid_out_display"`
}

type sourceTotal struct {
	Source       string `json:"source"`
	Total        int64  `json:"total"`
	TotalDisplay string `json:"total_display"`
	Count        int64  `json:"count"`
}

// monthTotal は月次推移の1か月分。Percentageは期間中の最大月を100とした割合。
type monthTotal struct {
	Month      string  `json:"month"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

type recentEarning struct {
	ID            string  `json:"id"`
	Source        string  `json:"source"`
	Amount        int64   `json:"amount"`
	AmountDisplay string  `json:"amount_display"`
	FromUserID    *string `json:"from_user_id"`
	VideoID       *string `json:"video_id"`
	IsPaidOut     bool    `json:"is_paid_out"`
	CreatedAt     string  `json:"created_at"`
	CreatedAgo    string  `json:"created_ago"`
}

type earningsResponse struct {
	Totals       earningTotals   `json:"totals"`
	BySource     []sourceTotal   `json:"by_source"`
	MonthlyTrend []monthTotal    `json:"monthly_trend"`
	Recent       []recentEarning `json:"recent"`
}

// monthlyTrend は収益を月ごとに集計し、古い月から順に返す。
// 収益の無い月も0として含める。
func monthlyTrend(rows []premiumdb.ListEarningsSinceRow, now time.Time, months int) []monthTotal {
	start := monthStart(now).AddDate(0, -(months - 1), 0)
	trend := make([]monthTotal, months)
	index := make(map[string]int, months)
	for i := range trend {
		key := start.AddDate(0, i, 0).Format("2006-01")
		trend[i].Month = key
		index[key] = i
	}

	for _, r := range rows {
		if i, ok := index[r.CreatedAt.UTC().Format("2006-01")]; ok {
			trend[i].Total += r.Amount
		}
	}

	var maxTotal int64 = 1
	for _, m := range trend {
		maxTotal = max(maxTotal, m.Total)
	}
	for i := range trend {
		trend[i].Percentage = float64(trend[i].Total) / float64(maxTotal) * 100
	}
	return trend
}

// handleEarnings はクリエイターの収益サマリーを返すハンドラ。
func (s *Server) handleEarnings() gin.HandlerFunc {
	return func(c *gin.Context) {
		creatorID, ok := s.requireAnalytics(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		now := s.now()

		fail := func(msg string, err error) {
			s.logger.Error(msg, zap.String("creator_id", creatorID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "収益の取得に失敗しました"})
		}

		totals, err := s.queries.GetEarningTotals(ctx, creatorID)
		if err != nil {
			fail("収益合計取得エラー", err)
			return
		}
		sources, err := s.queries.ListEarningsBySource(ctx, creatorID)
		if err != nil {
			fail("収益源別集計エラー", err)
			return
		}
		since, err := s.queries.ListEarningsSince(ctx, premiumdb.ListEarningsSinceParams{
			CreatorID: creatorID,
			CreatedAt: monthStart(now).AddDate(0, -(trendMonths - 1), 0),
		})
		if err != nil {
			fail("月次収益取得エラー", err)
			return
		}
		recent, err := s.queries.ListRecentEarnings(ctx, premiumdb.ListRecentEarningsParams{
			CreatorID: creatorID,
			Limit:     recentEarningsLimit,
		})
		if err != nil {
			fail("最近の収益取得エラー", err)
			return
		}

		resp := earningsResponse{
			Totals: earningTotals{
				Total:          totals.Total,
				Unpaid:         totals.Unpaid,
				PaidOut:        totals.PaidOut,
				TotalDisplay:   format.NPR(totals.Total),
				UnpaidDisplay:  format.NPR(totals.Unpaid),
				PaidOutDisplay: format.NPR(totals.PaidOut),
			},
			BySource:     make([]sourceTotal, 0, len(sources)),
			MonthlyTrend: monthlyTrend(since, now, trendMonths),
			Recent:       make([]recentEarning, 0, len(recent)),
		}
		for _, src := range sources {
			resp.BySource = append(resp.BySource, sourceTotal{
				Source:       src.Source,
				Total:        src.Total,
				TotalDisplay: format.NPR(src.Total),
				Count:        src.Count,
			})
		}
		for _, e := range recent {
			resp.Recent = append(resp.Recent, recentEarning{
				ID:            e.ID,
				Source:        e.Source,
				Amount:        e.Amount,
				AmountDisplay: format.NPR(e.Amount),
				FromUserID:    nullableString(e.FromUserID),
				VideoID:       nullableString(e.VideoID),
				IsPaidOut:     e.IsPaidOut == 1,
				CreatedAt:     e.CreatedAt.Format(time.RFC3339),
				CreatedAgo:    format.Ago(e.CreatedAt, now),
			})
		}
		c.JSON(http.StatusOK, resp)
	}
}

type watchOverview struct {
	UniqueViewers           int64  `json:"unique_viewers"`
	TotalViews              int64  `json:"total_views"`
	TotalWatchTime          int64  `json:"total_watch_time"`
	TotalWatchTimeDisplay   string `json:"total_watch_time_display"`
	AvgWatchDuration        int64  `json:"avg_watch_duration"`
	AvgWatchDurationDisplay string `json:"avg_watch_duration_display"`
}

type topVideo struct {
	Video                 downloadVideo `json:"video"`
	ViewCount             int64         `json:"view_count"`
	UniqueViewers         int64         `json:"unique_viewers"`
	TotalWatchTime        int64         `json:"total_watch_time"`
	TotalWatchTimeDisplay string        `json:"total_watch_time_display"`
}

// handleWatchTime はクリエイターの視聴時間アナリティクスを返すハンドラ。
func (s *Server) handleWatchTime() gin.HandlerFunc {
	return func(c *gin.Context) {
		creatorID, ok := s.requireAnalytics(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		overview, err := s.queries.GetWatchOverview(ctx, creatorID)
		if err != nil {
			s.logger.Error("視聴時間集計エラー", zap.String("creator_id", creatorID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "視聴時間の取得に失敗しました"})
			return
		}
		videos, err := s.queries.ListTopVideosByWatchTime(ctx, premiumdb.ListTopVideosByWatchTimeParams{
			CreatorID: creatorID,
			Limit:     topVideosLimit,
		})
		if err != nil {
			s.logger.Error("視聴時間ランキング取得エラー", zap.String("creator_id", creatorID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "視聴時間の取得に失敗しました"})
			return
		}

		top := make([]topVideo, 0, len(videos))
		for _, v := range videos {
			top = append(top, topVideo{
				Video: downloadVideo{
					ID:           v.VideoID,
					Title:        v.VideoTitle,
					ThumbnailURL: nullableString(v.ThumbnailUrl),
				},
				ViewCount:             v.ViewCount,
				UniqueViewers:         v.UniqueViewers,
				TotalWatchTime:        v.TotalWatchTime,
				TotalWatchTimeDisplay: format.Duration(v.TotalWatchTime),
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"overview": watchOverview{
				UniqueViewers:           overview.UniqueViewers,
				TotalViews:              overview.TotalViews,
				TotalWatchTime:          overview.TotalWatchTime,
				TotalWatchTimeDisplay:   format.Duration(overview.TotalWatchTime),
				AvgWatchDuration:        overview.AvgWatchDuration,
				AvgWatchDurationDisplay: format.Duration(overview.AvgWatchDuration),
			},
			"top_videos": top,
		})
	}
}

// watchRequest は視聴記録。視聴者は認証済みユーザー。
type watchRequest struct {
	VideoID       string `json:"video_id" binding:"required"`
	CreatorID     string `json:"creator_id" binding:"required"`
	VideoTitle    string `json:"video_title" binding:"required"`
	ThumbnailURL  string `json:"thumbnail_url"`
	WatchDuration int64  `json:"watch_duration" binding:"min=0"`
}

// handleRecordWatch は視聴セッションを記録するハンドラ。
func (s *Server) handleRecordWatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerID := middleware.GetUserID(c)

		var req watchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
			return
		}

		id := uuid.New().String()
		if err := s.queries.CreateWatchSession(c.Request.Context(), premiumdb.CreateWatchSessionParams{
			ID:            id,
			ViewerID:      viewerID,
			CreatorID:     req.CreatorID,
			VideoID:       req.VideoID,
			VideoTitle:    req.VideoTitle,
			ThumbnailUrl:  nullString(req.ThumbnailURL),
			WatchDuration: req.WatchDuration,
			CreatedAt:     s.now(),
		}); err != nil {
			s.logger.Error("視聴記録エラー", zap.String("video_id", req.VideoID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "視聴の記録に失敗しました"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// earningRequest は収益記録の内部APIリクエスト。金額はパイサ。
type earningRequest struct {
	CreatorID  string `json:"creator_id" binding:"required"`
	Source     string `json:"source" binding:"required,oneof=super_chat tip ad_revenue"`
	Amount     int64  `json:"amount" binding:"required,min=1"`
	FromUserID string `json:"from_user_id"`
	VideoID    string `json:"video_id"`
}

// handleRecordEarning はクリエイターの収益を記録する内部API。
func (s *Server) handleRecordEarning() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req earningRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
			return
		}

		id := uuid.New().String()
		if err := s.queries.CreateEarning(c.Request.Context(), premiumdb.CreateEarningParams{
			ID:         id,
			CreatorID:  req.CreatorID,
			Source:     req.Source,
			Amount:     req.Amount,
			FromUserID: nullString(req.FromUserID),
			VideoID:    nullString(req.VideoID),
			CreatedAt:  s.now(),
		}); err != nil {
			s.logger.Error("収益記録エラー", zap.String("creator_id", req.CreatorID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "収益の記録に失敗しました"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// handlePayout は未払いの収益をすべて支払い済みにする内部API。
func (s *Server) handlePayout() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			CreatorID string `json:"creator_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
			return
		}

		amount, count, err := s.payout(c.Request.Context(), req.CreatorID)
		if err != nil {
			s.logger.Error("支払い処理エラー", zap.String("creator_id", req.CreatorID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "収益の支払い処理に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"paid_out":         amount,
			"paid_out_display": format.NPR(amount),
			"earnings":         count,
		})
	}
}

// payout は未払い合計の算出と支払い済みへの更新を1トランザクションで行う。
func (s *Server) payout(ctx context.Context, creatorID string) (int64, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	q := s.queries.WithTx(tx)

	amount, err := q.SumUnpaidEarnings(ctx, creatorID)
	if err != nil {
		return 0, 0, fmt.Errorf("未払い収益の集計に失敗: %w", err)
	}
	count, err := q.MarkEarningsPaidOut(ctx, premiumdb.MarkEarningsPaidOutParams{
		PaidOutAt: sql.NullTime{Time: s.now(), Valid: true},
		CreatorID: creatorID,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("収益の更新に失敗: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("コミットに失敗: %w", err)
	}
	return amount, count, nil
}
