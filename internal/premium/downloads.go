package premium

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	premiumdb "github.com/nao1215/neptube/internal/premium/db"
	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/tier"
)

// ダウンロードの状態。
const (
	downloadReady   = "ready"
	downloadExpired = "expired"
)

// downloadRetention はダウンロードが再生できる期間。
const downloadRetention = 30 * 24 * time.Hour

type downloadVideo struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	ThumbnailURL *string `json:"thumbnail_url"`
}

// downloadResponse はダウンロードのレスポンス。
type downloadResponse struct {
	ID        string        `json:"id"`
	Video     downloadVideo `json:"video"`
	Quality   string        `json:"quality"`
	Status    string        `json:"status"`
	ExpiresAt string        `json:"expires_at"`
	CreatedAt string        `json:"created_at"`
}

func toDownloadResponse(d premiumdb.Download) downloadResponse {
	return downloadResponse{
		ID: d.ID,
		Video: downloadVideo{
			ID:           d.VideoID,
			Title:        d.VideoTitle,
			ThumbnailURL: nullableString(d.ThumbnailUrl),
		},
		Quality:   d.Quality,
		Status:    d.Status,
		ExpiresAt: d.ExpiresAt.Format(time.RFC3339),
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	}
}

// handleListDownloads は認証済みユーザーのダウンロード一覧を新しい順に返すハンドラ。
func (s *Server) handleListDownloads() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		downloads, err := s.queries.ListDownloadsByUser(c.Request.Context(), userID)
		if err != nil {
			s.logger.Error("ダウンロード一覧取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ダウンロード一覧の取得に失敗しました"})
			return
		}

		resp := make([]downloadResponse, 0, len(downloads))
		for _, d := range downloads {
			resp = append(resp, toDownloadResponse(d))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// downloadRequest はダウンロード要求。
type downloadRequest struct {
	VideoID      string `json:"video_id" binding:"required"`
	VideoTitle   string `json:"video_title" binding:"required"`
	ThumbnailURL string `json:"thumbnail_url"`
	Quality      string `json:"quality" binding:"required"`
}

// handleRequestDownload はオフラインダウンロードを登録するハンドラ。
// プランの最大画質と月間上限を超える要求は拒否する。
func (s *Server) handleRequestDownload() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		var req downloadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
			return
		}
		ctx := c.Request.Context()
		now := s.now()

		sub, err := s.latestSubscription(ctx, userID)
		if err != nil {
			s.logger.Error("サブスクリプション取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "サブスクリプションの取得に失敗しました"})
			return
		}
		plan := s.effectivePlan(sub, now)
		if !plan.CanDownload() {
			c.JSON(http.StatusForbidden, gin.H{"error": "オフラインダウンロードは有料プランで利用できます"})
			return
		}
		if !tier.ValidQuality(req.Quality) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "画質の指定が不正です"})
			return
		}
		if !tier.QualityAllowed(plan.MaxQuality, req.Quality) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "現在のプランでは" + plan.MaxQuality + "までの画質を選択できます"})
			return
		}

		d := premiumdb.Download{
			ID:           uuid.New().String(),
			UserID:       userID,
			VideoID:      req.VideoID,
			VideoTitle:   req.VideoTitle,
			ThumbnailUrl: nullString(req.ThumbnailURL),
			Quality:      req.Quality,
			Status:       downloadReady,
			ExpiresAt:    now.Add(downloadRetention),
			CreatedAt:    now,
		}
		created, err := s.createDownload(ctx, d, plan, monthStart(now))
		if err != nil {
			s.logger.Error("ダウンロード作成エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ダウンロードの登録に失敗しました"})
			return
		}
		if !created {
			c.JSON(http.StatusConflict, gin.H{"error": "今月のダウンロード上限に達しました"})
			return
		}

		s.downloads.Inc()
		s.events.Emit(ctx, d.ID, event.AggregateTypeSubscription, event.TypeDownloadRequested, event.DownloadRequestedData{
			UserID:  userID,
			VideoID: req.VideoID,
			Quality: req.Quality,
		})
		c.JSON(http.StatusCreated, toDownloadResponse(d))
	}
}

// createDownload はダウンロードを登録する。上限のあるプランでは今月の要求数の確認と登録を
// 1つのINSERT文で行い、上限に達していた場合はfalseを返す。削除済みのダウンロードも要求数に含める。
func (s *Server) createDownload(ctx context.Context, d premiumdb.Download, plan tier.Plan, since time.Time) (bool, error) {
	if plan.DownloadsUnlimited() {
		if err := s.queries.CreateDownload(ctx, premiumdb.CreateDownloadParams{
			ID:           d.ID,
			UserID:       d.UserID,
			VideoID:      d.VideoID,
			VideoTitle:   d.VideoTitle,
			ThumbnailUrl: d.ThumbnailUrl,
			Quality:      d.Quality,
			Status:       d.Status,
			ExpiresAt:    d.ExpiresAt,
			CreatedAt:    d.CreatedAt,
		}); err != nil {
			return false, fmt.Errorf("ダウンロードの登録に失敗: %w", err)
		}
		return true, nil
	}

	n, err := s.queries.CreateDownloadWithinQuota(ctx, premiumdb.CreateDownloadWithinQuotaParams{
		ID:           d.ID,
		UserID:       d.UserID,
		VideoID:      d.VideoID,
		VideoTitle:   d.VideoTitle,
		ThumbnailUrl: d.ThumbnailUrl,
		Quality:      d.Quality,
		Status:       d.Status,
		ExpiresAt:    d.ExpiresAt,
		CreatedAt:    d.CreatedAt,
		QuotaUserID:  d.UserID,
		MonthStart:   since,
		Quota:        int64(plan.DownloadsPerMonth),
	})
	if err != nil {
		return false, fmt.Errorf("ダウンロードの登録に失敗: %w", err)
	}
	return n == 1, nil
}

// handleDeleteDownload は自分のダウンロードを削除するハンドラ。
// 行は削除日時を付けて残し、一覧からだけ外す。
func (s *Server) handleDeleteDownload() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		id := c.Param("id")
		ctx := c.Request.Context()

		d, err := s.queries.GetDownload(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ダウンロードが見つかりません"})
			return
		}
		if err != nil {
			s.logger.Error("ダウンロード取得エラー", zap.String("download_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ダウンロードの取得に失敗しました"})
			return
		}
		if d.UserID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "他のユーザーのダウンロードは削除できません"})
			return
		}

		if err := s.queries.SoftDeleteDownload(ctx, premiumdb.SoftDeleteDownloadParams{
			DeletedAt: sql.NullTime{Time: s.now(), Valid: true},
			ID:        id,
		}); err != nil {
			s.logger.Error("ダウンロード削除エラー", zap.String("download_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ダウンロードの削除に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ダウンロードを削除しました"})
	}
}
