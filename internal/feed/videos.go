package feed

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	feeddb "github.com/nao1215/neptube/internal/feed/db"
	"github.com/nao1215/neptube/pkg/format"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/profile"
)

// 動画の公開範囲。フィードにはpublicだけが載る。
const (
	visibilityPublic   = "public"
	visibilityUnlisted = "unlisted"
	visibilityPrivate  = "private"
)

// videoResponse はフィードに表示する動画。
type videoResponse struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	ThumbnailURL  string          `json:"thumbnail_url"`
	IsShort       bool            `json:"is_short"`
	IsNSFW        bool            `json:"is_nsfw"`
	Visibility    string          `json:"visibility"`
	ViewCount     int64           `json:"view_count"`
	ViewCountText string          `json:"view_count_text"`
	PublishedAt   string          `json:"published_at"`
	PublishedAgo  string          `json:"published_ago"`
	User          profile.Profile `json:"user"`
}

func (s *Server) toVideoResponse(v feeddb.Video, author profile.Profile) videoResponse {
	return videoResponse{
		ID:            v.ID,
		Title:         v.Title,
		Description:   v.Description.String,
		ThumbnailURL:  v.ThumbnailUrl.String,
		IsShort:       v.IsShort != 0,
		IsNSFW:        v.IsNsfw != 0,
		Visibility:    v.Visibility,
		ViewCount:     v.ViewCount,
		ViewCountText: format.Views(v.ViewCount),
		PublishedAt:   v.CreatedAt.Format(time.RFC3339),
		PublishedAgo:  format.Ago(v.CreatedAt, s.now()),
		User:          author,
	}
}

// loadVideos は購読チャンネルの公開動画を投稿者情報付きで取得する。
// 返すerrorのステータスコードは第3戻り値で表す。
func (s *Server) loadVideos(ctx context.Context, userID string, isShort bool, limit int64) ([]videoResponse, int, int, error) {
	channels, err := s.followedChannels(ctx, userID)
	if err != nil {
		return nil, 0, http.StatusBadGateway, err
	}
	if len(channels) == 0 {
		return []videoResponse{}, 0, http.StatusOK, nil
	}

	videos, err := s.queries.ListFeedVideos(ctx, feeddb.ListFeedVideosParams{
		ChannelIds: channels,
		IsShort:    boolToInt(isShort),
		Limit:      limit,
	})
	if err != nil {
		return nil, 0, http.StatusInternalServerError, err
	}

	authorIDs := make([]string, 0, len(videos))
	for _, v := range videos {
		authorIDs = append(authorIDs, v.UserID)
	}
	profiles, err := profile.Lookup(ctx, s.clients.gateway, uniqueIDs(authorIDs))
	if err != nil {
		return nil, 0, http.StatusBadGateway, err
	}

	items := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		items = append(items, s.toVideoResponse(v, profile.Resolve(profiles, v.UserID)))
	}
	return items, len(channels), http.StatusOK, nil
}

// handleVideosFeed は購読チャンネルの動画フィードを返すハンドラ。
// ショートは含めない。
func (s *Server) handleVideosFeed() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		limit, err := parseLimit(c, defaultVideoLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		items, channels, status, err := s.loadVideos(c.Request.Context(), userID, false, limit)
		if err != nil {
			s.logger.Error("動画フィード取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(status, gin.H{"error": "フィードの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "subscribed_channels": channels})
	}
}

// handleShortsFeed は購読チャンネルのショート一覧を返すハンドラ。
func (s *Server) handleShortsFeed() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		limit, err := parseLimit(c, defaultVideoLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		items, _, status, err := s.loadVideos(c.Request.Context(), userID, true, limit)
		if err != nil {
			s.logger.Error("ショートフィード取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(status, gin.H{"error": "フィードの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// createVideoRequest は動画登録のリクエストボディ。
type createVideoRequest struct {
	Title        string `json:"title" binding:"required,max=100"`
	Description  string `json:"description" binding:"max=5000"`
	ThumbnailURL string `json:"thumbnail_url" binding:"omitempty,url"`
	IsShort      bool   `json:"is_short"`
	IsNSFW       bool   `json:"is_nsfw"`
	Visibility   string `json:"visibility" binding:"omitempty,oneof=public unlisted private"`
}

// handleCreateVideo は認証済みユーザーの動画を登録するハンドラ。
// 公開範囲を省略した場合はpublicになる。
func (s *Server) handleCreateVideo() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := middleware.GetIdentity(c)

		var req createVideoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}
		if req.Visibility == "" {
			req.Visibility = visibilityPublic
		}

		video := feeddb.Video{
			ID:           uuid.New().String(),
			UserID:       id.UserID,
			Title:        req.Title,
			Description:  nullString(req.Description),
			ThumbnailUrl: nullString(req.ThumbnailURL),
			IsShort:      boolToInt(req.IsShort),
			IsNsfw:       boolToInt(req.IsNSFW),
			Visibility:   req.Visibility,
			CreatedAt:    s.now(),
		}
		err := s.queries.CreateVideo(c.Request.Context(), feeddb.CreateVideoParams{
			ID:           video.ID,
			UserID:       video.UserID,
			Title:        video.Title,
			Description:  video.Description,
			ThumbnailUrl: video.ThumbnailUrl,
			IsShort:      video.IsShort,
			IsNsfw:       video.IsNsfw,
			Visibility:   video.Visibility,
			CreatedAt:    video.CreatedAt,
		})
		if err != nil {
			s.logger.Error("動画登録エラー", zap.String("user_id", id.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "動画の登録に失敗しました"})
			return
		}

		kind := "video"
		if req.IsShort {
			kind = "short"
		}
		s.created.WithLabelValues(kind).Inc()

		author := profile.Profile{ID: id.UserID, Name: id.Name}
		c.JSON(http.StatusCreated, s.toVideoResponse(video, author))
	}
}

// handleView は動画の再生回数を1増やすハンドラ。
func (s *Server) handleView() gin.HandlerFunc {
	return func(c *gin.Context) {
		videoID := c.Param("id")
		ctx := c.Request.Context()

		n, err := s.queries.IncrementViewCount(ctx, videoID)
		if err != nil {
			s.logger.Error("再生回数更新エラー", zap.String("video_id", videoID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "再生回数の更新に失敗しました"})
			return
		}
		if n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "動画が見つかりません"})
			return
		}

		video, err := s.queries.GetVideo(ctx, videoID)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "動画が見つかりません"})
			return
		}
		if err != nil {
			s.logger.Error("動画取得エラー", zap.String("video_id", videoID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "動画の取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"view_count":      video.ViewCount,
			"view_count_text": format.Views(video.ViewCount),
		})
	}
}
