package subscription

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/httpclient"
	"github.com/nao1215/neptube/pkg/middleware"
)

// 通知サービスの内部API。
const (
	notifyPath     = "/internal/v1/notifications"
	notifyBulkPath = "/internal/v1/notifications/bulk"
)

// fallbackName は表示名が無いユーザーを通知文中で呼ぶ名前。
const fallbackName = "Someone"

// notifyRequest は通知サービスへの単一送信リクエスト。
type notifyRequest struct {
	UserID     string `json:"user_id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Link       string `json:"link"`
	FromUserID string `json:"from_user_id"`
}

// bulkNotifyRequest は通知サービスへの一括送信リクエスト。
type bulkNotifyRequest struct {
	UserIDs    []string `json:"user_ids"`
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	Link       string   `json:"link"`
	FromUserID string   `json:"from_user_id"`
}

// asUser は通知サービスへのリクエストに操作したユーザーを伝える。
func asUser(ctx context.Context, id middleware.Identity) context.Context {
	return httpclient.WithUserName(httpclient.WithUserID(ctx, id.UserID), id.Name)
}

// displayName は通知文に使う名前を返す。
func displayName(id middleware.Identity) string {
	if id.Name == "" {
		return fallbackName
	}
	return id.Name
}

// notifyNewSubscriber はチャンネル所有者に新しい購読者を通知する。
// 通知に失敗しても購読は成立しているため、ログに記録するだけにする。
func (s *Server) notifyNewSubscriber(ctx context.Context, channelID string, subscriber middleware.Identity) {
	req := notifyRequest{
		UserID:     channelID,
		Type:       "subscription",
		Title:      "New subscriber",
		Message:    fmt.Sprintf("%s subscribed to your channel", displayName(subscriber)),
		Link:       "/channel/" + subscriber.UserID,
		FromUserID: subscriber.UserID,
	}
	if err := s.clients.notification.PostJSON(asUser(ctx, subscriber), notifyPath, req, nil); err != nil {
		s.logger.Warn("購読通知の送信に失敗", zap.String("channel_id", channelID), zap.Error(err))
	}
}

// liveNotifyRequest はライブ配信開始通知のリクエスト。
type liveNotifyRequest struct {
	StreamTitle string `json:"stream_title" binding:"required,min=1,max=200"`
}

// handleNotifyLive は自分のチャンネルの購読者全員にライブ配信開始を通知するハンドラ。
// 通知は一括INSERT1回で送り、失敗しても購読者数を返す。
func (s *Server) handleNotifyLive() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := middleware.GetIdentity(c)

		var req liveNotifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		ctx := c.Request.Context()

		subscribers, err := s.queries.ListSubscriberIDsByChannel(ctx, id.UserID)
		if err != nil {
			s.logger.Error("購読者取得エラー", zap.String("channel_id", id.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読者の取得に失敗しました"})
			return
		}
		if len(subscribers) == 0 {
			c.JSON(http.StatusOK, gin.H{"notified": 0})
			return
		}

		bulk := bulkNotifyRequest{
			UserIDs:    subscribers,
			Type:       "new_video",
			Title:      "🔴 Live Now!",
			Message:    fmt.Sprintf("%s is now live: %s", displayName(id), req.StreamTitle),
			Link:       "/feed/live",
			FromUserID: id.UserID,
		}
		if err := s.clients.notification.PostJSON(asUser(ctx, id), notifyBulkPath, bulk, nil); err != nil {
			s.logger.Warn("ライブ通知の送信に失敗",
				zap.String("channel_id", id.UserID),
				zap.Int("subscribers", len(subscribers)),
				zap.Error(err),
			)
		}
		s.liveNotified.Add(float64(len(subscribers)))
		s.events.Emit(ctx, id.UserID, event.AggregateTypeChannel, event.TypeLiveNotificationSent, event.LiveNotificationSentData{
			StreamTitle: req.StreamTitle,
			Notified:    len(subscribers),
		})

		c.JSON(http.StatusOK, gin.H{"notified": len(subscribers)})
	}
}
