package notification

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nao1215/neptube/pkg/event"
)

// bulkChunkSize は1つのINSERT文にまとめる行数。
// SQLiteのバインド変数上限（32766）を超えないようにする。
const bulkChunkSize = 500

// bulkColumns はバルクINSERTの列数。
const bulkColumns = 8

// bulkSendRequest は一括通知リクエストのJSON構造。
type bulkSendRequest struct {
	UserIDs    []string `json:"user_ids"`
	Type       Type     `json:"type" binding:"required"`
	Title      string   `json:"title" binding:"required"`
	Message    string   `json:"message" binding:"required"`
	Link       string   `json:"link"`
	FromUserID string   `json:"from_user_id"`
}

// notificationTemplate は一括送信で全員に共通する通知内容。
type notificationTemplate struct {
	Type       Type
	Title      string
	Message    string
	Link       string
	FromUserID string
}

// handleBulkSend は複数ユーザーへ同じ通知を一括作成するハンドラ。
// 全行を1つのトランザクションで挿入し、作成件数を返す。
func (s *Server) handleBulkSend() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulkSendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if !validTypes[req.Type] {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不明な通知種別です: %s", req.Type)})
			return
		}

		recipients := uniqueIDs(req.UserIDs)
		if len(recipients) == 0 {
			c.JSON(http.StatusOK, gin.H{"created": 0})
			return
		}

		tmpl := notificationTemplate{
			Type:       req.Type,
			Title:      req.Title,
			Message:    req.Message,
			Link:       req.Link,
			FromUserID: req.FromUserID,
		}
		created, err := s.insertBulk(c.Request.Context(), tmpl, recipients)
		if err != nil {
			s.logger.Error("一括通知作成エラー", zap.Int("recipients", len(recipients)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の一括作成に失敗しました"})
			return
		}
		s.created.WithLabelValues(string(req.Type)).Add(float64(created))

		s.events.Emit(c.Request.Context(), uuid.New().String(), event.AggregateTypeNotification, event.TypeNotificationSent,
			event.NotificationSentData{
				Type:       string(req.Type),
				Title:      req.Title,
				Recipients: created,
			})

		c.JSON(http.StatusCreated, gin.H{"created": created})
	}
}

// insertBulk は受信者ごとに1行の通知を単一トランザクションで挿入する。
func (s *Server) insertBulk(ctx context.Context, tmpl notificationTemplate, recipients []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	createdAt := s.now()
	created := 0
	for start := 0; start < len(recipients); start += bulkChunkSize {
		end := min(start+bulkChunkSize, len(recipients))
		query, args := buildBulkInsert(tmpl, recipients[start:end], createdAt)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("通知の挿入に失敗: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("挿入件数の取得に失敗: %w", err)
		}
		created += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("コミットに失敗: %w", err)
	}
	return created, nil
}

// buildBulkInsert は複数行のVALUES句を持つINSERT文と引数を組み立てる。
func buildBulkInsert(tmpl notificationTemplate, recipients []string, createdAt time.Time) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO notifications (id, user_id, type, title, message, link, from_user_id, created_at) VALUES ")

	args := make([]any, 0, len(recipients)*bulkColumns)
	link := nullString(tmpl.Link)
	from := nullString(tmpl.FromUserID)
	for i, userID := range recipients {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			uuid.New().String(), userID, string(tmpl.Type), tmpl.Title, tmpl.Message,
			link, from, createdAt,
		)
	}
	return b.String(), args
}

// uniqueIDs は空文字と重複を取り除く。順序は最初の出現順を保つ。
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
