package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/nao1215/neptube/pkg/httpclient"
)

// appendPath はeventstoreのイベント追記API。
const appendPath = "/api/v1/events"

// Emitter はeventstoreへイベントを送信する。
// 送信はベストエフォートで、失敗してもログに記録するだけで呼び出し元には返さない。
type Emitter struct {
	client *httpclient.Client
	logger *zap.Logger
}

// NewEmitter は新しいEmitterを生成する。clientがnilの場合は送信を行わない。
func NewEmitter(client *httpclient.Client, logger *zap.Logger) *Emitter {
	return &Emitter{client: client, logger: logger}
}

// Emit はイベントをeventstoreに追記する。
func (e *Emitter) Emit(ctx context.Context, aggregateID string, aggregateType AggregateType, eventType Type, data any) {
	if e == nil || e.client == nil {
		return
	}

	req, err := NewAppendRequest(aggregateID, aggregateType, eventType, data)
	if err != nil {
		e.logger.Warn("イベントデータのシリアライズに失敗", zap.String("event_type", string(eventType)), zap.Error(err))
		return
	}

	if err := e.client.PostJSON(ctx, appendPath, req, nil); err != nil {
		// イベント送信に失敗しても本処理は成功として扱う
		e.logger.Warn("イベントの送信に失敗",
			zap.String("event_type", string(eventType)),
			zap.String("aggregate_id", aggregateID),
			zap.Error(err),
		)
	}
}
