package event

import (
	"encoding/json"
	"fmt"
)

// AppendRequest はeventstoreへのイベント追記リクエストのJSON構造。
type AppendRequest struct {
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id" binding:"required"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type" binding:"required"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type" binding:"required"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data" binding:"required"`
}

// NewAppendRequest はイベントデータをシリアライズして追記リクエストを組み立てる。
func NewAppendRequest(aggregateID string, aggregateType AggregateType, eventType Type, data any) (AppendRequest, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return AppendRequest{}, fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
	}
	return AppendRequest{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
	}, nil
}
