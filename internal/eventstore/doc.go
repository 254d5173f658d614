// Package eventstore はイベントストアサービスの内部実装を提供する。
//
// 購読、通知、プレミアムプラン、投票、モデレーションなど各サービスの状態変更を
// アクティビティイベントとして永続化する。イベントは不変（immutable）であり、
// 追記のみ（append-only）で運用される。
//
// 主な機能:
//   - イベントの追記（Append）
//   - AggregateIDによるイベント取得（履歴の再構築用）
//   - イベントタイプによるイベント取得（集計用）
//   - 日時指定によるイベント取得（増分取り込み用）
package eventstore
