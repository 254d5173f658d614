// Package premium はプレミアムプランサービスの内部実装を提供する。
//
// プランの契約状態、支払い履歴、オフラインダウンロード、VIP向けのクリエイターアナリティクスを扱う。
// 契約期限を過ぎたプランは定期スイープで自動更新または期限切れにし、
// ユーザーのプランはゲートウェイに同期する。金額はすべてパイサ単位で保存する。
package premium
