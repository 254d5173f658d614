// Package subscription はチャンネル購読サービスの内部実装を提供する。
//
// 購読状態の確認と切り替え、購読者数、購読一覧に加えて、
// 新しい購読者とライブ配信開始を通知サービス経由で知らせる。
// 購読者数はREDIS_URLが設定されていればRedisにキャッシュする。
package subscription
