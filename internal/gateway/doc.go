// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// ユーザー（ロール、プラン、利用停止状態）を管理し、JWTを発行する。
// 外部からアクセス可能な唯一のサービスであり、認証と利用停止の確認を行ってから
// 購読、フィード、通知、プレミアムの各サービスにリクエストを転送する。
// サイドバーの表示内容もここで組み立てる。
package gateway
