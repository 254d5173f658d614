// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// 各サービスが他のサービスの内部APIを呼び出す際に使用する。
// 通知の送信、購読チャンネルの取得、ユーザー情報の参照、
// イベントストアへの記録など、サービス間の通信パターンを統一する。
package httpclient
