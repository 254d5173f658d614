// Package notification は通知サービスの内部実装を提供する。
//
// 購読やライブ配信開始などをきっかけにユーザーへの通知を生成・保存する。
// 通知の一覧取得、未読件数、既読管理に加えて、購読者全員への一括送信（ファンアウト）を
// 単一トランザクションのバルクINSERTで行う。
package notification
