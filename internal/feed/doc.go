// Package feed は購読フィードサービスの内部実装を提供する。
//
// 購読しているチャンネルの動画、ショート、コミュニティ投稿を新しい順に返す。
// 購読関係は購読サービス、投稿者のプロフィールはゲートウェイに問い合わせる。
// 投票付きの投稿は選択肢ごとの得票率と、閲覧ユーザーの投票先を含めて返す。
package feed
