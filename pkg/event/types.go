// Package event はサービス間で共有するアクティビティイベントの型を提供する。
//
// 購読、通知、プレミアムプラン、投票などの状態変更はイベントとして
// eventstoreサービスに追記される。イベントは不変であり追記のみで運用する。
package event

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeChannel はチャンネル（購読される側のユーザー）を表す。
	AggregateTypeChannel AggregateType = "Channel"
	// AggregateTypeSubscription はプレミアムサブスクリプションを表す。
	AggregateTypeSubscription AggregateType = "Subscription"
	// AggregateTypeUser はユーザーエンティティを表す。
	AggregateTypeUser AggregateType = "User"
	// AggregateTypeNotification は通知を表す。
	AggregateTypeNotification AggregateType = "Notification"
	// AggregateTypePost はコミュニティ投稿を表す。
	AggregateTypePost AggregateType = "Post"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeChannelSubscribed はチャンネルが購読されたことを表す。
	TypeChannelSubscribed Type = "ChannelSubscribed"
	// TypeChannelUnsubscribed はチャンネルの購読が解除されたことを表す。
	TypeChannelUnsubscribed Type = "ChannelUnsubscribed"
	// TypeLiveNotificationSent はライブ配信開始の通知が購読者に送られたことを表す。
	TypeLiveNotificationSent Type = "LiveNotificationSent"

	// TypeNotificationSent は通知が送信されたことを表す。
	TypeNotificationSent Type = "NotificationSent"

	// TypePremiumSubscriptionStarted はプレミアムプランが開始されたことを表す。
	TypePremiumSubscriptionStarted Type = "PremiumSubscriptionStarted"
	// TypePremiumSubscriptionCancelled はプレミアムプランが解約されたことを表す。
	TypePremiumSubscriptionCancelled Type = "PremiumSubscriptionCancelled"
	// TypePremiumSubscriptionRenewed はプレミアムプランが自動更新されたことを表す。
	TypePremiumSubscriptionRenewed Type = "PremiumSubscriptionRenewed"
	// TypePremiumSubscriptionExpired はプレミアムプランが期限切れになったことを表す。
	TypePremiumSubscriptionExpired Type = "PremiumSubscriptionExpired"
	// TypeAutoRenewToggled は自動更新設定が切り替えられたことを表す。
	TypeAutoRenewToggled Type = "AutoRenewToggled"
	// TypePaymentCompleted は支払いが完了したことを表す。
	TypePaymentCompleted Type = "PaymentCompleted"
	// TypeDownloadRequested はオフラインダウンロードが要求されたことを表す。
	TypeDownloadRequested Type = "DownloadRequested"

	// TypePollVoted は投票が行われたことを表す。
	TypePollVoted Type = "PollVoted"

	// TypeUserBanned はユーザーが利用停止になったことを表す。
	TypeUserBanned Type = "UserBanned"
	// TypeUserUnbanned はユーザーの利用停止が解除されたことを表す。
	TypeUserUnbanned Type = "UserUnbanned"
)

// ChannelSubscriptionData はChannelSubscribed / ChannelUnsubscribedイベントのデータ。
type ChannelSubscriptionData struct {
	// SubscriberID は購読者のユーザーID。
	SubscriberID string `json:"subscriber_id"`
}

// LiveNotificationSentData はLiveNotificationSentイベントのデータ。
type LiveNotificationSentData struct {
	// StreamTitle は配信タイトル。
	StreamTitle string `json:"stream_title"`
	// Notified は通知対象の購読者数。
	Notified int `json:"notified"`
}

// NotificationSentData はNotificationSentイベントのデータ。
type NotificationSentData struct {
	// UserID は通知先のユーザーID。一括送信の場合は空。
	UserID string `json:"user_id,omitempty"`
	// Type は通知の種類。
	Type string `json:"type"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Recipients は通知先の人数。
	Recipients int `json:"recipients"`
}

// PremiumSubscriptionData はプレミアムプラン関連イベントのデータ。
type PremiumSubscriptionData struct {
	// UserID はプランを契約しているユーザーのID。
	UserID string `json:"user_id"`
	// Tier はプランの種類。
	Tier string `json:"tier"`
	// EndDate はプランの有効期限（RFC3339）。
	EndDate string `json:"end_date"`
	// AutoRenew は自動更新設定。
	AutoRenew bool `json:"auto_renew"`
}

// PaymentCompletedData はPaymentCompletedイベントのデータ。
type PaymentCompletedData struct {
	// UserID は支払ったユーザーのID。
	UserID string `json:"user_id"`
	// Tier は購入したプラン。
	Tier string `json:"tier"`
	// Amount は金額（パイサ）。
	Amount int64 `json:"amount"`
	// Gateway は決済手段。
	Gateway string `json:"gateway"`
}

// DownloadRequestedData はDownloadRequestedイベントのデータ。
type DownloadRequestedData struct {
	// UserID はダウンロードを要求したユーザーのID。
	UserID string `json:"user_id"`
	// VideoID は対象動画のID。
	VideoID string `json:"video_id"`
	// Quality は画質。
	Quality string `json:"quality"`
}

// PollVotedData はPollVotedイベントのデータ。
type PollVotedData struct {
	// UserID は投票したユーザーのID。
	UserID string `json:"user_id"`
	// OptionID は選択肢のID。
	OptionID string `json:"option_id"`
}

// UserModerationData はUserBanned / UserUnbannedイベントのデータ。
type UserModerationData struct {
	// ModeratorID は操作を行った管理者のID。
	ModeratorID string `json:"moderator_id,omitempty"`
	// Reason は停止理由。
	Reason string `json:"reason,omitempty"`
}
