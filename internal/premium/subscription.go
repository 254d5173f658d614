package premium

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	premiumdb "github.com/nao1215/neptube/internal/premium/db"
	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/format"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/tier"
)

// サブスクリプションの状態。
const (
	statusActive    = "active"
	statusCancelled = "cancelled"
	statusExpired   = "expired"
)

// 支払いの状態。
const (
	paymentPending   = "pending"
	paymentCompleted = "completed"
	paymentFailed    = "failed"
)

// currencyNPR は支払い通貨。
const currencyNPR = "NPR"

// 支払い履歴の件数。
const (
	defaultPaymentLimit = 20
	maxPaymentLimit     = 100
)

// cursorSentinel は支払い履歴の先頭ページの起点。
var cursorSentinel = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// errPaymentProcessed は処理済みの支払いを再度確定しようとしたことを表す。
var errPaymentProcessed = errors.New("支払いは既に処理済みです")

// expired はサブスクリプションが期限切れかどうかを返す。
func expired(sub premiumdb.PremiumSubscription, now time.Time) bool {
	return sub.Status == statusExpired || !sub.EndDate.After(now)
}

// effectivePlan は機能制限の判定に使うプランを返す。
// 契約が無いか期限切れの場合はfreeプランになる。
func (s *Server) effectivePlan(sub *premiumdb.PremiumSubscription, now time.Time) tier.Plan {
	if sub == nil || expired(*sub, now) {
		return s.catalogue.Plan(tier.Free)
	}
	return s.catalogue.Plan(tier.Tier(sub.Tier))
}

// latestSubscription はユーザーの最新のサブスクリプションを返す。契約が無い場合はnil。
func (s *Server) latestSubscription(ctx context.Context, userID string) (*premiumdb.PremiumSubscription, error) {
	sub, err := s.queries.GetLatestSubscription(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// monthStart はnowが属する月の初日（UTC）を返す。
func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// subscriptionResponse はサブスクリプションのレスポンス。
type subscriptionResponse struct {
	ID        string `json:"id"`
	Tier      string `json:"tier"`
	Status    string `json:"status"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	AutoRenew bool   `json:"auto_renew"`
	CreatedAt string `json:"created_at"`
}

func toSubscriptionResponse(sub premiumdb.PremiumSubscription) subscriptionResponse {
	return subscriptionResponse{
		ID:        sub.ID,
		Tier:      sub.Tier,
		Status:    sub.Status,
		StartDate: sub.StartDate.Format(time.RFC3339),
		EndDate:   sub.EndDate.Format(time.RFC3339),
		AutoRenew: sub.AutoRenew == 1,
		CreatedAt: sub.CreatedAt.Format(time.RFC3339),
	}
}

// meResponse は契約状態のレスポンス。
type meResponse struct {
	Tier               string                `json:"tier"`
	Subscription       *subscriptionResponse `json:"subscription"`
	IsExpired          bool                  `json:"is_expired"`
	TierConfig         tierConfig            `json:"tier_config"`
	AdConfig           adConfig              `json:"ad_config"`
	DownloadQuota      downloadQuota         `json:"download_quota"`
	DownloadsThisMonth int64                 `json:"downloads_this_month"`
}

type tierConfig struct {
	Name         string `json:"name"`
	MaxQuality   string `json:"max_quality"`
	PriceMonthly int64  `json:"price_monthly"`
	PriceDisplay string `json:"price_display"`
}

type adConfig struct {
	ShowAds          bool `json:"show_ads"`
	ReducedFrequency bool `json:"reduced_frequency"`
}

type downloadQuota struct {
	// MaxPerMonth は-1で無制限、0でダウンロード不可。
	MaxPerMonth int `json:"max_per_month"`
}

// handleMe は認証済みユーザーの契約状態と利用できる機能を返すハンドラ。
func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		ctx := c.Request.Context()
		now := s.now()

		sub, err := s.latestSubscription(ctx, userID)
		if err != nil {
			s.logger.Error("サブスクリプション取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "サブスクリプションの取得に失敗しました"})
			return
		}

		count, err := s.queries.CountDownloadsSince(ctx, premiumdb.CountDownloadsSinceParams{
			UserID:    userID,
			CreatedAt: monthStart(now),
		})
		if err != nil {
			s.logger.Error("ダウンロード数取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ダウンロード数の取得に失敗しました"})
			return
		}

		plan := s.effectivePlan(sub, now)
		resp := meResponse{
			Tier: string(tier.Free),
			TierConfig: tierConfig{
				Name:         plan.Name,
				MaxQuality:   plan.MaxQuality,
				PriceMonthly: plan.PriceMonthly,
				PriceDisplay: format.NPR(plan.PriceMonthly),
			},
			AdConfig: adConfig{
				ShowAds:          plan.ShowAds,
				ReducedFrequency: plan.ReducedAdFrequency,
			},
			DownloadQuota:      downloadQuota{MaxPerMonth: plan.DownloadsPerMonth},
			DownloadsThisMonth: count,
		}
		if sub != nil {
			r := toSubscriptionResponse(*sub)
			resp.Tier = sub.Tier
			resp.Subscription = &r
			resp.IsExpired = expired(*sub, now)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// paymentResponse は支払いのレスポンス。
type paymentResponse struct {
	ID            string  `json:"id"`
	Tier          string  `json:"tier"`
	Amount        int64   `json:"amount"`
	AmountDisplay string  `json:"amount_display"`
	Currency      string  `json:"currency"`
	Gateway       string  `json:"gateway"`
	Status        string  `json:"status"`
	TransactionID *string `json:"transaction_id"`
	CreatedAt     string  `json:"created_at"`
	CompletedAt   *string `json:"completed_at"`
}

func toPaymentResponse(p premiumdb.Payment) paymentResponse {
	r := paymentResponse{
		ID:            p.ID,
		Tier:          p.Tier,
		Amount:        p.Amount,
		AmountDisplay: format.NPR(p.Amount),
		Currency:      p.Currency,
		Gateway:       p.Gateway,
		Status:        p.Status,
		TransactionID: nullableString(p.TransactionID),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
	if p.CompletedAt.Valid {
		completed := p.CompletedAt.Time.Format(time.RFC3339)
		r.CompletedAt = &completed
	}
	return r
}

// subscribeRequest はプラン契約リクエスト。
type subscribeRequest struct {
	Tier    string `json:"tier" binding:"required"`
	Gateway string `json:"gateway" binding:"required,oneof=esewa khalti card"`
}

// handleSubscribe は有料プランの支払いを保留状態で作成するハンドラ。
// 契約は決済事業者からの確定通知で開始する。
func (s *Server) handleSubscribe() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
			return
		}
		t, err := tier.Parse(req.Tier)
		if err != nil || !t.Paid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "契約できるのは有料プランのみです"})
			return
		}
		ctx := c.Request.Context()
		now := s.now()

		current, err := s.queries.GetActiveSubscription(ctx, premiumdb.GetActiveSubscriptionParams{UserID: userID, EndDate: now})
		switch {
		case err == nil && current.Tier == string(t):
			c.JSON(http.StatusConflict, gin.H{"error": "既に同じプランを契約しています"})
			return
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			s.logger.Error("サブスクリプション取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "サブスクリプションの取得に失敗しました"})
			return
		}

		payment := premiumdb.CreatePaymentParams{
			ID:        uuid.New().String(),
			UserID:    userID,
			Tier:      string(t),
			Amount:    s.catalogue.Plan(t).PriceMonthly,
			Currency:  currencyNPR,
			Gateway:   req.Gateway,
			Status:    paymentPending,
			CreatedAt: now,
		}
		if err := s.queries.CreatePayment(ctx, payment); err != nil {
			s.logger.Error("支払い作成エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "支払いの作成に失敗しました"})
			return
		}

		c.JSON(http.StatusCreated, toPaymentResponse(premiumdb.Payment{
			ID:        payment.ID,
			UserID:    payment.UserID,
			Tier:      payment.Tier,
			Amount:    payment.Amount,
			Currency:  payment.Currency,
			Gateway:   payment.Gateway,
			Status:    payment.Status,
			CreatedAt: payment.CreatedAt,
		}))
	}
}

// confirmRequest は決済事業者からの確定通知。
type confirmRequest struct {
	TransactionID string `json:"transaction_id"`
	Success       *bool  `json:"success" binding:"required"`
}

// handleConfirmPayment は支払いを確定し、成功時にサブスクリプションを開始または延長する内部API。
func (s *Server) handleConfirmPayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		paymentID := c.Param("id")

		var req confirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
			return
		}
		ctx := c.Request.Context()

		payment, err := s.queries.GetPayment(ctx, paymentID)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "支払いが見つかりません"})
			return
		}
		if err != nil {
			s.logger.Error("支払い取得エラー", zap.String("payment_id", paymentID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "支払いの取得に失敗しました"})
			return
		}
		if payment.Status != paymentPending {
			c.JSON(http.StatusConflict, gin.H{"error": errPaymentProcessed.Error()})
			return
		}

		if !*req.Success {
			n, err := s.queries.FinishPayment(ctx, premiumdb.FinishPaymentParams{
				Status:        paymentFailed,
				TransactionID: nullString(req.TransactionID),
				ID:            paymentID,
			})
			if err != nil {
				s.logger.Error("支払い更新エラー", zap.String("payment_id", paymentID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "支払いの更新に失敗しました"})
				return
			}
			if n == 0 {
				c.JSON(http.StatusConflict, gin.H{"error": errPaymentProcessed.Error()})
				return
			}
			s.payments.WithLabelValues(paymentFailed).Inc()
			c.JSON(http.StatusOK, gin.H{"status": paymentFailed})
			return
		}

		sub, err := s.completePayment(ctx, payment, req.TransactionID)
		if errors.Is(err, errPaymentProcessed) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			s.logger.Error("支払い確定エラー", zap.String("payment_id", paymentID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "支払いの確定に失敗しました"})
			return
		}

		s.payments.WithLabelValues(paymentCompleted).Inc()
		s.syncTier(ctx, payment.UserID, tier.Tier(sub.Tier))
		s.events.Emit(ctx, payment.ID, event.AggregateTypeSubscription, event.TypePaymentCompleted, event.PaymentCompletedData{
			UserID:  payment.UserID,
			Tier:    payment.Tier,
			Amount:  payment.Amount,
			Gateway: payment.Gateway,
		})
		s.events.Emit(ctx, sub.ID, event.AggregateTypeSubscription, event.TypePremiumSubscriptionStarted, event.PremiumSubscriptionData{
			UserID:    sub.UserID,
			Tier:      sub.Tier,
			EndDate:   sub.EndDate.Format(time.RFC3339),
			AutoRenew: sub.AutoRenew == 1,
		})

		c.JSON(http.StatusOK, gin.H{
			"status":       paymentCompleted,
			"subscription": toSubscriptionResponse(sub),
		})
	}
}

// completePayment は支払いを完了にし、同じプランの有効な契約があれば延長、無ければ新しく契約する。
// 解約済みの契約を延長した場合は自動更新も再開する。別プランの有効な契約は期限切れにして置き換える。
func (s *Server) completePayment(ctx context.Context, payment premiumdb.Payment, transactionID string) (premiumdb.PremiumSubscription, error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return premiumdb.PremiumSubscription{}, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	q := s.queries.WithTx(tx)

	n, err := q.FinishPayment(ctx, premiumdb.FinishPaymentParams{
		Status:        paymentCompleted,
		TransactionID: nullString(transactionID),
		CompletedAt:   sql.NullTime{Time: now, Valid: true},
		ID:            payment.ID,
	})
	if err != nil {
		return premiumdb.PremiumSubscription{}, fmt.Errorf("支払いの更新に失敗: %w", err)
	}
	if n == 0 {
		return premiumdb.PremiumSubscription{}, errPaymentProcessed
	}

	current, err := q.GetCurrentSubscription(ctx, premiumdb.GetCurrentSubscriptionParams{UserID: payment.UserID, EndDate: now})
	switch {
	case err == nil && current.Tier == payment.Tier:
		current.EndDate = extendFrom(current.EndDate, now)
		current.Status = statusActive
		current.AutoRenew = 1
		current.PaymentID = nullString(payment.ID)
		current.UpdatedAt = now
		if err := q.ExtendSubscription(ctx, premiumdb.ExtendSubscriptionParams{
			EndDate:   current.EndDate,
			PaymentID: current.PaymentID,
			UpdatedAt: now,
			ID:        current.ID,
		}); err != nil {
			return premiumdb.PremiumSubscription{}, fmt.Errorf("サブスクリプションの延長に失敗: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return premiumdb.PremiumSubscription{}, fmt.Errorf("コミットに失敗: %w", err)
		}
		return current, nil
	case err == nil:
		if err := q.ExpireSubscription(ctx, premiumdb.ExpireSubscriptionParams{UpdatedAt: now, ID: current.ID}); err != nil {
			return premiumdb.PremiumSubscription{}, fmt.Errorf("旧サブスクリプションの終了に失敗: %w", err)
		}
	case !errors.Is(err, sql.ErrNoRows):
		return premiumdb.PremiumSubscription{}, fmt.Errorf("サブスクリプションの取得に失敗: %w", err)
	}

	sub := premiumdb.PremiumSubscription{
		ID:        uuid.New().String(),
		UserID:    payment.UserID,
		Tier:      payment.Tier,
		Status:    statusActive,
		StartDate: now,
		EndDate:   now.Add(subscriptionPeriod),
		AutoRenew: 1,
		PaymentID: nullString(payment.ID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := q.CreatePremiumSubscription(ctx, premiumdb.CreatePremiumSubscriptionParams(sub)); err != nil {
		return premiumdb.PremiumSubscription{}, fmt.Errorf("サブスクリプションの作成に失敗: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return premiumdb.PremiumSubscription{}, fmt.Errorf("コミットに失敗: %w", err)
	}
	return sub, nil
}

// extendFrom は契約期限を1期間延長した日時を返す。期限を過ぎていればnowから数える。
func extendFrom(end, now time.Time) time.Time {
	if end.Before(now) {
		end = now
	}
	return end.Add(subscriptionPeriod)
}

// activeSubscription はユーザーの有効な契約を返す。見つからない場合は404を返してfalseになる。
func (s *Server) activeSubscription(c *gin.Context, userID string) (premiumdb.PremiumSubscription, bool) {
	sub, err := s.queries.GetActiveSubscription(c.Request.Context(), premiumdb.GetActiveSubscriptionParams{
		UserID:  userID,
		EndDate: s.now(),
	})
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "有効なサブスクリプションがありません"})
		return sub, false
	}
	if err != nil {
		s.logger.Error("サブスクリプション取得エラー", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "サブスクリプションの取得に失敗しました"})
		return sub, false
	}
	return sub, true
}

// handleCancel は有効な契約を解約するハンドラ。期限までは引き続き利用できる。
func (s *Server) handleCancel() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		sub, ok := s.activeSubscription(c, userID)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		if err := s.queries.CancelSubscription(ctx, premiumdb.CancelSubscriptionParams{UpdatedAt: s.now(), ID: sub.ID}); err != nil {
			s.logger.Error("解約エラー", zap.String("subscription_id", sub.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "解約に失敗しました"})
			return
		}

		s.events.Emit(ctx, sub.ID, event.AggregateTypeSubscription, event.TypePremiumSubscriptionCancelled, event.PremiumSubscriptionData{
			UserID:  userID,
			Tier:    sub.Tier,
			EndDate: sub.EndDate.Format(time.RFC3339),
		})
		c.JSON(http.StatusOK, gin.H{"active_until": sub.EndDate.Format(time.RFC3339)})
	}
}

// handleToggleAutoRenew は有効な契約の自動更新設定を切り替えるハンドラ。
func (s *Server) handleToggleAutoRenew() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		sub, ok := s.activeSubscription(c, userID)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		var autoRenew int64
		if sub.AutoRenew == 0 {
			autoRenew = 1
		}
		if err := s.queries.SetAutoRenew(ctx, premiumdb.SetAutoRenewParams{
			AutoRenew: autoRenew,
			UpdatedAt: s.now(),
			ID:        sub.ID,
		}); err != nil {
			s.logger.Error("自動更新設定エラー", zap.String("subscription_id", sub.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "自動更新設定の変更に失敗しました"})
			return
		}

		s.events.Emit(ctx, sub.ID, event.AggregateTypeSubscription, event.TypeAutoRenewToggled, event.PremiumSubscriptionData{
			UserID:    userID,
			Tier:      sub.Tier,
			EndDate:   sub.EndDate.Format(time.RFC3339),
			AutoRenew: autoRenew == 1,
		})
		c.JSON(http.StatusOK, gin.H{"auto_renew": autoRenew == 1})
	}
}

// encodeCursor は支払い履歴の続きを指すカーソルを生成する。
func encodeCursor(createdAt time.Time, id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(createdAt.UTC().Format(time.RFC3339Nano) + "|" + id))
}

// decodeCursor はカーソルを作成日時とIDに分解する。
func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("カーソルの形式が不正です: %w", err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return time.Time{}, "", errors.New("カーソルの形式が不正です")
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("カーソルの日時が不正です: %w", err)
	}
	return t.UTC(), id, nil
}

// handlePaymentHistory は支払い履歴を新しい順にカーソルページングで返すハンドラ。
func (s *Server) handlePaymentHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		limit, err := parseLimit(c, defaultPaymentLimit, maxPaymentLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		after, afterID := cursorSentinel, ""
		if cursor := c.Query("cursor"); cursor != "" {
			if after, afterID, err = decodeCursor(cursor); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		// 次ページの有無を判定するため1件多く取得する
		payments, err := s.queries.ListPaymentsByUser(c.Request.Context(), premiumdb.ListPaymentsByUserParams{
			UserID:    userID,
			CreatedAt: after,
			ID:        afterID,
			Limit:     limit + 1,
		})
		if err != nil {
			s.logger.Error("支払い履歴取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "支払い履歴の取得に失敗しました"})
			return
		}

		var next *string
		if int64(len(payments)) > limit {
			payments = payments[:limit]
			last := payments[len(payments)-1]
			cursor := encodeCursor(last.CreatedAt, last.ID)
			next = &cursor
		}

		items := make([]paymentResponse, 0, len(payments))
		for _, p := range payments {
			items = append(items, toPaymentResponse(p))
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "next_cursor": next})
	}
}
