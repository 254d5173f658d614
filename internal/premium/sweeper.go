package premium

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	premiumdb "github.com/nao1215/neptube/internal/premium/db"
	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/tier"
)

const (
	// sweepBatchSize は1回のスイープで処理するサブスクリプションの上限。
	sweepBatchSize = 500
	// sweepTimeout は1回のスイープにかけられる時間。
	sweepTimeout = 30 * time.Second
	// renewalGateway は元の支払いが見つからない場合の更新時の決済手段。
	renewalGateway = "card"
)

// cronLogger はcronのログをzapに出力する。
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}

// sweepResult は1回のスイープで処理した件数。
type sweepResult struct {
	Renewed          int
	Expired          int
	DownloadsExpired int64
}

// startSweeper はスケジュールに従って期限切れスイープを実行する。
// 返り値の関数はスケジューラを止め、実行中のスイープの終了を待つ。
func (s *Server) startSweeper(schedule string) (func(), error) {
	logger := cronLogger{logger: s.logger.Sugar()}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(schedule, s.runSweep); err != nil {
		return nil, fmt.Errorf("スイープのスケジュールが不正です: %q: %w", schedule, err)
	}
	c.Start()
	s.logger.Info("期限切れスイープを開始します", zap.String("schedule", schedule))

	return func() {
		<-c.Stop().Done()
	}, nil
}

// runSweep はスケジューラから呼ばれる1回分のスイープ。
func (s *Server) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	res, err := s.sweep(ctx, s.now())
	if err != nil {
		s.logger.Error("期限切れスイープエラー", zap.Error(err))
		return
	}
	if res.Renewed > 0 || res.Expired > 0 || res.DownloadsExpired > 0 {
		s.logger.Info("期限切れスイープを実行しました",
			zap.Int("renewed", res.Renewed),
			zap.Int("expired", res.Expired),
			zap.Int64("downloads_expired", res.DownloadsExpired),
		)
	}
}

// sweep は期限を過ぎたサブスクリプションを自動更新または期限切れにし、
// 期限を過ぎたダウンロードを期限切れにする。
// 個々のサブスクリプションの失敗はログに記録して次に進む。
func (s *Server) sweep(ctx context.Context, now time.Time) (sweepResult, error) {
	var res sweepResult

	due, err := s.queries.ListDueSubscriptions(ctx, premiumdb.ListDueSubscriptionsParams{
		EndDate: now,
		Limit:   sweepBatchSize,
	})
	if err != nil {
		return res, fmt.Errorf("期限切れサブスクリプションの取得に失敗: %w", err)
	}

	for _, sub := range due {
		if sub.Status == statusActive && sub.AutoRenew == 1 {
			renewed, err := s.renew(ctx, sub, now)
			if err != nil {
				s.logger.Error("自動更新エラー", zap.String("subscription_id", sub.ID), zap.Error(err))
				continue
			}
			res.Renewed++
			s.sweepActions.WithLabelValues("renewed").Inc()
			s.events.Emit(ctx, sub.ID, event.AggregateTypeSubscription, event.TypePremiumSubscriptionRenewed, event.PremiumSubscriptionData{
				UserID:    sub.UserID,
				Tier:      sub.Tier,
				EndDate:   renewed.Format(time.RFC3339),
				AutoRenew: true,
			})
			continue
		}

		if err := s.queries.ExpireSubscription(ctx, premiumdb.ExpireSubscriptionParams{UpdatedAt: now, ID: sub.ID}); err != nil {
			s.logger.Error("期限切れ処理エラー", zap.String("subscription_id", sub.ID), zap.Error(err))
			continue
		}
		res.Expired++
		s.sweepActions.WithLabelValues("expired").Inc()
		s.syncExpiredTier(ctx, sub.UserID, now)
		s.events.Emit(ctx, sub.ID, event.AggregateTypeSubscription, event.TypePremiumSubscriptionExpired, event.PremiumSubscriptionData{
			UserID:  sub.UserID,
			Tier:    sub.Tier,
			EndDate: sub.EndDate.Format(time.RFC3339),
		})
	}

	n, err := s.queries.ExpireDownloads(ctx, now)
	if err != nil {
		return res, fmt.Errorf("ダウンロードの期限切れ処理に失敗: %w", err)
	}
	res.DownloadsExpired = n
	if n > 0 {
		s.sweepActions.WithLabelValues("download_expired").Add(float64(n))
	}
	return res, nil
}

// renew は更新の支払いを記録してサブスクリプションを1期間延長し、新しい期限を返す。
func (s *Server) renew(ctx context.Context, sub premiumdb.PremiumSubscription, now time.Time) (time.Time, error) {
	gateway := renewalGateway
	if sub.PaymentID.Valid {
		prev, err := s.queries.GetPayment(ctx, sub.PaymentID.String)
		switch {
		case err == nil:
			gateway = prev.Gateway
		case !errors.Is(err, sql.ErrNoRows):
			return time.Time{}, fmt.Errorf("前回の支払いの取得に失敗: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	q := s.queries.WithTx(tx)

	paymentID := uuid.New().String()
	if err := q.CreatePayment(ctx, premiumdb.CreatePaymentParams{
		ID:          paymentID,
		UserID:      sub.UserID,
		Tier:        sub.Tier,
		Amount:      s.catalogue.Plan(tier.Tier(sub.Tier)).PriceMonthly,
		Currency:    currencyNPR,
		Gateway:     gateway,
		Status:      paymentCompleted,
		CreatedAt:   now,
		CompletedAt: sql.NullTime{Time: now, Valid: true},
	}); err != nil {
		return time.Time{}, fmt.Errorf("更新の支払いの作成に失敗: %w", err)
	}

	end := extendFrom(sub.EndDate, now)
	if err := q.ExtendSubscription(ctx, premiumdb.ExtendSubscriptionParams{
		EndDate:   end,
		PaymentID: nullString(paymentID),
		UpdatedAt: now,
		ID:        sub.ID,
	}); err != nil {
		return time.Time{}, fmt.Errorf("サブスクリプションの延長に失敗: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("コミットに失敗: %w", err)
	}
	s.payments.WithLabelValues(paymentCompleted).Inc()
	return end, nil
}

// syncExpiredTier は他に有効な契約が無ければユーザーのプランをfreeに戻す。
func (s *Server) syncExpiredTier(ctx context.Context, userID string, now time.Time) {
	_, err := s.queries.GetCurrentSubscription(ctx, premiumdb.GetCurrentSubscriptionParams{UserID: userID, EndDate: now})
	switch {
	case err == nil:
		return
	case !errors.Is(err, sql.ErrNoRows):
		s.logger.Warn("サブスクリプション取得エラー", zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.syncTier(ctx, userID, tier.Free)
}
