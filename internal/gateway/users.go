package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gatewaydb "github.com/nao1215/neptube/internal/gateway/db"
	"github.com/nao1215/neptube/pkg/tier"
)

// RoleUser は一般ユーザーのロール。
const RoleUser = "user"

// ErrUserNotFound はユーザーが存在しないことを表す。
var ErrUserNotFound = errors.New("ユーザーが見つかりません")

// ParseRole はロール文字列を検証する。
func ParseRole(s string) (string, error) {
	switch s {
	case RoleUser, tier.RoleAdmin:
		return s, nil
	default:
		return "", fmt.Errorf("不明なロール: %q", s)
	}
}

// UserStore はユーザーのロール、プラン、利用停止状態を読み書きする。
// ゲートウェイのハンドラとneptubectlの両方から使う。
type UserStore struct {
	queries *gatewaydb.Queries
}

// NewUserStore はusersテーブルを操作するUserStoreを生成する。
func NewUserStore(db gatewaydb.DBTX) *UserStore {
	return &UserStore{queries: gatewaydb.New(db)}
}

// Get はユーザーを取得する。
func (u *UserStore) Get(ctx context.Context, id string) (gatewaydb.User, error) {
	user, err := u.queries.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return gatewaydb.User{}, ErrUserNotFound
	}
	if err != nil {
		return gatewaydb.User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return user, nil
}

// List は新しい順にユーザーを返す。bannedOnlyがtrueなら利用停止中のユーザーだけを返す。
func (u *UserStore) List(ctx context.Context, limit int64, bannedOnly bool) ([]gatewaydb.User, error) {
	var (
		users []gatewaydb.User
		err   error
	)
	if bannedOnly {
		users, err = u.queries.ListBannedUsers(ctx, limit)
	} else {
		users, err = u.queries.ListUsers(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗: %w", err)
	}
	return users, nil
}

// Ban はユーザーを利用停止にする。
func (u *UserStore) Ban(ctx context.Context, id, reason string) error {
	n, err := u.queries.SetBan(ctx, gatewaydb.SetBanParams{
		IsBanned:     1,
		BannedReason: sql.NullString{String: reason, Valid: reason != ""},
		ID:           id,
	})
	return affected(n, err, "利用停止")
}

// Unban はユーザーの利用停止を解除する。
func (u *UserStore) Unban(ctx context.Context, id string) error {
	n, err := u.queries.SetBan(ctx, gatewaydb.SetBanParams{ID: id})
	return affected(n, err, "利用停止の解除")
}

// SetRole はユーザーのロールを変更する。
func (u *UserStore) SetRole(ctx context.Context, id, role string) error {
	role, err := ParseRole(role)
	if err != nil {
		return err
	}
	n, err := u.queries.SetRole(ctx, gatewaydb.SetRoleParams{Role: role, ID: id})
	return affected(n, err, "ロールの変更")
}

// SetTier はユーザーのプランを変更する。プレミアムサービスの契約状態と同期するために使う。
func (u *UserStore) SetTier(ctx context.Context, id string, t tier.Tier) error {
	n, err := u.queries.SetTier(ctx, gatewaydb.SetTierParams{SubscriptionTier: string(t), ID: id})
	return affected(n, err, "プランの変更")
}

func affected(n int64, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%sに失敗: %w", op, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
