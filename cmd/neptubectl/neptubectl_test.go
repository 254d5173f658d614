package main

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/neptube/internal/gateway"
	gatewaydb "github.com/nao1215/neptube/internal/gateway/db"
	"github.com/nao1215/neptube/pkg/config"
	"github.com/nao1215/neptube/pkg/tier"
)

// run はneptubectlを引数付きで実行し、標準出力を返す。
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// newGatewayDB はマイグレーション済みのゲートウェイDBを作り、ユーザーを1人登録する。
func newGatewayDB(t *testing.T) (path, userID string) {
	t.Helper()

	path = filepath.Join(t.TempDir(), "gateway.db")
	_, err := run(t, "migrate", "--service", "gateway", "--db", path)
	require.NoError(t, err)

	db, err := sql.Open("sqlite", config.SQLiteDSN(path))
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	userID = uuid.New().String()
	require.NoError(t, gatewaydb.New(db).CreateUser(t.Context(), gatewaydb.CreateUserParams{
		ID:               userID,
		Provider:         "dev",
		ProviderUserID:   "ram@example.com",
		Email:            "ram@example.com",
		DisplayName:      "Ram",
		Role:             gateway.RoleUser,
		SubscriptionTier: string(tier.Free),
		CreatedAt:        now,
		LastLoginAt:      now,
	}))
	return path, userID
}

func getUser(t *testing.T, path, id string) gatewaydb.User {
	t.Helper()

	db, err := sql.Open("sqlite", config.SQLiteDSN(path))
	require.NoError(t, err)
	defer db.Close()

	u, err := gateway.NewUserStore(db).Get(t.Context(), id)
	require.NoError(t, err)
	return u
}

func TestMigrate(t *testing.T) {
	t.Parallel()

	t.Run("未適用のマイグレーションを適用し2回目は何もしない", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "premium.db")

		out, err := run(t, "migrate", "--service", "premium", "--db", path)
		require.NoError(t, err)
		assert.Contains(t, out, "premium: applied 000001_create_premium")

		out, err = run(t, "migrate", "--service", "premium", "--db", path)
		require.NoError(t, err)
		assert.Contains(t, out, "premium: up to date")
	})

	t.Run("すべてのサービスのマイグレーションを適用できる", func(t *testing.T) {
		t.Parallel()

		for _, name := range serviceNames() {
			_, err := run(t, "migrate", "--service", name, "--db", filepath.Join(t.TempDir(), name+".db"))
			require.NoError(t, err, name)
		}
	})

	t.Run("不明なサービスはエラーを返す", func(t *testing.T) {
		t.Parallel()

		_, err := run(t, "migrate", "--service", "album", "--db", filepath.Join(t.TempDir(), "x.db"))
		require.Error(t, err)
	})

	t.Run("--dbが無い場合はエラーを返す", func(t *testing.T) {
		t.Parallel()

		_, err := run(t, "migrate", "--service", "feed", "--db", "")
		require.Error(t, err)
	})
}

func TestUsers(t *testing.T) {
	t.Parallel()

	t.Run("利用停止と解除", func(t *testing.T) {
		t.Parallel()
		path, id := newGatewayDB(t)

		_, err := run(t, "users", "ban", id, "--db", path)
		require.Error(t, err, "停止理由は必須")

		out, err := run(t, "users", "ban", id, "--reason", "spam", "--db", path)
		require.NoError(t, err)
		assert.Contains(t, out, "banned "+id)

		u := getUser(t, path, id)
		assert.Equal(t, int64(1), u.IsBanned)
		assert.Equal(t, "spam", u.BannedReason.String)

		out, err = run(t, "users", "list", "--banned", "--db", path)
		require.NoError(t, err)
		assert.Contains(t, out, id)
		assert.Contains(t, out, "yes (spam)")
		assert.Contains(t, out, "1 users")

		_, err = run(t, "users", "unban", id, "--db", path)
		require.NoError(t, err)
		assert.Equal(t, int64(0), getUser(t, path, id).IsBanned)

		out, err = run(t, "users", "list", "--banned", "--db", path)
		require.NoError(t, err)
		assert.NotContains(t, out, id)
		assert.Contains(t, out, "0 users")
	})

	t.Run("ロールとプランを変更する", func(t *testing.T) {
		t.Parallel()
		path, id := newGatewayDB(t)

		_, err := run(t, "users", "set-role", id, "admin", "--db", path)
		require.NoError(t, err)
		_, err = run(t, "users", "set-tier", id, "vip", "--db", path)
		require.NoError(t, err)

		u := getUser(t, path, id)
		assert.Equal(t, tier.RoleAdmin, u.Role)
		assert.Equal(t, string(tier.VIP), u.SubscriptionTier)

		_, err = run(t, "users", "set-role", id, "owner", "--db", path)
		require.Error(t, err)
		_, err = run(t, "users", "set-tier", id, "gold", "--db", path)
		require.Error(t, err)
	})

	t.Run("存在しないユーザーはエラーを返す", func(t *testing.T) {
		t.Parallel()
		path, _ := newGatewayDB(t)

		_, err := run(t, "users", "unban", uuid.New().String(), "--db", path)
		require.ErrorIs(t, err, gateway.ErrUserNotFound)
	})

	t.Run("limitが不正な場合はエラーを返す", func(t *testing.T) {
		t.Parallel()
		path, _ := newGatewayDB(t)

		_, err := run(t, "users", "list", "--limit", "0", "--db", path)
		require.Error(t, err)
	})
}
