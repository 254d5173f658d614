package premium

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"go.uber.org/zap"

	"github.com/nao1215/neptube/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// initSchema はマイグレーションを適用してスキーマを最新にする。
func initSchema(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	applied, err := migration.Run(ctx, db, migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	for _, m := range applied {
		logger.Info("マイグレーションを適用しました", zap.Int("version", m.Version), zap.String("name", m.Name))
	}
	return nil
}

// MigrationsFS はプレミアムサービスのマイグレーションファイルを返す。
func MigrationsFS() embed.FS {
	return migrationsFS
}
