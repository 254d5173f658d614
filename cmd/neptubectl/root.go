package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/nao1215/neptube/pkg/config"
)

// newRootCmd はneptubectlのルートコマンドを生成する。
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "neptubectl",
		Short:        "NepTubeの運用者向けCLI",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("db", config.GetEnvOr("DATABASE_PATH", ""), "SQLiteデータベースファイルのパス")

	root.AddCommand(newUsersCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

// openDB は--dbで指定されたSQLiteデータベースを開く。
func openDB(cmd *cobra.Command) (*sql.DB, error) {
	path, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("--dbでデータベースファイルを指定してください")
	}

	db, err := sql.Open("sqlite", config.SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
