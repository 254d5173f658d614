package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はサービス起動時に必要な共通設定。
type Config struct {
	// Service はサービス名。ログやヘルスチェックに使用する。
	Service string
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// DatabasePath はSQLiteデータベースファイルのパス。
	DatabasePath string
	// JWTSecret はJWT署名用の秘密鍵。
	JWTSecret string
	// InternalToken はゲートウェイの内部APIを呼び出すサービスが共有する認証トークン。
	InternalToken string
	// LogLevel はログレベル（debug, info, warn, error）。
	LogLevel string
}

// LoadDotEnv は指定されたファイル（省略時は .env）から環境変数を読み込む。
// ファイルが存在しない場合は何もしない。既に設定済みの環境変数は上書きしない。
func LoadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf(".envファイルの読み込みに失敗: %w", err)
	}
	return nil
}

// Load は環境変数からサービスの共通設定を組み立てる。
func Load(service, defaultPort string) Config {
	return Config{
		Service:       service,
		Port:          GetEnvOr("PORT", defaultPort),
		DatabasePath:  GetEnvOr("DATABASE_PATH", fmt.Sprintf("/data/%s.db", service)),
		JWTSecret:     GetEnvOr("JWT_SECRET", "dev-secret-key"),
		InternalToken: GetEnvOr("INTERNAL_TOKEN", "dev-internal-token"),
		LogLevel:      GetEnvOr("LOG_LEVEL", "info"),
	}
}

// DSN はmodernc.org/sqlite用の接続文字列を返す。
func (c Config) DSN() string {
	return SQLiteDSN(c.DatabasePath)
}

// SQLiteDSN はWALモードとビジータイムアウトを有効にした接続文字列を返す。
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
}

// GetEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func GetEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvInt は環境変数を整数として取得する。未設定または不正な値の場合はデフォルト値を返す。
func GetEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
