// イベントストアサービスのエントリポイント。
// 各サービスのアクティビティイベントを追記専用で永続化する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nao1215/neptube/internal/eventstore"
	"github.com/nao1215/neptube/pkg/config"
	"github.com/nao1215/neptube/pkg/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	cfg := config.Load("eventstore", "8084")

	logger, err := logging.New(cfg.Service, cfg.LogLevel)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := eventstore.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("イベントストアサーバーの初期化に失敗", zap.Error(err))
	}

	logger.Info("イベントストアサービスを起動します", zap.String("port", cfg.Port))
	if err := server.Run(ctx); err != nil {
		logger.Fatal("イベントストアサービスの起動に失敗", zap.Error(err))
	}
}
