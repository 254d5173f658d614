// 通知サービスのエントリポイント。
// 購読やライブ配信開始をきっかけにユーザーへの通知を生成・保存する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nao1215/neptube/internal/notification"
	"github.com/nao1215/neptube/pkg/config"
	"github.com/nao1215/neptube/pkg/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	cfg := config.Load("notification", "8086")

	logger, err := logging.New(cfg.Service, cfg.LogLevel)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := notification.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("通知サーバーの初期化に失敗", zap.Error(err))
	}

	logger.Info("通知サービスを起動します", zap.String("port", cfg.Port))
	if err := server.Run(ctx); err != nil {
		logger.Fatal("通知サービスの起動に失敗", zap.Error(err))
	}
}
