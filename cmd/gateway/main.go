// API Gatewayサービスのエントリポイント。
// JWT発行、利用停止中ユーザーの遮断、レート制限、内部サービスへのルーティングを担当する。
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線となる。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nao1215/neptube/internal/gateway"
	"github.com/nao1215/neptube/pkg/config"
	"github.com/nao1215/neptube/pkg/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	cfg := config.Load("gateway", "8080")

	logger, err := logging.New(cfg.Service, cfg.LogLevel)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := gateway.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Gatewayサーバーの初期化に失敗", zap.Error(err))
	}

	logger.Info("Gatewayサービスを起動します", zap.String("port", cfg.Port))
	if err := server.Run(ctx); err != nil {
		logger.Fatal("Gatewayサービスの起動に失敗", zap.Error(err))
	}
}
