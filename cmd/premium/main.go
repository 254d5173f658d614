// プレミアムサービスのエントリポイント。
// プランの契約と支払い、オフラインダウンロード、クリエイターアナリティクスを提供し、
// 期限を過ぎた契約を定期的に更新または終了する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nao1215/neptube/internal/premium"
	"github.com/nao1215/neptube/pkg/config"
	"github.com/nao1215/neptube/pkg/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	cfg := config.Load("premium", "8087")

	logger, err := logging.New(cfg.Service, cfg.LogLevel)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := premium.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("プレミアムサーバーの初期化に失敗", zap.Error(err))
	}

	logger.Info("プレミアムサービスを起動します", zap.String("port", cfg.Port))
	if err := server.Run(ctx); err != nil {
		logger.Fatal("プレミアムサービスの起動に失敗", zap.Error(err))
	}
}
