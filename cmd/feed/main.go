// フィードサービスのエントリポイント。
// 購読しているチャンネルの動画、ショート、コミュニティ投稿のフィードと、
// 動画と投稿の作成、投票、いいねを提供する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nao1215/neptube/internal/feed"
	"github.com/nao1215/neptube/pkg/config"
	"github.com/nao1215/neptube/pkg/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	cfg := config.Load("feed", "8082")

	logger, err := logging.New(cfg.Service, cfg.LogLevel)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := feed.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("フィードサーバーの初期化に失敗", zap.Error(err))
	}

	logger.Info("フィードサービスを起動します", zap.String("port", cfg.Port))
	if err := server.Run(ctx); err != nil {
		logger.Fatal("フィードサービスの起動に失敗", zap.Error(err))
	}
}
