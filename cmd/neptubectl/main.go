// neptubectl はNepTubeの運用者向けCLI。
// ゲートウェイのデータベースに対するユーザー管理と、各サービスのマイグレーション適用を行う。
package main

import (
	"fmt"
	"os"

	"github.com/nao1215/neptube/pkg/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
