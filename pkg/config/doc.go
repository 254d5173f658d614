// Package config は各サービス共通の設定読み込みを提供する。
//
// 環境変数を基本とし、作業ディレクトリに .env ファイルがあれば
// 事前に読み込む。サービス固有のURL等は GetEnvOr で取得する。
package config
