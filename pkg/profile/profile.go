// Package profile はゲートウェイが管理するユーザープロフィールの参照を提供する。
//
// チャンネル名やアバター画像はゲートウェイのusersテーブルにあるため、
// 購読サービスやフィードサービスは内部APIでまとめて問い合わせる。
package profile

import (
	"context"
	"fmt"

	"github.com/nao1215/neptube/pkg/httpclient"
	"github.com/nao1215/neptube/pkg/middleware"
)

// LookupPath はゲートウェイのユーザー一括参照API。
const LookupPath = "/internal/v1/users/lookup"

// NewGatewayClient はゲートウェイの内部APIを呼び出すクライアントを生成する。
// 内部APIは共有トークンが無いと401を返すため、すべてのリクエストにtokenを付ける。
func NewGatewayClient(gatewayURL, token string) *httpclient.Client {
	return httpclient.New(gatewayURL, httpclient.WithHeader(middleware.InternalTokenHeader, token))
}

// Profile はチャンネルや投稿者として表示するユーザー情報。
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// LookupRequest はユーザー一括参照のリクエスト。
type LookupRequest struct {
	IDs []string `json:"ids"`
}

// LookupResponse はユーザー一括参照のレスポンス。存在しないIDは含まれない。
type LookupResponse struct {
	Users []Profile `json:"users"`
}

// Lookup はユーザーIDからプロフィールを一括取得し、IDをキーにしたマップで返す。
// idsが空の場合はリクエストを送らない。
func Lookup(ctx context.Context, gateway *httpclient.Client, ids []string) (map[string]Profile, error) {
	profiles := make(map[string]Profile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	var resp LookupResponse
	if err := gateway.PostJSON(ctx, LookupPath, LookupRequest{IDs: ids}, &resp); err != nil {
		return nil, fmt.Errorf("ユーザー情報の取得に失敗: %w", err)
	}
	for _, p := range resp.Users {
		profiles[p.ID] = p
	}
	return profiles, nil
}

// Resolve はマップからプロフィールを取り出す。見つからない場合はIDだけを持つ空のプロフィールを返す。
func Resolve(profiles map[string]Profile, id string) Profile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return Profile{ID: id}
}
