// Package tier はサブスクリプションプラン（free / lite / premium / vip）の定義を提供する。
//
// プランごとに広告表示、月間ダウンロード上限、最大画質、アナリティクス利用可否が決まる。
// 定義は埋め込みYAMLから読み込む。
package tier

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Tier はプランの種類を表す。
type Tier string

const (
	// Free は無料プラン。
	Free Tier = "free"
	// Lite は広告頻度が下がる廉価プラン。
	Lite Tier = "lite"
	// Premium は広告なしのプラン。
	Premium Tier = "premium"
	// VIP はダウンロード無制限でアナリティクスが使えるプラン。
	VIP Tier = "vip"
)

// RoleAdmin は管理者ロール。管理者はプレミアム扱いとなる。
const RoleAdmin = "admin"

// Unlimited はダウンロード上限なしを表す。
const Unlimited = -1

//go:embed tiers.yaml
var defaultYAML []byte

// Parse は文字列をTierに変換する。未知の値はエラーとする。
func Parse(s string) (Tier, error) {
	t := Tier(s)
	switch t {
	case Free, Lite, Premium, VIP:
		return t, nil
	default:
		return "", fmt.Errorf("不明なプラン: %q", s)
	}
}

// Paid は有料プランかどうかを返す。
func (t Tier) Paid() bool {
	return t == Lite || t == Premium || t == VIP
}

// Plan は1つのプランの機能と価格。
type Plan struct {
	Tier               Tier   `yaml:"tier" json:"tier"`
	Name               string `yaml:"name" json:"name"`
	PriceMonthly       int64  `yaml:"price_monthly" json:"price_monthly"`
	MaxQuality         string `yaml:"max_quality" json:"max_quality"`
	ShowAds            bool   `yaml:"show_ads" json:"show_ads"`
	ReducedAdFrequency bool   `yaml:"reduced_ad_frequency" json:"reduced_ad_frequency"`
	DownloadsPerMonth  int    `yaml:"downloads_per_month" json:"downloads_per_month"`
	Analytics          bool   `yaml:"analytics" json:"analytics"`
}

// DownloadsUnlimited はダウンロード無制限かどうかを返す。
func (p Plan) DownloadsUnlimited() bool {
	return p.DownloadsPerMonth == Unlimited
}

// CanDownload はオフラインダウンロードが使えるかどうかを返す。
func (p Plan) CanDownload() bool {
	return p.DownloadsPerMonth != 0
}

// Catalogue はプラン定義の一覧。
type Catalogue struct {
	plans map[Tier]Plan
	order []Tier
}

// catalogueFile はYAMLファイルの構造。
type catalogueFile struct {
	Plans []Plan `yaml:"plans"`
}

// Load はYAMLからプラン定義を読み込む。freeプランは必須。
func Load(data []byte) (*Catalogue, error) {
	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("プラン定義の解析に失敗: %w", err)
	}

	c := &Catalogue{plans: make(map[Tier]Plan, len(f.Plans))}
	for _, p := range f.Plans {
		if _, err := Parse(string(p.Tier)); err != nil {
			return nil, err
		}
		if _, ok := qualityRank[p.MaxQuality]; !ok {
			return nil, fmt.Errorf("プラン %s の画質が不正です: %q", p.Tier, p.MaxQuality)
		}
		if _, dup := c.plans[p.Tier]; dup {
			return nil, fmt.Errorf("プラン %s が重複しています", p.Tier)
		}
		c.plans[p.Tier] = p
		c.order = append(c.order, p.Tier)
	}
	if _, ok := c.plans[Free]; !ok {
		return nil, fmt.Errorf("freeプランが定義されていません")
	}
	return c, nil
}

// Default は埋め込みのプラン定義を返す。
func Default() *Catalogue {
	c, err := Load(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("埋め込みプラン定義が不正です: %v", err))
	}
	return c
}

// Plan は指定されたプランの定義を返す。未定義の場合はfreeプランを返す。
func (c *Catalogue) Plan(t Tier) Plan {
	if p, ok := c.plans[t]; ok {
		return p
	}
	return c.plans[Free]
}

// Plans は定義順にすべてのプランを返す。
func (c *Catalogue) Plans() []Plan {
	plans := make([]Plan, 0, len(c.order))
	for _, t := range c.order {
		plans = append(plans, c.plans[t])
	}
	return plans
}

// qualities は画質の低い順の並び。
var qualities = []string{"360p", "480p", "720p", "1080p", "1440p", "2160p"}

// qualityRank は画質ごとの順位。
var qualityRank = func() map[string]int {
	m := make(map[string]int, len(qualities))
	for i, q := range qualities {
		m[q] = i
	}
	return m
}()

// ValidQuality は既知の画質かどうかを返す。
func ValidQuality(q string) bool {
	return slices.Contains(qualities, q)
}

// QualityAllowed は要求された画質が上限以下かどうかを返す。
func QualityAllowed(maxQuality, requested string) bool {
	maxRank, ok := qualityRank[maxQuality]
	if !ok {
		return false
	}
	reqRank, ok := qualityRank[requested]
	if !ok {
		return false
	}
	return reqRank <= maxRank
}

// IsPremium はプレミアム機能を表示すべきユーザーかどうかを返す。
// 管理者はプランに関係なくプレミアム扱いとする。
func IsPremium(t Tier, role string) bool {
	return role == RoleAdmin || t == Premium || t == VIP
}

// HasAnalytics はアナリティクスダッシュボードを利用できるかどうかを返す。
func HasAnalytics(t Tier) bool {
	return t == VIP
}
