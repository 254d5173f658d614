package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault は埋め込みプラン定義の内容を検証する。
func TestDefault(t *testing.T) {
	t.Parallel()

	c := Default()

	tests := []struct {
		tier       Tier
		quality    string
		showAds    bool
		reduced    bool
		downloads  int
		analytics  bool
		priceMonth int64
	}{
		{Free, "480p", true, false, 0, false, 0},
		{Lite, "720p", true, true, 10, false, 9900},
		{Premium, "1080p", false, false, 50, false, 19900},
		{VIP, "2160p", false, false, Unlimited, true, 49900},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			t.Parallel()

			p := c.Plan(tt.tier)
			assert.Equal(t, tt.tier, p.Tier)
			assert.Equal(t, tt.quality, p.MaxQuality)
			assert.Equal(t, tt.showAds, p.ShowAds)
			assert.Equal(t, tt.reduced, p.ReducedAdFrequency)
			assert.Equal(t, tt.downloads, p.DownloadsPerMonth)
			assert.Equal(t, tt.analytics, p.Analytics)
			assert.Equal(t, tt.priceMonth, p.PriceMonthly)
		})
	}

	assert.Len(t, c.Plans(), 4)
	assert.Equal(t, Free, c.Plans()[0].Tier)
}

// TestCataloguePlanFallback は未定義のプランがfreeにフォールバックすることを検証する。
func TestCataloguePlanFallback(t *testing.T) {
	t.Parallel()

	p := Default().Plan(Tier("gold"))
	assert.Equal(t, Free, p.Tier)
}

// TestLoad はYAML読み込み時の検証を確認する。
func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("freeプランが無い場合はエラー", func(t *testing.T) {
		t.Parallel()

		_, err := Load([]byte("plans:\n  - tier: vip\n    max_quality: 2160p\n"))
		require.Error(t, err)
	})

	t.Run("不正な画質はエラー", func(t *testing.T) {
		t.Parallel()

		_, err := Load([]byte("plans:\n  - tier: free\n    max_quality: 8k\n"))
		require.Error(t, err)
	})

	t.Run("不明なプランはエラー", func(t *testing.T) {
		t.Parallel()

		_, err := Load([]byte("plans:\n  - tier: gold\n    max_quality: 480p\n"))
		require.Error(t, err)
	})

	t.Run("重複したプランはエラー", func(t *testing.T) {
		t.Parallel()

		_, err := Load([]byte("plans:\n  - tier: free\n    max_quality: 480p\n  - tier: free\n    max_quality: 480p\n"))
		require.Error(t, err)
	})
}

// TestQualityAllowed は画質上限の判定を検証する。
func TestQualityAllowed(t *testing.T) {
	t.Parallel()

	assert.True(t, QualityAllowed("1080p", "720p"))
	assert.True(t, QualityAllowed("1080p", "1080p"))
	assert.False(t, QualityAllowed("1080p", "2160p"))
	assert.False(t, QualityAllowed("1080p", "4k"))
	assert.False(t, QualityAllowed("unknown", "360p"))
	assert.True(t, ValidQuality("1440p"))
	assert.False(t, ValidQuality("999p"))
}

// TestIsPremium は管理者をプレミアム扱いとする判定を検証する。
func TestIsPremium(t *testing.T) {
	t.Parallel()

	assert.True(t, IsPremium(Free, RoleAdmin))
	assert.True(t, IsPremium(Premium, "user"))
	assert.True(t, IsPremium(VIP, "user"))
	assert.False(t, IsPremium(Lite, "user"))
	assert.False(t, IsPremium(Free, "user"))
	assert.True(t, HasAnalytics(VIP))
	assert.False(t, HasAnalytics(Premium))
}

// TestParse はプラン文字列の解析を検証する。
func TestParse(t *testing.T) {
	t.Parallel()

	got, err := Parse("lite")
	require.NoError(t, err)
	assert.Equal(t, Lite, got)
	assert.True(t, got.Paid())
	assert.False(t, Free.Paid())

	_, err = Parse("platinum")
	assert.Error(t, err)
}
