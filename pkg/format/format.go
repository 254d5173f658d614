// Package format はクライアント表示用の文字列整形を提供する。
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// NPR はパイサ単位の金額を "NPR 1,234" 形式に整形する。
// 端数のパイサがある場合のみ小数2桁を付ける。
func NPR(paisa int64) string {
	sign := ""
	if paisa < 0 {
		sign = "-"
		paisa = -paisa
	}
	rupees := humanize.Comma(paisa / 100)
	if rem := paisa % 100; rem != 0 {
		return fmt.Sprintf("NPR %s%s.%02d", sign, rupees, rem)
	}
	return fmt.Sprintf("NPR %s%s", sign, rupees)
}

// Count は件数を "999", "1.2K", "3.4M" 形式に整形する。
func Count(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// Views は再生回数を "1.2K views" 形式に整形する。
func Views(n int64) string {
	return Count(n) + " views"
}

// Duration は秒数を "1h 5m" または "5m" 形式に整形する。
func Duration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// Ago は now を基準とした相対時間（"3 days ago" など）を返す。
func Ago(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
