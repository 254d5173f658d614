package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	gatewaydb "github.com/nao1215/neptube/internal/gateway/db"
	"github.com/nao1215/neptube/pkg/tier"
)

// sidebarItem はサイドバーのリンク1件。
type sidebarItem struct {
	Label string `json:"label"`
	Href  string `json:"href"`
	Icon  string `json:"icon"`
}

// sidebarSection はサイドバーのリンクのまとまり。
type sidebarSection struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Items []sidebarItem `json:"items"`
}

// sidebarCard は管理画面やプレミアムプランへの誘導カード。
type sidebarCard struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Href        string `json:"href"`
	CTA         string `json:"cta,omitempty"`
}

// sidebarResponse はサイドバーの表示内容。
type sidebarResponse struct {
	IsAdmin     bool             `json:"is_admin"`
	IsPremium   bool             `json:"is_premium"`
	Sections    []sidebarSection `json:"sections"`
	AdminLink   *sidebarCard     `json:"admin_link"`
	PremiumCard sidebarCard      `json:"premium_card"`
}

// buildSidebar はユーザーのロールとプランからサイドバーを組み立てる。
// 管理者はプランに関係なくプレミアム扱いになる。
func buildSidebar(u gatewaydb.User) sidebarResponse {
	t := tier.Tier(u.SubscriptionTier)
	isAdmin := u.Role == tier.RoleAdmin
	isPremium := tier.IsPremium(t, u.Role)

	personal := []sidebarItem{
		{Label: "History", Href: "/playlists/history", Icon: "history"},
		{Label: "Liked videos", Href: "/playlists/liked", Icon: "thumbs-up"},
		{Label: "Billing", Href: "/premium/billing", Icon: "receipt"},
	}
	if isPremium {
		personal = append(personal, sidebarItem{Label: "Downloads", Href: "/premium/downloads", Icon: "download"})
	}
	if isAdmin || tier.HasAnalytics(t) {
		personal = append(personal, sidebarItem{Label: "Analytics", Href: "/premium/analytics", Icon: "bar-chart"})
	}

	resp := sidebarResponse{
		IsAdmin:   isAdmin,
		IsPremium: isPremium,
		Sections: []sidebarSection{
			{
				ID:    "main",
				Title: "",
				Items: []sidebarItem{
					{Label: "Home", Href: "/", Icon: "home"},
					{Label: "Subscriptions", Href: "/feed/subscriptions", Icon: "play-square"},
					{Label: "Shorts", Href: "/feed/shorts", Icon: "zap"},
				},
			},
			{ID: "personal", Title: "You", Items: personal},
		},
		PremiumCard: sidebarCard{
			Title:       "NepTube Pro",
			Description: "Ad-free, offline, and 4K quality",
			Href:        "/premium",
			CTA:         "Go Premium",
		},
	}
	if isAdmin {
		resp.AdminLink = &sidebarCard{
			Title:       "Admin Panel",
			Description: "Manage users, videos & more",
			Href:        "/admin",
		}
	}
	return resp
}

// handleSidebar は認証済みユーザーのサイドバーを返すハンドラ。
func (s *Server) handleSidebar() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, buildSidebar(currentUser(c)))
	}
}
