package viewing

import (
	"adzopay/internal/domain"
	"adzopay/internal/usecase/balance"
	"adzopay/internal/usecase/reward"
)

// ItemView описывает элемент ленты для клиента.
type ItemView struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MediaURL    string `json:"media_url"`
	Brand       string `json:"brand,omitempty"`
	Category    string `json:"category,omitempty"`
	Username    string `json:"username,omitempty"`
	Reward      string `json:"reward,omitempty"`
	RewardMinor int64  `json:"reward_minor"`
	DurationMS  int64  `json:"duration_ms"`
	Watched     bool   `json:"watched"`
	Liked       bool   `json:"liked"`
}

// WalletView хранит баланс кошелька на момент открытия сессии.
type WalletView struct {
	Balance     string `json:"balance"`
	TotalEarned string `json:"total_earned"`
	AdsWatched  int    `json:"ads_watched"`
}

// Snapshot содержит полное состояние сессии для отрисовки.
type Snapshot struct {
	SessionID     string          `json:"session_id"`
	Position      int             `json:"position"`
	Length        int             `json:"length"`
	Current       ItemView        `json:"current"`
	Items         []ItemView      `json:"items"`
	Transitioning bool            `json:"transitioning"`
	Timer         reward.Status   `json:"timer"`
	Watched       []string        `json:"watched"`
	Liked         []string        `json:"liked"`
	Total         domain.Money    `json:"total"`
	Balance       balance.Display `json:"balance"`
	Stats         balance.Stats   `json:"stats"`
	Wallet        *WalletView     `json:"wallet,omitempty"`
	Autoplay      bool            `json:"autoplay"`
}

func itemView(item domain.FeedItem, watched, liked bool) ItemView {
	v := ItemView{
		ID:          item.ID(),
		Kind:        string(item.Kind),
		Title:       item.Title(),
		Description: item.Description(),
		MediaURL:    item.MediaURL,
		DurationMS:  item.Duration().Milliseconds(),
		Watched:     watched,
		Liked:       liked,
	}
	if item.Kind == domain.FeedItemAd && item.Ad != nil {
		v.Brand = item.Ad.Brand
		v.Category = item.Ad.Category
		v.Username = item.Ad.Username
		v.Reward = balance.Format(item.Ad.Reward)
		v.RewardMinor = item.Ad.Reward.Amount
	}
	return v
}
