package domain

import (
	"strconv"
	"time"
)

// DefaultVideoDuration применяется к роликам без длительности в метаданных.
const DefaultVideoDuration = 30 * time.Second

// User описывает пользователя, полученного от провайдера идентичности.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// Video описывает зарегистрированный ролик из хранилища.
type Video struct {
	ID           int64
	UserID       string
	Filename     string
	StoragePath  string
	Title        string
	Description  string
	Duration     time.Duration
	ThumbnailURL string
	Size         int64
	Mime         string
	CreatedAt    time.Time
}

// Ad описывает рекламный ролик с фиксированным вознаграждением.
type Ad struct {
	ID          int64
	Title       string
	Brand       string
	Reward      Money
	Duration    time.Duration
	Description string
	MediaURL    string
	Username    string
	Category    string
}

// FeedItemKind различает варианты элемента ленты.
type FeedItemKind string

const (
	FeedItemVideo FeedItemKind = "video"
	FeedItemAd    FeedItemKind = "ad"
)

// FeedItem — элемент ленты: либо ролик, либо реклама. Заполнен ровно один из указателей.
type FeedItem struct {
	Kind     FeedItemKind
	Video    *Video
	Ad       *Ad
	MediaURL string
}

// VideoItem оборачивает ролик в элемент ленты.
func VideoItem(v Video, mediaURL string) FeedItem {
	return FeedItem{Kind: FeedItemVideo, Video: &v, MediaURL: mediaURL}
}

// AdItem оборачивает рекламу в элемент ленты.
func AdItem(a Ad) FeedItem {
	return FeedItem{Kind: FeedItemAd, Ad: &a, MediaURL: a.MediaURL}
}

// ID возвращает идентификатор элемента, уникальный в пределах ленты.
func (i FeedItem) ID() string {
	switch i.Kind {
	case FeedItemVideo:
		if i.Video != nil {
			return "video-" + strconv.FormatInt(i.Video.ID, 10)
		}
	case FeedItemAd:
		if i.Ad != nil {
			return "ad-" + strconv.FormatInt(i.Ad.ID, 10)
		}
	}
	return ""
}

// Duration возвращает номинальную длительность просмотра.
func (i FeedItem) Duration() time.Duration {
	switch {
	case i.Kind == FeedItemAd && i.Ad != nil:
		return i.Ad.Duration
	case i.Kind == FeedItemVideo && i.Video != nil && i.Video.Duration > 0:
		return i.Video.Duration
	}
	return DefaultVideoDuration
}

// Reward возвращает вознаграждение за полный просмотр. У роликов оно нулевое.
func (i FeedItem) Reward() Money {
	if i.Kind == FeedItemAd && i.Ad != nil {
		return i.Ad.Reward
	}
	return Money{}
}

// Title возвращает заголовок для отображения.
func (i FeedItem) Title() string {
	switch {
	case i.Kind == FeedItemAd && i.Ad != nil:
		return i.Ad.Title
	case i.Kind == FeedItemVideo && i.Video != nil:
		if i.Video.Title != "" {
			return i.Video.Title
		}
		return "Video"
	}
	return ""
}

// Description возвращает описание элемента.
func (i FeedItem) Description() string {
	switch {
	case i.Kind == FeedItemAd && i.Ad != nil:
		return i.Ad.Description
	case i.Kind == FeedItemVideo && i.Video != nil:
		if i.Video.Description != "" {
			return i.Video.Description
		}
		return "Watch this video"
	}
	return ""
}

// RegisterVideoParams содержит параметры регистрации ролика.
type RegisterVideoParams struct {
	UserID      string        `json:"user_id"`
	Filename    string        `json:"filename"`
	StoragePath string        `json:"storage_path"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Duration    time.Duration `json:"duration"`
	Size        int64         `json:"size"`
	Mime        string        `json:"mime"`
}
