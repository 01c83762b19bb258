package models

import (
	"time"
)

const (
	PlatformTelegram = "telegram"
	PlatformLinkedin = "linkedin"
	PlatformYoutube  = "youtube"
)

// Platforms is the closed set of supported platforms in deterministic order.
var Platforms = []string{PlatformLinkedin, PlatformTelegram, PlatformYoutube}

func IsSupportedPlatform(platform string) bool {
	for _, p := range Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// Integration binds one user to one platform. There is at most one row per
// (UserID, Platform); saving a new one replaces the previous record.
type Integration struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Platform        string    `db:"platform" json:"platform"`
	AccessToken     string    `db:"access_token" json:"-"`
	RefreshToken    string    `db:"refresh_token" json:"-"`
	ProfileID       string    `db:"profile_id" json:"profile_id,omitempty"`
	ChannelID       string    `db:"channel_id" json:"channel_id,omitempty"`
	ChannelTitle    string    `db:"channel_title" json:"channel_title,omitempty"`
	BotChatID       string    `db:"bot_chat_id" json:"bot_chat_id,omitempty"`
	ChannelUsername string    `db:"channel_username" json:"channel_username,omitempty"`
	ExpiresAt       time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the access token has an expiry that has passed.
// Integrations without an expiry never expire.
func (i *Integration) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// ChatTarget is the Telegram chat the bot posts into.
func (i *Integration) ChatTarget() string {
	if i.ChannelUsername != "" {
		return i.ChannelUsername
	}
	return i.BotChatID
}

type IntegrationStatus struct {
	Platform        string `json:"platform"`
	Connected       bool   `json:"connected"`
	ProfileID       string `json:"profile_id,omitempty"`
	ChannelID       string `json:"channel_id,omitempty"`
	ChannelTitle    string `json:"channel_title,omitempty"`
	ChannelUsername string `json:"channel_username,omitempty"`
}
