package model

import (
	"encoding/json"
	"time"
)

// BotStatus is the liveness state of a tracked bot.
type BotStatus string

const (
	StatusOnline  BotStatus = "online"
	StatusOffline BotStatus = "offline"
	// StatusIdle is never assigned by the server; clients may set it externally.
	StatusIdle BotStatus = "idle"
)

const (
	// NoRarestFish is shown until a bot reports a non-empty backpack.
	NoRarestFish = "None"

	// DefaultBackpackMax is the capacity given to newly registered bots.
	DefaultBackpackMax = 100
)

// Bot is one tracked game client as mirrored in the record store.
type Bot struct {
	ID     string    `json:"id"`
	UserID string    `json:"userId"`
	Name   string    `json:"name"`
	Status BotStatus `json:"status"`

	Coin            int64  `json:"coin"`
	Level           int    `json:"level"`
	XP              int64  `json:"xp"`
	FishCaught      int    `json:"fishCaught"`
	RarestFish      string `json:"rarestFish"`
	Rarity          Rarity `json:"rarity"`
	BackpackCurrent int    `json:"backpackCurrent"`
	BackpackMax     int    `json:"backpackMax"`

	Token  string `json:"token"`
	GameID string `json:"gameId"`

	LastUpdate *time.Time `json:"lastUpdate,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`

	HasGhostfinn bool `json:"hasGhostfinn"`
	HasElement   bool `json:"hasElement"`

	LoginStreak      int             `json:"loginStreak,omitempty"`
	TotalSessionTime float64         `json:"totalSessionTime,omitempty"`
	Equipped         json.RawMessage `json:"equipped,omitempty"`
	Statistics       json.RawMessage `json:"statistics,omitempty"`
	Quests           json.RawMessage `json:"quests,omitempty"`
	Modifiers        json.RawMessage `json:"modifiers,omitempty"`

	BackpackItems []InventoryItem `json:"backpackItems,omitempty"`
}

// InventoryItem is a normalized backpack entry.
type InventoryItem struct {
	Name   string `json:"name"`
	Rarity Rarity `json:"rarity"`
	Count  int    `json:"count"`
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	UUID   string `json:"uuid,omitempty"`
	Icon   string `json:"icon,omitempty"`
}

// NewBot returns a freshly registered, never-reported bot.
func NewBot(id, userID, name string, now time.Time) Bot {
	return Bot{
		ID:          id,
		UserID:      userID,
		Name:        name,
		Status:      StatusOffline,
		RarestFish:  NoRarestFish,
		Rarity:      RarityCommon,
		BackpackMax: DefaultBackpackMax,
		CreatedAt:   now,
	}
}

// IsStale reports whether an online bot has not reported for longer than timeout.
// Bots that never reported are never stale.
func (b *Bot) IsStale(now time.Time, timeout time.Duration) bool {
	if b.Status != StatusOnline || b.LastUpdate == nil {
		return false
	}
	return now.Sub(*b.LastUpdate) > timeout
}
