package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewBot(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	bot := NewBot("b1", "u1", "Alice", now)

	assert.Equal(t, StatusOffline, bot.Status)
	assert.Equal(t, NoRarestFish, bot.RarestFish)
	assert.Equal(t, RarityCommon, bot.Rarity)
	assert.Equal(t, DefaultBackpackMax, bot.BackpackMax)
	assert.Nil(t, bot.LastUpdate)
	assert.Equal(t, now, bot.CreatedAt)
}

func TestBot_IsStale(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name string
		bot  Bot
		want bool
	}{
		{"online and silent too long", Bot{Status: StatusOnline, LastUpdate: at(121 * time.Second)}, true},
		{"online and recent", Bot{Status: StatusOnline, LastUpdate: at(119 * time.Second)}, false},
		{"exactly at timeout", Bot{Status: StatusOnline, LastUpdate: at(2 * time.Minute)}, false},
		{"never reported", Bot{Status: StatusOnline}, false},
		{"already offline", Bot{Status: StatusOffline, LastUpdate: at(time.Hour)}, false},
		{"idle", Bot{Status: StatusIdle, LastUpdate: at(time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bot.IsStale(now, 2*time.Minute))
		})
	}
}
