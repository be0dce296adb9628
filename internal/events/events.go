package events

import (
	"context"
	"log"
	"time"

	"redcode-api/internal/model"
)

// Kind identifies a bot lifecycle event.
type Kind string

const (
	// KindOnline fires when a report brings a bot back online.
	KindOnline Kind = "online"
	// KindOffline fires when the liveness sweep demotes a bot.
	KindOffline Kind = "offline"
	// KindReport fires for every bot updated by a report.
	KindReport Kind = "report"
)

// Event is a snapshot of one bot at the moment something happened to it.
type Event struct {
	Kind            Kind            `json:"kind"`
	BotID           string          `json:"botId"`
	BotName         string          `json:"botName"`
	UserID          string          `json:"userId,omitempty"`
	Status          model.BotStatus `json:"status"`
	Coin            int64           `json:"coin"`
	FishCaught      int             `json:"fishCaught"`
	BackpackCurrent int             `json:"backpackCurrent"`
	RarestFish      string          `json:"rarestFish"`
	Rarity          model.Rarity    `json:"rarity"`
	At              time.Time       `json:"at"`
}

// NewEvent builds an event from the bot's current state.
func NewEvent(kind Kind, bot *model.Bot, at time.Time) Event {
	return Event{
		Kind:            kind,
		BotID:           bot.ID,
		BotName:         bot.Name,
		UserID:          bot.UserID,
		Status:          bot.Status,
		Coin:            bot.Coin,
		FishCaught:      bot.FishCaught,
		BackpackCurrent: bot.BackpackCurrent,
		RarestFish:      bot.RarestFish,
		Rarity:          bot.Rarity,
		At:              at,
	}
}

// Publisher delivers bot events. Delivery is best effort; callers log failures
// and carry on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// LogPublisher writes events to the standard logger.
type LogPublisher struct{}

// Publish logs the event.
func (LogPublisher) Publish(_ context.Context, ev Event) error {
	log.Printf("[Events] %s bot=%s (%s) status=%s coin=%d fish=%d",
		ev.Kind, ev.BotName, ev.BotID, ev.Status, ev.Coin, ev.FishCaught)
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error { return nil }
