package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"redcode-api/internal/events"
	"redcode-api/internal/model"
	"redcode-api/internal/repository"
)

const (
	ghostfinnRod = "Ghostfinn Rod"
	elementRod   = "Element Rod"
)

// Reconciler applies bot reports to the stored bot records.
type Reconciler struct {
	bots       repository.BotRepository
	normalizer *Normalizer
	publisher  events.Publisher
	now        func() time.Time
}

// NewReconciler creates a reconciler. publisher may be nil.
func NewReconciler(bots repository.BotRepository, normalizer *Normalizer, publisher events.Publisher) *Reconciler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if normalizer == nil {
		normalizer = NewNormalizer(nil, 0)
	}
	return &Reconciler{
		bots:       bots,
		normalizer: normalizer,
		publisher:  publisher,
		now:        time.Now,
	}
}

// WithClock replaces the time source.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Reconcile updates every bot whose name matches the report's username,
// case-insensitively and regardless of owner. The backpack is replaced, not
// merged, so replaying a report only moves lastUpdate.
func (r *Reconciler) Reconcile(ctx context.Context, report *model.Report) ([]model.Bot, error) {
	if report == nil || strings.TrimSpace(report.Username) == "" || report.Data == nil {
		return nil, ErrMalformedReport
	}

	matches, err := r.bots.FindBotsByName(ctx, report.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if len(matches) == 0 {
		return nil, ErrBotNotFound
	}

	data := report.Data
	items := r.normalizer.NormalizeInventory(ctx, data.Inventory)
	fishCaught := countFish(data.Inventory)
	backpackCurrent := 0
	for _, item := range items {
		backpackCurrent += item.Count
	}
	rarestFish, rarity := RankRarest(items)
	hasGhostfinn, hasElement := rodFlags(items)

	now := r.now()
	wasOnline := make([]bool, len(matches))
	for i := range matches {
		bot := &matches[i]
		wasOnline[i] = bot.Status == model.StatusOnline

		bot.Status = model.StatusOnline
		applyPlayer(bot, &data.Player)
		if model.HasJSON(data.Quests) {
			bot.Quests = data.Quests
		}

		// Each bot gets its own copy of the backpack.
		bot.BackpackItems = append([]model.InventoryItem(nil), items...)
		bot.BackpackCurrent = backpackCurrent
		bot.FishCaught = fishCaught
		bot.RarestFish = rarestFish
		bot.Rarity = rarity
		bot.HasGhostfinn = hasGhostfinn
		bot.HasElement = hasElement

		if bot.UserID == "" {
			bot.UserID = data.Player.OwnerHint()
		}
		updated := now
		bot.LastUpdate = &updated
	}

	if err := r.bots.SaveBots(ctx, matches); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	for i := range matches {
		if !wasOnline[i] {
			r.publish(ctx, events.NewEvent(events.KindOnline, &matches[i], now))
		}
		r.publish(ctx, events.NewEvent(events.KindReport, &matches[i], now))
	}

	log.Printf("[Reconciler] Report from %s applied to %d bot(s): coin=%d fish=%d backpack=%d rarest=%s (%s)",
		report.Username, len(matches), matches[0].Coin, fishCaught, backpackCurrent, rarestFish, rarity)
	return matches, nil
}

func (r *Reconciler) publish(ctx context.Context, ev events.Event) {
	if err := r.publisher.Publish(ctx, ev); err != nil {
		log.Printf("[Reconciler] Failed to publish %s event for %s: %v", ev.Kind, ev.BotName, err)
	}
}

// applyPlayer copies the reported player fields that are present. Counters
// are clamped to [0, MaxCounter], level and streak to [0, MaxItemCount].
func applyPlayer(bot *model.Bot, p *model.Player) {
	if p.Coins != nil {
		bot.Coin = clampInt(*p.Coins, 0, MaxCounter)
	}
	if p.Level != nil {
		bot.Level = int(clampInt(*p.Level, 0, MaxItemCount))
	}
	if p.XP != nil {
		bot.XP = clampInt(*p.XP, 0, MaxCounter)
	}
	if p.LoginStreak != nil {
		bot.LoginStreak = int(clampInt(*p.LoginStreak, 0, MaxItemCount))
	}
	if p.TotalSessionTime != nil {
		bot.TotalSessionTime = *p.TotalSessionTime
	}
	if model.HasJSON(p.Equipped) {
		bot.Equipped = p.Equipped
	}
	if model.HasJSON(p.Statistics) {
		bot.Statistics = p.Statistics
	}
	if model.HasJSON(p.Modifiers) {
		bot.Modifiers = p.Modifiers
	}
}

// IsFishCategory reports whether an inventory category holds caught fish.
func IsFishCategory(name string) bool {
	return strings.EqualFold(name, "Fishes") || strings.EqualFold(name, "Fish")
}

func countFish(inv model.RawInventory) int {
	total := 0
	for _, cat := range inv {
		if !IsFishCategory(cat.Name) {
			continue
		}
		for _, raw := range cat.Items {
			total += ItemCount(raw)
		}
	}
	return total
}

func rodFlags(items []model.InventoryItem) (ghostfinn, element bool) {
	for _, item := range items {
		switch item.Name {
		case ghostfinnRod:
			ghostfinn = true
		case elementRod:
			element = true
		}
	}
	return ghostfinn, element
}
