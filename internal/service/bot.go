package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"redcode-api/internal/model"
	"redcode-api/internal/repository"
	"redcode-api/pkg/uid"
)

// DefaultBotName is used when a bot is registered without a name.
const DefaultBotName = "NewBot"

// FleetSummary holds the dashboard counters for one user's bots.
type FleetSummary struct {
	Total       int   `json:"total"`
	Online      int   `json:"online"`
	Offline     int   `json:"offline"`
	SecretBots  int   `json:"secret"`
	MythicBots  int   `json:"mythic"`
	Ghostfinn   int   `json:"ghostfinn"`
	Element     int   `json:"element"`
	SecretItems int   `json:"secretItems"`
	MythicItems int   `json:"mythicItems"`
	TotalCoins  int64 `json:"totalCoins"`
	TotalFish   int   `json:"totalFish"`
}

// Summarize computes dashboard counters. Idle bots count as offline.
func Summarize(bots []model.Bot) FleetSummary {
	s := FleetSummary{Total: len(bots)}
	for i := range bots {
		b := &bots[i]
		if b.Status == model.StatusOnline {
			s.Online++
		} else {
			s.Offline++
		}
		switch b.Rarity {
		case model.RaritySecret:
			s.SecretBots++
		case model.RarityMythic:
			s.MythicBots++
		}
		if b.HasGhostfinn {
			s.Ghostfinn++
		}
		if b.HasElement {
			s.Element++
		}
		for _, item := range b.BackpackItems {
			switch item.Rarity.Canonical() {
			case model.RaritySecret:
				s.SecretItems += item.Count
			case model.RarityMythic:
				s.MythicItems += item.Count
			}
		}
		s.TotalCoins += b.Coin
		s.TotalFish += b.FishCaught
	}
	return s
}

// BotService handles owner-side bot management.
type BotService struct {
	store repository.Store
	now   func() time.Time
}

// NewBotService creates a new bot service.
func NewBotService(store repository.Store) *BotService {
	return &BotService{store: store, now: time.Now}
}

// AddBot registers a never-reported bot for userID.
func (s *BotService) AddBot(ctx context.Context, userID, name, token, gameID string) (*model.Bot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultBotName
	}

	bot := model.NewBot(uid.New(), userID, name, s.now().UTC())
	bot.Token = token
	bot.GameID = gameID

	if err := s.store.CreateBot(ctx, &bot); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	log.Printf("[BotService] User %s registered bot %s (%s)", userID, bot.Name, bot.ID)
	return &bot, nil
}

// ListBots returns the user's bots and their summary.
func (s *BotService) ListBots(ctx context.Context, userID string) ([]model.Bot, FleetSummary, error) {
	bots, err := s.store.ListBotsByOwner(ctx, userID)
	if err != nil {
		return nil, FleetSummary{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return bots, Summarize(bots), nil
}

// DeleteBot removes a bot owned by userID. Bots of other users are reported
// as not found.
func (s *BotService) DeleteBot(ctx context.Context, userID, botID string) error {
	bot, err := s.store.GetBot(ctx, botID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if bot.UserID != userID {
		return repository.ErrNotFound
	}

	if err := s.store.DeleteBot(ctx, botID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	log.Printf("[BotService] User %s deleted bot %s (%s)", userID, bot.Name, bot.ID)
	return nil
}

// Stats returns fleet-wide totals for the landing page.
func (s *BotService) Stats(ctx context.Context) (model.FleetStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return stats, nil
}

// StoreInfo returns backend diagnostics for the admin dashboard.
func (s *BotService) StoreInfo(ctx context.Context) (map[string]interface{}, error) {
	return s.store.Info(ctx)
}
