package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"redcode-api/internal/events"
	"redcode-api/internal/model"
	"redcode-api/internal/repository"
)

// SweeperConfig holds configuration for the liveness sweeper.
type SweeperConfig struct {
	// Interval is how often the sweep runs.
	// Default: 30 seconds
	Interval time.Duration

	// Timeout is how long an online bot may stay silent before it is marked offline.
	// Default: 2 minutes
	Timeout time.Duration
}

// DefaultSweeperConfig returns default sweeper configuration.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: 30 * time.Second,
		Timeout:  2 * time.Minute,
	}
}

// Sweep returns demoted copies of the online bots whose last report is older
// than timeout. Bots that never reported are left alone. The input is not modified.
func Sweep(bots []model.Bot, now time.Time, timeout time.Duration) []model.Bot {
	var demoted []model.Bot
	for i := range bots {
		if !bots[i].IsStale(now, timeout) {
			continue
		}
		bot := bots[i]
		bot.Status = model.StatusOffline
		demoted = append(demoted, bot)
	}
	return demoted
}

// LivenessSweeper periodically demotes stale bots to offline.
type LivenessSweeper struct {
	bots      repository.BotRepository
	publisher events.Publisher
	config    SweeperConfig
	now       func() time.Time
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewLivenessSweeper creates a new sweeper. publisher may be nil.
func NewLivenessSweeper(bots repository.BotRepository, publisher events.Publisher, config SweeperConfig) *LivenessSweeper {
	defaults := DefaultSweeperConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &LivenessSweeper{
		bots:      bots,
		publisher: publisher,
		config:    config,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// WithClock replaces the time source.
func (s *LivenessSweeper) WithClock(now func() time.Time) *LivenessSweeper {
	s.now = now
	return s
}

// Config returns the effective configuration.
func (s *LivenessSweeper) Config() SweeperConfig {
	return s.config
}

// Start begins the sweep loop.
func (s *LivenessSweeper) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Printf("[LivenessSweeper] Started - Interval: %v, Timeout: %v",
		s.config.Interval, s.config.Timeout)

	go s.run()
}

// run is the main sweep loop.
func (s *LivenessSweeper) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runSweep()
		case <-s.stopCh:
			log.Printf("[LivenessSweeper] Stopped")
			return
		}
	}
}

// runSweep performs one scheduled sweep. Failures wait for the next tick.
func (s *LivenessSweeper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Interval)
	defer cancel()

	demoted, err := s.RunNow(ctx)
	if err != nil {
		log.Printf("[LivenessSweeper] Error during sweep: %v", err)
		return
	}
	if demoted > 0 {
		log.Printf("[LivenessSweeper] Marked %d bot(s) offline", demoted)
	}
}

// Stop stops the sweep loop.
func (s *LivenessSweeper) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow sweeps immediately and returns the number of bots marked offline.
// Nothing is written when no bot is stale.
func (s *LivenessSweeper) RunNow(ctx context.Context) (int, error) {
	bots, err := s.bots.ListBots(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	now := s.now()
	demoted := Sweep(bots, now, s.config.Timeout)
	if len(demoted) == 0 {
		return 0, nil
	}

	if err := s.bots.SaveBots(ctx, demoted); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	for i := range demoted {
		ev := events.NewEvent(events.KindOffline, &demoted[i], now)
		if err := s.publisher.Publish(ctx, ev); err != nil {
			log.Printf("[LivenessSweeper] Failed to publish offline event for %s: %v", demoted[i].Name, err)
		}
	}
	return len(demoted), nil
}
