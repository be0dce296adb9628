package service

import (
	"context"
	"sync"

	"redcode-api/internal/events"
	"redcode-api/internal/model"
	"redcode-api/internal/repository"
)

// memStore is an in-memory repository.Store for service tests.
type memStore struct {
	mu    sync.Mutex
	users []model.User
	bots  []model.Bot

	listErr   error
	saveErr   error
	saveCalls int
}

func newMemStore(bots ...model.Bot) *memStore {
	return &memStore{bots: append([]model.Bot(nil), bots...)}
}

func (s *memStore) snapshot() []model.Bot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneBots(s.bots)
}

func cloneBots(bots []model.Bot) []model.Bot {
	out := make([]model.Bot, len(bots))
	for i, b := range bots {
		b.BackpackItems = append([]model.InventoryItem(nil), b.BackpackItems...)
		out[i] = b
	}
	return out
}

func (s *memStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return repository.ErrUserExists
		}
	}
	s.users = append(s.users, *user)
	return nil
}

func (s *memStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) UpdateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID != user.ID && s.users[i].Username == user.Username {
			return repository.ErrUserExists
		}
	}
	for i := range s.users {
		if s.users[i].ID == user.ID {
			s.users[i] = *user
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memStore) CreateBot(ctx context.Context, bot *model.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots = append(s.bots, *bot)
	return nil
}

func (s *memStore) GetBot(ctx context.Context, id string) (*model.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bots {
		if b.ID == id {
			b := b
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) DeleteBot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bots {
		if s.bots[i].ID == id {
			s.bots = append(s.bots[:i], s.bots[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memStore) ListBots(ctx context.Context) ([]model.Bot, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.snapshot(), nil
}

func (s *memStore) ListBotsByOwner(ctx context.Context, userID string) ([]model.Bot, error) {
	var out []model.Bot
	for _, b := range s.snapshot() {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) FindBotsByName(ctx context.Context, name string) ([]model.Bot, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	key := repository.NameKey(name)
	var out []model.Bot
	for _, b := range s.snapshot() {
		if repository.NameKey(b.Name) == key {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) SaveBots(ctx context.Context, bots []model.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, b := range bots {
		for i := range s.bots {
			if s.bots[i].ID == b.ID {
				s.bots[i] = b
			}
		}
	}
	return nil
}

func (s *memStore) Stats(ctx context.Context) (model.FleetStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := model.FleetStats{TotalUsers: int64(len(s.users)), TotalBots: int64(len(s.bots))}
	for _, b := range s.bots {
		stats.TotalCoins += b.Coin
		stats.TotalFish += int64(b.FishCaught)
	}
	return stats, nil
}

func (s *memStore) Info(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"driver": "memory"}, nil
}

func (s *memStore) Close() error { return nil }

var _ repository.Store = (*memStore)(nil)

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]events.Kind, len(p.events))
	for i, ev := range p.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// stubResolver answers image lookups from a fixed table.
type stubResolver struct {
	urls map[string]string
	err  error
}

func (r stubResolver) ResolveImage(ctx context.Context, assetID string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.urls[assetID], nil
}
