package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"redcode-api/internal/model"
)

// jsonDocument is the on-disk layout of database.json.
type jsonDocument struct {
	Users []model.User `json:"users"`
	Bots  []model.Bot  `json:"bots"`
}

// JSONFileStore implements Store on a single JSON file that is read on every
// call and rewritten wholesale on every mutation, like the legacy database.json.
// Calls are serialized; a reconciliation spanning several calls is not.
type JSONFileStore struct {
	path string
	mu   sync.RWMutex
}

// NewJSONFileStore opens (or creates) the JSON database at path.
func NewJSONFileStore(path string) (*JSONFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &JSONFileStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(&jsonDocument{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	log.Printf("[JSONFileStore] Initialized with database: %s", path)
	return s, nil
}

func (s *JSONFileStore) read() (*jsonDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	doc := &jsonDocument{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return doc, nil
}

// write replaces the file through a temp file and rename.
func (s *JSONFileStore) write(doc *jsonDocument) error {
	if doc.Users == nil {
		doc.Users = []model.User{}
	}
	if doc.Bots == nil {
		doc.Bots = []model.Bot{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode database: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.path)
}

// mutate runs fn against a fresh copy of the document and persists the result.
func (s *JSONFileStore) mutate(fn func(doc *jsonDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(doc)
}

func (s *JSONFileStore) snapshot() (*jsonDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

// CreateUser appends a new account.
func (s *JSONFileStore) CreateUser(ctx context.Context, user *model.User) error {
	return s.mutate(func(doc *jsonDocument) error {
		for _, u := range doc.Users {
			if u.Username == user.Username {
				return ErrUserExists
			}
		}
		doc.Users = append(doc.Users, *user)
		return nil
	})
}

// GetUserByID looks up an account by ID.
func (s *JSONFileStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	doc, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	for i := range doc.Users {
		if doc.Users[i].ID == id {
			return &doc.Users[i], nil
		}
	}
	return nil, ErrNotFound
}

// GetUserByUsername looks up an account by username.
func (s *JSONFileStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	doc, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	for i := range doc.Users {
		if doc.Users[i].Username == username {
			return &doc.Users[i], nil
		}
	}
	return nil, ErrNotFound
}

// UpdateUser replaces an existing account.
func (s *JSONFileStore) UpdateUser(ctx context.Context, user *model.User) error {
	return s.mutate(func(doc *jsonDocument) error {
		for i := range doc.Users {
			if doc.Users[i].ID != user.ID && doc.Users[i].Username == user.Username {
				return ErrUserExists
			}
		}
		for i := range doc.Users {
			if doc.Users[i].ID == user.ID {
				doc.Users[i] = *user
				return nil
			}
		}
		return ErrNotFound
	})
}

// CreateBot appends a bot record.
func (s *JSONFileStore) CreateBot(ctx context.Context, bot *model.Bot) error {
	return s.mutate(func(doc *jsonDocument) error {
		doc.Bots = append(doc.Bots, *bot)
		return nil
	})
}

// GetBot looks up a bot by ID.
func (s *JSONFileStore) GetBot(ctx context.Context, id string) (*model.Bot, error) {
	doc, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	for i := range doc.Bots {
		if doc.Bots[i].ID == id {
			return &doc.Bots[i], nil
		}
	}
	return nil, ErrNotFound
}

// DeleteBot removes a bot by ID.
func (s *JSONFileStore) DeleteBot(ctx context.Context, id string) error {
	return s.mutate(func(doc *jsonDocument) error {
		for i := range doc.Bots {
			if doc.Bots[i].ID == id {
				doc.Bots = append(doc.Bots[:i], doc.Bots[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

// ListBots returns all bots in file order.
func (s *JSONFileStore) ListBots(ctx context.Context) ([]model.Bot, error) {
	doc, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return doc.Bots, nil
}

// ListBotsByOwner returns the bots of one user.
func (s *JSONFileStore) ListBotsByOwner(ctx context.Context, userID string) ([]model.Bot, error) {
	doc, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	bots := []model.Bot{}
	for _, b := range doc.Bots {
		if b.UserID == userID {
			bots = append(bots, b)
		}
	}
	return bots, nil
}

// FindBotsByName matches name case-insensitively across all owners.
func (s *JSONFileStore) FindBotsByName(ctx context.Context, name string) ([]model.Bot, error) {
	doc, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	key := NameKey(name)
	var bots []model.Bot
	for _, b := range doc.Bots {
		if NameKey(b.Name) == key {
			bots = append(bots, b)
		}
	}
	return bots, nil
}

// SaveBots overwrites the given bots. Bots deleted in the meantime are skipped.
func (s *JSONFileStore) SaveBots(ctx context.Context, bots []model.Bot) error {
	if len(bots) == 0 {
		return nil
	}
	return s.mutate(func(doc *jsonDocument) error {
		byID := make(map[string]int, len(doc.Bots))
		for i := range doc.Bots {
			byID[doc.Bots[i].ID] = i
		}
		for _, b := range bots {
			if i, ok := byID[b.ID]; ok {
				doc.Bots[i] = b
			}
		}
		return nil
	})
}

// Stats returns fleet totals.
func (s *JSONFileStore) Stats(ctx context.Context) (model.FleetStats, error) {
	doc, err := s.snapshot()
	if err != nil {
		return model.FleetStats{}, err
	}
	return statsFromBots(int64(len(doc.Users)), doc.Bots), nil
}

// Info returns file diagnostics.
func (s *JSONFileStore) Info(ctx context.Context) (map[string]interface{}, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}

	info := map[string]interface{}{
		"path":       s.path,
		"total_bots": stats.TotalBots,
		"users":      stats.TotalUsers,
	}
	if fi, err := os.Stat(s.path); err == nil {
		info["db_size_bytes"] = fi.Size()
		info["last_write"] = fi.ModTime()
	}
	return info, nil
}

// Close is a no-op; every call already hits the file.
func (s *JSONFileStore) Close() error {
	return nil
}

// statsFromBots sums fleet totals in memory for backends without aggregation.
func statsFromBots(users int64, bots []model.Bot) model.FleetStats {
	stats := model.FleetStats{
		TotalUsers: users,
		TotalBots:  int64(len(bots)),
	}
	for _, b := range bots {
		stats.TotalCoins += b.Coin
		stats.TotalFish += int64(b.FishCaught)
	}
	return stats
}

// Ensure JSONFileStore implements Store
var _ Store = (*JSONFileStore)(nil)
