package repository

import (
	"context"
	"errors"

	"golang.org/x/text/cases"

	"redcode-api/internal/model"
)

var (
	// ErrNotFound is returned when a user or bot does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUserExists is returned when a username is already taken.
	ErrUserExists = errors.New("username already exists")
)

// NameKey is the case-folded form bot names are matched on. Two names match
// when their keys are equal, whatever the backend.
func NameKey(name string) string {
	return cases.Fold().String(name)
}

// UserRepository defines user account data access methods.
type UserRepository interface {
	// CreateUser appends a new account. Returns ErrUserExists on a duplicate username.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUserByID returns ErrNotFound when the account does not exist.
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// GetUserByUsername matches the username exactly.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// UpdateUser replaces the stored account with the same ID.
	UpdateUser(ctx context.Context, user *model.User) error
}

// BotRepository defines bot record data access methods.
type BotRepository interface {
	// CreateBot appends a new bot record.
	CreateBot(ctx context.Context, bot *model.Bot) error

	// GetBot returns ErrNotFound when the bot does not exist.
	GetBot(ctx context.Context, id string) (*model.Bot, error)

	// DeleteBot removes a bot. Returns ErrNotFound when nothing was deleted.
	DeleteBot(ctx context.Context, id string) error

	// ListBots returns every stored bot.
	ListBots(ctx context.Context) ([]model.Bot, error)

	// ListBotsByOwner returns the bots registered by one user.
	ListBotsByOwner(ctx context.Context, userID string) ([]model.Bot, error)

	// FindBotsByName returns the bots whose NameKey equals NameKey(name), across all owners.
	FindBotsByName(ctx context.Context, name string) ([]model.Bot, error)

	// SaveBots overwrites the given bots in one batch. Last writer wins.
	SaveBots(ctx context.Context, bots []model.Bot) error
}

// Store is the record store used by the services.
type Store interface {
	UserRepository
	BotRepository

	// Stats returns fleet-wide totals.
	Stats(ctx context.Context) (model.FleetStats, error)

	// Info returns backend diagnostics for the admin dashboard.
	Info(ctx context.Context) (map[string]interface{}, error)

	// Close releases the backend.
	Close() error
}
