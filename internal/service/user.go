package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"redcode-api/internal/auth"
	"redcode-api/internal/model"
	"redcode-api/internal/repository"
	"redcode-api/pkg/uid"
)

// APIKeyPrefix is the prefix of user API keys.
const APIKeyPrefix = "ts_"

// UserConfig holds token settings for the user service.
type UserConfig struct {
	JWTSecret      []byte
	SessionTTL     time.Duration
	RoleTokenTTL   time.Duration
	RoleTokenClaim string
}

// UserService handles dashboard accounts and session tokens.
type UserService struct {
	users  repository.UserRepository
	config UserConfig
	now    func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, config UserConfig) *UserService {
	if config.SessionTTL <= 0 {
		config.SessionTTL = 24 * time.Hour
	}
	if config.RoleTokenTTL <= 0 {
		config.RoleTokenTTL = time.Hour
	}
	if config.RoleTokenClaim == "" {
		config.RoleTokenClaim = "user"
	}
	return &UserService{users: users, config: config, now: time.Now}
}

// Session is a user together with a freshly issued token.
type Session struct {
	User  *model.User
	Token string
}

// Register creates an account with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	apiKey, err := NewAPIKey()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uid.New(),
		Username:     username,
		PasswordHash: string(hash),
		APIKey:       apiKey,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	log.Printf("[UserService] Registered user %s (%s)", user.Username, user.ID)
	return user, nil
}

// Login checks the password and issues a session token.
func (s *UserService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Verify re-issues a token for the user behind a still-valid session.
func (s *UserService) Verify(ctx context.Context, userID string) (*Session, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// GetUser loads an account by ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return user, nil
}

// ParseSession validates a session token and returns the user id.
func (s *UserService) ParseSession(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.config.JWTSecret)
}

// RoleToken issues the short-lived role token used by the image lookup API.
func (s *UserService) RoleToken(ctx context.Context, userID string) (string, *model.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	token, err := auth.GenerateRoleToken(s.config.RoleTokenClaim, s.config.JWTSecret, s.config.RoleTokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, user, nil
}

// UpdateUsername renames an account.
func (s *UserService) UpdateUsername(ctx context.Context, userID, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Username = username
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RegenerateAPIKey replaces the account's API key.
func (s *UserService) RegenerateAPIKey(ctx context.Context, userID string) (string, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}

	key, err := NewAPIKey()
	if err != nil {
		return "", err
	}
	user.APIKey = key
	if err := s.save(ctx, user); err != nil {
		return "", err
	}
	return key, nil
}

func (s *UserService) save(ctx context.Context, user *model.User) error {
	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrUserExists) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (s *UserService) issue(user *model.User) (*Session, error) {
	token, err := auth.GenerateToken(user.ID, user.Username, s.config.JWTSecret, s.config.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Session{User: user, Token: token}, nil
}

// NewAPIKey returns "ts_" followed by 32 random hex characters.
func NewAPIKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return APIKeyPrefix + hex.EncodeToString(b), nil
}
