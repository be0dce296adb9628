package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"redcode-api/internal/model"
)

// dialect captures what differs between the SQL backends.
type dialect struct {
	name string

	// schema is executed statement by statement on startup.
	schema []string

	// numbered placeholders ($1, $2, ...) instead of '?'.
	numbered bool

	// sizeQuery returns the database size in bytes, if the backend can tell.
	sizeQuery string
}

// rebind rewrites '?' placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore implements Store on database/sql. Bots keep their searchable fields
// in columns and the full record as JSON in bot_json.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return &SQLStore{db: db, dialect: d}, nil
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

const userColumns = `id, username, password_hash, api_key, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.APIKey, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a new account.
func (s *SQLStore) CreateUser(ctx context.Context, user *model.User) error {
	if _, err := s.GetUserByUsername(ctx, user.Username); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	_, err := s.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.APIKey, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByID looks up an account by ID.
func (s *SQLStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByUsername looks up an account by username.
func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

// UpdateUser replaces username, password hash and API key.
func (s *SQLStore) UpdateUser(ctx context.Context, user *model.User) error {
	if existing, err := s.GetUserByUsername(ctx, user.Username); err == nil && existing.ID != user.ID {
		return ErrUserExists
	}

	res, err := s.exec(ctx,
		`UPDATE users SET username = ?, password_hash = ?, api_key = ? WHERE id = ?`,
		user.Username, user.PasswordHash, user.APIKey, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireAffected(res)
}

// CreateBot inserts a bot record.
func (s *SQLStore) CreateBot(ctx context.Context, bot *model.Bot) error {
	data, err := json.Marshal(bot)
	if err != nil {
		return fmt.Errorf("failed to encode bot: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO bots (id, user_id, name, name_key, status, coin, fish_caught, bot_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bot.ID, bot.UserID, bot.Name, NameKey(bot.Name), string(bot.Status), bot.Coin, bot.FishCaught, string(data))
	if err != nil {
		return fmt.Errorf("failed to insert bot: %w", err)
	}
	return nil
}

// GetBot looks up a bot by ID.
func (s *SQLStore) GetBot(ctx context.Context, id string) (*model.Bot, error) {
	var data string
	err := s.queryRow(ctx, `SELECT bot_json FROM bots WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}

	var bot model.Bot
	if err := json.Unmarshal([]byte(data), &bot); err != nil {
		return nil, fmt.Errorf("failed to decode bot %s: %w", id, err)
	}
	return &bot, nil
}

// DeleteBot removes a bot by ID.
func (s *SQLStore) DeleteBot(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM bots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bot: %w", err)
	}
	return requireAffected(res)
}

// ListBots returns every bot ordered by insertion.
func (s *SQLStore) ListBots(ctx context.Context) ([]model.Bot, error) {
	return s.listBots(ctx, `SELECT bot_json FROM bots ORDER BY seq`)
}

// ListBotsByOwner returns the bots of one user.
func (s *SQLStore) ListBotsByOwner(ctx context.Context, userID string) ([]model.Bot, error) {
	return s.listBots(ctx, `SELECT bot_json FROM bots WHERE user_id = ? ORDER BY seq`, userID)
}

// FindBotsByName matches on the case-folded name column.
func (s *SQLStore) FindBotsByName(ctx context.Context, name string) ([]model.Bot, error) {
	return s.listBots(ctx, `SELECT bot_json FROM bots WHERE name_key = ? ORDER BY seq`, NameKey(name))
}

func (s *SQLStore) listBots(ctx context.Context, query string, args ...any) ([]model.Bot, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	defer rows.Close()

	bots := []model.Bot{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan bot: %w", err)
		}
		var bot model.Bot
		if err := json.Unmarshal([]byte(data), &bot); err != nil {
			return nil, fmt.Errorf("failed to decode bot: %w", err)
		}
		bots = append(bots, bot)
	}
	return bots, rows.Err()
}

// SaveBots overwrites the given bots in one transaction.
func (s *SQLStore) SaveBots(ctx context.Context, bots []model.Bot) error {
	if len(bots) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`
		UPDATE bots SET user_id = ?, name = ?, name_key = ?, status = ?, coin = ?, fish_caught = ?, bot_json = ?
		WHERE id = ?`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, bot := range bots {
		data, err := json.Marshal(bot)
		if err != nil {
			return fmt.Errorf("failed to encode bot %s: %w", bot.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			bot.UserID, bot.Name, NameKey(bot.Name), string(bot.Status), bot.Coin, bot.FishCaught, string(data), bot.ID)
		if err != nil {
			return fmt.Errorf("failed to save bot %s: %w", bot.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Stats aggregates fleet totals in SQL.
func (s *SQLStore) Stats(ctx context.Context) (model.FleetStats, error) {
	var stats model.FleetStats
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers); err != nil {
		return stats, fmt.Errorf("failed to count users: %w", err)
	}

	err := s.queryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(coin), 0), COALESCE(SUM(fish_caught), 0) FROM bots`,
	).Scan(&stats.TotalBots, &stats.TotalCoins, &stats.TotalFish)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate bots: %w", err)
	}
	return stats, nil
}

// Info returns backend diagnostics including pool usage.
func (s *SQLStore) Info(ctx context.Context) (map[string]interface{}, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}

	info := map[string]interface{}{
		"driver":     s.dialect.name,
		"total_bots": stats.TotalBots,
		"users":      stats.TotalUsers,
	}

	var online int64
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM bots WHERE status = ?`, string(model.StatusOnline)).Scan(&online); err == nil {
		info["online_bots"] = online
	}

	if s.dialect.sizeQuery != "" {
		var size int64
		if err := s.queryRow(ctx, s.dialect.sizeQuery).Scan(&size); err == nil {
			info["db_size_bytes"] = size
		}
	}

	dbStats := s.db.Stats()
	info["connections"] = map[string]interface{}{
		"open":     dbStats.OpenConnections,
		"in_use":   dbStats.InUse,
		"idle":     dbStats.Idle,
		"max_open": dbStats.MaxOpenConnections,
	}
	return info, nil
}

// Close closes the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure SQLStore implements Store
var _ Store = (*SQLStore)(nil)
