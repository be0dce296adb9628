package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redcode-api/internal/model"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	jsonStore, err := NewJSONFileStore(filepath.Join(dir, "data", "database.json"))
	require.NoError(t, err)

	sqliteStore, err := NewSQLiteStore(context.Background(), filepath.Join(dir, "redcode.db"))
	require.NoError(t, err)

	stores := map[string]Store{"json": jsonStore, "sqlite": sqliteStore}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStore_Users(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			user := &model.User{
				ID:           "u1",
				Username:     "alice",
				PasswordHash: "hash",
				APIKey:       "ts_key",
				CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			}
			require.NoError(t, store.CreateUser(ctx, user))
			assert.ErrorIs(t, store.CreateUser(ctx, &model.User{ID: "u2", Username: "alice", CreatedAt: time.Now()}), ErrUserExists)

			got, err := store.GetUserByUsername(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, "u1", got.ID)
			assert.Equal(t, "ts_key", got.APIKey)
			assert.True(t, user.CreatedAt.Equal(got.CreatedAt))

			require.NoError(t, store.UpdateUser(ctx, got), "unchanged update")

			got.Username = "alicia"
			require.NoError(t, store.UpdateUser(ctx, got))
			got, err = store.GetUserByID(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "alicia", got.Username)

			_, err = store.GetUserByID(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, store.UpdateUser(ctx, &model.User{ID: "missing", Username: "x"}), ErrNotFound)
		})
	}
}

func TestStore_Bots(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

			for _, b := range []model.Bot{
				model.NewBot("b1", "u1", "Bob", now),
				model.NewBot("b2", "u2", "bob", now),
				model.NewBot("b3", "u1", "Alice", now),
			} {
				b := b
				require.NoError(t, store.CreateBot(ctx, &b))
			}

			all, err := store.ListBots(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"b1", "b2", "b3"}, botIDs(all))

			owned, err := store.ListBotsByOwner(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, []string{"b1", "b3"}, botIDs(owned))

			matches, err := store.FindBotsByName(ctx, "BOB")
			require.NoError(t, err)
			assert.Equal(t, []string{"b1", "b2"}, botIDs(matches))

			none, err := store.FindBotsByName(ctx, "Ghost")
			require.NoError(t, err)
			assert.Empty(t, none)

			reported := now.Add(time.Minute)
			for i := range matches {
				matches[i].Status = model.StatusOnline
				matches[i].Coin = 500
				matches[i].FishCaught = 4
				matches[i].LastUpdate = &reported
				matches[i].BackpackItems = []model.InventoryItem{{Name: "Kraken", Rarity: model.RaritySecret, Count: 1, Type: "Fishes"}}
			}
			require.NoError(t, store.SaveBots(ctx, matches))

			got, err := store.GetBot(ctx, "b2")
			require.NoError(t, err)
			assert.Equal(t, model.StatusOnline, got.Status)
			assert.Equal(t, int64(500), got.Coin)
			require.NotNil(t, got.LastUpdate)
			assert.True(t, reported.Equal(*got.LastUpdate))
			require.Len(t, got.BackpackItems, 1)
			assert.Equal(t, "Kraken", got.BackpackItems[0].Name)

			stats, err := store.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), stats.TotalBots)
			assert.Equal(t, int64(1000), stats.TotalCoins)
			assert.Equal(t, int64(8), stats.TotalFish)

			require.NoError(t, store.DeleteBot(ctx, "b3"))
			assert.ErrorIs(t, store.DeleteBot(ctx, "b3"), ErrNotFound)
			_, err = store.GetBot(ctx, "b3")
			assert.ErrorIs(t, err, ErrNotFound)

			info, err := store.Info(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 2, info["total_bots"])
		})
	}
}

func TestStore_FindBotsByNameFolding(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			for _, b := range []model.Bot{
				model.NewBot("b1", "u1", "σοφος", now),
				model.NewBot("b2", "u1", "Straße", now),
				model.NewBot("b3", "u1", "Bob", now),
			} {
				b := b
				require.NoError(t, store.CreateBot(ctx, &b))
			}

			tests := []struct {
				query string
				want  []string
			}{
				{"ΣΟΦΟΣ", []string{"b1"}},
				{"σοφοσ", []string{"b1"}},
				{"STRASSE", []string{"b2"}},
				{"bOB", []string{"b3"}},
				{"Bobby", []string{}},
			}
			for _, tt := range tests {
				matches, err := store.FindBotsByName(ctx, tt.query)
				require.NoError(t, err)
				assert.Equal(t, tt.want, botIDs(matches), tt.query)
			}
		})
	}
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, NameKey("σ"), NameKey("ς"))
	assert.Equal(t, NameKey("Σ"), NameKey("ς"))
	assert.Equal(t, NameKey("Bob"), NameKey("BOB"))
	assert.Equal(t, "bob", NameKey("Bob"))
	assert.NotEqual(t, NameKey("Bob"), NameKey("Rob"))
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN("redcode:pw@tcp(db:3306)/redcode")
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.True(t, cfg.ClientFoundRows)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "redcode", cfg.User)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "redcode", cfg.DBName)

	_, err = mysqlDSN("not a dsn")
	assert.Error(t, err)
}

func TestStore_SaveBotsEmpty(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, store.SaveBots(context.Background(), nil))
		})
	}
}

func TestJSONFileStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	ctx := context.Background()

	store, err := NewJSONFileStore(path)
	require.NoError(t, err)
	bot := model.NewBot("b1", "u1", "Bob", time.Now())
	require.NoError(t, store.CreateBot(ctx, &bot))

	reopened, err := NewJSONFileStore(path)
	require.NoError(t, err)
	bots, err := reopened.ListBots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, botIDs(bots))
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT 1 WHERE a = ? AND b = ?", sqliteDialect.rebind("SELECT 1 WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", postgresDialect.rebind("SELECT 1 WHERE a = ? AND b = ?"))
}

func botIDs(bots []model.Bot) []string {
	ids := make([]string, len(bots))
	for i, b := range bots {
		ids[i] = b.ID
	}
	return ids
}
