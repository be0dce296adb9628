package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"redcode-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store using MongoDB with one collection per record type.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	users  *mongo.Collection
	bots   *mongo.Collection
}

// NewMongoStore connects to MongoDB and prepares the collections.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client: client,
		db:     db,
		users:  db.Collection("users"),
		bots:   db.Collection("bots"),
	}

	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{s.bots, mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}}}},
		{s.bots, mongo.IndexModel{Keys: bson.D{{Key: "name_key", Value: 1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			log.Printf("[MongoDB] Warning: failed to create index on %s: %v", idx.coll.Name(), err)
		}
	}

	log.Printf("[MongoDB] Connected to %s", database)
	return s, nil
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	APIKey       string    `bson:"api_key"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d userDocument) toModel() *model.User {
	return &model.User{
		ID:           d.ID,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		APIKey:       d.APIKey,
		CreatedAt:    d.CreatedAt,
	}
}

// botDocument mirrors the SQL layout: query fields plus the full record as JSON.
type botDocument struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	Name       string    `bson:"name"`
	NameKey    string    `bson:"name_key"`
	Status     string    `bson:"status"`
	Coin       int64     `bson:"coin"`
	FishCaught int64     `bson:"fish_caught"`
	CreatedAt  time.Time `bson:"created_at"`
	BotJSON    string    `bson:"bot_json"`
}

func newBotDocument(bot *model.Bot) (*botDocument, error) {
	data, err := json.Marshal(bot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bot: %w", err)
	}
	return &botDocument{
		ID:         bot.ID,
		UserID:     bot.UserID,
		Name:       bot.Name,
		NameKey:    NameKey(bot.Name),
		Status:     string(bot.Status),
		Coin:       bot.Coin,
		FishCaught: int64(bot.FishCaught),
		CreatedAt:  bot.CreatedAt,
		BotJSON:    string(data),
	}, nil
}

func (d botDocument) toModel() (model.Bot, error) {
	var bot model.Bot
	if err := json.Unmarshal([]byte(d.BotJSON), &bot); err != nil {
		return bot, fmt.Errorf("failed to decode bot %s: %w", d.ID, err)
	}
	return bot, nil
}

// CreateUser inserts a new account.
func (s *MongoStore) CreateUser(ctx context.Context, user *model.User) error {
	doc := userDocument{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		APIKey:       user.APIKey,
		CreatedAt:    user.CreatedAt,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toModel(), nil
}

// GetUserByID looks up an account by ID.
func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

// GetUserByUsername looks up an account by username.
func (s *MongoStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

// UpdateUser replaces username, password hash and API key.
func (s *MongoStore) UpdateUser(ctx context.Context, user *model.User) error {
	update := bson.M{
		"$set": bson.M{
			"username":      user.Username,
			"password_hash": user.PasswordHash,
			"api_key":       user.APIKey,
		},
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBot inserts a bot record.
func (s *MongoStore) CreateBot(ctx context.Context, bot *model.Bot) error {
	doc, err := newBotDocument(bot)
	if err != nil {
		return err
	}
	if _, err := s.bots.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert bot: %w", err)
	}
	return nil
}

// GetBot looks up a bot by ID.
func (s *MongoStore) GetBot(ctx context.Context, id string) (*model.Bot, error) {
	var doc botDocument
	err := s.bots.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	bot, err := doc.toModel()
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

// DeleteBot removes a bot by ID.
func (s *MongoStore) DeleteBot(ctx context.Context, id string) error {
	res, err := s.bots.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete bot: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBots returns every bot ordered by creation time.
func (s *MongoStore) ListBots(ctx context.Context) ([]model.Bot, error) {
	return s.findBots(ctx, bson.M{})
}

// ListBotsByOwner returns the bots of one user.
func (s *MongoStore) ListBotsByOwner(ctx context.Context, userID string) ([]model.Bot, error) {
	return s.findBots(ctx, bson.M{"user_id": userID})
}

// FindBotsByName matches on the case-folded name field.
func (s *MongoStore) FindBotsByName(ctx context.Context, name string) ([]model.Bot, error) {
	return s.findBots(ctx, bson.M{"name_key": NameKey(name)})
}

func (s *MongoStore) findBots(ctx context.Context, filter bson.M) ([]model.Bot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.bots.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	defer cursor.Close(ctx)

	bots := []model.Bot{}
	for cursor.Next(ctx) {
		var doc botDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode bot document: %w", err)
		}
		bot, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		bots = append(bots, bot)
	}
	return bots, cursor.Err()
}

// SaveBots overwrites the given bots with one bulk write.
func (s *MongoStore) SaveBots(ctx context.Context, bots []model.Bot) error {
	if len(bots) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(bots))
	for i := range bots {
		doc, err := newBotDocument(&bots[i])
		if err != nil {
			return err
		}
		update := bson.M{
			"$set": bson.M{
				"user_id":     doc.UserID,
				"name":        doc.Name,
				"name_key":    doc.NameKey,
				"status":      doc.Status,
				"coin":        doc.Coin,
				"fish_caught": doc.FishCaught,
				"bot_json":    doc.BotJSON,
			},
		}
		models = append(models, mongo.NewUpdateOneModel().SetFilter(bson.M{"_id": doc.ID}).SetUpdate(update))
	}

	opts := options.BulkWrite().SetOrdered(false)
	if _, err := s.bots.BulkWrite(ctx, models, opts); err != nil {
		return fmt.Errorf("failed to save bots: %w", err)
	}
	return nil
}

// Stats aggregates fleet totals server-side.
func (s *MongoStore) Stats(ctx context.Context) (model.FleetStats, error) {
	var stats model.FleetStats

	users, err := s.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return stats, fmt.Errorf("failed to count users: %w", err)
	}
	stats.TotalUsers = users

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "bots", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "coins", Value: bson.D{{Key: "$sum", Value: "$coin"}}},
			{Key: "fish", Value: bson.D{{Key: "$sum", Value: "$fish_caught"}}},
		}}},
	}
	cursor, err := s.bots.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate bots: %w", err)
	}
	defer cursor.Close(ctx)

	var totals []struct {
		Bots  int64 `bson:"bots"`
		Coins int64 `bson:"coins"`
		Fish  int64 `bson:"fish"`
	}
	if err := cursor.All(ctx, &totals); err != nil {
		return stats, fmt.Errorf("failed to decode totals: %w", err)
	}
	if len(totals) > 0 {
		stats.TotalBots = totals[0].Bots
		stats.TotalCoins = totals[0].Coins
		stats.TotalFish = totals[0].Fish
	}
	return stats, nil
}

// Info returns collection diagnostics.
func (s *MongoStore) Info(ctx context.Context) (map[string]interface{}, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}

	info := map[string]interface{}{
		"status":     "connected",
		"total_bots": stats.TotalBots,
		"users":      stats.TotalUsers,
	}

	online, err := s.bots.CountDocuments(ctx, bson.M{"status": string(model.StatusOnline)})
	if err == nil {
		info["online_bots"] = online
	}

	result := s.db.RunCommand(ctx, bson.D{{Key: "collStats", Value: s.bots.Name()}})
	var collStats bson.M
	if err := result.Decode(&collStats); err == nil {
		if size, ok := collStats["size"].(int64); ok {
			info["db_size_bytes"] = size
		} else if size, ok := collStats["size"].(int32); ok {
			info["db_size_bytes"] = int64(size)
		}
	}
	return info, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ensure MongoStore implements Store
var _ Store = (*MongoStore)(nil)
