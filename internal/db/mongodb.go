package db

import (
	"context"
	"fmt"
	"time"

	"github.com/abkawan/account-ledger/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB is the archive store: a write-side copy of committed ledger
// events kept for auditing. It is never consulted by the core ledger.
type MongoDB struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// creates a new MongoDB instance
func NewMongoDB(uri, dbName string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// pinging the database
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	collection := client.Database(dbName).Collection("ledger_events")

	// _id is the transaction id, so redelivered events dedupe on insert.
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "account_id", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	}

	_, err = collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &MongoDB{
		client:     client,
		collection: collection,
	}, nil
}

// closes the mongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// ArchiveEvent stores a committed ledger event. Redelivered events are
// dropped on the unique _id, so archiving is idempotent.
func (m *MongoDB) ArchiveEvent(ctx context.Context, event *models.LedgerEvent) error {
	_, err := m.collection.InsertOne(ctx, event)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to archive event: %w", err)
	}
	return nil
}

// EventsByAccount returns archived events for an account, oldest first.
func (m *MongoDB) EventsByAccount(ctx context.Context, accountID string, limit int64) ([]*models.LedgerEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(limit)

	cursor, err := m.collection.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*models.LedgerEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	return events, nil
}
