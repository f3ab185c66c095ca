package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	hist "bgscan/internal/domain/history"
	errs "bgscan/internal/errors"
)

const historyCollection = "history"

type HistoryRepository struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewHistoryRepository(log *zap.SugaredLogger, mongo *mongo.Database) *HistoryRepository {
	return &HistoryRepository{
		log:   log,
		mongo: mongo,
	}
}

// EnsureIndexes makes the position ID unique and keeps newest-first listing
// on an index.
func (h *HistoryRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := h.mongo.Collection(historyCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "position.id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "saved_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create history indexes: %w", err)
	}
	return nil
}

func (h *HistoryRepository) Upsert(ctx context.Context, item hist.Item) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := h.mongo.Collection(historyCollection)
	filter := bson.M{"position.id": item.ID()}

	_, err := collection.ReplaceOne(ctx, filter, item, options.Replace().SetUpsert(true))
	if err != nil {
		h.log.Errorf("failed to upsert history item %s: %v", item.ID(), err)
		return err
	}
	return nil
}

func (h *HistoryRepository) List(ctx context.Context, limit int) ([]hist.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "saved_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := h.mongo.Collection(historyCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		h.log.Errorf("failed to list history: %v", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]hist.Item, 0)
	if err = cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return items, nil
}

func (h *HistoryRepository) Get(ctx context.Context, id string) (hist.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var item hist.Item
	err := h.mongo.Collection(historyCollection).FindOne(ctx, bson.M{"position.id": id}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return hist.Item{}, errs.ErrHistoryItemNotFound
	} else if err != nil {
		h.log.Error(err)
		return hist.Item{}, err
	}
	return item, nil
}

func (h *HistoryRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := h.mongo.Collection(historyCollection).DeleteOne(ctx, bson.M{"position.id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrHistoryItemNotFound
	}
	return nil
}

func (h *HistoryRepository) DeleteAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := h.mongo.Collection(historyCollection).DeleteMany(ctx, bson.M{})
	if err != nil {
		return err
	}
	h.log.Infof("история очищена, удалено %d записей", res.DeletedCount)
	return nil
}

func (h *HistoryRepository) Trim(ctx context.Context, keep int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := h.mongo.Collection(historyCollection)
	opts := options.Find().
		SetSort(bson.D{{Key: "saved_at", Value: -1}}).
		SetSkip(int64(keep)).
		SetProjection(bson.M{"position.id": 1})

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var stale []struct {
		Position struct {
			ID string `bson:"id"`
		} `bson:"position"`
	}
	if err = cursor.All(ctx, &stale); err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	ids := make([]string, 0, len(stale))
	for _, s := range stale {
		ids = append(ids, s.Position.ID)
	}
	_, err = collection.DeleteMany(ctx, bson.M{"position.id": bson.M{"$in": ids}})
	return err
}
