package repository

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tabletop/internal/model"
)

// MatchRepo archives finished sessions in MongoDB
type MatchRepo interface {
	Create(ctx context.Context, match *model.Match) error
	GetByRoomID(ctx context.Context, roomID string) (*model.Match, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Match, error)
	EnsureIndexes(ctx context.Context) error
}

type matchRepo struct {
	collection *mongo.Collection
}

// NewMatchRepo creates a new match repository
func NewMatchRepo(db *mongo.Database) MatchRepo {
	return &matchRepo{
		collection: db.Collection("matches"),
	}
}

func (r *matchRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "endedAt", Value: -1}}},
		{Keys: bson.D{{Key: "participantUserIds", Value: 1}, {Key: "endedAt", Value: -1}}},
	})
	return err
}

func (r *matchRepo) Create(ctx context.Context, match *model.Match) error {
	if match.ID == "" {
		match.ID = uuid.NewString()
	}
	_, err := r.collection.InsertOne(ctx, match)
	return err
}

// GetByRoomID returns the most recently ended match of a room
func (r *matchRepo) GetByRoomID(ctx context.Context, roomID string) (*model.Match, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "endedAt", Value: -1}})
	var match model.Match
	err := r.collection.FindOne(ctx, bson.M{"roomId": roomID}, opts).Decode(&match)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *matchRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Match, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "endedAt", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"participantUserIds": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	matches := make([]*model.Match, 0)
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}
