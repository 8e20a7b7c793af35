package persistent

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ensureCommentsIndexes(ctx context.Context, comments *mongo.Collection) error {
	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "postId", Value: 1},
				{Key: "creation_date", Value: 1},
			},
		},
	}
	opts := options.CreateIndexes().SetMaxTime(10 * time.Second)

	_, err := comments.Indexes().CreateMany(ctx, indexModels, opts)
	if err != nil {
		return fmt.Errorf("comments: failed to ensure indexes %w", err)
	}
	return nil
}
