package persistent_redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"messageboard/storage"
	"messageboard/storage/models"
)

const (
	postsIndexKey = "posts"
	// WATCH conflicts re-run the ownership check; past this the update fails.
	maxTxAttempts = 10
)

func postKey(postId string) string {
	return "post:" + postId
}

// Comment indexes live outside the post: prefix, so no post id can name one.
func postCommentsKey(postId string) string {
	return "comments:" + postId
}

func commentKey(commentId string) string {
	return "comment:" + commentId
}

// Sorted-set score; microseconds still fit a float64 mantissa.
func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func saveDocument(ctx context.Context, pipe redis.Pipeliner, key string, doc interface{}) error {
	j, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %s %w", key, err.Error(), storage.InternalError)
	}
	pipe.Set(ctx, key, j, 0)
	return nil
}

func decodeDocuments[T any](keys []string, values []interface{}) ([]T, error) {
	docs := make([]T, 0, len(values))
	for i, val := range values {
		raw, ok := val.(string)
		if !ok {
			// index entry without a document; skip it
			continue
		}
		var doc T
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %s %w", keys[i], err.Error(), storage.InternalError)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

type RedisStorage struct {
	client *redis.Client
}

func (s *RedisStorage) AddPost(ctx context.Context, post models.Post) (models.Post, error) {
	post.Id = uuid.New().String()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := saveDocument(ctx, pipe, postKey(post.Id), post); err != nil {
			return err
		}
		pipe.ZAdd(ctx, postsIndexKey, &redis.Z{Score: score(post.CreationDate), Member: post.Id})
		return nil
	})
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to save post to redis: %s %w", err.Error(), storage.InternalError)
	}
	return post, nil
}

func (s *RedisStorage) GetPost(ctx context.Context, postId string) (models.Post, error) {
	return getPost(ctx, s.client, postId)
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getPost(ctx context.Context, client getter, postId string) (models.Post, error) {
	val, err := client.Get(ctx, postKey(postId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Post{}, fmt.Errorf("no post with id %v: %w", postId, storage.NotFoundError)
		}
		return models.Post{}, fmt.Errorf("failed to get post from redis: %s %w", err.Error(), storage.InternalError)
	}
	var post models.Post
	if err = json.Unmarshal([]byte(val), &post); err != nil {
		return models.Post{}, fmt.Errorf("failed to decode post %s: %s %w", postId, err.Error(), storage.InternalError)
	}
	return post, nil
}

func (s *RedisStorage) GetPosts(ctx context.Context) ([]models.Post, error) {
	ids, err := s.client.ZRange(ctx, postsIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %s %w", err.Error(), storage.InternalError)
	}
	if len(ids) == 0 {
		return make([]models.Post, 0), nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = postKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get posts from redis: %s %w", err.Error(), storage.InternalError)
	}
	return decodeDocuments[models.Post](keys, values)
}

func (s *RedisStorage) UpdatePost(
	ctx context.Context, postId, authorEmail, subject, body string, changeDate time.Time) (models.Post, error) {

	key := postKey(postId)
	var updated models.Post
	update := func(tx *redis.Tx) error {
		post, err := getPost(ctx, tx, postId)
		if err != nil {
			return err
		}
		if post.AuthorEmail != authorEmail {
			return fmt.Errorf("post %s is owned by another user: %s %w", postId, post.AuthorEmail, storage.ForbiddenError)
		}
		post.Subject = subject
		post.Body = body
		post.ChangeDate = changeDate
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return saveDocument(ctx, pipe, key, post)
		})
		if err == nil {
			updated = post
		}
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, update, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, storage.ClientError) || errors.Is(err, storage.InternalError) {
			return models.Post{}, err
		}
		return models.Post{}, fmt.Errorf("failed to update post %s: %s %w", postId, err.Error(), storage.InternalError)
	}
	return models.Post{}, fmt.Errorf("post %s kept changing during update: %w", postId, storage.InternalError)
}

func (s *RedisStorage) AddComment(ctx context.Context, postId string, comment models.Comment) (string, error) {
	comment.Id = uuid.New().String()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := saveDocument(ctx, pipe, commentKey(comment.Id), comment); err != nil {
			return err
		}
		pipe.ZAdd(ctx, postCommentsKey(postId), &redis.Z{Score: score(comment.CreationDate), Member: comment.Id})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to save comment to redis: %s %w", err.Error(), storage.InternalError)
	}
	return comment.Id, nil
}

func (s *RedisStorage) GetComments(ctx context.Context, postId string) ([]models.Comment, error) {
	ids, err := s.client.ZRange(ctx, postCommentsKey(postId), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of post %s: %s %w", postId, err.Error(), storage.InternalError)
	}
	if len(ids) == 0 {
		return make([]models.Comment, 0), nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = commentKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get comments from redis: %s %w", err.Error(), storage.InternalError)
	}
	return decodeDocuments[models.Comment](keys, values)
}

func (s *RedisStorage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %s %w", err.Error(), storage.InternalError)
	}
	return nil
}

// CreateRedisStorage accepts either a redis:// URL or a bare host:port.
func CreateRedisStorage(ctx context.Context, redisUrl string) (storage.Storage, error) {
	opts := &redis.Options{Addr: redisUrl}
	if strings.Contains(redisUrl, "://") {
		var err error
		opts, err = redis.ParseURL(redisUrl)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisStorage{client: client}, nil
}
