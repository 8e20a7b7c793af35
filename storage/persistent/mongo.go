package persistent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"messageboard/storage"
	"messageboard/storage/models"
)

const (
	postsCollection    = "posts"
	commentsCollection = "comments"
)

type Post struct {
	Id           primitive.ObjectID `bson:"_id,omitempty"`
	AuthorEmail  string             `bson:"author_email"`
	Subject      string             `bson:"subject"`
	Body         string             `bson:"body"`
	CreationDate time.Time          `bson:"creation_date"`
	ChangeDate   time.Time          `bson:"change_date"`
}

func (p *Post) toModel() models.Post {
	return models.Post{
		Id:           p.Id.Hex(),
		AuthorEmail:  p.AuthorEmail,
		Subject:      p.Subject,
		Body:         p.Body,
		CreationDate: p.CreationDate.UTC(),
		ChangeDate:   p.ChangeDate.UTC(),
	}
}

// Comment documents live in their own collection; PostId plays the role of
// the parent path of a sub-collection and is stored verbatim, so comments
// under ids that are not valid ObjectIDs are accepted too.
type Comment struct {
	Id           primitive.ObjectID `bson:"_id,omitempty"`
	PostId       string             `bson:"postId"`
	AuthorEmail  string             `bson:"author_email"`
	Body         string             `bson:"body"`
	CreationDate time.Time          `bson:"creation_date"`
}

func (c *Comment) toModel() models.Comment {
	return models.Comment{
		Id:           c.Id.Hex(),
		AuthorEmail:  c.AuthorEmail,
		Body:         c.Body,
		CreationDate: c.CreationDate.UTC(),
	}
}

// BSON dates carry milliseconds only.
func mongoTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

type MongoStorage struct {
	client   *mongo.Client
	posts    *mongo.Collection
	comments *mongo.Collection
}

func (s *MongoStorage) AddPost(ctx context.Context, post models.Post) (models.Post, error) {
	doc := Post{
		AuthorEmail:  post.AuthorEmail,
		Subject:      post.Subject,
		Body:         post.Body,
		CreationDate: mongoTime(post.CreationDate),
		ChangeDate:   mongoTime(post.ChangeDate),
	}
	id, err := s.posts.InsertOne(ctx, doc)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to insert post: %s %w", err.Error(), storage.InternalError)
	}
	doc.Id = id.InsertedID.(primitive.ObjectID)
	return doc.toModel(), nil
}

func (s *MongoStorage) GetPost(ctx context.Context, postId string) (models.Post, error) {
	var result Post
	postMongoId, err := primitive.ObjectIDFromHex(postId)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to convert provided id to Mongo object id %w", storage.NotFoundError)
	}
	err = s.posts.FindOne(ctx, bson.M{"_id": postMongoId}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Post{}, fmt.Errorf("no document with id %v: %w", postId, storage.NotFoundError)
		}
		return models.Post{}, fmt.Errorf("failed to find post: %s %w", err.Error(), storage.InternalError)
	}
	return result.toModel(), nil
}

func (s *MongoStorage) GetPosts(ctx context.Context) ([]models.Post, error) {
	cursor, err := s.posts.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to find posts: %s, %w", err.Error(), storage.InternalError)
	}
	defer closeCursor(ctx, cursor)

	posts := make([]models.Post, 0)
	for cursor.Next(ctx) {
		var next Post
		if err = cursor.Decode(&next); err != nil {
			return nil, fmt.Errorf("decode error: %s, %w", err, storage.InternalError)
		}
		posts = append(posts, next.toModel())
	}
	if err = cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %s, %w", err, storage.InternalError)
	}
	return posts, nil
}

func (s *MongoStorage) UpdatePost(
	ctx context.Context, postId, authorEmail, subject, body string, changeDate time.Time) (models.Post, error) {

	var result Post
	postMongoId, err := primitive.ObjectIDFromHex(postId)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to convert provided id to Mongo object id %w", storage.NotFoundError)
	}
	filter := bson.M{"_id": postMongoId, "author_email": authorEmail}
	update := bson.M{
		"$set": bson.M{
			"subject":     subject,
			"body":        body,
			"change_date": mongoTime(changeDate),
		},
	}

	upsert := false
	after := options.After
	opt := options.FindOneAndUpdateOptions{
		ReturnDocument: &after,
		Upsert:         &upsert,
	}
	err = s.posts.FindOneAndUpdate(ctx, filter, update, &opt).Decode(&result)
	if err == nil {
		return result.toModel(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Post{}, fmt.Errorf("failed to update post: %s %s %w", err.Error(), postId, storage.InternalError)
	}

	// The guarded write matched nothing: find out whether the post is missing
	// or belongs to someone else.
	err = s.posts.FindOne(ctx, bson.M{"_id": postMongoId}).Decode(&result)
	if err == nil {
		return models.Post{}, fmt.Errorf("post %s is owned by another user: %s %w", postId, result.AuthorEmail, storage.ForbiddenError)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Post{}, fmt.Errorf("no document with id %v: %w", postId, storage.NotFoundError)
	}
	return models.Post{}, fmt.Errorf("failed to find post: %s %w", err.Error(), storage.InternalError)
}

func (s *MongoStorage) AddComment(ctx context.Context, postId string, comment models.Comment) (string, error) {
	doc := Comment{
		PostId:       postId,
		AuthorEmail:  comment.AuthorEmail,
		Body:         comment.Body,
		CreationDate: mongoTime(comment.CreationDate),
	}
	id, err := s.comments.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert comment: %s %w", err.Error(), storage.InternalError)
	}
	return id.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *MongoStorage) GetComments(ctx context.Context, postId string) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "creation_date", Value: 1}})
	cursor, err := s.comments.Find(ctx, bson.M{"postId": postId}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find comments of post %s: %s, %w", postId, err.Error(), storage.InternalError)
	}
	defer closeCursor(ctx, cursor)

	comments := make([]models.Comment, 0)
	for cursor.Next(ctx) {
		var next Comment
		if err = cursor.Decode(&next); err != nil {
			return nil, fmt.Errorf("decode error: %s, %w", err, storage.InternalError)
		}
		comments = append(comments, next.toModel())
	}
	if err = cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %s, %w", err, storage.InternalError)
	}
	return comments, nil
}

func (s *MongoStorage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping: %s %w", err.Error(), storage.InternalError)
	}
	return nil
}

func closeCursor(ctx context.Context, cursor *mongo.Cursor) {
	if err := cursor.Close(ctx); err != nil {
		log.Printf("Cursor closing failed: %s", err.Error())
	}
}

func CreateMongoStorage(ctx context.Context, dbUrl, dbName string) (storage.Storage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dbUrl))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	db := client.Database(dbName)
	comments := db.Collection(commentsCollection)
	if err = ensureCommentsIndexes(ctx, comments); err != nil {
		return nil, err
	}

	return &MongoStorage{
		client:   client,
		posts:    db.Collection(postsCollection),
		comments: comments,
	}, nil
}
