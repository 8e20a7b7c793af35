package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"messageboard/storage/models"
)

var (
	InternalError  = errors.New("storage internal error")
	ClientError    = errors.New("storage client error")
	NotFoundError  = fmt.Errorf("%w.not_found", ClientError)
	ForbiddenError = fmt.Errorf("%w.forbidden", ClientError)
)

type Storage interface {
	PostStorage
	CommentStorage
	Ping(ctx context.Context) error
}

type PostStorage interface {
	// AddPost persists post and returns it with the store-assigned Id.
	AddPost(ctx context.Context, post models.Post) (models.Post, error)
	GetPost(ctx context.Context, postId string) (models.Post, error)
	GetPosts(ctx context.Context) ([]models.Post, error)
	// UpdatePost replaces subject and body and sets the change date, but only
	// if the stored post belongs to authorEmail. The check and the write are a
	// single atomic step: NotFoundError when the post is absent,
	// ForbiddenError when it is owned by someone else.
	UpdatePost(ctx context.Context, postId, authorEmail, subject, body string, changeDate time.Time) (models.Post, error)
}

type CommentStorage interface {
	// AddComment appends comment under postId and returns the new comment id.
	// The parent post is not required to exist.
	AddComment(ctx context.Context, postId string, comment models.Comment) (string, error)
	// GetComments returns the comments of postId ordered by creation date.
	GetComments(ctx context.Context, postId string) ([]models.Comment, error)
}
