package service

import (
	"context"
	"fmt"
	"time"

	"messageboard/storage"
	"messageboard/storage/models"
)

type CommentService struct {
	storage storage.CommentStorage
	now     func() time.Time
}

func NewCommentService(s storage.CommentStorage) *CommentService {
	return &CommentService{storage: s, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *CommentService) WithClock(now func() time.Time) *CommentService {
	s.now = now
	return s
}

// AddToPost stores a comment under postId and returns its id. The post is
// not looked up first: commenting on an unknown id creates the comment
// anyway.
func (s *CommentService) AddToPost(ctx context.Context, postId, authorEmail, body string) (string, error) {
	err := requireFields(
		field{"author_email", authorEmail},
		field{"body", body},
	)
	if err != nil {
		return "", err
	}

	id, err := s.storage.AddComment(ctx, postId, models.Comment{
		AuthorEmail:  authorEmail,
		Body:         body,
		CreationDate: s.now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		return "", fmt.Errorf("add comment to post %s: %w", postId, err)
	}
	return id, nil
}

// GetForPost returns the comments of postId, oldest first.
func (s *CommentService) GetForPost(ctx context.Context, postId string) ([]models.Comment, error) {
	comments, err := s.storage.GetComments(ctx, postId)
	if err != nil {
		return nil, fmt.Errorf("get comments of post %s: %w", postId, err)
	}
	return comments, nil
}
