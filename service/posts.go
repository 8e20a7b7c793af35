package service

import (
	"context"
	"fmt"
	"time"

	"messageboard/storage"
	"messageboard/storage/models"
)

// isoLayout renders UTC as "+00:00" rather than "Z".
const (
	isoLayout       = "2006-01-02T15:04:05-07:00"
	isoLayoutMicros = "2006-01-02T15:04:05.000000-07:00"
)

type PostService struct {
	storage storage.PostStorage
	now     func() time.Time
}

func NewPostService(s storage.PostStorage) *PostService {
	return &PostService{storage: s, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *PostService) WithClock(now func() time.Time) *PostService {
	s.now = now
	return s
}

func (s *PostService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *PostService) Create(ctx context.Context, authorEmail, subject, body string) (models.Post, error) {
	err := requireFields(
		field{"author_email", authorEmail},
		field{"subject", subject},
		field{"body", body},
	)
	if err != nil {
		return models.Post{}, err
	}

	now := s.timestamp()
	post, err := s.storage.AddPost(ctx, models.Post{
		AuthorEmail:  authorEmail,
		Subject:      subject,
		Body:         body,
		CreationDate: now,
		ChangeDate:   now,
	})
	if err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (s *PostService) GetOne(ctx context.Context, postId string) (models.Post, error) {
	post, err := s.storage.GetPost(ctx, postId)
	if err != nil {
		return models.Post{}, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// GetAll returns posts in whatever order the store iterates them.
func (s *PostService) GetAll(ctx context.Context) ([]models.Post, error) {
	posts, err := s.storage.GetPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}
	return posts, nil
}

// Update replaces subject and body of a post owned by callerEmail. The
// ownership check happens inside the store's conditional write, so a
// concurrent change of owner can not slip in between check and write.
func (s *PostService) Update(ctx context.Context, postId, callerEmail, subject, body string) (models.Post, error) {
	err := requireFields(
		field{"author_email", callerEmail},
		field{"subject", subject},
		field{"body", body},
	)
	if err != nil {
		return models.Post{}, err
	}

	post, err := s.storage.UpdatePost(ctx, postId, callerEmail, subject, body, s.timestamp())
	if err != nil {
		return models.Post{}, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

// ToPublic projects a stored post into its external shape. It is the only
// place post timestamps get formatted.
func ToPublic(post models.Post) models.PublicPost {
	return models.PublicPost{
		Id:          post.Id,
		AuthorEmail: post.AuthorEmail,
		Subject:     post.Subject,
		Body:        post.Body,
		CreatedAt:   isoFormat(post.CreationDate),
		UpdatedAt:   isoFormat(post.ChangeDate),
	}
}

func ToPublicList(posts []models.Post) []models.PublicPost {
	public := make([]models.PublicPost, 0, len(posts))
	for _, p := range posts {
		public = append(public, ToPublic(p))
	}
	return public
}

// isoFormat prints microseconds only when there are any.
func isoFormat(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(isoLayout)
	}
	return t.Format(isoLayoutMicros)
}
