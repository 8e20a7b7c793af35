package in_memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"messageboard/storage"
	"messageboard/storage/models"
)

type InMemoryStorage struct {
	mut            sync.RWMutex
	posts          map[string]models.Post
	postIds        []string
	commentsByPost map[string][]models.Comment
}

func (s *InMemoryStorage) AddPost(_ context.Context, post models.Post) (models.Post, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	post.Id = uuid.New().String()
	s.posts[post.Id] = post
	s.postIds = append(s.postIds, post.Id)
	return post, nil
}

func (s *InMemoryStorage) GetPost(_ context.Context, postId string) (models.Post, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	post, found := s.posts[postId]
	if !found {
		return models.Post{}, fmt.Errorf("no post with id %v: %w", postId, storage.NotFoundError)
	}
	return post, nil
}

func (s *InMemoryStorage) GetPosts(_ context.Context) ([]models.Post, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	posts := make([]models.Post, 0, len(s.postIds))
	for _, id := range s.postIds {
		posts = append(posts, s.posts[id])
	}
	return posts, nil
}

func (s *InMemoryStorage) UpdatePost(
	_ context.Context, postId, authorEmail, subject, body string, changeDate time.Time) (models.Post, error) {

	s.mut.Lock()
	defer s.mut.Unlock()

	post, found := s.posts[postId]
	if !found {
		return models.Post{}, fmt.Errorf("no post with id %v: %w", postId, storage.NotFoundError)
	}
	if post.AuthorEmail != authorEmail {
		return models.Post{}, fmt.Errorf("post %s is owned by another user: %w", postId, storage.ForbiddenError)
	}
	post.Subject = subject
	post.Body = body
	post.ChangeDate = changeDate
	s.posts[postId] = post
	return post, nil
}

func (s *InMemoryStorage) AddComment(_ context.Context, postId string, comment models.Comment) (string, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	comment.Id = uuid.New().String()
	s.commentsByPost[postId] = append(s.commentsByPost[postId], comment)
	return comment.Id, nil
}

func (s *InMemoryStorage) GetComments(_ context.Context, postId string) ([]models.Comment, error) {
	s.mut.RLock()
	stored := s.commentsByPost[postId]
	comments := make([]models.Comment, len(stored))
	copy(comments, stored)
	s.mut.RUnlock()

	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreationDate.Before(comments[j].CreationDate)
	})
	return comments, nil
}

func (s *InMemoryStorage) Ping(context.Context) error {
	return nil
}

func CreateInMemoryStorage() storage.Storage {
	return &InMemoryStorage{
		posts:          make(map[string]models.Post),
		commentsByPost: make(map[string][]models.Comment),
	}
}
