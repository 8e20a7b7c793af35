// Package storagetest holds the behaviour every storage.Storage backend must
// share. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"messageboard/storage"
	"messageboard/storage/models"
)

// Factory returns an empty, or at least isolated, storage for one test.
type Factory func(t *testing.T) storage.Storage

func Run(t *testing.T, newStorage Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"AddAndGetPost", testAddAndGetPost},
		{"GetMissingPost", testGetMissingPost},
		{"GetPosts", testGetPosts},
		{"UpdatePostByAuthor", testUpdatePostByAuthor},
		{"UpdatePostByOtherUser", testUpdatePostByOtherUser},
		{"UpdateMissingPost", testUpdateMissingPost},
		{"CommentsOrderedByCreationDate", testCommentsOrdered},
		{"CommentsScopedToPost", testCommentsScopedToPost},
		{"CommentOnMissingPost", testCommentOnMissingPost},
		{"CommentIndexIdIsNotAPost", testCommentIndexIdIsNotAPost},
		{"Ping", testPing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStorage(t))
		})
	}
}

// Millisecond precision is the lowest common denominator of the backends.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func newPost(author string, at time.Time) models.Post {
	return models.Post{
		AuthorEmail:  author,
		Subject:      "subject " + uuid.NewString(),
		Body:         "body",
		CreationDate: at,
		ChangeDate:   at,
	}
}

func testAddAndGetPost(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	at := now()

	created, err := s.AddPost(ctx, newPost("a@x.com", at))
	require.NoError(t, err)
	require.NotEmpty(t, created.Id)

	got, err := s.GetPost(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.Id, got.Id)
	assert.Equal(t, "a@x.com", got.AuthorEmail)
	assert.Equal(t, created.Subject, got.Subject)
	assert.Equal(t, "body", got.Body)
	assert.True(t, at.Equal(got.CreationDate), "creation date %s != %s", got.CreationDate, at)
	assert.True(t, got.CreationDate.Equal(got.ChangeDate))
}

func testGetMissingPost(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	for _, id := range []string{"does-not-exist", "000000000000000000000000"} {
		_, err := s.GetPost(ctx, id)
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.NotFoundError)
		assert.ErrorIs(t, err, storage.ClientError)
	}
}

func testGetPosts(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	first, err := s.AddPost(ctx, newPost("a@x.com", now()))
	require.NoError(t, err)
	second, err := s.AddPost(ctx, newPost("b@x.com", now()))
	require.NoError(t, err)

	posts, err := s.GetPosts(ctx)
	require.NoError(t, err)
	require.NotNil(t, posts)

	byId := make(map[string]models.Post)
	for _, p := range posts {
		byId[p.Id] = p
	}
	require.Contains(t, byId, first.Id)
	require.Contains(t, byId, second.Id)
	assert.Equal(t, "b@x.com", byId[second.Id].AuthorEmail)
}

func testUpdatePostByAuthor(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	at := now()
	created, err := s.AddPost(ctx, newPost("a@x.com", at))
	require.NoError(t, err)

	later := at.Add(5 * time.Millisecond)
	updated, err := s.UpdatePost(ctx, created.Id, "a@x.com", "S2", "B2", later)
	require.NoError(t, err)
	assert.Equal(t, created.Id, updated.Id)
	assert.Equal(t, "S2", updated.Subject)
	assert.Equal(t, "B2", updated.Body)
	assert.Equal(t, "a@x.com", updated.AuthorEmail)
	assert.True(t, at.Equal(updated.CreationDate))
	assert.True(t, later.Equal(updated.ChangeDate))

	got, err := s.GetPost(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, "S2", got.Subject)
	assert.Equal(t, "B2", got.Body)
	assert.True(t, later.Equal(got.ChangeDate))
}

func testUpdatePostByOtherUser(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	created, err := s.AddPost(ctx, newPost("a@x.com", now()))
	require.NoError(t, err)

	_, err = s.UpdatePost(ctx, created.Id, "b@x.com", "S2", "B2", now().Add(time.Second))
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ForbiddenError)

	got, err := s.GetPost(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.Subject, got.Subject)
	assert.Equal(t, "body", got.Body)
	assert.True(t, created.ChangeDate.Equal(got.ChangeDate))
}

func testUpdateMissingPost(t *testing.T, s storage.Storage) {
	_, err := s.UpdatePost(context.Background(), "000000000000000000000000", "a@x.com", "S", "B", now())
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.NotFoundError)
}

func testCommentsOrdered(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	postId := uuid.NewString()
	base := now()

	// inserted out of order on purpose
	offsets := []time.Duration{20 * time.Millisecond, 0, 10 * time.Millisecond}
	for i, offset := range offsets {
		id, err := s.AddComment(ctx, postId, models.Comment{
			AuthorEmail:  "c@x.com",
			Body:         []string{"third", "first", "second"}[i],
			CreationDate: base.Add(offset),
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	}

	comments, err := s.GetComments(ctx, postId)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "first", comments[0].Body)
	assert.Equal(t, "second", comments[1].Body)
	assert.Equal(t, "third", comments[2].Body)
	for i := 1; i < len(comments); i++ {
		assert.False(t, comments[i].CreationDate.Before(comments[i-1].CreationDate))
	}
}

func testCommentsScopedToPost(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	post, err := s.AddPost(ctx, newPost("a@x.com", now()))
	require.NoError(t, err)
	other, err := s.AddPost(ctx, newPost("a@x.com", now()))
	require.NoError(t, err)

	id, err := s.AddComment(ctx, post.Id, models.Comment{AuthorEmail: "c@x.com", Body: "hi", CreationDate: now()})
	require.NoError(t, err)

	comments, err := s.GetComments(ctx, post.Id)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, id, comments[0].Id)
	assert.Equal(t, "c@x.com", comments[0].AuthorEmail)
	assert.Equal(t, "hi", comments[0].Body)

	comments, err = s.GetComments(ctx, other.Id)
	require.NoError(t, err)
	assert.NotNil(t, comments)
	assert.Empty(t, comments)
}

func testCommentOnMissingPost(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	postId := "missing-" + uuid.NewString()

	_, err := s.AddComment(ctx, postId, models.Comment{AuthorEmail: "c@x.com", Body: "orphan", CreationDate: now()})
	require.NoError(t, err)

	comments, err := s.GetComments(ctx, postId)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "orphan", comments[0].Body)
}

func testCommentIndexIdIsNotAPost(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	post, err := s.AddPost(ctx, newPost("a@x.com", now()))
	require.NoError(t, err)
	_, err = s.AddComment(ctx, post.Id, models.Comment{AuthorEmail: "c@x.com", Body: "hi", CreationDate: now()})
	require.NoError(t, err)

	id := post.Id + ":comments"
	_, err = s.GetPost(ctx, id)
	assert.ErrorIs(t, err, storage.NotFoundError)
	_, err = s.UpdatePost(ctx, id, "a@x.com", "S", "B", now())
	assert.ErrorIs(t, err, storage.NotFoundError)
}

func testPing(t *testing.T, s storage.Storage) {
	require.NoError(t, s.Ping(context.Background()))
}
