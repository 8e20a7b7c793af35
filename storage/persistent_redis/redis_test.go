package persistent_redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"messageboard/storage"
	"messageboard/storage/models"
	"messageboard/storage/storagetest"
)

func newTestStorage(t *testing.T) (storage.Storage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := CreateRedisStorage(context.Background(), mr.Addr())
	require.NoError(t, err)
	return s, mr
}

func TestRedisStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		s, _ := newTestStorage(t)
		return s
	})
}

func TestRedisUrlIsAccepted(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := CreateRedisStorage(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
}

func TestPostDocumentLayout(t *testing.T) {
	s, mr := newTestStorage(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	created, err := s.AddPost(ctx, models.Post{AuthorEmail: "a@x.com", Subject: "S", Body: "B", CreationDate: at, ChangeDate: at})
	require.NoError(t, err)

	assert.True(t, mr.Exists(postKey(created.Id)))
	members, err := mr.ZMembers(postsIndexKey)
	require.NoError(t, err)
	assert.Equal(t, []string{created.Id}, members)

	commentId, err := s.AddComment(ctx, created.Id, models.Comment{AuthorEmail: "c@x.com", Body: "hi", CreationDate: at})
	require.NoError(t, err)
	assert.True(t, mr.Exists(commentKey(commentId)))
	members, err = mr.ZMembers("comments:" + created.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{commentId}, members)
	assert.False(t, mr.Exists("post:"+created.Id+":comments"))
}

func TestGetPostsSkipsDanglingIndexEntries(t *testing.T) {
	s, mr := newTestStorage(t)
	ctx := context.Background()

	created, err := s.AddPost(ctx, models.Post{AuthorEmail: "a@x.com", Subject: "S", Body: "B", CreationDate: time.Now().UTC()})
	require.NoError(t, err)
	_, err = mr.ZAdd(postsIndexKey, 1, "gone")
	require.NoError(t, err)

	posts, err := s.GetPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, created.Id, posts[0].Id)
}

func TestCorruptDocumentIsInternalError(t *testing.T) {
	s, mr := newTestStorage(t)
	require.NoError(t, mr.Set(postKey("broken"), "{not json"))

	_, err := s.GetPost(context.Background(), "broken")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.InternalError)
}

// rewriteAfterRead changes the watched post right after the transaction
// reads it, for the first remaining reads.
type rewriteAfterRead struct {
	mr        *miniredis.Miniredis
	key       string
	remaining int
	reads     int
}

func (h *rewriteAfterRead) BeforeProcess(ctx context.Context, _ redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h *rewriteAfterRead) AfterProcess(_ context.Context, cmd redis.Cmder) error {
	args := cmd.Args()
	if cmd.Name() != "get" || len(args) != 2 || args[1] != h.key {
		return nil
	}
	h.reads++
	if h.remaining > 0 {
		h.remaining--
		current, err := h.mr.Get(h.key)
		if err != nil {
			return err
		}
		return h.mr.Set(h.key, current)
	}
	return nil
}

func (h *rewriteAfterRead) BeforeProcessPipeline(ctx context.Context, _ []redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h *rewriteAfterRead) AfterProcessPipeline(context.Context, []redis.Cmder) error {
	return nil
}

func newPostWithConflicts(t *testing.T, conflicts int) (*RedisStorage, *rewriteAfterRead, models.Post) {
	t.Helper()
	s, mr := newTestStorage(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	created, err := s.AddPost(context.Background(), models.Post{AuthorEmail: "a@x.com", Subject: "S", Body: "B", CreationDate: at, ChangeDate: at})
	require.NoError(t, err)

	rs := s.(*RedisStorage)
	hook := &rewriteAfterRead{mr: mr, key: postKey(created.Id), remaining: conflicts}
	rs.client.AddHook(hook)
	return rs, hook, created
}

func TestUpdatePostRetriesAfterConcurrentWrite(t *testing.T) {
	s, hook, created := newPostWithConflicts(t, 2)
	later := created.ChangeDate.Add(time.Second)

	updated, err := s.UpdatePost(context.Background(), created.Id, "a@x.com", "S2", "B2", later)
	require.NoError(t, err)
	assert.Equal(t, "S2", updated.Subject)
	assert.Equal(t, 3, hook.reads)

	got, err := s.GetPost(context.Background(), created.Id)
	require.NoError(t, err)
	assert.Equal(t, "S2", got.Subject)
	assert.True(t, later.Equal(got.ChangeDate))
}

func TestUpdatePostGivesUpAfterMaxAttempts(t *testing.T) {
	s, hook, created := newPostWithConflicts(t, maxTxAttempts)

	_, err := s.UpdatePost(context.Background(), created.Id, "a@x.com", "S2", "B2", created.ChangeDate.Add(time.Second))
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.InternalError)
	assert.NotErrorIs(t, err, storage.ClientError)
	assert.Equal(t, maxTxAttempts, hook.reads)

	got, err := s.GetPost(context.Background(), created.Id)
	require.NoError(t, err)
	assert.Equal(t, "S", got.Subject)
}
