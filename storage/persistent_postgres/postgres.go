// Package persistent_postgres keeps posts and comments in Postgres tables.
package persistent_postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"messageboard/storage"
	"messageboard/storage/models"
)

// comments.post_id has no foreign key: comments may be added under ids
// that have no post.
const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	author_email  TEXT NOT NULL,
	subject       TEXT NOT NULL,
	body          TEXT NOT NULL,
	creation_date TIMESTAMPTZ NOT NULL,
	change_date   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS comments (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	post_id       TEXT NOT NULL,
	author_email  TEXT NOT NULL,
	body          TEXT NOT NULL,
	creation_date TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_post_creation ON comments(post_id, creation_date);
`

const postColumns = `id, author_email, subject, body, creation_date, change_date`

type PostgresStorage struct {
	pool *pgxpool.Pool
}

func scanPost(row pgx.Row) (models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.Id, &p.AuthorEmail, &p.Subject, &p.Body, &p.CreationDate, &p.ChangeDate); err != nil {
		return models.Post{}, err
	}
	p.CreationDate = p.CreationDate.UTC()
	p.ChangeDate = p.ChangeDate.UTC()
	return p, nil
}

func (s *PostgresStorage) AddPost(ctx context.Context, post models.Post) (models.Post, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO posts (author_email, subject, body, creation_date, change_date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+postColumns,
		post.AuthorEmail, post.Subject, post.Body, post.CreationDate, post.ChangeDate)
	created, err := scanPost(row)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to insert post: %s %w", err.Error(), storage.InternalError)
	}
	return created, nil
}

func (s *PostgresStorage) GetPost(ctx context.Context, postId string) (models.Post, error) {
	post, err := scanPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Post{}, fmt.Errorf("no post with id %v: %w", postId, storage.NotFoundError)
		}
		return models.Post{}, fmt.Errorf("failed to find post: %s %w", err.Error(), storage.InternalError)
	}
	return post, nil
}

func (s *PostgresStorage) GetPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+postColumns+` FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("failed to find posts: %s %w", err.Error(), storage.InternalError)
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %s %w", err.Error(), storage.InternalError)
		}
		posts = append(posts, post)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %s %w", err.Error(), storage.InternalError)
	}
	return posts, nil
}

func (s *PostgresStorage) UpdatePost(
	ctx context.Context, postId, authorEmail, subject, body string, changeDate time.Time) (models.Post, error) {

	row := s.pool.QueryRow(ctx,
		`UPDATE posts SET subject = $3, body = $4, change_date = $5
		 WHERE id = $1 AND author_email = $2
		 RETURNING `+postColumns,
		postId, authorEmail, subject, body, changeDate)
	updated, err := scanPost(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Post{}, fmt.Errorf("failed to update post %s: %s %w", postId, err.Error(), storage.InternalError)
	}

	var owner string
	err = s.pool.QueryRow(ctx, `SELECT author_email FROM posts WHERE id = $1`, postId).Scan(&owner)
	if err == nil {
		return models.Post{}, fmt.Errorf("post %s is owned by another user: %s %w", postId, owner, storage.ForbiddenError)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Post{}, fmt.Errorf("no post with id %v: %w", postId, storage.NotFoundError)
	}
	return models.Post{}, fmt.Errorf("failed to find post: %s %w", err.Error(), storage.InternalError)
}

func (s *PostgresStorage) AddComment(ctx context.Context, postId string, comment models.Comment) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO comments (post_id, author_email, body, creation_date)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		postId, comment.AuthorEmail, comment.Body, comment.CreationDate).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert comment: %s %w", err.Error(), storage.InternalError)
	}
	return id, nil
}

func (s *PostgresStorage) GetComments(ctx context.Context, postId string) ([]models.Comment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, author_email, body, creation_date FROM comments
		 WHERE post_id = $1
		 ORDER BY creation_date ASC`, postId)
	if err != nil {
		return nil, fmt.Errorf("failed to find comments of post %s: %s %w", postId, err.Error(), storage.InternalError)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err = rows.Scan(&c.Id, &c.AuthorEmail, &c.Body, &c.CreationDate); err != nil {
			return nil, fmt.Errorf("scan comment: %s %w", err.Error(), storage.InternalError)
		}
		c.CreationDate = c.CreationDate.UTC()
		comments = append(comments, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %s %w", err.Error(), storage.InternalError)
	}
	return comments, nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %s %w", err.Error(), storage.InternalError)
	}
	return nil
}

// CreatePostgresStorage connects to dsn and creates the tables if needed.
func CreatePostgresStorage(ctx context.Context, dsn string) (storage.Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err = pool.Exec(ctx, schema, pgx.QueryExecModeSimpleProtocol); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresStorage{pool: pool}, nil
}
