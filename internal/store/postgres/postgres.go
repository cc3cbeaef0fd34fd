// Package postgres implements store.Store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inkwell-blog/inkwell/internal/model"
	"github.com/inkwell-blog/inkwell/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and applies the schema. maxConns <= 0 keeps the
// pgxpool default.
func Open(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	cfg.ConnConfig.StatementCacheCapacity = 128
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applySchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS users (
	userid TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS counter (
	name TEXT PRIMARY KEY,
	total_post BIGINT NOT NULL DEFAULT 0
);
INSERT INTO counter (name, total_post) VALUES ('counter', 0) ON CONFLICT (name) DO NOTHING;

CREATE TABLE IF NOT EXISTS posts (
	id BIGINT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	author_id TEXT NOT NULL,
	author_name TEXT NOT NULL,
	image_path TEXT
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_posts_author ON posts (author_id, created_at DESC);

CREATE TABLE IF NOT EXISTS comments (
	id BIGSERIAL PRIMARY KEY,
	post_id BIGINT NOT NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	author_id TEXT NOT NULL,
	author_name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments (post_id, created_at DESC);

CREATE TABLE IF NOT EXISTS likes (
	post_id BIGINT PRIMARY KEY,
	like_total INTEGER NOT NULL DEFAULT 0 CHECK (like_total >= 0)
);

CREATE TABLE IF NOT EXISTS like_members (
	post_id BIGINT NOT NULL,
	user_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (post_id, user_id)
);
`,
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}
	var current int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return err
	}
	for i := current; i < len(migrations); i++ {
		if _, err := pool.Exec(ctx, migrations[i], pgx.QueryExecModeSimpleProtocol); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (userid, username, password_hash, created_at)
VALUES ($1, $2, $3, $4)
`, user.UserID, user.Username, user.PasswordHash, user.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrDuplicateUser
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, userID string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, `
SELECT userid, username, password_hash, created_at FROM users WHERE userid = $1
`, userID).Scan(&u.UserID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, store.ErrNotFound
	}
	return u, err
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		id, err = allocatePostID(ctx, tx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO posts (id, title, content, created_at, author_id, author_name, image_path)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, id, post.Title, post.Content, post.CreatedAt, post.AuthorID, post.AuthorName, nullIfEmpty(post.ImagePath)); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO likes (post_id, like_total) VALUES ($1, 0)`, id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// allocatePostID holds the counter row lock until tx ends; concurrent
// creators queue behind it and a rollback returns the id.
func allocatePostID(ctx context.Context, tx pgx.Tx) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
UPDATE counter SET total_post = total_post + 1 WHERE name = 'counter' RETURNING total_post
`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errors.New("post counter is not seeded")
	}
	return id, err
}

func (s *Store) PostCounter(ctx context.Context) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `SELECT total_post FROM counter WHERE name = 'counter'`).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	return total, err
}

func (s *Store) GetPost(ctx context.Context, id int64) (model.Post, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, title, content, created_at, author_id, author_name, image_path FROM posts WHERE id = $1
`, id)
	return scanPost(row)
}

func (s *Store) UpdatePost(ctx context.Context, id int64, edit model.PostEdit) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE posts SET title = $1, content = $2, created_at = $3, image_path = $4 WHERE id = $5
`, edit.Title, edit.Content, edit.CreatedAt, nullIfEmpty(edit.ImagePath), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListPosts(ctx context.Context, opts store.PostListOpts) ([]model.Post, error) {
	var limit *int
	if opts.Limit > 0 {
		limit = &opts.Limit
	}
	// A NULL limit is LIMIT ALL.
	rows, err := s.pool.Query(ctx, `
SELECT id, title, content, created_at, author_id, author_name, image_path
FROM posts
WHERE ($1 = '' OR author_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`, opts.AuthorID, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *Store) CreateComment(ctx context.Context, comment *model.Comment) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO comments (post_id, body, created_at, author_id, author_name) VALUES ($1, $2, $3, $4, $5)
`, comment.PostID, comment.Body, comment.CreatedAt, comment.AuthorID, comment.AuthorName)
	return err
}

func (s *Store) ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := s.pool.Query(ctx, `
SELECT post_id, body, created_at, author_id, author_name
FROM comments
WHERE post_id = $1
ORDER BY created_at DESC, id DESC
`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.PostID, &c.Body, &c.CreatedAt, &c.AuthorID, &c.AuthorName); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *Store) GetLike(ctx context.Context, postID int64) (model.Like, error) {
	like := model.Like{PostID: postID, Members: []string{}}
	err := s.pool.QueryRow(ctx, `SELECT like_total FROM likes WHERE post_id = $1`, postID).Scan(&like.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Like{}, store.ErrNotFound
	}
	if err != nil {
		return model.Like{}, err
	}
	rows, err := s.pool.Query(ctx, `
SELECT user_id FROM like_members WHERE post_id = $1 ORDER BY created_at ASC, user_id ASC
`, postID)
	if err != nil {
		return model.Like{}, err
	}
	members, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return model.Like{}, err
	}
	like.Members = append(like.Members, members...)
	return like, nil
}

// ToggleLike runs under READ COMMITTED: membership rows are per user, and
// the like_total update re-reads the locked row, so concurrent togglers from
// different users serialize on the ledger row without losing increments.
func (s *Store) ToggleLike(ctx context.Context, postID int64, userID string) (model.LikeResult, error) {
	result := model.LikeResult{PostID: postID}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM like_members WHERE post_id = $1 AND user_id = $2`, postID, userID)
		if err != nil {
			return err
		}
		delta := -1
		if tag.RowsAffected() == 0 {
			tag, err = tx.Exec(ctx, `
INSERT INTO like_members (post_id, user_id, created_at) VALUES ($1, $2, $3)
ON CONFLICT (post_id, user_id) DO NOTHING
`, postID, userID, time.Now())
			if err != nil {
				return err
			}
			delta = int(tag.RowsAffected())
		}
		result.Liked = delta >= 0
		err = tx.QueryRow(ctx, `
UPDATE likes SET like_total = like_total + $1 WHERE post_id = $2 RETURNING like_total
`, delta, postID).Scan(&result.Total)
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	})
	if err != nil {
		return model.LikeResult{}, err
	}
	return result, nil
}

func scanPost(row pgx.Row) (model.Post, error) {
	var p model.Post
	var image *string
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.CreatedAt, &p.AuthorID, &p.AuthorName, &image); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	if image != nil {
		p.ImagePath = *image
	}
	return p, nil
}

func nullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
