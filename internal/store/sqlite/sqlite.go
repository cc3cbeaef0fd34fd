package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inkwell-blog/inkwell/internal/model"
	"github.com/inkwell-blog/inkwell/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Every transaction below relies on SQLite's single writer. One
	// connection also keeps shared-cache in-memory databases lock free.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS users (
	userid TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS counter (
	name TEXT PRIMARY KEY,
	total_post INTEGER NOT NULL DEFAULT 0
);
INSERT OR IGNORE INTO counter (name, total_post) VALUES ('counter', 0);

CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	author_id TEXT NOT NULL,
	author_name TEXT NOT NULL,
	image_path TEXT
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id, created_at DESC);

CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL,
	body TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	author_id TEXT NOT NULL,
	author_name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id, created_at DESC);

CREATE TABLE IF NOT EXISTS likes (
	post_id INTEGER PRIMARY KEY,
	like_total INTEGER NOT NULL DEFAULT 0 CHECK (like_total >= 0)
);

CREATE TABLE IF NOT EXISTS like_members (
	post_id INTEGER NOT NULL,
	user_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (post_id, user_id)
);
`,
	// Future migrations go here:
	// Migration 2: `ALTER TABLE ...`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (userid, username, password_hash, created_at)
VALUES (?, ?, ?, ?)
`, user.UserID, user.Username, user.PasswordHash, user.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT userid, username, password_hash, created_at
FROM users
WHERE userid = ?
`, userID)
	var u model.User
	var created int64
	if err := row.Scan(&u.UserID, &u.Username, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	u.CreatedAt = time.UnixMilli(created)
	return u, nil
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id, err = allocatePostID(ctx, tx)
	if err != nil {
		return 0, err
	}
	if _, err = tx.ExecContext(ctx, `
INSERT INTO posts (id, title, content, created_at, author_id, author_name, image_path)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, id, post.Title, post.Content, post.CreatedAt.UnixMilli(), post.AuthorID, post.AuthorName, nullIfEmpty(post.ImagePath)); err != nil {
		return 0, err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO likes (post_id, like_total) VALUES (?, 0)`, id); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// allocatePostID bumps the counter and reads the new value in one statement.
// The row stays write-locked until tx ends, so a rolled back post also
// rolls back its id.
func allocatePostID(ctx context.Context, tx *sql.Tx) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
UPDATE counter SET total_post = total_post + 1
WHERE name = 'counter'
RETURNING total_post
`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errors.New("post counter is not seeded")
	}
	return id, err
}

func (s *Store) PostCounter(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT total_post FROM counter WHERE name = 'counter'`).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	return total, err
}

func (s *Store) GetPost(ctx context.Context, id int64) (model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, content, created_at, author_id, author_name, image_path
FROM posts
WHERE id = ?
`, id)
	return scanPost(row)
}

func (s *Store) UpdatePost(ctx context.Context, id int64, edit model.PostEdit) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE posts SET title = ?, content = ?, created_at = ?, image_path = ?
WHERE id = ?
`, edit.Title, edit.Content, edit.CreatedAt.UnixMilli(), nullIfEmpty(edit.ImagePath), id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListPosts(ctx context.Context, opts store.PostListOpts) ([]model.Post, error) {
	query := `
SELECT id, title, content, created_at, author_id, author_name, image_path
FROM posts`
	var args []any
	if opts.AuthorID != "" {
		query += ` WHERE author_id = ?`
		args = append(args, opts.AuthorID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, max(opts.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	_, err := s.db.ExecContext(ctx, `
INSERT INTO comments (post_id, body, created_at, author_id, author_name)
VALUES (?, ?, ?, ?, ?)
`, comment.PostID, comment.Body, comment.CreatedAt.UnixMilli(), comment.AuthorID, comment.AuthorName)
	return err
}

func (s *Store) ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT post_id, body, created_at, author_id, author_name
FROM comments
WHERE post_id = ?
ORDER BY created_at DESC, id DESC
`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		var created int64
		if err := rows.Scan(&c.PostID, &c.Body, &created, &c.AuthorID, &c.AuthorName); err != nil {
			return nil, err
		}
		c.CreatedAt = time.UnixMilli(created)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *Store) GetLike(ctx context.Context, postID int64) (model.Like, error) {
	like := model.Like{PostID: postID, Members: []string{}}
	err := s.db.QueryRowContext(ctx, `SELECT like_total FROM likes WHERE post_id = ?`, postID).Scan(&like.Total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Like{}, store.ErrNotFound
		}
		return model.Like{}, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id FROM like_members WHERE post_id = ? ORDER BY created_at ASC, user_id ASC
`, postID)
	if err != nil {
		return model.Like{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return model.Like{}, err
		}
		like.Members = append(like.Members, member)
	}
	return like, rows.Err()
}

// ToggleLike flips userID's membership and adjusts the total in the same
// transaction, so the total never drifts from the member count.
func (s *Store) ToggleLike(ctx context.Context, postID int64, userID string) (result model.LikeResult, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.LikeResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM like_members WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return model.LikeResult{}, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return model.LikeResult{}, err
	}

	delta := -1
	if removed == 0 {
		res, err = tx.ExecContext(ctx, `
INSERT INTO like_members (post_id, user_id, created_at) VALUES (?, ?, ?)
ON CONFLICT (post_id, user_id) DO NOTHING
`, postID, userID, time.Now().UnixMilli())
		if err != nil {
			return model.LikeResult{}, err
		}
		added, err := res.RowsAffected()
		if err != nil {
			return model.LikeResult{}, err
		}
		delta = int(added)
	}

	result = model.LikeResult{PostID: postID, Liked: delta >= 0}
	err = tx.QueryRowContext(ctx, `
UPDATE likes SET like_total = like_total + ?
WHERE post_id = ?
RETURNING like_total
`, delta, postID).Scan(&result.Total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = store.ErrNotFound
		}
		return model.LikeResult{}, err
	}
	if err = tx.Commit(); err != nil {
		return model.LikeResult{}, err
	}
	return result, nil
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (model.Post, error) {
	var p model.Post
	var created int64
	var image sql.NullString
	if err := scanner.Scan(&p.ID, &p.Title, &p.Content, &created, &p.AuthorID, &p.AuthorName, &image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	if image.Valid {
		p.ImagePath = image.String
	}
	p.CreatedAt = time.UnixMilli(created)
	return p, nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
