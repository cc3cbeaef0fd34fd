package store

import (
	"context"
	"errors"

	"github.com/inkwell-blog/inkwell/internal/model"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateUser = errors.New("duplicate user")
	// ErrConflict reports a toggle that lost a race against the same user's
	// concurrent toggle on the same post.
	ErrConflict = errors.New("conflicting update")
)

// PostListOpts selects a window of posts ordered newest first.
// A Limit of zero or less means no limit.
type PostListOpts struct {
	AuthorID string
	Offset   int
	Limit    int
}

type Store interface {
	UserStore
	PostStore
	CounterStore
	CommentStore
	LikeStore
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, userID string) (model.User, error)
}

type PostStore interface {
	// CreatePost allocates the next post id from the counter, writes the post
	// and its zero-valued like ledger entry as one unit, and returns the id.
	CreatePost(ctx context.Context, post *model.Post) (int64, error)
	GetPost(ctx context.Context, id int64) (model.Post, error)
	UpdatePost(ctx context.Context, id int64, edit model.PostEdit) error
	DeletePost(ctx context.Context, id int64) error
	ListPosts(ctx context.Context, opts PostListOpts) ([]model.Post, error)
}

type CounterStore interface {
	PostCounter(ctx context.Context) (int64, error)
}

type CommentStore interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error)
}

type LikeStore interface {
	GetLike(ctx context.Context, postID int64) (model.Like, error)
	ToggleLike(ctx context.Context, postID int64, userID string) (model.LikeResult, error)
}
