// Package feed windows the reverse-chronological post list into the landing
// view and the follow-up pages the client fetches while scrolling.
package feed

import (
	"context"
	"strconv"

	"github.com/inkwell-blog/inkwell/internal/model"
	"github.com/inkwell-blog/inkwell/internal/store"
)

const (
	LandingSize = 6
	PageSize    = 3
	// Pages start after the first PageSize posts of the landing view.
	leadingSkip = 3
)

type Lister interface {
	ListPosts(ctx context.Context, opts store.PostListOpts) ([]model.Post, error)
}

type Paginator struct {
	posts Lister
}

func New(posts Lister) *Paginator {
	return &Paginator{posts: posts}
}

// Offset is the number of posts skipped before page. Pages below 1 are
// page 1.
func Offset(page int) int {
	if page < 1 {
		page = 1
	}
	return leadingSkip + (page-1)*PageSize
}

// ParsePage reads a page query value, defaulting to 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (p *Paginator) Landing(ctx context.Context) ([]model.Post, error) {
	return p.posts.ListPosts(ctx, store.PostListOpts{Limit: LandingSize})
}

func (p *Paginator) Page(ctx context.Context, page int) ([]model.Post, error) {
	return p.posts.ListPosts(ctx, store.PostListOpts{Offset: Offset(page), Limit: PageSize})
}

// ByAuthor lists every post by authorID, newest first.
func (p *Paginator) ByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	return p.posts.ListPosts(ctx, store.PostListOpts{AuthorID: authorID})
}
