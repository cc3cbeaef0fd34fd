package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/inkwell-blog/inkwell/internal/model"
	"github.com/inkwell-blog/inkwell/internal/store"
)

// sliceLister serves posts already in newest-first order.
type sliceLister []model.Post

func (s sliceLister) ListPosts(_ context.Context, opts store.PostListOpts) ([]model.Post, error) {
	var out []model.Post
	for _, p := range s {
		if opts.AuthorID != "" && p.AuthorID != opts.AuthorID {
			continue
		}
		out = append(out, p)
	}
	if opts.Offset >= len(out) {
		return nil, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func newestFirst(n int) sliceLister {
	base := time.Now()
	posts := make(sliceLister, 0, n)
	for i := n; i >= 1; i-- {
		author := "alice"
		if i%2 == 0 {
			author = "bob"
		}
		posts = append(posts, model.Post{
			ID:        int64(i),
			Title:     fmt.Sprintf("p%d", i),
			AuthorID:  author,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return posts
}

func ids(posts []model.Post) []int64 {
	out := make([]int64, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOffset(t *testing.T) {
	cases := map[int]int{-4: 3, 0: 3, 1: 3, 2: 6, 3: 9, 10: 30}
	for page, want := range cases {
		if got := Offset(page); got != want {
			t.Fatalf("Offset(%d) = %d, want %d", page, got, want)
		}
	}
}

func TestParsePage(t *testing.T) {
	cases := map[string]int{"": 1, "abc": 1, "0": 1, "-2": 1, "1": 1, "7": 7}
	for raw, want := range cases {
		if got := ParsePage(raw); got != want {
			t.Fatalf("ParsePage(%q) = %d, want %d", raw, got, want)
		}
	}
}

func TestWindowsOverTenPosts(t *testing.T) {
	p := New(newestFirst(10))
	ctx := context.Background()

	landing, err := p.Landing(ctx)
	if err != nil {
		t.Fatalf("landing: %v", err)
	}
	if got := ids(landing); !equalIDs(got, []int64{10, 9, 8, 7, 6, 5}) {
		t.Fatalf("landing = %v", got)
	}

	want := map[int][]int64{
		1: {7, 6, 5},
		2: {4, 3, 2},
		3: {1},
		4: {},
	}
	for page, expected := range want {
		posts, err := p.Page(ctx, page)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if got := ids(posts); !equalIDs(got, expected) {
			t.Fatalf("page %d = %v, want %v", page, got, expected)
		}
	}

	zero, _ := p.Page(ctx, 0)
	one, _ := p.Page(ctx, 1)
	if !equalIDs(ids(zero), ids(one)) {
		t.Fatalf("page 0 should match page 1")
	}
}

func TestEmptyFeed(t *testing.T) {
	p := New(sliceLister(nil))
	landing, err := p.Landing(context.Background())
	if err != nil {
		t.Fatalf("landing: %v", err)
	}
	if len(landing) != 0 {
		t.Fatalf("expected empty landing, got %d", len(landing))
	}
}

func TestByAuthor(t *testing.T) {
	p := New(newestFirst(6))
	posts, err := p.ByAuthor(context.Background(), "bob")
	if err != nil {
		t.Fatalf("by author: %v", err)
	}
	if got := ids(posts); !equalIDs(got, []int64{6, 4, 2}) {
		t.Fatalf("bob's posts = %v", got)
	}
}
