// Package storetest holds the behaviour every store backend must share.
// Backend packages call Run from their own tests with a constructor that
// returns an empty, freshly seeded store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/inkwell-blog/inkwell/internal/model"
	"github.com/inkwell-blog/inkwell/internal/store"
)

type Factory func(t *testing.T) store.Store

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, st store.Store)
	}{
		{"UserLifecycle", testUserLifecycle},
		{"PostLifecycle", testPostLifecycle},
		{"ConcurrentCreateAllocatesContiguousIDs", testConcurrentCreate},
		{"ListPostsOrderAndWindow", testListPosts},
		{"EditKeepsIdentityFields", testEditKeepsIdentity},
		{"CommentsNewestFirst", testComments},
		{"ToggleRoundTrip", testToggleRoundTrip},
		{"ConcurrentTogglesKeepTotalConsistent", testConcurrentToggles},
		{"ToggleMissingLedger", testToggleMissing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := newStore(t)
			tc.fn(t, st)
		})
	}
}

func newPost(title string, at time.Time) *model.Post {
	return &model.Post{
		Title:      title,
		Content:    "content of " + title,
		CreatedAt:  at,
		AuthorID:   "alice",
		AuthorName: "Alice",
	}
}

func testUserLifecycle(t *testing.T, st store.Store) {
	ctx := context.Background()
	user := model.User{UserID: "alice", Username: "Alice", PasswordHash: "hash", CreatedAt: time.Now()}
	if err := st.CreateUser(ctx, &user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	got, err := st.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Username != "Alice" || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", got)
	}

	dup := model.User{UserID: "alice", Username: "Other", PasswordHash: "x", CreatedAt: time.Now()}
	if err := st.CreateUser(ctx, &dup); !errors.Is(err, store.ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
	if _, err := st.GetUser(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testPostLifecycle(t *testing.T, st store.Store) {
	ctx := context.Background()
	before, err := st.PostCounter(ctx)
	if err != nil {
		t.Fatalf("post counter: %v", err)
	}

	post := newPost("First", time.Now())
	post.ImagePath = "/uploads/postImg-1.png"
	id, err := st.CreatePost(ctx, post)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if id != before+1 {
		t.Fatalf("expected id %d, got %d", before+1, id)
	}

	got, err := st.GetPost(ctx, id)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Title != "First" || got.ImagePath != "/uploads/postImg-1.png" || got.AuthorID != "alice" {
		t.Fatalf("unexpected post: %+v", got)
	}

	like, err := st.GetLike(ctx, id)
	if err != nil {
		t.Fatalf("get like: %v", err)
	}
	if like.Total != 0 || len(like.Members) != 0 {
		t.Fatalf("expected empty ledger, got %+v", like)
	}

	if err := st.DeletePost(ctx, id); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if _, err := st.GetPost(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := st.DeletePost(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	next, err := st.CreatePost(ctx, newPost("Second", time.Now()))
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if next != id+1 {
		t.Fatalf("ids must never be reused: got %d after %d", next, id)
	}
}

func testConcurrentCreate(t *testing.T, st store.Store) {
	ctx := context.Background()
	k, err := st.PostCounter(ctx)
	if err != nil {
		t.Fatalf("post counter: %v", err)
	}

	const n = 24
	ids := make([]int64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = st.CreatePost(ctx, newPost(fmt.Sprintf("post %d", i), time.Now()))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if id != k+int64(i)+1 {
			t.Fatalf("expected ids %d..%d, got %v", k+1, k+n, ids)
		}
	}
	after, err := st.PostCounter(ctx)
	if err != nil {
		t.Fatalf("post counter: %v", err)
	}
	if after != k+n {
		t.Fatalf("expected counter %d, got %d", k+n, after)
	}
}

func testListPosts(t *testing.T, st store.Store) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	var ids []int64
	for i := 0; i < 8; i++ {
		post := newPost(fmt.Sprintf("p%d", i), base.Add(time.Duration(i)*time.Minute))
		if i%2 == 1 {
			post.AuthorID = "bob"
			post.AuthorName = "Bob"
		}
		id, err := st.CreatePost(ctx, post)
		if err != nil {
			t.Fatalf("create post: %v", err)
		}
		ids = append(ids, id)
	}

	all, err := st.ListPosts(ctx, store.PostListOpts{})
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(all) != 8 {
		t.Fatalf("expected 8 posts, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("posts not newest first at %d", i)
		}
	}
	if all[0].ID != ids[7] {
		t.Fatalf("expected newest post %d first, got %d", ids[7], all[0].ID)
	}

	window, err := st.ListPosts(ctx, store.PostListOpts{Offset: 3, Limit: 3})
	if err != nil {
		t.Fatalf("list window: %v", err)
	}
	if len(window) != 3 || window[0].ID != all[3].ID || window[2].ID != all[5].ID {
		t.Fatalf("unexpected window: %+v", window)
	}

	tail, err := st.ListPosts(ctx, store.PostListOpts{Offset: 6, Limit: 3})
	if err != nil {
		t.Fatalf("list tail: %v", err)
	}
	if len(tail) != 2 {
		t.Fatalf("expected 2 posts in tail, got %d", len(tail))
	}

	byBob, err := st.ListPosts(ctx, store.PostListOpts{AuthorID: "bob"})
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	if len(byBob) != 4 {
		t.Fatalf("expected 4 posts by bob, got %d", len(byBob))
	}
	for _, p := range byBob {
		if p.AuthorID != "bob" {
			t.Fatalf("unexpected author %q", p.AuthorID)
		}
	}

	none, err := st.ListPosts(ctx, store.PostListOpts{AuthorID: "nobody"})
	if err != nil {
		t.Fatalf("list by unknown author: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no posts, got %d", len(none))
	}
}

func testEditKeepsIdentity(t *testing.T, st store.Store) {
	ctx := context.Background()
	id, err := st.CreatePost(ctx, newPost("Before", time.Now().Add(-time.Hour)))
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	before, err := st.GetPost(ctx, id)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}

	editedAt := time.Now().Truncate(time.Millisecond)
	err = st.UpdatePost(ctx, id, model.PostEdit{
		Title:     "After",
		Content:   "new content",
		CreatedAt: editedAt,
		ImagePath: "/uploads/new.png",
	})
	if err != nil {
		t.Fatalf("update post: %v", err)
	}
	after, err := st.GetPost(ctx, id)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if after.ID != before.ID || after.AuthorID != before.AuthorID || after.AuthorName != before.AuthorName {
		t.Fatalf("identity fields changed: before %+v after %+v", before, after)
	}
	if after.Title != "After" || after.Content != "new content" || after.ImagePath != "/uploads/new.png" {
		t.Fatalf("mutable fields not updated: %+v", after)
	}
	if !after.CreatedAt.Equal(editedAt) {
		t.Fatalf("expected timestamp %v, got %v", editedAt, after.CreatedAt)
	}

	if err := st.UpdatePost(ctx, id+1000, model.PostEdit{Title: "x", Content: "y", CreatedAt: time.Now()}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testComments(t *testing.T, st store.Store) {
	ctx := context.Background()
	id, err := st.CreatePost(ctx, newPost("Commented", time.Now()))
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		c := model.Comment{
			PostID:     id,
			Body:       fmt.Sprintf("comment %d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
			AuthorID:   "bob",
			AuthorName: "Bob",
		}
		if err := st.CreateComment(ctx, &c); err != nil {
			t.Fatalf("create comment: %v", err)
		}
	}
	comments, err := st.ListCommentsByPost(ctx, id)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("expected 3 comments, got %d", len(comments))
	}
	if comments[0].Body != "comment 2" || comments[2].Body != "comment 0" {
		t.Fatalf("comments not newest first: %+v", comments)
	}

	empty, err := st.ListCommentsByPost(ctx, id+1000)
	if err != nil {
		t.Fatalf("list comments for missing post: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no comments, got %d", len(empty))
	}
}

func testToggleRoundTrip(t *testing.T, st store.Store) {
	ctx := context.Background()
	id, err := st.CreatePost(ctx, newPost("Liked", time.Now()))
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	res, err := st.ToggleLike(ctx, id, "bob")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !res.Liked || res.Total != 1 {
		t.Fatalf("expected liked with total 1, got %+v", res)
	}
	like, err := st.GetLike(ctx, id)
	if err != nil {
		t.Fatalf("get like: %v", err)
	}
	if !like.Has("bob") || like.Total != 1 {
		t.Fatalf("unexpected ledger: %+v", like)
	}

	res, err = st.ToggleLike(ctx, id, "bob")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if res.Liked || res.Total != 0 {
		t.Fatalf("expected unliked with total 0, got %+v", res)
	}
	like, err = st.GetLike(ctx, id)
	if err != nil {
		t.Fatalf("get like: %v", err)
	}
	if like.Has("bob") || like.Total != 0 || len(like.Members) != 0 {
		t.Fatalf("expected original ledger, got %+v", like)
	}
}

func testConcurrentToggles(t *testing.T, st store.Store) {
	ctx := context.Background()
	id, err := st.CreatePost(ctx, newPost("Popular", time.Now()))
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	// Odd users toggle twice (net unlike), even users once (net like).
	const users = 16
	var wg sync.WaitGroup
	errCh := make(chan error, users*2)
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", u)
			times := 1 + u%2
			for i := 0; i < times; i++ {
				if _, err := st.ToggleLike(ctx, id, userID); err != nil {
					errCh <- err
				}
			}
		}(u)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("toggle: %v", err)
	}

	like, err := st.GetLike(ctx, id)
	if err != nil {
		t.Fatalf("get like: %v", err)
	}
	if like.Total != len(like.Members) {
		t.Fatalf("total %d does not match %d members", like.Total, len(like.Members))
	}
	if like.Total != users/2 {
		t.Fatalf("expected %d likes, got %d", users/2, like.Total)
	}
	for u := 0; u < users; u += 2 {
		if !like.Has(fmt.Sprintf("user-%d", u)) {
			t.Fatalf("expected user-%d to be a member", u)
		}
	}
}

func testToggleMissing(t *testing.T, st store.Store) {
	if _, err := st.ToggleLike(context.Background(), 424242, "bob"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.GetLike(context.Background(), 424242); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
