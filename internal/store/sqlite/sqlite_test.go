package sqlite

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/inkwell-blog/inkwell/internal/model"
	"github.com/inkwell-blog/inkwell/internal/store"
	"github.com/inkwell-blog/inkwell/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestSchemaIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	if err := applySchema(st.db); err != nil {
		t.Fatalf("reapply schema: %v", err)
	}
	total, err := st.PostCounter(context.Background())
	if err != nil {
		t.Fatalf("post counter: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected seeded counter 0, got %d", total)
	}
}

func TestFailedCreateDoesNotConsumeID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// A ledger row squatting on id 1 makes the paired insert fail.
	if _, err := st.db.Exec(`INSERT INTO likes (post_id, like_total) VALUES (1, 0)`); err != nil {
		t.Fatalf("seed conflicting ledger: %v", err)
	}
	post := model.Post{Title: "t", Content: "c", CreatedAt: time.Now(), AuthorID: "a", AuthorName: "A"}
	if _, err := st.CreatePost(ctx, &post); err == nil {
		t.Fatalf("expected create to fail")
	}
	total, err := st.PostCounter(ctx)
	if err != nil {
		t.Fatalf("post counter: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected counter rolled back to 0, got %d", total)
	}
	if _, err := st.GetPost(ctx, 1); err != store.ErrNotFound {
		t.Fatalf("expected no post 1, got %v", err)
	}
}

func TestUnseededCounter(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.db.Exec(`DELETE FROM counter`); err != nil {
		t.Fatalf("delete counter: %v", err)
	}
	post := model.Post{Title: "t", Content: "c", CreatedAt: time.Now(), AuthorID: "a", AuthorName: "A"}
	if _, err := st.CreatePost(context.Background(), &post); err == nil {
		t.Fatalf("expected error without a counter row")
	}
}
