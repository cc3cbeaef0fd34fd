package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/inkwell-blog/inkwell/internal/store"
	"github.com/inkwell-blog/inkwell/internal/store/storetest"
)

// newTestStore connects to INKWELL_TEST_PG_DSN and empties every table.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("INKWELL_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("INKWELL_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	st, err := Open(ctx, dsn, 16)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if _, err := st.pool.Exec(ctx, `TRUNCATE users, posts, comments, likes, like_members`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if _, err := st.pool.Exec(ctx, `UPDATE counter SET total_post = 0 WHERE name = 'counter'`); err != nil {
		t.Fatalf("reset counter: %v", err)
	}
	return st
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}
