package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/inkwell-blog/inkwell/internal/store"
	"github.com/inkwell-blog/inkwell/internal/store/storetest"
)

// newTestStore opens a throwaway database on INKWELL_TEST_MONGO_URI and
// drops it when the test ends.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("INKWELL_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("INKWELL_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	name := fmt.Sprintf("inkwell_test_%d", time.Now().UnixNano())
	st, err := Open(ctx, uri, name)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.db.Drop(context.Background())
		_ = st.Close()
	})
	return st
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestCounterStartsAtZero(t *testing.T) {
	st := newTestStore(t)
	total, err := st.PostCounter(context.Background())
	if err != nil {
		t.Fatalf("post counter: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected 0 on a fresh database, got %d", total)
	}
}
