package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hashicorp/go-memdb"
)

type row struct {
	Key    string
	Group  string
	Amount int
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Table("rows", "Group"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func insert(ctx context.Context, s *Store, r row) error {
	return s.Write(ctx, func(txn *memdb.Txn) error { return txn.Insert("rows", r) })
}

func get(t *testing.T, s *Store, key string) (row, bool) {
	t.Helper()
	obj, err := s.Read(context.Background()).First("rows", IDIndex, key)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	if obj == nil {
		return row{}, false
	}
	return obj.(row), true
}

func TestNew_DuplicateTable(t *testing.T) {
	if _, err := New(Table("rows"), Table("rows")); err == nil {
		t.Error("expected an error for a duplicate table")
	}
}

func TestWrite_CommitsOutsideTx(t *testing.T) {
	s := newTestStore(t)
	if err := insert(context.Background(), s, row{Key: "a", Group: "g", Amount: 1}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	r, ok := get(t, s, "a")
	if !ok {
		t.Fatal("expected the row to be committed")
	}
	if r.Amount != 1 {
		t.Errorf("expected amount 1, got %d", r.Amount)
	}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := insert(ctx, s, row{Key: "a", Group: "g"}); err != nil {
			return err
		}
		// visible inside the transaction
		obj, err := s.Read(ctx).First("rows", IDIndex, "a")
		if err != nil || obj == nil {
			t.Errorf("expected the row inside the tx, got %v (%v)", obj, err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, ok := get(t, s, "a"); ok {
		t.Error("expected the write to be discarded")
	}
}

func TestWithinTx_NestedJoinsOuter(t *testing.T) {
	s := newTestStore(t)
	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		return s.WithinTx(ctx, func(inner context.Context) error {
			return insert(inner, s, row{Key: "n", Group: "g"})
		})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := get(t, s, "n"); !ok {
		t.Error("expected the nested write to commit with the outer tx")
	}
}

func TestWithinTx_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.WithinTx(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("expected fn not to run")
	}
}

func TestWithinTx_SerializesReadModifyWrite(t *testing.T) {
	s := newTestStore(t)
	if err := insert(context.Background(), s, row{Key: "counter", Group: "g"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.WithinTx(context.Background(), func(ctx context.Context) error {
				obj, err := s.Read(ctx).First("rows", IDIndex, "counter")
				if err != nil {
					return err
				}
				r := obj.(row)
				r.Amount++
				return insert(ctx, s, r)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("worker: %v", err)
		}
	}

	if r, _ := get(t, s, "counter"); r.Amount != workers {
		t.Errorf("expected %d increments, got %d", workers, r.Amount)
	}
}

func TestSecondaryIndexAndCollect(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, r := range []row{{Key: "a", Group: "x"}, {Key: "b", Group: "y"}, {Key: "c", Group: "x"}} {
		if err := insert(ctx, s, r); err != nil {
			t.Fatalf("insert %s: %v", r.Key, err)
		}
	}

	it, err := s.Read(ctx).Get("rows", "Group", "x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	rows := Collect[row](it)
	if len(rows) != 2 || rows[0].Key != "a" || rows[1].Key != "c" {
		t.Errorf("expected rows a and c, got %+v", rows)
	}
}

func TestNextSeq_Increases(t *testing.T) {
	s := newTestStore(t)
	if a, b := s.NextSeq(), s.NextSeq(); a >= b {
		t.Errorf("expected increasing sequence, got %d then %d", a, b)
	}
}
