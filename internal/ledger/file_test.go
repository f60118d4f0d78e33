package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/pkg/logger"
)

func tempStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "ledger.jsonl"), logger.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func rec(day int, params string, ret float64) contracts.LedgerRecord {
	return contracts.LedgerRecord{
		Date:     time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		ParamsID: params,
		Return:   ret,
		Drawdown: -0.01,
		Regime:   contracts.RegimeBull,
	}
}

func TestAppendAndReadBack(t *testing.T) {
	store := tempStore(t)
	ctx := context.Background()

	want := []contracts.LedgerRecord{
		rec(7, "blend=0.30", 0.012),
		rec(14, "blend=0.30", -0.004),
		rec(21, "blend=0.50", 0.021),
	}
	for _, r := range want {
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Records(ctx)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("read %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Date.Equal(want[i].Date) || got[i].ParamsID != want[i].ParamsID || got[i].Return != want[i].Return {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEmptyLedgerReadsEmpty(t *testing.T) {
	store := tempStore(t)

	got, err := store.Records(context.Background())
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("fresh ledger should be empty, got %d records", len(got))
	}
}

func TestTornTrailingLineSkipped(t *testing.T) {
	store := tempStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, rec(7, "blend=0.30", 0.01)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Simulate a crash mid-write
	f, err := os.OpenFile(store.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString(`{"date":"2025-03-14","pa`); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	got, err := store.Records(ctx)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 intact record, got %d", len(got))
	}
}

func TestRecordsReturnsCopy(t *testing.T) {
	store := tempStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, rec(7, "blend=0.30", 0.01)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	first, err := store.Records(ctx)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}

	if err := store.Append(ctx, rec(14, "blend=0.30", 0.02)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(first) != 1 {
		t.Errorf("earlier snapshot grew to %d records", len(first))
	}

	second, err := store.Records(ctx)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(second) != 2 {
		t.Errorf("expected 2 records after second append, got %d", len(second))
	}
}
