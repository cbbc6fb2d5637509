package scheduler

import (
	"testing"

	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/value"
)

type fakeCheckpointer struct {
	calls []string
}

func (f *fakeCheckpointer) Checkpoint(dbName string) error {
	f.calls = append(f.calls, dbName)
	return nil
}

func TestTickerSweepsExpiredKeys(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New(dir, 1)
	db, err := reg.Get("data")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	db.Flex.SetEx("k", value.Int64(1), -1)

	tk := NewTicker(reg, &fakeCheckpointer{})
	tk.sweepAll()

	if _, ok := db.Flex.Get("k"); ok {
		t.Fatalf("expected expired key to be swept")
	}
}

func TestTickerCheckpointsEveryDatabase(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New(dir, 1)
	if _, err := reg.Get("data"); err != nil {
		t.Fatalf("Get data: %v", err)
	}
	if _, err := reg.Get("other"); err != nil {
		t.Fatalf("Get other: %v", err)
	}

	ckpt := &fakeCheckpointer{}
	tk := NewTicker(reg, ckpt)
	tk.checkpointAll()

	if len(ckpt.calls) != 2 {
		t.Fatalf("expected 2 checkpoint calls, got %d: %v", len(ckpt.calls), ckpt.calls)
	}
}
