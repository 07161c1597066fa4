package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"tokenledger.mini/tlm/internal/ledger"
	"tokenledger.mini/tlm/internal/types"
)

const testAdmin = types.Address("aa11000000000000000000000000000000000000000000000000000000000000")

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "ledger-test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEmptyStoreHasNoSnapshot(t *testing.T) {
	s := setupStore(t)
	if _, err := s.LatestSnapshot(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSnapshotPersistAndRestore(t *testing.T) {
	s := setupStore(t)

	l, err := ledger.New(testAdmin, nil)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	user := types.Address("a11ce00000000000000000000000000000000000000000000000000000000000")
	if err := l.Mint(testAdmin, user, ledgerAmount(t, "500")); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if err := l.Stake(user, ledgerAmount(t, "200")); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	if err := s.SaveSnapshot(l.Snapshot()); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := s.LatestSnapshot()
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	restored, err := ledger.FromSnapshot(loaded)
	if err != nil {
		t.Fatalf("FromSnapshot failed: %v", err)
	}
	if !reflect.DeepEqual(l.Snapshot(), restored.Snapshot()) {
		t.Error("restored ledger differs from original")
	}
}

func TestSnapshotHistoryPruned(t *testing.T) {
	s := setupStore(t)

	l, err := ledger.New(testAdmin, nil)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	for i := 0; i < defaultMaxSnapshots+5; i++ {
		if err := s.SaveSnapshot(l.Snapshot()); err != nil {
			t.Fatalf("SaveSnapshot %d failed: %v", i, err)
		}
	}

	infos, err := s.Snapshots()
	if err != nil {
		t.Fatalf("Snapshots failed: %v", err)
	}
	if len(infos) != defaultMaxSnapshots {
		t.Errorf("expected %d snapshots after pruning, got %d", defaultMaxSnapshots, len(infos))
	}
	// newest first
	if len(infos) >= 2 && infos[0].ID < infos[1].ID {
		t.Error("snapshot list not ordered newest first")
	}
}

func TestEventLogRoundTrip(t *testing.T) {
	s := setupStore(t)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		ev := ledger.Event{
			ID:        uuid.New().String(),
			Type:      ledger.EventTransfer,
			From:      "a11ce00000000000000000000000000000000000000000000000000000000000",
			To:        "b0b0000000000000000000000000000000000000000000000000000000000000",
			Amount:    fmt.Sprintf("%d", (i+1)*10),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.AppendEvent(ev); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}

	events, err := s.RecentEvents(2)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	// newest first
	if events[0].Amount != "30" || events[1].Amount != "20" {
		t.Errorf("unexpected ordering: %s, %s", events[0].Amount, events[1].Amount)
	}
	if events[0].From == "" || events[0].To == "" {
		t.Error("event addresses lost in round trip")
	}
}

func TestStoreAsEventSink(t *testing.T) {
	s := setupStore(t)

	l, err := ledger.New(testAdmin, nil)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	l.Subscribe(s)

	user := types.Address("a11ce00000000000000000000000000000000000000000000000000000000000")
	if err := l.Mint(testAdmin, user, ledgerAmount(t, "100")); err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	events, err := s.RecentEvents(10)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != ledger.EventMint || events[0].Amount != "100" {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestUpdatesChannelSignals(t *testing.T) {
	s := setupStore(t)

	l, err := ledger.New(testAdmin, nil)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	if err := s.SaveSnapshot(l.Snapshot()); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	select {
	case <-s.Updates():
	case <-time.After(time.Second):
		t.Error("expected update notification after snapshot write")
	}
}

func ledgerAmount(t *testing.T, s string) *uint256.Int {
	t.Helper()
	v, err := ledger.ParseAmount(s)
	if err != nil {
		t.Fatalf("parse amount %q: %v", s, err)
	}
	return v
}
