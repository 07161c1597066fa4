// Package store provides durable ledger persistence backed by SQLite: a
// bounded history of full-state snapshots and an append-only log of emitted
// events. The daemon restores the latest snapshot at boot and records a new
// one after each delivered transaction; the event table is what external
// indexers replay.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tokenledger.mini/tlm/internal/ledger"
	"tokenledger.mini/tlm/internal/types"

	_ "modernc.org/sqlite"
)

const (
	defaultDBFile       = "ledger.db"
	maxBusyTimeoutMs    = 5000
	defaultMaxSnapshots = 20
)

// ErrNoSnapshot is returned when the snapshot history is empty.
var ErrNoSnapshot = errors.New("no ledger snapshots available")

// Store manages ledger snapshots and the event log in a SQLite database file.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	file    string
	keep    int
	updates chan struct{}
}

// SnapshotInfo describes one entry in the snapshot history.
type SnapshotInfo struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Supply    string    `json:"total_supply"`
}

// NewStore creates a ledger store backed by SQLite.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		filePath = defaultDBFile
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	s := &Store{
		file:    absPath,
		keep:    defaultMaxSnapshots,
		updates: make(chan struct{}, 1),
	}

	if err := s.openDB(); err != nil {
		return nil, err
	}

	if err := s.ensureSchema(); err != nil {
		_ = s.closeDB()
		return nil, err
	}

	return s, nil
}

// Updates returns a channel that receives a value whenever a snapshot or
// event is written.
func (s *Store) Updates() <-chan struct{} {
	return s.updates
}

func (s *Store) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeDB()
}

func (s *Store) openDB() error {
	if err := os.MkdirAll(filepath.Dir(s.file), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s", filepath.Clean(s.file))

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return fmt.Errorf("set busy timeout: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) closeDB() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL,
		total_supply TEXT NOT NULL,
		state TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}

	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		from_addr TEXT,
		to_addr TEXT,
		owner TEXT,
		spender TEXT,
		staker TEXT,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create events table: %w", err)
	}

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	return nil
}

// SaveSnapshot appends a snapshot to the history and prunes entries beyond
// the retention limit.
func (s *Store) SaveSnapshot(snap ledger.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`INSERT INTO snapshots (created_at, total_supply, state) VALUES (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), snap.TotalSupply, string(data))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	_, err = s.db.Exec(`DELETE FROM snapshots WHERE id NOT IN (
		SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`, s.keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}

	s.notify()
	return nil
}

// LatestSnapshot returns the most recent snapshot, or ErrNoSnapshot when the
// history is empty.
func (s *Store) LatestSnapshot() (ledger.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRow(`SELECT state FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	var snap ledger.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Snapshots lists the snapshot history, newest first.
func (s *Store) Snapshots() ([]SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, created_at, total_supply FROM snapshots ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &createdAt, &info.Supply); err != nil {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			info.CreatedAt = ts
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// AppendEvent records an emitted ledger event in the append-only log.
func (s *Store) AppendEvent(ev ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO events (id, type, from_addr, to_addr, owner, spender, staker, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.Type), string(ev.From), string(ev.To), string(ev.Owner),
		string(ev.Spender), string(ev.Staker), ev.Amount,
		ev.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	s.notify()
	return nil
}

// RecentEvents returns up to n events, newest first.
func (s *Store) RecentEvents(n int) ([]ledger.Event, error) {
	if n <= 0 {
		n = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, type, from_addr, to_addr, owner, spender, staker, amount, created_at
		FROM events ORDER BY created_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []ledger.Event
	for rows.Next() {
		var ev ledger.Event
		var evType, from, to, owner, spender, staker, createdAt string
		if err := rows.Scan(&ev.ID, &evType, &from, &to, &owner, &spender, &staker, &ev.Amount, &createdAt); err != nil {
			continue
		}
		ev.Type = ledger.EventType(evType)
		ev.From = addr(from)
		ev.To = addr(to)
		ev.Owner = addr(owner)
		ev.Spender = addr(spender)
		ev.Staker = addr(staker)
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			ev.Timestamp = ts
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func addr(s string) types.Address { return types.Address(s) }

// OnEvent lets the store subscribe directly to the ledger's event feed. A
// write failure is logged, not surfaced: the ledger mutation has already
// committed and the event log is an external-consumer convenience.
func (s *Store) OnEvent(ev ledger.Event) {
	if err := s.AppendEvent(ev); err != nil {
		log.Printf("WARNING: failed to persist ledger event %s: %v", ev.ID, err)
	}
}
