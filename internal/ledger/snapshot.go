package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	"tokenledger.mini/tlm/internal/types"
)

// Snapshot is a full, JSON-friendly copy of ledger state. Amounts are decimal
// strings. Snapshots are what the store persists and what the daemon restores
// at boot.
type Snapshot struct {
	Admin       types.Address                              `json:"admin"`
	Paused      bool                                       `json:"paused"`
	MaxSupply   string                                     `json:"max_supply"`
	TotalSupply string                                     `json:"total_supply"`
	Balances    map[types.Address]string                   `json:"balances"`
	Staked      map[types.Address]string                   `json:"staked_balances"`
	Allowances  map[types.Address]map[types.Address]string `json:"allowances"`
}

// Snapshot returns a copy of the current state. Zero-valued entries are
// omitted; absent and zero are indistinguishable by design.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		Admin:       l.admin,
		Paused:      l.paused,
		MaxSupply:   l.maxSupply.Dec(),
		TotalSupply: l.totalSupply.Dec(),
		Balances:    make(map[types.Address]string),
		Staked:      make(map[types.Address]string),
		Allowances:  make(map[types.Address]map[types.Address]string),
	}
	for addr, v := range l.balances {
		if !v.IsZero() {
			snap.Balances[addr] = v.Dec()
		}
	}
	for addr, v := range l.staked {
		if !v.IsZero() {
			snap.Staked[addr] = v.Dec()
		}
	}
	for key, v := range l.allowances {
		if v.IsZero() {
			continue
		}
		grants, ok := snap.Allowances[key.Owner]
		if !ok {
			grants = make(map[types.Address]string)
			snap.Allowances[key.Owner] = grants
		}
		grants[key.Spender] = v.Dec()
	}
	return snap
}

// FromSnapshot reconstructs a ledger from a persisted snapshot and verifies
// the conservation law before returning it. A snapshot that fails parsing or
// conservation is corrupt and rejected outright.
func FromSnapshot(snap Snapshot) (*Ledger, error) {
	if snap.Admin.IsZero() {
		return nil, fmt.Errorf("snapshot has no admin")
	}
	maxSupply, err := parseSnapshotAmount("max_supply", snap.MaxSupply)
	if err != nil {
		return nil, err
	}
	l, err := New(snap.Admin, maxSupply)
	if err != nil {
		return nil, err
	}
	l.paused = snap.Paused

	total, err := parseSnapshotAmount("total_supply", snap.TotalSupply)
	if err != nil {
		return nil, err
	}
	l.totalSupply.Set(total)
	if l.totalSupply.Gt(&l.maxSupply) {
		return nil, fmt.Errorf("snapshot supply %s exceeds cap %s", snap.TotalSupply, snap.MaxSupply)
	}

	for addr, s := range snap.Balances {
		v, err := parseSnapshotAmount(fmt.Sprintf("balance of %s", addr), s)
		if err != nil {
			return nil, err
		}
		l.balances[addr] = *v
	}
	for addr, s := range snap.Staked {
		v, err := parseSnapshotAmount(fmt.Sprintf("staked balance of %s", addr), s)
		if err != nil {
			return nil, err
		}
		l.staked[addr] = *v
	}
	for owner, grants := range snap.Allowances {
		for spender, s := range grants {
			v, err := parseSnapshotAmount(fmt.Sprintf("allowance %s->%s", owner, spender), s)
			if err != nil {
				return nil, err
			}
			l.allowances[AllowanceKey{Owner: owner, Spender: spender}] = *v
		}
	}

	if err := l.CheckConservation(); err != nil {
		return nil, fmt.Errorf("corrupt snapshot: %w", err)
	}
	return l, nil
}

func parseSnapshotAmount(field, s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", field, err)
	}
	return v, nil
}
