// Package ledger implements the authoritative fungible-token accounting state
// machine for tlm: liquid balances, staked balances, delegated-spending
// allowances, an administrative pause flag, and a hard supply cap. All
// mutating operations are atomic (checks are front-loaded, no partial effects
// survive a failure) and serialized behind one mutex, and all expected
// failures are returned as coded values rather than raised. The caller
// identity is always passed in explicitly: the ledger never authenticates
// anything itself.
package ledger

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"tokenledger.mini/tlm/internal/types"
)

// DefaultMaxSupply is the supply cap used when genesis does not override it:
// 10^18 minimal units.
var DefaultMaxSupply = uint256.NewInt(1_000_000_000_000_000_000)

// AllowanceKey identifies one directional spending grant.
type AllowanceKey struct {
	Owner   types.Address
	Spender types.Address
}

// Ledger holds the full token accounting state. Construct with New (genesis)
// or FromSnapshot (restart); zero value is not usable.
//
// Invariants maintained across every operation:
//   - totalSupply == sum(balances) + sum(staked), always
//   - 0 <= totalSupply <= maxSupply
//   - admin is never the zero address
type Ledger struct {
	mu sync.Mutex

	admin       types.Address
	paused      bool
	maxSupply   uint256.Int
	totalSupply uint256.Int
	balances    map[types.Address]uint256.Int
	staked      map[types.Address]uint256.Int
	allowances  map[AllowanceKey]uint256.Int

	sinks []EventSink
}

// New creates a genesis ledger: the deployer becomes admin, the pause flag is
// clear, supply is zero and all mappings are empty. A nil maxSupply selects
// DefaultMaxSupply.
func New(admin types.Address, maxSupply *uint256.Int) (*Ledger, error) {
	if admin.IsZero() {
		return nil, fmt.Errorf("genesis admin must not be the zero address")
	}
	if maxSupply == nil {
		maxSupply = DefaultMaxSupply
	}
	l := &Ledger{
		admin:      admin,
		balances:   make(map[types.Address]uint256.Int),
		staked:     make(map[types.Address]uint256.Int),
		allowances: make(map[AllowanceKey]uint256.Int),
	}
	l.maxSupply.Set(maxSupply)
	return l, nil
}

// ParseAmount converts a decimal wire amount into a uint256 value. Any string
// that is not a plain base-10 unsigned integer fails with ErrInvalidAmount.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	return v, nil
}

// validation primitives; pure, shared by every mutating operation

func validateAddress(a types.Address) error {
	if a.IsZero() {
		return ErrZeroAddress
	}
	return nil
}

func validateAmount(a *uint256.Int) error {
	if a == nil || a.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}

func (l *Ledger) requireAdmin(caller types.Address) error {
	if caller != l.admin {
		return ErrNotAuthorized
	}
	return nil
}

func (l *Ledger) requireNotPaused() error {
	if l.paused {
		return ErrPaused
	}
	return nil
}

// SetPaused sets the global pause flag and returns its new value. Admin only;
// deliberately works while already paused so the admin can always unpause.
func (l *Ledger) SetPaused(caller types.Address, pause bool) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return false, err
	}
	l.paused = pause
	return l.paused, nil
}

// TransferAdmin reassigns the admin identity. Transferring to the current
// admin is a legal no-op.
func (l *Ledger) TransferAdmin(caller, newAdmin types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if err := validateAddress(newAdmin); err != nil {
		return err
	}
	l.admin = newAdmin
	return nil
}

// Mint creates amount new tokens in recipient's liquid balance. Admin only,
// and not gated by pause: the admin can mint while the ledger is frozen.
func (l *Ledger) Mint(caller, recipient types.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if err := validateAddress(recipient); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	supply, overflow := new(uint256.Int).AddOverflow(&l.totalSupply, amount)
	if overflow || supply.Gt(&l.maxSupply) {
		return ErrMaxSupplyReached
	}

	l.totalSupply.Set(supply)
	l.credit(l.balances, recipient, amount)
	l.emit(Event{Type: EventMint, To: recipient, Amount: amount.Dec()})
	return nil
}

// Burn destroys amount tokens from the caller's liquid balance.
func (l *Ledger) Burn(caller types.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireNotPaused(); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if !l.hasAtLeast(l.balances, caller, amount) {
		return ErrInsufficientBalance
	}

	l.debit(l.balances, caller, amount)
	l.totalSupply.Sub(&l.totalSupply, amount)
	l.emit(Event{Type: EventBurn, From: caller, Amount: amount.Dec()})
	return nil
}

// Transfer moves amount from the caller's liquid balance to recipient's.
// Self-transfer is legal and nets to zero.
func (l *Ledger) Transfer(caller, recipient types.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireNotPaused(); err != nil {
		return err
	}
	if err := validateAddress(recipient); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if !l.hasAtLeast(l.balances, caller, amount) {
		return ErrInsufficientBalance
	}

	l.debit(l.balances, caller, amount)
	l.credit(l.balances, recipient, amount)
	l.emit(Event{Type: EventTransfer, From: caller, To: recipient, Amount: amount.Dec()})
	return nil
}

// Approve sets the caller's allowance for spender to exactly amount. The
// grant is an absolute overwrite, never additive; approving zero revokes.
// Zero is a legal amount here, which is why no amount validation runs.
func (l *Ledger) Approve(caller, spender types.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireNotPaused(); err != nil {
		return err
	}
	if err := validateAddress(spender); err != nil {
		return err
	}
	if caller == spender {
		return ErrSelfApproval
	}

	var v uint256.Int
	if amount != nil {
		v.Set(amount)
	}
	l.allowances[AllowanceKey{Owner: caller, Spender: spender}] = v
	l.emit(Event{Type: EventApproval, Owner: caller, Spender: spender, Amount: v.Dec()})
	return nil
}

// TransferFrom spends the caller's allowance to move amount from owner's
// liquid balance to recipient's. The allowance check runs before the balance
// check; a call failing both reports InsufficientAllowance. Nothing blocks
// owner == caller explicitly, but Approve forbids self-approval so no such
// allowance can exist and the call fails the allowance check.
func (l *Ledger) TransferFrom(caller, owner, recipient types.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireNotPaused(); err != nil {
		return err
	}
	if err := validateAddress(owner); err != nil {
		return err
	}
	if err := validateAddress(recipient); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	key := AllowanceKey{Owner: owner, Spender: caller}
	allowance := l.allowances[key]
	if allowance.Lt(amount) {
		return ErrInsufficientAllowance
	}
	if !l.hasAtLeast(l.balances, owner, amount) {
		return ErrInsufficientBalance
	}

	allowance.Sub(&allowance, amount)
	l.allowances[key] = allowance
	l.debit(l.balances, owner, amount)
	l.credit(l.balances, recipient, amount)
	l.emit(Event{Type: EventTransfer, From: owner, To: recipient, Amount: amount.Dec()})
	return nil
}

// Stake locks amount of the caller's liquid balance. Supply is unchanged;
// staking reclassifies holdings, it does not burn them.
func (l *Ledger) Stake(caller types.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireNotPaused(); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if !l.hasAtLeast(l.balances, caller, amount) {
		return ErrInsufficientBalance
	}

	l.debit(l.balances, caller, amount)
	l.credit(l.staked, caller, amount)
	l.emit(Event{Type: EventStake, Staker: caller, Amount: amount.Dec()})
	return nil
}

// Unstake releases amount of the caller's staked balance back to liquid.
func (l *Ledger) Unstake(caller types.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireNotPaused(); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if !l.hasAtLeast(l.staked, caller, amount) {
		return ErrInsufficientStake
	}

	l.debit(l.staked, caller, amount)
	l.credit(l.balances, caller, amount)
	l.emit(Event{Type: EventUnstake, Staker: caller, Amount: amount.Dec()})
	return nil
}

// queries; absent mapping entries read as zero and never fail

// Balance returns addr's liquid balance.
func (l *Ledger) Balance(addr types.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := l.balances[addr]
	return new(uint256.Int).Set(&v)
}

// StakedBalance returns addr's locked balance.
func (l *Ledger) StakedBalance(addr types.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := l.staked[addr]
	return new(uint256.Int).Set(&v)
}

// Allowance returns what spender may still move from owner's balance.
func (l *Ledger) Allowance(owner, spender types.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := l.allowances[AllowanceKey{Owner: owner, Spender: spender}]
	return new(uint256.Int).Set(&v)
}

// TotalSupply returns the current circulating supply (liquid plus staked).
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Set(&l.totalSupply)
}

// MaxSupply returns the fixed supply cap.
func (l *Ledger) MaxSupply() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Set(&l.maxSupply)
}

// Admin returns the current admin identity.
func (l *Ledger) Admin() types.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.admin
}

// Paused reports whether mutating operations (other than mint and the admin
// operations) are gated off.
func (l *Ledger) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// CheckConservation verifies totalSupply == sum(balances) + sum(staked). A
// non-nil return means a defect in the ledger itself, not a caller mistake.
func (l *Ledger) CheckConservation() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sum := new(uint256.Int)
	for _, v := range l.balances {
		sum.Add(sum, &v)
	}
	for _, v := range l.staked {
		sum.Add(sum, &v)
	}
	if !sum.Eq(&l.totalSupply) {
		return fmt.Errorf("conservation violated: supply=%s but balances+staked=%s",
			l.totalSupply.Dec(), sum.Dec())
	}
	return nil
}

// internal balance-sheet helpers; callers hold l.mu and have already proven
// sufficiency, so debit can never underflow

func (l *Ledger) hasAtLeast(m map[types.Address]uint256.Int, addr types.Address, amount *uint256.Int) bool {
	v := m[addr]
	return !v.Lt(amount)
}

func (l *Ledger) credit(m map[types.Address]uint256.Int, addr types.Address, amount *uint256.Int) {
	v := m[addr]
	v.Add(&v, amount)
	m[addr] = v
}

func (l *Ledger) debit(m map[types.Address]uint256.Int, addr types.Address, amount *uint256.Int) {
	v := m[addr]
	v.Sub(&v, amount)
	m[addr] = v
}
