package ledger

import "errors"

// Code is a stable numeric failure code. External consumers branch on these
// values, so they must never be renumbered.
type Code uint32

const (
	CodeNotAuthorized         Code = 100
	CodeInsufficientBalance   Code = 101
	CodeInsufficientStake     Code = 102
	CodeMaxSupplyReached      Code = 103
	CodePaused                Code = 104
	CodeZeroAddress           Code = 105
	CodeInvalidAmount         Code = 106
	CodeInsufficientAllowance Code = 107
	CodeSelfApproval          Code = 108
)

// Error is an expected, caller-facing operation failure. Every mutating
// operation either fully applies and returns nil or applies nothing and
// returns one of the sentinel values below.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

var (
	ErrNotAuthorized         = &Error{CodeNotAuthorized, "caller is not the admin"}
	ErrInsufficientBalance   = &Error{CodeInsufficientBalance, "insufficient balance"}
	ErrInsufficientStake     = &Error{CodeInsufficientStake, "insufficient staked balance"}
	ErrMaxSupplyReached      = &Error{CodeMaxSupplyReached, "mint would exceed max supply"}
	ErrPaused                = &Error{CodePaused, "ledger is paused"}
	ErrZeroAddress           = &Error{CodeZeroAddress, "zero address"}
	ErrInvalidAmount         = &Error{CodeInvalidAmount, "amount must be positive"}
	ErrInsufficientAllowance = &Error{CodeInsufficientAllowance, "insufficient allowance"}
	ErrSelfApproval          = &Error{CodeSelfApproval, "cannot approve self"}
)

// CodeOf extracts the stable failure code from an operation error. The second
// return is false for errors that did not originate in the ledger.
func CodeOf(err error) (Code, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le.Code, true
	}
	return 0, false
}
