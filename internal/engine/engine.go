// Package engine contains the transaction engine that connects the host
// environment to the ledger's state-transition logic. It implements
// transaction validation (CheckTx) and execution (DeliverTx): signatures are
// verified here, the caller address is resolved from the signer's public key
// here, and typed payloads are dispatched to the ledger here. The engine is
// the only component allowed to decide "who is calling"; the ledger itself
// never authenticates anything.
package engine

import (
	"crypto/ed25519"
	"encoding/json"
	"log"

	"github.com/holiman/uint256"

	"tokenledger.mini/tlm/internal/identity"
	"tokenledger.mini/tlm/internal/ledger"
	"tokenledger.mini/tlm/internal/types"
)

// Transport-level result codes. Ledger failures pass through with their own
// stable codes (100-108); the values below cover everything that fails before
// the ledger is reached.
const (
	CodeTypeOK            uint32 = 0
	CodeTypeEncodingError uint32 = 1
	CodeTypeAuthError     uint32 = 2
	CodeTypeInvalidTx     uint32 = 3
)

// Response reports the outcome of a checked or delivered transaction.
type Response struct {
	Code uint32 `json:"code"`
	Log  string `json:"log,omitempty"`
}

// OK reports whether the transaction succeeded.
func (r Response) OK() bool { return r.Code == CodeTypeOK }

// Engine applies signed transactions to a ledger.
type Engine struct {
	ledger *ledger.Ledger
}

// New creates an engine bound to the given ledger.
func New(l *ledger.Ledger) *Engine {
	return &Engine{ledger: l}
}

// CheckTx validates a raw signed transaction without applying it: the
// envelope must decode, the signature must verify, and the operation type
// must be known. State-dependent checks are left to DeliverTx.
func (e *Engine) CheckTx(raw []byte) Response {
	tx, _, resp := e.decodeSigned(raw)
	if !resp.OK() {
		return resp
	}
	switch tx.Type {
	case types.TxSetPaused, types.TxTransferAdmin, types.TxMint, types.TxBurn,
		types.TxTransfer, types.TxApprove, types.TxTransferFrom,
		types.TxStake, types.TxUnstake:
		return Response{Code: CodeTypeOK}
	default:
		return Response{Code: CodeTypeInvalidTx, Log: "unknown transaction type"}
	}
}

// DeliverTx verifies and executes a raw signed transaction. The signer's
// public key is the caller for every operation; caller-like fields inside
// payloads do not exist by design.
func (e *Engine) DeliverTx(raw []byte) Response {
	tx, caller, resp := e.decodeSigned(raw)
	if !resp.OK() {
		return resp
	}

	switch tx.Type {
	case types.TxSetPaused:
		var p types.SetPausedPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return Response{Code: CodeTypeEncodingError, Log: "failed to decode set_paused payload"}
		}
		if _, err := e.ledger.SetPaused(caller, p.Pause); err != nil {
			return errResponse(err)
		}
		log.Printf("INFO: set_paused=%v by %s", p.Pause, caller)

	case types.TxTransferAdmin:
		var p types.TransferAdminPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return Response{Code: CodeTypeEncodingError, Log: "failed to decode transfer_admin payload"}
		}
		if err := e.ledger.TransferAdmin(caller, p.NewAdmin); err != nil {
			return errResponse(err)
		}
		log.Printf("INFO: admin transferred to %s", p.NewAdmin)

	case types.TxMint:
		var p types.MintPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return Response{Code: CodeTypeEncodingError, Log: "failed to decode mint payload"}
		}
		if err := e.ledger.Mint(caller, p.Recipient, parseOrNil(p.Amount)); err != nil {
			return errResponse(err)
		}

	case types.TxBurn:
		var p types.BurnPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return Response{Code: CodeTypeEncodingError, Log: "failed to decode burn payload"}
		}
		if err := e.ledger.Burn(caller, parseOrNil(p.Amount)); err != nil {
			return errResponse(err)
		}

	case types.TxTransfer:
		var p types.TransferPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return Response{Code: CodeTypeEncodingError, Log: "failed to decode transfer payload"}
		}
		if err := e.ledger.Transfer(caller, p.Recipient, parseOrNil(p.Amount)); err != nil {
			return errResponse(err)
		}

	case types.TxApprove:
		var p types.ApprovePayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return Response{Code: CodeTypeEncodingError, Log: "failed to decode approve payload"}
		}
		// zero is a legal approval amount (it revokes), so garbage must not
		// silently read as zero; reject it as malformed wire data instead
		amount, err := ledger.ParseAmount(p.Amount)
		if err != nil {
			return Response{Code: CodeTypeEncodingError, Log: "unparseable approve amount"}
		}
		if err := e.ledger.Approve(caller, p.Spender, amount); err != nil {
			return errResponse(err)
		}

	case types.TxTransferFrom:
		var p types.TransferFromPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return Response{Code: CodeTypeEncodingError, Log: "failed to decode transfer_from payload"}
		}
		if err := e.ledger.TransferFrom(caller, p.Owner, p.Recipient, parseOrNil(p.Amount)); err != nil {
			return errResponse(err)
		}

	case types.TxStake:
		var p types.StakePayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return Response{Code: CodeTypeEncodingError, Log: "failed to decode stake payload"}
		}
		if err := e.ledger.Stake(caller, parseOrNil(p.Amount)); err != nil {
			return errResponse(err)
		}

	case types.TxUnstake:
		var p types.UnstakePayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return Response{Code: CodeTypeEncodingError, Log: "failed to decode unstake payload"}
		}
		if err := e.ledger.Unstake(caller, parseOrNil(p.Amount)); err != nil {
			return errResponse(err)
		}

	default:
		return Response{Code: CodeTypeInvalidTx, Log: "unknown transaction type"}
	}

	return Response{Code: CodeTypeOK}
}

// decodeSigned unwraps and authenticates a signed transaction, returning the
// inner transaction and the caller address derived from the signer key.
func (e *Engine) decodeSigned(raw []byte) (*types.Transaction, types.Address, Response) {
	var signedTx types.SignedTransaction
	if err := json.Unmarshal(raw, &signedTx); err != nil {
		return nil, "", Response{Code: CodeTypeEncodingError, Log: "failed to decode signed tx"}
	}

	if len(signedTx.PublicKey) != ed25519.PublicKeySize {
		return nil, "", Response{Code: CodeTypeAuthError, Log: "invalid public key length"}
	}
	if !ed25519.Verify(ed25519.PublicKey(signedTx.PublicKey), signedTx.Tx, signedTx.Signature) {
		return nil, "", Response{Code: CodeTypeAuthError, Log: "invalid signature"}
	}

	var tx types.Transaction
	if err := json.Unmarshal(signedTx.Tx, &tx); err != nil {
		return nil, "", Response{Code: CodeTypeEncodingError, Log: "failed to decode inner tx"}
	}

	caller := identity.AddressOf(ed25519.PublicKey(signedTx.PublicKey))
	return &tx, caller, Response{Code: CodeTypeOK}
}

// parseOrNil converts a wire amount. Unparseable strings become nil so the
// ledger's own validation ordering decides the failure code: pause and
// address checks still run first, then the nil amount fails InvalidAmount.
func parseOrNil(s string) *uint256.Int {
	v, err := ledger.ParseAmount(s)
	if err != nil {
		return nil
	}
	return v
}

func errResponse(err error) Response {
	if code, ok := ledger.CodeOf(err); ok {
		return Response{Code: uint32(code), Log: err.Error()}
	}
	return Response{Code: CodeTypeInvalidTx, Log: err.Error()}
}
