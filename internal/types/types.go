// Package types defines the core domain models for tokenLedger mini (tlm).
// It contains the Address identity type, the transaction envelope submitted
// by clients, and the typed payloads for every ledger operation. Addresses
// are hex-encoded ed25519 public keys; the all-zero address is a reserved
// sentinel that can never hold a balance.
package types

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"time"
)

// Version is the current version of TLM
const Version = "0.2.0"

// BuildTime is set at build time via -ldflags
var BuildTime = "dev"

// Address is the canonical principal identifier used as caller identity and
// as mapping key in the ledger: the lowercase hex encoding of an ed25519
// public key.
type Address string

// ZeroAddress is the reserved burn/null address. It is rejected as a mint
// recipient, transfer recipient, approval spender, and admin.
const ZeroAddress Address = "0000000000000000000000000000000000000000000000000000000000000000"

// IsZero reports whether the address is the reserved zero sentinel. An empty
// string counts as zero: an absent field must never alias a spendable identity.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

// TxType identifies the ledger operation carried by a transaction.
type TxType string

const (
	TxSetPaused     TxType = "set_paused"
	TxTransferAdmin TxType = "transfer_admin"
	TxMint          TxType = "mint"
	TxBurn          TxType = "burn"
	TxTransfer      TxType = "transfer"
	TxApprove       TxType = "approve"
	TxTransferFrom  TxType = "transfer_from"
	TxStake         TxType = "stake"
	TxUnstake       TxType = "unstake"
)

// Transaction is the inner, signed portion of a submitted operation. The
// payload layout depends on Type.
type Transaction struct {
	Type      TxType          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Sign serializes the transaction and wraps it in a SignedTransaction carrying
// the signer's public key and ed25519 signature over the serialized bytes.
func (tx *Transaction) Sign(priv ed25519.PrivateKey) (*SignedTransaction, error) {
	raw, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("marshal transaction: %w", err)
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an ed25519 key")
	}
	return &SignedTransaction{
		Tx:        raw,
		Signature: ed25519.Sign(priv, raw),
		PublicKey: pub,
	}, nil
}

// SignedTransaction wraps a serialized Transaction with the submitter's
// ed25519 signature. The signer's public key doubles as the caller address;
// the engine never trusts a caller field inside a payload.
type SignedTransaction struct {
	Tx        []byte `json:"tx"`
	Signature []byte `json:"signature"`
	PublicKey []byte `json:"public_key"`
}

// Amounts travel as decimal strings on the wire and are parsed into uint256
// values at the ledger boundary.

// SetPausedPayload toggles the global pause flag. Admin only.
type SetPausedPayload struct {
	Pause bool `json:"pause"`
}

// TransferAdminPayload reassigns the admin identity. Admin only.
type TransferAdminPayload struct {
	NewAdmin Address `json:"new_admin"`
}

// MintPayload credits newly created tokens to a recipient. Admin only.
type MintPayload struct {
	Recipient Address `json:"recipient"`
	Amount    string  `json:"amount"`
}

// BurnPayload destroys tokens from the caller's liquid balance.
type BurnPayload struct {
	Amount string `json:"amount"`
}

// TransferPayload moves tokens from the caller to a recipient.
type TransferPayload struct {
	Recipient Address `json:"recipient"`
	Amount    string  `json:"amount"`
}

// ApprovePayload sets (overwrites) the caller's allowance for a spender.
type ApprovePayload struct {
	Spender Address `json:"spender"`
	Amount  string  `json:"amount"`
}

// TransferFromPayload spends the caller's allowance against an owner's balance.
type TransferFromPayload struct {
	Owner     Address `json:"owner"`
	Recipient Address `json:"recipient"`
	Amount    string  `json:"amount"`
}

// StakePayload locks tokens from the caller's liquid balance.
type StakePayload struct {
	Amount string `json:"amount"`
}

// UnstakePayload releases previously staked tokens back to liquid balance.
type UnstakePayload struct {
	Amount string `json:"amount"`
}
