package engine

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"
	"time"

	"tokenledger.mini/tlm/internal/identity"
	"tokenledger.mini/tlm/internal/ledger"
	"tokenledger.mini/tlm/internal/types"
)

type testKey struct {
	priv ed25519.PrivateKey
	addr types.Address
}

func newKey(t *testing.T) testKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	return testKey{priv: priv, addr: identity.AddressOf(pub)}
}

func setupEngine(t *testing.T) (*Engine, *ledger.Ledger, testKey) {
	t.Helper()
	adminKey := newKey(t)
	l, err := ledger.New(adminKey.addr, nil)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	return New(l), l, adminKey
}

func signedTx(t *testing.T, key testKey, txType types.TxType, payload interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	tx := &types.Transaction{Type: txType, Timestamp: time.Now().UTC(), Payload: raw}
	signed, err := tx.Sign(key.priv)
	if err != nil {
		t.Fatalf("Failed to sign tx: %v", err)
	}
	b, err := json.Marshal(signed)
	if err != nil {
		t.Fatalf("Failed to marshal signed tx: %v", err)
	}
	return b
}

func deliver(t *testing.T, e *Engine, key testKey, txType types.TxType, payload interface{}) Response {
	t.Helper()
	return e.DeliverTx(signedTx(t, key, txType, payload))
}

func TestDeliverMintAndTransfer(t *testing.T) {
	e, l, adminKey := setupEngine(t)
	user := newKey(t)

	resp := deliver(t, e, adminKey, types.TxMint, types.MintPayload{Recipient: user.addr, Amount: "500"})
	if !resp.OK() {
		t.Fatalf("mint failed: %+v", resp)
	}

	other := newKey(t)
	resp = deliver(t, e, user, types.TxTransfer, types.TransferPayload{Recipient: other.addr, Amount: "200"})
	if !resp.OK() {
		t.Fatalf("transfer failed: %+v", resp)
	}

	if l.Balance(user.addr).Uint64() != 300 {
		t.Errorf("expected 300, got %s", l.Balance(user.addr).Dec())
	}
	if l.Balance(other.addr).Uint64() != 200 {
		t.Errorf("expected 200, got %s", l.Balance(other.addr).Dec())
	}
}

func TestDeliverFullOperationSet(t *testing.T) {
	e, l, adminKey := setupEngine(t)
	owner := newKey(t)
	spender := newKey(t)
	dest := newKey(t)

	steps := []struct {
		key     testKey
		txType  types.TxType
		payload interface{}
	}{
		{adminKey, types.TxMint, types.MintPayload{Recipient: owner.addr, Amount: "1000"}},
		{owner, types.TxApprove, types.ApprovePayload{Spender: spender.addr, Amount: "300"}},
		{spender, types.TxTransferFrom, types.TransferFromPayload{Owner: owner.addr, Recipient: dest.addr, Amount: "200"}},
		{owner, types.TxStake, types.StakePayload{Amount: "100"}},
		{owner, types.TxUnstake, types.UnstakePayload{Amount: "50"}},
		{owner, types.TxBurn, types.BurnPayload{Amount: "25"}},
		{adminKey, types.TxSetPaused, types.SetPausedPayload{Pause: true}},
		{adminKey, types.TxSetPaused, types.SetPausedPayload{Pause: false}},
		{adminKey, types.TxTransferAdmin, types.TransferAdminPayload{NewAdmin: owner.addr}},
	}
	for i, s := range steps {
		if resp := deliver(t, e, s.key, s.txType, s.payload); !resp.OK() {
			t.Fatalf("step %d (%s) failed: %+v", i, s.txType, resp)
		}
	}

	if l.Allowance(owner.addr, spender.addr).Uint64() != 100 {
		t.Errorf("expected allowance 100, got %s", l.Allowance(owner.addr, spender.addr).Dec())
	}
	if l.Admin() != owner.addr {
		t.Errorf("admin transfer not applied")
	}
	if err := l.CheckConservation(); err != nil {
		t.Errorf("conservation violated: %v", err)
	}
}

func TestDeliverRejectsBadSignature(t *testing.T) {
	e, _, adminKey := setupEngine(t)
	user := newKey(t)

	raw := signedTx(t, adminKey, types.TxMint, types.MintPayload{Recipient: user.addr, Amount: "10"})
	var signed types.SignedTransaction
	if err := json.Unmarshal(raw, &signed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	signed.Signature[0] ^= 0xff
	tampered, _ := json.Marshal(signed)

	resp := e.DeliverTx(tampered)
	if resp.Code != CodeTypeAuthError {
		t.Errorf("expected auth error %d, got %+v", CodeTypeAuthError, resp)
	}
}

func TestDeliverRejectsForgedCaller(t *testing.T) {
	e, l, _ := setupEngine(t)
	user := newKey(t)

	// a non-admin signing a mint is refused by the ledger: the caller comes
	// from the signature, not from anything the client claims
	resp := deliver(t, e, user, types.TxMint, types.MintPayload{Recipient: user.addr, Amount: "10"})
	if resp.Code != uint32(ledger.CodeNotAuthorized) {
		t.Errorf("expected code %d, got %+v", ledger.CodeNotAuthorized, resp)
	}
	if !l.TotalSupply().IsZero() {
		t.Error("failed mint must not change supply")
	}
}

func TestDeliverEncodingErrors(t *testing.T) {
	e, _, adminKey := setupEngine(t)

	if resp := e.DeliverTx([]byte("not json")); resp.Code != CodeTypeEncodingError {
		t.Errorf("expected encoding error, got %+v", resp)
	}

	resp := deliver(t, e, adminKey, types.TxType("upgrade_firmware"), struct{}{})
	if resp.Code != CodeTypeInvalidTx {
		t.Errorf("expected invalid tx, got %+v", resp)
	}
}

func TestLedgerCodesPassThrough(t *testing.T) {
	e, _, adminKey := setupEngine(t)
	user := newKey(t)

	cases := []struct {
		key     testKey
		txType  types.TxType
		payload interface{}
		want    uint32
	}{
		{adminKey, types.TxMint, types.MintPayload{Recipient: types.ZeroAddress, Amount: "10"}, uint32(ledger.CodeZeroAddress)},
		{adminKey, types.TxMint, types.MintPayload{Recipient: user.addr, Amount: "0"}, uint32(ledger.CodeInvalidAmount)},
		{user, types.TxBurn, types.BurnPayload{Amount: "10"}, uint32(ledger.CodeInsufficientBalance)},
		{user, types.TxUnstake, types.UnstakePayload{Amount: "10"}, uint32(ledger.CodeInsufficientStake)},
		{user, types.TxApprove, types.ApprovePayload{Spender: user.addr, Amount: "10"}, uint32(ledger.CodeSelfApproval)},
		{user, types.TxTransferFrom, types.TransferFromPayload{Owner: adminKey.addr, Recipient: user.addr, Amount: "10"}, uint32(ledger.CodeInsufficientAllowance)},
	}
	for i, c := range cases {
		resp := deliver(t, e, c.key, c.txType, c.payload)
		if resp.Code != c.want {
			t.Errorf("case %d: expected code %d, got %+v", i, c.want, resp)
		}
	}
}

func TestPausedPrecedesAmountParsing(t *testing.T) {
	e, _, adminKey := setupEngine(t)
	user := newKey(t)

	if resp := deliver(t, e, adminKey, types.TxSetPaused, types.SetPausedPayload{Pause: true}); !resp.OK() {
		t.Fatalf("pause failed: %+v", resp)
	}

	// the pause gate fires before amount validation, even for garbage amounts
	resp := deliver(t, e, user, types.TxTransfer, types.TransferPayload{Recipient: adminKey.addr, Amount: "garbage"})
	if resp.Code != uint32(ledger.CodePaused) {
		t.Errorf("expected code %d, got %+v", ledger.CodePaused, resp)
	}
}

func TestCheckTx(t *testing.T) {
	e, _, adminKey := setupEngine(t)
	user := newKey(t)

	// CheckTx accepts a well-formed signed tx without applying it
	raw := signedTx(t, adminKey, types.TxMint, types.MintPayload{Recipient: user.addr, Amount: "10"})
	if resp := e.CheckTx(raw); !resp.OK() {
		t.Errorf("check failed: %+v", resp)
	}

	if resp := e.CheckTx([]byte("{")); resp.Code != CodeTypeEncodingError {
		t.Errorf("expected encoding error, got %+v", resp)
	}

	bad := signedTx(t, user, types.TxType("bogus"), struct{}{})
	if resp := e.CheckTx(bad); resp.Code != CodeTypeInvalidTx {
		t.Errorf("expected invalid tx, got %+v", resp)
	}
}
