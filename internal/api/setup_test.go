package api

import (
	"crypto/ed25519"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"tokenledger.mini/tlm/internal/engine"
	"tokenledger.mini/tlm/internal/identity"
	"tokenledger.mini/tlm/internal/ledger"
	"tokenledger.mini/tlm/internal/logger"
	"tokenledger.mini/tlm/internal/store"
	"tokenledger.mini/tlm/internal/types"
)

type testKey struct {
	priv ed25519.PrivateKey
	addr types.Address
}

func newTestKey(t *testing.T) testKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	return testKey{priv: priv, addr: identity.AddressOf(pub)}
}

// setupTest creates a full service stack (ledger, engine, temp sqlite store)
// plus the admin key for signing privileged transactions.
func setupTest(t *testing.T) (*Service, *ledger.Ledger, testKey) {
	t.Helper()

	adminKey := newTestKey(t)
	l, err := ledger.New(adminKey.addr, nil)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}

	st, err := store.NewStore(filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	l.Subscribe(st)

	svc := NewService(l, engine.New(l), st, logger.New(100))
	return svc, l, adminKey
}

func signedTxBody(t *testing.T, key testKey, txType types.TxType, payload interface{}) []byte {
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
	body, err := json.Marshal(signed)
	if err != nil {
		t.Fatalf("Failed to marshal signed tx: %v", err)
	}
	return body
}
