// Command tlm-cli is the operator client for a tlm node. It signs ledger
// transactions with a local ed25519 key and submits them over HTTP, and runs
// the read-only queries. Run without arguments for usage.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"tokenledger.mini/tlm/internal/identity"
	"tokenledger.mini/tlm/internal/types"
)

const requestTimeout = 10 * time.Second

func main() {
	var (
		nodeFlag string
		keyFlag  string
	)

	fs := flag.NewFlagSet("tlm-cli", flag.ExitOnError)
	fs.StringVar(&nodeFlag, "node", "http://localhost:8080", "Base URL of the tlm node")
	fs.StringVar(&keyFlag, "key", "tlm_cli_key.pem", "Path to the signing key (created if absent)")
	fs.Usage = usage

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatal(err)
	}
	args := fs.Args()

	c := &client{node: nodeFlag, keyFile: keyFlag}

	var err error
	switch cmd {
	case "address":
		err = c.showAddress()
	case "pause":
		err = c.submit(types.TxSetPaused, types.SetPausedPayload{Pause: true})
	case "unpause":
		err = c.submit(types.TxSetPaused, types.SetPausedPayload{Pause: false})
	case "transfer-admin":
		err = c.submit(types.TxTransferAdmin, types.TransferAdminPayload{NewAdmin: addrArg(args, 0, "new-admin")})
	case "mint":
		err = c.submit(types.TxMint, types.MintPayload{Recipient: addrArg(args, 0, "recipient"), Amount: strArg(args, 1, "amount")})
	case "burn":
		err = c.submit(types.TxBurn, types.BurnPayload{Amount: strArg(args, 0, "amount")})
	case "transfer":
		err = c.submit(types.TxTransfer, types.TransferPayload{Recipient: addrArg(args, 0, "recipient"), Amount: strArg(args, 1, "amount")})
	case "approve":
		err = c.submit(types.TxApprove, types.ApprovePayload{Spender: addrArg(args, 0, "spender"), Amount: strArg(args, 1, "amount")})
	case "transfer-from":
		err = c.submit(types.TxTransferFrom, types.TransferFromPayload{
			Owner:     addrArg(args, 0, "owner"),
			Recipient: addrArg(args, 1, "recipient"),
			Amount:    strArg(args, 2, "amount"),
		})
	case "stake":
		err = c.submit(types.TxStake, types.StakePayload{Amount: strArg(args, 0, "amount")})
	case "unstake":
		err = c.submit(types.TxUnstake, types.UnstakePayload{Amount: strArg(args, 0, "amount")})
	case "balance":
		err = c.query("/api/balance?address=" + strArg(args, 0, "address"))
	case "staked":
		err = c.query("/api/staked?address=" + strArg(args, 0, "address"))
	case "allowance":
		err = c.query(fmt.Sprintf("/api/allowance?owner=%s&spender=%s", strArg(args, 0, "owner"), strArg(args, 1, "spender")))
	case "supply":
		err = c.query("/api/supply")
	case "admin":
		err = c.query("/api/admin")
	case "paused":
		err = c.query("/api/paused")
	case "events":
		err = c.query("/api/events")
	case "snapshot":
		err = c.post("/api/snapshots/save")
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: tlm-cli <command> [flags] [args]

Transactions (signed with -key):
  mint <recipient> <amount>            create tokens (admin only)
  burn <amount>                        destroy tokens from your balance
  transfer <recipient> <amount>        send tokens
  approve <spender> <amount>           set a spender allowance
  transfer-from <owner> <recipient> <amount>
                                       spend an allowance
  stake <amount>                       lock tokens
  unstake <amount>                     unlock tokens
  pause | unpause                      toggle the pause flag (admin only)
  transfer-admin <new-admin>           hand over admin (admin only)

Queries:
  balance <address>                    liquid balance
  staked <address>                     staked balance
  allowance <owner> <spender>          remaining allowance
  supply | admin | paused | events     global state
  snapshot                             force a snapshot on the node
  address                              print the local key's address

Flags:
  -node <url>   node base URL (default http://localhost:8080)
  -key <file>   signing key path (default tlm_cli_key.pem)
`)
}

func strArg(args []string, i int, name string) string {
	if i >= len(args) {
		log.Fatalf("missing argument: %s", name)
	}
	return args[i]
}

func addrArg(args []string, i int, name string) types.Address {
	return types.Address(strArg(args, i, name))
}

type client struct {
	node    string
	keyFile string
}

func (c *client) showAddress() error {
	id, err := identity.LoadOrCreateIdentity(c.keyFile)
	if err != nil {
		return err
	}
	fmt.Println(id.Address())
	return nil
}

// submit signs a transaction with the local key and posts it to the node.
// The node's response body is printed verbatim; a non-zero code means the
// operation was rejected and the ledger is unchanged.
func (c *client) submit(txType types.TxType, payload any) error {
	id, err := identity.LoadOrCreateIdentity(c.keyFile)
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	tx := &types.Transaction{
		Type:      txType,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}
	signed, err := tx.Sign(id.PrivateKey())
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	body, err := json.Marshal(signed)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	httpc := &http.Client{Timeout: requestTimeout}
	resp, err := httpc.Post(c.node+"/api/tx", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()
	return printBody(resp)
}

func (c *client) query(path string) error {
	httpc := &http.Client{Timeout: requestTimeout}
	resp, err := httpc.Get(c.node + path)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer resp.Body.Close()
	return printBody(resp)
}

func (c *client) post(path string) error {
	httpc := &http.Client{Timeout: requestTimeout}
	resp, err := httpc.Post(c.node+path, "application/json", nil)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	return printBody(resp)
}

func printBody(resp *http.Response) error {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Println(string(bytes.TrimSpace(b)))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node returned HTTP %d", resp.StatusCode)
	}
	return nil
}
