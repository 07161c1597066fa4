package api

import (
	"io"
	"net/http"
	"strconv"

	"tokenledger.mini/tlm/internal/ledger"
	"tokenledger.mini/tlm/internal/types"
)

// maxTxBytes bounds the request body for transaction submission.
const maxTxBytes = 1 << 20

// @Title: Submit Transaction
// @Route: POST /api/tx
// @Description: Submits a signed transaction for execution. The body is a SignedTransaction envelope; the signer's public key is the caller of the operation. The response code is 0 on success, 1-3 for envelope problems, or the operation's stable ledger failure code (100-108).
// @Response: {"code": 0} or {"code": 101, "log": "insufficient balance"}
func (s *Service) HandleSubmitTx(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTxBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	resp := s.engine.DeliverTx(body)
	if resp.OK() {
		// persist the post-transaction state so a restart replays nothing
		if err := s.store.SaveSnapshot(s.ledger.Snapshot()); err != nil {
			s.logger.Errorf("snapshot after tx failed: %v", err)
		}
	} else {
		s.logger.Infof("rejected tx: code=%d log=%s", resp.Code, resp.Log)
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// @Title: Get Balance
// @Route: GET /api/balance?address=<addr>
// @Description: Returns the liquid balance of an address. Absent addresses read as zero.
// @Response: {"address": "...", "balance": "300"}
func (s *Service) HandleBalance(w http.ResponseWriter, r *http.Request) {
	addr := types.Address(r.URL.Query().Get("address"))
	if addr == "" {
		s.writeError(w, http.StatusBadRequest, "address parameter required")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"address": string(addr),
		"balance": s.ledger.Balance(addr).Dec(),
	})
}

// @Title: Get Staked Balance
// @Route: GET /api/staked?address=<addr>
// @Description: Returns the staked (locked) balance of an address.
// @Response: {"address": "...", "staked_balance": "100"}
func (s *Service) HandleStakedBalance(w http.ResponseWriter, r *http.Request) {
	addr := types.Address(r.URL.Query().Get("address"))
	if addr == "" {
		s.writeError(w, http.StatusBadRequest, "address parameter required")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"address":        string(addr),
		"staked_balance": s.ledger.StakedBalance(addr).Dec(),
	})
}

// @Title: Get Allowance
// @Route: GET /api/allowance?owner=<addr>&spender=<addr>
// @Description: Returns what spender may still move from owner's balance.
// @Response: {"owner": "...", "spender": "...", "allowance": "100"}
func (s *Service) HandleAllowance(w http.ResponseWriter, r *http.Request) {
	owner := types.Address(r.URL.Query().Get("owner"))
	spender := types.Address(r.URL.Query().Get("spender"))
	if owner == "" || spender == "" {
		s.writeError(w, http.StatusBadRequest, "owner and spender parameters required")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"owner":     string(owner),
		"spender":   string(spender),
		"allowance": s.ledger.Allowance(owner, spender).Dec(),
	})
}

// @Title: Get Supply
// @Route: GET /api/supply
// @Description: Returns the circulating supply and the fixed cap.
// @Response: {"total_supply": "942", "max_supply": "1000000000000000000"}
func (s *Service) HandleSupply(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"total_supply": s.ledger.TotalSupply().Dec(),
		"max_supply":   s.ledger.MaxSupply().Dec(),
	})
}

// @Title: Get Admin
// @Route: GET /api/admin
// @Description: Returns the current admin address.
// @Response: {"admin": "..."}
func (s *Service) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"admin": string(s.ledger.Admin()),
	})
}

// @Title: Get Paused
// @Route: GET /api/paused
// @Description: Returns whether mutating operations are currently gated off.
// @Response: {"paused": false}
func (s *Service) HandlePaused(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{
		"paused": s.ledger.Paused(),
	})
}

// @Title: Get Events
// @Route: GET /api/events?n=<count>
// @Description: Returns the most recent ledger events, newest first (default 50).
// @Response: [{"id": "...", "type": "transfer", "from": "...", "to": "...", "amount": "200", ...}]
func (s *Service) HandleEvents(w http.ResponseWriter, r *http.Request) {
	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = parsed
	}

	events, err := s.store.RecentEvents(n)
	if err != nil {
		s.logger.Errorf("event query failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read events")
		return
	}
	if events == nil {
		events = []ledger.Event{}
	}
	s.writeJSON(w, http.StatusOK, events)
}
