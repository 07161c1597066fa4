// Package main is the entry point for tokenLedger mini (tlm).
// It restores the ledger from the latest snapshot (or creates a genesis
// ledger), wires the transaction engine, persistence, invariant auditor, and
// web server, and then waits for shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokenledger.mini/tlm/internal/api"
	"tokenledger.mini/tlm/internal/audit"
	"tokenledger.mini/tlm/internal/config"
	"tokenledger.mini/tlm/internal/docs"
	"tokenledger.mini/tlm/internal/engine"
	"tokenledger.mini/tlm/internal/identity"
	"tokenledger.mini/tlm/internal/ledger"
	"tokenledger.mini/tlm/internal/logger"
	"tokenledger.mini/tlm/internal/store"
	"tokenledger.mini/tlm/internal/types"
	"tokenledger.mini/tlm/internal/web"
)

func main() {
	log.Println("tokenLedger mini starting...")

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Node identity: the key that signs nothing by itself but names the
	// default genesis admin when none is configured.
	id, err := identity.LoadOrCreateIdentity(cfg.KeyFile)
	if err != nil {
		log.Fatalf("Failed to load identity: %v", err)
	}
	log.Printf("Node address: %s", id.Address())

	st, err := store.NewStore(cfg.LedgerDBFile)
	if err != nil {
		log.Fatalf("Failed to initialize ledger store: %v", err)
	}
	defer st.Close()

	l, err := restoreOrGenesis(st, cfg, id.Address())
	if err != nil {
		log.Fatalf("Failed to initialize ledger: %v", err)
	}
	log.Printf("Ledger ready: admin=%s supply=%s paused=%v", l.Admin(), l.TotalSupply().Dec(), l.Paused())

	lg := logger.New(500)
	eng := engine.New(l)

	// persistence subscribes first so the event log is written before the
	// feed fans out
	l.Subscribe(st)

	apiSvc := api.NewService(l, eng, st, lg)
	docSvc := docs.NewService(cfg.DocsDir)

	if err := ensurePortAvailable(cfg.Port); err != nil {
		log.Fatalf("Port %d unavailable: %v", cfg.Port, err)
	}

	server := web.NewServer(apiSvc, docSvc, lg, cfg.Port)
	l.Subscribe(server)

	serverErrors := server.Start()
	go func() {
		if err := <-serverErrors; err != nil {
			log.Fatalf("Web server exited: %v", err)
		}
	}()
	log.Printf("Node API available at http://localhost:%d", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auditor := audit.New(l, lg, time.Duration(cfg.AuditIntervalSecs)*time.Second)
	go auditor.Run(ctx)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	if err := st.SaveSnapshot(l.Snapshot()); err != nil {
		log.Printf("Warning: final snapshot failed: %v", err)
	}
}

// restoreOrGenesis loads the latest persisted snapshot, or creates a fresh
// genesis ledger when none exists. The genesis admin is the configured
// address when set, otherwise this node's own identity.
func restoreOrGenesis(st *store.Store, cfg *config.Config, nodeAddr types.Address) (*ledger.Ledger, error) {
	snap, err := st.LatestSnapshot()
	if err == nil {
		return ledger.FromSnapshot(snap)
	}
	if !errors.Is(err, store.ErrNoSnapshot) {
		return nil, err
	}

	admin := types.Address(cfg.AdminAddress)
	if admin == "" {
		admin = nodeAddr
	}
	maxSupply, err := ledger.ParseAmount(cfg.MaxSupply)
	if err != nil {
		return nil, fmt.Errorf("invalid max_supply %q in config", cfg.MaxSupply)
	}

	l, err := ledger.New(admin, maxSupply)
	if err != nil {
		return nil, err
	}
	if err := st.SaveSnapshot(l.Snapshot()); err != nil {
		return nil, fmt.Errorf("persist genesis snapshot: %w", err)
	}
	log.Printf("Created genesis ledger with admin %s", admin)
	return l, nil
}

// ensurePortAvailable verifies nothing else is bound to the API port before
// the server starts.
func ensurePortAvailable(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	return ln.Close()
}
