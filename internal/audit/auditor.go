// Package audit runs a background watchdog over the live ledger. The
// conservation law (total supply equals the sum of liquid and staked
// balances) can only break through a defect in the ledger itself, never
// through caller input, so a violation is logged loudly rather than handled.
package audit

import (
	"context"
	"log"
	"time"

	"tokenledger.mini/tlm/internal/ledger"
	"tokenledger.mini/tlm/internal/logger"
)

// Auditor periodically re-checks ledger invariants.
type Auditor struct {
	ledger   *ledger.Ledger
	logger   *logger.Logger
	interval time.Duration
}

// New creates an auditor for the given ledger.
func New(l *ledger.Ledger, lg *logger.Logger, interval time.Duration) *Auditor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Auditor{
		ledger:   l,
		logger:   lg,
		interval: interval,
	}
}

// Run blocks, checking invariants every interval until ctx is cancelled.
// Callers run it in a goroutine.
func (a *Auditor) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	// check once immediately so a corrupt restore is caught at boot
	a.checkOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.checkOnce()
		}
	}
}

func (a *Auditor) checkOnce() {
	if err := a.ledger.CheckConservation(); err != nil {
		log.Printf("ERROR: ledger invariant audit failed: %v", err)
		a.logger.Errorf("invariant audit failed: %v", err)
	}
}
