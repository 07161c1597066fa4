package api

import (
	"net/http"

	"tokenledger.mini/tlm/internal/store"
)

// @Title: List Snapshots
// @Route: GET /api/snapshots
// @Description: Returns the retained snapshot history, newest first
// @Response: [{"id": 3, "created_at": "...", "total_supply": "500"}]
func (s *Service) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.Snapshots()
	if err != nil {
		s.logger.Errorf("snapshot listing failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	if infos == nil {
		infos = []store.SnapshotInfo{}
	}
	s.writeJSON(w, http.StatusOK, infos)
}

// @Title: Save Snapshot
// @Route: POST /api/snapshots/save
// @Description: Forces an immediate snapshot of the current ledger state
// @Response: {"status": "ok"}
func (s *Service) HandleSnapshotSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if err := s.store.SaveSnapshot(s.ledger.Snapshot()); err != nil {
		s.logger.Errorf("manual snapshot failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save snapshot")
		return
	}
	s.logger.Info("manual snapshot saved")
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
