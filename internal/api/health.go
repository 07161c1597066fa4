package api

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"

	"tokenledger.mini/tlm/internal/types"
)

// @Title: Get Health
// @Route: GET /api/health
// @Description: Returns server health status
// @Response: {"status": "ok"}
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Title: Get Version
// @Route: GET /api/version
// @Description: Returns TLM version and node info
// @Response: {"version": "...", "status": "ok", "admin": "..."}
func (s *Service) HandleVersion(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()

	s.writeJSON(w, http.StatusOK, map[string]string{
		"version":  types.Version,
		"status":   "ok",
		"hostname": hostname,
		"go_ver":   runtime.Version(),
		"os_arch":  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		"admin":    string(s.ledger.Admin()),
	})
}

// @Title: Get Logs
// @Route: GET /api/logs?n=<count>
// @Description: Returns recent in-memory log messages, newest first
// @Response: [{"timestamp": "...", "text": "...", "level": "info"}]
func (s *Service) HandleLogs(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		s.writeJSON(w, http.StatusOK, s.logger.GetRecent(n))
		return
	}
	s.writeJSON(w, http.StatusOK, s.logger.GetAll())
}
