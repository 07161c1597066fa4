// Package web implements the HTTP server of a tlm node. It mounts the JSON
// API, serves rendered operation docs, and exposes a websocket feed that
// broadcasts every ledger event to connected indexers as it is emitted.
package web

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"sync"

	"tokenledger.mini/tlm/internal/api"
	"tokenledger.mini/tlm/internal/docs"
	"tokenledger.mini/tlm/internal/ledger"
	"tokenledger.mini/tlm/internal/logger"
)

// broker manages websocket subscribers for broadcasting ledger events
type broker struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func newBroker() *broker {
	return &broker{
		clients: make(map[chan []byte]struct{}),
	}
}

func (b *broker) register(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
}

func (b *broker) unregister(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
	}
}

func (b *broker) broadcast(data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- data:
		default:
			// Client is slow/blocked, skip
		}
	}
}

// Server is the HTTP server for the node API, docs, and event feed.
type Server struct {
	apiService *api.Service
	docService *docs.Service
	logger     *logger.Logger
	port       int
	broker     *broker
}

// NewServer creates a new web server.
func NewServer(apiService *api.Service, docService *docs.Service, lg *logger.Logger, port int) *Server {
	return &Server{
		apiService: apiService,
		docService: docService,
		logger:     lg,
		port:       port,
		broker:     newBroker(),
	}
}

// OnEvent implements ledger.EventSink: every emitted event is pushed to all
// connected websocket clients.
func (s *Server) OnEvent(ev ledger.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("WARNING: failed to encode event %s: %v", ev.ID, err)
		return
	}
	s.broker.broadcast(data)
}

// Start launches the HTTP server in the background and returns a channel that
// receives the terminal server error, if any.
func (s *Server) Start() chan error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/tx", s.apiService.HandleSubmitTx)
	mux.HandleFunc("/api/balance", s.apiService.HandleBalance)
	mux.HandleFunc("/api/staked", s.apiService.HandleStakedBalance)
	mux.HandleFunc("/api/allowance", s.apiService.HandleAllowance)
	mux.HandleFunc("/api/supply", s.apiService.HandleSupply)
	mux.HandleFunc("/api/admin", s.apiService.HandleAdmin)
	mux.HandleFunc("/api/paused", s.apiService.HandlePaused)
	mux.HandleFunc("/api/events", s.apiService.HandleEvents)
	mux.HandleFunc("/api/snapshots", s.apiService.HandleSnapshots)
	mux.HandleFunc("/api/snapshots/save", s.apiService.HandleSnapshotSave)
	mux.HandleFunc("/api/health", s.apiService.HandleHealth)
	mux.HandleFunc("/api/version", s.apiService.HandleVersion)
	mux.HandleFunc("/api/logs", s.apiService.HandleLogs)
	mux.HandleFunc("/ws/events", s.handleEventsWS)
	mux.HandleFunc("/docs", s.handleDocs)

	errCh := make(chan error, 1)
	go func() {
		errCh <- http.ListenAndServe(fmt.Sprintf(":%d", s.port), mux)
	}()
	return errCh
}

// handleEventsWS upgrades the connection and streams broadcast events until
// the client goes away.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, closer, ok := tryGorillaUpgrade(w, r)
	if !ok {
		http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
		return
	}

	client := make(chan []byte, 64)
	s.broker.register(client)
	s.logger.Info("event feed client connected")

	defer func() {
		s.broker.unregister(client)
		_ = closer.Close()
		s.logger.Info("event feed client disconnected")
	}()

	for data := range client {
		if err := conn.WriteMessage(textMessage, data); err != nil {
			return
		}
	}
}

// handleDocs renders an asciidoc page from the docs directory. With no file
// parameter it lists the available documents.
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	if file == "" {
		names, err := s.docService.ListDocs()
		if err != nil {
			http.Error(w, "failed to list docs", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(names)
		return
	}

	html, err := s.docService.GetDoc(r.Context(), file)
	if err != nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, docShell, template.HTMLEscapeString(file), html)
}

const docShell = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>tlm docs - %s</title></head>
<body>%s</body>
</html>`
