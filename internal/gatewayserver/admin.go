package gatewayserver

import (
	"encoding/json"
	"net/http"
	"os"

	"goblin/pkg/logging"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// mountAdmin registers the read-only admin plane described in spec.md §6 /
// SPEC_FULL.md §4.7 on mux, mirroring the teacher's createStandardMux shape.
func (s *Server) mountAdmin(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.status(os.Getpid()))
	})

	mux.HandleFunc("/servers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.serverStatuses())
	})

	mux.HandleFunc("/tools", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.reg.ListTools())
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/shutdown", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		logging.Info("GatewayServer", "shutdown requested via admin endpoint")
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "shutting down"})
		go s.triggerShutdown()
	})
}

// ServerStatus is one backend's admin-plane row.
type ServerStatus struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

func (s *Server) serverStatuses() []ServerStatus {
	var out []ServerStatus
	seen := make(map[string]bool)
	for _, c := range s.reg.ListTools() {
		if seen[c.ServerName] {
			continue
		}
		seen[c.ServerName] = true
		ready, _ := s.reg.ServerState(c.ServerName)
		out = append(out, ServerStatus{Name: c.ServerName, Ready: ready})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("GatewayServer", "failed writing admin response: %v", err)
	}
}

// SetShutdownFunc registers the callback POST /shutdown invokes; wired by
// internal/app at startup to the process's graceful-shutdown trigger.
func (s *Server) SetShutdownFunc(fn func()) {
	s.mu.Lock()
	s.shutdownFunc = fn
	s.mu.Unlock()
}

func (s *Server) triggerShutdown() {
	s.mu.Lock()
	fn := s.shutdownFunc
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
