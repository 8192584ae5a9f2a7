// Package server implements the optional debug HTTP surface (spec §6
// DebugPort): a healthcheck and a JSON snapshot of engine counters,
// adapted from the teacher's Server interface
// (src/server/server.go: Start/Stop/AddDebugHttpEndpoint/HealthCheckFail/
// HealthCheckOK) onto net/http + gorilla/mux, the router the teacher's
// go.mod already carries for this surface.
package server

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Snapshot is the JSON body served at /stats.
type Snapshot struct {
	EpochIndex     uint64 `json:"epoch_index"`
	TotalPackets   uint64 `json:"total_packets"`
	PacketsDropped uint64 `json:"packets_dropped"`
	LastEpochFlows int    `json:"last_epoch_flows"`
}

// StatsSource is polled on every /stats request; the epoch driver
// implements it.
type StatsSource interface {
	Snapshot() Snapshot
}

// Server is the debug HTTP surface. It is never required for correctness
// (spec §6: DebugPort defaults to off) and a failure to bind it is
// logged, not fatal.
type Server struct {
	router  *mux.Router
	httpSrv *http.Server
	log     *logrus.Entry
	healthy int32

	mu     sync.Mutex
	source StatsSource
}

// New builds a Server listening on addr (host:port). addr is not dialed
// until Start.
func New(addr string, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	r := mux.NewRouter()
	s := &Server{router: r, log: log, healthy: 1}
	s.httpSrv = &http.Server{Addr: addr, Handler: r}

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	return s
}

// SetSource registers the StatsSource polled by /stats. Safe to call
// before Start.
func (s *Server) SetSource(src StatsSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
}

// AddDebugHTTPEndpoint registers an additional handler under path,
// mirroring the teacher's AddDebugHttpEndpoint extension point.
func (s *Server) AddDebugHTTPEndpoint(path string, handler http.HandlerFunc) {
	s.router.HandleFunc(path, handler).Methods(http.MethodGet)
}

// Start begins serving in the background. Bind failures are logged, not
// returned, since the debug surface is never load-bearing.
func (s *Server) Start() {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		s.log.WithError(err).Warn("debug server failed to bind, continuing without it")
		return
	}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Warn("debug server stopped")
		}
	}()
}

// Stop shuts the debug server down, if it was started.
func (s *Server) Stop() {
	_ = s.httpSrv.Close()
}

// HealthCheckFail marks the server unhealthy for future /healthz calls.
func (s *Server) HealthCheckFail() { atomic.StoreInt32(&s.healthy, 0) }

// HealthCheckOK marks the server healthy again.
func (s *Server) HealthCheckOK() { atomic.StoreInt32(&s.healthy, 1) }

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&s.healthy) == 0 {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	src := s.source
	s.mu.Unlock()

	var snap Snapshot
	if src != nil {
		snap = src.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.log.WithError(err).Warn("failed to encode stats snapshot")
	}
}
