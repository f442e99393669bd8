// Package adminsrv builds the per-service admin HTTP surface: /healthz and
// /metrics, the ambient operational endpoints every one of the four
// pipeline services exposes alongside its RPC listener.
package adminsrv

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tori/consolidation/internal/healthsrv"
)

// NewRouter builds the admin mux for a single service named name, backed by
// checker for /healthz.
func NewRouter(name string, checker healthsrv.Checker) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		degraded, message := checker()
		status := "HEALTHY"
		code := http.StatusOK
		if degraded {
			status = "DEGRADED"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"service": name,
			"status":  status,
			"message": message,
		})
	}).Methods(http.MethodGet)
	return r
}
