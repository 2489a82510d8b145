// cmd/worker-manager/server.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"meetup-workers/internal/common/camunda"
	"meetup-workers/internal/common/genai"
	"meetup-workers/internal/common/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// dependency is one readiness check. Required dependencies fail /ready; the rest are
// reported but the service keeps serving with degraded output.
type dependency struct {
	name     string
	required bool
	check    func(ctx context.Context) error
}

func newHealthServer(port int, zeebe *camunda.Client, llm *genai.Client, s stores, log logger.Logger) *http.Server {
	deps := []dependency{{name: "zeebe", required: true, check: zeebe.HealthCheck}}
	if s.pg != nil {
		deps = append(deps, dependency{name: "postgres", check: s.pg.Ping})
	}
	if s.es != nil {
		deps = append(deps, dependency{name: "elasticsearch", check: s.es.Ping})
	}
	if s.redis != nil {
		deps = append(deps, dependency{name: "redis", check: s.redis.Ping})
	}
	if llm != nil {
		deps = append(deps, dependency{name: "llm", check: func(context.Context) error {
			if state := llm.State(); state == "open" {
				return fmt.Errorf("circuit breaker %s", state)
			}
			return nil
		}})
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           healthHandler(deps, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(deps []dependency, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		checks := make(map[string]string, len(deps))
		for _, d := range deps {
			if err := d.check(ctx); err != nil {
				checks[d.name] = err.Error()
				if d.required {
					status, code = "not_ready", http.StatusServiceUnavailable
				} else if status == "ready" {
					status = "degraded"
				}
				continue
			}
			checks[d.name] = "ok"
		}
		if code != http.StatusOK {
			log.Warn("readiness check failed", map[string]interface{}{"checks": checks})
		}
		writeJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
