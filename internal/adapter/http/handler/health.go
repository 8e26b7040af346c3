package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const healthProbeTimeout = 2 * time.Second

type probeResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthCheck handles GET /health. Dependencies are probed concurrently, each
// bounded by healthProbeTimeout; any failure turns the response into a 503.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			results = make(map[string]probeResult, len(checkers))
			healthy = true
		)
		for _, checker := range checkers {
			wg.Add(1)
			go func(hc ports.HealthChecker) {
				defer wg.Done()
				start := time.Now()
				err := hc.Ping(ctx)
				res := probeResult{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
				if err != nil {
					res.Status = "unhealthy"
					res.Error = err.Error()
				}

				mu.Lock()
				defer mu.Unlock()
				results[hc.Name()] = res
				if err != nil {
					healthy = false
				}
			}(checker)
		}
		wg.Wait()

		status, code := "healthy", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "dependencies": results})
	}
}
