// internal/handlers/health.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a ping function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

type healthResult struct {
	Status string `json:"status"`
}

// HealthHandler reports "ok" or "error" per dependency; any error turns the
// response into a 503.
func HealthHandler(logger *logrus.Logger, checkers map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]healthResult, len(checkers))
		status := http.StatusOK
		for name, c := range checkers {
			if err := c.Check(ctx); err != nil {
				logger.WithField("name", name).Errorf("health check failed: %v", err)
				checks[name] = healthResult{Status: "error"}
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = healthResult{Status: "ok"}
		}
		writeJSON(w, status, checks)
	}
}
