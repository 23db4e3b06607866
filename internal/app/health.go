package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	deps map[string]pinger
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		deps: map[string]pinger{
			"postgres": infra.Postgres(),
			"redis":    infra.Redis(),
		},
	}
}

type checkResult struct {
	name string
	err  error
}

// check pings every dependency concurrently and returns the per-dependency status
func (h *HealthChecker) check(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	results := make(chan checkResult, len(h.deps))
	for name, dep := range h.deps {
		go func(name string, dep pinger) {
			results <- checkResult{name: name, err: dep.Ping(ctx)}
		}(name, dep)
	}

	statuses := make(map[string]string, len(h.deps))
	var errs []error
	for range h.deps {
		res := <-results
		if res.err != nil {
			statuses[res.name] = "fail"
			errs = append(errs, res.err)
			continue
		}
		statuses[res.name] = "pass"
	}

	return statuses, errors.Join(errs...)
}

func (h *HealthChecker) Handler(c *gin.Context) {
	statuses, err := h.check(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"checks": statuses,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
		"checks": statuses,
	})
}
