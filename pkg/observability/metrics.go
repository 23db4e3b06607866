package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}

// AccountMetrics counts account operations by outcome
type AccountMetrics struct {
	registrations metric.Int64Counter
	logins        metric.Int64Counter
	refreshes     metric.Int64Counter
}

// NewAccountMetrics registers the account counters on meter
func NewAccountMetrics(meter metric.Meter) (*AccountMetrics, error) {
	registrations, err := meter.Int64Counter("account.registrations",
		metric.WithDescription("Number of registration attempts"))
	if err != nil {
		return nil, fmt.Errorf("failed to create registrations counter: %w", err)
	}

	logins, err := meter.Int64Counter("account.logins",
		metric.WithDescription("Number of login attempts"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logins counter: %w", err)
	}

	refreshes, err := meter.Int64Counter("account.token_refreshes",
		metric.WithDescription("Number of refresh token rotations"))
	if err != nil {
		return nil, fmt.Errorf("failed to create token refreshes counter: %w", err)
	}

	return &AccountMetrics{
		registrations: registrations,
		logins:        logins,
		refreshes:     refreshes,
	}, nil
}

func (m *AccountMetrics) RecordRegistration(ctx context.Context, err error) {
	m.registrations.Add(ctx, 1, resultOption(err))
}

func (m *AccountMetrics) RecordLogin(ctx context.Context, err error) {
	m.logins.Add(ctx, 1, resultOption(err))
}

func (m *AccountMetrics) RecordRefresh(ctx context.Context, err error) {
	m.refreshes.Add(ctx, 1, resultOption(err))
}

func resultOption(err error) metric.AddOption {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	return metric.WithAttributes(attribute.String("result", result))
}
