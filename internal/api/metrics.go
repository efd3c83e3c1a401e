package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/glownode/internal/api/models"
	"github.com/smazurov/glownode/internal/metrics"
)

// registerMetricsRoutes registers the JSON counter summary. The full
// Prometheus exposition is served at /metrics.
func (s *Server) registerMetricsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-metrics-summary",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Metrics Summary",
		Description: "Get scheduler and event counters since start",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.MetricsSummaryResponse, error) {
		sum := metrics.GetSummary()
		return &models.MetricsSummaryResponse{
			Body: models.MetricsSummaryData{
				Ticks:      sum.Ticks,
				Faults:     sum.Faults,
				Events:     sum.Events,
				PollErrors: sum.PollErrors,
				Active:     sum.Active,
			},
		}, nil
	})
}
