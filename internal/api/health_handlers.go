package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Status int
	Body   HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	db := s.checkDatabase(ctx)
	idx := s.checkSearchIndex()

	overall := "healthy"
	status := http.StatusOK
	switch {
	case db.Status == "unhealthy":
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	case idx.Status != "healthy":
		overall = "degraded"
	}

	return &HealthOutput{
		Status: status,
		Body: HealthResponse{
			Status:     overall,
			Components: map[string]ComponentHealth{"database": db, "search": idx},
		},
	}, nil
}

// checkDatabase pings the pool, opening it on first use.
func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.pool == nil {
		return ComponentHealth{Status: "degraded", Message: "database not configured"}
	}

	start := time.Now()
	err := s.pool.Ping(ctx)
	latency := time.Since(start)
	if err != nil {
		s.logger.Warn("health check: database ping failed", "error", err)
		return ComponentHealth{Status: "unhealthy", Latency: latency.String(), Message: "database unreachable"}
	}

	stats := s.pool.Stats()
	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
		Message: strconv.Itoa(stats.OpenConnections) + " open connections",
	}
}

// checkSearchIndex verifies the Bleve index is accessible.
func (s *Server) checkSearchIndex() ComponentHealth {
	if s.services.Search == nil || !s.services.Search.Enabled() {
		return ComponentHealth{Status: "degraded", Message: "full-text search disabled"}
	}

	start := time.Now()
	count, err := s.services.Search.DocumentCount()
	latency := time.Since(start)
	if err != nil {
		return ComponentHealth{Status: "unhealthy", Latency: latency.String(), Message: "search index unreachable"}
	}
	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
		Message: strconv.FormatUint(count, 10) + " documents",
	}
}
