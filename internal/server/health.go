package server

import (
	"context"
	"net/http"
	"time"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

type ComponentHealth struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status     Status            `json:"status"`
	Components []ComponentHealth `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

type HealthChecker interface {
	Name() string
	Check(ctx context.Context) (Status, string)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:     StatusHealthy,
		Components: make([]ComponentHealth, 0, len(s.checkers)),
		Timestamp:  time.Now().UTC(),
	}

	for _, checker := range s.checkers {
		status, message := checker.Check(ctx)
		response.Components = append(response.Components, ComponentHealth{
			Name:    checker.Name(),
			Status:  status,
			Message: message,
		})

		if status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if status == StatusDegraded && response.Status == StatusHealthy {
			response.Status = StatusDegraded
		}
	}

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	s.respondJSON(w, statusCode, response)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// BackendHealthChecker probes the backend API; an unreachable backend
// degrades rather than fails the service, since cached snapshots keep
// the dashboard rendering.
type BackendHealthChecker struct {
	healthFunc func(ctx context.Context) error
}

func NewBackendHealthChecker(healthFunc func(ctx context.Context) error) *BackendHealthChecker {
	return &BackendHealthChecker{healthFunc: healthFunc}
}

func (c *BackendHealthChecker) Name() string {
	return "backend"
}

func (c *BackendHealthChecker) Check(ctx context.Context) (Status, string) {
	if err := c.healthFunc(ctx); err != nil {
		return StatusDegraded, err.Error()
	}
	return StatusHealthy, ""
}

type CacheHealthChecker struct {
	countFunc func(ctx context.Context) (int64, error)
}

func NewCacheHealthChecker(countFunc func(ctx context.Context) (int64, error)) *CacheHealthChecker {
	return &CacheHealthChecker{countFunc: countFunc}
}

func (c *CacheHealthChecker) Name() string {
	return "cache"
}

func (c *CacheHealthChecker) Check(ctx context.Context) (Status, string) {
	if _, err := c.countFunc(ctx); err != nil {
		return StatusUnhealthy, err.Error()
	}
	return StatusHealthy, ""
}
