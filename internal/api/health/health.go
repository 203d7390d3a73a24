// Package health provides health check functionality for API components.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is operational but with issues.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Pinger is an interface for components that can be pinged.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker aggregates pings across named components. The store is required;
// optional components (a shared cache, for example) degrade rather than fail
// the whole check.
type Checker struct {
	required  map[string]Pinger
	optional  map[string]Pinger
	startTime time.Time
	version   string
	timeout   time.Duration
	mu        sync.RWMutex
}

// NewChecker creates a health checker with the required store pinger.
func NewChecker(store Pinger, version string) *Checker {
	return &Checker{
		required:  map[string]Pinger{"database": store},
		optional:  map[string]Pinger{},
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// AddOptional registers a component whose failure degrades the service
// instead of marking it unhealthy.
func (c *Checker) AddOptional(name string, pinger Pinger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.optional[name] = pinger
}

// Check performs all health checks and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	required := make(map[string]Pinger, len(c.required))
	for name, p := range c.required {
		required[name] = p
	}
	optional := make(map[string]Pinger, len(c.optional))
	for name, p := range c.optional {
		optional[name] = p
	}
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	components := make(map[string]ComponentStatus)
	overallStatus := StatusHealthy

	for name, pinger := range required {
		status := ping(checkCtx, pinger)
		components[name] = status
		if status.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
		}
	}
	for name, pinger := range optional {
		status := ping(checkCtx, pinger)
		if status.Status == StatusUnhealthy {
			status.Status = StatusDegraded
			if overallStatus == StatusHealthy {
				overallStatus = StatusDegraded
			}
		}
		components[name] = status
	}

	return &Response{
		Status:     overallStatus,
		Components: components,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

func ping(ctx context.Context, pinger Pinger) ComponentStatus {
	if pinger == nil {
		return ComponentStatus{
			Status:  StatusUnhealthy,
			Message: "not configured",
		}
	}
	if err := pinger.Ping(ctx); err != nil {
		return ComponentStatus{
			Status:  StatusUnhealthy,
			Message: "ping failed: " + err.Error(),
		}
	}
	return ComponentStatus{
		Status:  StatusHealthy,
		Message: "connected",
	}
}

// Handler returns an HTTP handler for health checks.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")

		switch response.Status {
		case StatusHealthy, StatusDegraded:
			w.WriteHeader(http.StatusOK)
		case StatusUnhealthy:
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(response)
	}
}
