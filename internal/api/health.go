package api

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is satisfied by *database.DB.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionChecker is satisfied by *notify.MQTTPublisher.
type ConnectionChecker interface {
	IsConnected() bool
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Analyzer      string            `json:"analyzer,omitempty"`
	Checks        map[string]string `json:"checks"`
}

// HealthOptions configures the health handler. Nil dependencies report
// "not_configured".
type HealthOptions struct {
	DB             HealthChecker
	MQTT           ConnectionChecker
	AnalyzerName   string
	ToolsAvailable func() bool
	Version        string
	StartTime      time.Time
}

type HealthHandler struct {
	opts HealthOptions
}

func NewHealthHandler(opts HealthOptions) *HealthHandler {
	return &HealthHandler{opts: opts}
}

// ServeHTTP reports component status. A database outage degrades the
// service rather than failing it, since records still reach the file store.
// Missing media tools make it unhealthy: no run can succeed without them.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	degrade := func() {
		if status == "healthy" {
			status = "degraded"
		}
	}

	// Database check
	if h.opts.DB != nil {
		if err := h.opts.DB.HealthCheck(r.Context()); err != nil {
			checks["database"] = "error"
			degrade()
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not_configured"
	}

	// MQTT check
	if h.opts.MQTT != nil {
		if h.opts.MQTT.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			degrade()
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	// yt-dlp / ffmpeg check
	if h.opts.ToolsAvailable != nil {
		if h.opts.ToolsAvailable() {
			checks["media_tools"] = "ok"
		} else {
			checks["media_tools"] = "missing"
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	WriteJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Version:       h.opts.Version,
		UptimeSeconds: int64(time.Since(h.opts.StartTime).Seconds()),
		Analyzer:      h.opts.AnalyzerName,
		Checks:        checks,
	})
}
