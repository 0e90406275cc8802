// Package health serves liveness and readiness probes plus a detailed
// health report for the registry API.
package health

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pioneerpictures/clover/pkg/database"
)

type Checker struct {
	db        database.DB
	version   string
	startTime time.Time
	ready     atomic.Bool
}

func NewChecker(db database.DB, version string) *Checker {
	return &Checker{
		db:        db,
		version:   version,
		startTime: time.Now(),
	}
}

// SetReady flips the readiness probe. Main sets it true once startup has
// finished and the HTTP server is listening.
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

func (c *Checker) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/health", c.Health)
	e.GET("/api/v1/health/live", c.Live)
	e.GET("/api/v1/health/ready", c.Ready)
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Report struct {
	Status     string                 `json:"status"`
	Version    string                 `json:"version"`
	Uptime     string                 `json:"uptime"`
	Checks     map[string]CheckResult `json:"checks"`
	ReportedAt time.Time              `json:"reported_at"`
}

// Health reports overall status with a per-dependency breakdown. The
// registry is unusable without its database, so a failed ping makes the
// whole report unhealthy.
func (c *Checker) Health(ctx echo.Context) error {
	report := Report{
		Status:     "healthy",
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     map[string]CheckResult{},
		ReportedAt: time.Now().UTC(),
	}

	report.Checks["database"] = c.checkDatabase(ctx)
	for _, check := range report.Checks {
		if check.Status != "healthy" {
			report.Status = "unhealthy"
		}
	}

	code := http.StatusOK
	if report.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, report)
}

func (c *Checker) checkDatabase(ctx echo.Context) CheckResult {
	if c.db == nil {
		return CheckResult{Status: "unhealthy", Message: "database not configured"}
	}

	start := time.Now()
	if err := c.db.PingContext(ctx.Request().Context()); err != nil {
		return CheckResult{Status: "unhealthy", Message: err.Error()}
	}
	return CheckResult{Status: "healthy", Latency: time.Since(start).String()}
}

func (c *Checker) Live(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

func (c *Checker) Ready(ctx echo.Context) error {
	if !c.ready.Load() {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
