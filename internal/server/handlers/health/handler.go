package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"azpoc/backendapi/pkg/logger"
)

// Status 健康状态
type Status string

const (
	StatusHealthy   Status = "Healthy"
	StatusUnhealthy Status = "Unhealthy"
)

const defaultCheckTimeout = 3 * time.Second

// Checker 单项健康检查
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Entry 单项检查结果
type Entry struct {
	Status      Status `json:"status" example:"Healthy"`
	Description string `json:"description,omitempty" example:"A healthy result."`
	Duration    string `json:"duration" example:"12.5µs"`
}

// Report /health 响应
type Report struct {
	Status        Status           `json:"status" example:"Healthy"`
	TotalDuration string           `json:"total_duration" example:"50µs"`
	Entries       map[string]Entry `json:"entries"`
}

// Handler 健康检查 Handler
type Handler struct {
	checks  []Checker
	timeout time.Duration
	log     logger.Logger
}

// NewHandler 创建健康检查 Handler
func NewHandler(log logger.Logger, checks ...Checker) *Handler {
	return &Handler{
		checks:  checks,
		timeout: defaultCheckTimeout,
		log:     log,
	}
}

// Get godoc
// @Summary      健康检查
// @Description  依次执行所有已注册的检查，全部健康返回 200，否则返回 503
// @Tags         health
// @Produce      json
// @Success      200 {object} health.Report "Healthy"
// @Failure      503 {object} health.Report "Unhealthy"
// @Router       /health [get]
func (h *Handler) Get(c *gin.Context) {
	report := h.Run(c.Request.Context())

	code := http.StatusOK
	if report.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}

// Run 执行所有检查
func (h *Handler) Run(ctx context.Context) *Report {
	start := time.Now()
	report := &Report{
		Status:  StatusHealthy,
		Entries: make(map[string]Entry, len(h.checks)),
	}

	for _, check := range h.checks {
		checkStart := time.Now()
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := check.Check(checkCtx)
		cancel()

		entry := Entry{
			Status:   StatusHealthy,
			Duration: time.Since(checkStart).String(),
		}
		if err != nil {
			entry.Status = StatusUnhealthy
			entry.Description = err.Error()
			report.Status = StatusUnhealthy
			h.log.Warnf(ctx, "[Health] check %s failed: %v", check.Name(), err)
		} else if d, ok := check.(describer); ok {
			entry.Description = d.Description()
		}
		report.Entries[check.Name()] = entry
	}

	report.TotalDuration = time.Since(start).String()
	return report
}

type describer interface {
	Description() string
}
