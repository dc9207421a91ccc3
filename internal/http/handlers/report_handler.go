// README: Operations report handlers and the administrator digest.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shuttle/internal/ai"
	"shuttle/internal/modules/analytics"
	"shuttle/internal/types"
)

type ReportHandler struct {
	analytics  *analytics.Service
	summarizer ai.Summarizer
	now        func() time.Time
}

func NewReportHandler(svc *analytics.Service, summarizer ai.Summarizer, now func() time.Time) *ReportHandler {
	if now == nil {
		now = time.Now
	}
	return &ReportHandler{analytics: svc, summarizer: summarizer, now: now}
}

// window reads the from/to query pair shared by the ranged reports.
func window(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	if from, err = parseDay(c.Query("from")); err != nil {
		writeError(c, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return from, to, false
	}
	if to, err = parseDay(c.Query("to")); err != nil {
		writeError(c, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return from, to, false
	}
	return from, to, true
}

func (h *ReportHandler) Revenue(c *gin.Context) {
	from, to, ok := window(c)
	if !ok {
		return
	}
	report, err := h.analytics.RevenueTrend(c.Request.Context(), analytics.RevenueFilter{
		From:   from,
		To:     to,
		Bucket: analytics.Bucket(c.Query("bucket")),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, report)
}

func (h *ReportHandler) Utilization(c *gin.Context) {
	report, err := h.analytics.CapacityUtilization(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, report)
}

func (h *ReportHandler) Drivers(c *gin.Context) {
	from, to, ok := window(c)
	if !ok {
		return
	}
	report, err := h.analytics.DriverMetrics(c.Request.Context(), analytics.DriverFilter{
		From:     from,
		To:       to,
		DriverID: types.ID(c.Query("driver_id")),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, report)
}

func (h *ReportHandler) Routes(c *gin.Context) {
	report, err := h.analytics.RouteMetrics(c.Request.Context(), h.now())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, report)
}

func (h *ReportHandler) Digest(c *gin.Context) {
	ctx := c.Request.Context()
	snap, err := h.analytics.Snapshot(ctx, h.now())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	digest, err := h.summarizer.Digest(ctx, snap)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "digest unavailable")
		return
	}
	writeJSON(c, http.StatusOK, digest)
}
