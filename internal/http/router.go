// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shuttle/internal/ai"
	"shuttle/internal/http/handlers"
	"shuttle/internal/http/middleware"
	"shuttle/internal/modules/analytics"
	"shuttle/internal/modules/booking"
	"shuttle/internal/modules/calendar"
	"shuttle/internal/modules/capacity"
	"shuttle/internal/modules/pricing"
)

type Deps struct {
	Booking    *booking.Service
	Analytics  *analytics.Service
	Pricing    *pricing.Service
	Calendar   *calendar.Service
	Seats      *capacity.Guard
	Routes     handlers.RouteReader
	Telemetry  handlers.CompletionStore
	Rules      handlers.RuleWriter
	Events     handlers.EventWriter
	Summarizer ai.Summarizer
	Now        func() time.Time
}

func NewRouter(deps Deps, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(logger), middleware.Logging(logger))

	api := r.Group("/api")

	bookingHandler := handlers.NewBookingHandler(deps.Booking)
	api.POST("/bookings", bookingHandler.Create)
	api.GET("/bookings/:id", bookingHandler.Get)
	api.PUT("/bookings/:id", bookingHandler.Update)
	api.POST("/bookings/:id/approve", bookingHandler.Approve)
	api.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	api.POST("/bookings/:id/refund", bookingHandler.Refund)
	api.GET("/bookings/:id/events", bookingHandler.History)

	catalogHandler := handlers.NewCatalogHandler(deps.Routes, deps.Pricing, deps.Seats, deps.Calendar)
	api.GET("/pricing/quote", catalogHandler.Quote)
	api.GET("/routes/:id/seats", catalogHandler.Seats)
	api.GET("/calendar/:date", catalogHandler.CalendarDay)

	reportHandler := handlers.NewReportHandler(deps.Analytics, deps.Summarizer, deps.Now)
	reports := api.Group("/reports")
	reports.GET("/revenue", reportHandler.Revenue)
	reports.GET("/utilization", reportHandler.Utilization)
	reports.GET("/drivers", reportHandler.Drivers)
	reports.GET("/routes", reportHandler.Routes)
	reports.GET("/digest", reportHandler.Digest)

	completionHandler := handlers.NewCompletionHandler(deps.Telemetry)
	api.POST("/completions/:kind", completionHandler.Record)
	api.PUT("/completions/:kind/:id/notes", completionHandler.Annotate)

	adminHandler := handlers.NewAdminHandler(deps.Booking, deps.Rules, deps.Events)
	admin := api.Group("/admin")
	admin.POST("/sweep", adminHandler.Sweep)
	admin.POST("/pricing-rules", adminHandler.CreateRule)
	admin.PUT("/pricing-rules/:id/active", adminHandler.SetRuleActive)
	admin.POST("/calendar-events", adminHandler.CreateEvent)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
