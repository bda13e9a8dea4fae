package analytics

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qrvision/qrvision/analytics/templates"
)

// Handler handles analytics HTTP requests.
type Handler struct {
	agg            *Aggregator
	loc            *time.Location
	collectLimiter *rateLimiter
}

// NewHandler creates a new analytics handler.
// The event endpoint is rate-limited to 120 requests per IP per minute.
func NewHandler(agg *Aggregator) *Handler {
	return &Handler{
		agg:            agg,
		loc:            agg.Location(),
		collectLimiter: newRateLimiter(120, time.Minute),
	}
}

// EventRequest is the expected request body for the event endpoint.
type EventRequest struct {
	Event string `json:"event" form:"event"`
}

// Collect records one lifecycle event sent by a client.
func (h *Handler) Collect(c echo.Context) error {
	if !h.collectLimiter.allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}

	var req EventRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}
	kind, err := ParseEvent(req.Event)
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}

	// Crawlers hitting the page are not visitors.
	if kind == KindVisit && IsBot(c.Request().UserAgent()) {
		return c.NoContent(http.StatusNoContent)
	}

	if err := h.agg.Record(kind); err != nil {
		c.Logger().Errorf("Failed to persist %s event: %v", kind.Event(), err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SummaryResponse is the JSON response for the summary endpoint.
type SummaryResponse struct {
	Totals  Totals      `json:"totals"`
	Summary Summary     `json:"summary"`
	Daily   []DailyStat `json:"daily"`
}

// GetSummary returns totals, derived statistics and the full daily log as JSON.
func (h *Handler) GetSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, SummaryResponse{
		Totals:  h.agg.Totals(),
		Summary: h.agg.Summary(),
		Daily:   h.agg.Daily(),
	})
}

// GetSummaryFragment returns the dashboard statistics block as a bare HTML fragment.
func (h *Handler) GetSummaryFragment(c echo.Context) error {
	vm := ConvertSummaryToViewModel(h.agg.Totals(), h.agg.Summary(), h.loc)
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return templates.SummaryFragment(vm).Render(c.Request().Context(), c.Response())
}

// Reset clears all analytics data.
func (h *Handler) Reset(c echo.Context) error {
	if err := h.agg.Reset(); err != nil {
		c.Logger().Errorf("Failed to reset analytics: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ConvertSummaryToViewModel converts a Summary to templates.SummaryViewModel.
// Averages and rates are rounded to whole numbers for display.
func ConvertSummaryToViewModel(t Totals, s Summary, loc *time.Location) *templates.SummaryViewModel {
	if loc == nil {
		loc = time.Local
	}
	vm := &templates.SummaryViewModel{
		TotalVisits:    s.TotalVisits,
		TotalGenerated: s.TotalGenerated,
		TotalScanned:   s.TotalScanned,
		AvgPerDay:      int(math.Round(s.AvgGeneratedPerDay)),
		PeakDay:        "-",
		ConversionRate: int(math.Round(s.ConversionRate)),
		LastVisit:      "-",
		MaxGenerated:   s.MaxGenerated,
		MaxScanned:     s.MaxScanned,
	}
	if s.PeakDay != nil {
		vm.PeakDay = s.PeakDay.Date
		if d, err := time.Parse(dateLayout, s.PeakDay.Date); err == nil {
			vm.PeakDay = arabicWeekdays[d.Weekday()] + "، " + arabicDay(d)
		}
	}
	if !t.LastVisit.IsZero() {
		lv := t.LastVisit.In(loc)
		vm.LastVisit = arabicDay(lv) + " " + lv.Format("15:04")
	}

	vm.Recent = make([]templates.DailyViewModel, len(s.Recent))
	for i, d := range s.Recent {
		vm.Recent[i] = templates.DailyViewModel{
			Date:        d.Date,
			Visits:      d.Visits,
			QRGenerated: d.QRGenerated,
			QRScanned:   d.QRScanned,
		}
	}
	return vm
}

var (
	arabicWeekdays = [...]string{"الأحد", "الاثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت"}
	arabicMonths   = [...]string{"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو", "يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر"}
)

// arabicDay formats t as "10 يونيو".
func arabicDay(t time.Time) string {
	return strconv.Itoa(t.Day()) + " " + arabicMonths[t.Month()-1]
}

// RegisterRoutes registers analytics routes with the Echo router.
func (h *Handler) RegisterRoutes(e *echo.Echo, publicGroup *echo.Group, authMiddleware echo.MiddlewareFunc) {
	// Public endpoint for lifecycle events; publicGroup is mounted at /api.
	publicGroup.POST("/analytics/event", h.Collect)

	admin := e.Group("/admin/analytics")
	admin.Use(authMiddleware)
	admin.GET("/api/summary", h.GetSummary)
	admin.GET("/fragments/summary", h.GetSummaryFragment)
	admin.POST("/reset", h.Reset)
}
