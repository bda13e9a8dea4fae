package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*echo.Echo, *Aggregator) {
	t.Helper()
	agg, _ := newTestAggregator(t, NewMemoryStorage())
	e := echo.New()
	allow := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	NewHandler(agg).RegisterRoutes(e, e.Group("/api"), allow)
	return e, agg
}

func postEvent(e *echo.Echo, body, ua string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/event", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCollectRecordsEvents(t *testing.T) {
	e, agg := newTestServer(t)

	for _, ev := range []string{"visit", "generated", "generated", "scanned"} {
		rec := postEvent(e, `{"event":"`+ev+`"}`, "Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0")
		require.Equal(t, http.StatusNoContent, rec.Code, ev)
	}

	totals := agg.Totals()
	assert.Equal(t, 1, totals.TotalVisits)
	assert.Equal(t, 2, totals.QRCodesGenerated)
	assert.Equal(t, 1, totals.QRCodesScanned)
}

func TestCollectRejectsUnknownEvent(t *testing.T) {
	e, agg := newTestServer(t)

	rec := postEvent(e, `{"event":"download"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, agg.Daily())
}

func TestCollectIgnoresBotVisits(t *testing.T) {
	e, agg := newTestServer(t)

	rec := postEvent(e, `{"event":"visit"}`, "Mozilla/5.0 (compatible; Googlebot/2.1)")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, agg.Totals().TotalVisits)
}

func TestGetSummaryJSON(t *testing.T) {
	e, agg := newTestServer(t)
	require.NoError(t, agg.RecordGenerated())
	require.NoError(t, agg.RecordScanned())

	req := httptest.NewRequest(http.MethodGet, "/admin/analytics/api/summary", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Totals.QRCodesGenerated)
	assert.InDelta(t, 100.0, resp.Summary.ConversionRate, 1e-9)
	assert.Len(t, resp.Daily, 1)
}

func TestSummaryFragmentAndReset(t *testing.T) {
	e, agg := newTestServer(t)
	require.NoError(t, agg.RecordGenerated())

	req := httptest.NewRequest(http.MethodGet, "/admin/analytics/fragments/summary", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="analytics-summary"`)
	assert.Contains(t, rec.Body.String(), "2025-06-10")

	req = httptest.NewRequest(http.MethodPost, "/admin/analytics/reset", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, Totals{}, agg.Totals())
}
