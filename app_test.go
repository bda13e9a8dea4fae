package qrvision

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/qrvision/qrvision/analytics"
	"github.com/qrvision/qrvision/render"
	"github.com/qrvision/qrvision/scan"
)

const (
	testPassword = "correct horse"
	browserUA    = "Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0"
)

func newTestApp(t *testing.T, cfg SiteConfig) *App {
	t.Helper()
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		cfg.AdminPassword = testPassword
	}
	cfg.SessionSecret = "test-session-secret-0123456789abcdef"
	a := New(cfg,
		WithStorage(analytics.NewMemoryStorage()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, a.Init())

	ctx, cancel := context.WithCancel(context.Background())
	go a.Analytics.Run(ctx, a.events)
	t.Cleanup(func() {
		cancel()
		_ = a.Close()
	})
	return a
}

func do(a *App, req *http.Request) *httptest.ResponseRecorder {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", browserUA)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func postJSON(a *App, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(a, req)
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// postForm submits an admin form with a CSRF token obtained from GET /admin/.
func postForm(t *testing.T, a *App, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	get := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	for _, c := range cookies {
		get.AddCookie(c)
	}
	csrf := cookie(do(a, get), "_csrf")
	require.NotNil(t, csrf)

	form.Set("_csrf", csrf.Value)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(csrf)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return do(a, req)
}

func TestInitRequiresSecrets(t *testing.T) {
	a := New(SiteConfig{StorageDriver: StorageMemory})
	assert.Error(t, a.Init())

	a = New(SiteConfig{StorageDriver: StorageMemory, AdminPassword: "x"})
	assert.Error(t, a.Init())

	a = New(SiteConfig{StorageDriver: "redis", AdminPassword: "x", SessionSecret: "s"})
	assert.Error(t, a.Init())
}

// unreadableStorage fails every read.
type unreadableStorage struct{ *analytics.MemoryStorage }

func (unreadableStorage) Load(string) ([]byte, error) { return nil, errors.New("database is locked") }

func TestInitFailsWhenAnalyticsUnreadable(t *testing.T) {
	a := New(SiteConfig{AdminPassword: "x", SessionSecret: "s"},
		WithStorage(unreadableStorage{analytics.NewMemoryStorage()}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	err := a.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load analytics")
}

func TestHomeRecordsVisit(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	rec := do(a, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/public/qrvision.js")
	assert.Equal(t, 1, a.Analytics.Totals().TotalVisits)
	assert.False(t, a.Analytics.Totals().LastVisit.IsZero())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1)")
	do(a, req)
	assert.Equal(t, 1, a.Analytics.Totals().TotalVisits)
}

func TestGenerateTemplate(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	rec := postJSON(a, "/api/generate", `{"template":"wifi","fields":{"ssid":"Home","password":"secret","encryption":"WPA","hidden":"لا"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "WIFI:T:WPA;S:Home;P:secret;H:false;;", resp.Payload)
	assert.Empty(t, resp.Missing)
	assert.Equal(t, 1, a.Analytics.Totals().QRCodesGenerated)
	require.Len(t, a.Analytics.Daily(), 1)
	assert.Equal(t, 1, a.Analytics.Daily()[0].QRGenerated)
}

func TestGenerateReportsMissingFields(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	rec := postJSON(a, "/api/generate", `{"template":"location","fields":{}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "geo:,", resp.Payload)
	assert.Equal(t, []string{"latitude", "longitude"}, resp.Missing)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	assert.Equal(t, http.StatusBadRequest, postJSON(a, "/api/generate", `{"template":"sms"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(a, "/api/generate", `{"text":"   "}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(a, "/api/generate", `{`).Code)
	assert.Zero(t, a.Analytics.Totals().QRCodesGenerated)

	rec := postJSON(a, "/api/generate", `{"text":" https://example.com "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"payload":"https://example.com"`)
	assert.Equal(t, 1, a.Analytics.Totals().QRCodesGenerated)
}

func TestTemplatesEndpoint(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	rec := do(a, httptest.NewRequest(http.MethodGet, "/api/templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		ID     string `json:"id"`
		Fields []any  `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 6)
	assert.Equal(t, "wifi", list[0].ID)
}

func TestSymbolPNG(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	rec := do(a, httptest.NewRequest(http.MethodGet, "/api/qr.png?text=hello&size=128&fg=%23112233", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 1, a.Symbols.Len())

	rec = do(a, httptest.NewRequest(http.MethodGet, "/api/qr.png?text=hello&size=128&fg=%23112233&download=1&name=wifi", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="wifi.png"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, 1, a.Symbols.Len())

	assert.Equal(t, http.StatusBadRequest, do(a, httptest.NewRequest(http.MethodGet, "/api/qr.png", nil)).Code)
	assert.Equal(t, http.StatusBadRequest, do(a, httptest.NewRequest(http.MethodGet, "/api/qr.png?text=x&size=big", nil)).Code)
	assert.Equal(t, http.StatusBadRequest, do(a, httptest.NewRequest(http.MethodGet, "/api/qr.png?text=x&level=Z", nil)).Code)
}

func TestSymbolRateLimited(t *testing.T) {
	a := newTestApp(t, SiteConfig{RenderLimit: 1})

	assert.Equal(t, http.StatusOK, do(a, httptest.NewRequest(http.MethodGet, "/api/qr.png?text=a", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(a, httptest.NewRequest(http.MethodGet, "/api/qr.png?text=b", nil)).Code)
	// Cached symbols are still served.
	assert.Equal(t, http.StatusOK, do(a, httptest.NewRequest(http.MethodGet, "/api/qr.png?text=a", nil)).Code)
}

func scannedEventually(t *testing.T, a *App, want int) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return a.Analytics.Totals().QRCodesScanned == want
	}, time.Second, 10*time.Millisecond)
}

func TestScanSessionFlow(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	rec := postJSON(a, "/api/scan/sessions", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var s scan.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	require.NotEmpty(t, s.ID)

	rec = postJSON(a, "/api/scan/sessions/"+s.ID+"/error", `{"error":"blurry"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = postJSON(a, "/api/scan/sessions/"+s.ID+"/result", `{"text":"https://example.com/menu"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res scan.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.IsURL)
	scannedEventually(t, a, 1)

	rec = postJSON(a, "/api/scan/sessions/"+s.ID+"/result", `{"text":"again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(a, httptest.NewRequest(http.MethodGet, "/api/scan/sessions/"+s.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"done"`)
	assert.Contains(t, rec.Body.String(), `"failures":1`)
	assert.Equal(t, 1, a.Analytics.Totals().QRCodesScanned)
}

func TestScanResultsWithoutRecorderLoop(t *testing.T) {
	a := New(SiteConfig{AdminPassword: testPassword, SessionSecret: "test-session-secret-0123456789abcdef"},
		WithStorage(analytics.NewMemoryStorage()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, a.Init())
	t.Cleanup(func() { _ = a.Close() })

	done := make(chan int)
	go func() {
		ok := 0
		for i := 0; i < cap(a.events)+6; i++ {
			rec := postJSON(a, "/api/scan/sessions", `{}`)
			var s scan.Session
			if json.Unmarshal(rec.Body.Bytes(), &s) != nil {
				break
			}
			if postJSON(a, "/api/scan/sessions/"+s.ID+"/result", `{"text":"hi"}`).Code == http.StatusOK {
				ok++
			}
		}
		done <- ok
	}()

	select {
	case ok := <-done:
		assert.Equal(t, cap(a.events)+6, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("scan result handler blocked with no recorder running")
	}
}

func TestScanCancelHasNoAnalytics(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	rec := postJSON(a, "/api/scan/sessions", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var s scan.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))

	rec = do(a, httptest.NewRequest(http.MethodDelete, "/api/scan/sessions/"+s.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, a.Scans.Active())

	rec = do(a, httptest.NewRequest(http.MethodDelete, "/api/scan/sessions/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, a.Analytics.Totals().QRCodesScanned)
}

func uploadRequest(t *testing.T, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/scan/image", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestScanUpload(t *testing.T) {
	a := newTestApp(t, SiteConfig{})
	const text = "mailto:info@example.com?subject=Hi&body="

	data, err := render.PNG(text, render.Options{Size: 400})
	require.NoError(t, err)

	rec := do(a, uploadRequest(t, data))
	require.Equal(t, http.StatusOK, rec.Code)
	var res scan.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, text, res.Text)
	assert.True(t, res.IsURL)
	scannedEventually(t, a, 1)

	rec = do(a, uploadRequest(t, []byte("not an image")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, a.Analytics.Totals().QRCodesScanned)
}

func TestScanUploadRejectsHugeCanvas(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	b := buf.Bytes()
	binary.BigEndian.PutUint32(b[16:20], 60000)
	binary.BigEndian.PutUint32(b[20:24], 60000)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))

	rec := do(a, uploadRequest(t, b))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, a.Analytics.Totals().QRCodesScanned)
}

func TestAdminLoginWrongPassword(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	rec := postForm(t, a, "/admin/login/", url.Values{"password": {"wrong"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "كلمة المرور غير صحيحة")
	assert.Nil(t, cookie(rec, sessionName))

	// No lockout: the right password still works afterwards.
	rec = postForm(t, a, "/admin/login/", url.Values{"password": {testPassword}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestAdminLoginWithHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	a := newTestApp(t, SiteConfig{AdminPasswordHash: string(hash)})

	rec := postForm(t, a, "/admin/login/", url.Values{"password": {"s3cret"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotNil(t, cookie(rec, sessionName))
}

func TestAdminDashboardAndReset(t *testing.T) {
	a := newTestApp(t, SiteConfig{})
	require.NoError(t, a.Analytics.RecordGenerated())
	require.NoError(t, a.Analytics.RecordScanned())

	rec := postForm(t, a, "/admin/login/", url.Values{"password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	sess := cookie(rec, sessionName)
	require.NotNil(t, sess)

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.AddCookie(sess)
	rec = do(a, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="analytics-summary"`)
	assert.Contains(t, rec.Body.String(), "100%")

	a.Symbols.Set("wifi|400", []byte("png"))
	rec = postForm(t, a, "/admin/reset/", url.Values{}, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analytics.Totals{}, a.Analytics.Totals())
	assert.Empty(t, a.Analytics.Daily())
	assert.Zero(t, a.Symbols.Len())
}

func TestAdminAnalyticsRequiresLogin(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	rec := do(a, httptest.NewRequest(http.MethodGet, "/admin/analytics/api/summary", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = postForm(t, a, "/admin/reset/", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/api/generate", nil)
	req.Header.Set("Origin", "https://widget.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := do(a, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRobotsAndSitemap(t *testing.T) {
	a := newTestApp(t, SiteConfig{URL: "https://qr.example.com"})

	rec := do(a, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sitemap: https://qr.example.com/sitemap.xml")

	rec = do(a, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<loc>https://qr.example.com/</loc>")
}

func TestEmbeddedScriptAndNotFound(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	rec := do(a, httptest.NewRequest(http.MethodGet, "/public/qrvision.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/generate")

	rec = do(a, httptest.NewRequest(http.MethodGet, "/missing/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404")
}
