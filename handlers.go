package qrvision

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/qrvision/qrvision/analytics"
	"github.com/qrvision/qrvision/payload"
	"github.com/qrvision/qrvision/render"
)

func (a *App) handleHome(c echo.Context) error {
	// Crawlers are not visitors.
	if !analytics.IsBot(c.Request().UserAgent()) {
		if err := a.Analytics.RecordVisit(); err != nil {
			c.Logger().Errorf("Failed to persist visit: %v", err)
		}
	}
	return Render(c, a.Views.Home(a.site(), payload.Templates(), CsrfToken(c)))
}

func (a *App) handleTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, payload.Templates())
}

// GenerateRequest is the body of POST /api/generate. Either Template with
// Fields, or free Text, is set.
type GenerateRequest struct {
	Template payload.TemplateID `json:"template"`
	Fields   payload.FormData   `json:"fields"`
	Text     string             `json:"text"`
}

// GenerateResponse carries the encoded payload. Missing lists required
// fields that were empty; the payload is still produced.
type GenerateResponse struct {
	Payload string   `json:"payload"`
	Missing []string `json:"missing,omitempty"`
}

func (a *App) handleGenerate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	var resp GenerateResponse
	if req.Template != "" {
		tmpl, ok := payload.Lookup(req.Template)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": payload.ErrUnknownTemplate.Error()})
		}
		resp.Payload = tmpl.Encode(req.Fields)
		resp.Missing = tmpl.Missing(req.Fields)
	} else {
		resp.Payload = strings.TrimSpace(req.Text)
		if resp.Payload == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "الرجاء إدخال نص أو رابط"})
		}
	}

	if err := a.Analytics.RecordGenerated(); err != nil {
		c.Logger().Errorf("Failed to persist generation: %v", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// handleSymbol renders ?text= as a PNG. Identical requests are served from
// the symbol cache and do not count against the rate limit.
func (a *App) handleSymbol(c echo.Context) error {
	text := c.QueryParam("text")
	opts := render.Options{
		Foreground: c.QueryParam("fg"),
		Background: c.QueryParam("bg"),
		Level:      c.QueryParam("level"),
	}
	if s := c.QueryParam("size"); s != "" {
		size, err := strconv.Atoi(s)
		if err != nil {
			return c.String(http.StatusBadRequest, "Invalid size")
		}
		opts.Size = size
	}

	key := opts.Key(text)
	data, ok := a.Symbols.Get(key)
	if !ok {
		if !a.renderLimiter.Allow(c.RealIP()) {
			return c.String(http.StatusTooManyRequests, "Too many requests. Try again later.")
		}
		var err error
		data, err = render.PNG(text, opts)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		a.Symbols.Set(key, data)
	}

	if c.QueryParam("download") != "" {
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+DownloadName(c.QueryParam("name"))+`"`)
	}
	return c.Blob(http.StatusOK, "image/png", data)
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\nDisallow: /admin/\nDisallow: /api/\n")
	if sitemap, err := url.JoinPath(a.Config.URL, "sitemap.xml"); err == nil {
		b.WriteString("Sitemap: " + sitemap + "\n")
	}
	return c.String(http.StatusOK, b.String())
}

func (a *App) handleSitemap(c echo.Context) error {
	return a.renderSitemap(c)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound && !isAPIPath(c.Request().URL.Path) {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		if isAPIPath(c.Request().URL.Path) {
			_ = c.JSON(code, map[string]string{"error": "Internal server error"})
			return
		}
		_ = RenderStatus(c, code, a.Views.ServerError(a.site()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
