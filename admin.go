package qrvision

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/qrvision/qrvision/analytics"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(a.site(), false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

// handleAdminLogin checks the submitted password. A wrong password renders
// the form again with an inline error; there is no lockout.
func (a *App) handleAdminLogin(c echo.Context) error {
	if a.checkPassword(c.FormValue("password")) {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return Render(c, a.Views.AdminLogin(a.site(), true, CsrfToken(c)))
}

func (a *App) checkPassword(pass string) bool {
	if a.Config.AdminPasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.Config.AdminPasswordHash), []byte(pass)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

// handleAdminReset clears every analytics record after the dashboard's
// confirmation step, and drops rendered symbols along with them.
func (a *App) handleAdminReset(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := a.Analytics.Reset(); err != nil {
		c.Logger().Errorf("Failed to reset analytics: %v", err)
		return a.renderAdminDashboard(c, "تعذر مسح البيانات")
	}
	a.Symbols.Invalidate()
	return a.renderAdminDashboard(c, "تم مسح جميع البيانات")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	vm := analytics.ConvertSummaryToViewModel(a.Analytics.Totals(), a.Analytics.Summary(), a.Analytics.Location())
	return Render(c, a.Views.AdminDashboard(a.site(), vm, msg, CsrfToken(c)))
}
