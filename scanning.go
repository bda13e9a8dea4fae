package qrvision

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/qrvision/qrvision/scan"
)

func (a *App) handleScanStart(c echo.Context) error {
	s, err := a.Scans.Start()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s)
}

func (a *App) handleScanGet(c echo.Context) error {
	s, err := a.Scans.Get(c.Param("id"))
	if err != nil {
		return scanError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// ScanResultRequest carries the text a client decoded from the camera.
type ScanResultRequest struct {
	Text string `json:"text" form:"text"`
}

func (a *App) handleScanResult(c echo.Context) error {
	var req ScanResultRequest
	if err := c.Bind(&req); err != nil || req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	res, err := a.Scans.Deliver(c.Param("id"), req.Text)
	if err != nil {
		return scanError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ScanErrorRequest reports a frame the client could not decode.
type ScanErrorRequest struct {
	Error string `json:"error" form:"error"`
}

func (a *App) handleScanError(c echo.Context) error {
	var req ScanErrorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := a.Scans.Fail(c.Param("id"), errors.New(req.Error)); err != nil {
		return scanError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleScanCancel(c echo.Context) error {
	if err := a.Scans.Cancel(c.Param("id")); err != nil {
		return scanError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleScanUpload decodes a QR symbol from an uploaded photo. A decoded
// upload counts as one scan.
func (a *App) handleScanUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No image file provided"})
	}
	if file.Size > scan.MaxUploadSize {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "File too large (max 10MB)"})
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	text, err := scan.DecodeImage(src)
	if err != nil {
		switch {
		case errors.Is(err, scan.ErrNoCode):
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "لم يتم العثور على رمز QR"})
		case errors.Is(err, scan.ErrImageTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "Image dimensions too large"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid image: " + err.Error()})
	}

	a.Scans.Emit()
	return c.JSON(http.StatusOK, scan.Result{Text: text, IsURL: scan.IsURL(strings.TrimSpace(text))})
}

func scanError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, scan.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, scan.ErrSessionClosed):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return err
}
