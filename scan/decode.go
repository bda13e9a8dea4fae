package scan

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"golang.org/x/image/draw"
)

const (
	maxDecodeWidth = 1600
	MaxUploadSize  = 10 << 20 // 10MB
)

// maxDecodePixels caps the canvas an upload may declare. A 40MP photo
// passes; a few-kilobyte file claiming a gigapixel canvas does not.
var maxDecodePixels = 40_000_000

var (
	// ErrNoCode is returned when an image holds no readable QR symbol.
	ErrNoCode = errors.New("scan: no QR code found")
	// ErrImageTooLarge is returned when an image declares more pixels than
	// the decoder accepts.
	ErrImageTooLarge = errors.New("scan: image dimensions too large")
)

// DecodeImage reads an image from src and returns the text of the QR
// symbol it contains. The header is checked against maxDecodePixels before
// any pixel data is decoded. Photos wider than maxDecodeWidth are
// downscaled first.
func DecodeImage(src io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", fmt.Errorf("decode image: empty canvas %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Width > maxDecodePixels/cfg.Height {
		return "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxDecodeWidth {
		newH := h * maxDecodeWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxDecodeWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize: %w", err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	res, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	return res.GetText(), nil
}
