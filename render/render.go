// Package render draws QR symbols for encoded payloads.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

// ErrEmptyPayload is returned when there is nothing to encode.
var ErrEmptyPayload = errors.New("render: empty payload")

// Size limits in pixels.
const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 2048
)

// Options controls how a symbol is drawn.
type Options struct {
	Size       int    // edge length in pixels (default 256)
	Foreground string // hex colour, default "#000000"
	Background string // hex colour, default "#ffffff"
	Level      string // error correction: L, M, Q or H (default M)
}

func (o *Options) setDefaults() {
	if o.Size == 0 {
		o.Size = DefaultSize
	}
	o.Size = min(max(o.Size, MinSize), MaxSize)
	if o.Foreground == "" {
		o.Foreground = "#000000"
	}
	if o.Background == "" {
		o.Background = "#ffffff"
	}
	if o.Level == "" {
		o.Level = "M"
	}
}

// Key returns a stable cache key for payload drawn with o.
func (o Options) Key(payload string) string {
	o.setDefaults()
	return fmt.Sprintf("%d|%s|%s|%s|%s", o.Size, strings.ToLower(o.Foreground), strings.ToLower(o.Background), strings.ToUpper(o.Level), payload)
}

// Image draws payload as an o.Size×o.Size image.
func Image(payload string, o Options) (image.Image, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	o.setDefaults()

	level, err := ParseLevel(o.Level)
	if err != nil {
		return nil, err
	}
	fg, err := ParseHexColor(o.Foreground)
	if err != nil {
		return nil, fmt.Errorf("foreground: %w", err)
	}
	bg, err := ParseHexColor(o.Background)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}

	q, err := qrcode.New(payload, level)
	if err != nil {
		return nil, fmt.Errorf("encode symbol: %w", err)
	}
	q.ForegroundColor = fg
	q.BackgroundColor = bg

	// A negative size draws one module per pixel; scaling afterwards with
	// nearest-neighbour keeps module edges sharp at any requested size.
	src := q.Image(-1)
	dst := image.NewRGBA(image.Rect(0, 0, o.Size, o.Size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// PNG draws payload and encodes it as PNG.
func PNG(payload string, o Options) ([]byte, error) {
	img, err := Image(payload, o)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseLevel maps L, M, Q, H to the recovery levels of the symbol encoder.
func ParseLevel(s string) (qrcode.RecoveryLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L":
		return qrcode.Low, nil
	case "M", "":
		return qrcode.Medium, nil
	case "Q":
		return qrcode.High, nil
	case "H":
		return qrcode.Highest, nil
	}
	return 0, fmt.Errorf("render: unknown error correction level %q", s)
}

// ParseHexColor parses "#rrggbb" or "#rgb".
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("render: invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("render: invalid colour %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
