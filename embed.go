package qrvision

import "embed"

// EmbeddedAssets contains static assets shipped with the app: qrvision.js,
// the client that drives the generator form and the camera scanner.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
