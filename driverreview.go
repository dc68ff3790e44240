package driverreview

import "embed"

//go:embed internal/console/templates/*.html static
var Files embed.FS
