// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/cloudbuilder/internal/adapters/archive"
	_ "go.trai.ch/cloudbuilder/internal/adapters/config"
	_ "go.trai.ch/cloudbuilder/internal/adapters/logger"
	_ "go.trai.ch/cloudbuilder/internal/adapters/metrics"
	_ "go.trai.ch/cloudbuilder/internal/adapters/shell"
	_ "go.trai.ch/cloudbuilder/internal/adapters/telemetry"
	// Register app nodes.
	_ "go.trai.ch/cloudbuilder/internal/app"
)
