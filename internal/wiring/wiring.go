// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/cargo-hold/internal/adapters/clock"
	_ "go.trai.ch/cargo-hold/internal/adapters/config"
	_ "go.trai.ch/cargo-hold/internal/adapters/git"
	_ "go.trai.ch/cargo-hold/internal/adapters/hasher"
	_ "go.trai.ch/cargo-hold/internal/adapters/logger"
	_ "go.trai.ch/cargo-hold/internal/adapters/manifest"
	// Register app and engine nodes.
	_ "go.trai.ch/cargo-hold/internal/app"
	_ "go.trai.ch/cargo-hold/internal/engine/gc"
	_ "go.trai.ch/cargo-hold/internal/engine/state"
)
