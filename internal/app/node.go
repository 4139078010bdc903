package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/cargo-hold/internal/adapters/config"
	"go.trai.ch/cargo-hold/internal/adapters/logger"
	"go.trai.ch/cargo-hold/internal/adapters/manifest"
	"go.trai.ch/cargo-hold/internal/core/ports"
	"go.trai.ch/cargo-hold/internal/engine/gc"
	"go.trai.ch/cargo-hold/internal/engine/state"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components bundles everything the CLI needs.
type Components struct {
	App    *App
	Logger ports.Logger
	Config *config.File
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			state.NodeID,
			gc.NodeID,
			manifest.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			engine, err := graft.Dep[*state.Engine](ctx)
			if err != nil {
				return nil, err
			}
			planner, err := graft.Dep[*gc.Planner](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.ManifestStore](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(engine, planner, store, log), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			config.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			cfg, err := graft.Dep[*config.File](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: a, Logger: log, Config: cfg}, nil
		},
	})
}
