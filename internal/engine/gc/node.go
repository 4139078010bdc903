package gc

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/cargo-hold/internal/adapters/logger"
	"go.trai.ch/cargo-hold/internal/core/ports"
)

// NodeID is the unique identifier for the GC planner Graft node.
const NodeID graft.ID = "engine.gc"

func init() {
	graft.Register(graft.Node[*Planner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (*Planner, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewPlanner(log), nil
		},
	})
}
