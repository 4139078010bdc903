package state

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/cargo-hold/internal/adapters/clock"
	"go.trai.ch/cargo-hold/internal/adapters/git"
	"go.trai.ch/cargo-hold/internal/adapters/hasher"
	"go.trai.ch/cargo-hold/internal/adapters/logger"
	"go.trai.ch/cargo-hold/internal/core/ports"
)

// NodeID is the unique identifier for the state engine Graft node.
const NodeID graft.ID = "engine.state"

func init() {
	graft.Register(graft.Node[*Engine]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{git.NodeID, hasher.NodeID, clock.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Engine, error) {
			lister, err := graft.Dep[ports.FileLister](ctx)
			if err != nil {
				return nil, err
			}
			h, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			clocks, err := graft.Dep[ports.ClockFactory](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewEngine(lister, h, clocks, log), nil
		},
	})
}
