package clock

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/cargo-hold/internal/adapters/logger"
	"go.trai.ch/cargo-hold/internal/core/ports"
)

// NodeID is the unique identifier for the clock factory Graft node.
const NodeID graft.ID = "adapter.clock.factory"

func init() {
	graft.Register(graft.Node[ports.ClockFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.ClockFactory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(log), nil
		},
	})
}
