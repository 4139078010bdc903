package config

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the config file Graft node.
const NodeID graft.ID = "adapter.config"

func init() {
	graft.Register(graft.Node[*File]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*File, error) {
			return Load(".")
		},
	})
}
