package git

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/cargo-hold/internal/core/ports"
)

// NodeID is the unique identifier for the file lister Graft node.
const NodeID graft.ID = "adapter.git.lister"

func init() {
	graft.Register(graft.Node[ports.FileLister]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.FileLister, error) {
			return NewLister(), nil
		},
	})
}
