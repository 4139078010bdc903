package gc

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

func TestPlan_Render(t *testing.T) {
	plan := &Plan{
		Groups: []*CrateGroup{
			{
				Name:      "serde",
				Hash:      "0123456789abcdef",
				TotalSize: 2048,
				Artifacts: make([]Artifact, 3),
			},
			{
				Name:      "tokio",
				Hash:      "fedcba9876543210",
				TotalSize: 1024,
				Artifacts: make([]Artifact, 2),
			},
		},
		Ancillary: []Removal{
			{Path: "target/tmp/scratch.bin", Size: 1024},
		},
		ProtectedGroups: 1,
	}

	var buf bytes.Buffer
	plan.Render(&buf)

	g := goldie.New(t)
	g.Assert(t, "heave_plan", buf.Bytes())
}
