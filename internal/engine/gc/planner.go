package gc

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.trai.ch/cargo-hold/internal/core/domain"
	"go.trai.ch/cargo-hold/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

// Config is the input to one heave run.
type Config struct {
	TargetDir string

	// MaxTargetSize caps the total size of eviction-eligible crate
	// groups. Nil means no size enforcement.
	MaxTargetSize *uint64

	// AgeThresholdDays is the age policy for crate groups and the
	// target directory's ancillary subtrees. Zero disables watermark
	// protection and removes every eligible group.
	AgeThresholdDays uint32

	// PreserveBinaries are extra name prefixes kept in the cargo bin
	// directory.
	PreserveBinaries []string

	// Watermark is the manifest's last-build watermark; groups whose
	// newest mtime is no more than five minutes before it are not
	// evicted. There is no such protection when the watermark is older
	// than the age threshold or the threshold is zero.
	Watermark *domain.Timestamp

	// CargoHome overrides the cargo home directory (tests); empty
	// means CargoHome().
	CargoHome string

	DryRun bool
	Debug  bool
}

// Removal is one planned deletion outside the crate-group policy.
type Removal struct {
	Path  string
	Size  uint64
	IsDir bool
}

// Plan is the ordered set of deletions a heave run intends to make.
type Plan struct {
	// Groups are evicted crate units, oldest first.
	Groups []*CrateGroup

	// Ancillary are age-based removals under the target directory and
	// cargo home, plus incremental compilation state.
	Ancillary []Removal

	// ProtectedGroups and ProtectedBinaries report what the planner
	// exempted, for diagnostics.
	ProtectedGroups   int
	ProtectedBinaries int
}

// BytesFreed is the total size the plan would reclaim.
func (p *Plan) BytesFreed() uint64 {
	var total uint64
	for _, g := range p.Groups {
		total += g.TotalSize
	}
	for _, r := range p.Ancillary {
		total += r.Size
	}
	return total
}

// Render writes the human-readable plan, used verbatim for dry runs.
func (p *Plan) Render(w io.Writer) {
	fmt.Fprintf(w, "heave plan: %d crate units, %d ancillary entries, %s to free\n",
		len(p.Groups), len(p.Ancillary), domain.FormatSize(p.BytesFreed()))
	for _, g := range p.Groups {
		fmt.Fprintf(w, "  evict %s (%s, %d files)\n", g.ID(), domain.FormatSize(g.TotalSize), len(g.Artifacts))
	}
	for _, r := range p.Ancillary {
		fmt.Fprintf(w, "  remove %s (%s)\n", r.Path, domain.FormatSize(r.Size))
	}
	if p.ProtectedGroups > 0 {
		fmt.Fprintf(w, "  protected: %d crate units from the last build\n", p.ProtectedGroups)
	}
}

// Stats summarizes an executed (or dry) run.
type Stats struct {
	GroupsRemoved  int
	EntriesRemoved int
	BytesFreed     uint64
	Failures       int
}

// Planner builds and executes heave plans.
type Planner struct {
	logger  ports.Logger
	workers int

	// now is stubbed in tests.
	now func() time.Time
}

// NewPlanner creates a Planner.
func NewPlanner(logger ports.Logger) *Planner {
	return &Planner{
		logger:  logger,
		workers: runtime.GOMAXPROCS(0),
		now:     time.Now,
	}
}

// Plan walks the target directory and cargo home and produces the
// ordered deletion plan. Planning never deletes anything.
func (p *Planner) Plan(cfg Config) (*Plan, error) {
	now := p.now()
	plan := &Plan{}

	for _, profileDir := range findProfileDirs(cfg.TargetDir) {
		groups, err := collectCrateGroups(profileDir, p.logger)
		if err != nil {
			return nil, err
		}

		protected, eligible := partitionProtected(groups, cfg.Watermark, cfg.AgeThresholdDays, now)
		plan.ProtectedGroups += len(protected)

		if p.logger != nil && cfg.Debug {
			p.logger.Debug(fmt.Sprintf("gc: %s: %d crate units, %d protected by last-build watermark",
				profileDir, len(groups), len(protected)))
		}

		sized, remaining := selectForSize(eligible, cfg.MaxTargetSize)
		plan.Groups = append(plan.Groups, sized...)
		plan.Groups = append(plan.Groups, selectForAge(remaining, cfg.AgeThresholdDays, now)...)

		plan.ProtectedBinaries += len(profileBinaries(profileDir))

		// Incremental compilation state never survives a cache
		// restore usefully; drop it wholesale.
		incremental := filepath.Join(profileDir, "incremental")
		if info, err := os.Stat(incremental); err == nil && info.IsDir() {
			plan.Ancillary = append(plan.Ancillary, Removal{Path: incremental, Size: dirSize(incremental), IsDir: true})
		}
	}

	ageCutoff := now.Add(-time.Duration(cfg.AgeThresholdDays) * 24 * time.Hour)
	for _, sub := range []string{"doc", "package", "tmp"} {
		plan.Ancillary = append(plan.Ancillary, agedEntries(filepath.Join(cfg.TargetDir, sub), ageCutoff)...)
	}

	cargoHome := cfg.CargoHome
	if cargoHome == "" {
		cargoHome = CargoHome()
	}
	plan.Ancillary = append(plan.Ancillary, planCargoHome(cargoHome, cfg.AgeThresholdDays, cfg.PreserveBinaries, now)...)

	return plan, nil
}

// Execute deletes everything in the plan. Crate groups are removed
// member by member so a group is never left half-deleted by policy;
// individual I/O failures are logged, counted, and skipped.
func (p *Planner) Execute(ctx context.Context, plan *Plan) *Stats {
	stats := &Stats{}
	var mu sync.Mutex

	for _, g := range plan.Groups {
		if ctx.Err() != nil {
			break
		}
		failed := false
		for _, a := range g.Artifacts {
			if err := remove(a); err != nil {
				p.logger.Warn(fmt.Sprintf("gc: failed to remove %s: %v", a.Path, err))
				failed = true
			}
		}
		mu.Lock()
		if failed {
			stats.Failures++
		} else {
			stats.GroupsRemoved++
		}
		stats.BytesFreed += g.TotalSize
		mu.Unlock()
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)
	for _, r := range plan.Ancillary {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := remove(Artifact{Path: r.Path, IsDir: r.IsDir}); err != nil {
				p.logger.Warn(fmt.Sprintf("gc: failed to remove %s: %v", r.Path, err))
				mu.Lock()
				stats.Failures++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			stats.EntriesRemoved++
			stats.BytesFreed += r.Size
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait() //nolint:errcheck // Workers only propagate cancellation

	return stats
}

// Run plans and, unless dry-running, executes.
func (p *Planner) Run(ctx context.Context, cfg Config) (*Stats, error) {
	plan, err := p.Plan(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.DryRun {
		var sb strings.Builder
		plan.Render(&sb)
		for line := range strings.Lines(strings.TrimRight(sb.String(), "\n")) {
			p.logger.Info(strings.TrimRight(line, "\n"))
		}
		// Report what the plan would have done; the adaptive-cap
		// metrics keep tracking through dry runs.
		return &Stats{
			GroupsRemoved:  len(plan.Groups),
			EntriesRemoved: len(plan.Ancillary),
			BytesFreed:     plan.BytesFreed(),
		}, nil
	}

	stats := p.Execute(ctx, plan)
	p.logger.Info(fmt.Sprintf("heave: removed %d crate units and %d entries, freed %s",
		stats.GroupsRemoved, stats.EntriesRemoved, domain.FormatSize(stats.BytesFreed)))
	return stats, nil
}

// remove deletes one artifact; directories recursively.
func remove(a Artifact) error {
	var err error
	if a.IsDir {
		err = os.RemoveAll(a.Path)
	} else {
		err = os.Remove(a.Path)
	}
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
