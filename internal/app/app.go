// Package app implements the application layer for cargo-hold: the six
// user-visible operations glued from the engines and adapters.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.trai.ch/cargo-hold/internal/core/domain"
	"go.trai.ch/cargo-hold/internal/core/ports"
	"go.trai.ch/cargo-hold/internal/engine/gc"
	"go.trai.ch/cargo-hold/internal/engine/state"
	"go.trai.ch/zerr"
)

// MetadataFilename is the default manifest filename inside the target
// directory.
const MetadataFilename = "cargo-hold.metadata"

// App represents the main application logic.
type App struct {
	engine  *state.Engine
	planner *gc.Planner
	store   ports.ManifestStore
	logger  ports.Logger
}

// New creates a new App instance.
func New(engine *state.Engine, planner *gc.Planner, store ports.ManifestStore, logger ports.Logger) *App {
	return &App{
		engine:  engine,
		planner: planner,
		store:   store,
		logger:  logger,
	}
}

// Options are the settings shared by every operation.
type Options struct {
	// WorkingDir is where discovery starts; the workspace root is
	// resolved upward from it. Defaults to ".".
	WorkingDir string

	// TargetDir is the build tool's output directory. Defaults to
	// "target", resolved against WorkingDir when relative.
	TargetDir string

	// MetadataPath overrides the manifest location. Defaults to
	// <TargetDir>/cargo-hold.metadata.
	MetadataPath string

	FollowSymlinks    bool
	RecurseSubmodules bool
}

func (o Options) withDefaults() Options {
	if o.WorkingDir == "" {
		o.WorkingDir = "."
	}
	if o.TargetDir == "" {
		o.TargetDir = "target"
	}
	if !filepath.IsAbs(o.TargetDir) {
		o.TargetDir = filepath.Join(o.WorkingDir, o.TargetDir)
	}
	if o.MetadataPath == "" {
		o.MetadataPath = filepath.Join(o.TargetDir, MetadataFilename)
	} else if !filepath.IsAbs(o.MetadataPath) {
		o.MetadataPath = filepath.Join(o.WorkingDir, o.MetadataPath)
	}
	return o
}

func (o Options) scanOptions(applyMtimes, recordObserved bool) state.Options {
	return state.Options{
		ApplyMtimes:       applyMtimes,
		RecordObserved:    recordObserved,
		FollowSymlinks:    o.FollowSymlinks,
		RecurseSubmodules: o.RecurseSubmodules,
	}
}

// GCOptions are the heave-specific settings.
type GCOptions struct {
	MaxTargetSize    *uint64
	AgeThresholdDays uint32
	PreserveBinaries []string
	DryRun           bool
	Debug            bool

	// DisableAutoCap turns off adaptive size capping. By default a
	// missing MaxTargetSize is filled in from the recorded GC history
	// so the cache self-bounds even when CI passes no explicit size.
	DisableAutoCap bool

	// CargoHome overrides the cargo home directory; tests use it.
	CargoHome string
}

// Stow rescans the workspace and persists a fresh manifest recording
// the mtimes currently on disk. The filesystem is not modified.
func (a *App) Stow(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()

	prior, err := a.loadOrReset(opts.MetadataPath)
	if err != nil {
		return err
	}

	res, err := a.engine.Scan(ctx, opts.WorkingDir, prior, opts.scanOptions(false, true))
	if err != nil {
		return err
	}

	res.Next.LastBuildMaxMtime = a.engine.TargetWatermark(opts.TargetDir)

	if err := a.store.Persist(opts.MetadataPath, res.Next); err != nil {
		return err
	}

	a.summarize("stow", res)
	return nil
}

// Salvage restores mtimes from the manifest: unchanged files get their
// recorded mtime back, changed and new files get fresh monotonic
// stamps. Nothing is persisted.
func (a *App) Salvage(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()

	prior, err := a.loadOrReset(opts.MetadataPath)
	if err != nil {
		return err
	}

	res, err := a.engine.Scan(ctx, opts.WorkingDir, prior, opts.scanOptions(true, false))
	if err != nil {
		return err
	}

	a.summarize("salvage", res)
	return nil
}

// Anchor is the canonical CI entry point: salvage, then persist the
// successor manifest with a fresh target-directory watermark.
func (a *App) Anchor(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()

	prior, err := a.loadOrReset(opts.MetadataPath)
	if err != nil {
		return err
	}

	res, err := a.engine.Scan(ctx, opts.WorkingDir, prior, opts.scanOptions(true, false))
	if err != nil {
		return err
	}

	res.Next.LastBuildMaxMtime = a.engine.TargetWatermark(opts.TargetDir)

	if err := a.store.Persist(opts.MetadataPath, res.Next); err != nil {
		return err
	}

	a.summarize("anchor", res)
	return nil
}

// Bilge deletes the manifest; the next run starts from scratch.
func (a *App) Bilge(_ context.Context, opts Options) error {
	opts = opts.withDefaults()

	if err := a.store.Delete(opts.MetadataPath); err != nil {
		return err
	}
	a.logger.Info("bilge: manifest removed")
	return nil
}

// Heave garbage-collects the target directory and cargo home under the
// configured size and age policies, protecting the last build
// generation recorded by the most recent stow. Without an explicit
// size cap an adaptive one is derived from the manifest's GC history,
// and the history is updated and persisted after every run.
func (a *App) Heave(ctx context.Context, opts Options, gcOpts GCOptions) error {
	opts = opts.withDefaults()

	m, err := a.loadOrReset(opts.MetadataPath)
	if err != nil {
		return err
	}

	initialSize := gc.DirectorySize(opts.TargetDir)
	var currentSize *uint64
	if initialSize > 0 {
		size := initialSize
		currentSize = &size
	}

	maxSize := gcOpts.MaxTargetSize
	autoCapUsed := false
	if maxSize == nil && !gcOpts.DisableAutoCap {
		if suggested, trace, ok := gc.SuggestMaxTargetSize(&m.GCMetrics, currentSize); ok {
			capValue := suggested
			maxSize = &capValue
			autoCapUsed = true
			// Concise even without verbose so CI logs show why the cap moved.
			a.logger.Info(fmt.Sprintf("auto-selected max target size: %s (baseline %s, headroom %s, growth p90 %d%%, clamp %s)",
				domain.FormatSize(suggested), domain.FormatSize(trace.Baseline),
				domain.FormatSize(trace.GrowthBudget), trace.ObservedGrowthPct, trace.ClampReason))
		}
	}

	stats, err := a.planner.Run(ctx, gc.Config{
		TargetDir:        opts.TargetDir,
		MaxTargetSize:    maxSize,
		AgeThresholdDays: gcOpts.AgeThresholdDays,
		PreserveBinaries: gcOpts.PreserveBinaries,
		Watermark:        m.LastBuildMaxMtime,
		CargoHome:        gcOpts.CargoHome,
		DryRun:           gcOpts.DryRun,
		Debug:            gcOpts.Debug,
	})
	if err != nil {
		return err
	}
	if maxSize != nil {
		mode := "user"
		if autoCapUsed {
			mode = "auto"
		}
		a.logger.Debug(fmt.Sprintf("heave: cap used (%s): %s", mode, domain.FormatSize(*maxSize)))
	}

	// Record this run so the next auto-cap decision sees it. Dry runs
	// count too; their stats describe what the plan would have freed.
	metrics := &m.GCMetrics
	metrics.Runs++
	if metrics.SeedInitialSize == nil && currentSize != nil {
		metrics.SeedInitialSize = currentSize
	}
	finalSize := initialSize - min(stats.BytesFreed, initialSize)
	metrics.RecentInitialSizes = gc.PushBounded(metrics.RecentInitialSizes, initialSize)
	metrics.RecentBytesFreed = gc.PushBounded(metrics.RecentBytesFreed, stats.BytesFreed)
	metrics.RecentFinalSizes = gc.PushBounded(metrics.RecentFinalSizes, finalSize)
	if autoCapUsed {
		metrics.LastSuggestedCap = maxSize
	}

	return a.store.Persist(opts.MetadataPath, m)
}

// Voyage is anchor followed by heave. The GC sees the watermark the
// anchor just persisted, so the generation captured moments ago is the
// one protected.
func (a *App) Voyage(ctx context.Context, opts Options, gcOpts GCOptions) error {
	if err := a.Anchor(ctx, opts); err != nil {
		return err
	}
	return a.Heave(ctx, opts, gcOpts)
}

// loadOrReset loads the prior manifest, replacing a corrupt one with
// an empty manifest. Out-of-band modification is not recoverable state
// worth dying over; the next stow rebuilds everything.
func (a *App) loadOrReset(path string) (*domain.Manifest, error) {
	m, err := a.store.Load(path)
	if err == nil {
		return m, nil
	}
	if errors.Is(err, domain.ErrManifestCorrupt) {
		a.logger.Warn(fmt.Sprintf("manifest corrupt, starting fresh: %v", err))
		if err := a.store.Delete(path); err != nil {
			return nil, err
		}
		return domain.NewManifest(), nil
	}
	return nil, zerr.Wrap(err, "failed to load manifest")
}

func (a *App) summarize(op string, res *state.Result) {
	a.logger.Info(fmt.Sprintf("%s: %d unchanged, %d modified, %d added, %d removed, %d mtimes applied",
		op, res.Unchanged, res.Modified, res.Added, res.Removed, res.Applied))
	if len(res.Failures) > 0 {
		a.logger.Warn(fmt.Sprintf("%s: %d files skipped due to errors", op, len(res.Failures)))
	}
}
