// Package state implements the diff/classify/retime engine that keeps
// filesystem mtimes consistent with recorded content.
package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/cargo-hold/internal/core/domain"
	"go.trai.ch/cargo-hold/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Engine scans a workspace against a prior manifest and produces the
// successor manifest, optionally reapplying mtimes along the way.
type Engine struct {
	lister  ports.FileLister
	hasher  ports.Hasher
	clocks  ports.ClockFactory
	logger  ports.Logger
	workers int
}

// NewEngine creates an Engine with one worker per available CPU.
func NewEngine(lister ports.FileLister, hasher ports.Hasher, clocks ports.ClockFactory, logger ports.Logger) *Engine {
	return &Engine{
		lister:  lister,
		hasher:  hasher,
		clocks:  clocks,
		logger:  logger,
		workers: runtime.GOMAXPROCS(0),
	}
}

// Options select the behavior of a single Scan.
type Options struct {
	// ApplyMtimes restores recorded mtimes for unchanged files and
	// stamps fresh monotonic mtimes on modified and new files
	// (salvage, anchor). When false the filesystem is left untouched.
	ApplyMtimes bool

	// RecordObserved captures the current filesystem mtime for every
	// file instead of consulting the clock (stow: baseline capture).
	RecordObserved bool

	// FollowSymlinks hashes and retimes the target of a tracked
	// symlink when it resolves inside the workspace. The default skips
	// symlinked paths entirely.
	FollowSymlinks bool

	// RecurseSubmodules extends discovery into submodule trees.
	RecurseSubmodules bool
}

// FileFailure is a per-file error that did not abort the run.
type FileFailure struct {
	Path string
	Err  error
}

// Result is the outcome of one Scan.
type Result struct {
	// Root is the resolved workspace root.
	Root string

	// Next is the successor manifest. Its LastBuildMaxMtime is not yet
	// populated; the caller scans the target directory for that.
	Next *domain.Manifest

	Unchanged int
	Modified  int
	Added     int
	Removed   int

	// Applied counts mtimes actually written, after skipping files
	// whose current mtime already matched.
	Applied int

	Failures []FileFailure
}

// entry is one discovered file after hashing.
type entry struct {
	// path is workspace-relative as reported by discovery; applyPath
	// is the absolute path whose mtime is read and written (the
	// symlink target when following links).
	path      string
	applyPath string
	size      uint64
	hash      domain.Digest
	observed  domain.Timestamp
	target    domain.Timestamp
	fresh     bool // target came from the clock, not the prior record
}

// Scan runs discovery, hashing, classification, mtime selection, and
// (per opts) application. Per-file failures are collected in the
// result; only discovery can fail the run.
func (e *Engine) Scan(ctx context.Context, dir string, prior *domain.Manifest, opts Options) (*Result, error) {
	root, err := e.lister.RepoRoot(ctx, dir)
	if err != nil {
		return nil, err
	}

	paths, err := e.lister.ListTracked(ctx, root, opts.RecurseSubmodules)
	if err != nil {
		return nil, err
	}

	res := &Result{Root: root, Next: domain.NewManifest()}
	// The GC's run history rides along: a stow replaces the record set
	// but must not erase the collector's memory.
	res.Next.GCMetrics = prior.GCMetrics.Clone()

	entries := e.hashAll(ctx, root, paths, opts, res)

	// Classify and pick targets. Changed files are stamped in path
	// order so equal inputs yield equal manifests.
	var clock ports.Clock
	if !opts.RecordObserved {
		clock = e.clocks.New(root, effectiveHighWater(prior))
	}

	slices.SortFunc(entries, func(a, b *entry) int {
		return strings.Compare(a.path, b.path)
	})

	for _, ent := range entries {
		rec, known := prior.Lookup(ent.path)
		switch {
		case known && rec.Size == ent.size && rec.Hash == ent.hash:
			res.Unchanged++
			ent.target = rec.Mtime
		case known:
			res.Modified++
			ent.fresh = true
		default:
			res.Added++
			ent.fresh = true
		}

		if ent.fresh {
			if opts.RecordObserved {
				ent.target = ent.observed
			} else {
				ent.target = clock.Next()
			}
		} else if opts.RecordObserved {
			// A stow records what is on disk, even for unchanged files.
			ent.target = ent.observed
		}

		res.Next.Upsert(domain.FileRecord{
			Path:  ent.path,
			Size:  ent.size,
			Hash:  ent.hash,
			Mtime: ent.target,
		})
	}

	for p := range prior.Records {
		if _, ok := res.Next.Records[p]; !ok {
			res.Removed++
		}
	}

	if opts.ApplyMtimes {
		e.applyAll(ctx, entries, res)
	}

	// Carry the high-water mark forward; a run that never consulted
	// the clock must not lose it.
	if clock != nil {
		if hw, ok := clock.HighWater(); ok {
			ts := hw
			res.Next.ClockHighWater = &ts
		}
	} else if prior.ClockHighWater != nil {
		ts := *prior.ClockHighWater
		res.Next.ClockHighWater = &ts
	}

	return res, nil
}

// hashAll stats and hashes every discovered path on the worker pool.
// Paths that fail are recorded and dropped; symlinks are resolved or
// skipped per the configured policy.
func (e *Engine) hashAll(ctx context.Context, root string, paths []string, opts Options, res *Result) []*entry {
	entries := make([]*entry, len(paths))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			ent, err := e.hashOne(root, p, opts)
			if err != nil {
				mu.Lock()
				res.Failures = append(res.Failures, FileFailure{Path: p, Err: err})
				mu.Unlock()
				e.logger.Warn(fmt.Sprintf("skipping %s: %v", p, err))
				return nil
			}
			entries[i] = ent
			return nil
		})
	}

	// The only error a worker returns is context cancellation; the
	// partial entry set is still classified so a terminated run does
	// not write an empty manifest.
	_ = g.Wait() //nolint:errcheck

	compact := entries[:0]
	for _, ent := range entries {
		if ent != nil {
			compact = append(compact, ent)
		}
	}
	return compact
}

// hashOne resolves the symlink policy for one tracked path and hashes
// it. A symlink skipped by policy is reported as an ErrNotRegularFile
// error, like any other non-regular path.
func (e *Engine) hashOne(root, relPath string, opts Options) (*entry, error) {
	full := filepath.Join(root, filepath.FromSlash(relPath))

	info, err := os.Lstat(full)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", relPath)
	}

	applyPath := full
	if info.Mode()&os.ModeSymlink != 0 {
		if !opts.FollowSymlinks {
			return nil, zerr.With(zerr.Wrap(domain.ErrNotRegularFile, "symlink skipped by policy"), "path", relPath)
		}
		resolved, err := resolveInsideRoot(root, full)
		if err != nil {
			return nil, err
		}
		applyPath = resolved
		if info, err = os.Lstat(applyPath); err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", relPath)
		}
	}
	if !info.Mode().IsRegular() {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrNotRegularFile, "cannot track"), "path", relPath), "mode", info.Mode().String())
	}

	size, digest, err := e.hasher.Hash(applyPath)
	if err != nil {
		return nil, err
	}

	return &entry{
		path:      relPath,
		applyPath: applyPath,
		size:      size,
		hash:      digest,
		observed:  domain.TimestampFromTime(info.ModTime()),
	}, nil
}

// applyAll writes target mtimes on the worker pool, skipping files
// whose on-disk mtime already matches. Failures are logged and
// collected; the successor manifest still records the intended state
// because a second run converges.
func (e *Engine) applyAll(ctx context.Context, entries []*entry, res *Result) {
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, ent := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if ent.observed.Equal(ent.target) {
				return nil
			}

			t := ent.target.Time()
			if err := os.Chtimes(ent.applyPath, t, t); err != nil {
				mu.Lock()
				res.Failures = append(res.Failures, FileFailure{
					Path: ent.path,
					Err:  zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", ent.path),
				})
				mu.Unlock()
				e.logger.Warn(fmt.Sprintf("failed to set mtime on %s: %v", ent.path, err))
				return nil
			}

			mu.Lock()
			res.Applied++
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // Workers only propagate cancellation
}

// TargetWatermark walks the target directory and returns the maximum
// file mtime, the protection watermark for the garbage collector. Nil
// when the directory is missing or holds no files.
func (e *Engine) TargetWatermark(targetDir string) *domain.Timestamp {
	var maxTS *domain.Timestamp

	_ = filepath.WalkDir(targetDir, func(path string, d os.DirEntry, err error) error { //nolint:errcheck
		if err != nil || d.IsDir() {
			return nil //nolint:nilerr // Unreadable entries simply don't move the watermark
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr
		}
		ts := domain.TimestampFromTime(info.ModTime())
		if maxTS == nil || ts.After(*maxTS) {
			maxTS = &ts
		}
		return nil
	})

	return maxTS
}

// effectiveHighWater seeds the clock: the later of the persisted
// high-water mark and the newest recorded mtime. The record mtimes
// cover manifests migrated from v1, which carried records but no
// clock state.
func effectiveHighWater(prior *domain.Manifest) *domain.Timestamp {
	hw := prior.ClockHighWater
	if maxRec := prior.MaxRecordMtime(); maxRec != nil && (hw == nil || maxRec.After(*hw)) {
		return maxRec
	}
	return hw
}

// resolveInsideRoot follows a symlink and verifies the target stays
// under root.
func resolveInsideRoot(root, link string) (string, error) {
	resolved, err := filepath.EvalSymlinks(link)
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", link)
	}
	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", root)
	}
	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", zerr.With(zerr.Wrap(domain.ErrNotRegularFile, "symlink escapes workspace"), "path", link)
	}
	return resolved, nil
}
