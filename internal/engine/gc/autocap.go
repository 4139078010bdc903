package gc

import (
	"slices"

	"go.trai.ch/cargo-hold/internal/core/domain"
)

// Adaptive cap sizing. When no explicit --max-target-size is given,
// heave bounds the target directory itself: the cap tracks the median
// post-GC footprint plus observed growth headroom, drifting at most a
// few percent per run so one outlier build cannot whipsaw the cache.
const (
	// metricsWindow bounds every per-run history in GCMetrics.
	metricsWindow = 20

	// minHeadroomBytes is the cold-start safety cushion above the
	// observed footprint.
	minHeadroomBytes = 2 << 30

	// minSteadyHeadroomBytes is the cushion once a previous cap exists.
	minSteadyHeadroomBytes = 256 << 20

	// maxGrowthPerRunPct and maxShrinkPerRunPct limit cap drift per run.
	maxGrowthPerRunPct = 10
	maxShrinkPerRunPct = 10

	// growthDeadbandPct tolerates small oscillations without moving the cap.
	growthDeadbandPct = 5

	// hardCeilingMinFinals is how much history is required before the
	// hard ceiling clamps a proposal.
	hardCeilingMinFinals = 3
)

// CapTrace records why the auto-cap landed where it did. It is logged
// so CI output shows why the cap moved; it is not persisted.
type CapTrace struct {
	Baseline          uint64
	GrowthBudget      uint64
	ObservedGrowthPct uint64
	ClampReason       string
}

// PushBounded appends value and drops the oldest entries beyond the
// metrics window.
func PushBounded(values []uint64, value uint64) []uint64 {
	values = append(values, value)
	if overflow := len(values) - metricsWindow; overflow > 0 {
		values = slices.Delete(values, 0, overflow)
	}
	return values
}

// SuggestMaxTargetSize derives a size cap from the recorded GC history.
// seedFromCurrent is the current target-directory size, used as the
// baseline on the very first run; ok is false when there is no history
// and no current size to seed from.
func SuggestMaxTargetSize(metrics *domain.GCMetrics, seedFromCurrent *uint64) (suggested uint64, trace CapTrace, ok bool) {
	var seed uint64
	seededFromCurrent := false
	switch {
	case metrics.SeedInitialSize != nil:
		seed = *metrics.SeedInitialSize
	case seedFromCurrent != nil:
		seed = *seedFromCurrent
		seededFromCurrent = true
	default:
		return 0, CapTrace{}, false
	}

	finals := finalsFromMetrics(metrics, seed)
	growths := growthsFromMetrics(metrics, finals, seed)
	finalGrowths := positiveFinalGrowths(finals)
	baseline := baselineFromFinals(finals)
	hasPrevCap := metrics.LastSuggestedCap != nil
	growthBudget := growthBudgetFromGrowths(growths, hasPrevCap)

	proposed := baseline + growthBudget
	clampReason := "none"

	coldStartFromCurrent := seededFromCurrent &&
		metrics.LastSuggestedCap == nil &&
		len(metrics.RecentInitialSizes) == 0 &&
		len(metrics.RecentBytesFreed) == 0 &&
		len(metrics.RecentFinalSizes) == 0

	var nonZeroFinals []uint64
	for _, v := range finals {
		if v > 0 {
			nonZeroFinals = append(nonZeroFinals, v)
		}
	}
	if !coldStartFromCurrent && len(nonZeroFinals) >= hardCeilingMinFinals {
		slices.Sort(nonZeroFinals)
		hardCeiling := percentile(nonZeroFinals, 75) * 2
		if proposed > hardCeiling {
			proposed = hardCeiling
			clampReason = "hard-ceiling"
		}
	}

	if hasPrevCap {
		prevCap := *metrics.LastSuggestedCap

		// If observed growth (based on finals) is within a deadband,
		// hold the cap steady.
		observedP90 := percentile(finalGrowths, 90)
		var growthPct uint64
		if baseline > 0 {
			growthPct = observedP90 * 100 / baseline
		}

		if observedP90 == 0 {
			// No observed positive growth; hold steady when the
			// baseline is at or above the cap, otherwise let the
			// shrink clamp apply.
			if baseline >= prevCap {
				proposed = prevCap
				clampReason = "deadband/hold"
			}
		} else if growthPct <= growthDeadbandPct {
			proposed = prevCap
			clampReason = "deadband/hold"
		}

		maxUp := prevCap + prevCap*maxGrowthPerRunPct/100
		maxDown := prevCap - prevCap*maxShrinkPerRunPct/100

		baselineLower := min(baseline, maxUp, prevCap)
		lower := min(max(maxDown, baselineLower), maxUp)

		clamped := min(max(proposed, lower), maxUp)
		if clamped != proposed {
			switch clamped {
			case maxUp:
				clampReason = "clamped:+growth"
			case maxDown:
				clampReason = "clamped:-shrink"
			default:
				clampReason = "clamped:baseline"
			}
		} else if clampReason == "none" {
			clampReason = "within-window"
		}
		proposed = clamped
	} else {
		proposed = max(proposed, baseline)
		if clampReason == "none" {
			clampReason = "cold-start"
		}
	}

	var observedGrowthPct uint64
	if baseline > 0 {
		observedGrowthPct = percentile(finalGrowths, 90) * 100 / baseline
	}

	return proposed, CapTrace{
		Baseline:          baseline,
		GrowthBudget:      growthBudget,
		ObservedGrowthPct: observedGrowthPct,
		ClampReason:       clampReason,
	}, true
}

// percentile returns the p-th percentile of an ascending-sorted slice,
// rounding the index to nearest.
func percentile(sorted []uint64, p int) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (uint64(len(sorted)-1)*uint64(p) + 50) / 100 //nolint:gosec // p is a small constant
	if idx >= uint64(len(sorted)) {
		idx = uint64(len(sorted) - 1)
	}
	return sorted[idx]
}

// finalsFromMetrics reconstructs post-GC sizes: directly recorded when
// available, otherwise derived from initial sizes minus bytes freed.
// Falls back to the seed so there is always at least one sample.
func finalsFromMetrics(metrics *domain.GCMetrics, seed uint64) []uint64 {
	var finals []uint64
	if len(metrics.RecentFinalSizes) > 0 {
		finals = append(finals, metrics.RecentFinalSizes...)
	} else {
		n := min(len(metrics.RecentInitialSizes), len(metrics.RecentBytesFreed))
		for i := range n {
			initial := metrics.RecentInitialSizes[i]
			freed := metrics.RecentBytesFreed[i]
			if freed > initial {
				freed = initial
			}
			finals = append(finals, initial-freed)
		}
	}
	if len(finals) == 0 {
		finals = append(finals, seed)
	}
	return finals
}

// growthsFromMetrics measures per-run growth: each run's initial size
// minus the previous run's final size.
func growthsFromMetrics(metrics *domain.GCMetrics, finals []uint64, seed uint64) []uint64 {
	n := min(len(finals), len(metrics.RecentInitialSizes))

	var growths []uint64
	for i := 1; i < n; i++ {
		prevFinal := seed
		if i-1 < len(finals) {
			prevFinal = finals[i-1]
		}
		initial := metrics.RecentInitialSizes[i]
		if initial > prevFinal {
			growths = append(growths, initial-prevFinal)
		} else {
			growths = append(growths, 0)
		}
	}
	return growths
}

// baselineFromFinals is the median post-GC footprint.
func baselineFromFinals(finals []uint64) uint64 {
	sorted := slices.Clone(finals)
	slices.Sort(sorted)
	return percentile(sorted, 50)
}

// growthBudgetFromGrowths sizes the headroom above the baseline. Only
// positive growth counts; steady state keeps a small cushion instead
// of re-adding the full cold-start headroom.
func growthBudgetFromGrowths(growths []uint64, hasPrevCap bool) uint64 {
	var positives []uint64
	for _, g := range growths {
		if g > 0 {
			positives = append(positives, g)
		}
	}

	if len(positives) == 0 {
		if hasPrevCap {
			return minSteadyHeadroomBytes
		}
		return minHeadroomBytes
	}

	slices.Sort(positives)
	p90 := percentile(positives, 90)

	if hasPrevCap {
		return max(p90, minSteadyHeadroomBytes)
	}
	return max(p90, minHeadroomBytes)
}

// positiveFinalGrowths is the sorted set of run-over-run increases in
// the post-GC footprint.
func positiveFinalGrowths(finals []uint64) []uint64 {
	var growths []uint64
	for i := 1; i < len(finals); i++ {
		if finals[i] > finals[i-1] {
			growths = append(growths, finals[i]-finals[i-1])
		}
	}
	slices.Sort(growths)
	return growths
}
