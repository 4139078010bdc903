// Package manifest persists the workspace manifest in a zero-copy
// binary format: a fixed header followed by a FlatBuffers payload.
package manifest

import (
	flatbuffers "github.com/google/flatbuffers/go"
	"go.trai.ch/cargo-hold/internal/core/domain"
	"go.trai.ch/cargo-hold/internal/fb"
	"go.trai.ch/zerr"
)

// encodePayload builds the FlatBuffers payload for m. Records are
// written in path order so identical manifests encode to identical
// bytes.
func encodePayload(m *domain.Manifest) []byte {
	builder := flatbuffers.NewBuilder(1024 + 96*len(m.Records))

	paths := m.SortedPaths()
	offsets := make([]flatbuffers.UOffsetT, len(paths))
	for i, p := range paths {
		r := m.Records[p]
		pathOff := builder.CreateString(r.Path)
		hashOff := builder.CreateByteVector(r.Hash[:])

		fb.RecordStart(builder)
		fb.RecordAddPath(builder, pathOff)
		fb.RecordAddSize(builder, r.Size)
		fb.RecordAddHash(builder, hashOff)
		fb.RecordAddMtime(builder, fb.CreateTimestamp(builder, r.Mtime.Sec, r.Mtime.Nsec))
		offsets[i] = fb.RecordEnd(builder)
	}

	fb.ManifestStartRecordsVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	records := builder.EndVector(len(offsets))

	var metrics flatbuffers.UOffsetT
	if !m.GCMetrics.IsZero() {
		metrics = encodeGCMetrics(builder, m.GCMetrics)
	}

	fb.ManifestStart(builder)
	fb.ManifestAddVersion(builder, m.Version)
	fb.ManifestAddRecords(builder, records)
	if m.LastBuildMaxMtime != nil {
		fb.ManifestAddLastBuildMaxMtime(builder, fb.CreateTimestamp(builder, m.LastBuildMaxMtime.Sec, m.LastBuildMaxMtime.Nsec))
	}
	if m.ClockHighWater != nil {
		fb.ManifestAddClockHighWater(builder, fb.CreateTimestamp(builder, m.ClockHighWater.Sec, m.ClockHighWater.Nsec))
	}
	if metrics != 0 {
		fb.ManifestAddGcMetrics(builder, metrics)
	}
	builder.Finish(fb.ManifestEnd(builder))

	return builder.FinishedBytes()
}

// encodeGCMetrics writes the GC run history as a sub-table. Absent
// optional sizes encode as the scalar default: a zero seed or cap is
// meaningless, so zero doubles as "unset".
func encodeGCMetrics(builder *flatbuffers.Builder, g domain.GCMetrics) flatbuffers.UOffsetT {
	initials := encodeUint64Vector(builder, g.RecentInitialSizes, fb.GcMetricsStartRecentInitialSizesVector)
	freed := encodeUint64Vector(builder, g.RecentBytesFreed, fb.GcMetricsStartRecentBytesFreedVector)
	finals := encodeUint64Vector(builder, g.RecentFinalSizes, fb.GcMetricsStartRecentFinalSizesVector)

	fb.GcMetricsStart(builder)
	fb.GcMetricsAddRuns(builder, g.Runs)
	if g.SeedInitialSize != nil {
		fb.GcMetricsAddSeedInitialSize(builder, *g.SeedInitialSize)
	}
	if initials != 0 {
		fb.GcMetricsAddRecentInitialSizes(builder, initials)
	}
	if freed != 0 {
		fb.GcMetricsAddRecentBytesFreed(builder, freed)
	}
	if finals != 0 {
		fb.GcMetricsAddRecentFinalSizes(builder, finals)
	}
	if g.LastSuggestedCap != nil {
		fb.GcMetricsAddLastSuggestedCap(builder, *g.LastSuggestedCap)
	}
	return fb.GcMetricsEnd(builder)
}

func encodeUint64Vector(builder *flatbuffers.Builder, values []uint64, start func(*flatbuffers.Builder, int) flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	if len(values) == 0 {
		return 0
	}
	start(builder, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		builder.PrependUint64(values[i])
	}
	return builder.EndVector(len(values))
}

// decodePayload projects a validated payload into an owned manifest.
// Projection is eager: nothing in the result aliases payload, so the
// caller may unmap it as soon as this returns. headerVersion is the
// version from the file header; a v1 payload simply lacks the two
// optional timestamp slots and migrates by leaving them absent.
func decodePayload(payload []byte, headerVersion uint32) (*domain.Manifest, error) {
	root := fb.GetRootAsManifest(payload, 0)

	m := domain.NewManifest()

	var rec fb.Record
	for i := range root.RecordsLength() {
		if !root.Records(&rec, i) {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestCorrupt, "unreadable record"), "index", i)
		}

		path := rec.Path()
		if len(path) == 0 {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestCorrupt, "record with empty path"), "index", i)
		}
		hash := rec.HashBytes()
		if len(hash) != len(domain.Digest{}) {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestCorrupt, "record with malformed digest"), "path", string(path))
		}

		r := domain.FileRecord{
			Path: string(path),
			Size: rec.Size(),
		}
		copy(r.Hash[:], hash)
		if ts := rec.Mtime(nil); ts != nil {
			r.Mtime = domain.Timestamp{Sec: ts.Sec(), Nsec: ts.Nsec()}
		}
		m.Upsert(r)
	}

	if headerVersion >= 2 {
		if ts := root.LastBuildMaxMtime(nil); ts != nil {
			m.LastBuildMaxMtime = &domain.Timestamp{Sec: ts.Sec(), Nsec: ts.Nsec()}
		}
		if ts := root.ClockHighWater(nil); ts != nil {
			m.ClockHighWater = &domain.Timestamp{Sec: ts.Sec(), Nsec: ts.Nsec()}
		}
		if g := root.GcMetrics(nil); g != nil {
			m.GCMetrics = decodeGCMetrics(g)
		}
	}

	return m, nil
}

func decodeGCMetrics(g *fb.GcMetrics) domain.GCMetrics {
	out := domain.GCMetrics{Runs: g.Runs()}
	if seed := g.SeedInitialSize(); seed != 0 {
		out.SeedInitialSize = &seed
	}
	if suggested := g.LastSuggestedCap(); suggested != 0 {
		out.LastSuggestedCap = &suggested
	}
	for i := range g.RecentInitialSizesLength() {
		out.RecentInitialSizes = append(out.RecentInitialSizes, g.RecentInitialSizes(i))
	}
	for i := range g.RecentBytesFreedLength() {
		out.RecentBytesFreed = append(out.RecentBytesFreed, g.RecentBytesFreed(i))
	}
	for i := range g.RecentFinalSizesLength() {
		out.RecentFinalSizes = append(out.RecentFinalSizes, g.RecentFinalSizes(i))
	}
	return out
}
