// Package fb contains the FlatBuffers table accessors for the manifest
// payload. The code follows flatc's generated-Go conventions for the
// schema below so the wire layout is exactly what flatc would produce:
//
//	struct Timestamp { sec:int64; nsec:uint32; }
//	table Record {
//	    path:string;
//	    size:uint64;
//	    hash:[ubyte];
//	    mtime:Timestamp;
//	}
//	table GcMetrics {
//	    runs:uint32;
//	    seed_initial_size:uint64;
//	    recent_initial_sizes:[uint64];
//	    recent_bytes_freed:[uint64];
//	    recent_final_sizes:[uint64];
//	    last_suggested_cap:uint64;
//	}
//	table Manifest {
//	    version:uint32;
//	    records:[Record];
//	    last_build_max_mtime:Timestamp;
//	    clock_high_water:Timestamp;
//	    gc_metrics:GcMetrics;
//	}
//	root_type Manifest;
package fb

import (
	flatbuffers "github.com/google/flatbuffers/go"
)

// Timestamp is a 16-byte inline struct: sec at +0, nsec at +8, 4 bytes
// of trailing padding for int64 alignment.
type Timestamp struct {
	_tab flatbuffers.Struct
}

func (rcv *Timestamp) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *Timestamp) Table() flatbuffers.Table {
	return rcv._tab.Table
}

func (rcv *Timestamp) Sec() int64 {
	return rcv._tab.GetInt64(rcv._tab.Pos + flatbuffers.UOffsetT(0))
}

func (rcv *Timestamp) Nsec() uint32 {
	return rcv._tab.GetUint32(rcv._tab.Pos + flatbuffers.UOffsetT(8))
}

func CreateTimestamp(builder *flatbuffers.Builder, sec int64, nsec uint32) flatbuffers.UOffsetT {
	builder.Prep(8, 16)
	builder.Pad(4)
	builder.PrependUint32(nsec)
	builder.PrependInt64(sec)
	return builder.Offset()
}

type Record struct {
	_tab flatbuffers.Table
}

func GetRootAsRecord(buf []byte, offset flatbuffers.UOffsetT) *Record {
	n := flatbuffers.GetUOffsetT(buf[offset:])
	x := &Record{}
	x.Init(buf, n+offset)
	return x
}

func (rcv *Record) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *Record) Table() flatbuffers.Table {
	return rcv._tab
}

func (rcv *Record) Path() []byte {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(4))
	if o != 0 {
		return rcv._tab.ByteVector(o + rcv._tab.Pos)
	}
	return nil
}

func (rcv *Record) Size() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(6))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Record) Hash(j int) byte {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(8))
	if o != 0 {
		a := rcv._tab.Vector(o)
		return rcv._tab.GetByte(a + flatbuffers.UOffsetT(j))
	}
	return 0
}

func (rcv *Record) HashLength() int {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(8))
	if o != 0 {
		return rcv._tab.VectorLen(o)
	}
	return 0
}

func (rcv *Record) HashBytes() []byte {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(8))
	if o != 0 {
		return rcv._tab.ByteVector(o + rcv._tab.Pos)
	}
	return nil
}

func (rcv *Record) Mtime(obj *Timestamp) *Timestamp {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(10))
	if o != 0 {
		x := o + rcv._tab.Pos
		if obj == nil {
			obj = new(Timestamp)
		}
		obj.Init(rcv._tab.Bytes, x)
		return obj
	}
	return nil
}

func RecordStart(builder *flatbuffers.Builder) {
	builder.StartObject(4)
}

func RecordAddPath(builder *flatbuffers.Builder, path flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(0, path, 0)
}

func RecordAddSize(builder *flatbuffers.Builder, size uint64) {
	builder.PrependUint64Slot(1, size, 0)
}

func RecordAddHash(builder *flatbuffers.Builder, hash flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(2, hash, 0)
}

func RecordStartHashVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(1, numElems, 1)
}

func RecordAddMtime(builder *flatbuffers.Builder, mtime flatbuffers.UOffsetT) {
	builder.PrependStructSlot(3, mtime, 0)
}

func RecordEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}

type GcMetrics struct {
	_tab flatbuffers.Table
}

func GetRootAsGcMetrics(buf []byte, offset flatbuffers.UOffsetT) *GcMetrics {
	n := flatbuffers.GetUOffsetT(buf[offset:])
	x := &GcMetrics{}
	x.Init(buf, n+offset)
	return x
}

func (rcv *GcMetrics) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *GcMetrics) Table() flatbuffers.Table {
	return rcv._tab
}

func (rcv *GcMetrics) Runs() uint32 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(4))
	if o != 0 {
		return rcv._tab.GetUint32(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *GcMetrics) SeedInitialSize() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(6))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *GcMetrics) RecentInitialSizes(j int) uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(8))
	if o != 0 {
		a := rcv._tab.Vector(o)
		return rcv._tab.GetUint64(a + flatbuffers.UOffsetT(j)*8)
	}
	return 0
}

func (rcv *GcMetrics) RecentInitialSizesLength() int {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(8))
	if o != 0 {
		return rcv._tab.VectorLen(o)
	}
	return 0
}

func (rcv *GcMetrics) RecentBytesFreed(j int) uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(10))
	if o != 0 {
		a := rcv._tab.Vector(o)
		return rcv._tab.GetUint64(a + flatbuffers.UOffsetT(j)*8)
	}
	return 0
}

func (rcv *GcMetrics) RecentBytesFreedLength() int {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(10))
	if o != 0 {
		return rcv._tab.VectorLen(o)
	}
	return 0
}

func (rcv *GcMetrics) RecentFinalSizes(j int) uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(12))
	if o != 0 {
		a := rcv._tab.Vector(o)
		return rcv._tab.GetUint64(a + flatbuffers.UOffsetT(j)*8)
	}
	return 0
}

func (rcv *GcMetrics) RecentFinalSizesLength() int {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(12))
	if o != 0 {
		return rcv._tab.VectorLen(o)
	}
	return 0
}

func (rcv *GcMetrics) LastSuggestedCap() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(14))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func GcMetricsStart(builder *flatbuffers.Builder) {
	builder.StartObject(6)
}

func GcMetricsAddRuns(builder *flatbuffers.Builder, runs uint32) {
	builder.PrependUint32Slot(0, runs, 0)
}

func GcMetricsAddSeedInitialSize(builder *flatbuffers.Builder, seedInitialSize uint64) {
	builder.PrependUint64Slot(1, seedInitialSize, 0)
}

func GcMetricsAddRecentInitialSizes(builder *flatbuffers.Builder, recentInitialSizes flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(2, recentInitialSizes, 0)
}

func GcMetricsStartRecentInitialSizesVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(8, numElems, 8)
}

func GcMetricsAddRecentBytesFreed(builder *flatbuffers.Builder, recentBytesFreed flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(3, recentBytesFreed, 0)
}

func GcMetricsStartRecentBytesFreedVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(8, numElems, 8)
}

func GcMetricsAddRecentFinalSizes(builder *flatbuffers.Builder, recentFinalSizes flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(4, recentFinalSizes, 0)
}

func GcMetricsStartRecentFinalSizesVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(8, numElems, 8)
}

func GcMetricsAddLastSuggestedCap(builder *flatbuffers.Builder, lastSuggestedCap uint64) {
	builder.PrependUint64Slot(5, lastSuggestedCap, 0)
}

func GcMetricsEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}

type Manifest struct {
	_tab flatbuffers.Table
}

func GetRootAsManifest(buf []byte, offset flatbuffers.UOffsetT) *Manifest {
	n := flatbuffers.GetUOffsetT(buf[offset:])
	x := &Manifest{}
	x.Init(buf, n+offset)
	return x
}

func (rcv *Manifest) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *Manifest) Table() flatbuffers.Table {
	return rcv._tab
}

func (rcv *Manifest) Version() uint32 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(4))
	if o != 0 {
		return rcv._tab.GetUint32(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Manifest) Records(obj *Record, j int) bool {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(6))
	if o != 0 {
		x := rcv._tab.Vector(o)
		x += flatbuffers.UOffsetT(j) * 4
		x = rcv._tab.Indirect(x)
		obj.Init(rcv._tab.Bytes, x)
		return true
	}
	return false
}

func (rcv *Manifest) RecordsLength() int {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(6))
	if o != 0 {
		return rcv._tab.VectorLen(o)
	}
	return 0
}

func (rcv *Manifest) LastBuildMaxMtime(obj *Timestamp) *Timestamp {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(8))
	if o != 0 {
		x := o + rcv._tab.Pos
		if obj == nil {
			obj = new(Timestamp)
		}
		obj.Init(rcv._tab.Bytes, x)
		return obj
	}
	return nil
}

func (rcv *Manifest) ClockHighWater(obj *Timestamp) *Timestamp {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(10))
	if o != 0 {
		x := o + rcv._tab.Pos
		if obj == nil {
			obj = new(Timestamp)
		}
		obj.Init(rcv._tab.Bytes, x)
		return obj
	}
	return nil
}

func (rcv *Manifest) GcMetrics(obj *GcMetrics) *GcMetrics {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(12))
	if o != 0 {
		x := rcv._tab.Indirect(o + rcv._tab.Pos)
		if obj == nil {
			obj = new(GcMetrics)
		}
		obj.Init(rcv._tab.Bytes, x)
		return obj
	}
	return nil
}

func ManifestStart(builder *flatbuffers.Builder) {
	builder.StartObject(5)
}

func ManifestAddVersion(builder *flatbuffers.Builder, version uint32) {
	builder.PrependUint32Slot(0, version, 0)
}

func ManifestAddRecords(builder *flatbuffers.Builder, records flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(1, records, 0)
}

func ManifestStartRecordsVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(4, numElems, 4)
}

func ManifestAddLastBuildMaxMtime(builder *flatbuffers.Builder, ts flatbuffers.UOffsetT) {
	builder.PrependStructSlot(2, ts, 0)
}

func ManifestAddClockHighWater(builder *flatbuffers.Builder, ts flatbuffers.UOffsetT) {
	builder.PrependStructSlot(3, ts, 0)
}

func ManifestAddGcMetrics(builder *flatbuffers.Builder, gcMetrics flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(4, gcMetrics, 0)
}

func ManifestEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}
