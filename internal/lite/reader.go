package lite

import (
	flatbuffers "github.com/google/flatbuffers/go"
)

// table is a read-only view of one flatbuffer table.
type table struct {
	flatbuffers.Table
}

func rootTable(buf []byte) table {
	return table{flatbuffers.Table{Bytes: buf, Pos: flatbuffers.GetUOffsetT(buf)}}
}

func (t table) field(slot int) flatbuffers.UOffsetT {
	return flatbuffers.UOffsetT(t.Offset(flatbuffers.VOffsetT(4 + 2*slot)))
}

func (t table) has(slot int) bool {
	return t.field(slot) != 0
}

func (t table) child(slot int) (table, bool) {
	o := t.field(slot)
	if o == 0 {
		return table{}, false
	}
	return table{flatbuffers.Table{Bytes: t.Bytes, Pos: t.Indirect(o + t.Pos)}}, true
}

func (t table) vecLen(slot int) int {
	o := t.field(slot)
	if o == 0 {
		return 0
	}
	return t.VectorLen(o)
}

func (t table) at(slot, i int) table {
	x := t.Vector(t.field(slot)) + flatbuffers.UOffsetT(i*flatbuffers.SizeUOffsetT)
	return table{flatbuffers.Table{Bytes: t.Bytes, Pos: t.Indirect(x)}}
}

func (t table) int32s(slot int) []int32 {
	o := t.field(slot)
	if o == 0 {
		return nil
	}
	x := t.Vector(o)
	out := make([]int32, t.VectorLen(o))
	for i := range out {
		out[i] = t.GetInt32(x + flatbuffers.UOffsetT(i*4))
	}
	return out
}

func (t table) float32s(slot int) []float32 {
	o := t.field(slot)
	if o == 0 {
		return nil
	}
	x := t.Vector(o)
	out := make([]float32, t.VectorLen(o))
	for i := range out {
		out[i] = t.GetFloat32(x + flatbuffers.UOffsetT(i*4))
	}
	return out
}

func (t table) bytes(slot int) []byte {
	o := t.field(slot)
	if o == 0 {
		return nil
	}
	return t.ByteVector(o + t.Pos)
}

func (t table) str(slot int) string {
	return string(t.bytes(slot))
}

func (t table) u32(slot int, def uint32) uint32 {
	if o := t.field(slot); o != 0 {
		return t.GetUint32(o + t.Pos)
	}
	return def
}

func (t table) i32(slot int, def int32) int32 {
	if o := t.field(slot); o != 0 {
		return t.GetInt32(o + t.Pos)
	}
	return def
}

func (t table) i8(slot int, def int8) int8 {
	if o := t.field(slot); o != 0 {
		return t.GetInt8(o + t.Pos)
	}
	return def
}

func (t table) u8(slot int, def byte) byte {
	if o := t.field(slot); o != 0 {
		return t.GetByte(o + t.Pos)
	}
	return def
}

func (t table) f32(slot int, def float32) float32 {
	if o := t.field(slot); o != 0 {
		return t.GetFloat32(o + t.Pos)
	}
	return def
}
