package cpu

import (
	"math"
	mbits "math/bits"

	"github.com/nyuzi-go/nyuzigo/internal/simd"
)

// executeArith dispatches one arithmetic instruction (immediate or
// register form) across its scalar-scalar, vector-scalar, or
// vector-vector operand shape.
func (p *Processor) executeArith(t *Thread, in instruction) {
	switch in.op {
	case OpSYSCALL:
		p.raiseTrap(t, TrapSyscall, t.pc+4, false, false)
		return
	case OpBREAKPOINT:
		p.raiseTrap(t, TrapBreakpoint, t.pc+4, false, false)
		return
	case OpGETLANE:
		p.execGetLane(t, in.dest, in.src1, int(scalarImm(t, in)))
		return
	}

	switch in.form {
	case formScalarScalar:
		p.execScalarScalar(t, in)
	case formVectorScalar:
		p.execVectorScalar(t, in)
	case formVectorVector:
		p.execVectorVector(t, in)
	}
}

func (p *Processor) laneMask(t *Thread, in instruction) simd.Mask {
	if !in.hasMask {
		return 0xffff
	}
	return simd.Mask(t.scalar[in.maskReg] & 0xffff)
}

func scalarImm(t *Thread, in instruction) uint32 {
	if in.class == classImmediateArith {
		return uint32(in.imm)
	}
	return t.scalar[in.src2]
}

func (p *Processor) execScalarScalar(t *Thread, in instruction) {
	a := t.scalar[in.src1]
	b := scalarImm(t, in)
	t.scalar[in.dest] = scalarArith(in.op, a, b)
	p.emit(Event{Kind: EventScalarWriteback, PC: t.pc, Thread: t.ID, Reg: in.dest, Words: [16]uint32{t.scalar[in.dest]}})
}

// execVectorScalar broadcasts src2 (or the immediate) to every lane and
// applies op against src1's vector register, masked.
func (p *Processor) execVectorScalar(t *Thread, in instruction) {
	mask := p.laneMask(t, in)
	var bVal simd.Vec
	if in.class == classImmediateArith {
		bVal = simd.SplatI(in.imm)
	} else {
		bVal = simd.Splat(t.scalar[in.src2])
	}
	a := simd.Vec(t.vector[in.src1])
	result := vectorArith(in.op, a, bVal)
	dst := simd.Vec(t.vector[in.dest])
	t.vector[in.dest] = [simd.Lanes]uint32(simd.Select(mask, result, dst))
	p.emit(Event{Kind: EventVectorWriteback, PC: t.pc, Thread: t.ID, Reg: in.dest, LaneMask: uint16(mask), Words: t.vector[in.dest]})
}

func (p *Processor) execVectorVector(t *Thread, in instruction) {
	mask := p.laneMask(t, in)
	a := simd.Vec(t.vector[in.src1])
	b := simd.Vec(t.vector[in.src2])
	result := vectorArith(in.op, a, b)
	dst := simd.Vec(t.vector[in.dest])
	t.vector[in.dest] = [simd.Lanes]uint32(simd.Select(mask, result, dst))
	p.emit(Event{Kind: EventVectorWriteback, PC: t.pc, Thread: t.ID, Reg: in.dest, LaneMask: uint16(mask), Words: t.vector[in.dest]})
}

// scalarArith evaluates op on a pair of raw 32-bit scalars.
func scalarArith(op ArithOp, a, b uint32) uint32 {
	af, bf := math.Float32frombits(a), math.Float32frombits(b)
	ai, bi := int32(a), int32(b)
	switch op {
	case OpOR:
		return a | b
	case OpAND:
		return a & b
	case OpXOR:
		return a ^ b
	case OpADD_I:
		return a + b
	case OpSUB_I:
		return a - b
	case OpMULL_I:
		return a * b
	case OpMULH_U:
		return uint32((uint64(a) * uint64(b)) >> 32)
	case OpMULH_I:
		return uint32((int64(ai) * int64(bi)) >> 32)
	case OpASHR:
		return uint32(ai >> (b & 31))
	case OpSHR:
		return a >> (b & 31)
	case OpSHL:
		return a << (b & 31)
	case OpCLZ:
		return uint32(mbits.LeadingZeros32(a))
	case OpCTZ:
		return uint32(mbits.TrailingZeros32(a))
	case OpMOVE:
		return b
	case OpSEXT8:
		return uint32(int32(int8(a)))
	case OpSEXT16:
		return uint32(int32(int16(a)))
	case OpFTOI:
		return uint32(int32(af))
	case OpITOF:
		return math.Float32bits(float32(ai))
	case OpRECIPROCAL:
		return math.Float32bits(simd.ReciprocalScalar(af))
	case OpCMPEQ_I:
		return boolBit(a == b)
	case OpCMPNE_I:
		return boolBit(a != b)
	case OpCMPGT_I:
		return boolBit(ai > bi)
	case OpCMPGE_I:
		return boolBit(ai >= bi)
	case OpCMPLT_I:
		return boolBit(ai < bi)
	case OpCMPLE_I:
		return boolBit(ai <= bi)
	case OpCMPGT_U:
		return boolBit(a > b)
	case OpCMPGE_U:
		return boolBit(a >= b)
	case OpCMPLT_U:
		return boolBit(a < b)
	case OpCMPLE_U:
		return boolBit(a <= b)
	case OpADD_F:
		return math.Float32bits(af + bf)
	case OpSUB_F:
		return math.Float32bits(af - bf)
	case OpMUL_F:
		return math.Float32bits(af * bf)
	case OpCMPEQ_F:
		return boolBit(af == bf)
	case OpCMPNE_F:
		return boolBit(af != bf)
	case OpCMPGT_F:
		return boolBit(af > bf)
	case OpCMPGE_F:
		return boolBit(af >= bf)
	case OpCMPLT_F:
		return boolBit(af < bf)
	case OpCMPLE_F:
		return boolBit(af <= bf)
	default:
		return 0
	}
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// vectorArith evaluates op lanewise. Compare ops pack their 16-bit
// lanewise result into the low bits of lane 0, matching spec.md §4.9
// ("compare ops pack a 16-bit lane-wise comparison into the low 16 bits
// of a scalar destination") generalized here to the vector-result forms
// that feed a subsequent GETLANE/mask register read.
func vectorArith(op ArithOp, a, b simd.Vec) simd.Vec {
	switch op {
	case OpOR:
		return lanewiseI(a, b, func(x, y uint32) uint32 { return x | y })
	case OpAND:
		return lanewiseI(a, b, func(x, y uint32) uint32 { return x & y })
	case OpXOR:
		return lanewiseI(a, b, func(x, y uint32) uint32 { return x ^ y })
	case OpADD_I:
		return simd.AddI(a, b)
	case OpSUB_I:
		return simd.SubI(a, b)
	case OpMULL_I:
		return simd.MulLowI(a, b)
	case OpASHR:
		return lanewiseI(a, b, func(x, y uint32) uint32 { return uint32(int32(x) >> (y & 31)) })
	case OpSHR:
		return lanewiseI(a, b, func(x, y uint32) uint32 { return x >> (y & 31) })
	case OpSHL:
		return lanewiseI(a, b, func(x, y uint32) uint32 { return x << (y & 31) })
	case OpSHUFFLE:
		return simd.Shuffle(a, b)
	case OpFTOI:
		return simd.ToInt(a)
	case OpITOF:
		return simd.ToFloat(a)
	case OpRECIPROCAL:
		return simd.Reciprocal(a)
	case OpADD_F:
		return simd.AddF(a, b)
	case OpSUB_F:
		return simd.SubF(a, b)
	case OpMUL_F:
		return simd.MulF(a, b)
	case OpCMPGT_I:
		return maskToLane0(simd.CompareI(a, b, func(x, y int32) bool { return x > y }))
	case OpCMPGE_I:
		return maskToLane0(simd.CompareI(a, b, func(x, y int32) bool { return x >= y }))
	case OpCMPLT_I:
		return maskToLane0(simd.CompareI(a, b, func(x, y int32) bool { return x < y }))
	case OpCMPLE_I:
		return maskToLane0(simd.CompareI(a, b, func(x, y int32) bool { return x <= y }))
	case OpCMPEQ_I:
		return maskToLane0(simd.CompareI(a, b, func(x, y int32) bool { return x == y }))
	case OpCMPNE_I:
		return maskToLane0(simd.CompareI(a, b, func(x, y int32) bool { return x != y }))
	case OpCMPGT_F:
		return maskToLane0(simd.CompareF(a, b, func(x, y float32) bool { return x > y }))
	case OpCMPGE_F:
		return maskToLane0(simd.CompareF(a, b, func(x, y float32) bool { return x >= y }))
	case OpCMPLT_F:
		return maskToLane0(simd.CompareF(a, b, func(x, y float32) bool { return x < y }))
	case OpCMPLE_F:
		return maskToLane0(simd.CompareF(a, b, func(x, y float32) bool { return x <= y }))
	case OpCMPEQ_F:
		return maskToLane0(simd.CompareF(a, b, func(x, y float32) bool { return x == y }))
	case OpCMPNE_F:
		return maskToLane0(simd.CompareF(a, b, func(x, y float32) bool { return x != y }))
	case OpCLZ, OpCTZ, OpSEXT8, OpSEXT16, OpMULH_U, OpMULH_I:
		return lanewiseI(a, b, func(x, y uint32) uint32 { return scalarArith(op, x, y) })
	case OpCMPGT_U, OpCMPGE_U, OpCMPLT_U, OpCMPLE_U:
		var m simd.Mask
		for i := 0; i < simd.Lanes; i++ {
			if scalarArith(op, a.Lane(i), b.Lane(i)) != 0 {
				m |= 1 << uint(i)
			}
		}
		return maskToLane0(m)
	case OpMOVE:
		return b
	default:
		return a
	}
}

func lanewiseI(a, b simd.Vec, f func(x, y uint32) uint32) simd.Vec {
	var out simd.Vec
	for i := 0; i < simd.Lanes; i++ {
		out.SetLane(i, f(a.Lane(i), b.Lane(i)))
	}
	return out
}

func maskToLane0(m simd.Mask) simd.Vec {
	var out simd.Vec
	out.SetLane(0, uint32(m))
	return out
}

// execGetLane extracts one lane of a vector register into a scalar
// destination; handled out-of-line from vectorArith because its operand
// shape (vector src, scalar index) doesn't fit the lanewise model.
func (p *Processor) execGetLane(t *Thread, dest, src, laneIdx int) {
	t.scalar[dest] = t.vector[src][laneIdx%simd.Lanes]
	p.emit(Event{Kind: EventScalarWriteback, PC: t.pc, Thread: t.ID, Reg: dest, Words: [16]uint32{t.scalar[dest]}})
}
