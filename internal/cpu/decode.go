package cpu

// instruction is the decoded form of one 32-bit word. Field widths below
// are this interpreter's own layout: spec.md pins only the leading
// class-selecting bits (§4.9) and the semantic operand/op space, not an
// exact bitfield table, so the remaining fields are assigned densely and
// consistently rather than reverse-engineered from a silent spec.
//
//	class bits   | op/subop | dest(5) | src1(5) | src2/mask(5) | imm/extra
type instruction struct {
	raw   uint32
	class instrClass

	op    ArithOp
	memOp MemSubOp
	form  operandForm

	dest, src1, src2 int
	hasMask          bool
	maskReg          int
	store            bool

	imm int32
}

func bits(w uint32, hi, lo int) uint32 {
	return (w >> uint(lo)) & ((1 << uint(hi-lo+1)) - 1)
}

func signExtend(v uint32, width int) int32 {
	shift := 32 - width
	return int32(v<<uint(shift)) >> uint(shift)
}

// decode splits w into an instruction according to its class.
func decode(w uint32) instruction {
	in := instruction{raw: w, class: classify(w)}

	switch in.class {
	case classImmediateArith:
		in.op = ArithOp(bits(w, 29, 24))
		in.form = operandForm(bits(w, 23, 22))
		in.dest = int(bits(w, 21, 17))
		in.src1 = int(bits(w, 16, 12))
		in.hasMask = bits(w, 11, 11) != 0
		in.maskReg = int(bits(w, 10, 6))
		in.imm = signExtend(bits(w, 9, 0), 10)

	case classRegisterArith:
		in.op = ArithOp(bits(w, 28, 23))
		in.form = operandForm(bits(w, 22, 21))
		in.dest = int(bits(w, 20, 16))
		in.src1 = int(bits(w, 15, 11))
		in.src2 = int(bits(w, 10, 6))
		in.hasMask = bits(w, 5, 5) != 0
		in.maskReg = int(bits(w, 4, 0))

	case classMemory:
		in.memOp = MemSubOp(bits(w, 29, 26))
		in.dest = int(bits(w, 25, 21))
		in.src1 = int(bits(w, 20, 16)) // base register
		in.hasMask = bits(w, 15, 15) != 0
		in.maskReg = int(bits(w, 14, 10))
		in.store = bits(w, 9, 9) != 0
		in.imm = signExtend(bits(w, 8, 0), 9) // offset

	case classCacheControl:
		in.memOp = MemSubOp(bits(w, 27, 24)) // reused as the cache-op selector
		in.src1 = int(bits(w, 20, 16))
		in.src2 = int(bits(w, 15, 11))

	case classBranch:
		in.op = ArithOp(bits(w, 27, 24)) // reused as the branch-form selector
		in.src1 = int(bits(w, 20, 16))
		in.dest = int(bits(w, 25, 21)) // not used: call forms always write LinkRegister
		in.imm = signExtend(bits(w, 19, 0), 20)
	}
	return in
}

// cacheOp enumerates the classCacheControl selector space.
type cacheOp int

const (
	CacheDTLBInsert cacheOp = iota
	CacheITLBInsert
	CacheInvalidateTLB
	CacheInvalidateTLBAll
	CacheDFlush
	CacheDInvalidate
)

// branchForm enumerates the classBranch selector space.
type branchForm int

const (
	BranchRegister branchForm = iota
	BranchZero
	BranchNotZero
	BranchAlways
	BranchCallOffset
	BranchCallRegister
	BranchEret
)
