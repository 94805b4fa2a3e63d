// Package cpu implements a cycle-approximate interpreter for the 32-bit
// vector ISA: a 4-core, 8-thread-per-core machine with a software-managed
// MMU/TLB, nested traps, edge/level interrupts, and the full scalar/vector
// arithmetic and memory instruction set.
package cpu

// ------------------------------------------------------------------------
// Machine shape
// ------------------------------------------------------------------------
const (
	NumCores           = 4
	ThreadsPerCore     = 8
	NumThreads         = NumCores * ThreadsPerCore
	NumScalarRegs      = 32
	NumVectorRegs      = 32
	VectorLanes        = 16
	LinkRegister       = 30 // ra, written by call forms
	StackRegister      = 29 // sp, conventional only
	PC                 = 31 // program counter is not a GPR; kept separate on Thread

	AlignLong  = 4
	AlignShort = 2
	AlignBlock = 64

	BreakpointSentinel uint32 = 0x707fffff

	cyclesPerInstruction = 1
	hostHz               = 50_000_000 // CYCLE_COUNT = executed instructions * hostHz / 1e9; not tied to host wall-clock time
)

// instrClass is the top-level decode class selected by the leading bits of
// the 32-bit instruction word, per the spec's bit-pattern table.
type instrClass int

const (
	classImmediateArith instrClass = iota // 0...
	classMemory                           // 10...
	classRegisterArith                    // 110...
	classCacheControl                     // 1110...
	classBranch                           // 1111...
)

// classify inspects the top bits of w and returns its instruction class.
func classify(w uint32) instrClass {
	switch {
	case w>>31 == 0:
		return classImmediateArith
	case w>>30 == 0b10:
		return classMemory
	case w>>29 == 0b110:
		return classRegisterArith
	case w>>28 == 0b1110:
		return classCacheControl
	default: // w>>28 == 0b1111
		return classBranch
	}
}

// ArithOp enumerates the register/immediate arithmetic opcode space.
type ArithOp int

const (
	OpOR ArithOp = iota
	OpAND
	OpXOR
	OpADD_I
	OpSUB_I
	OpMULL_I
	OpMULH_U
	OpASHR
	OpSHR
	OpSHL
	OpCLZ
	OpSHUFFLE
	OpCTZ
	OpMOVE
	OpCMPEQ_I
	OpCMPNE_I
	OpCMPGT_I
	OpCMPGE_I
	OpCMPLT_I
	OpCMPLE_I
	OpCMPGT_U
	OpCMPGE_U
	OpCMPLT_U
	OpCMPLE_U
	OpGETLANE
	OpFTOI
	OpRECIPROCAL
	OpSEXT8
	OpSEXT16
	OpMULH_I
	OpADD_F
	OpSUB_F
	OpMUL_F
	OpITOF
	OpCMPGT_F
	OpCMPGE_F
	OpCMPLT_F
	OpCMPLE_F
	OpCMPEQ_F
	OpCMPNE_F
	OpSYSCALL
	OpBREAKPOINT
)

// operandForm distinguishes the three arithmetic instruction shapes, each
// of which may carry an optional mask register.
type operandForm int

const (
	formScalarScalar operandForm = iota
	formVectorScalar
	formVectorVector
)

// MemSubOp enumerates the memory instruction's addressing sub-mode.
type MemSubOp int

const (
	MemByte MemSubOp = iota
	MemByteSigned
	MemShort
	MemShortSigned
	MemLong
	MemSync
	MemControl
	MemBlockVector
	MemBlockVectorMasked
	MemScatterGather
	MemScatterGatherMasked
)

// TrapType enumerates the trap taxonomy.
type TrapType int

const (
	TrapReset TrapType = iota
	TrapIllegalInstruction
	TrapPrivilegedOp
	TrapInterrupt
	TrapSyscall
	TrapUnalignedAccess
	TrapPageFault
	TrapTLBMiss
	TrapIllegalStore
	TrapSupervisorAccess
	TrapNotExecutable
	TrapBreakpoint
)

// ControlReg enumerates the supervisor control register file.
type ControlReg int

const (
	CrThreadID ControlReg = iota
	CrTrapHandler
	CrTrapPC
	CrTrapReason
	CrFlags
	CrSavedFlags
	CrCurrentASID
	CrPageDir
	CrTrapAccessAddr
	CrCycleCount
	CrTLBMissHandler
	CrScratchpad0
	CrScratchpad1
	CrSubcycle
	CrInterruptPending
	CrInterruptMask
	CrInterruptAck
	CrInterruptTrigger
	numControlRegs
)

// Flags bits, packed into CrFlags / savedFlags.
const (
	FlagInterruptEnable = 1 << 0
	FlagMMUEnable       = 1 << 1
	FlagSupervisor      = 1 << 2
)
