package cpu

// This file is the debug-collaborator surface: the small set of exported
// accessors a remote debug stub needs beyond Step/Thread/ReadByte/
// WriteByte, mirroring the teacher's DebuggableCPU contract
// (debug_interface.go) but scoped to register/memory/breakpoint access
// rather than a full disassembler/watchpoint feature set.

// PC returns the thread's current program counter.
func (t *Thread) PC() uint32 { return t.pc }

// SetPC overwrites the thread's program counter.
func (t *Thread) SetPC(pc uint32) { t.pc = pc }

// Scalar returns scalar register r (0..31).
func (t *Thread) Scalar(r int) uint32 { return t.scalar[r] }

// SetScalar overwrites scalar register r.
func (t *Thread) SetScalar(r int, v uint32) { t.scalar[r] = v }

// Vector returns vector register r's 16 lanes.
func (t *Thread) Vector(r int) [VectorLanes]uint32 { return t.vector[r] }

// SetVector overwrites vector register r's 16 lanes.
func (t *Thread) SetVector(r int, v [VectorLanes]uint32) { t.vector[r] = v }

// RequestSingleStep arranges for the next RunThread call to execute
// exactly one instruction on t and return.
func (t *Thread) RequestSingleStep() { t.singleStep = true }

// StoppedOnFault reports whether t is parked on an unrecoverable fault
// (spec.md's is_stopped_on_fault).
func (t *Thread) StoppedOnFault() bool { return t.stoppedFault }

// Resume clears a fault stop, letting the thread run again (used when a
// debugger wants to retry after fixing up state).
func (t *Thread) Resume() { t.stoppedFault = false }

// LastTrap reports the kind of trap (if any) raised by the most recently
// completed Step call on t.
func (t *Thread) LastTrap() (TrapType, bool) { return t.lastTrap, t.lastTrapValid }
