package cpu

// executeBranch runs one branch instruction and returns the PC to use
// after this step (already accounting for the "offset relative to the
// already-incremented PC" rule: the caller passes fallthroughPC = pc+4,
// and PC-relative forms add their offset to that).
func (p *Processor) executeBranch(t *Thread, in instruction, fallthroughPC uint32) uint32 {
	switch branchForm(in.op) {
	case BranchRegister:
		return t.scalar[in.src1]

	case BranchZero:
		if t.scalar[in.src1] == 0 {
			return uint32(int32(fallthroughPC) + in.imm*4)
		}
		return fallthroughPC

	case BranchNotZero:
		if t.scalar[in.src1] != 0 {
			return uint32(int32(fallthroughPC) + in.imm*4)
		}
		return fallthroughPC

	case BranchAlways:
		return uint32(int32(fallthroughPC) + in.imm*4)

	case BranchCallOffset:
		t.scalar[LinkRegister] = fallthroughPC
		p.emit(Event{Kind: EventScalarWriteback, PC: t.pc, Thread: t.ID, Reg: LinkRegister, Words: [16]uint32{fallthroughPC}})
		return uint32(int32(fallthroughPC) + in.imm*4)

	case BranchCallRegister:
		t.scalar[LinkRegister] = fallthroughPC
		p.emit(Event{Kind: EventScalarWriteback, PC: t.pc, Thread: t.ID, Reg: LinkRegister, Words: [16]uint32{fallthroughPC}})
		return t.scalar[in.src1]

	case BranchEret:
		return p.eret(t)

	default:
		p.raiseTrap(t, TrapIllegalInstruction, fallthroughPC, false, false)
		return t.pc
	}
}

// executeCacheControl runs a DTLB/ITLB insert or invalidate, or a
// DFLUSH/DINVALIDATE translation-only probe.
func (p *Processor) executeCacheControl(t *Thread, in instruction) {
	if t.flags&FlagSupervisor == 0 {
		p.raiseTrap(t, TrapPrivilegedOp, t.pc+4, false, false)
		return
	}
	switch cacheOp(in.memOp) {
	case CacheDTLBInsert:
		p.dtlbInsert(t, t.scalar[in.src1], t.scalar[in.src2])
	case CacheITLBInsert:
		p.itlbInsert(t, t.scalar[in.src1], t.scalar[in.src2])
	case CacheInvalidateTLB:
		t.dtlb.invalidate(t.scalar[in.src1], t.asid)
		t.itlb.invalidate(t.scalar[in.src1], t.asid)
	case CacheInvalidateTLBAll:
		t.dtlb.invalidateAll()
		t.itlb.invalidateAll()
	case CacheDFlush, CacheDInvalidate:
		// Force a page-fault check without otherwise affecting state.
		p.translate(t, t.scalar[in.src1], false, false)
	}
}
