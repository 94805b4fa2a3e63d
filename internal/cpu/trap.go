package cpu

// encodeTrapReason packs the trap kind plus the is_store/is_data_cache
// flag bits into TRAP_REASON's layout.
func encodeTrapReason(kind TrapType, isStore, isDataCache bool) uint32 {
	v := uint32(kind) << 2
	if isStore {
		v |= 1 << 1
	}
	if isDataCache {
		v |= 1
	}
	return v
}

// pushTrapFrame shifts the nested trap save slots down one level: slot[1]
// gets slot[0]'s previous contents, slot[0] gets filled with the state
// about to be overwritten by the trap entry. One level of nesting is
// supported; a second nested trap before the first eret overwrites
// slot[1], matching spec.md §4.10 exactly.
func (p *Processor) pushTrapFrame(t *Thread) {
	t.save[1] = t.save[0]
	t.save[0] = trapSaveSlot{pc: t.pc, flags: t.flags, subcyc: t.subcycle, valid: true}
	t.savedFlags = t.flags
}

// raiseTrap enters trap state for t: saves PC/flags into the nested save
// slots, computes the trapped PC per the spec's save-PC rule, masks
// interrupts, enters supervisor mode, and redirects to the trap handler.
func (p *Processor) raiseTrap(t *Thread, kind TrapType, faultPC uint32, isStore, isDataCache bool) {
	savedPC := faultPC - 4
	if kind == TrapInterrupt {
		if t.subcycle != 0 {
			savedPC = faultPC
		} else {
			savedPC = faultPC + 4 - 4 // "PC+4 before the decrement quirk": nets to faultPC
		}
	}

	p.pushTrapFrame(t)
	t.save[0].pc = savedPC

	t.lastTrap = kind
	t.lastTrapValid = true

	t.trapReason = encodeTrapReason(kind, isStore, isDataCache)
	t.flags = (t.flags &^ FlagInterruptEnable) | FlagSupervisor
	t.pc = t.trapHandler
	t.subcycle = 0

	if kind == TrapInterrupt {
		p.emit(Event{Kind: EventInterrupt, PC: savedPC, Thread: t.ID})
	}
}

// eret restores the innermost trap frame (slot 0), then shifts slot 1 down
// into slot 0, per spec.md §4.10's nested-trap restore rule. Supervisor-
// only; may immediately dispatch a pending interrupt per spec.
func (p *Processor) eret(t *Thread) uint32 {
	if t.flags&FlagSupervisor == 0 {
		p.raiseTrap(t, TrapPrivilegedOp, t.pc+4, false, false)
		return t.pc
	}
	frame := t.save[0]
	t.flags = frame.flags
	t.subcycle = frame.subcyc
	nextPC := frame.pc
	t.save[0] = t.save[1]
	t.save[1] = trapSaveSlot{}

	if t.interruptDispatchable() {
		p.raiseTrap(t, TrapInterrupt, nextPC, false, false)
		return t.pc
	}
	return nextPC
}

// readControlReg services a control-register read; only supervisor
// threads may read any control register, per spec.md §4.9.
func (p *Processor) readControlReg(t *Thread, reg ControlReg) uint32 {
	if t.flags&FlagSupervisor == 0 {
		p.raiseTrap(t, TrapPrivilegedOp, t.pc+4, false, false)
		return 0
	}
	switch reg {
	case CrThreadID:
		return uint32(t.ID)
	case CrTrapHandler:
		return t.trapHandler
	case CrTrapPC:
		return t.save[0].pc
	case CrTrapReason:
		return t.trapReason
	case CrFlags:
		return t.flags
	case CrSavedFlags:
		return t.savedFlags
	case CrCurrentASID:
		return t.asid
	case CrPageDir:
		return t.pageDir
	case CrTrapAccessAddr:
		return t.trapAccessAddr
	case CrCycleCount:
		return uint32(t.cycles * hostHz / 1_000_000_000)
	case CrTLBMissHandler:
		return t.tlbMissHandler
	case CrScratchpad0:
		return t.scratchpad[0]
	case CrScratchpad1:
		return t.scratchpad[1]
	case CrSubcycle:
		return uint32(t.subcycle)
	case CrInterruptPending:
		return t.pendingInterrupts()
	default:
		return 0
	}
}

// writeControlReg services a control-register write; some registers are
// read-only and writes are ignored (matching the teacher's
// assertion-free "unsupported writes are no-ops" register-file policy).
func (p *Processor) writeControlReg(t *Thread, reg ControlReg, v uint32) {
	if t.flags&FlagSupervisor == 0 {
		p.raiseTrap(t, TrapPrivilegedOp, t.pc+4, false, false)
		return
	}
	switch reg {
	case CrTrapHandler:
		t.trapHandler = v
	case CrFlags:
		t.flags = v
	case CrSavedFlags:
		t.savedFlags = v
	case CrCurrentASID:
		t.asid = v
	case CrPageDir:
		t.pageDir = v
	case CrTLBMissHandler:
		t.tlbMissHandler = v
	case CrScratchpad0:
		t.scratchpad[0] = v
	case CrScratchpad1:
		t.scratchpad[1] = v
	case CrSubcycle:
		t.subcycle = int(v)
	case CrInterruptMask:
		t.interruptMask = v
	case CrInterruptAck:
		t.interruptLatched &^= v
	case CrInterruptTrigger:
		t.setInterruptTrigger(v)
	}
}

// RaiseLevelInterrupt sets/clears a level-triggered interrupt source's
// live wire state (the MMIO device's view of the interrupt line).
func (t *Thread) RaiseLevelInterrupt(bit uint32, active bool) {
	if active {
		t.interruptLevel |= bit
	} else {
		t.interruptLevel &^= bit
	}
}

// RaiseEdgeInterrupt latches an edge-triggered interrupt source.
func (t *Thread) RaiseEdgeInterrupt(bit uint32) {
	t.interruptLatched |= bit
}
