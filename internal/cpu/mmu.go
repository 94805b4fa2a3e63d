package cpu

const pageSize = 4096

// translate converts a virtual address to a physical one when the
// thread's MMU flag is set, raising the appropriate trap and returning
// (0, true) on any translation fault. With MMU disabled it is the
// identity mapping.
func (p *Processor) translate(t *Thread, vaddr uint32, isStore, isFetch bool) (uint32, bool) {
	if t.flags&FlagMMUEnable == 0 {
		return vaddr, false
	}

	tlbRef := &t.dtlb
	if isFetch {
		tlbRef = &t.itlb
	}

	entry, hit := tlbRef.lookup(vaddr, t.asid)
	if !hit {
		p.raiseTLBMiss(t, vaddr)
		return 0, true
	}
	if !entry.present {
		p.raiseTrap(t, TrapPageFault, t.pc+4, isStore, !isFetch)
		t.trapAccessAddr = vaddr
		return 0, true
	}
	if entry.supervisor && t.flags&FlagSupervisor == 0 {
		p.raiseTrap(t, TrapSupervisorAccess, t.pc+4, isStore, !isFetch)
		t.trapAccessAddr = vaddr
		return 0, true
	}
	if isFetch && !entry.executable {
		p.raiseTrap(t, TrapNotExecutable, t.pc+4, false, false)
		t.trapAccessAddr = vaddr
		return 0, true
	}
	if isStore && !entry.writable {
		p.raiseTrap(t, TrapIllegalStore, t.pc+4, true, true)
		t.trapAccessAddr = vaddr
		return 0, true
	}

	paddr := (entry.ppage << 12) | (vaddr & (pageSize - 1))
	return paddr, false
}

// raiseTLBMiss disables the MMU and redirects to the miss handler,
// physically addressed, as the spec requires ("so the miss handler runs
// physically-addressed").
func (p *Processor) raiseTLBMiss(t *Thread, vaddr uint32) {
	p.pushTrapFrame(t)
	t.trapAccessAddr = vaddr
	t.trapReason = encodeTrapReason(TrapTLBMiss, false, false)
	t.lastTrap = TrapTLBMiss
	t.lastTrapValid = true
	t.flags &^= FlagMMUEnable
	t.flags |= FlagSupervisor
	t.pc = t.tlbMissHandler
	t.subcycle = 0
}

// dtlbInsert/itlbInsert implement the cache-control TLB-insert ops: they
// replace an existing entry for (vpage, asid/global) or evict round-robin.
func (p *Processor) dtlbInsert(t *Thread, vaddr, pte uint32) {
	t.dtlb.insert(decodeTLBEntry(vaddr, pte, t.asid))
}

func (p *Processor) itlbInsert(t *Thread, vaddr, pte uint32) {
	t.itlb.insert(decodeTLBEntry(vaddr, pte, t.asid))
}

// Page table entry bit layout: [31:12] physical page, [4] present,
// [3] writable, [2] executable, [1] supervisor, [0] global.
func decodeTLBEntry(vaddr, pte, asid uint32) tlbEntry {
	return tlbEntry{
		valid:      true,
		vpage:      vaddr >> 12,
		ppage:      pte >> 12,
		asid:       asid,
		present:    pte&(1<<4) != 0,
		writable:   pte&(1<<3) != 0,
		executable: pte&(1<<2) != 0,
		supervisor: pte&(1<<1) != 0,
		global:     pte&(1<<0) != 0,
	}
}
