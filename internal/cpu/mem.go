package cpu

import "github.com/nyuzi-go/nyuzigo/internal/simd"

// executeMemory runs one memory instruction: address computation,
// alignment check, translation, and the sub-op's load/store semantics.
func (p *Processor) executeMemory(t *Thread, in instruction) {
	addr := uint32(int32(t.scalar[in.src1]) + in.imm)

	align := alignmentFor(in.memOp)
	if align > 1 && addr%uint32(align) != 0 {
		p.raiseTrap(t, TrapUnalignedAccess, t.pc+4, false, false)
		return
	}

	switch in.memOp {
	case MemByte, MemByteSigned, MemShort, MemShortSigned, MemLong:
		p.execScalarMem(t, in, addr)
	case MemSync:
		p.execSyncMem(t, in, addr)
	case MemControl:
		p.execControlMem(t, in)
	case MemBlockVector, MemBlockVectorMasked:
		p.execBlockVector(t, in, addr)
	case MemScatterGather, MemScatterGatherMasked:
		p.execScatterGather(t, in)
	}
}

func alignmentFor(op MemSubOp) int {
	switch op {
	case MemShort, MemShortSigned:
		return AlignShort
	case MemLong, MemSync:
		return AlignLong
	case MemBlockVector, MemBlockVectorMasked:
		return AlignBlock
	default:
		return 1
	}
}

// The memory instruction's "is this a store" selector is a single bit of
// the instruction word (bit 9) rather than pairing every sub-op with a
// separate store opcode, mirroring the teacher's LOAD/STORE opcode
// pairing in cpu_ie32.go collapsed to one bit since this ISA's sub-op
// field already selects byte/short/long/etc. width.
func (p *Processor) execScalarMem(t *Thread, in instruction, addr uint32) {
	store := in.store
	paddr, trapped := p.translate(t, addr, store, false)
	if trapped {
		return
	}
	if store {
		v := t.scalar[in.dest]
		var byteMask uint64
		switch in.memOp {
		case MemByte:
			p.writeByte(paddr, byte(v))
			byteMask = 1 << (paddr % AlignBlock)
		case MemShort:
			p.writeShort(paddr, uint16(v))
			byteMask = 0b11 << (paddr % AlignBlock)
		case MemLong:
			p.writePhysLong(paddr, v)
			byteMask = 0b1111 << (paddr % AlignBlock)
		}
		p.emit(Event{Kind: EventStore, PC: t.pc, Thread: t.ID, Addr: paddr &^ (AlignBlock - 1),
			ByteMask: byteMask, Words: p.cacheLineWords(paddr)})
		return
	}
	var v uint32
	switch in.memOp {
	case MemByte:
		v = uint32(p.readByte(paddr))
	case MemByteSigned:
		v = uint32(int32(int8(p.readByte(paddr))))
	case MemShort:
		v = uint32(p.readShort(paddr))
	case MemShortSigned:
		v = uint32(int32(int16(p.readShort(paddr))))
	case MemLong:
		v = p.readPhysLong(paddr)
	}
	t.scalar[in.dest] = v
	p.emit(Event{Kind: EventScalarWriteback, PC: t.pc, Thread: t.ID, Reg: in.dest, Words: [16]uint32{v}})
}

// execSyncMem implements load-linked/store-conditional against the
// cache-line scoreboard: a sync load records its line; a sync store
// succeeds (and sets dest=1) only if that record is unchanged, otherwise
// it leaves memory untouched and sets dest=0.
func (p *Processor) execSyncMem(t *Thread, in instruction, addr uint32) {
	store := in.store
	paddr, trapped := p.translate(t, addr, store, false)
	if trapped {
		return
	}
	line := int64(paddr) / AlignBlock
	if !store {
		t.scalar[in.dest] = p.readPhysLong(paddr)
		t.lastSyncLoadAddr = line
		p.syncScoreboard[line] = struct{}{}
		p.emit(Event{Kind: EventScalarWriteback, PC: t.pc, Thread: t.ID, Reg: in.dest, Words: [16]uint32{t.scalar[in.dest]}})
		return
	}
	_, stillValid := p.syncScoreboard[line]
	if stillValid && t.lastSyncLoadAddr == line {
		v := t.scalar[in.dest]
		p.writePhysLong(paddr, v)
		// Per spec, a synchronized store logs only the memory write, not
		// the register update with the success flag.
		p.emit(Event{Kind: EventStore, PC: t.pc, Thread: t.ID, Addr: paddr &^ (AlignBlock - 1),
			ByteMask: 0b1111 << (paddr % AlignBlock), Words: p.cacheLineWords(paddr)})
		t.scalar[in.dest] = 1
	} else {
		t.scalar[in.dest] = 0
		// On failure only the register update is logged, matching spec.md
		// §9's cosim side-effect logging rule (the memory was never written).
		p.emit(Event{Kind: EventScalarWriteback, PC: t.pc, Thread: t.ID, Reg: in.dest, Words: [16]uint32{t.scalar[in.dest]}})
	}
}

func (p *Processor) execControlMem(t *Thread, in instruction) {
	store := in.store
	reg := ControlReg(in.imm)
	if store {
		p.writeControlReg(t, reg, t.scalar[in.dest])
	} else {
		t.scalar[in.dest] = p.readControlReg(t, reg)
		p.emit(Event{Kind: EventScalarWriteback, PC: t.pc, Thread: t.ID, Reg: in.dest, Words: [16]uint32{t.scalar[in.dest]}})
	}
}

// execBlockVector loads/stores 16 consecutive words as a vector register,
// honoring the instruction's mask register for the masked form.
func (p *Processor) execBlockVector(t *Thread, in instruction, addr uint32) {
	store := in.store
	mask := simd.Mask(0xffff)
	if in.memOp == MemBlockVectorMasked {
		mask = p.laneMask(t, in)
	}
	paddr, trapped := p.translate(t, addr, store, false)
	if trapped {
		return
	}
	if store {
		vec := simd.Vec(t.vector[in.dest])
		for lane := 0; lane < simd.Lanes; lane++ {
			if mask&(1<<uint(lane)) == 0 {
				continue
			}
			p.writePhysLong(paddr+uint32(lane*4), vec.Lane(lane))
		}
		p.emit(Event{Kind: EventStore, PC: t.pc, Thread: t.ID, Addr: paddr, LaneMask: uint16(mask), Words: p.cacheLineWords(paddr)})
		return
	}
	for lane := 0; lane < simd.Lanes; lane++ {
		if mask&(1<<uint(lane)) == 0 {
			continue
		}
		t.vector[in.dest][lane] = p.readPhysLong(paddr + uint32(lane*4))
	}
	p.emit(Event{Kind: EventVectorWriteback, PC: t.pc, Thread: t.ID, Reg: in.dest, LaneMask: uint16(mask), Words: t.vector[in.dest]})
}

// execScatterGather runs every remaining lane, from t.subcycle up to 15,
// within one call, advancing t.subcycle as each lane completes. If a
// lane's translation traps, the call returns with subcycle at that lane,
// so the trap frame records where the instruction resumes after eret;
// once all lanes are done subcycle is reset to 0.
func (p *Processor) execScatterGather(t *Thread, in instruction) {
	store := in.store
	mask := simd.Mask(0xffff)
	if in.memOp == MemScatterGatherMasked {
		mask = p.laneMask(t, in)
	}
	addrs := simd.Vec(t.vector[in.src1])
	for lane := t.subcycle; lane < simd.Lanes; lane++ {
		if mask&(1<<uint(lane)) == 0 {
			t.subcycle++
			continue
		}
		a := uint32(int32(addrs.Lane(lane)) + in.imm)
		paddr, trapped := p.translate(t, a, store, false)
		if trapped {
			return
		}
		if store {
			p.writePhysLong(paddr, t.vector[in.dest][lane])
			p.emit(Event{Kind: EventStore, PC: t.pc, Thread: t.ID, Addr: paddr, LaneMask: 1 << uint(lane),
				Words: p.cacheLineWords(paddr)})
		} else {
			t.vector[in.dest][lane] = p.readPhysLong(paddr)
		}
		t.subcycle++
	}
	if !store {
		p.emit(Event{Kind: EventVectorWriteback, PC: t.pc, Thread: t.ID, Reg: in.dest, LaneMask: uint16(mask), Words: t.vector[in.dest]})
	}
	t.subcycle = 0
}

func (p *Processor) readByte(addr uint32) byte {
	if r, ok := p.findMMIO(addr); ok {
		return byte(r.dev.ReadMMIO(addr-r.base, 1))
	}
	return p.Memory[addr]
}

func (p *Processor) writeByte(addr uint32, v byte) {
	if r, ok := p.findMMIO(addr); ok {
		r.dev.WriteMMIO(addr-r.base, 1, uint32(v))
		return
	}
	p.Memory[addr] = v
	p.invalidateSync(addr)
}

func (p *Processor) readShort(addr uint32) uint16 {
	if r, ok := p.findMMIO(addr); ok {
		return uint16(r.dev.ReadMMIO(addr-r.base, 2))
	}
	return uint16(p.Memory[addr]) | uint16(p.Memory[addr+1])<<8
}

func (p *Processor) writeShort(addr uint32, v uint16) {
	if r, ok := p.findMMIO(addr); ok {
		r.dev.WriteMMIO(addr-r.base, 2, uint32(v))
		return
	}
	p.Memory[addr] = byte(v)
	p.Memory[addr+1] = byte(v >> 8)
	p.invalidateSync(addr)
}
