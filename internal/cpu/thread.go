package cpu

// trapSaveSlot captures everything eret needs to restore, one of the two
// nested-trap save slots per thread.
type trapSaveSlot struct {
	pc      uint32
	flags   uint32
	subcyc  int
	valid   bool
}

// tlbEntry is one DTLB/ITLB way: a software-managed virtual-to-physical
// mapping plus its permission bits.
type tlbEntry struct {
	valid      bool
	vpage      uint32
	ppage      uint32
	asid       uint32
	global     bool
	present    bool
	writable   bool
	executable bool
	supervisor bool
}

// tlbSets/tlbWays size the 16-set, 4-way software TLB used by both the
// instruction and data translators.
const (
	tlbSets = 16
	tlbWays = 4
)

type tlb struct {
	sets [tlbSets][tlbWays]tlbEntry
	// clock is a round-robin eviction pointer per set, advanced only when
	// a miss forces a genuinely new insertion (not a same-entry replace).
	clock [tlbSets]int
}

func (t *tlb) lookup(vaddr, asid uint32) (*tlbEntry, bool) {
	vpage := vaddr >> 12
	set := &t.sets[vpage%tlbSets]
	for i := range set {
		e := &set[i]
		if e.valid && e.vpage == vpage && (e.global || e.asid == asid) {
			return e, true
		}
	}
	return nil, false
}

// insert replaces an existing entry for (vpage, asid/global) if one
// exists, else evicts round-robin within the set.
func (t *tlb) insert(e tlbEntry) {
	setIdx := e.vpage % tlbSets
	set := &t.sets[setIdx]
	for i := range set {
		if set[i].valid && set[i].vpage == e.vpage && (set[i].global == e.global) && (set[i].global || set[i].asid == e.asid) {
			set[i] = e
			return
		}
	}
	way := t.clock[setIdx]
	set[way] = e
	t.clock[setIdx] = (way + 1) % tlbWays
}

func (t *tlb) invalidate(vaddr, asid uint32) {
	vpage := vaddr >> 12
	set := &t.sets[vpage%tlbSets]
	for i := range set {
		if set[i].valid && set[i].vpage == vpage && set[i].asid == asid {
			set[i].valid = false
		}
	}
}

func (t *tlb) invalidateAll() {
	for s := range t.sets {
		for w := range t.sets[s] {
			t.sets[s][w].valid = false
		}
	}
}

// Thread is one of the machine's 32 independently-scheduled hardware
// threads: its own register file, vector register file, trap/interrupt
// state, and ITLB/DTLB.
type Thread struct {
	ID int

	scalar [NumScalarRegs]uint32
	vector [NumVectorRegs][VectorLanes]uint32
	pc     uint32

	flags      uint32
	savedFlags uint32
	asid       uint32
	pageDir    uint32

	trapHandler    uint32
	trapPC         uint32
	trapReason     uint32
	trapAccessAddr uint32
	tlbMissHandler uint32
	scratchpad     [2]uint32
	subcycle       int

	// save[0] is the innermost (most recent) trap frame, save[1] the one
	// nested below it; eret restores save[0] then shifts save[1] down.
	save [2]trapSaveSlot

	interruptLatched uint32 // edge-triggered bits currently pending
	interruptLevel   uint32 // level-triggered bits, live wire state
	interruptMask    uint32
	isLevelTriggered uint32

	timerCount uint32

	lastSyncLoadAddr int64 // -1 means "no outstanding sync load"

	// lastTrap records the kind of trap (if any) raised during the Step
	// currently/most-recently in progress, reset at the top of each Step;
	// a debug stub uses this to tell a breakpoint trap apart from normal
	// instruction flow without threading trap state through Step's return.
	lastTrap      TrapType
	lastTrapValid bool

	itlb tlb
	dtlb tlb

	Halted       bool
	stoppedFault bool
	singleStep   bool

	// Enabled gates whether RunRoundRobin schedules this thread; the
	// thread-resume/thread-halt MMIO registers OR/AND-NOT bits into the
	// machine-wide enable mask (spec.md §6.4). Thread 0 starts enabled so
	// the boot firmware has somewhere to run; every other thread starts
	// parked until resumed.
	Enabled bool

	cycles uint64
}

// NewThread returns a thread reset to its power-on state.
func NewThread(id int) *Thread {
	t := &Thread{ID: id, Enabled: id == 0}
	t.Reset()
	return t
}

// Reset restores reset-vector state: supervisor mode, MMU off, PC at 0,
// TLBs and trap-save slots cleared.
func (t *Thread) Reset() {
	t.scalar = [NumScalarRegs]uint32{}
	t.vector = [NumVectorRegs][VectorLanes]uint32{}
	t.pc = 0
	t.flags = FlagSupervisor
	t.savedFlags = 0
	t.asid = 0
	t.pageDir = 0
	t.subcycle = 0
	t.save = [2]trapSaveSlot{}
	t.interruptLatched = 0
	t.interruptLevel = 0
	t.interruptMask = 0
	t.timerCount = 0
	t.lastSyncLoadAddr = -1
	t.itlb = tlb{}
	t.dtlb = tlb{}
	t.Halted = false
	t.stoppedFault = false
}

func (t *Thread) pendingInterrupts() uint32 {
	return (t.interruptLevel & t.isLevelTriggered) | (t.interruptLatched &^ t.isLevelTriggered)
}

func (t *Thread) interruptDispatchable() bool {
	return t.flags&FlagInterruptEnable != 0 && t.pendingInterrupts()&t.interruptMask != 0
}

// Core groups the threads that share an MMIO/interrupt fan-in in this
// model (the spec does not require per-core cache simulation, so a Core is
// otherwise just a thread container).
type Core struct {
	ID      int
	Threads [ThreadsPerCore]*Thread
}

func NewCore(id int) *Core {
	c := &Core{ID: id}
	for i := range c.Threads {
		c.Threads[i] = NewThread(id*ThreadsPerCore + i)
	}
	return c
}
