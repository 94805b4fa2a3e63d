package cpu

import "testing"

func TestOnlyThreadZeroStartsEnabled(t *testing.T) {
	p := NewProcessor(1 << 16)
	if !p.Thread(0).Enabled {
		t.Fatal("thread 0 should start enabled")
	}
	for id := 1; id < NumThreads; id++ {
		if p.Thread(id).Enabled {
			t.Fatalf("thread %d should start parked", id)
		}
	}
}

func TestSetThreadEnableMaskResumeAndHalt(t *testing.T) {
	p := NewProcessor(1 << 16)
	p.SetThreadEnableMask(0x6, 0) // resume threads 1,2
	if got := p.ThreadEnableMask(); got&0x7 != 0x7 {
		t.Fatalf("enable mask = %#x, want bits 0,1,2 set", got)
	}
	p.SetThreadEnableMask(0, 0x1) // halt thread 0
	if p.Thread(0).Enabled {
		t.Fatal("thread 0 should be halted")
	}
	if !p.Thread(1).Enabled || !p.Thread(2).Enabled {
		t.Fatal("threads 1,2 should remain enabled")
	}
}

func TestRunRoundRobinSkipsDisabledThreads(t *testing.T) {
	p := NewProcessor(1 << 16)
	// Thread 1 stays disabled; give it an instruction it would choke on if
	// ever scheduled (writing to a register we can observe).
	th1 := p.Thread(1)
	th1.pc = 0
	w := encodeImmArith(OpADD_I, formScalarScalar, 5, 0, 9)
	p.writePhysLong(0x8000, w)
	th1.pc = 0x8000

	th0 := p.Thread(0)
	th0.Halted = true // nothing left to run once disabled/halted threads are excluded

	p.RunRoundRobin()

	if th1.scalar[5] != 0 {
		t.Fatalf("disabled thread 1 should never have run, r5 = %d", th1.scalar[5])
	}
}

func TestArmTimerSetsEveryThreadCountdown(t *testing.T) {
	p := NewProcessor(1 << 16)
	p.ArmTimer(42)
	for id := 0; id < NumThreads; id++ {
		if got := p.Thread(id).timerCount; got != 42 {
			t.Fatalf("thread %d timerCount = %d, want 42", id, got)
		}
	}
}

func TestLastTrapReflectsBreakpointSentinel(t *testing.T) {
	p := NewProcessor(1 << 16)
	th := p.Thread(0)
	th.trapHandler = 0x1000
	p.writePhysLong(0, BreakpointSentinel)
	th.pc = 0
	p.Step(th)
	kind, ok := th.LastTrap()
	if !ok || kind != TrapBreakpoint {
		t.Fatalf("LastTrap() = (%v, %v), want (TrapBreakpoint, true)", kind, ok)
	}
}

func TestLastTrapValidResetsEachStep(t *testing.T) {
	p := NewProcessor(1 << 16)
	th := p.Thread(0)
	th.trapHandler = 0x1000
	p.writePhysLong(0, BreakpointSentinel)
	th.pc = 0
	p.Step(th) // traps, lastTrapValid = true

	w := encodeImmArith(OpADD_I, formScalarScalar, 1, 0, 1)
	p.writePhysLong(th.pc, w)
	p.Step(th) // an ordinary instruction, should clear the trap flag
	if _, ok := th.LastTrap(); ok {
		t.Fatal("LastTrap() should report false after a non-trapping step")
	}
}

func TestReadWriteByteAndWordAccessors(t *testing.T) {
	p := NewProcessor(1 << 16)
	p.WriteWord(0x100, 0xaabbccdd)
	if got := p.ReadWord(0x100); got != 0xaabbccdd {
		t.Fatalf("ReadWord = %#x, want 0xaabbccdd", got)
	}
	if got := p.ReadByte(0x100); got != 0xdd {
		t.Fatalf("ReadByte = %#x, want 0xdd (little-endian low byte)", got)
	}
	p.WriteByte(0x100, 0x11)
	if got := p.ReadWord(0x100); got != 0xaabbcc11 {
		t.Fatalf("ReadWord after WriteByte = %#x, want 0xaabbcc11", got)
	}
}

func TestDebugRegisterAccessors(t *testing.T) {
	p := NewProcessor(1 << 16)
	th := p.Thread(0)
	th.SetPC(0x2000)
	if th.PC() != 0x2000 {
		t.Fatalf("PC() = %#x, want 0x2000", th.PC())
	}
	th.SetScalar(3, 77)
	if th.Scalar(3) != 77 {
		t.Fatalf("Scalar(3) = %d, want 77", th.Scalar(3))
	}
	var vec [VectorLanes]uint32
	vec[0] = 5
	th.SetVector(2, vec)
	if got := th.Vector(2); got[0] != 5 {
		t.Fatalf("Vector(2)[0] = %d, want 5", got[0])
	}
}

func TestStoppedOnFaultAndResume(t *testing.T) {
	p := NewProcessor(1 << 16)
	th := p.Thread(0)
	if th.StoppedOnFault() {
		t.Fatal("a fresh thread should not be stopped on fault")
	}
	th.stoppedFault = true
	if !th.StoppedOnFault() {
		t.Fatal("StoppedOnFault() should report true")
	}
	th.Resume()
	if th.StoppedOnFault() {
		t.Fatal("Resume() should clear the fault stop")
	}
}
