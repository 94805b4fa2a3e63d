package cosim

import (
	"strings"
	"testing"

	"github.com/nyuzi-go/nyuzigo/internal/cpu"
)

func TestParseEventStore(t *testing.T) {
	line := "store 1000 3 2000 ffffffffffffffff " + strings.Repeat("1 ", 16)
	ev, err := ParseEvent(strings.TrimSpace(line))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != KindStore || ev.PC != 0x1000 || ev.Thread != 3 || ev.Addr != 0x2000 {
		t.Fatalf("parsed store event = %+v", ev)
	}
	if ev.ByteMask != 0xffffffffffffffff {
		t.Fatalf("ByteMask = %#x, want all ones", ev.ByteMask)
	}
	for i, w := range ev.Words {
		if w != 1 {
			t.Fatalf("Words[%d] = %d, want 1", i, w)
		}
	}
}

func TestParseEventVectorWriteback(t *testing.T) {
	line := "vwriteback 4 0 7 ffff " + strings.Repeat("a ", 16)
	ev, err := ParseEvent(strings.TrimSpace(line))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != KindVectorWriteback || ev.Reg != 7 || ev.LaneMask != 0xffff {
		t.Fatalf("parsed vwriteback event = %+v", ev)
	}
	if ev.Words[15] != 0xa {
		t.Fatalf("Words[15] = %#x, want 0xa", ev.Words[15])
	}
}

func TestParseEventScalarWriteback(t *testing.T) {
	ev, err := ParseEvent("swriteback 8 1 5 2a")
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != KindScalarWriteback || ev.PC != 8 || ev.Thread != 1 || ev.Reg != 5 || ev.Value != 0x2a {
		t.Fatalf("parsed swriteback event = %+v", ev)
	}
}

func TestParseEventInterrupt(t *testing.T) {
	ev, err := ParseEvent("interrupt 2 ff00")
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != KindInterrupt || ev.Thread != 2 || ev.PC != 0xff00 {
		t.Fatalf("parsed interrupt event = %+v", ev)
	}
}

func TestParseEventHalted(t *testing.T) {
	ev, err := ParseEvent("***HALTED***")
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != KindHalted {
		t.Fatalf("Kind = %v, want KindHalted", ev.Kind)
	}
}

func TestParseEventRejectsUnknownKind(t *testing.T) {
	if _, err := ParseEvent("bogus 1 2 3"); err == nil {
		t.Fatal("expected an error for an unknown event kind")
	}
}

func TestParseEventRejectsWrongFieldCount(t *testing.T) {
	if _, err := ParseEvent("store 1 2 3"); err == nil {
		t.Fatal("expected an error for a truncated store event")
	}
}

func TestParseEventRejectsEmptyLine(t *testing.T) {
	if _, err := ParseEvent("   "); err == nil {
		t.Fatal("expected an error for an empty line")
	}
}

func TestParseEventRejectsBadHex(t *testing.T) {
	if _, err := ParseEvent("interrupt 0 zzzz"); err == nil {
		t.Fatal("expected an error for a malformed hex field")
	}
}

func TestMatchesStoreRequiresAddrMaskAndWords(t *testing.T) {
	ref := ReferenceEvent{Kind: KindStore, PC: 4, Thread: 0, Addr: 0x100, ByteMask: 0xff}
	ref.Words[0] = 7
	got := cpu.Event{Kind: cpu.EventStore, PC: 4, Thread: 0, Addr: 0x100, ByteMask: 0xff}
	got.Words[0] = 7
	if !matches(ref, got) {
		t.Fatal("identical store events should match")
	}
	got.Addr = 0x200
	if matches(ref, got) {
		t.Fatal("store events with different addresses should not match")
	}
}

func TestMatchesRejectsWrongKind(t *testing.T) {
	ref := ReferenceEvent{Kind: KindStore, PC: 1, Thread: 0}
	got := cpu.Event{Kind: cpu.EventScalarWriteback, PC: 1, Thread: 0}
	if matches(ref, got) {
		t.Fatal("a store reference should never match a scalar writeback")
	}
}

func TestMatchesScalarWritebackComparesValueAgainstWordsZero(t *testing.T) {
	ref := ReferenceEvent{Kind: KindScalarWriteback, PC: 2, Thread: 1, Reg: 5, Value: 99}
	got := cpu.Event{Kind: cpu.EventScalarWriteback, PC: 2, Thread: 1, Reg: 5}
	got.Words[0] = 99
	if !matches(ref, got) {
		t.Fatal("scalar writeback should match when Value equals Words[0]")
	}
	got.Words[0] = 100
	if matches(ref, got) {
		t.Fatal("scalar writeback should not match on a differing value")
	}
}

func TestMatchesInterruptIgnoresPayload(t *testing.T) {
	ref := ReferenceEvent{Kind: KindInterrupt, PC: 0x8000, Thread: 3}
	got := cpu.Event{Kind: cpu.EventInterrupt, PC: 0x8000, Thread: 3, Addr: 0x40, ByteMask: 0xf}
	got.Words[0] = 0xdead
	if !matches(ref, got) {
		t.Fatal("interrupt events with matching PC/thread should match")
	}
}

func TestMismatchErrorReportsTimeoutWithoutGotEvent(t *testing.T) {
	err := &MismatchError{Reference: ReferenceEvent{Kind: KindStore, PC: 0x10, Thread: 2}, Reason: "timeout"}
	msg := err.Error()
	if !strings.Contains(msg, "timeout") || !strings.Contains(msg, "no event within") {
		t.Fatalf("Error() = %q, missing expected phrases", msg)
	}
}

func TestMismatchErrorReportsBothSidesWhenGotEventPresent(t *testing.T) {
	got := cpu.Event{Kind: cpu.EventStore, PC: 0x10, Thread: 2}
	err := &MismatchError{Reference: ReferenceEvent{Kind: KindStore, PC: 0x10, Thread: 2}, Got: &got, Reason: "does not match reference"}
	msg := err.Error()
	if !strings.Contains(msg, "emulator=") {
		t.Fatalf("Error() = %q, should include the emulator-side event", msg)
	}
}

func TestValidateOneFailsFastOnHaltedThread(t *testing.T) {
	proc := cpu.NewProcessor(1 << 16)
	proc.Thread(1).Halted = true
	v := NewValidator(proc)
	err := v.validateOne(ReferenceEvent{Kind: KindStore, PC: 0, Thread: 1})
	if err == nil {
		t.Fatal("expected a mismatch for a thread that is already halted")
	}
	mismatch, ok := err.(*MismatchError)
	if !ok {
		t.Fatalf("error type = %T, want *MismatchError", err)
	}
	if mismatch.Got != nil {
		t.Fatal("a halted-before-event mismatch should carry no emulator-side event")
	}
}

func TestRunStopsCleanlyOnHaltedReference(t *testing.T) {
	proc := cpu.NewProcessor(1 << 16)
	for c := 0; c < len(proc.Cores); c++ {
		for _, th := range proc.Cores[c].Threads {
			th.Halted = true
		}
	}
	v := NewValidator(proc)
	if err := v.Run(strings.NewReader("***HALTED***\n")); err != nil {
		t.Fatalf("Run() with every thread already halted = %v, want nil", err)
	}
}

func TestRunPropagatesParseErrors(t *testing.T) {
	proc := cpu.NewProcessor(1 << 16)
	v := NewValidator(proc)
	if err := v.Run(strings.NewReader("not-a-real-event\n")); err == nil {
		t.Fatal("expected Run to surface a parse error from a malformed line")
	}
}

func TestRunSkipsBlankLines(t *testing.T) {
	proc := cpu.NewProcessor(1 << 16)
	proc.Thread(0).Halted = true
	v := NewValidator(proc)
	err := v.Run(strings.NewReader("\n\n   \n***HALTED***\n"))
	if err != nil {
		t.Fatalf("Run() = %v, want nil for blank lines followed by a clean halt", err)
	}
}
