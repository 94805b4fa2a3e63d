// Package cosim implements the cosimulation channel: it validates every
// architecturally visible side effect the interpreter produces against an
// external reference event stream (a verilog model's trace), read one
// event per line from an io.Reader. A mismatch — wrong kind, PC, thread,
// address, mask, or value, or no emulator event within the step budget —
// is a fatal cosim error reported with both sides' data.
package cosim

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nyuzi-go/nyuzigo/internal/cpu"
)

// maxStepsPerEvent bounds how many instructions the emulator is allowed to
// run on the indicated thread before producing a side effect to compare
// against one reference event; exceeding it without an event is a timeout
// error.
const maxStepsPerEvent = 500

// Kind mirrors the reference stream's event vocabulary.
type Kind int

const (
	KindStore Kind = iota
	KindVectorWriteback
	KindScalarWriteback
	KindInterrupt
	KindHalted
)

// ReferenceEvent is one parsed line of the reference stream.
type ReferenceEvent struct {
	Kind     Kind
	PC       uint32
	Thread   int
	Addr     uint32
	ByteMask uint64
	LaneMask uint16
	Reg      int
	Words    [16]uint32
	Value    uint32
}

// ParseEvent parses one reference-stream line. Accepted forms, per
// spec.md §4.11:
//
//	store <pc> <thread> <addr> <byte_mask_64bit> <16-word hex vector>
//	vwriteback <pc> <thread> <reg> <lane_mask_16bit> <16-word hex vector>
//	swriteback <pc> <thread> <reg> <value>
//	interrupt <thread> <pc>
//	***HALTED***
func ParseEvent(line string) (ReferenceEvent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ReferenceEvent{}, fmt.Errorf("cosim: empty event line")
	}
	if fields[0] == "***HALTED***" {
		return ReferenceEvent{Kind: KindHalted}, nil
	}

	hex := func(s string) (uint64, error) { return strconv.ParseUint(s, 16, 64) }

	switch fields[0] {
	case "store":
		if len(fields) != 21 {
			return ReferenceEvent{}, fmt.Errorf("cosim: malformed store event %q", line)
		}
		pc, err := hex(fields[1])
		if err != nil {
			return ReferenceEvent{}, err
		}
		thread, err := strconv.Atoi(fields[2])
		if err != nil {
			return ReferenceEvent{}, err
		}
		addr, err := hex(fields[3])
		if err != nil {
			return ReferenceEvent{}, err
		}
		mask, err := hex(fields[4])
		if err != nil {
			return ReferenceEvent{}, err
		}
		ev := ReferenceEvent{Kind: KindStore, PC: uint32(pc), Thread: thread, Addr: uint32(addr), ByteMask: mask}
		for i := 0; i < 16; i++ {
			w, err := hex(fields[5+i])
			if err != nil {
				return ReferenceEvent{}, err
			}
			ev.Words[i] = uint32(w)
		}
		return ev, nil

	case "vwriteback":
		if len(fields) != 21 {
			return ReferenceEvent{}, fmt.Errorf("cosim: malformed vwriteback event %q", line)
		}
		pc, err := hex(fields[1])
		if err != nil {
			return ReferenceEvent{}, err
		}
		thread, err := strconv.Atoi(fields[2])
		if err != nil {
			return ReferenceEvent{}, err
		}
		reg, err := strconv.Atoi(fields[3])
		if err != nil {
			return ReferenceEvent{}, err
		}
		mask, err := hex(fields[4])
		if err != nil {
			return ReferenceEvent{}, err
		}
		ev := ReferenceEvent{Kind: KindVectorWriteback, PC: uint32(pc), Thread: thread, Reg: reg, LaneMask: uint16(mask)}
		for i := 0; i < 16; i++ {
			w, err := hex(fields[5+i])
			if err != nil {
				return ReferenceEvent{}, err
			}
			ev.Words[i] = uint32(w)
		}
		return ev, nil

	case "swriteback":
		if len(fields) != 5 {
			return ReferenceEvent{}, fmt.Errorf("cosim: malformed swriteback event %q", line)
		}
		pc, err := hex(fields[1])
		if err != nil {
			return ReferenceEvent{}, err
		}
		thread, err := strconv.Atoi(fields[2])
		if err != nil {
			return ReferenceEvent{}, err
		}
		reg, err := strconv.Atoi(fields[3])
		if err != nil {
			return ReferenceEvent{}, err
		}
		value, err := hex(fields[4])
		if err != nil {
			return ReferenceEvent{}, err
		}
		return ReferenceEvent{Kind: KindScalarWriteback, PC: uint32(pc), Thread: thread, Reg: reg, Value: uint32(value)}, nil

	case "interrupt":
		if len(fields) != 3 {
			return ReferenceEvent{}, fmt.Errorf("cosim: malformed interrupt event %q", line)
		}
		thread, err := strconv.Atoi(fields[1])
		if err != nil {
			return ReferenceEvent{}, err
		}
		pc, err := hex(fields[2])
		if err != nil {
			return ReferenceEvent{}, err
		}
		return ReferenceEvent{Kind: KindInterrupt, Thread: thread, PC: uint32(pc)}, nil

	default:
		return ReferenceEvent{}, fmt.Errorf("cosim: unknown event kind %q", fields[0])
	}
}

// MismatchError reports a cosim validation failure, carrying both sides'
// data as the spec requires.
type MismatchError struct {
	Reference ReferenceEvent
	Got       *cpu.Event // nil if the emulator produced no event within the budget
	Reason    string
}

func (e *MismatchError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("cosim mismatch: %s; reference=%+v; emulator produced no event within %d instructions",
			e.Reason, e.Reference, maxStepsPerEvent)
	}
	return fmt.Sprintf("cosim mismatch: %s; reference=%+v; emulator=%+v", e.Reason, e.Reference, *e.Got)
}

// Validator drives proc one reference event at a time.
type Validator struct {
	proc *cpu.Processor
}

// NewValidator returns a Validator that checks proc's side effects against
// a reference stream.
func NewValidator(proc *cpu.Processor) *Validator {
	return &Validator{proc: proc}
}

// Run reads reference events from r until EOF or ***HALTED*** is reached
// and fully validated, returning the first mismatch encountered (nil on a
// clean run to completion).
func (v *Validator) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ref, err := ParseEvent(line)
		if err != nil {
			return err
		}
		if ref.Kind == KindHalted {
			return v.validateHalt()
		}
		if err := v.validateOne(ref); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (v *Validator) validateOne(ref ReferenceEvent) error {
	t := v.proc.Thread(ref.Thread)
	for steps := 0; steps < maxStepsPerEvent; steps++ {
		if t.Halted {
			return &MismatchError{Reference: ref, Reason: "thread halted before matching event"}
		}
		v.proc.Step(t)
		for _, got := range v.proc.LastEvents() {
			got := got
			if matches(ref, got) {
				return nil
			}
			return &MismatchError{Reference: ref, Got: &got, Reason: "side effect does not match reference"}
		}
	}
	return &MismatchError{Reference: ref, Reason: "timeout"}
}

// validateHalt steps the emulator with no expectation until it halts; any
// side effect produced during that time is itself a mismatch.
func (v *Validator) validateHalt() error {
	for c := 0; c < len(v.proc.Cores); c++ {
		for _, t := range v.proc.Cores[c].Threads {
			if !t.Enabled {
				continue
			}
			for steps := 0; steps < maxStepsPerEvent && !t.Halted; steps++ {
				v.proc.Step(t)
				if evs := v.proc.LastEvents(); len(evs) > 0 {
					got := evs[0]
					return &MismatchError{Reference: ReferenceEvent{Kind: KindHalted}, Got: &got,
						Reason: "unexpected side effect after reference halt"}
				}
			}
		}
	}
	return nil
}

func matches(ref ReferenceEvent, got cpu.Event) bool {
	if ref.Thread != got.Thread || ref.PC != got.PC {
		return false
	}
	switch ref.Kind {
	case KindStore:
		return got.Kind == cpu.EventStore && ref.Addr == got.Addr &&
			ref.ByteMask == got.ByteMask && ref.Words == got.Words
	case KindVectorWriteback:
		return got.Kind == cpu.EventVectorWriteback && ref.Reg == got.Reg &&
			ref.LaneMask == got.LaneMask && ref.Words == got.Words
	case KindScalarWriteback:
		return got.Kind == cpu.EventScalarWriteback && ref.Reg == got.Reg && ref.Value == got.Words[0]
	case KindInterrupt:
		return got.Kind == cpu.EventInterrupt
	default:
		return false
	}
}
