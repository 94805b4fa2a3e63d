// Package gdbstub implements the minimal GDB-remote server described in
// spec.md §4.12/§6.5: `$...#cc` packet framing over TCP port 8000,
// register/memory access, thread selection, continue/step, and software
// breakpoints.
//
// The teacher has no GDB or networking code of its own (it ships a
// terminal machine monitor, debug_monitor.go/debug_commands.go, rather
// than a wire protocol), so this package is grounded directly on the
// spec's protocol description; its connection-handling shape (a
// mutex-free per-connection loop dispatching single-letter commands
// against a focused CPU) follows debug_monitor.go's MachineMonitor
// structure with "focused CPU" generalized to "focused thread".
package gdbstub

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/nyuzi-go/nyuzigo/internal/cpu"
)

// Server accepts GDB-remote connections against a single Processor.
type Server struct {
	proc *cpu.Processor

	breakpoints map[uint32]uint32 // addr -> original instruction word
}

// NewServer returns a Server for proc.
func NewServer(proc *cpu.Processor) *Server {
	return &Server{proc: proc, breakpoints: make(map[uint32]uint32)}
}

// ListenAndServe listens on addr (typically ":8000") and serves GDB-remote
// connections one at a time, as the spec's single-target model implies.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gdbstub: listen: %w", err)
	}
	defer ln.Close()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("gdbstub: accept: %w", err)
		}
		s.serveConn(conn)
		conn.Close()
	}
}

// session holds one connection's state: the thread currently focused
// for 'g'/'G'/'p'/'P' access vs. for 'c'/'s' execution control, and
// whether the client has switched off per-packet acknowledgement.
type session struct {
	gThread int
	cThread int
	noAck   bool
}

func (s *Server) serveConn(c net.Conn) {
	r := bufio.NewReader(c)
	sess := &session{gThread: 0, cThread: 0}
	for {
		payload, ok := readPacket(r)
		if !ok {
			return
		}
		if !sess.noAck {
			c.Write([]byte{'+'})
		}
		reply := s.dispatch(sess, payload)
		writePacket(c, reply)
	}
}

// readPacket scans for the next '$'-prefixed, '#cc'-terminated frame,
// discarding ack bytes ('+'/'-') and any '\x03' interrupt byte outside a
// frame.
func readPacket(r *bufio.Reader) (string, bool) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", false
		}
		if b != '$' {
			continue
		}
		var buf bytes.Buffer
		for {
			b, err := r.ReadByte()
			if err != nil {
				return "", false
			}
			if b == '#' {
				// two checksum hex digits follow; not independently verified
				// beyond framing, matching the spec's "framed identically
				// with a checksum" requirement without rejecting on mismatch.
				r.ReadByte()
				r.ReadByte()
				return buf.String(), true
			}
			buf.WriteByte(b)
		}
	}
}

func writePacket(c net.Conn, payload string) {
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum += payload[i]
	}
	fmt.Fprintf(c, "$%s#%02x", payload, sum)
}

func (s *Server) dispatch(sess *session, payload string) string {
	if payload == "" {
		return ""
	}
	switch payload[0] {
	case '?':
		return "S05" // SIGTRAP: last stop reason
	case 'H':
		return s.handleSetThread(sess, payload)
	case 'g':
		return s.readRegisters(sess.gThread)
	case 'G':
		return s.writeRegisters(sess.gThread, payload[1:])
	case 'p':
		return s.readOneRegister(sess.gThread, payload[1:])
	case 'P':
		return s.writeOneRegister(sess.gThread, payload[1:])
	case 'm':
		return s.readMemory(payload[1:])
	case 'M':
		return s.writeMemory(payload[1:])
	case 'c':
		return s.cont(sess, 0)
	case 'C':
		return s.cont(sess, 1)
	case 's':
		return s.step(sess)
	case 'S':
		return s.step(sess)
	case 'z':
		return s.removeBreakpoint(payload[1:])
	case 'Z':
		return s.insertBreakpoint(payload[1:])
	case 'q':
		return s.handleQuery(sess, payload[1:])
	case 'Q':
		return s.handleSet(sess, payload[1:])
	case 'v':
		return s.handleV(sess, payload[1:])
	default:
		return ""
	}
}

func (s *Server) handleSetThread(sess *session, payload string) string {
	// H[gc]<id>: select the thread used by 'g'/'G'/'p'/'P' (g) or by
	// 'c'/'s' (c). id "-1" means "all threads"; we treat that as thread 0.
	if len(payload) < 2 {
		return "E01"
	}
	kind := payload[1]
	idStr := payload[2:]
	id, err := strconv.Atoi(idStr)
	if err != nil || id < 0 {
		id = 0
	}
	if id >= cpu.NumThreads {
		id = cpu.NumThreads - 1
	}
	switch kind {
	case 'g':
		sess.gThread = id
	case 'c':
		sess.cThread = id
	}
	return "OK"
}

// registerCount is the GDB register-file size this stub exposes: 32
// scalar registers (28..31 also addressable via the generic fp/sp/ra/pc
// aliases, which map onto the same underlying scalar slots) plus 32
// vector registers, per spec.md §6.5.
const registerCount = cpu.NumScalarRegs + cpu.NumVectorRegs

func (s *Server) readRegisters(threadID int) string {
	t := s.proc.Thread(threadID)
	var b strings.Builder
	for r := 0; r < cpu.NumScalarRegs; r++ {
		writeLEHex32(&b, t.Scalar(r))
	}
	for r := 0; r < cpu.NumVectorRegs; r++ {
		vec := t.Vector(r)
		for lane := 0; lane < cpu.VectorLanes; lane++ {
			writeLEHex32(&b, vec[lane])
		}
	}
	return b.String()
}

func (s *Server) writeRegisters(threadID int, hex string) string {
	t := s.proc.Thread(threadID)
	pos := 0
	for r := 0; r < cpu.NumScalarRegs; r++ {
		v, ok := readLEHex32(hex, pos)
		if !ok {
			return "E01"
		}
		t.SetScalar(r, v)
		pos += 8
	}
	for r := 0; r < cpu.NumVectorRegs; r++ {
		var vec [cpu.VectorLanes]uint32
		for lane := 0; lane < cpu.VectorLanes; lane++ {
			v, ok := readLEHex32(hex, pos)
			if !ok {
				return "E01"
			}
			vec[lane] = v
			pos += 8
		}
		t.SetVector(r, vec)
	}
	return "OK"
}

func (s *Server) readOneRegister(threadID int, idHex string) string {
	id, err := strconv.ParseInt(idHex, 16, 32)
	if err != nil || id < 0 || int(id) >= registerCount {
		return "E01"
	}
	t := s.proc.Thread(threadID)
	var b strings.Builder
	if int(id) < cpu.NumScalarRegs {
		writeLEHex32(&b, t.Scalar(int(id)))
	} else {
		vec := t.Vector(int(id) - cpu.NumScalarRegs)
		for lane := 0; lane < cpu.VectorLanes; lane++ {
			writeLEHex32(&b, vec[lane])
		}
	}
	return b.String()
}

func (s *Server) writeOneRegister(threadID int, payload string) string {
	parts := strings.SplitN(payload, "=", 2)
	if len(parts) != 2 {
		return "E01"
	}
	id, err := strconv.ParseInt(parts[0], 16, 32)
	if err != nil || id < 0 || int(id) >= registerCount {
		return "E01"
	}
	t := s.proc.Thread(threadID)
	if int(id) < cpu.NumScalarRegs {
		v, ok := readLEHex32(parts[1], 0)
		if !ok {
			return "E01"
		}
		t.SetScalar(int(id), v)
		return "OK"
	}
	var vec [cpu.VectorLanes]uint32
	pos := 0
	for lane := 0; lane < cpu.VectorLanes; lane++ {
		v, ok := readLEHex32(parts[1], pos)
		if !ok {
			return "E01"
		}
		vec[lane] = v
		pos += 8
	}
	t.SetVector(int(id)-cpu.NumScalarRegs, vec)
	return "OK"
}

func (s *Server) readMemory(payload string) string {
	addrHex, lenHex, ok := cutOnce(payload, ',')
	if !ok {
		return "E01"
	}
	addr, err1 := strconv.ParseUint(addrHex, 16, 32)
	n, err2 := strconv.ParseUint(lenHex, 16, 32)
	if err1 != nil || err2 != nil {
		return "E01"
	}
	var b strings.Builder
	for i := uint64(0); i < n; i++ {
		fmt.Fprintf(&b, "%02x", s.proc.ReadByte(uint32(addr)+uint32(i)))
	}
	return b.String()
}

func (s *Server) writeMemory(payload string) string {
	head, data, ok := cutOnce(payload, ':')
	if !ok {
		return "E01"
	}
	addrHex, lenHex, ok := cutOnce(head, ',')
	if !ok {
		return "E01"
	}
	addr, err1 := strconv.ParseUint(addrHex, 16, 32)
	n, err2 := strconv.ParseUint(lenHex, 16, 32)
	if err1 != nil || err2 != nil || uint64(len(data)) < n*2 {
		return "E01"
	}
	for i := uint64(0); i < n; i++ {
		v, err := strconv.ParseUint(data[i*2:i*2+2], 16, 8)
		if err != nil {
			return "E01"
		}
		s.proc.WriteByte(uint32(addr)+uint32(i), byte(v))
	}
	return "OK"
}

// cont resumes execution on sess.cThread until it halts, faults, reaches
// an inserted breakpoint (one at the starting PC is stepped over first),
// or takes a breakpoint trap; signal is ignored beyond distinguishing 'c'
// from 'C' since this model raises no host signals.
func (s *Server) cont(sess *session, signal int) string {
	t := s.proc.Thread(sess.cThread)
	for first := true; !t.Halted && !t.StoppedOnFault(); first = false {
		pc := t.PC()
		if orig, atBreakpoint := s.breakpoints[pc]; atBreakpoint {
			if !first {
				break
			}
			s.proc.WriteWord(pc, orig)
			s.proc.Step(t)
			s.proc.WriteWord(pc, cpu.BreakpointSentinel)
			continue
		}
		if !s.proc.Step(t) {
			break
		}
		if kind, ok := t.LastTrap(); ok && kind == cpu.TrapBreakpoint {
			break
		}
	}
	return "S05"
}

// step executes exactly one instruction on sess.cThread. If a breakpoint
// sentinel sits at the current PC, the original instruction is restored
// for the duration of the step and the sentinel is reinserted immediately
// after, per spec.md §4.12's "restoring it on removal or single-step-over"
// rule.
func (s *Server) step(sess *session) string {
	t := s.proc.Thread(sess.cThread)
	pc := t.PC()
	if orig, atBreakpoint := s.breakpoints[pc]; atBreakpoint {
		s.proc.WriteWord(pc, orig)
		s.proc.Step(t)
		s.proc.WriteWord(pc, cpu.BreakpointSentinel)
		return "S05"
	}
	s.proc.Step(t)
	return "S05"
}

// insertBreakpoint handles Z0,<addr>,<kind>: a software breakpoint is set
// by overwriting the instruction word at addr with the breakpoint
// sentinel, saving the original word for later restoration, per spec.md
// §4.12.
func (s *Server) insertBreakpoint(payload string) string {
	addr, ok := breakpointAddr(payload)
	if !ok {
		return "E01"
	}
	if _, already := s.breakpoints[addr]; !already {
		s.breakpoints[addr] = s.proc.ReadWord(addr)
		s.proc.WriteWord(addr, cpu.BreakpointSentinel)
	}
	return "OK"
}

// removeBreakpoint handles z0,<addr>,<kind>: restores the original
// instruction word saved at insertion time.
func (s *Server) removeBreakpoint(payload string) string {
	addr, ok := breakpointAddr(payload)
	if !ok {
		return "E01"
	}
	if orig, present := s.breakpoints[addr]; present {
		s.proc.WriteWord(addr, orig)
		delete(s.breakpoints, addr)
	}
	return "OK"
}

func breakpointAddr(payload string) (uint32, bool) {
	// payload is "<type>,<addr>,<kind>"; type/kind are unused since this
	// model has only one breakpoint flavor (software).
	parts := strings.Split(payload, ",")
	if len(parts) < 2 {
		return 0, false
	}
	v, err := strconv.ParseUint(parts[1], 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func (s *Server) handleQuery(sess *session, q string) string {
	switch {
	case q == "HostInfo":
		return "triple:6e7975-7a69-676f;endian:little;ptrsize:4"
	case q == "ProcessInfo":
		return "pid:1;triple:6e7975-7a69-676f;endian:little;ptrsize:4"
	case q == "C":
		return fmt.Sprintf("QC%x", sess.cThread)
	case q == "fThreadInfo":
		return s.threadInfoList()
	case q == "sThreadInfo":
		return "l"
	case strings.HasPrefix(q, "ThreadStopInfo"):
		return "S05"
	case strings.HasPrefix(q, "RegisterInfo"):
		return s.registerInfo(q[len("RegisterInfo"):])
	case strings.HasPrefix(q, "Supported"):
		return "PacketSize=4000;qXfer:features:read-"
	default:
		return ""
	}
}

func (s *Server) threadInfoList() string {
	var b strings.Builder
	b.WriteByte('m')
	for id := 0; id < cpu.NumThreads; id++ {
		if id > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%x", id)
	}
	return b.String()
}

func (s *Server) registerInfo(idHex string) string {
	idHex = strings.TrimPrefix(idHex, ":")
	id, err := strconv.ParseInt(idHex, 16, 32)
	if err != nil || id < 0 || int(id) >= registerCount {
		return "E45"
	}
	name := scalarAlias(int(id))
	if int(id) < cpu.NumScalarRegs {
		if name == "" {
			name = fmt.Sprintf("s%d", id)
		}
		return fmt.Sprintf("name:%s;bitsize:32;offset:%d;encoding:uint;format:hex;set:Scalar Registers;", name, id*4)
	}
	vreg := int(id) - cpu.NumScalarRegs
	return fmt.Sprintf("name:v%d;bitsize:512;offset:%d;encoding:uint;format:vector-uint32;set:Vector Registers;",
		vreg, cpu.NumScalarRegs*4+vreg*64)
}

func scalarAlias(id int) string {
	switch id {
	case cpu.StackRegister:
		return "sp"
	case cpu.LinkRegister:
		return "ra"
	case 28:
		return "fp"
	case 31:
		return "pc"
	default:
		return ""
	}
}

func (s *Server) handleSet(sess *session, q string) string {
	if q == "StartNoAckMode" {
		sess.noAck = true
		return "OK"
	}
	return "OK"
}

func (s *Server) handleV(sess *session, payload string) string {
	switch {
	case payload == "Cont?":
		return "vCont;c;C;s;S"
	case strings.HasPrefix(payload, "Cont;"):
		return s.vCont(sess, payload[len("Cont;"):])
	default:
		return ""
	}
}

// vCont handles the one-action-for-the-focused-thread subset this stub
// supports: the action letter ahead of any ':<thread>' suffix selects
// continue vs. step on sess.cThread, matching the plain 'c'/'s' packets'
// semantics rather than independently scheduling multiple threads.
func (s *Server) vCont(sess *session, actions string) string {
	action := actions
	if i := strings.IndexByte(actions, ':'); i >= 0 {
		action = actions[:i]
	}
	if len(action) == 0 {
		return "E01"
	}
	switch action[:1] {
	case "s", "S":
		return s.step(sess)
	default:
		return s.cont(sess, 0)
	}
}

func writeLEHex32(b *strings.Builder, v uint32) {
	fmt.Fprintf(b, "%02x%02x%02x%02x", byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func readLEHex32(hex string, pos int) (uint32, bool) {
	if pos+8 > len(hex) {
		return 0, false
	}
	var bytes [4]byte
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseUint(hex[pos+i*2:pos+i*2+2], 16, 8)
		if err != nil {
			return 0, false
		}
		bytes[i] = byte(v)
	}
	return uint32(bytes[0]) | uint32(bytes[1])<<8 | uint32(bytes[2])<<16 | uint32(bytes[3])<<24, true
}

func cutOnce(s string, sep byte) (before, after string, ok bool) {
	i := strings.IndexByte(s, sep)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}
