// Package ps2 translates host key events into a PS/2 set-1 scancode
// stream and queues them for the keyboard MMIO registers to drain, per
// spec.md §4.13/§6.6.
package ps2

// queueSize is the ring buffer's fixed capacity.
const queueSize = 64

// Queue is a 64-entry ring buffer of pending scancode bytes.
type Queue struct {
	buf        [queueSize]byte
	head, tail int
	count      int

	lastKey  Key
	lastDown bool
}

// Key identifies a host key independent of its scancode encoding.
type Key int

// entry describes one key's PS/2 set-1 encoding: an optional multi-byte
// prefix (0xe0 for most extended keys, 0xe1 for Pause) and its base code.
type entry struct {
	prefix byte // 0 if none
	code   byte
}

// table is the static scan-table mapping Key to its PS/2 set-1 encoding.
// It covers the common alphanumeric range plus a representative set of
// extended keys; unlisted keys are silently ignored by Press/Release.
var table = map[Key]entry{
	KeyA: {0, 0x1e}, KeyB: {0, 0x30}, KeyC: {0, 0x2e}, KeyD: {0, 0x20},
	KeyE: {0, 0x12}, KeyF: {0, 0x21}, KeyG: {0, 0x22}, KeyH: {0, 0x23},
	KeyI: {0, 0x17}, KeyJ: {0, 0x24}, KeyK: {0, 0x25}, KeyL: {0, 0x26},
	KeyM: {0, 0x32}, KeyN: {0, 0x31}, KeyO: {0, 0x18}, KeyP: {0, 0x19},
	KeyQ: {0, 0x10}, KeyR: {0, 0x13}, KeyS: {0, 0x1f}, KeyT: {0, 0x14},
	KeyU: {0, 0x16}, KeyV: {0, 0x2f}, KeyW: {0, 0x11}, KeyX: {0, 0x2d},
	KeyY: {0, 0x15}, KeyZ: {0, 0x2c},

	Key0: {0, 0x0b}, Key1: {0, 0x02}, Key2: {0, 0x03}, Key3: {0, 0x04},
	Key4: {0, 0x05}, Key5: {0, 0x06}, Key6: {0, 0x07}, Key7: {0, 0x08},
	Key8: {0, 0x09}, Key9: {0, 0x0a},

	KeyEnter: {0, 0x1c}, KeySpace: {0, 0x39}, KeyEscape: {0, 0x01},
	KeyBackspace: {0, 0x0e}, KeyTab: {0, 0x0f}, KeyLeftShift: {0, 0x2a},
	KeyLeftCtrl: {0, 0x1d}, KeyLeftAlt: {0, 0x38},

	KeyUp: {0xe0, 0x48}, KeyDown: {0xe0, 0x50}, KeyLeft: {0xe0, 0x4b},
	KeyRight: {0xe0, 0x4d}, KeyInsert: {0xe0, 0x52}, KeyDelete: {0xe0, 0x53},
	KeyHome: {0xe0, 0x47}, KeyEnd: {0xe0, 0x4f}, KeyRightCtrl: {0xe0, 0x1d},
	KeyRightAlt: {0xe0, 0x38},

	KeyPause: {0xe1, 0x1d}, // emitted as 0xe1 0x1d only; the 0x45 byte is not produced
}

// Key constants for the static scan table above.
const (
	KeyA Key = iota
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyEnter
	KeySpace
	KeyEscape
	KeyBackspace
	KeyTab
	KeyLeftShift
	KeyLeftCtrl
	KeyLeftAlt
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyInsert
	KeyDelete
	KeyHome
	KeyEnd
	KeyRightCtrl
	KeyRightAlt
	KeyPause
)

// Press translates a key-down event and enqueues its scancode bytes.
// Host key-repeat is suppressed per spec.md §6.6: a down event for the
// same key as the last recorded down event, without an intervening
// release, is dropped.
func (q *Queue) Press(k Key) {
	if q.lastDown && q.lastKey == k {
		return
	}
	q.lastKey, q.lastDown = k, true
	q.emit(k, false)
}

// Release translates a key-up event and enqueues its release sequence
// (base byte with bit 0x80 set, prefix preserved ahead of it).
func (q *Queue) Release(k Key) {
	if q.lastKey == k {
		q.lastDown = false
	}
	q.emit(k, true)
}

func (q *Queue) emit(k Key, release bool) {
	e, ok := table[k]
	if !ok {
		return
	}
	if e.prefix != 0 {
		q.push(e.prefix)
	}
	code := e.code
	if release {
		code |= 0x80
	}
	q.push(code)
}

func (q *Queue) push(b byte) {
	if q.count == queueSize {
		return // drop on overflow; host is expected to drain promptly
	}
	q.buf[q.tail] = b
	q.tail = (q.tail + 1) % queueSize
	q.count++
}

// Empty reports whether the queue has no pending scancode bytes, for the
// keyboard-status MMIO register.
func (q *Queue) Empty() bool { return q.count == 0 }

// Dequeue pops and returns the next pending scancode byte, or 0 if empty.
func (q *Queue) Dequeue() byte {
	if q.count == 0 {
		return 0
	}
	b := q.buf[q.head]
	q.head = (q.head + 1) % queueSize
	q.count--
	return b
}
