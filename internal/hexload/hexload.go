// Package hexload reads the hex image format described in spec.md §6.3:
// one 32-bit word per line, big-endian hex text, loaded byte-swapped so
// each word appears little-endian in physical memory.
package hexload

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Load reads one big-endian hex word per line from r and writes it
// byte-swapped (little-endian) into mem starting at offset 0. It returns
// an error if the image does not fit in len(mem).
func Load(r io.Reader, mem []byte) error {
	scanner := bufio.NewScanner(r)
	addr := 0
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		w, err := strconv.ParseUint(text, 16, 32)
		if err != nil {
			return fmt.Errorf("hexload: line %d: %w", line, err)
		}
		if addr+4 > len(mem) {
			return fmt.Errorf("hexload: image exceeds configured memory size (%d bytes)", len(mem))
		}
		v := uint32(w)
		mem[addr] = byte(v)
		mem[addr+1] = byte(v >> 8)
		mem[addr+2] = byte(v >> 16)
		mem[addr+3] = byte(v >> 24)
		addr += 4
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("hexload: %w", err)
	}
	return nil
}
