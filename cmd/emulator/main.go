// Command emulator is the interpreter CLI described in spec.md §6.2: it
// loads a hex image, configures the machine, and runs it in one of three
// modes (normal, cosim, gdb).
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nyuzi-go/nyuzigo/internal/blockdev"
	"github.com/nyuzi-go/nyuzigo/internal/cosim"
	"github.com/nyuzi-go/nyuzigo/internal/cpu"
	"github.com/nyuzi-go/nyuzigo/internal/gdbstub"
	"github.com/nyuzi-go/nyuzigo/internal/hexload"
	"github.com/nyuzi-go/nyuzigo/internal/hostio"
	"github.com/nyuzi-go/nyuzigo/internal/hostio/ebitenhost"
	"github.com/nyuzi-go/nyuzigo/internal/hostio/headless"
	"github.com/nyuzi-go/nyuzigo/internal/machine"
	"github.com/nyuzi-go/nyuzigo/internal/ps2"
)

// config mirrors the flag set 1:1; kept separate from the flag.FlagSet so
// the rest of main reads a plain struct rather than package-level globals.
type config struct {
	trace      bool
	mode       string
	framebuf   string
	dump       string
	blockImage string
	threads    int
	memSize    uint64
	script     string
	image      string
}

// framesPerPresent bounds how often the -f host backend is given a frame:
// this model has no cycle-accurate video timing, so a frame is presented
// every framesPerPresent scheduling rounds (one round steps each running
// thread once).
const framesPerPresent = 200_000

func main() {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "emulator:", err)
		os.Exit(1)
	}

	proc := cpu.NewProcessor(int(cfg.memSize))
	proc.Trace = cfg.trace

	for id := 0; id < cfg.threads && id < cpu.NumThreads; id++ {
		proc.Thread(id).Enabled = true
	}

	f, err := os.Open(cfg.image)
	if err != nil {
		fmt.Fprintln(os.Stderr, "emulator:", err)
		os.Exit(1)
	}
	err = hexload.Load(f, proc.Memory)
	f.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "emulator:", err)
		os.Exit(1)
	}

	keys := &ps2.Queue{}
	var spi *blockdev.Device
	if cfg.blockImage != "" {
		spi, err = blockdev.Open(cfg.blockImage)
		if err != nil {
			fmt.Fprintln(os.Stderr, "emulator:", err)
			os.Exit(1)
		}
	}
	regs := machine.New(proc, os.Stdout, keys, spi)
	regs.Attach()

	var sink hostio.FrameSink = headless.New()
	var source hostio.InputSource = hostio.NullSource{}
	if cfg.framebuf != "" {
		w, h, err := parseWxH(cfg.framebuf)
		if err != nil {
			fmt.Fprintln(os.Stderr, "emulator:", err)
			os.Exit(1)
		}
		host := ebitenhost.New("nyuzigo", w, h)
		sink, source = host, host
		go func() {
			if err := host.Run(); err != nil {
				fmt.Fprintln(os.Stderr, "emulator: host window:", err)
			}
		}()
	}

	if cfg.script != "" {
		if err := runBootScript(proc, cfg.script); err != nil {
			fmt.Fprintln(os.Stderr, "emulator: script:", err)
			os.Exit(1)
		}
	}

	exitCode := 0
	switch cfg.mode {
	case "gdb":
		srv := gdbstub.NewServer(proc)
		if err := srv.ListenAndServe(":8000"); err != nil {
			fmt.Fprintln(os.Stderr, "emulator:", err)
			exitCode = 1
		}

	case "cosim":
		v := cosim.NewValidator(proc)
		if err := v.Run(os.Stdin); err != nil {
			fmt.Fprintln(os.Stderr, "emulator: cosim mismatch:", err)
			exitCode = 1
		}

	default: // "normal"
		runNormal(proc, sink, source, keys)
	}

	if cfg.dump != "" {
		if err := dumpMemory(proc, cfg.dump); err != nil {
			fmt.Fprintln(os.Stderr, "emulator:", err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func runNormal(proc *cpu.Processor, sink hostio.FrameSink, source hostio.InputSource, keys *ps2.Queue) {
	presentEvery := framesPerPresent
	instrSinceFrame := 0
	for {
		anyRunning := false
		for c := range proc.Cores {
			for _, t := range proc.Cores[c].Threads {
				if !t.Enabled || t.Halted {
					continue
				}
				anyRunning = true
				proc.Step(t)
			}
		}
		instrSinceFrame++
		if instrSinceFrame >= presentEvery {
			instrSinceFrame = 0
			source.PollEvents(keys)
			sink.Present(nil, 0, 0)
		}
		if !anyRunning {
			return
		}
	}
}

func parseArgs(args []string) (config, error) {
	fs := flag.NewFlagSet("emulator", flag.ContinueOnError)
	cfg := config{}
	fs.BoolVar(&cfg.trace, "v", false, "trace every executed instruction")
	fs.StringVar(&cfg.mode, "m", "normal", "run mode: normal|cosim|gdb")
	fs.StringVar(&cfg.framebuf, "f", "", "enable a framebuffer window, WxH")
	fs.StringVar(&cfg.dump, "d", "", "dump memory at exit: file,start-hex,length-hex")
	fs.StringVar(&cfg.blockImage, "b", "", "attach a block device image")
	fs.IntVar(&cfg.threads, "t", cpu.NumThreads, "total enabled threads (1..32)")
	memSizeHex := fs.String("c", "400000", "memory size, hex bytes")
	fs.StringVar(&cfg.script, "script", "", "run a Lua boot script before execution")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if fs.NArg() != 1 {
		return config{}, fmt.Errorf("usage: emulator [options] <hex-image>")
	}
	cfg.image = fs.Arg(0)

	switch cfg.mode {
	case "normal", "cosim", "gdb":
	default:
		return config{}, fmt.Errorf("invalid -m mode %q", cfg.mode)
	}
	if cfg.threads < 1 || cfg.threads > cpu.NumThreads {
		return config{}, fmt.Errorf("-t must be in 1..%d", cpu.NumThreads)
	}
	size, err := strconv.ParseUint(*memSizeHex, 16, 64)
	if err != nil {
		return config{}, fmt.Errorf("invalid -c memory size: %w", err)
	}
	cfg.memSize = size
	return cfg, nil
}

func parseWxH(s string) (int, int, error) {
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid -f WxH %q", s)
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid -f WxH %q", s)
	}
	return w, h, nil
}

func dumpMemory(proc *cpu.Processor, spec string) error {
	parts := strings.SplitN(spec, ",", 3)
	if len(parts) != 3 {
		return fmt.Errorf("invalid -d spec %q", spec)
	}
	start, err := strconv.ParseUint(parts[1], 16, 32)
	if err != nil {
		return fmt.Errorf("invalid -d start %q: %w", parts[1], err)
	}
	length, err := strconv.ParseUint(parts[2], 16, 32)
	if err != nil {
		return fmt.Errorf("invalid -d length %q: %w", parts[2], err)
	}
	f, err := os.Create(parts[0])
	if err != nil {
		return err
	}
	defer f.Close()
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = proc.ReadByte(uint32(start) + uint32(i))
	}
	_, err = f.Write(buf)
	return err
}

// runBootScript runs a Lua script once before execution starts, exposing
// peek32/poke32 over physical memory so demo firmware can be seeded or
// inspected from a host-side script rather than baked into the hex image.
func runBootScript(proc *cpu.Processor, path string) error {
	L := lua.NewState()
	defer L.Close()

	L.SetGlobal("poke32", L.NewFunction(func(L *lua.LState) int {
		addr := uint32(L.CheckInt64(1))
		val := uint32(L.CheckInt64(2))
		proc.WriteWord(addr, val)
		return 0
	}))
	L.SetGlobal("peek32", L.NewFunction(func(L *lua.LState) int {
		addr := uint32(L.CheckInt64(1))
		L.Push(lua.LNumber(proc.ReadWord(addr)))
		return 1
	}))

	return L.DoFile(path)
}
