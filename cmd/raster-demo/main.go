// Command raster-demo drives librender end-to-end, headless: it submits a
// spinning, lit cube through the tile-based pipeline for a fixed number of
// frames and optionally writes every Nth frame out as a PPM image, the way
// the original firmware's cube demo drove the software rasterizer without
// any display hardware behind it.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nyuzi-go/nyuzigo/internal/fiber"
	"github.com/nyuzi-go/nyuzigo/internal/hostio"
	"github.com/nyuzi-go/nyuzigo/internal/hostio/ebitenhost"
	"github.com/nyuzi-go/nyuzigo/internal/hostio/headless"
	"github.com/nyuzi-go/nyuzigo/internal/render"
	"github.com/nyuzi-go/nyuzigo/internal/render/shaders"
)

type config struct {
	width, height int
	frames        int
	every         int
	outDir        string
	shaderName    string
	live          bool
}

func main() {
	cfg := parseArgs()

	color := render.NewSurface(cfg.width, cfg.height, render.FormatRGBA8888)
	depth := render.NewSurface(cfg.width, cfg.height, render.FormatFloatDepth)
	target := &render.RenderTarget{Color: color, Depth: depth}

	rc := render.NewRenderContext(target, 8*1024*1024)
	rc.SetClearColor(0.05, 0.05, 0.08)

	shader, texture, err := pickShader(cfg.shaderName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "raster-demo:", err)
		os.Exit(1)
	}

	var sink hostio.FrameSink = headless.New()
	var source hostio.InputSource = hostio.NullSource{}
	var host *ebitenhost.Host
	if cfg.live {
		host = ebitenhost.New("raster-demo", cfg.width, cfg.height)
		sink, source = host, host
		go func() {
			if err := host.Run(); err != nil {
				fmt.Fprintln(os.Stderr, "raster-demo: host window:", err)
			}
		}()
	}

	var saved [][]byte
	if cfg.outDir != "" {
		if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "raster-demo:", err)
			os.Exit(1)
		}
	}

	view := render.LookAt(render.Vec3{X: 0, Y: 1.5, Z: 4}, render.Vec3{}, render.Vec3{X: 0, Y: 1, Z: 0})
	proj := render.Perspective(float32(cfg.width), float32(cfg.height))
	lightDir := render.Vec3{X: -0.4, Y: 0.8, Z: 0.5}
	lightColor := render.Vec3{X: 1, Y: 1, Z: 1}

	for frame := 0; frame < cfg.frames; frame++ {
		angle := float32(frame) * 0.05
		model := render.Rotation(angle, 0.4, 1, 0.2)
		mvp := proj.Mul(view).Mul(model)

		uniforms := shaders.EncodeGouraudUniforms(shaders.GouraudUniforms{
			MVP:        mvp,
			Model:      model,
			LightDir:   lightDir,
			LightColor: lightColor,
		})

		rc.Submit(&render.DrawState{
			Attribs:    cubeVertices,
			Indices:    cubeIndices,
			Uniforms:   uniforms,
			Shader:     shader,
			Textures:   [4]*render.Texture{texture},
			DepthTest:  true,
			Cull:       render.CullCW,
			ClearColor: true,
		})
		if err := rc.Finish(); err != nil {
			fmt.Fprintln(os.Stderr, "raster-demo: finish:", err)
			os.Exit(1)
		}

		source.PollEvents(nil)
		if err := sink.Present(color.Pixels(), cfg.width, cfg.height); err != nil {
			fmt.Fprintln(os.Stderr, "raster-demo: present:", err)
			os.Exit(1)
		}

		if cfg.outDir != "" && cfg.every > 0 && frame%cfg.every == 0 {
			saved = append(saved, encodePPM(color))
		}
	}

	if len(saved) > 0 {
		writeFramesParallel(cfg.outDir, saved)
	}
}

// writeFramesParallel uses the fiber data-parallel primitive to flush the
// captured frames to disk concurrently; each index writes an independent
// file, so there is no cross-index state for ParallelExecute's goroutines to
// race over.
func writeFramesParallel(dir string, frames [][]byte) {
	pool := fiber.NewPool(0)
	type ctx struct {
		dir    string
		frames [][]byte
	}
	pool.ParallelExecute(ctx{dir: dir, frames: frames}, len(frames), func(c any, i int) {
		cc := c.(ctx)
		path := filepath.Join(cc.dir, fmt.Sprintf("frame-%04d.ppm", i))
		if err := os.WriteFile(path, cc.frames[i], 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "raster-demo: write", path, err)
		}
	})
}

func pickShader(name string) (*render.Shader, *render.Texture, error) {
	switch name {
	case "gouraud":
		return &shaders.GouraudShader, nil, nil
	case "phong":
		return &shaders.PhongShader, nil, nil
	case "texture":
		tex := render.NewTexture(true)
		tex.SetMipSurface(0, render.WrapSurface(checkerTexels(64), 64, 64, render.FormatRGBA8888))
		return &shaders.TextureShader, tex, nil
	default:
		return nil, nil, fmt.Errorf("unknown shader %q (want gouraud|phong|texture)", name)
	}
}

// encodePPM converts a FormatRGBA8888 color surface into a binary PPM
// (P6) image, dropping alpha; PPM needs no external codec, keeping this
// demo's only non-librender dependency the standard library.
func encodePPM(s *render.Surface) []byte {
	w, h := s.Width, s.Height
	header := fmt.Sprintf("P6\n%d %d\n255\n", w, h)
	pixels := s.Pixels()
	stride := s.Stride()
	bpp := s.BytesPerPixel()
	buf := make([]byte, 0, len(header)+w*h*3)
	buf = append(buf, header...)
	for y := 0; y < h; y++ {
		row := pixels[y*stride:]
		for x := 0; x < w; x++ {
			off := x * bpp
			buf = append(buf, row[off], row[off+1], row[off+2])
		}
	}
	return buf
}

func parseArgs() config {
	var cfg config
	flag.IntVar(&cfg.width, "w", 256, "frame width, must be a multiple of 64")
	flag.IntVar(&cfg.height, "h", 256, "frame height, must be a multiple of 64")
	flag.IntVar(&cfg.frames, "frames", 120, "number of frames to render")
	flag.IntVar(&cfg.every, "every", 10, "write every Nth frame when -out is set (0 disables)")
	flag.StringVar(&cfg.outDir, "out", "", "directory to write PPM frames into")
	flag.StringVar(&cfg.shaderName, "shader", "gouraud", "shader: gouraud|phong|texture")
	flag.BoolVar(&cfg.live, "live", false, "open a live window instead of running headless")
	flag.Parse()

	if cfg.width%64 != 0 || cfg.height%64 != 0 {
		fmt.Fprintln(os.Stderr, "raster-demo: -w/-h must be multiples of 64")
		os.Exit(1)
	}
	return cfg
}
