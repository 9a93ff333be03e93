//go:build js && wasm
// +build js,wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"syscall/js"

	"github.com/MeKo-Tech/wrapnoise/internal/noise"
	"github.com/MeKo-Tech/wrapnoise/internal/pipeline"
	"github.com/MeKo-Tech/wrapnoise/internal/render"
	"github.com/MeKo-Tech/wrapnoise/internal/tile"
)

// InitRequest configures the noise field from JS.
type InitRequest struct {
	Seed      string `json:"seed"`
	Periods   []int  `json:"periods"`
	Dimension int    `json:"dimension"`
	Octaves   int    `json:"octaves"`
	Unbias    bool   `json:"unbias"`
	TileSize  int    `json:"tileSize"`
}

// TileRequest asks for one rendered tile.
type TileRequest struct {
	Zoom  int  `json:"zoom"`
	X     int  `json:"x"`
	Y     int  `json:"y"`
	HiDPI bool `json:"hidpi"`
}

var (
	factory *noise.Factory
	tiles   map[bool]*pipeline.Generator
)

func errorResult(format string, args ...any) map[string]any {
	return map[string]any{"error": fmt.Sprintf(format, args...)}
}

// initNoise builds the factory; it must run before sampling.
func initNoise(this js.Value, args []js.Value) any {
	req := InitRequest{Dimension: 2, Octaves: 6, Periods: []int{5, 5}, Seed: "seed", Unbias: true, TileSize: 256}
	if len(args) > 0 && args[0].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
			return errorResult("failed to parse request: %v", err)
		}
	}

	cfg := noise.Config{Dimension: req.Dimension, Octaves: req.Octaves, Periods: req.Periods, Unbias: req.Unbias}
	if req.Seed != "" {
		seed := noise.SeedFromString(req.Seed)
		cfg.Seed = &seed
	}
	f, err := noise.New(cfg)
	if err != nil {
		return errorResult("%v", err)
	}
	tiles = make(map[bool]*pipeline.Generator)
	if f.Dimension() == 2 {
		world := tile.NewProjection(f.Periods(), req.TileSize).Periods
		if err := f.Warm([]float64{0, 0}, world[:]); err != nil {
			return errorResult("%v", err)
		}
		for _, hidpi := range []bool{false, true} {
			size := req.TileSize
			if hidpi {
				size *= 2
			}
			// Tiles are only rendered to memory; the directory is never written.
			gen, err := pipeline.NewGenerator(f, f.Periods(), "tiles", size, nil, pipeline.GeneratorOptions{
				Ramp:           render.RampFor(req.Unbias),
				PNGCompression: png.DefaultCompression,
			})
			if err != nil {
				return errorResult("%v", err)
			}
			tiles[hidpi] = gen
		}
	}
	factory = f
	return map[string]any{"status": "ready", "dimension": f.Dimension(), "gradients": f.Gradients()}
}

// sample takes one number per dimension and returns the noise value.
func sample(this js.Value, args []js.Value) any {
	if factory == nil {
		return errorResult("wrapnoiseInit has not been called")
	}
	point := make([]float64, len(args))
	for i, a := range args {
		point[i] = a.Float()
	}
	v, err := factory.Sample(point...)
	if err != nil {
		return errorResult("%v", err)
	}
	return v
}

// renderTile returns a PNG as a Uint8Array.
func renderTile(this js.Value, args []js.Value) any {
	if factory == nil || len(tiles) == 0 {
		return errorResult("no two-dimensional field initialised")
	}
	if len(args) < 1 {
		return errorResult("missing arguments")
	}
	var req TileRequest
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return errorResult("failed to parse request: %v", err)
	}
	c := tile.NewCoords(uint32(req.Zoom), uint32(req.X), uint32(req.Y))
	if !c.Valid() {
		return errorResult("invalid tile %s", c)
	}

	data, err := tiles[req.HiDPI].RenderPNG(context.Background(), c)
	if err != nil {
		return errorResult("%v", err)
	}
	out := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(out, data)
	return out
}

func main() {
	c := make(chan struct{})

	js.Global().Set("wrapnoiseInit", js.FuncOf(initNoise))
	js.Global().Set("wrapnoiseSample", js.FuncOf(sample))
	js.Global().Set("wrapnoiseRenderTile", js.FuncOf(renderTile))

	fmt.Println("wrapnoise WASM module loaded")
	<-c
}
