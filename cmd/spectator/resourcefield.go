package main

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// resourceField paints a cosmetic OpenSimplex noise backdrop behind the
// scene graph, grounded on the teacher's systems/resource_field.go use of
// opensimplex.New(seed) for its capacity grid. Unlike internal/demo's
// TerrainGrid (which uses the same library to deterministically decide
// where food entities spawn, and is read by the simulation itself), this
// field is drawn only, never sampled by sync.Game or wecs: a different
// seed here would change the screen, never the simulation outcome.
type resourceField struct {
	noise opensimplex.Noise
	scale float64
}

func newResourceField(seed int64, scale float64) *resourceField {
	return &resourceField{
		noise: opensimplex.New(seed),
		scale: scale,
	}
}

func (f *resourceField) draw(width, height int32) {
	const step = 24
	for y := int32(0); y < height; y += step {
		for x := int32(0); x < width; x += step {
			n := f.noise.Eval2(float64(x)*f.scale*0.1, float64(y)*f.scale*0.1)
			shade := uint8(200 + n*40)
			col := rl.Color{R: 235, G: shade, B: 235, A: 255}
			rl.DrawRectangle(x, y, step, step, col)
		}
	}
}
