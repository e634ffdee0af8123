package graph

import (
	"math"
	"math/rand"

	"viralsim/internal/model"
)

const (
	layoutIterations = 50
	layoutSpacing    = 0.5
	minSeparation    = 1e-9
)

// springLayout runs a Fruchterman-Reingold relaxation from random starting
// positions and rescales the result to [-1,1] per axis. Pure function of
// its rng, so a seeded stream reproduces the layout exactly.
func springLayout(rng *rand.Rand, n int, edges [][2]int) []model.NodePosition {
	pos := make([]model.NodePosition, n)
	for i := range pos {
		pos[i] = model.NodePosition{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1}
	}
	if n == 1 {
		pos[0] = model.NodePosition{}
		return pos
	}

	k := layoutSpacing
	temperature := 0.1
	cooling := temperature / float64(layoutIterations+1)
	disp := make([]model.NodePosition, n)

	for iter := 0; iter < layoutIterations; iter++ {
		for i := range disp {
			disp[i] = model.NodePosition{}
		}

		// Pairwise repulsion.
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := pos[i].X - pos[j].X
				dy := pos[i].Y - pos[j].Y
				dist := math.Hypot(dx, dy)
				if dist < minSeparation {
					dist = minSeparation
				}
				force := k * k / dist
				disp[i].X += dx / dist * force
				disp[i].Y += dy / dist * force
				disp[j].X -= dx / dist * force
				disp[j].Y -= dy / dist * force
			}
		}

		// Attraction along edges.
		for _, e := range edges {
			i, j := e[0], e[1]
			dx := pos[i].X - pos[j].X
			dy := pos[i].Y - pos[j].Y
			dist := math.Hypot(dx, dy)
			if dist < minSeparation {
				dist = minSeparation
			}
			force := dist * dist / k
			disp[i].X -= dx / dist * force
			disp[i].Y -= dy / dist * force
			disp[j].X += dx / dist * force
			disp[j].Y += dy / dist * force
		}

		// Displace, capped by the cooling temperature.
		for i := range pos {
			d := math.Hypot(disp[i].X, disp[i].Y)
			if d < minSeparation {
				continue
			}
			limited := math.Min(d, temperature)
			pos[i].X += disp[i].X / d * limited
			pos[i].Y += disp[i].Y / d * limited
		}
		temperature -= cooling
	}

	rescale(pos)
	return pos
}

func rescale(pos []model.NodePosition) {
	var cx, cy float64
	for _, p := range pos {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pos))
	cy /= float64(len(pos))

	maxAbs := 0.0
	for i := range pos {
		pos[i].X -= cx
		pos[i].Y -= cy
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(pos[i].X), math.Abs(pos[i].Y)))
	}
	if maxAbs < minSeparation {
		return
	}
	for i := range pos {
		pos[i].X /= maxAbs
		pos[i].Y /= maxAbs
	}
}
