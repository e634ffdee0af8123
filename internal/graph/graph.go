package graph

import (
	"errors"
	"fmt"
	"math/rand"

	"viralsim/internal/model"
)

// Config describes a population graph. LayoutSeed drives a private random
// stream used only for topology and layout, so identical parameters always
// rebuild the identical graph. Rand supplies the per-step propagation draws.
type Config struct {
	Nodes                 int
	ConnectionProbability float64
	LayoutSeed            int64
	Rand                  *rand.Rand
}

// Graph is a fixed-topology population graph with a mutable per-node phase
// array. Topology and layout never change after construction.
type Graph struct {
	rng    *rand.Rand
	edges  [][2]int
	layout []model.NodePosition
	phases []model.Phase
}

// Retention probabilities for the dominant-phase propagation rule.
const (
	latentRetention   = 0.7
	viralRetention    = 0.8
	decayingRetention = 0.7
)

// New builds an Erdős–Rényi graph and its force-directed layout. All nodes
// start in the Latent phase.
func New(cfg Config) (*Graph, error) {
	if cfg.Nodes < 1 {
		return nil, fmt.Errorf("node count must be >= 1: %d", cfg.Nodes)
	}
	if cfg.ConnectionProbability < 0 || cfg.ConnectionProbability > 1 {
		return nil, fmt.Errorf("connection probability out of [0,1]: %v", cfg.ConnectionProbability)
	}
	if cfg.Rand == nil {
		return nil, errors.New("rng is required")
	}

	build := rand.New(rand.NewSource(cfg.LayoutSeed))
	edges := erdosRenyi(build, cfg.Nodes, cfg.ConnectionProbability)
	layout := springLayout(build, cfg.Nodes, edges)

	return &Graph{
		rng:    cfg.Rand,
		edges:  edges,
		layout: layout,
		phases: make([]model.Phase, cfg.Nodes),
	}, nil
}

func erdosRenyi(rng *rand.Rand, n int, p float64) [][2]int {
	edges := make([][2]int, 0)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < p {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return edges
}

// Propagate overwrites every node's phase from the population-level dominant
// phase: each node independently keeps the dominant phase with its retention
// probability, otherwise it defects uniformly to one of the other two phases.
func (g *Graph) Propagate(dominant model.Phase) {
	retention := latentRetention
	keep := model.PhaseLatent
	switch dominant {
	case model.PhaseViral:
		retention = viralRetention
		keep = model.PhaseViral
	case model.PhaseDecaying:
		retention = decayingRetention
		keep = model.PhaseDecaying
	}

	for i := range g.phases {
		if g.rng.Float64() < retention {
			g.phases[i] = keep
			continue
		}
		g.phases[i] = defect(g.rng, keep)
	}
}

// defect picks uniformly between the two phases other than keep.
func defect(rng *rand.Rand, keep model.Phase) model.Phase {
	pick := rng.Intn(model.PhaseCount - 1)
	for p := model.Phase(0); p < model.PhaseCount; p++ {
		if p == keep {
			continue
		}
		if pick == 0 {
			return p
		}
		pick--
	}
	return model.PhaseLatent
}

func (g *Graph) NodeCount() int {
	return len(g.phases)
}

func (g *Graph) Edges() [][2]int {
	return append([][2]int(nil), g.edges...)
}

func (g *Graph) Layout() []model.NodePosition {
	return append([]model.NodePosition(nil), g.layout...)
}

func (g *Graph) Phases() []model.Phase {
	return append([]model.Phase(nil), g.phases...)
}

// NodeColors returns the per-node display color derived from each node's
// current phase.
func (g *Graph) NodeColors() []string {
	colors := make([]string, len(g.phases))
	for i, p := range g.phases {
		colors[i] = p.Color()
	}
	return colors
}

// Snapshot captures the renderable state of the graph. Version fields are
// stamped by the persistence layer.
func (g *Graph) Snapshot() model.GraphSnapshot {
	return model.GraphSnapshot{
		Nodes:  len(g.phases),
		Edges:  g.Edges(),
		Layout: g.Layout(),
		Phases: g.Phases(),
		Colors: g.NodeColors(),
	}
}
