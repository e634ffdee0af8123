package engine

import (
	"math/rand"
	"time"

	"viralsim/internal/chain"
	"viralsim/internal/events"
	"viralsim/internal/graph"
	"viralsim/internal/model"
)

// Config describes one simulation. Seed 0 falls back to time-based seeding
// so unseeded runs vary; any explicit seed makes the whole run reproducible.
// LayoutSeed only drives graph topology/layout and is independent of Seed.
type Config struct {
	Matrix                [][]float64
	BaseRate              float64
	InitialPhase          model.Phase
	Nodes                 int
	ConnectionProbability float64
	LayoutSeed            int64
	Seed                  int64
}

// Per-consumer offsets applied to the run seed, one independent stream per
// stochastic component.
const (
	chainSeedOffset     = 1
	samplerSeedOffset   = 2
	propagateSeedOffset = 3
)

// Engine couples the phase chain with the event sampler and propagates the
// resulting phase onto the population graph, accumulating the per-step
// histories. All state is exclusively owned; stepping is synchronous.
type Engine struct {
	chain   *chain.Chain
	graph   *graph.Graph
	sampler events.Generator

	seed         int64
	initialPhase model.Phase
	nodes        int
	connProb     float64
	layoutSeed   int64
	baseRate     float64

	timeIndex  int
	total      int
	times      []int
	events     []int
	phases     []model.Phase
	cumulative []int
}

// ResetOptions selects what a reset replaces. A nil Matrix keeps the current
// matrix; a nil BaseRate keeps the current base rate.
type ResetOptions struct {
	Matrix   [][]float64
	BaseRate *float64
}

func New(cfg Config) (*Engine, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	baseRate := cfg.BaseRate
	if baseRate < 0 {
		baseRate = 0
	}

	ch, err := chain.New(cfg.Matrix, cfg.InitialPhase, rand.New(rand.NewSource(seed+chainSeedOffset)))
	if err != nil {
		return nil, err
	}
	g, err := graph.New(graph.Config{
		Nodes:                 cfg.Nodes,
		ConnectionProbability: cfg.ConnectionProbability,
		LayoutSeed:            cfg.LayoutSeed,
		Rand:                  rand.New(rand.NewSource(seed + propagateSeedOffset)),
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		chain:        ch,
		graph:        g,
		sampler:      events.Generator{Rand: rand.New(rand.NewSource(seed + samplerSeedOffset))},
		seed:         seed,
		initialPhase: cfg.InitialPhase,
		nodes:        cfg.Nodes,
		connProb:     cfg.ConnectionProbability,
		layoutSeed:   cfg.LayoutSeed,
		baseRate:     baseRate,
		times:        []int{0},
		phases:       []model.Phase{cfg.InitialPhase},
	}, nil
}

// Step executes one discrete time unit: sample events at the current phase's
// effective rate, advance the chain, propagate the new phase onto the
// population, and append to every history. Always succeeds.
func (e *Engine) Step() model.StepSnapshot {
	current := e.chain.Current()
	multiplier := events.RateMultiplier(current)
	effectiveRate := e.baseRate * multiplier
	count := e.sampler.Sample(effectiveRate, 1)
	e.total += count

	next := e.chain.Next()
	e.graph.Propagate(next)

	e.timeIndex++
	e.times = append(e.times, e.timeIndex)
	e.events = append(e.events, count)
	e.phases = append(e.phases, next)
	e.cumulative = append(e.cumulative, e.total)

	return model.StepSnapshot{
		TimeIndex:        e.timeIndex,
		Phase:            next,
		PhaseName:        next.String(),
		Events:           count,
		CumulativeEvents: e.total,
		EffectiveRate:    effectiveRate,
		Multiplier:       multiplier,
	}
}

// RunSteps executes n steps strictly sequentially and returns their
// snapshots. Each step depends on the mutated state of the previous one.
func (e *Engine) RunSteps(n int) []model.StepSnapshot {
	if n <= 0 {
		return nil
	}
	out := make([]model.StepSnapshot, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, e.Step())
	}
	return out
}

// Metrics aggregates the run so far. Before the first step it returns the
// zero/default record.
func (e *Engine) Metrics() model.RunMetrics {
	if len(e.events) == 0 {
		return model.RunMetrics{CurrentPhaseName: e.chain.Current().String()}
	}

	sum := 0
	max := 0
	for _, count := range e.events {
		sum += count
		if count > max {
			max = count
		}
	}
	viral := 0
	for _, p := range e.phases {
		if p == model.PhaseViral {
			viral++
		}
	}

	return model.RunMetrics{
		TotalEvents:       e.total,
		MeanEventsPerStep: float64(sum) / float64(len(e.events)),
		MaxEventsPerStep:  max,
		StepsInViralPhase: viral,
		CurrentPhaseName:  e.chain.Current().String(),
	}
}

// PhaseBreakdown derives the per-phase indicator sequences aligned to the
// time-index history.
func (e *Engine) PhaseBreakdown() model.PhaseBreakdown {
	breakdown := model.PhaseBreakdown{
		Latent:   make([]int, len(e.phases)),
		Viral:    make([]int, len(e.phases)),
		Decaying: make([]int, len(e.phases)),
	}
	for i, p := range e.phases {
		switch p {
		case model.PhaseViral:
			breakdown.Viral[i] = 1
		case model.PhaseDecaying:
			breakdown.Decaying[i] = 1
		default:
			breakdown.Latent[i] = 1
		}
	}
	return breakdown
}

// Reset returns the engine to its initial state: optional new matrix
// (re-validated), optional new base rate, a freshly built graph with the
// same node count and layout seed (identical topology, phases reverted),
// and histories truncated to their single initial entries.
func (e *Engine) Reset(opts ResetOptions) error {
	if opts.Matrix != nil {
		ch, err := chain.New(opts.Matrix, e.initialPhase, rand.New(rand.NewSource(e.seed+chainSeedOffset)))
		if err != nil {
			return err
		}
		e.chain = ch
	} else {
		e.chain.Reset(e.initialPhase)
	}

	g, err := graph.New(graph.Config{
		Nodes:                 e.nodes,
		ConnectionProbability: e.connProb,
		LayoutSeed:            e.layoutSeed,
		Rand:                  rand.New(rand.NewSource(e.seed + propagateSeedOffset)),
	})
	if err != nil {
		return err
	}
	e.graph = g

	if opts.BaseRate != nil {
		baseRate := *opts.BaseRate
		if baseRate < 0 {
			baseRate = 0
		}
		e.baseRate = baseRate
	}

	e.timeIndex = 0
	e.total = 0
	e.times = []int{0}
	e.events = nil
	e.phases = []model.Phase{e.initialPhase}
	e.cumulative = nil
	return nil
}

// Stepped reports whether at least one step has executed, the Idle/Running
// distinction presentation logic keys on.
func (e *Engine) Stepped() bool {
	return e.timeIndex > 0
}

func (e *Engine) CurrentPhase() model.Phase {
	return e.chain.Current()
}

func (e *Engine) Matrix() [][]float64 {
	return e.chain.Matrix()
}

func (e *Engine) BaseRate() float64 {
	return e.baseRate
}

func (e *Engine) Seed() int64 {
	return e.seed
}

func (e *Engine) CumulativeEvents() int {
	return e.total
}

func (e *Engine) Times() []int {
	return append([]int(nil), e.times...)
}

func (e *Engine) EventHistory() []int {
	return append([]int(nil), e.events...)
}

func (e *Engine) PhaseHistory() []model.Phase {
	return append([]model.Phase(nil), e.phases...)
}

func (e *Engine) CumulativeHistory() []int {
	return append([]int(nil), e.cumulative...)
}

func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Series bundles the four parallel histories. Version fields are stamped by
// the persistence layer.
func (e *Engine) Series() model.RunSeries {
	return model.RunSeries{
		Times:      e.Times(),
		Events:     e.EventHistory(),
		Phases:     e.PhaseHistory(),
		Cumulative: e.CumulativeHistory(),
	}
}
