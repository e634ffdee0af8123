package events

import (
	"math/rand"

	"viralsim/internal/model"
)

const (
	latentMultiplier   = 1.0
	viralMultiplier    = 10.0
	decayingMultiplier = 0.5
)

// RateMultiplier maps a phase to the factor applied to the base engagement
// rate. Values outside the enumeration map to 1.0.
func RateMultiplier(p model.Phase) float64 {
	switch p {
	case model.PhaseViral:
		return viralMultiplier
	case model.PhaseDecaying:
		return decayingMultiplier
	default:
		return latentMultiplier
	}
}

// Generator draws engagement-event counts for one time step. It holds no
// state beyond its random source.
type Generator struct {
	Rand *rand.Rand
}

// Sample returns one Poisson draw with mean baseRate*timeStep. Negative
// base rates clamp to zero instead of failing.
func (g Generator) Sample(baseRate, timeStep float64) int {
	if baseRate < 0 {
		baseRate = 0
	}
	return poisson(g.Rand, baseRate*timeStep)
}

// poisson counts unit-rate exponential interarrivals that fit within mean.
// Exact for any mean; no normal approximation.
func poisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	count := 0
	for elapsed := rng.ExpFloat64(); elapsed <= mean; elapsed += rng.ExpFloat64() {
		count++
	}
	return count
}
