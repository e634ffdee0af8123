package chain

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"viralsim/internal/model"
)

// ErrInvalidMatrix reports a transition matrix that cannot drive the chain:
// wrong shape, negative or non-finite entries, or a row whose sum is not
// strictly positive.
var ErrInvalidMatrix = errors.New("invalid transition matrix")

const rowSumTolerance = 1e-9

// Chain is a discrete-time finite-state Markov chain over content phases.
// It owns the current phase, the normalized transition matrix, and the
// append-only phase history starting with the initial phase.
type Chain struct {
	rng     *rand.Rand
	matrix  [][]float64
	current model.Phase
	history []model.Phase
}

// New validates and normalizes matrix and returns a chain positioned at
// initial. Rows that deviate from sum-to-1 beyond floating tolerance are
// normalized in place of being rejected; degenerate rows fail with
// ErrInvalidMatrix.
func New(matrix [][]float64, initial model.Phase, rng *rand.Rand) (*Chain, error) {
	if rng == nil {
		return nil, errors.New("rng is required")
	}
	if !initial.Valid() {
		return nil, fmt.Errorf("initial phase out of range: %d", initial)
	}
	normalized, err := normalizeMatrix(matrix)
	if err != nil {
		return nil, err
	}
	return &Chain{
		rng:     rng,
		matrix:  normalized,
		current: initial,
		history: []model.Phase{initial},
	}, nil
}

// Next draws the next phase from the current row's categorical distribution,
// makes it current, and appends it to the history.
func (c *Chain) Next() model.Phase {
	row := c.matrix[c.current]
	draw := c.rng.Float64()

	next := model.Phase(model.PhaseCount - 1)
	acc := 0.0
	for i, p := range row {
		acc += p
		if draw < acc {
			next = model.Phase(i)
			break
		}
	}

	c.current = next
	c.history = append(c.history, next)
	return next
}

func (c *Chain) Current() model.Phase {
	return c.current
}

func (c *Chain) History() []model.Phase {
	return append([]model.Phase(nil), c.history...)
}

func (c *Chain) Matrix() [][]float64 {
	out := make([][]float64, len(c.matrix))
	for i, row := range c.matrix {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Reset moves the chain back to initial and truncates the history to that
// single entry. The matrix is left untouched. Out-of-range initial values
// fall back to Latent.
func (c *Chain) Reset(initial model.Phase) {
	if !initial.Valid() {
		initial = model.PhaseLatent
	}
	c.current = initial
	c.history = []model.Phase{initial}
}

// Reconfigure re-validates matrix and swaps it in. The current phase and
// history are preserved; on error the existing matrix is kept.
func (c *Chain) Reconfigure(matrix [][]float64) error {
	normalized, err := normalizeMatrix(matrix)
	if err != nil {
		return err
	}
	c.matrix = normalized
	return nil
}

func normalizeMatrix(matrix [][]float64) ([][]float64, error) {
	if len(matrix) != model.PhaseCount {
		return nil, fmt.Errorf("%w: got %d rows, want %d", ErrInvalidMatrix, len(matrix), model.PhaseCount)
	}

	out := make([][]float64, model.PhaseCount)
	for i, row := range matrix {
		if len(row) != model.PhaseCount {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, i, len(row), model.PhaseCount)
		}
		sum := 0.0
		for j, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d column %d is %v", ErrInvalidMatrix, i, j, v)
			}
			sum += v
		}
		if sum <= rowSumTolerance {
			return nil, fmt.Errorf("%w: row %d sums to %v", ErrInvalidMatrix, i, sum)
		}

		copied := append([]float64(nil), row...)
		if math.Abs(sum-1.0) > rowSumTolerance {
			for j := range copied {
				copied[j] /= sum
			}
		}
		out[i] = copied
	}
	return out, nil
}
