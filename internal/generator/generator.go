// Package generator builds target direction sequences for a session.
package generator

import (
	"math/rand"
	"time"
)

// Generator produces target orders.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with seed, or with the current time when
// seed is zero.
func New(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Cycle repeats angles in order until count entries are produced.
func (g *Generator) Cycle(angles []float64, count int) []float64 {
	if len(angles) == 0 || count <= 0 {
		return nil
	}
	result := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, angles[i%len(angles)])
	}
	return result
}

// Shuffled draws count entries in blocks: each block is a permutation of
// angles, so every direction appears equally often up to the last block.
func (g *Generator) Shuffled(angles []float64, count int) []float64 {
	if len(angles) == 0 || count <= 0 {
		return nil
	}
	result := make([]float64, 0, count)
	block := make([]float64, len(angles))
	for len(result) < count {
		copy(block, angles)
		g.rnd.Shuffle(len(block), func(i, j int) {
			block[i], block[j] = block[j], block[i]
		})
		for _, a := range block {
			if len(result) == count {
				break
			}
			result = append(result, a)
		}
	}
	return result
}
