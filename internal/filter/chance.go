package filter

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Roller draws a uniform percentage in [0, 100).
type Roller interface {
	Roll() float64
}

// Rand is a Roller safe for concurrent use.
type Rand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRand seeds a generator from crypto/rand.
func NewRand() (*Rand, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return NewSeededRand(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])), nil
}

// NewSeededRand returns a reproducible generator.
func NewSeededRand(seed1, seed2 uint64) *Rand {
	return &Rand{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

func (r *Rand) Roll() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() * 100
}

// Fixed always rolls the same value.
type Fixed float64

func (f Fixed) Roll() float64 { return float64(f) }

func passesChance(percent float64, roller Roller) bool {
	if percent >= 100 {
		return true
	}
	if percent <= 0 {
		return false
	}
	return roller.Roll() < percent
}
