package utils

import (
	"math/rand"
	"sync"
	"time"
)

// IntRange draws uniformly from [min, max]. It is safe for concurrent use.
type IntRange struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewIntRange() *IntRange {
	source := rand.NewSource(time.Now().UnixNano())
	return &IntRange{rng: rand.New(source)}
}

func NewSeededIntRange(seed int64) *IntRange {
	return &IntRange{rng: rand.New(rand.NewSource(seed))}
}

func (r *IntRange) Between(min, max int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + r.rng.Intn(max-min+1)
}
