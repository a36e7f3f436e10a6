package brackets

import (
	"math/rand/v2"
	"time"
)

// RandSource - источник случайности для жеребьёвки. *rand.Rand из math/rand/v2 ему удовлетворяет.
type RandSource interface {
	Shuffle(n int, swap func(i, j int))
	Float64() float64
}

// NewSeededRand возвращает детерминированный источник (для тестов и воспроизводимых жеребьёвок).
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func NewTimeSeededRand() *rand.Rand {
	return NewSeededRand(uint64(time.Now().UnixNano()))
}

func coinFlip(rng RandSource) bool {
	return rng.Float64() < 0.5
}
