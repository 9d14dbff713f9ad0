package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	randomPathLength   = 4
	randomPathAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxPathAttempts    = 64
	pathIndexCapacity  = 100_000
	pathIndexFPRate    = 0.01
)

var ErrPathSpaceExhausted = errors.New("no free random path found")

// PathIndex remembers taken short paths in a bloom filter. A negative answer
// is definite, so most random candidates never reach the database.
type PathIndex struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	intN   func(n int) int
}

func NewPathIndex() *PathIndex {
	return &PathIndex{
		filter: bloom.NewWithEstimates(pathIndexCapacity, pathIndexFPRate),
		intN:   rand.IntN,
	}
}

// Seed adds every existing path.
func (p *PathIndex) Seed(paths []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, path := range paths {
		p.filter.AddString(path)
	}
}

func (p *PathIndex) Add(path string) {
	p.mu.Lock()
	p.filter.AddString(path)
	p.mu.Unlock()
}

// MayContain reports whether path could be taken.
func (p *PathIndex) MayContain(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter.TestString(path)
}

// Generate picks a random path that is not taken. exists is consulted only
// when the filter cannot rule a candidate out.
func (p *PathIndex) Generate(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for range maxPathAttempts {
		candidate := p.candidate()
		if !p.MayContain(candidate) {
			return candidate, nil
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrPathSpaceExhausted
}

func (p *PathIndex) candidate() string {
	b := make([]byte, randomPathLength)
	for i := range b {
		b[i] = randomPathAlphabet[p.intN(len(randomPathAlphabet))]
	}
	return string(b)
}
