package engine

import (
	"math/rand/v2"
	"strconv"
)

// Source is a random stream owned by a single simulation or worker.
// Implementations are not safe for concurrent use; use Split to obtain
// one stream per goroutine.
type Source interface {
	// IntN returns a uniform integer in [0, n). It panics if n <= 0.
	IntN(n int) int
	// Split derives an independent stream for the given stream index and
	// advances the receiver, so repeated splits never replay a stream.
	Split(stream int) Source
}

// SeededSource draws integers from the HMAC byte stream so a run can be
// replayed from its seeds and nonce.
type SeededSource struct {
	seeds Seeds
	nonce uint64
	bg    *ByteGenerator
}

// NewSeededSource creates a deterministic source positioned at cursor 0.
func NewSeededSource(seeds Seeds, nonce uint64) *SeededSource {
	return &SeededSource{
		seeds: seeds,
		nonce: nonce,
		bg:    NewByteGenerator(seeds.Server, seeds.Client, nonce, 0),
	}
}

// IntN maps the next float onto [0, n) with floor(f*n).
func (s *SeededSource) IntN(n int) int {
	if n <= 0 {
		panic("engine: IntN called with n <= 0")
	}
	idx := int(s.bg.NextFloat() * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// Split folds the parent cursor and the stream index into the client seed,
// then advances the parent by one float so later splits yield new streams.
func (s *SeededSource) Split(stream int) Source {
	child := NewSeededSource(Seeds{
		Server: s.seeds.Server,
		Client: s.seeds.Client + "/" + strconv.FormatUint(s.bg.Cursor(), 10) + "/" + strconv.Itoa(stream),
	}, s.nonce)
	s.bg.NextFloat()
	return child
}

// Seeds returns the seeds the stream was built from.
func (s *SeededSource) Seeds() Seeds {
	return s.seeds
}

// Cursor reports the number of bytes consumed so far.
func (s *SeededSource) Cursor() uint64 {
	return s.bg.Cursor()
}

// PCGSource wraps a math/rand/v2 PCG generator for fast unseeded runs.
type PCGSource struct {
	r *rand.Rand
}

// NewPCGSource creates a PCG source with an explicit seed.
func NewPCGSource(seed1, seed2 uint64) *PCGSource {
	return &PCGSource{r: rand.New(rand.NewPCG(seed1, seed2))}
}

// NewEntropySource seeds a PCG source from the runtime's random state.
func NewEntropySource() *PCGSource {
	return NewPCGSource(rand.Uint64(), rand.Uint64())
}

// IntN returns a uniform integer in [0, n).
func (p *PCGSource) IntN(n int) int {
	return p.r.IntN(n)
}

// Split seeds a child generator from the parent stream, so children are
// reproducible when the parent was explicitly seeded.
func (p *PCGSource) Split(stream int) Source {
	return NewPCGSource(p.r.Uint64()^uint64(stream), p.r.Uint64())
}

// FromSeeds returns a SeededSource when a server seed is present and an
// entropy-seeded PCG source otherwise.
func FromSeeds(seeds Seeds, nonce uint64) Source {
	if seeds.IsZero() {
		return NewEntropySource()
	}
	return NewSeededSource(seeds, nonce)
}
