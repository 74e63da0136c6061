package games

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/MJE43/montyhall-sim-go/internal/engine"
)

// cancelCheckInterval is how many rounds a parallel worker plays between
// context checks.
const cancelCheckInterval = 1024

// Simulation plays the Monty Hall game with a fixed number of doors.
//
// A Simulation owns its random source and reuses scratch buffers between
// rounds, so it must not be shared between goroutines. PlayParallel fans out
// over per-worker copies instead.
type Simulation struct {
	doors int
	src   engine.Source

	layout    Layout
	remaining []int
}

// NewSimulation creates a simulation for the given door count. A nil source
// selects an entropy-seeded PCG stream.
func NewSimulation(doors int, src engine.Source) (*Simulation, error) {
	if doors <= 0 {
		return nil, ErrInvalidDoorCount
	}
	if src == nil {
		src = engine.NewEntropySource()
	}
	return &Simulation{
		doors:     doors,
		src:       src,
		layout:    make(Layout, doors),
		remaining: make([]int, 0, doors),
	}, nil
}

// Doors returns the configured door count.
func (s *Simulation) Doors() int {
	return s.doors
}

// Layout generates a fresh door set with the prize at a uniformly random
// position.
func (s *Simulation) Layout() Layout {
	layout := make(Layout, s.doors)
	s.fill(layout)
	return layout
}

func (s *Simulation) fill(layout Layout) {
	for i := range layout {
		layout[i] = Empty
	}
	layout[s.src.IntN(len(layout))] = Prize
}

// Round plays one game on a fresh layout and returns both doors.
func (s *Simulation) Round() Outcome {
	layout := s.Layout()
	return s.resolve(layout)
}

// resolve runs the contestant pick, the host reveal and the alternate pick
// over the slot indices of layout.
func (s *Simulation) resolve(layout Layout) Outcome {
	remaining := s.remaining[:0]
	for i := range layout {
		remaining = append(remaining, i)
	}

	pick := s.src.IntN(len(remaining))
	contestant := remaining[pick]
	remaining = removeAt(remaining, pick)

	// The host opens the first remaining empty door, but never the last
	// remaining one, so there is always a door left to switch to.
	revealed := -1
	if len(remaining) >= 2 {
		for j, idx := range remaining {
			if layout[idx] == Empty {
				revealed = idx
				remaining = removeAt(remaining, j)
				break
			}
		}
	}

	alternate := contestant
	if len(remaining) > 0 {
		alternate = remaining[s.src.IntN(len(remaining))]
	}
	s.remaining = remaining

	return Outcome{
		Layout:          layout,
		Contestant:      layout[contestant],
		Alternate:       layout[alternate],
		ContestantIndex: contestant,
		AlternateIndex:  alternate,
		RevealedIndex:   revealed,
	}
}

// removeAt deletes element i keeping the order of the rest.
func removeAt(xs []int, i int) []int {
	copy(xs[i:], xs[i+1:])
	return xs[:len(xs)-1]
}

// Wins plays iterations independent rounds and counts the wins.
func (s *Simulation) Wins(switchDoor bool, iterations int) (int, error) {
	if iterations <= 0 {
		return 0, ErrInvalidIterationCount
	}
	return s.wins(switchDoor, iterations), nil
}

func (s *Simulation) wins(switchDoor bool, iterations int) int {
	wins := 0
	for i := 0; i < iterations; i++ {
		s.fill(s.layout)
		if s.resolve(s.layout).Won(switchDoor) {
			wins++
		}
	}
	return wins
}

// Play returns the fraction of iterations won under the switch policy.
func (s *Simulation) Play(switchDoor bool, iterations int) (float64, error) {
	wins, err := s.Wins(switchDoor, iterations)
	if err != nil {
		return 0, err
	}
	return float64(wins) / float64(iterations), nil
}

// WinsParallel splits iterations over workers, each with its own stream
// derived from the simulation's source. With a seeded source the result is
// deterministic for a fixed worker count. workers <= 0 uses GOMAXPROCS.
func (s *Simulation) WinsParallel(ctx context.Context, switchDoor bool, iterations, workers int) (int, error) {
	if iterations <= 0 {
		return 0, ErrInvalidIterationCount
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > iterations {
		workers = iterations
	}

	// Streams are split up front, in order, so the parent source is only
	// touched from this goroutine.
	sims := make([]*Simulation, workers)
	for w := range sims {
		sim, err := NewSimulation(s.doors, s.src.Split(w))
		if err != nil {
			return 0, err
		}
		sims[w] = sim
	}

	partial := make([]int, workers)
	per, extra := iterations/workers, iterations%workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		n := per
		if w < extra {
			n++
		}
		g.Go(func() error {
			for done := 0; done < n; {
				if err := ctx.Err(); err != nil {
					return err
				}
				batch := min(cancelCheckInterval, n-done)
				partial[w] += sims[w].wins(switchDoor, batch)
				done += batch
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, p := range partial {
		total += p
	}
	return total, nil
}

// PlayParallel is Play fanned out over workers.
func (s *Simulation) PlayParallel(ctx context.Context, switchDoor bool, iterations, workers int) (float64, error) {
	wins, err := s.WinsParallel(ctx, switchDoor, iterations, workers)
	if err != nil {
		return 0, err
	}
	return float64(wins) / float64(iterations), nil
}

// Expected returns the theoretical win fraction of the one-reveal game.
func Expected(doors int, switchDoor bool) float64 {
	switch {
	case doors <= 0:
		return 0
	case doors == 1:
		return 1
	case doors == 2:
		return 0.5
	case switchDoor:
		d := float64(doors)
		return (d - 1) / (d * (d - 2))
	default:
		return 1 / float64(doors)
	}
}
