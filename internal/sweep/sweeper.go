package sweep

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MJE43/montyhall-sim-go/internal/engine"
	"github.com/MJE43/montyhall-sim-go/internal/games"
	"github.com/MJE43/montyhall-sim-go/internal/scripting"
)

// Sweeper runs sweeps over a pool of workers.
type Sweeper struct {
	workerCount int
	logger      *log.Logger
}

// NewSweeper creates a sweeper with one worker per CPU. A nil logger
// discards output.
func NewSweeper(logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Sweeper{
		workerCount: runtime.GOMAXPROCS(0),
		logger:      logger,
	}
}

// Run validates the request, plays every step and returns the records
// ordered by (iterations, switched). A sweep that hits its timeout returns
// the records finished so far with Summary.TimedOut set.
func (s *Sweeper) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Policy == "" {
		req.Policy = PolicyAlternate
	}
	jobs, scriptLogs, err := plan(req)
	if err != nil {
		return nil, err
	}

	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	workers := req.Workers
	if workers <= 0 || workers > s.workerCount {
		workers = s.workerCount
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	runID := uuid.NewString()
	start := time.Now()
	s.logger.Printf("sweep %s started: doors=%d iterations=%d policy=%s workers=%d seeded=%t",
		runID, req.Doors, req.Iterations, req.Policy, workers, !req.Seeds.IsZero())

	// Both channels hold every job so neither side can block on the other.
	jobCh := make(chan job, len(jobs))
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)
	results := make(chan Record, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := &worker{
			jobs:    jobCh,
			results: results,
			doors:   req.Doors,
			seeds:   req.Seeds,
		}
		wg.Add(1)
		go w.run(ctx, &wg)
	}

	records, timedOut := collect(ctx, results, &wg)
	sort.Slice(records, func(a, b int) bool {
		if records[a].Iterations != records[b].Iterations {
			return records[a].Iterations < records[b].Iterations
		}
		return !records[a].Switched && records[b].Switched
	})

	summary := summarize(records, req.Doors)
	summary.TimedOut = timedOut
	summary.ElapsedMs = time.Since(start).Milliseconds()

	s.logger.Printf("sweep %s finished: records=%d/%d rounds=%d timed_out=%t elapsed=%dms",
		runID, len(records), len(jobs), summary.TotalRounds, timedOut, summary.ElapsedMs)

	return &Result{
		RunID:      runID,
		Records:    records,
		Summary:    summary,
		ScriptLogs: scriptLogs,
		Echo:       req,
	}, nil
}

// plan validates the request and resolves the switch flag of every step.
// Script policies also return what the script logged.
func plan(req Request) ([]job, []string, error) {
	if req.Doors <= 0 {
		return nil, nil, games.ErrInvalidDoorCount
	}
	if req.Iterations <= 0 {
		return nil, nil, games.ErrInvalidIterationCount
	}

	jobs := make([]job, 0, req.Iterations)
	switch req.Policy {
	case PolicyAlternate:
		for i := 1; i <= req.Iterations; i++ {
			jobs = append(jobs, job{iterations: i, switched: i%2 == 0})
		}
	case PolicyAlways, PolicyNever:
		for i := 1; i <= req.Iterations; i++ {
			jobs = append(jobs, job{iterations: i, switched: req.Policy == PolicyAlways})
		}
	case PolicyBoth:
		for i := 1; i <= req.Iterations; i++ {
			jobs = append(jobs, job{iterations: i}, job{iterations: i, switched: true})
		}
	case PolicyScript:
		policy, err := scripting.Compile(req.Script)
		if err != nil {
			return nil, nil, err
		}
		for i := 1; i <= req.Iterations; i++ {
			sw, err := policy.Switch(i, req.Doors)
			if err != nil {
				return nil, nil, err
			}
			jobs = append(jobs, job{iterations: i, switched: sw})
		}
		return jobs, policy.Logs(), nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, req.Policy)
	}
	return jobs, nil, nil
}

// worker plays sweep steps until the job channel drains or ctx ends.
type worker struct {
	jobs    <-chan job
	results chan<- Record
	doors   int
	seeds   engine.Seeds
}

func (w *worker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case j, ok := <-w.jobs:
			if !ok {
				return
			}
			rec, err := w.play(j)
			if err != nil {
				continue
			}
			w.results <- rec
		case <-ctx.Done():
			return
		}
	}
}

// play runs one step on a fresh simulation. Seeded steps draw from the
// stream at nonce = step, split by switch flag, so every record can be
// replayed on its own.
func (w *worker) play(j job) (Record, error) {
	var src engine.Source
	if w.seeds.IsZero() {
		src = engine.NewEntropySource()
	} else {
		stream := 0
		if j.switched {
			stream = 1
		}
		src = engine.NewSeededSource(w.seeds, uint64(j.iterations)).Split(stream)
	}

	sim, err := games.NewSimulation(w.doors, src)
	if err != nil {
		return Record{}, err
	}
	pct, err := sim.Play(j.switched, j.iterations)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Iterations: j.iterations,
		Percentage: pct,
		Doors:      w.doors,
		Switched:   j.switched,
	}, nil
}

// collect gathers records until every worker exits or ctx ends.
func collect(ctx context.Context, results chan Record, wg *sync.WaitGroup) ([]Record, bool) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	records := make([]Record, 0, cap(results))
	drain := func() ([]Record, bool) {
		for {
			select {
			case rec := <-results:
				records = append(records, rec)
			default:
				return records, len(records) < cap(results) && ctx.Err() != nil
			}
		}
	}

	for {
		select {
		case rec := <-results:
			records = append(records, rec)
		case <-done:
			return drain()
		case <-ctx.Done():
			return drain()
		}
	}
}

// summarize computes per-switch-flag statistics.
func summarize(records []Record, doors int) Summary {
	summary := Summary{
		TotalRecords: len(records),
		Stay:         PolicySummary{Expected: games.Expected(doors, false)},
		Switch:       PolicySummary{Expected: games.Expected(doors, true)},
	}

	var staySum, switchSum float64
	for _, rec := range records {
		summary.TotalRounds += int64(rec.Iterations)
		if rec.Switched {
			summary.Switch.Records++
			summary.Switch.LastPercentage = rec.Percentage
			switchSum += rec.Percentage
		} else {
			summary.Stay.Records++
			summary.Stay.LastPercentage = rec.Percentage
			staySum += rec.Percentage
		}
	}
	if summary.Stay.Records > 0 {
		summary.Stay.MeanPercentage = staySum / float64(summary.Stay.Records)
	}
	if summary.Switch.Records > 0 {
		summary.Switch.MeanPercentage = switchSum / float64(summary.Switch.Records)
	}
	return summary
}
