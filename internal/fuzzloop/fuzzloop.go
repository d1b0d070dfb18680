// Copyright 2024 The Move Fuzz Authors
// This file is part of movefuzz.
//
// movefuzz is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// movefuzz is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with movefuzz. If not, see <http://www.gnu.org/licenses/>.

// Package fuzzloop drives the single-threaded fuzzing loop: pick a corpus
// entry, clone and mutate it, execute it against the VM, feed coverage and
// objectives back into the corpus, and periodically report progress. There
// is no worker pool — one goroutine, one VM, one execution at a time — the
// embedded VM and edge map are not meant to be shared across goroutines.
package fuzzloop

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/movefuzz/movefuzz/internal/corpus"
	"github.com/movefuzz/movefuzz/internal/executor"
	"github.com/movefuzz/movefuzz/internal/mutate"
	"github.com/movefuzz/movefuzz/internal/objective"
)

// StatsInterval controls how often the progress line is printed to stdout.
const StatsInterval = 3 * time.Second

// Config bundles a run's tunables.
type Config struct {
	// Deadline bounds wall-clock run time. Zero means run until
	// interrupted (SIGINT/SIGTERM).
	Deadline time.Duration
	// MaxArgBytes bounds the mutator's argument growth; zero selects
	// mutate.DefaultMaxArgBytes.
	MaxArgBytes int
	// ResizeProbability is passed through to the mutator; zero selects
	// mutate.DefaultResizeProbability.
	ResizeProbability float64
}

// Stats is a point-in-time snapshot of loop progress, used both for the
// periodic progress line and as the post-run summary returned by Run.
type Stats struct {
	Elapsed         time.Duration
	Executions      uint64
	CorpusSize      int
	SolutionsSize   int
	CoverageFillPct float64
}

// Run executes the fuzzing loop against ex until cfg.Deadline elapses (if
// nonzero) or the process receives SIGINT/SIGTERM, then returns the final
// Stats. state must already be seeded; objectives must be nonempty for any
// Solutions to ever be recorded, but a seeded-but-unobjectived run is still
// a valid (if useless) configuration and is not rejected here.
func Run(ex *executor.Executor, state *corpus.State, objectives []objective.Objective, cfg Config) Stats {
	mutator := mutate.New(state.Rand().Int63(), mutate.Config{
		MaxArgBytes:       cfg.MaxArgBytes,
		ResizeProbability: cfg.ResizeProbability,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var deadlineCh <-chan time.Time
	if cfg.Deadline > 0 {
		timer := time.NewTimer(cfg.Deadline)
		defer timer.Stop()
		deadlineCh = timer.C
	}

	ticker := time.NewTicker(StatsInterval)
	defer ticker.Stop()

	start := time.Now()
	stats := snapshot(state, start)

	if state.CorpusSize() == 0 {
		log.Warn("corpus is empty, nothing to fuzz")
		return stats
	}

	for {
		select {
		case <-sigCh:
			log.Info("received interrupt, shutting down")
			return snapshot(state, start)
		case <-deadlineCh:
			log.Info("deadline reached, shutting down")
			return snapshot(state, start)
		case <-ticker.C:
			s := snapshot(state, start)
			logProgress(s)
		default:
			step(ex, state, mutator, objectives)
		}
	}
}

// step runs exactly one fuzzing iteration: schedule, clone, mutate,
// execute, feed coverage and objectives back into state.
func step(ex *executor.Executor, state *corpus.State, mutator *mutate.Mutator, objectives []objective.Objective) {
	scheduled, ok := state.Next()
	if !ok {
		return
	}
	candidate := scheduled.Clone()
	mutator.Mutate(candidate)

	out := ex.Run(candidate)
	state.IncExecutions()
	executionsCounter.Inc(1)
	execsMeter.Mark(1)

	state.ConsiderCoverage(candidate, out)
	if len(objectives) > 0 {
		state.ConsiderSolutions(candidate, out, objectives)
	}
}

// snapshot reads the current loop state into a Stats value and mirrors it
// into the package's metrics registry, the way the reference repo keeps a
// metrics.Meter/Gauge alongside whatever plain struct a subsystem uses for
// its own bookkeeping.
func snapshot(state *corpus.State, start time.Time) Stats {
	s := Stats{
		Elapsed:         time.Since(start),
		Executions:      state.Executions(),
		CorpusSize:      state.CorpusSize(),
		SolutionsSize:   state.SolutionsSize(),
		CoverageFillPct: state.CumulativeFillRatio() * 100,
	}
	corpusGauge.Update(int64(s.CorpusSize))
	solutionsGauge.Update(int64(s.SolutionsSize))
	coverageGauge.Update(s.CoverageFillPct)
	return s
}

// ExecsPerSec derives executions/sec from Elapsed and Executions.
func (s Stats) ExecsPerSec() float64 {
	if secs := s.Elapsed.Seconds(); secs > 0 {
		return float64(s.Executions) / secs
	}
	return 0
}

// String renders a Stats snapshot as the single line printed to standard
// output, both periodically and as the run's final summary.
func (s Stats) String() string {
	return fmt.Sprintf("[%s] execs=%d execs/s=%.0f corpus=%d solutions=%d coverage=%.2f%%",
		s.Elapsed.Round(time.Second), s.Executions, s.ExecsPerSec(), s.CorpusSize, s.SolutionsSize, s.CoverageFillPct)
}

func logProgress(s Stats) {
	fmt.Println(s.String())
}
