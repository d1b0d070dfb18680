// Copyright 2024 The Move Fuzz Authors
// This file is part of movefuzz.
//
// movefuzz is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// movefuzz is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with movefuzz. If not, see <http://www.gnu.org/licenses/>.

// Command movefuzz runs the in-process coverage-guided fuzzer against one
// compiled Move module.
package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"gopkg.in/urfave/cli.v1"

	"github.com/movefuzz/movefuzz/internal/abi"
	"github.com/movefuzz/movefuzz/internal/chain"
	"github.com/movefuzz/movefuzz/internal/corpus"
	"github.com/movefuzz/movefuzz/internal/coverage"
	"github.com/movefuzz/movefuzz/internal/executor"
	"github.com/movefuzz/movefuzz/internal/fuzzloop"
	"github.com/movefuzz/movefuzz/internal/mutate"
	"github.com/movefuzz/movefuzz/internal/objective"
	"github.com/movefuzz/movefuzz/internal/seed"
)

var (
	modulePathFlag = cli.StringFlag{
		Name:  "module-path",
		Usage: "path to the compiled Move module to fuzz",
	}
	abiPathFlag = cli.StringFlag{
		Name:  "abi-path",
		Usage: "directory of entry-function ABI files, scanned recursively",
	}
	timeoutFlag = cli.DurationFlag{
		Name:  "timeout",
		Usage: "stop after this long; 0 runs until interrupted",
		Value: 0,
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "PRNG seed; fixes the entire run's mutation sequence",
		Value: 1,
	}
	abortCodesFlag = cli.Int64SliceFlag{
		Name:  "abort-code",
		Usage: "abort code to treat as interesting; repeatable. Omit to accept any abort.",
	}
	resizeProbabilityFlag = cli.Float64Flag{
		Name:  "mutate-resize-probability",
		Usage: "chance that an argument mutation resizes rather than flips bytes",
		Value: mutate.DefaultResizeProbability,
	}
)

func main() {
	log.Root().SetHandler(log.StreamHandler(os.Stderr, log.TerminalFormat(false)))

	app := cli.NewApp()
	app.Name = "movefuzz"
	app.Usage = "coverage-guided fuzzer for Move smart contract bytecode"
	app.Flags = []cli.Flag{modulePathFlag, abiPathFlag, timeoutFlag, seedFlag, abortCodesFlag, resizeProbabilityFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Error("movefuzz exiting", "err", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	runID := uuid.New().String()
	log.Info("starting movefuzz run", "run_id", runID)

	modulePath := ctx.String(modulePathFlag.Name)
	if modulePath == "" {
		return fmt.Errorf("movefuzz: --%s is required", modulePathFlag.Name)
	}
	abiPath := ctx.String(abiPathFlag.Name)
	if abiPath == "" {
		return fmt.Errorf("movefuzz: --%s is required", abiPathFlag.Name)
	}

	moduleBytes, err := ioutil.ReadFile(modulePath)
	if err != nil {
		return fmt.Errorf("movefuzz: reading module: %w", err)
	}

	abis, err := loadABIs(abiPath)
	if err != nil {
		return fmt.Errorf("movefuzz: loading ABIs: %w", err)
	}

	state := chain.New(1)
	ex, err := executor.New(moduleBytes, abis, state, executor.Config{})
	if err != nil {
		return fmt.Errorf("movefuzz: %w", err)
	}

	seedRes := seed.FromABIs(abis)
	if seedRes.Skipped > 0 {
		log.Warn("skipped ABIs with unsupported parameter types", "count", seedRes.Skipped)
	}

	runSeed := ctx.Int64(seedFlag.Name)
	cs := corpus.New(runSeed, coverage.NewCumulative())
	cs.Seed(seedRes.Payloads)

	objectives := []objective.Objective{
		objective.NewAbortCodeObjective(toUint64Slice(ctx.Int64Slice(abortCodesFlag.Name))),
		objective.NewShiftOverflowObjective(),
	}

	stats := fuzzloop.Run(ex, cs, objectives, fuzzloop.Config{
		Deadline:          ctx.Duration(timeoutFlag.Name),
		ResizeProbability: ctx.Float64(resizeProbabilityFlag.Name),
	})

	fmt.Println("final:", stats.String())
	return nil
}

// loadABIs walks dir recursively, decoding every file as an entry-function
// ABI. Unreadable or non-entry-function files are skipped with a warning
// rather than failing the run.
func loadABIs(dir string) ([]abi.EntryFunction, error) {
	var out []abi.EntryFunction
	err := filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		data, err := ioutil.ReadFile(path)
		if err != nil {
			log.Warn("skipping unreadable ABI file", "path", path, "err", err)
			return nil
		}
		entry, ok, err := abi.Decode(data)
		if err != nil {
			log.Warn("skipping malformed ABI file", "path", path, "err", err)
			return nil
		}
		if !ok {
			log.Warn("skipping non-entry-function ABI file", "path", path)
			return nil
		}
		out = append(out, *entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func toUint64Slice(in []int64) []uint64 {
	out := make([]uint64, len(in))
	for i, v := range in {
		out[i] = uint64(v)
	}
	return out
}
