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

// Contains the metrics collected by the fuzzing loop.

package fuzzloop

import (
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	executionsCounter = metrics.NewRegisteredCounter("movefuzz/fuzzloop/executions", nil)
	execsMeter        = metrics.NewRegisteredMeter("movefuzz/fuzzloop/execs", nil)

	corpusGauge    = metrics.NewRegisteredGauge("movefuzz/fuzzloop/corpus", nil)
	solutionsGauge = metrics.NewRegisteredGauge("movefuzz/fuzzloop/solutions", nil)
	coverageGauge  = metrics.NewRegisteredGaugeFloat64("movefuzz/fuzzloop/coverage_pct", nil)
)
