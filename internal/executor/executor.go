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

// Package executor publishes one Move module into a mock chain state and
// runs candidate transaction payloads against it, classifying each run's
// outcome and feeding its instrumentation observations back to the caller.
package executor

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/movefuzz/movefuzz/internal/abi"
	"github.com/movefuzz/movefuzz/internal/bcs"
	"github.com/movefuzz/movefuzz/internal/chain"
	"github.com/movefuzz/movefuzz/internal/coverage"
	"github.com/movefuzz/movefuzz/internal/mvm"
	"github.com/movefuzz/movefuzz/internal/observer"
	"github.com/movefuzz/movefuzz/internal/payload"
)

// ExitKind classifies a run's termination for the feedbacks/objectives to
// consume. Invariant violations and panics unwound from the VM are both
// promoted to ExitCrash — the harness does not distinguish between them
// downstream, only at the point they're caught.
type ExitKind uint8

const (
	ExitSuccess ExitKind = iota
	ExitAbort
	ExitCrash
)

func (k ExitKind) String() string {
	switch k {
	case ExitSuccess:
		return "success"
	case ExitAbort:
		return "abort"
	case ExitCrash:
		return "crash"
	default:
		return "unknown"
	}
}

// RunOutcome is the per-execution result the fuzzing loop inspects.
type RunOutcome struct {
	Exit          ExitKind
	Trace         coverage.PcTrace
	Edges         *coverage.EdgeMap
	ShiftOverflow bool
	AbortCode     uint64
	HasAbortCode  bool
	PathId        coverage.PathId
}

// Config carries the parts of the simulated chain context that are
// implementer-decided rather than specified: the Design Notes leave the
// default signer address unguided beyond "use zero", so it is exposed here
// as a knob instead of hardcoded.
type Config struct {
	GasLimit         uint64
	DefaultSigner    uint64
	DefaultBlockTime uint64
}

// Executor publishes exactly one module at construction and runs payloads
// against it. One Executor is built per fuzzing session; a fresh *mvm.VM is
// constructed per Run so no VM-internal state (registers, gas, call stack)
// leaks between executions — resource liveness is the one piece of
// execution state that does survive across runs, and it does so only by
// round-tripping through chain.State's commit path below, never by reusing
// a VM.
type Executor struct {
	state       *chain.State
	moduleID    chain.ModuleID
	vmModule    *mvm.Module
	functionID  map[string]uint32
	paramTypes  map[string][]bcs.ParamType
	obs         *observer.Set
	cfg         Config
	blockHeight uint64

	// nextResID is the next resource handle OpResourceNew will allocate.
	// It is executor-owned (not chain.State-owned) because it is pure
	// allocation bookkeeping, not chain data; the liveness of each handle
	// already allocated is tracked in chain.State, keyed by resourceID.
	nextResID uint64
}

// New decodes moduleBytes, publishes it into state, and prepares to execute
// payloads against its entry functions. entryABIs supplies the formal
// parameter types used to decode EntryFunction argument blobs; ABI entries
// for functions the module does not define are ignored.
func New(moduleBytes []byte, entryABIs []abi.EntryFunction, state *chain.State, cfg Config) (*Executor, error) {
	m, err := mvm.DecodeModule(moduleBytes)
	if err != nil {
		return nil, fmt.Errorf("executor: decoding module: %w", err)
	}

	id := chain.ModuleID{Address: m.Address, Name: m.Name}
	if err := state.PublishModule(id, moduleBytes); err != nil {
		return nil, fmt.Errorf("executor: publishing module: %w", err)
	}

	functionID := make(map[string]uint32, len(m.Functions))
	for i, f := range m.Functions {
		functionID[f.Name] = uint32(i)
	}

	paramTypes := make(map[string][]bcs.ParamType, len(entryABIs))
	for _, a := range entryABIs {
		if a.ModuleName != m.Name {
			continue
		}
		if _, ok := functionID[a.FunctionName]; !ok {
			log.Warn("abi references unknown function, skipping", "function", a.FunctionName)
			continue
		}
		paramTypes[a.FunctionName] = a.Params
	}

	if cfg.GasLimit == 0 {
		cfg.GasLimit = mvm.DefaultGasLimit
	}

	return &Executor{
		state:      state,
		moduleID:   id,
		vmModule:   m,
		functionID: functionID,
		paramTypes: paramTypes,
		obs:        observer.New(),
		cfg:        cfg,
	}, nil
}

// Tick advances the simulated block height, observed by OpBlockHeight.
func (e *Executor) Tick() { e.blockHeight++ }

// Run executes one payload against the published module and classifies the
// outcome. Deserialization failures of argument blobs are swallowed: Run
// returns ExitSuccess with an empty trace (the VM never started), matching
// the harness's "never terminate the loop over fuzzer-controlled input"
// policy.
func (e *Executor) Run(p payload.Payload) RunOutcome {
	e.obs.Reset()

	args, ok := e.decodeArgs(p)
	if !ok {
		return e.finish(ExitSuccess, false, 0)
	}

	vmModule, functionName, err := e.moduleForPayload(p)
	if err != nil {
		log.Debug("payload does not resolve to a runnable function", "err", err)
		return e.finish(ExitSuccess, false, 0)
	}

	vm := mvm.New(vmModule, e.cfg.GasLimit)
	vm.SetContext(e.cfg.DefaultSigner, e.blockHeight, e.cfg.DefaultBlockTime)
	vm.SetHooks(e.obs.OnStep, e.obs.OnShift)
	vm.SeedResources(e.loadLiveResources(), e.nextResID)

	_, err = vm.Invoke(functionName, args)
	if err == nil {
		// Move aborts and invariant violations both discard any resource
		// writes the run made; only a clean halt commits them.
		e.commitResources(vm)
		return e.finish(ExitSuccess, false, 0)
	}

	var abortErr *mvm.AbortError
	if errors.As(err, &abortErr) {
		e.obs.SetAbortCode(abortErr.Code)
		return e.finish(ExitAbort, true, abortErr.Code)
	}

	var invariant *mvm.InvariantViolation
	if errors.As(err, &invariant) {
		log.Warn("vm invariant violation", "err", invariant.Err)
		return e.finish(ExitCrash, false, 0)
	}

	// Any other error (ErrOutOfGas, ErrDivisionByZero) is a clean,
	// non-crashing termination per the harness's error-handling policy.
	return e.finish(ExitSuccess, false, 0)
}

func (e *Executor) finish(exit ExitKind, hasAbort bool, abortCode uint64) RunOutcome {
	trace := append(coverage.PcTrace(nil), e.obs.Trace...)
	return RunOutcome{
		Exit:          exit,
		Trace:         trace,
		Edges:         e.obs.Edges.Map.Clone(),
		ShiftOverflow: e.obs.ShiftOverflow(),
		AbortCode:     abortCode,
		HasAbortCode:  hasAbort,
		PathId:        coverage.ComputePathId(trace),
	}
}

// moduleForPayload resolves the (module, function) an entry-function
// payload targets, or synthesizes a one-function ad hoc module wrapping a
// script's bytecode.
func (e *Executor) moduleForPayload(p payload.Payload) (*mvm.Module, string, error) {
	switch v := p.(type) {
	case *payload.EntryFunction:
		if _, ok := e.functionID[v.FunctionName]; !ok {
			return nil, "", fmt.Errorf("executor: unknown entry function %q", v.FunctionName)
		}
		return e.vmModule, v.FunctionName, nil
	case *payload.Script:
		script := &mvm.Module{
			Name: e.vmModule.Name + "::script",
			Functions: []mvm.Function{
				{Name: "script_main", Code: v.Code, ParamCount: len(v.Args), IsEntry: true},
			},
		}
		return script, "script_main", nil
	default:
		return nil, "", fmt.Errorf("executor: unknown payload kind")
	}
}

// decodeArgs deserializes a payload's arguments into VM register values. A
// decode failure returns ok=false, never an error: the caller treats that
// as the "malformed blob -> swallow" policy.
func (e *Executor) decodeArgs(p payload.Payload) (args []uint64, ok bool) {
	switch v := p.(type) {
	case *payload.EntryFunction:
		types, known := e.paramTypes[v.FunctionName]
		if !known || len(types) != len(v.Args) {
			return nil, false
		}
		out := make([]uint64, len(v.Args))
		for i, blob := range v.Args {
			val, err := bcs.DecodeScalar(types[i], blob)
			if err != nil {
				return nil, false
			}
			out[i] = val
		}
		return out, true
	case *payload.Script:
		out := make([]uint64, len(v.Args))
		for i, a := range v.Args {
			val, err := bcs.DecodeScalar(scriptTagToParamType(a.Tag), a.Value)
			if err != nil {
				return nil, false
			}
			out[i] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func scriptTagToParamType(t payload.ArgTag) bcs.ParamType {
	switch t {
	case payload.TagU8:
		return bcs.U8
	case payload.TagU16:
		return bcs.U16
	case payload.TagU32:
		return bcs.U32
	case payload.TagU64:
		return bcs.U64
	case payload.TagU128:
		return bcs.U128
	case payload.TagU256:
		return bcs.U256
	case payload.TagBool:
		return bcs.Bool
	case payload.TagAddress:
		return bcs.Address
	case payload.TagU8Vector:
		return bcs.VectorU8
	default:
		return bcs.Unsupported
	}
}

// resourceAddress derives the owning address resource writes are committed
// under from the configured default signer. Every run in a session shares
// one signer, so one address is all the resource commit path needs.
func (e *Executor) resourceAddress() [32]byte {
	var addr [32]byte
	binary.BigEndian.PutUint64(addr[24:], e.cfg.DefaultSigner)
	return addr
}

func (e *Executor) resourceID(handle uint64) chain.ResourceID {
	return chain.ResourceID{
		Address:   e.resourceAddress(),
		StructTag: fmt.Sprintf("mvm::resource::%d", handle),
	}
}

// loadLiveResources reads chain.State for every resource handle ever
// allocated and returns the ones still live, so a fresh VM can be seeded
// with exactly the resource state earlier successful runs committed.
func (e *Executor) loadLiveResources() []uint64 {
	var live []uint64
	for h := uint64(0); h < e.nextResID; h++ {
		if _, ok := e.state.Resource(e.resourceID(h)); ok {
			live = append(live, h)
		}
	}
	return live
}

// commitResources writes vm's post-run resource liveness back into
// chain.State: newly live handles are committed, handles that were live
// before this run but aren't anymore are deleted. Called only after a
// clean halt.
func (e *Executor) commitResources(vm *mvm.VM) {
	liveNow, nextID := vm.ResourceSnapshot()

	stillLive := make(map[uint64]bool, len(liveNow))
	for _, h := range liveNow {
		stillLive[h] = true
		e.state.CommitResource(e.resourceID(h), []byte{1})
	}
	for h := uint64(0); h < nextID; h++ {
		if stillLive[h] {
			continue
		}
		if _, ok := e.state.Resource(e.resourceID(h)); ok {
			e.state.DeleteResource(e.resourceID(h))
		}
	}
	e.nextResID = nextID
}
