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

// Package chain holds the in-memory mock chain state the executor publishes
// modules into and runs transactions against. It is a small typed cache
// over a handful of maps — module bytes, resources, resource-group members,
// and table entries — standing in for a real storage backend that would
// dwarf fuzzing throughput. Determinism matters more than fidelity here:
// every read that misses returns "not found" rather than an error, and
// writes only ever happen through the executor's post-execution commit
// step.
package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"
)

// ModuleID names a published module by its publishing address and name.
type ModuleID struct {
	Address [32]byte
	Name    string
}

// ResourceID names a resource instance by owning address and Move struct
// tag (e.g. "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>").
type ResourceID struct {
	Address   [32]byte
	StructTag string
}

// TableEntryID names one entry of a Move table<K, V> by table handle and a
// serialized key.
type TableEntryID struct {
	Handle [32]byte
	Key    string
}

// State is the mock chain's storage layer. The zero value is not usable;
// construct with New.
type State struct {
	modules        map[ModuleID][]byte
	resources      map[ResourceID][]byte
	resourceGroups map[ResourceID]map[string][]byte
	tables         map[TableEntryID][]byte

	chainID      uint8
	featureFlags map[string]bool

	published bool
}

// New creates an empty mock chain state for the given chain id.
func New(chainID uint8) *State {
	return &State{
		modules:        make(map[ModuleID][]byte),
		resources:      make(map[ResourceID][]byte),
		resourceGroups: make(map[ResourceID]map[string][]byte),
		tables:         make(map[TableEntryID][]byte),
		chainID:        chainID,
		featureFlags:   make(map[string]bool),
	}
}

// ErrAlreadyPublished is returned by PublishModule when the harness attempts
// to publish a second module into a state that already has the
// target-under-test module, since the module map is append-once by design.
var ErrAlreadyPublished = fmt.Errorf("chain: target module already published")

// PublishModule stores id's bytes. The harness publishes exactly one module
// at construction time; a second call fails rather than silently
// overwriting, since the module map must never change after initial
// publish.
func (s *State) PublishModule(id ModuleID, moduleBytes []byte) error {
	if s.published {
		return ErrAlreadyPublished
	}
	s.modules[id] = moduleBytes
	s.published = true
	log.Info("published module", "address", fmt.Sprintf("%x", id.Address[:4]), "name", id.Name, "bytes", len(moduleBytes))
	return nil
}

// Module fetches module bytes by id.
func (s *State) Module(id ModuleID) ([]byte, bool) {
	b, ok := s.modules[id]
	return b, ok
}

// Resource fetches one resource's bytes.
func (s *State) Resource(id ResourceID) ([]byte, bool) {
	b, ok := s.resources[id]
	return b, ok
}

// CommitResource writes a resource's bytes. Only the executor's commit step,
// applied after a successful VM run, should call this.
func (s *State) CommitResource(id ResourceID, data []byte) {
	s.resources[id] = data
}

// DeleteResource removes a resource, modeling a Move `move_from`.
func (s *State) DeleteResource(id ResourceID) {
	delete(s.resources, id)
}

// ResourceGroupMember fetches one member of a resource group.
func (s *State) ResourceGroupMember(group ResourceID, memberTag string) ([]byte, bool) {
	members, ok := s.resourceGroups[group]
	if !ok {
		return nil, false
	}
	b, ok := members[memberTag]
	return b, ok
}

// CommitResourceGroupMember writes one member of a resource group.
func (s *State) CommitResourceGroupMember(group ResourceID, memberTag string, data []byte) {
	members, ok := s.resourceGroups[group]
	if !ok {
		members = make(map[string][]byte)
		s.resourceGroups[group] = members
	}
	members[memberTag] = data
}

// TableEntry fetches one table<K,V> entry.
func (s *State) TableEntry(id TableEntryID) ([]byte, bool) {
	b, ok := s.tables[id]
	return b, ok
}

// CommitTableEntry writes one table<K,V> entry.
func (s *State) CommitTableEntry(id TableEntryID, data []byte) {
	s.tables[id] = data
}

// ChainID returns the configured chain id.
func (s *State) ChainID() uint8 { return s.chainID }

// SetFeatureFlag toggles a named feature flag read by the VM's context
// accessors.
func (s *State) SetFeatureFlag(name string, enabled bool) {
	s.featureFlags[name] = enabled
}

// FeatureFlag reports whether name is enabled; unset flags default to
// false.
func (s *State) FeatureFlag(name string) bool {
	return s.featureFlags[name]
}
