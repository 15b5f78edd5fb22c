// Copyright Project Contour Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history implements spec.md §4.6: the history cache contract
// shared by readers and writers — a bounded store of samples keyed by
// instance, with sample/view/instance state and max_samples
// enforcement. Grounded on
// original_source/dds/src/dcps/dcps_reader.c's read/take/skip-mask
// machinery (sample_state/view_state/instance_state fields, the
// max_samples-vs-received_data bound check) and dcps_writer.c's
// register/unregister/dispose path.
package history

// SampleState records whether a sample has been read since it was
// added to the cache.
type SampleState uint8

const (
	Read SampleState = 1 << iota
	NotRead
)

const SampleStateAny = Read | NotRead

// ViewState records whether an instance is newly visible to a reader
// or has been seen before.
type ViewState uint8

const (
	New ViewState = 1 << iota
	NotNew
)

const ViewStateAny = New | NotNew

// InstanceState records the liveliness of an instance as last known
// by the cache.
type InstanceState uint8

const (
	Alive InstanceState = 1 << iota
	NotAliveDisposed
	NotAliveNoWriters
)

const InstanceStateAny = Alive | NotAliveDisposed | NotAliveNoWriters

// Mask bundles the three independent filter masks spec.md §4.6's
// `get` operation takes, following dcps_reader.c's
// `dcps_skip_mask(sample_states, view_states, instance_states)`
// three-mask read/take signature.
type Mask struct {
	Sample   SampleState
	View     ViewState
	Instance InstanceState
}

// AnyMask matches every sample regardless of state.
var AnyMask = Mask{Sample: SampleStateAny, View: ViewStateAny, Instance: InstanceStateAny}

func (m Mask) allows(s SampleState, v ViewState, i InstanceState) bool {
	return m.Sample&s != 0 && m.View&v != 0 && m.Instance&i != 0
}
