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

package qos

import "path/filepath"

// Match implements spec.md §4.3's writer/reader compatibility
// predicate. It returns (true, 0) when writer and reader QoS are
// compatible, or (false, id) naming the first policy that fails —
// the id a caller reports via internal/metrics' OfferedIncompatibleQos
// / RequestedIncompatibleQos counters.
//
// The ordering below (durability, deadline, latency, ownership,
// liveliness, reliability, destination_order, presentation, partition)
// matches the
// order uqos.c's qos_match_reader_writer walks the two policy sets, so
// a sample exercising multiple incompatibilities always reports the
// same "first" policy a reader of the original would see.
func Match(writer, reader UniQos) (bool, PolicyID) {
	if writer.Durability.Kind < reader.Durability.Kind {
		return false, PolicyDurability
	}

	if !writer.Deadline.Period.LessEqual(reader.Deadline.Period) {
		return false, PolicyDeadline
	}

	if !writer.LatencyBudget.Duration.LessEqual(reader.LatencyBudget.Duration) {
		return false, PolicyLatencyBudget
	}

	if writer.Ownership.Kind != reader.Ownership.Kind {
		return false, PolicyOwnership
	}

	if writer.Liveliness.Kind < reader.Liveliness.Kind {
		return false, PolicyLiveliness
	}
	if !writer.Liveliness.LeaseDuration.LessEqual(reader.Liveliness.LeaseDuration) {
		return false, PolicyLiveliness
	}

	if writer.Reliability.Kind < reader.Reliability.Kind {
		return false, PolicyReliability
	}

	if writer.DestinationOrder.Kind < reader.DestinationOrder.Kind {
		return false, PolicyDestinationOrder
	}

	if writer.Presentation.AccessScope < reader.Presentation.AccessScope {
		return false, PolicyPresentation
	}
	if reader.Presentation.Coherent && writer.Presentation.Coherent != reader.Presentation.Coherent {
		return false, PolicyPresentation
	}
	if reader.Presentation.Ordered && writer.Presentation.Ordered != reader.Presentation.Ordered {
		return false, PolicyPresentation
	}

	if !PartitionsIntersect(writer.Partition, reader.Partition) {
		return false, PolicyPartition
	}

	return true, 0
}

// PartitionsIntersect reports whether two PARTITION policy values
// share a member, applying POSIX shell glob matching to each name
// (spec.md §4.3's "fnmatch-style wildcard intersection") in both
// directions, since either side's entry may carry the wildcard. An
// empty PARTITION list is treated as a single-element list containing
// the empty string, matching the DDS spec's definition of the default
// partition.
func PartitionsIntersect(a, b []string) bool {
	if len(a) == 0 {
		a = []string{""}
	}
	if len(b) == 0 {
		b = []string{""}
	}
	for _, pa := range a {
		for _, pb := range b {
			if partitionNameMatch(pa, pb) {
				return true
			}
		}
	}
	return false
}

func partitionNameMatch(a, b string) bool {
	if a == b {
		return true
	}
	if ok, err := filepath.Match(a, b); err == nil && ok {
		return true
	}
	if ok, err := filepath.Match(b, a); err == nil && ok {
		return true
	}
	return false
}
