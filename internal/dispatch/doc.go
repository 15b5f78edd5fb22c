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

// Package dispatch implements spec.md §4.9: listener/waitset delivery
// for the thirteen status-notification types, propagated up the entity
// ancestor chain (Writer/Reader -> Publisher/Subscriber ->
// Participant), plus the GuardCondition/StatusCondition/
// ReadCondition/QueryCondition machinery a WaitSet blocks on.
//
// The Listener/ListenerFunc shape is grounded on the teacher's
// internal/contour.Observer/ObserverFunc (the same one-method
// interface plus a func-adapter idiom, generalized from a zero-arg
// Refresh to a Notification-carrying Notify). The queued-delivery
// loop (Dispatcher.Run, fed by Post) is grounded on
// internal/contour.EventHandler's update channel plus worker-goroutine
// shape, adapted from a Kubernetes informer queue to a DCPS status
// queue; internal/workgroup runs it as the "dispatcher thread" spec.md
// §5 names.
//
// Deferred-check simplification: spec.md §4.9 describes a
// "deferred-check list" so bulk cache updates don't re-walk every
// waitset condition on every single notification. This package
// realizes that by draining a dirty set of touched entity handles once
// per WaitSet.Wait wake cycle (Dispatcher.Resolve) rather than
// re-evaluating conditions inside Post itself; because this
// implementation's condition set is small and Condition.matches reads
// live state directly, resolving is a cheap direct re-check rather
// than a cached diff -- the dirty set still bounds Post to an O(1)
// map write with no waitset walk, and WaitSet.Wait still only pays the
// evaluation cost once per wake regardless of how many notifications
// accumulated since the last one.
package dispatch
