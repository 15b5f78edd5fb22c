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

// Package rtps implements spec.md §4.8's reliable reader protocol: the
// per-matched-reliable-writer sequence-number window a reader tracks,
// and the writer-side handling of the ACKNACK it receives in reply.
//
// The message shapes (Heartbeat.{First,Last,Count}, AckNack.{Base,
// Bitmap,Count,Final}, Gap.{Start,Base,Bitmap}) are grounded on
// original_source's apps/dds/src/include/sim.h, which is the one place
// in the retrieved corpus that documents the wire element fields this
// package needs: sim_add_heartbeat(flags,first,last,count),
// sim_add_acknack(final,base,nbits,bits,count) and
// sim_add_gap(start,base,nbits,bits). Real RTPS wire transmission is
// out of scope (spec.md §1 Non-goals); these structs exist only to
// carry the logical event across the reader/writer state machines the
// simulator drives, per spec.md §4.8's "(as exercised by the
// simulator)" qualifier.
//
// Missing-sequence tracking uses github.com/RoaringBitmap/roaring/v2
// in place of the original's fixed MAX_DELTA bitmap, per SPEC_FULL.md
// §4.11; ACKNACK retry backoff after a stalled HEARTBEAT-with-gaps
// uses github.com/cenkalti/backoff/v4, capped at the matched
// reliability policy's max_blocking_time.
package rtps
