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

package rtps

import (
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// SequenceNumber is an RTPS sample sequence number. The wire format
// splits this across a 32-bit high/low pair; every sequence number
// this package handles fits in the low 32 bits (simulator scenarios
// never approach that range), so values are carried as a plain int64
// and only narrowed to uint32 at the roaring.Bitmap boundary.
type SequenceNumber int64

func (sn SequenceNumber) bit() uint32 { return uint32(sn) }

// Heartbeat announces a writer's currently retained sequence-number
// window, mirroring sim.h's sim_add_heartbeat(flags, first, last,
// count) element.
type Heartbeat struct {
	First SequenceNumber
	Last  SequenceNumber
	Count int32
}

// AckNack is a reader's reply: Base is the lowest sequence number not
// yet fully accounted for, Bitmap flags every sequence number from
// Base up to the writer's last announced Last that is still missing
// (Base itself always included when anything is missing). Final
// reports whether the bitmap is empty -- i.e. this ACKNACK needs no
// further retransmission from the writer, matching sim.h's
// sim_add_acknack(final, base, nbits, bits, count).
type AckNack struct {
	Base   SequenceNumber
	Bitmap *roaring.Bitmap
	Count  int32
	Final  bool
}

// Gap tells a reader that sequence numbers in [Start, Base) plus every
// bit set in Bitmap (relative to Base) will never be sent, per sim.h's
// sim_add_gap(start, base, nbits, bits).
type Gap struct {
	Start  SequenceNumber
	Base   SequenceNumber
	Bitmap *roaring.Bitmap
}

// Data carries one sample's decoded key and payload at a given
// sequence number, per sim.h's sim_add_data(snr, hp, sp, kp, dp,
// length); the typecode/key-hash fields sim_add_data also carries are
// internal/cdr's concern, not this package's.
type Data struct {
	SN         SequenceNumber
	KeyBytes   []byte
	Payload    []byte
	SourceTime time.Time
}

// fullRange returns every sequence number in [lo, hi], inclusive, as a
// bitmap, or an empty bitmap when the range is empty.
func fullRange(lo, hi SequenceNumber) *roaring.Bitmap {
	bm := roaring.New()
	if lo > hi {
		return bm
	}
	bm.AddRange(uint64(lo), uint64(hi)+1)
	return bm
}
