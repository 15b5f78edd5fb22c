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
	"sort"
	"sync"

	"github.com/heptio-dds/ddscore/internal/history"
)

// WriterHistory is a reliable writer's view of its own retained
// samples, keyed by sequence number rather than by instance (the
// per-instance internal/history.Cache has no global sequence-number
// axis, so matching an incoming ACKNACK's bitmap against "what do I
// still have" needs this separate index). One WriterHistory exists per
// local reliable DataWriter; cache is that writer's own history cache,
// credited via MarkAcked as matched readers confirm receipt.
type WriterHistory struct {
	mu sync.Mutex

	retained map[SequenceNumber][]byte
	order    []SequenceNumber

	ackWatermark SequenceNumber // highest sequence number every matched reader has fully acknowledged

	cache *history.Cache
}

// NewWriterHistory returns an empty WriterHistory crediting
// acknowledgments to cache (nil is accepted in tests that don't need
// WaitAcks bookkeeping).
func NewWriterHistory(cache *history.Cache) *WriterHistory {
	return &WriterHistory{
		retained: make(map[SequenceNumber][]byte),
		cache:    cache,
	}
}

// Record retains data at sn, available for resend until Trim drops it.
func (h *WriterHistory) Record(sn SequenceNumber, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.retained[sn]; !exists {
		h.order = append(h.order, sn)
	}
	h.retained[sn] = data
}

// Trim drops every retained sample below upTo, simulating the
// writer-history reclaim that follows HISTORY/RESOURCE_LIMITS
// enforcement or a full acknowledgment; a subsequent ACKNACK
// requesting one of those sequence numbers is met with a GAP instead
// of a resend.
func (h *WriterHistory) Trim(upTo SequenceNumber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.order[:0]
	for _, sn := range h.order {
		if sn < upTo {
			delete(h.retained, sn)
			continue
		}
		kept = append(kept, sn)
	}
	h.order = kept
}

// OnAckNack processes a matched reader's reply: sequence numbers set
// in ack.Bitmap that are still retained are queued for resend; those
// no longer retained are reported via the returned gap list so the
// caller can emit a Gap instead, per spec.md §4.8's "Writer-side on
// receiving ACKNACK: resend the requested sequence numbers or GAP
// those it no longer has." Every sequence number below ack.Base that
// was not already credited is reported to cache.MarkAcked.
func (h *WriterHistory) OnAckNack(ack AckNack) (resend map[SequenceNumber][]byte, gap []SequenceNumber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// ackWatermark starts at 0, one below the first valid sequence
	// number (1), so newlyAcked counts every SN in
	// (ackWatermark, ack.Base) without special-casing the first call.
	if ack.Base > h.ackWatermark {
		newlyAcked := int(ack.Base - h.ackWatermark - 1)
		h.ackWatermark = ack.Base - 1
		if h.cache != nil && newlyAcked > 0 {
			h.cache.MarkAcked(newlyAcked)
		}
	}

	resend = make(map[SequenceNumber][]byte)
	if ack.Bitmap != nil {
		it := ack.Bitmap.Iterator()
		for it.HasNext() {
			sn := SequenceNumber(it.Next())
			if data, ok := h.retained[sn]; ok {
				resend[sn] = data
			} else {
				gap = append(gap, sn)
			}
		}
	}
	sort.Slice(gap, func(i, j int) bool { return gap[i] < gap[j] })
	return resend, gap
}
