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
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cenkalti/backoff/v4"

	"github.com/heptio-dds/ddscore/internal/duration"
	"github.com/heptio-dds/ddscore/internal/history"
	"github.com/heptio-dds/ddscore/internal/metrics"
)

// WriterProxy is a reader's view of one matched reliable writer:
// spec.md §4.8's `(first_sn, last_sn, bitmap_of_missing)` plus the
// ACKNACK retry state Timeouts describes. One WriterProxy exists per
// matched (local reader, remote writer) pair.
type WriterProxy struct {
	mu sync.Mutex

	firstSN SequenceNumber // current_first: lowest sequence number still tracked
	lastSN  SequenceNumber // highest sequence number the writer has announced
	started bool

	received *roaring.Bitmap // delivered or GAP'd sequence numbers

	heartbeatCount int32
	ackNackCount   int32

	maxBlockingTime time.Duration
	bo              *backoff.ExponentialBackOff
	deadline        time.Time
	progress        bool

	cache       *history.Cache
	endpointKey metrics.EndpointKey
	metrics     *metrics.Metrics
}

// NewWriterProxy creates a WriterProxy that delivers accepted samples
// into cache and reports sample-lost against key (m may be nil in
// tests). maxBlockingTime governs the ACKNACK re-send timeout per
// spec.md §4.8's Timeouts paragraph; DURATION_INFINITE disables the
// cenkalti/backoff elapsed-time cap (the library's documented meaning
// of a zero MaxElapsedTime), matching how internal/history.WaitAcks
// treats an infinite wait.
func NewWriterProxy(maxBlockingTime duration.Value, cache *history.Cache, m *metrics.Metrics, key metrics.EndpointKey) *WriterProxy {
	w := &WriterProxy{
		received:    roaring.New(),
		cache:       cache,
		metrics:     m,
		endpointKey: key,
	}
	if !maxBlockingTime.IsInfinite() {
		w.maxBlockingTime = maxBlockingTime.Duration()
	}
	w.bo = backoff.NewExponentialBackOff()
	w.bo.MaxElapsedTime = w.maxBlockingTime
	return w
}

// OnHeartbeat recomputes the missing-sequence window from hb and
// returns the ACKNACK the reader replies with. A heartbeat always
// produces a reply: AckNack.Final is true when no gaps remain (the
// "terminating" ACKNACK of spec.md §8 scenario 4), false otherwise.
func (w *WriterProxy) OnHeartbeat(hb Heartbeat, now time.Time) AckNack {
	w.mu.Lock()
	defer w.mu.Unlock()

	lo := hb.First
	if w.started && w.firstSN > lo {
		lo = w.firstSN
	}
	w.firstSN = lo
	w.lastSN = hb.Last
	w.started = true
	w.heartbeatCount = hb.Count

	base, missing := w.missingLocked()
	w.bo.Reset()
	if missing.IsEmpty() {
		w.deadline = time.Time{}
	} else {
		w.progress = false
		w.armLocked(now)
	}

	w.ackNackCount++
	return AckNack{Base: base, Bitmap: missing, Count: w.ackNackCount, Final: missing.IsEmpty()}
}

// OnData admits a sample at sn, delivering it into the reader's
// history cache. Sequence numbers outside the currently announced
// window are still accepted (a DATA can race ahead of the HEARTBEAT
// that first describes it).
func (w *WriterProxy) OnData(d Data, now time.Time) error {
	w.mu.Lock()
	w.received.Add(d.SN.bit())
	if !w.started || d.SN > w.lastSN {
		w.lastSN = d.SN
		w.started = true
	}
	w.progress = true
	w.mu.Unlock()

	_, hci, err := w.cache.Register(d.KeyBytes, now)
	if err != nil {
		return err
	}
	return w.cache.AddInst(hci, d.Payload, d.SourceTime, now)
}

// OnGap marks every sequence number in [g.Start, g.Base) and every bit
// set in g.Bitmap (relative to g.Base) as accounted for without
// delivering a sample. When writerIntended is false the gap represents
// genuine sample loss and is reported via SampleLost, per spec.md
// §4.8's "otherwise raise sample-lost".
func (w *WriterProxy) OnGap(g Gap, writerIntended bool) {
	w.mu.Lock()
	n := 0
	for sn := g.Start; sn < g.Base; sn++ {
		if !w.received.Contains(sn.bit()) {
			n++
		}
		w.received.Add(sn.bit())
	}
	if g.Bitmap != nil {
		it := g.Bitmap.Iterator()
		for it.HasNext() {
			bit := it.Next()
			sn := SequenceNumber(g.Base.bit() + bit)
			if !w.received.Contains(sn.bit()) {
				n++
			}
			w.received.Add(sn.bit())
		}
	}
	w.progress = true
	w.mu.Unlock()

	if !writerIntended && n > 0 && w.metrics != nil {
		for i := 0; i < n; i++ {
			w.metrics.SampleLost(w.endpointKey)
		}
	}
}

// CheckTimeout is driven by a periodic tick that its caller supplies
// (cmd/ddscore does not run one). It returns a re-sent ACKNACK with
// an incremented count when a HEARTBEAT left gaps outstanding and no
// DATA/GAP narrowed them before the backoff-computed deadline, per
// spec.md §4.8's Timeouts paragraph.
func (w *WriterProxy) CheckTimeout(now time.Time) (AckNack, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.deadline.IsZero() || now.Before(w.deadline) {
		return AckNack{}, false
	}
	if w.progress {
		w.progress = false
		w.armLocked(now)
		return AckNack{}, false
	}

	base, missing := w.missingLocked()
	if missing.IsEmpty() {
		w.deadline = time.Time{}
		return AckNack{}, false
	}
	w.ackNackCount++
	w.armLocked(now)
	return AckNack{Base: base, Bitmap: missing, Count: w.ackNackCount, Final: false}, true
}

func (w *WriterProxy) armLocked(now time.Time) {
	d := w.bo.NextBackOff()
	if d == backoff.Stop || (w.maxBlockingTime > 0 && d > w.maxBlockingTime) {
		d = w.maxBlockingTime
	}
	w.deadline = now.Add(d)
}

// missingLocked returns (base, bitmap) for the sequence numbers in
// [firstSN, lastSN] not yet in received. base is lastSN+1 (an empty,
// "nothing missing" bitmap) when the writer has never announced a
// window or everything in it has been received.
func (w *WriterProxy) missingLocked() (SequenceNumber, *roaring.Bitmap) {
	if !w.started || w.firstSN > w.lastSN {
		return w.lastSN + 1, roaring.New()
	}
	missing := fullRange(w.firstSN, w.lastSN)
	missing.AndNot(w.received)
	if missing.IsEmpty() {
		return w.lastSN + 1, missing
	}
	return SequenceNumber(missing.Minimum()), missing
}
