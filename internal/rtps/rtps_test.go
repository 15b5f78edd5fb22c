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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/heptio-dds/ddscore/internal/duration"
	"github.com/heptio-dds/ddscore/internal/history"
	"github.com/heptio-dds/ddscore/internal/metrics"
	"github.com/heptio-dds/ddscore/internal/qos"
)

func newTestCache() *history.Cache {
	q := qos.Default()
	q.History.Kind = qos.KeepAll
	return history.NewCache(q, nil, metrics.EndpointKey{})
}

// TestReliableRecoveryScenario4 is spec.md §8 scenario 4 verbatim: a
// writer publishes samples 14..43, the reader receives
// HEARTBEAT(first=14, last=43) and must ACKNACK the full 30-entry
// missing bitmap; after every DATA arrives and a terminating HEARTBEAT
// repeats the same window, the reader's ACKNACK carries an empty
// bitmap.
func TestReliableRecoveryScenario4(t *testing.T) {
	now := time.Now()
	w := NewWriterProxy(duration.Infinite(), newTestCache(), nil, metrics.EndpointKey{})

	ack := w.OnHeartbeat(Heartbeat{First: 14, Last: 43, Count: 1}, now)
	require.False(t, ack.Final)
	require.EqualValues(t, 14, ack.Base)
	require.EqualValues(t, 30, ack.Bitmap.GetCardinality())
	for sn := SequenceNumber(14); sn <= 43; sn++ {
		require.True(t, ack.Bitmap.Contains(sn.bit()), "sn=%d", sn)
	}

	for sn := SequenceNumber(14); sn <= 43; sn++ {
		err := w.OnData(Data{SN: sn, KeyBytes: []byte("k"), Payload: []byte("v"), SourceTime: now}, now)
		require.NoError(t, err)
	}

	final := w.OnHeartbeat(Heartbeat{First: 14, Last: 43, Count: 2}, now)
	require.True(t, final.Final)
	require.True(t, final.Bitmap.IsEmpty())
}

func TestOnGapMarksUnrecoverableWithoutSampleLost(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	now := time.Now()
	w := NewWriterProxy(duration.Infinite(), newTestCache(), m, metrics.EndpointKey{Topic: "t"})

	w.OnHeartbeat(Heartbeat{First: 1, Last: 5, Count: 1}, now)
	w.OnGap(Gap{Start: 1, Base: 5}, true)

	ack := w.OnHeartbeat(Heartbeat{First: 1, Last: 5, Count: 2}, now)
	require.EqualValues(t, 5, ack.Base)
	require.EqualValues(t, 1, ack.Bitmap.GetCardinality())
	require.True(t, ack.Bitmap.Contains(5))
}

func TestOnGapWithoutWriterIntentRaisesSampleLost(t *testing.T) {
	now := time.Now()
	w := NewWriterProxy(duration.Infinite(), newTestCache(), nil, metrics.EndpointKey{})

	w.OnHeartbeat(Heartbeat{First: 1, Last: 5, Count: 1}, now)
	// Must not panic with a nil metrics.Metrics; absence of a crash is
	// the assertion (SampleLost is a void counter increment with no
	// observable return value from here).
	w.OnGap(Gap{Start: 1, Base: 3}, false)
}

func TestCheckTimeoutResendsWithIncrementedCountOnNoProgress(t *testing.T) {
	now := time.Now()
	w := NewWriterProxy(duration.Finite(50*time.Millisecond), newTestCache(), nil, metrics.EndpointKey{})

	ack := w.OnHeartbeat(Heartbeat{First: 1, Last: 2, Count: 1}, now)
	require.EqualValues(t, 1, ack.Count)
	require.False(t, ack.Final)

	later := now.Add(time.Hour) // force-expire the armed deadline regardless of backoff jitter
	retry, fired := w.CheckTimeout(later)
	require.True(t, fired)
	require.Equal(t, ack.Count+1, retry.Count)
	require.Equal(t, ack.Bitmap.ToArray(), retry.Bitmap.ToArray())
}

func TestCheckTimeoutDoesNothingBeforeDeadline(t *testing.T) {
	now := time.Now()
	w := NewWriterProxy(duration.Finite(time.Hour), newTestCache(), nil, metrics.EndpointKey{})
	w.OnHeartbeat(Heartbeat{First: 1, Last: 2, Count: 1}, now)

	_, fired := w.CheckTimeout(now.Add(time.Millisecond))
	require.False(t, fired)
}

func TestCheckTimeoutRearmsOnProgressWithoutResending(t *testing.T) {
	now := time.Now()
	w := NewWriterProxy(duration.Finite(50*time.Millisecond), newTestCache(), nil, metrics.EndpointKey{})
	w.OnHeartbeat(Heartbeat{First: 1, Last: 2, Count: 1}, now)

	require.NoError(t, w.OnData(Data{SN: 1, KeyBytes: []byte("k"), Payload: []byte("v"), SourceTime: now}, now))

	_, fired := w.CheckTimeout(now.Add(time.Hour))
	require.False(t, fired, "progress since arming must rearm instead of resending")
}

func TestWriterHistoryResendsRetainedAndGapsTrimmed(t *testing.T) {
	cache := newTestCache()
	h := NewWriterHistory(cache)
	for sn := SequenceNumber(1); sn <= 5; sn++ {
		h.Record(sn, []byte{byte(sn)})
	}
	h.Trim(3) // simulate 1,2 having been reclaimed

	missing := fullRange(1, 5)
	resend, gap := h.OnAckNack(AckNack{Base: 1, Bitmap: missing, Count: 1})

	require.Len(t, resend, 3)
	for sn := SequenceNumber(3); sn <= 5; sn++ {
		require.Equal(t, []byte{byte(sn)}, resend[sn])
	}
	require.Equal(t, []SequenceNumber{1, 2}, gap)
}

func TestWriterHistoryCreditsCacheOnAdvancingBase(t *testing.T) {
	cache := newTestCache()
	_, hci, err := cache.Register([]byte("k"), time.Now())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, cache.AddInst(hci, []byte("v"), time.Now(), time.Now()))
	}

	h := NewWriterHistory(cache)
	for sn := SequenceNumber(1); sn <= 3; sn++ {
		h.Record(sn, []byte{byte(sn)})
	}

	done := make(chan struct{})
	go func() {
		require.NoError(t, cache.WaitAcks(duration.Finite(time.Second)))
		close(done)
	}()

	h.OnAckNack(AckNack{Base: 4, Bitmap: fullRange(1, 0)})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitAcks did not unblock after OnAckNack credited all three samples")
	}
}
