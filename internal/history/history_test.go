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

package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heptio-dds/ddscore/internal/ddserr"
	"github.com/heptio-dds/ddscore/internal/duration"
	"github.com/heptio-dds/ddscore/internal/metrics"
	"github.com/heptio-dds/ddscore/internal/qos"
)

func newTestCache(q qos.UniQos) *Cache {
	return NewCache(q, nil, metrics.EndpointKey{})
}

func TestRegisterIsIdempotent(t *testing.T) {
	c := newTestCache(qos.Default())
	now := time.Now()

	h1, inst1, err := c.Register([]byte("key-a"), now)
	require.NoError(t, err)

	h2, inst2, err := c.Register([]byte("key-a"), now)
	require.NoError(t, err)

	require.Equal(t, h1, h2)
	require.Same(t, inst1, inst2)
	require.Equal(t, 1, c.Len())
}

func TestLookupKeyAndGetKeyValueRoundTrip(t *testing.T) {
	c := newTestCache(qos.Default())
	now := time.Now()

	h, _, err := c.Register([]byte("the-key"), now)
	require.NoError(t, err)

	lookedUp, ok := c.LookupKey([]byte("the-key"))
	require.True(t, ok)
	require.Equal(t, h, lookedUp)

	recovered, ok := c.GetKeyValue(h)
	require.True(t, ok)
	require.Equal(t, []byte("the-key"), recovered)

	_, ok = c.LookupKey([]byte("no-such-key"))
	require.False(t, ok)
}

func TestMaxInstancesRejectsBeyondLimit(t *testing.T) {
	q := qos.Default()
	q.ResourceLimits.MaxInstances = 1
	c := newTestCache(q)
	now := time.Now()

	_, _, err := c.Register([]byte("a"), now)
	require.NoError(t, err)

	_, _, err = c.Register([]byte("b"), now)
	require.Error(t, err)
	require.Equal(t, ddserr.OutOfResources, ddserr.CodeOf(err))
}

func TestKeepLastDepthEvictsOldestSample(t *testing.T) {
	q := qos.Default()
	q.History = qos.History{Kind: qos.KeepLast, Depth: 2}
	q.ResourceLimits.MaxSamplesPerInstance = 2
	c := newTestCache(q)
	now := time.Now()

	_, inst, err := c.Register([]byte("k"), now)
	require.NoError(t, err)

	require.NoError(t, c.AddInst(inst, []byte("s1"), now, now))
	require.NoError(t, c.AddInst(inst, []byte("s2"), now.Add(time.Second), now))
	require.NoError(t, c.AddInst(inst, []byte("s3"), now.Add(2*time.Second), now))

	require.Len(t, inst.Samples, 2)
	require.Equal(t, []byte("s2"), inst.Samples[0].Data)
	require.Equal(t, []byte("s3"), inst.Samples[1].Data)
}

func TestKeepAllRejectsBeyondMaxSamplesPerInstance(t *testing.T) {
	q := qos.Default()
	q.History = qos.History{Kind: qos.KeepAll}
	q.ResourceLimits.MaxSamplesPerInstance = 1
	c := newTestCache(q)
	now := time.Now()

	_, inst, err := c.Register([]byte("k"), now)
	require.NoError(t, err)

	require.NoError(t, c.AddInst(inst, []byte("s1"), now, now))

	err = c.AddInst(inst, []byte("s2"), now, now)
	require.Error(t, err)
	require.Equal(t, ddserr.OutOfResources, ddserr.CodeOf(err))
}

func TestKeepAllRejectsBeyondMaxSamples(t *testing.T) {
	q := qos.Default()
	q.History = qos.History{Kind: qos.KeepAll}
	q.ResourceLimits.MaxSamples = 1
	c := newTestCache(q)
	now := time.Now()

	_, instA, err := c.Register([]byte("a"), now)
	require.NoError(t, err)
	_, instB, err := c.Register([]byte("b"), now)
	require.NoError(t, err)

	require.NoError(t, c.AddInst(instA, []byte("s1"), now, now))

	err = c.AddInst(instB, []byte("s2"), now, now)
	require.Error(t, err)
	require.Equal(t, ddserr.OutOfResources, ddserr.CodeOf(err))
}

func TestGetIsIdempotentUntilTake(t *testing.T) {
	q := qos.Default()
	q.History = qos.History{Kind: qos.KeepAll}
	c := newTestCache(q)
	now := time.Now()

	_, inst, err := c.Register([]byte("k"), now)
	require.NoError(t, err)
	require.NoError(t, c.AddInst(inst, []byte("s1"), now, now))

	first := c.Get(0, AnyMask, false, duration.Finite(0))
	require.Len(t, first, 1)
	c.Done(first, false)

	// read() is idempotent: the same sample reappears, now Read.
	second := c.Get(0, AnyMask, false, duration.Finite(0))
	require.Len(t, second, 1)
	require.Equal(t, Read, second[0].SampleState)
	c.Done(second, false)

	// take removes it; a subsequent read sees nothing.
	taken := c.Get(0, AnyMask, true, duration.Finite(0))
	require.Len(t, taken, 1)
	c.Done(taken, true)

	require.Equal(t, 0, c.TotalSamples())
	empty := c.Get(0, AnyMask, false, duration.Finite(0))
	require.Empty(t, empty)
}

func TestGetRespectsSampleStateMask(t *testing.T) {
	q := qos.Default()
	q.History = qos.History{Kind: qos.KeepAll}
	c := newTestCache(q)
	now := time.Now()

	_, inst, err := c.Register([]byte("k"), now)
	require.NoError(t, err)
	require.NoError(t, c.AddInst(inst, []byte("s1"), now, now))

	readOnly := c.Get(0, Mask{Sample: Read, View: ViewStateAny, Instance: InstanceStateAny}, false, duration.Infinite())
	require.Empty(t, readOnly, "no sample has been read yet")

	notRead := c.Get(0, Mask{Sample: NotRead, View: ViewStateAny, Instance: InstanceStateAny}, false, duration.Infinite())
	require.Len(t, notRead, 1)
}

func TestGetAppliesMinimumSeparation(t *testing.T) {
	q := qos.Default()
	q.History = qos.History{Kind: qos.KeepAll}
	c := newTestCache(q)
	now := time.Now()

	_, inst, err := c.Register([]byte("k"), now)
	require.NoError(t, err)
	require.NoError(t, c.AddInst(inst, []byte("s1"), now, now))
	require.NoError(t, c.AddInst(inst, []byte("s2"), now.Add(10*time.Millisecond), now))

	sep := duration.Finite(100 * time.Millisecond)

	first := c.Get(0, AnyMask, true, sep)
	require.Len(t, first, 1, "only the first sample clears the filter")
	require.Equal(t, []byte("s1"), first[0].Data)
	c.Done(first, true)

	second := c.Get(0, AnyMask, true, sep)
	require.Empty(t, second, "s2 arrived within minimum_separation of s1")
}

func TestGetInfiniteMinimumSeparationAllowsOnlyFirstSamplePerInstance(t *testing.T) {
	q := qos.Default()
	q.History = qos.History{Kind: qos.KeepAll}
	c := newTestCache(q)
	now := time.Now()

	_, inst, err := c.Register([]byte("k"), now)
	require.NoError(t, err)
	require.NoError(t, c.AddInst(inst, []byte("s1"), now, now))
	require.NoError(t, c.AddInst(inst, []byte("s2"), now.Add(time.Hour), now))

	first := c.Get(0, AnyMask, true, duration.Infinite())
	require.Len(t, first, 1)
	c.Done(first, true)

	second := c.Get(0, AnyMask, true, duration.Infinite())
	require.Empty(t, second)
}

func TestDisposeAndUnregisterAppendStateChangeSamples(t *testing.T) {
	c := newTestCache(qos.Default())
	now := time.Now()

	_, inst, err := c.Register([]byte("k"), now)
	require.NoError(t, err)

	require.NoError(t, c.Dispose(inst, now))
	require.Equal(t, NotAliveDisposed, inst.State)

	require.NoError(t, c.Unregister(inst, now))
	require.Equal(t, NotAliveNoWriters, inst.State)

	require.Equal(t, 2, c.TotalSamples())
}

func TestWriteRequiredTracksDurabilityAndMatchedReaders(t *testing.T) {
	q := qos.Default()
	q.Durability = qos.Durability{Kind: qos.Volatile}
	c := newTestCache(q)
	require.False(t, c.WriteRequired())

	c.SetMatchedDurableOrReliable(true)
	require.True(t, c.WriteRequired())

	q.Durability = qos.Durability{Kind: qos.TransientLocal}
	c2 := newTestCache(q)
	require.True(t, c2.WriteRequired(), "non-VOLATILE durability always requires retention")
}

func TestWaitAcksReturnsImmediatelyWhenNothingOutstanding(t *testing.T) {
	c := newTestCache(qos.Default())
	require.NoError(t, c.WaitAcks(duration.Finite(time.Millisecond)))
}

func TestWaitAcksTimesOut(t *testing.T) {
	q := qos.Default()
	q.History = qos.History{Kind: qos.KeepAll}
	c := newTestCache(q)
	now := time.Now()

	_, inst, err := c.Register([]byte("k"), now)
	require.NoError(t, err)
	require.NoError(t, c.AddInst(inst, []byte("s1"), now, now))

	err = c.WaitAcks(duration.Finite(20 * time.Millisecond))
	require.Error(t, err)
	require.Equal(t, ddserr.Timeout, ddserr.CodeOf(err))
}

func TestWaitAcksUnblocksOnMarkAcked(t *testing.T) {
	q := qos.Default()
	q.History = qos.History{Kind: qos.KeepAll}
	c := newTestCache(q)
	now := time.Now()

	_, inst, err := c.Register([]byte("k"), now)
	require.NoError(t, err)
	require.NoError(t, c.AddInst(inst, []byte("s1"), now, now))

	done := make(chan error, 1)
	go func() {
		done <- c.WaitAcks(duration.Infinite())
	}()

	time.Sleep(10 * time.Millisecond)
	c.MarkAcked(1)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitAcks did not unblock after MarkAcked")
	}
}

func TestMatchesDelegatesToQosMatch(t *testing.T) {
	wq := qos.Default()
	rq := qos.Default()
	w := newTestCache(wq)
	r := newTestCache(rq)

	ok, _ := Matches(w, r)
	require.True(t, ok)

	rq.Reliability = qos.Reliability{Kind: qos.Reliable}
	r2 := newTestCache(rq)
	ok, policy := Matches(w, r2)
	require.False(t, ok)
	require.Equal(t, qos.PolicyReliability, policy)
}

func TestRequestNotificationFiresOnAddInst(t *testing.T) {
	c := newTestCache(qos.Default())
	now := time.Now()

	_, inst, err := c.Register([]byte("k"), now)
	require.NoError(t, err)

	fired := make(chan int, 1)
	c.RequestNotification(func(count int) { fired <- count }, nil)

	require.NoError(t, c.AddInst(inst, []byte("s1"), now, now))

	select {
	case count := <-fired:
		require.Equal(t, 1, count)
	case <-time.After(time.Second):
		t.Fatal("notification callback was not invoked")
	}
}
