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
	"sort"
	"sync"
	"time"

	"github.com/heptio-dds/ddscore/internal/ddserr"
	"github.com/heptio-dds/ddscore/internal/duration"
	"github.com/heptio-dds/ddscore/internal/handle"
	"github.com/heptio-dds/ddscore/internal/metrics"
	"github.com/heptio-dds/ddscore/internal/qos"
)

// Change is the payload half of a Sample: the marshalled CDR bytes (or
// nil, for a pure unregister/dispose change) plus its timestamps.
type Change struct {
	Data            []byte
	SourceTimestamp time.Time
	ReceptionTime   time.Time
	Disposed        bool
	Unregistered    bool
}

// Sample is one entry in an instance's sample list: a Change plus the
// reader-visible state triple spec.md §4.6 and
// dcps_reader.c's sample_state/view_state/instance_state fields track.
type Sample struct {
	Change
	Handle        handle.T
	SampleState   SampleState
	ViewState     ViewState
	InstanceState InstanceState

	loaned bool // excluded from further Get results until Done
}

// Instance is the per-key unit of the cache: its samples, in arrival
// order, plus the liveliness/view state spec.md §4.6 tracks
// independent of any single sample.
type Instance struct {
	Handle   handle.T
	KeyBytes []byte
	State    InstanceState
	ViewNew  bool // true until the first Get that observes this instance
	Samples  []*Sample

	lastDelivered time.Time // for minimum_separation filtering
}

// HCI is the opaque per-instance cache-item handle spec.md §4.6's
// `register` returns alongside the InstanceHandle, letting a caller
// that already holds it skip a second key lookup on subsequent calls
// (add_inst, unregister, dispose all take it back).
type HCI = *Instance

// Cache is the bounded, instance-keyed sample store spec.md §4.6
// describes, shared by the writer-history and reader-history
// implementations (a DataWriter's cache never answers Get/Take, but
// the register/unregister/dispose/add_inst/wait_acks half of the
// contract is identical on both sides, per dcps_writer.c and
// dcps_reader.c).
type Cache struct {
	mu sync.Mutex

	qos         qos.UniQos
	metrics     *metrics.Metrics
	endpointKey metrics.EndpointKey

	byHandle map[handle.T]*Instance
	byKey    map[string]*Instance
	next     handle.T

	totalSamples int

	matchedDurableOrReliable bool
	unackedCount             int
	ackCond                  *sync.Cond

	notify     func(count int)
	notifyUser any
}

// NewCache creates an empty history cache governed by q's HISTORY and
// RESOURCE_LIMITS policies. m/key may be nil/zero when the cache has
// no metrics endpoint to report against (e.g. in unit tests).
func NewCache(q qos.UniQos, m *metrics.Metrics, key metrics.EndpointKey) *Cache {
	c := &Cache{
		qos:         q,
		metrics:     m,
		endpointKey: key,
		byHandle:    make(map[handle.T]*Instance),
		byKey:       make(map[string]*Instance),
	}
	c.ackCond = sync.NewCond(&c.mu)
	return c
}

// QosUpdate replaces the cache's governing QoS, per spec.md §4.6's
// `qos_update`. Only the mutable policies (resource limits aside, most
// of HISTORY/RESOURCE_LIMITS are themselves immutable post-enable per
// internal/qos.Immutable) are expected to actually change in practice.
func (c *Cache) QosUpdate(q qos.UniQos) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.qos = q
}

// SetMatchedDurableOrReliable records whether any matched remote
// endpoint requires this writer to retain data for an eventually
// connecting reader (durability) or acknowledgment tracking
// (reliability), the condition WriteRequired consults.
func (c *Cache) SetMatchedDurableOrReliable(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matchedDurableOrReliable = v
}

// WriteRequired reports whether a write must be retained in the
// cache: a VOLATILE writer with no durable or reliable matched reader
// may let the change drop once delivered, per spec.md §4.6.
func (c *Cache) WriteRequired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.qos.Durability.Kind != qos.Volatile {
		return true
	}
	return c.matchedDurableOrReliable
}

// Register is the idempotent instance-creation entry point: equal key
// bytes always return the same (InstanceHandle, HCI) pair.
func (c *Cache) Register(keyBytes []byte, now time.Time) (handle.T, HCI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := string(keyBytes)
	if inst, ok := c.byKey[k]; ok {
		return inst.Handle, inst, nil
	}

	if c.qos.ResourceLimits.MaxInstances != qos.LengthUnlimited &&
		len(c.byKey) >= int(c.qos.ResourceLimits.MaxInstances) {
		return handle.Null, nil, ddserr.OutOfResourcesErr(nil)
	}

	c.next++
	inst := &Instance{
		Handle:   c.next,
		KeyBytes: append([]byte(nil), keyBytes...),
		State:    Alive,
		ViewNew:  true,
	}
	c.byKey[k] = inst
	c.byHandle[inst.Handle] = inst
	return inst.Handle, inst, nil
}

// LookupKey resolves key bytes to an existing instance's handle,
// without creating one.
func (c *Cache) LookupKey(keyBytes []byte) (handle.T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.byKey[string(keyBytes)]
	if !ok {
		return handle.Null, false
	}
	return inst.Handle, true
}

// GetKeyValue recovers the key bytes originally passed to Register.
func (c *Cache) GetKeyValue(h handle.T) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.byHandle[h]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), inst.KeyBytes...), true
}

// Unregister marks hci's instance as having no writers, appending a
// state-change sample with no payload.
func (c *Cache) Unregister(hci HCI, now time.Time) error {
	return c.stateChange(hci, now, NotAliveNoWriters, false, true)
}

// Dispose marks hci's instance as disposed, appending a state-change
// sample with no payload.
func (c *Cache) Dispose(hci HCI, now time.Time) error {
	return c.stateChange(hci, now, NotAliveDisposed, true, false)
}

func (c *Cache) stateChange(hci HCI, now time.Time, state InstanceState, disposed, unregistered bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst := hci
	inst.State = state
	s := &Sample{
		Change: Change{
			ReceptionTime: now,
			Disposed:      disposed,
			Unregistered:  unregistered,
		},
		Handle:        inst.Handle,
		SampleState:   NotRead,
		ViewState:     viewStateOf(inst),
		InstanceState: state,
	}
	c.appendSample(inst, s)
	return nil
}

// AddInst admits a new Change for hci's instance, enforcing
// RESOURCE_LIMITS.max_samples/max_samples_per_instance and the
// HISTORY policy's retention depth. When KEEP_LAST's depth is
// exceeded the oldest sample for that instance is dropped silently
// (it was never a resource violation, just superseded); when
// RESOURCE_LIMITS would be exceeded under KEEP_ALL the write is
// rejected and sample_rejected is reported via internal/metrics.
func (c *Cache) AddInst(hci HCI, data []byte, sourceTime, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst := hci

	if c.qos.ResourceLimits.MaxSamplesPerInstance != qos.LengthUnlimited &&
		len(inst.Samples) >= int(c.qos.ResourceLimits.MaxSamplesPerInstance) &&
		c.qos.History.Kind == qos.KeepAll {
		c.reportSampleRejected("samples_per_instance_limit")
		return ddserr.OutOfResourcesErr(nil)
	}
	if c.qos.ResourceLimits.MaxSamples != qos.LengthUnlimited &&
		c.totalSamples >= int(c.qos.ResourceLimits.MaxSamples) &&
		c.qos.History.Kind == qos.KeepAll {
		c.reportSampleRejected("samples_limit")
		return ddserr.OutOfResourcesErr(nil)
	}

	s := &Sample{
		Change: Change{
			Data:            data,
			SourceTimestamp: sourceTime,
			ReceptionTime:   now,
		},
		Handle:        inst.Handle,
		SampleState:   NotRead,
		ViewState:     viewStateOf(inst),
		InstanceState: Alive,
	}
	inst.State = Alive
	c.appendSample(inst, s)

	if c.qos.History.Kind == qos.KeepLast {
		depth := int(c.qos.History.Depth)
		for len(inst.Samples) > depth {
			c.dropOldest(inst)
		}
	}

	c.unackedCount++
	return nil
}

func (c *Cache) appendSample(inst *Instance, s *Sample) {
	inst.Samples = append(inst.Samples, s)
	c.totalSamples++
	if c.notify != nil {
		go c.notify(c.totalSamples)
	}
	if c.metrics != nil {
		instances := len(c.byHandle)
		c.metrics.SetHistoryCacheSize(c.endpointKey, instances, c.totalSamples)
	}
}

func (c *Cache) dropOldest(inst *Instance) {
	if len(inst.Samples) == 0 {
		return
	}
	inst.Samples = inst.Samples[1:]
	c.totalSamples--
}

func (c *Cache) reportSampleRejected(reason string) {
	if c.metrics != nil {
		c.metrics.SampleRejected(c.endpointKey, reason)
	}
}

func viewStateOf(inst *Instance) ViewState {
	if inst.ViewNew {
		return New
	}
	return NotNew
}

// Get returns up to n samples (0 means unlimited) matching mask, the
// current contents of each matched instance in instance order. Once
// an instance has had a sample delivered, a later sample whose source
// timestamp falls within minSeparation of the last one delivered is
// skipped, and an infinite minSeparation lets only the first sample
// per instance through, per dcps_reader.c's TIME_BASED_FILTER handling
// (spec.md §9's supplemented minimum_separation enforcement). The
// returned samples are loaned: Done must be called with the same
// slice (and the same take flag) to release them.
func (c *Cache) Get(n int, mask Mask, take bool, minSeparation duration.Value) []*Sample {
	c.mu.Lock()
	defer c.mu.Unlock()

	handles := make([]handle.T, 0, len(c.byHandle))
	for h := range c.byHandle {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	var out []*Sample
	for _, h := range handles {
		inst := c.byHandle[h]
		view := viewStateOf(inst)
		for _, s := range inst.Samples {
			if s.loaned {
				continue
			}
			if !mask.allows(s.SampleState, view, s.InstanceState) {
				continue
			}
			if !inst.lastDelivered.IsZero() {
				if minSeparation.IsInfinite() {
					continue // only the first sample per instance ever clears the filter
				}
				if s.SourceTimestamp.Sub(inst.lastDelivered) < minSeparation.Duration() {
					continue
				}
			}
			s.loaned = true
			out = append(out, s)
			inst.lastDelivered = s.SourceTimestamp
			if n > 0 && len(out) >= n {
				return out
			}
		}
		inst.ViewNew = false
	}
	return out
}

// Done releases the loan on samples returned by Get, advancing
// sample-state (a non-taken sample becomes Read) or removing them
// entirely (take), in one atomic step as spec.md §4.6 requires.
func (c *Cache) Done(samples []*Sample, take bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !take {
		for _, s := range samples {
			s.SampleState = Read
			s.loaned = false
		}
		return
	}

	remove := make(map[*Sample]bool, len(samples))
	for _, s := range samples {
		remove[s] = true
	}
	for _, inst := range c.byHandle {
		kept := inst.Samples[:0]
		for _, s := range inst.Samples {
			if remove[s] {
				c.totalSamples--
				continue
			}
			kept = append(kept, s)
		}
		inst.Samples = kept
	}
}

// MarkAcked decrements the outstanding-acknowledgment counter by n,
// waking any WaitAcks callers once it reaches zero. internal/rtps
// calls this as matched reliable readers ACKNACK a writer's samples.
func (c *Cache) MarkAcked(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unackedCount -= n
	if c.unackedCount < 0 {
		c.unackedCount = 0
	}
	if c.unackedCount == 0 {
		c.ackCond.Broadcast()
	}
}

// WaitAcks blocks until every outstanding change has been
// acknowledged by matched reliable readers, or timeout elapses.
func (c *Cache) WaitAcks(timeout duration.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unackedCount == 0 {
		return nil
	}
	if timeout.IsInfinite() {
		for c.unackedCount > 0 {
			c.ackCond.Wait()
		}
		return nil
	}

	done := make(chan struct{})
	timer := time.AfterFunc(timeout.Duration(), func() {
		c.mu.Lock()
		close(done)
		c.ackCond.Broadcast()
		c.mu.Unlock()
	})
	defer timer.Stop()

	for c.unackedCount > 0 {
		select {
		case <-done:
			return ddserr.New(ddserr.Timeout, nil)
		default:
		}
		c.ackCond.Wait()
	}
	return nil
}

// RequestNotification registers a callback invoked (from a new
// goroutine, so it never blocks the caller adding a sample) every
// time the cache's total sample count changes.
func (c *Cache) RequestNotification(cb func(count int), user any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = cb
	c.notifyUser = user
}

// Matches reports whether writer and reader caches belong to a
// compatible writer/reader pair, delegating to internal/qos.Match on
// their governing QoS — the history cache's share of spec.md §4.6's
// `matches` contract.
func Matches(writer, reader *Cache) (bool, qos.PolicyID) {
	writer.mu.Lock()
	wq := writer.qos
	writer.mu.Unlock()

	reader.mu.Lock()
	rq := reader.qos
	reader.mu.Unlock()

	return qos.Match(wq, rq)
}

// Peek reports whether any non-loaned sample currently matches mask
// and, when pred is non-nil, also satisfies pred(sample.Data) --
// without loaning it. internal/dispatch's ReadCondition/QueryCondition
// (spec.md §4.9) use this to test for a match without disturbing
// sample_state the way a real Get/Take would.
func (c *Cache) Peek(mask Mask, pred func(data []byte) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, inst := range c.byHandle {
		view := viewStateOf(inst)
		for _, s := range inst.Samples {
			if s.loaned {
				continue
			}
			if !mask.allows(s.SampleState, view, s.InstanceState) {
				continue
			}
			if pred == nil || pred(s.Data) {
				return true
			}
		}
	}
	return false
}

// Len reports the number of instances currently tracked, for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byHandle)
}

// TotalSamples reports the number of samples currently resident
// across all instances, for tests.
func (c *Cache) TotalSamples() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSamples
}
