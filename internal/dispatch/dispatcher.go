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

package dispatch

import (
	"sync"

	"github.com/heptio-dds/ddscore/internal/entity"
	"github.com/heptio-dds/ddscore/internal/handle"
	"github.com/heptio-dds/ddscore/internal/log"
)

// Dispatcher is spec.md §4.9's delivery pipeline: it latches status
// bits, runs the narrowest-ancestor listener-mask dispatch, and keeps
// the dirty set waitsets consult on their next wake. One Dispatcher
// serves an entire domain participant, the same way one
// internal/contour.EventHandler serves a whole Contour cache.
type Dispatcher struct {
	log log.Logger

	mu        sync.Mutex
	listeners map[handle.T]registration
	status    map[handle.T]Mask
	dirty     map[handle.T]struct{}
	waitsets  []*WaitSet

	queue chan Notification
}

// NewDispatcher returns a Dispatcher ready to accept SetListener
// registrations and Post calls; call Run (typically via
// internal/workgroup.Group.Add) to start its delivery loop.
func NewDispatcher(logger log.Logger) *Dispatcher {
	return &Dispatcher{
		log:       logger,
		listeners: make(map[handle.T]registration),
		status:    make(map[handle.T]Mask),
		dirty:     make(map[handle.T]struct{}),
		queue:     make(chan Notification, 256),
	}
}

// SetListener attaches l to e, called back for any NotificationType
// in mask that reaches e without a narrower ancestor already claiming
// it. A nil Listener clears any previously attached one (spec.md
// §4.9's set_listener with listener=NULL, mask=0).
func (d *Dispatcher) SetListener(e Entity, l Listener, mask Mask) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l == nil {
		delete(d.listeners, e.Handle())
		return
	}
	d.listeners[e.Handle()] = registration{listener: l, mask: mask}
}

// AttachWaitSet registers w so Post's dirty set reaches it; Resolve
// wakes only waitsets that were attached here.
func (d *Dispatcher) AttachWaitSet(w *WaitSet) {
	d.mu.Lock()
	d.waitsets = append(d.waitsets, w)
	d.mu.Unlock()
}

func (d *Dispatcher) statusBitsFor(h handle.T) Mask {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status[h]
}

// propagatingTypes are the NotificationTypes that latch a status bit
// on the originating entity's ancestor subscriber/publisher too
// (spec.md §4.9 step 1 names DataOnReaders, the Reader-level
// DataAvailable's Subscriber-level echo).
var propagatingTypes = MaskOf(DataOnReaders)

// Post latches n's status bit on its entity (and, for a propagating
// type, the next ancestor), marks both dirty, and enqueues n for
// narrowest-ancestor listener dispatch by Run. Post never blocks the
// caller on listener execution -- it only blocks briefly to update the
// status/dirty maps and enqueue, mirroring internal/contour.EventHandler's
// non-blocking update-channel send.
func (d *Dispatcher) Post(n Notification) {
	d.mu.Lock()
	chain := ancestors(n.Entity)
	d.status[n.Entity.Handle()] |= MaskOf(n.Type)
	d.dirty[n.Entity.Handle()] = struct{}{}
	if propagatingTypes.Includes(n.Type) && len(chain) > 1 {
		parent := chain[1]
		d.status[parent.Handle()] |= MaskOf(n.Type)
		d.dirty[parent.Handle()] = struct{}{}
	}
	d.mu.Unlock()

	d.queue <- n
}

// Run drains the notification queue and performs narrowest-ancestor
// listener dispatch, then resolves waitsets touched by the delivered
// notification. It is written to internal/workgroup.Group.Add's
// func(<-chan struct{}) error signature so it runs as the "dispatcher
// thread" spec.md §5 names.
func (d *Dispatcher) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		case n := <-d.queue:
			d.deliver(n)
			d.Resolve()
		}
	}
}

// deliver walks n.Entity's ancestor chain narrowest-first and invokes
// the first registered listener whose mask covers n.Type, per spec.md
// §4.9 step 2. No listener anywhere in the chain is not an error --
// the notification is still latched as a status bit for polling/
// waitset consumers.
func (d *Dispatcher) deliver(n Notification) {
	for _, e := range ancestors(n.Entity) {
		d.mu.Lock()
		reg, ok := d.listeners[e.Handle()]
		d.mu.Unlock()
		if !ok || !reg.mask.Includes(n.Type) {
			continue
		}
		reg.listener.Notify(n)
		return
	}
	if d.log != nil {
		d.log.V(2).Infof("dispatch: %s on handle %d has no listener in scope", n.Type, n.Entity.Handle())
	}
}

// Resolve drains the dirty set and wakes every attached waitset so
// each can re-evaluate its StatusCondition/ReadCondition/
// QueryCondition set, spec.md §4.9's "deferred-check list ...
// resolved once per waitset wake cycle". GuardCondition bypasses this
// path entirely: it is signaled directly by SetTriggerValue.
func (d *Dispatcher) Resolve() {
	d.mu.Lock()
	if len(d.dirty) == 0 {
		d.mu.Unlock()
		return
	}
	d.dirty = make(map[handle.T]struct{})
	waitsets := append([]*WaitSet(nil), d.waitsets...)
	d.mu.Unlock()

	for _, w := range waitsets {
		w.signal()
	}
}

// inconsistentTopicAdapter routes entity.Domain.DiscoverTopic's
// InconsistentTopic callback through the standard Post path, so the
// notification gets the same status latch, listener dispatch, and
// waitset wake as any other NotificationType instead of a
// special-cased call.
type inconsistentTopicAdapter struct{ disp *Dispatcher }

func (a inconsistentTopicAdapter) InconsistentTopic(t *entity.Topic) {
	a.disp.Post(Notification{Entity: t, Type: InconsistentTopic})
}

// TopicListener returns the entity.InconsistentTopicListener
// implementation entity/topic.go's DiscoverTopic documents as
// "internal/dispatch supplies the concrete implementation."
func (d *Dispatcher) TopicListener() entity.InconsistentTopicListener {
	return inconsistentTopicAdapter{disp: d}
}
