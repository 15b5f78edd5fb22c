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
	"testing"
	"time"

	"github.com/heptio-dds/ddscore/internal/duration"
	"github.com/heptio-dds/ddscore/internal/entity"
	"github.com/heptio-dds/ddscore/internal/history"
	"github.com/heptio-dds/ddscore/internal/metrics"
	"github.com/heptio-dds/ddscore/internal/qos"
	"github.com/heptio-dds/ddscore/internal/sqlfilter"
)

func newTestGraph(t *testing.T) (*entity.Writer, *entity.Reader) {
	t.Helper()
	d := entity.NewDomain(0, 1024)
	p, err := d.CreateParticipant(true)
	if err != nil {
		t.Fatalf("CreateParticipant: %v", err)
	}
	topic, err := d.CreateTopic("Square", "ShapeType", nil, qos.Default())
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	pub, err := p.CreatePublisher(qos.Default(), true)
	if err != nil {
		t.Fatalf("CreatePublisher: %v", err)
	}
	sub, err := p.CreateSubscriber(qos.Default(), true)
	if err != nil {
		t.Fatalf("CreateSubscriber: %v", err)
	}
	w, err := pub.CreateWriter(topic, qos.Default(), nil, true)
	if err != nil {
		t.Fatalf("CreateWriter: %v", err)
	}
	r, err := sub.CreateReader(topic, qos.Default(), nil, true)
	if err != nil {
		t.Fatalf("CreateReader: %v", err)
	}
	return w, r
}

func TestDeliverInvokesNarrowestAncestorListener(t *testing.T) {
	_, r := newTestGraph(t)
	d := NewDispatcher(nil)

	var gotReader, gotSub int
	d.SetListener(r, ListenerFunc(func(Notification) { gotReader++ }), MaskOf(SampleRejected))
	d.SetListener(r.Subscriber(), ListenerFunc(func(Notification) { gotSub++ }), MaskOf(SampleRejected))

	d.deliver(Notification{Entity: r, Type: SampleRejected})

	if gotReader != 1 {
		t.Fatalf("reader listener called %d times, want 1", gotReader)
	}
	if gotSub != 0 {
		t.Fatalf("subscriber listener called %d times, want 0 (reader should have claimed it)", gotSub)
	}
}

func TestDeliverPropagatesWhenNarrowerHasNoListener(t *testing.T) {
	_, r := newTestGraph(t)
	d := NewDispatcher(nil)

	var gotSub int
	d.SetListener(r.Subscriber(), ListenerFunc(func(Notification) { gotSub++ }), MaskOf(SampleRejected))

	d.deliver(Notification{Entity: r, Type: SampleRejected})

	if gotSub != 1 {
		t.Fatalf("subscriber listener called %d times, want 1", gotSub)
	}
}

func TestDeliverIgnoresListenerWithWrongMask(t *testing.T) {
	_, r := newTestGraph(t)
	d := NewDispatcher(nil)

	var got int
	d.SetListener(r, ListenerFunc(func(Notification) { got++ }), MaskOf(SampleLost))

	d.deliver(Notification{Entity: r, Type: SampleRejected})

	if got != 0 {
		t.Fatalf("listener called %d times, want 0 (mask does not cover SampleRejected)", got)
	}
}

func TestPostLatchesStatusBitAndPropagatesDataOnReaders(t *testing.T) {
	_, r := newTestGraph(t)
	d := NewDispatcher(nil)

	go func() {
		<-d.queue
	}()
	d.Post(Notification{Entity: r, Type: DataOnReaders})

	if d.statusBitsFor(r.Handle())&MaskOf(DataOnReaders) == 0 {
		t.Fatal("reader status bit not latched")
	}
	if d.statusBitsFor(r.Subscriber().Handle())&MaskOf(DataOnReaders) == 0 {
		t.Fatal("subscriber status bit not latched by propagation")
	}
}

func TestStatusConditionMatchesAfterPost(t *testing.T) {
	_, r := newTestGraph(t)
	d := NewDispatcher(nil)
	cond := NewStatusCondition(d, r, MaskOf(SampleRejected))

	if cond.matches() {
		t.Fatal("condition should not match before any notification")
	}

	go func() {
		<-d.queue
	}()
	d.Post(Notification{Entity: r, Type: SampleRejected})

	if !cond.matches() {
		t.Fatal("condition should match once SampleRejected is latched")
	}
}

func TestGuardConditionSetTriggerValue(t *testing.T) {
	g := NewGuardCondition()
	if g.matches() {
		t.Fatal("guard should start untriggered")
	}
	g.SetTriggerValue(true)
	if !g.matches() {
		t.Fatal("guard should match once triggered")
	}
	g.SetTriggerValue(false)
	if g.matches() {
		t.Fatal("guard should stop matching once cleared")
	}
}

func TestReadConditionMatchesOnceSampleAdded(t *testing.T) {
	q := qos.Default()
	q.History.Kind = qos.KeepAll
	cache := history.NewCache(q, nil, metrics.EndpointKey{})
	cond := NewReadCondition(cache, history.AnyMask)

	if cond.matches() {
		t.Fatal("read condition should not match an empty cache")
	}

	now := time.Now()
	_, inst, err := cache.Register([]byte("key-1"), now)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := cache.AddInst(inst, []byte("payload"), now, now); err != nil {
		t.Fatalf("AddInst: %v", err)
	}

	if !cond.matches() {
		t.Fatal("read condition should match once a sample is present")
	}
}

func TestQueryConditionFiltersByContent(t *testing.T) {
	q := qos.Default()
	q.History.Kind = qos.KeepAll
	cache := history.NewCache(q, nil, metrics.EndpointKey{})

	filter, err := sqlfilter.Compile("size > 10", "")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	decode := func(data []byte) sqlfilter.FieldSource {
		return fakeSample{size: int64(len(data))}
	}
	cond := NewQueryCondition(cache, history.AnyMask, filter, decode)

	now := time.Now()
	_, inst, err := cache.Register([]byte("key-1"), now)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := cache.AddInst(inst, []byte("short"), now, now); err != nil {
		t.Fatalf("AddInst: %v", err)
	}
	if cond.matches() {
		t.Fatal("query condition should not match a sample failing the WHERE clause")
	}

	if err := cache.AddInst(inst, []byte("a very long payload indeed"), now, now); err != nil {
		t.Fatalf("AddInst: %v", err)
	}
	if !cond.matches() {
		t.Fatal("query condition should match once a sample satisfies the WHERE clause")
	}
}

type fakeSample struct{ size int64 }

func (f fakeSample) Field(name string) (sqlfilter.Cell, bool) {
	if name == "size" {
		return sqlfilter.IntCell(f.size), true
	}
	return sqlfilter.Cell{}, false
}

func TestWaitSetWaitReturnsImmediatelyWhenAlreadyMatched(t *testing.T) {
	g := NewGuardCondition()
	g.SetTriggerValue(true)

	w := NewWaitSet()
	w.Attach(g)

	active, err := w.Wait(duration.Finite(time.Second))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(active) != 1 || active[0] != Condition(g) {
		t.Fatalf("Wait returned %v, want [g]", active)
	}
}

func TestWaitSetWaitWakesOnSignalFromAnotherGoroutine(t *testing.T) {
	g := NewGuardCondition()
	w := NewWaitSet()
	w.Attach(g)

	done := make(chan []Condition, 1)
	go func() {
		active, err := w.Wait(duration.Infinite())
		if err != nil {
			done <- nil
			return
		}
		done <- active
	}()

	time.Sleep(20 * time.Millisecond)
	g.SetTriggerValue(true)
	w.signal()

	select {
	case active := <-done:
		if len(active) != 1 {
			t.Fatalf("got %d active conditions, want 1", len(active))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not wake within 2s of signal")
	}
}

func TestWaitSetWaitTimesOutWhenNothingMatches(t *testing.T) {
	g := NewGuardCondition()
	w := NewWaitSet()
	w.Attach(g)

	_, err := w.Wait(duration.Finite(10 * time.Millisecond))
	if err == nil {
		t.Fatal("Wait should have timed out")
	}
}

func TestDispatcherResolveWakesAttachedWaitSets(t *testing.T) {
	_, r := newTestGraph(t)
	d := NewDispatcher(nil)
	cond := NewStatusCondition(d, r, MaskOf(SampleRejected))
	w := NewWaitSet()
	w.Attach(cond)
	d.AttachWaitSet(w)

	done := make(chan []Condition, 1)
	go func() {
		active, err := w.Wait(duration.Infinite())
		if err != nil {
			done <- nil
			return
		}
		done <- active
	}()

	time.Sleep(20 * time.Millisecond)
	go func() { <-d.queue }()
	d.Post(Notification{Entity: r, Type: SampleRejected})
	d.Resolve()

	select {
	case active := <-done:
		if len(active) != 1 {
			t.Fatalf("got %d active conditions, want 1", len(active))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waitset did not wake after Dispatcher.Resolve")
	}
}

func TestTopicListenerRoutesInconsistentTopicThroughPost(t *testing.T) {
	d := entity.NewDomain(0, 1024)
	topic, err := d.CreateTopic("Square", "ShapeType", nil, qos.Default())
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	disp := NewDispatcher(nil)
	var got int
	disp.SetListener(topic, ListenerFunc(func(n Notification) {
		if n.Type != InconsistentTopic {
			t.Fatalf("got NotificationType %v, want InconsistentTopic", n.Type)
		}
		got++
	}), MaskOf(InconsistentTopic))

	stop := make(chan struct{})
	go disp.Run(stop)
	defer close(stop)

	if _, err := d.DiscoverTopic("Square", "OtherType", qos.Default(), disp.TopicListener()); err == nil {
		t.Fatal("DiscoverTopic should fail for a mismatched type name")
	}

	deadline := time.After(2 * time.Second)
	for got == 0 {
		select {
		case <-deadline:
			t.Fatal("listener was never invoked")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRunDeliversAndStopsOnClose(t *testing.T) {
	_, r := newTestGraph(t)
	d := NewDispatcher(nil)

	var got int
	d.SetListener(r, ListenerFunc(func(Notification) { got++ }), MaskOf(SampleRejected))

	stop := make(chan struct{})
	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(stop) }()

	d.Post(Notification{Entity: r, Type: SampleRejected})

	time.Sleep(20 * time.Millisecond)
	close(stop)

	if err := <-runErr; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got != 1 {
		t.Fatalf("listener invoked %d times, want 1", got)
	}
}
