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

package entity

import (
	"sync"

	"github.com/heptio-dds/ddscore/internal/cdr"
	"github.com/heptio-dds/ddscore/internal/ddserr"
	"github.com/heptio-dds/ddscore/internal/qos"
	"github.com/heptio-dds/ddscore/internal/sqlfilter"
)

// typeRecord is the interned {name, refcount, typesupport} spec.md §3
// describes for Type, shared by every Topic of the same type name in
// one domain.
type typeRecord struct {
	name        string
	typeSupport cdr.TypeSupport
	refs        int
}

// FilterData is the content-filter descriptor a FilteredTopic carries,
// grounded on spec.md §3's FilterData shape. The compiled filter
// itself lives in internal/sqlfilter, reached via Program; nil until
// internal/sqlfilter.Compile runs over Expression.
type FilterData struct {
	Name        string
	RelatedName string
	ClassName   string
	Expression  string
	Parameters  []string
	Program     *sqlfilter.Filter // set once internal/sqlfilter.Compile runs over Expression
}

// Topic is spec.md §3's Topic entity: a name, an interned type, QoS,
// reader/writer membership lists, and the local/remote reference
// counts that gate its deletion.
type Topic struct {
	Header

	mu sync.Mutex

	domain *Domain
	Name   string
	typ    *typeRecord
	Qos    qos.UniQos

	readers []*Reader
	writers []*Writer

	localRefCount  int
	remoteRefCount int

	// Filter is non-nil for a FilteredTopic; Parent names the topic it
	// filters. A FilteredTopic is otherwise an ordinary Topic sharing
	// the same type and domain-wide name index.
	Filter *FilterData
	Parent *Topic
}

// TypeName returns the topic's registered type name.
func (t *Topic) TypeName() string { return t.typ.name }

// InconsistentTopicListener is notified when a remote topic
// advertisement names an existing local topic with a different type,
// per spec.md §4.7's "Discovery ... if the topic already existed with
// a different type name an InconsistentTopic notification is fired."
// internal/dispatch supplies the concrete implementation; tests may
// supply a closure directly.
type InconsistentTopicListener interface {
	InconsistentTopic(t *Topic)
}

// CreateTopic creates or reuses a local topic, per spec.md §4.7's
// "checks uniqueness where required (topic name uniqueness in a
// domain)" and the supplemented local-type-consistency rule from
// original_source/dds/src/dcps/dcps_topic.c: a create with an existing
// name but a different type is rejected locally with
// INCONSISTENT_POLICY rather than silently allowed to proceed (the
// remote case is DiscoverTopic's InconsistentTopic notification
// below).
func (d *Domain) CreateTopic(name, typeName string, ts cdr.TypeSupport, q qos.UniQos) (*Topic, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.lookupTopicLocked(name); ok {
		if existing.typ.name != typeName {
			return nil, ddserr.InconsistentPolicyErr(nil)
		}
		existing.mu.Lock()
		existing.localRefCount++
		existing.mu.Unlock()
		return existing, nil
	}

	typ := d.internType(typeName, ts)
	t := &Topic{
		Header:        Header{kind: KindTopic, flags: FlagLocal},
		domain:        d,
		Name:          name,
		typ:           typ,
		Qos:           q,
		localRefCount: 1,
	}
	h, err := d.handles.Assign(t)
	if err != nil {
		typ.refs--
		return nil, ddserr.OutOfResourcesErr(err)
	}
	t.handle = h
	d.topics.ReplaceOrInsert(t)
	return t, nil
}

// DiscoverTopic discovers or reuses a topic by name from a remote
// advertisement. When a topic of the same name already exists with a
// different type, listener.InconsistentTopic fires (if listener is
// non-nil) and the existing topic's remote reference count is left
// untouched — the remote endpoint naming it cannot be matched, per
// spec.md §4.7.
func (d *Domain) DiscoverTopic(name, typeName string, q qos.UniQos, listener InconsistentTopicListener) (*Topic, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.lookupTopicLocked(name); ok {
		if existing.typ.name != typeName {
			if listener != nil {
				listener.InconsistentTopic(existing)
			}
			return nil, ddserr.InconsistentPolicyErr(nil)
		}
		existing.mu.Lock()
		existing.remoteRefCount++
		existing.mu.Unlock()
		return existing, nil
	}

	typ := d.internType(typeName, nil)
	t := &Topic{
		Header:         Header{kind: KindTopic, flags: FlagRemote},
		domain:         d,
		Name:           name,
		typ:            typ,
		Qos:            q,
		remoteRefCount: 1,
	}
	h, err := d.handles.Assign(t)
	if err != nil {
		typ.refs--
		return nil, ddserr.OutOfResourcesErr(err)
	}
	t.handle = h
	d.topics.ReplaceOrInsert(t)
	return t, nil
}

// DeleteTopic drops one local reference. The topic is removed from
// the domain's index only once both local and remote reference counts
// reach zero and no endpoint still references it, per spec.md §3's
// invariant.
func (d *Domain) DeleteTopic(t *Topic) error {
	t.mu.Lock()
	if t.localRefCount == 0 {
		t.mu.Unlock()
		return ddserr.PreconditionErr(nil)
	}
	t.localRefCount--
	t.mu.Unlock()

	d.reapTopicIfDead(t)
	return nil
}

// reapTopicIfDead removes t from the domain's index once both
// reference counts have reached zero and no endpoint still references
// it (spec.md §3's invariant), whether that last condition was
// reached by a DeleteTopic call or by the last Writer/Reader on t
// being deleted.
func (d *Domain) reapTopicIfDead(t *Topic) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t.mu.Lock()
	dead := t.localRefCount == 0 && t.remoteRefCount == 0 && len(t.readers) == 0 && len(t.writers) == 0
	t.mu.Unlock()
	if !dead {
		return
	}

	d.topics.Delete(t)
	d.handles.Free(t.handle)
	t.typ.refs--
	if t.typ.refs <= 0 {
		delete(d.types, t.typ.name)
	}
}

func (d *Domain) lookupTopicLocked(name string) (*Topic, bool) {
	return d.topics.Get(&Topic{Name: name})
}

func (d *Domain) internType(name string, ts cdr.TypeSupport) *typeRecord {
	if rec, ok := d.types[name]; ok {
		rec.refs++
		return rec
	}
	rec := &typeRecord{name: name, typeSupport: ts, refs: 1}
	d.types[name] = rec
	return rec
}
