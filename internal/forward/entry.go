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

package forward

import (
	"sync"

	"github.com/heptio-dds/ddscore/internal/locator"
)

// Prefix is the 12-byte GUID prefix rtps_ft.h's ft_entry_st.guid_prefix
// keys a forwarding entry by.
type Prefix [12]byte

// Mode is one of the four discovery-locator axes rtps_ft.h's Mode_t
// enumerates: which participant-discovery phase (meta vs. user
// traffic) and cast kind (multicast vs. unicast) a locator list
// belongs to.
type Mode int

const (
	MetaMulticast Mode = iota
	MetaUnicast
	UserMulticast
	UserUnicast
)

const modeCount = int(UserUnicast) + 1

// reply selects which of a Mode's two locator lists (destination or
// reply) a lookup wants, rtps_ft.h's locs[mode][reply] second axis.
type reply int

const (
	dest reply = iota
	replyTo
)

// Entry is one forwarding-table row: the GUID prefix it was filed
// under, its owning domain index, its TTL state, and its place in the
// parent/child tree ft_dispose walks on expiry. Flags/Local mirror
// ft_entry_st's same-named fields; LTF_AGE is implicit here since
// every Entry this package creates is eligible for ageing.
type Entry struct {
	mu sync.Mutex

	Prefix Prefix
	Domain uint32
	Flags  uint32
	Local  bool

	locs [modeCount][2]locator.List

	parent   *Entry
	children map[Prefix]*Entry
}

func newEntry(prefix Prefix, domain uint32, flags uint32, parent *Entry) *Entry {
	e := &Entry{
		Prefix:   prefix,
		Domain:   domain,
		Flags:    flags,
		parent:   parent,
		children: make(map[Prefix]*Entry),
	}
	return e
}

// Parent returns e's parent entry, or nil for a root entry.
func (e *Entry) Parent() *Entry { return e.parent }

// ChildCount reports how many entries currently name e as their
// parent, ft_entry_st.nchildren.
func (e *Entry) ChildCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.children)
}

// AddLocator records a locator for mode, on the destination list when
// isReply is false or the reply list when true, ft_add_locator's
// distinction between locs[m][0] and locs[m][1].
func (e *Entry) AddLocator(m Mode, isReply bool, kind locator.Kind, addr locator.Address, port uint32, scope uint8, flags locator.Flag, sproto uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locs[m][replyIndex(isReply)].Add(kind, addr, port, scope, flags, sproto)
}

// Locators returns the locator nodes recorded for mode/isReply.
func (e *Entry) Locators(m Mode, isReply bool) []locator.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locs[m][replyIndex(isReply)].Nodes()
}

func replyIndex(isReply bool) reply {
	if isReply {
		return replyTo
	}
	return dest
}
