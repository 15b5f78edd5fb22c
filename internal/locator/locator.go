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

// Package locator implements the ordered locator list of spec.md §4.2:
// a list of (kind, address, port, scope, flags, sproto) tuples with
// membership testing and flag-masked merge, kept in insertion order.
package locator

// Kind identifies the transport of a Locator, mirroring the RTPS
// LOCATOR_KIND_* constants.
type Kind int32

const (
	KindInvalid Kind = iota - 1
	KindReserved
	KindUDPv4
	KindUDPv6
	KindTCPv4
	KindTCPv6
)

// Flag bits carried on a locator entry. Meta/Multicast let code
// distinguish default-unicast / default-multicast / meta-unicast /
// meta-multicast locator lists without re-deriving it from which field
// they came from. internal/plcdr's reader/writer parsers set
// FlagMulticast on multicast locators; nothing outside tests sets
// FlagMeta.
type Flag uint32

const (
	FlagMeta Flag = 1 << iota
	FlagMulticast
)

// Address is a 16-byte locator address (IPv4-mapped or native IPv6),
// matching the RTPS wire Locator_t layout.
type Address [16]byte

// Node is one entry in a locator list.
type Node struct {
	Kind    Kind
	Addr    Address
	Port    uint32
	Scope   uint8
	Flags   Flag
	SProto  uint8 // security/transport sub-protocol, opaque here
}

func (n Node) key() (Kind, Address, uint32) { return n.Kind, n.Addr, n.Port }

// List is an ordered set of Nodes, kept in insertion order as spec.md
// §4.2 requires (iteration order == insertion order).
type List struct {
	nodes []Node
}

// Add inserts (kind, addr, port, scope, flags, sproto) if no node with
// the same (kind, addr, port) exists yet; otherwise it OR-merges flags
// into the existing node. It returns the resident node.
func (l *List) Add(kind Kind, addr Address, port uint32, scope uint8, flags Flag, sproto uint8) *Node {
	want := Node{Kind: kind, Addr: addr, Port: port}
	for i := range l.nodes {
		if l.nodes[i].key() == want.key() {
			l.nodes[i].Flags |= flags
			return &l.nodes[i]
		}
	}
	l.nodes = append(l.nodes, Node{
		Kind: kind, Addr: addr, Port: port,
		Scope: scope, Flags: flags, SProto: sproto,
	})
	return &l.nodes[len(l.nodes)-1]
}

// Contains reports whether (kind, addr, port) is present.
func (l *List) Contains(kind Kind, addr Address, port uint32) bool {
	want := Node{Kind: kind, Addr: addr, Port: port}
	for i := range l.nodes {
		if l.nodes[i].key() == want.key() {
			return true
		}
	}
	return false
}

// FlagsSet ORs or clears mask across every node in the list, depending
// on value.
func (l *List) FlagsSet(mask Flag, value bool) {
	for i := range l.nodes {
		if value {
			l.nodes[i].Flags |= mask
		} else {
			l.nodes[i].Flags &^= mask
		}
	}
}

// Nodes returns the list contents in insertion order. The returned
// slice must not be mutated by the caller.
func (l *List) Nodes() []Node {
	return l.nodes
}

// Len returns the number of distinct locators in the list.
func (l *List) Len() int {
	return len(l.nodes)
}

// Clone returns a deep copy of the list.
func (l *List) Clone() *List {
	clone := &List{nodes: make([]Node, len(l.nodes))}
	copy(clone.nodes, l.nodes)
	return clone
}

// DeleteList empties the list. Named to match spec.md §4.2's
// delete_list operation; Go's GC makes the explicit free unnecessary,
// but the operation is kept so callers that track "list reset" intent
// (e.g. replacing a participant's locator set wholesale on an updated
// ParticipantData) have a single spelling for it.
func (l *List) DeleteList() {
	l.nodes = nil
}
