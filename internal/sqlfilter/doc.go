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

// Package sqlfilter implements spec.md §4.5: a scanner and recursive
// descent parser for the SQL92 subset used by DDS content filters and
// query conditions, a compiler from the parsed expression into a fixed
// bytecode instruction set, and a stack-based interpreter for that
// bytecode. It is grounded on original_source/dds/src/sql/scan.{c,h}
// for the token/keyword set and original_source/dds/src/include/bytecode.h
// for the opcode space.
//
// One deliberate departure from the original: bytecode.h's O_LD*/O_FOFS
// pair walks a field out of a raw marshalled CDR buffer at a fixed byte
// offset, because the original typesupport is a runtime typecode
// descriptor that knows every field's layout. This module's
// internal/cdr.TypeSupport is the Go-idiomatic opposite — each sample
// type owns its own Marshal/Unmarshal — so there is no generic byte
// layout to offset into. Samples handed to the interpreter instead
// implement FieldSource, and the compiler resolves WHERE-clause column
// names to FieldSource lookups at compile time rather than to byte
// offsets. The opcode encoding, stack discipline, and grammar are
// otherwise unchanged.
package sqlfilter

// FieldSource is implemented by whatever the filter is evaluated
// against (typically a decoded sample payload) to resolve an
// identifier named in a WHERE/ORDER BY clause to a Cell.
type FieldSource interface {
	Field(name string) (Cell, bool)
}
