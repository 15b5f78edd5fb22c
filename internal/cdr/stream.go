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

package cdr

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Writer accumulates a CDR-encoded buffer, tracking the offset from
// the stream's start so every Append* call can align multi-byte
// fields to their natural width relative to a 4-byte start offset,
// per spec.md §6.
type Writer struct {
	buf   []byte
	order binary.ByteOrder
}

// NewWriter returns a Writer that encodes under enc's byte order.
func NewWriter(enc Encapsulation) *Writer {
	return &Writer{order: byteOrder(enc)}
}

func byteOrder(enc Encapsulation) binary.ByteOrder {
	if enc.LittleEndian() {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the current buffer length.
func (w *Writer) Len() int { return len(w.buf) }

// align pads the buffer with zero bytes until its length is a
// multiple of n.
func (w *Writer) align(n int) {
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) U8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

func (w *Writer) U16(v uint16) {
	w.align(2)
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) U32(v uint32) {
	w.align(4)
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) U64(v uint64) {
	w.align(8)
	var b [8]byte
	w.order.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) I32(v int32) { w.U32(uint32(v)) }
func (w *Writer) I64(v int64) { w.U64(uint64(v)) }

// String writes a CDR string: {len: u32 including trailing NUL, bytes,
// pad to 4}, per spec.md §4.4's string-parameter layout.
func (w *Writer) String(s string) {
	w.U32(uint32(len(s) + 1))
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	w.align(4)
}

// OpaqueSeq writes a length-prefixed opaque byte sequence: {len: u32,
// bytes, pad to 4}.
func (w *Writer) OpaqueSeq(b []byte) {
	w.U32(uint32(len(b)))
	w.buf = append(w.buf, b...)
	w.align(4)
}

// Raw appends b with no length prefix, no padding, and no alignment —
// used by callers that manage their own framing (e.g. plcdr's
// parameter-list value field, which is already length-prefixed by the
// enclosing {pid, length} header).
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Reader walks a CDR-encoded buffer, tracking its own offset so
// alignment can be computed the same way Writer does.
type Reader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

// NewReader returns a Reader over buf, decoding under enc's byte order.
func NewReader(buf []byte, enc Encapsulation) *Reader {
	return &Reader{buf: buf, order: byteOrder(enc)}
}

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) align(n int) {
	for r.pos%n != 0 && r.pos < len(r.buf) {
		r.pos++
	}
}

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return errors.Errorf("cdr: short buffer: need %d bytes at offset %d, have %d", n, r.pos, len(r.buf))
	}
	return nil
}

func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) Bool() (bool, error) {
	v, err := r.U8()
	return v != 0, err
}

func (r *Reader) U16() (uint16, error) {
	r.align(2)
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := r.order.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) U32() (uint32, error) {
	r.align(4)
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.order.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) U64() (uint64, error) {
	r.align(8)
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := r.order.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// String reads a CDR string: {len: u32 including trailing NUL, bytes,
// pad to 4}, the inverse of Writer.String.
func (r *Reader) String() (string, error) {
	n, err := r.U32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+int(n)-1])
	r.pos += int(n)
	r.align(4)
	return s, nil
}

// OpaqueSeq reads a length-prefixed opaque byte sequence: {len: u32,
// bytes, pad to 4}.
func (r *Reader) OpaqueSeq() ([]byte, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	r.align(4)
	return b, nil
}

// Raw reads n raw bytes with no length prefix, no padding, and no
// alignment — the inverse of Writer.Raw.
func (r *Reader) Raw(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}
