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

package sqlfilter

import (
	"encoding/binary"
	"math"

	"github.com/heptio-dds/ddscore/internal/ddserr"
)

// maxStack bounds the evaluation stack, the Go analogue of
// bytecode.h's BC_ERR_STKOVFL: a malformed or pathologically deep
// program fails closed with BadParameter rather than growing without
// bound.
const maxStack = 64

// Interpret runs program against a single sample (the `bc_interpret`
// entry point of spec.md §4.5, restricted to this module's one-sample
// case; two-sample join filters are out of scope — see
// original_source's O_DS0/O_DS1/O_CREF/O_TREF, which a join filter
// would need and this interpreter does not implement).
func Interpret(program *Program, params []Cell, sample FieldSource) (Cell, error) {
	if program == nil {
		return Cell{}, ddserr.BadParam(nil)
	}

	var stack [maxStack]Cell
	sp := 0
	push := func(c Cell) error {
		if sp >= maxStack {
			return ddserr.New(ddserr.BadParameter, errStackOverflow)
		}
		stack[sp] = c
		sp++
		return nil
	}
	pop := func() (Cell, error) {
		if sp == 0 {
			return Cell{}, ddserr.New(ddserr.BadParameter, errStackUnderflow)
		}
		sp--
		return stack[sp], nil
	}

	code := program.Code
	pc := 0
	for pc < len(code) {
		op := Op(code[pc])
		pc++

		if op <= opImmediateMax {
			v := int64(op)
			if v > 63 {
				v -= 128
			}
			if err := push(IntCell(v)); err != nil {
				return Cell{}, err
			}
			continue
		}

		switch op {
		case opLCL:
			if pc+8 > len(code) {
				return Cell{}, ddserr.BadParam(errTruncated)
			}
			v := int64(binary.BigEndian.Uint64(code[pc : pc+8]))
			pc += 8
			if err := push(IntCell(v)); err != nil {
				return Cell{}, err
			}

		case opLCD:
			if pc+8 > len(code) {
				return Cell{}, ddserr.BadParam(errTruncated)
			}
			bits := binary.BigEndian.Uint64(code[pc : pc+8])
			pc += 8
			if err := push(FloatCell(math.Float64frombits(bits))); err != nil {
				return Cell{}, err
			}

		case opLCS:
			if pc >= len(code) {
				return Cell{}, ddserr.BadParam(errTruncated)
			}
			idx := int(code[pc])
			pc++
			if idx >= len(program.Strings) {
				return Cell{}, ddserr.New(ddserr.BadParameter, errBadOperand)
			}
			if err := push(StringCell(program.Strings[idx])); err != nil {
				return Cell{}, err
			}

		case opLDI, opLDU, opLDD, opLDS:
			if pc >= len(code) {
				return Cell{}, ddserr.BadParam(errTruncated)
			}
			idx := int(code[pc])
			pc++
			if idx >= len(program.Fields) {
				return Cell{}, ddserr.New(ddserr.BadParameter, errBadOperand)
			}
			if sample == nil {
				return Cell{}, ddserr.New(ddserr.BadParameter, errNoSample)
			}
			cell, ok := sample.Field(program.Fields[idx])
			if !ok {
				return Cell{}, ddserr.New(ddserr.AlreadyDeleted, errUnknownField)
			}
			if err := push(cell); err != nil {
				return Cell{}, err
			}

		case opLPAR:
			if pc >= len(code) {
				return Cell{}, ddserr.BadParam(errTruncated)
			}
			idx := int(code[pc])
			pc++
			if idx >= len(params) {
				return Cell{}, ddserr.New(ddserr.BadParameter, errMissingParam)
			}
			if err := push(params[idx]); err != nil {
				return Cell{}, err
			}

		case opCMPEQ, opCMPNE, opCMPGT, opCMPGE, opCMPLT, opCMPLE:
			b, err := pop()
			if err != nil {
				return Cell{}, err
			}
			a, err := pop()
			if err != nil {
				return Cell{}, err
			}
			cmp := a.Compare(b)
			var result bool
			switch op {
			case opCMPEQ:
				result = cmp == 0
			case opCMPNE:
				result = cmp != 0
			case opCMPGT:
				result = cmp > 0
			case opCMPGE:
				result = cmp >= 0
			case opCMPLT:
				result = cmp < 0
			case opCMPLE:
				result = cmp <= 0
			}
			if err := push(boolCell(result)); err != nil {
				return Cell{}, err
			}

		case opBTW:
			hi, err := pop()
			if err != nil {
				return Cell{}, err
			}
			lo, err := pop()
			if err != nil {
				return Cell{}, err
			}
			val, err := pop()
			if err != nil {
				return Cell{}, err
			}
			in := val.Compare(lo) >= 0 && val.Compare(hi) <= 0
			if err := push(boolCell(in)); err != nil {
				return Cell{}, err
			}

		case opLIKE:
			pattern, err := pop()
			if err != nil {
				return Cell{}, err
			}
			val, err := pop()
			if err != nil {
				return Cell{}, err
			}
			if err := push(boolCell(sqlLike(val.S, pattern.S))); err != nil {
				return Cell{}, err
			}

		case opAND:
			b, err := pop()
			if err != nil {
				return Cell{}, err
			}
			a, err := pop()
			if err != nil {
				return Cell{}, err
			}
			if err := push(boolCell(a.I != 0 && b.I != 0)); err != nil {
				return Cell{}, err
			}

		case opOR:
			b, err := pop()
			if err != nil {
				return Cell{}, err
			}
			a, err := pop()
			if err != nil {
				return Cell{}, err
			}
			if err := push(boolCell(a.I != 0 || b.I != 0)); err != nil {
				return Cell{}, err
			}

		case opNOTB:
			a, err := pop()
			if err != nil {
				return Cell{}, err
			}
			if err := push(boolCell(a.I == 0)); err != nil {
				return Cell{}, err
			}

		case opCONCAT:
			b, err := pop()
			if err != nil {
				return Cell{}, err
			}
			a, err := pop()
			if err != nil {
				return Cell{}, err
			}
			if err := push(StringCell(a.String() + "\x1f" + b.String())); err != nil {
				return Cell{}, err
			}

		case opRETC:
			a, err := pop()
			if err != nil {
				return Cell{}, err
			}
			return boolCell(a.I != 0), nil

		case opRETT:
			return boolCell(true), nil

		case opRETF:
			return boolCell(false), nil

		case opRET:
			return pop()

		case opNOP:
			// no-op

		default:
			return Cell{}, ddserr.New(ddserr.Unsupported, errBadOpcode)
		}
	}
	return Cell{}, ddserr.New(ddserr.BadParameter, errNoReturn)
}

func boolCell(b bool) Cell {
	if b {
		return IntCell(1)
	}
	return IntCell(0)
}

// sqlLike implements SQL LIKE with '%' (any run of characters) and '_'
// (any single character) wildcards, the two the original grammar's
// O_LIKE opcode supports.
func sqlLike(s, pattern string) bool {
	return likeMatch(s, pattern)
}

func likeMatch(s, pattern string) bool {
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '%':
		rest := pattern[1:]
		if rest == "" {
			return true
		}
		for i := 0; i <= len(s); i++ {
			if likeMatch(s[i:], rest) {
				return true
			}
		}
		return false
	case '_':
		if s == "" {
			return false
		}
		return likeMatch(s[1:], pattern[1:])
	default:
		if s == "" || s[0] != pattern[0] {
			return false
		}
		return likeMatch(s[1:], pattern[1:])
	}
}

var (
	errStackOverflow  = simpleErr("sqlfilter: evaluation stack overflow")
	errStackUnderflow = simpleErr("sqlfilter: evaluation stack underflow")
	errTruncated      = simpleErr("sqlfilter: truncated bytecode operand")
	errBadOperand     = simpleErr("sqlfilter: operand index out of range")
	errNoSample       = simpleErr("sqlfilter: field load with no sample bound")
	errUnknownField   = simpleErr("sqlfilter: unknown field")
	errMissingParam   = simpleErr("sqlfilter: missing bound parameter")
	errBadOpcode      = simpleErr("sqlfilter: unrecognized opcode")
	errNoReturn       = simpleErr("sqlfilter: program fell off the end without returning")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
