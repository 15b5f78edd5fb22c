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
	"fmt"
	"strings"
)

// Op is a single bytecode instruction. The opcode space below 0x80 is
// reserved for small signed immediates in the low 7 bits (values
// -64..63), exactly as bytecode.h documents for O_LCI; everything from
// 0x80 up names one of the explicit operations below.
//
// This VM departs from bytecode.h's branch-based boolean evaluation
// (compare, then O_BEQ/O_BNE/... to fall through to a RET): since
// filter predicates here are pure reads of an already-decoded sample
// (no side effects to order), AND/OR/NOT and each comparison compile
// to direct stack operations that push a 0/1 result, rather than
// conditional jumps. This keeps the compiler a single postfix emission
// pass with no backpatching, at the cost of always evaluating both
// operands of AND/OR (no short-circuiting) — acceptable because
// evaluating an extra FieldSource.Field lookup has no observable
// effect. The original's branch opcodes are kept below for the
// disassembler and for fidelity to the documented opcode space.
type Op byte

const (
	opImmediateMax Op = 0x7f // anything <= this is an O_LCI immediate

	// Load constant, value follows the opcode.
	opLCBU Op = 0x80
	opLCBS Op = 0x81
	opLCWU Op = 0x84
	opLCWS Op = 0x85
	opLCL  Op = 0x86
	opLCD  Op = 0x88
	opLCS  Op = 0x8a // string constant; operand is an index into the program's string table

	// Load named field (this implementation's stand-in for the
	// original's O_FOFS + O_LD* payload-offset walk: see doc.go for
	// why field lookup goes through FieldSource by name instead of a
	// raw marshalled-byte offset). Operand is a 1-byte index into the
	// program's field-name table.
	opLDI Op = 0x94 // int64 field
	opLDU Op = 0x95 // uint64 field
	opLDD Op = 0x98 // float64 field
	opLDS Op = 0x9a // string field

	// Load bound parameter. Operand is the parameter index (%0..%99).
	opLPAR Op = 0xa4

	// Comparisons: pop two cells, push a 0/1 result. Kind dispatch
	// happens at runtime via Cell.Compare, collapsing the original's
	// per-width CMPWU/CMPWS/CMPLU/.../CMPS family onto one family of
	// six (one per relational operator).
	opCMPEQ Op = 0xb0
	opCMPNE Op = 0xb1
	opCMPGT Op = 0xb2
	opCMPGE Op = 0xb3
	opCMPLT Op = 0xb4
	opCMPLE Op = 0xb5

	// Between: pop hi, lo, val (in that push order); push 1 if val in
	// [lo,hi] else 0.
	opBTW Op = 0xb7
	// Like: pop pattern, val; push 1 on SQL LIKE match else 0.
	opLIKE Op = 0xbd

	// Boolean composition: pop two 0/1 cells, push their AND/OR.
	opAND Op = 0xe8
	opOR  Op = 0xe9

	// Order-key composition: pop two cells, push their string-form
	// concatenation (used to fold a multi-column ORDER BY list into
	// the single Cell an order program returns).
	opCONCAT Op = 0xea

	// Unary boolean negation.
	opNOTB Op = 0xcf

	// Branches, operand is an absolute code offset (2 bytes,
	// big-endian). Kept for opcode-space fidelity; this compiler's
	// direct boolean-stack codegen never emits them.
	opBEQ Op = 0xc0
	opBNE Op = 0xc1
	opBGT Op = 0xc2
	opBLE Op = 0xc3
	opBLT Op = 0xc4
	opBGE Op = 0xc5
	opBT  Op = 0xc8
	opBF  Op = 0xc9

	// Returns.
	opRET  Op = 0xf0 // return top-of-stack cell (order program)
	opRETC Op = 0xf1 // return top-of-stack 0/1 cell as a bool (match program)
	opRETT Op = 0xf2 // return true unconditionally
	opRETF Op = 0xf3 // return false unconditionally

	opNOP Op = 0xff
)

// opName supports Dump's disassembly; unused outside tests and
// diagnostics, same role as the original's bc_dump.
var opName = map[Op]string{
	opLCBU: "LCBU", opLCBS: "LCBS", opLCWU: "LCWU", opLCWS: "LCWS",
	opLCL: "LCL", opLCD: "LCD", opLCS: "LCS",
	opLDI: "LDI", opLDU: "LDU", opLDD: "LDD", opLDS: "LDS",
	opLPAR:  "LPAR",
	opCMPEQ: "CMPEQ", opCMPNE: "CMPNE", opCMPGT: "CMPGT",
	opCMPGE: "CMPGE", opCMPLT: "CMPLT", opCMPLE: "CMPLE",
	opBTW: "BTW", opLIKE: "LIKE",
	opAND: "AND", opOR: "OR", opNOTB: "NOTB", opCONCAT: "CONCAT",
	opBEQ: "BEQ", opBNE: "BNE", opBGT: "BGT", opBLE: "BLE", opBLT: "BLT", opBGE: "BGE",
	opBT: "BT", opBF: "BF",
	opRET: "RET", opRETC: "RETC", opRETT: "RETT", opRETF: "RETF",
	opNOP: "NOP",
}

// operandWidths gives the fixed operand length (in bytes, after the
// opcode byte itself) for every instruction Dump needs to step over.
var operandWidths = map[Op]int{
	opLCL: 8, opLCD: 8,
	opLCS: 1, opLDI: 1, opLDU: 1, opLDD: 1, opLDS: 1, opLPAR: 1,
}

// Dump disassembles program.Code into a human-readable listing, the
// Go counterpart of bytecode.h's bc_dump: one line per instruction,
// with its string/field-table operand resolved where applicable.
func Dump(program *Program) string {
	var out strings.Builder
	pc := 0
	for pc < len(program.Code) {
		op := Op(program.Code[pc])
		start := pc
		pc++

		if op <= opImmediateMax {
			v := int64(op)
			if v > 63 {
				v -= 128
			}
			fmt.Fprintf(&out, "%04d  LCI %d\n", start, v)
			continue
		}

		name, ok := opName[op]
		if !ok {
			fmt.Fprintf(&out, "%04d  ??? (0x%02x)\n", start, byte(op))
			continue
		}

		width := operandWidths[op]
		if pc+width > len(program.Code) {
			fmt.Fprintf(&out, "%04d  %s <truncated>\n", start, name)
			break
		}
		operand := program.Code[pc : pc+width]
		pc += width

		switch {
		case op == opLCS && int(operand[0]) < len(program.Strings):
			fmt.Fprintf(&out, "%04d  %s %q\n", start, name, program.Strings[operand[0]])
		case (op == opLDI || op == opLDU || op == opLDD || op == opLDS) && int(operand[0]) < len(program.Fields):
			fmt.Fprintf(&out, "%04d  %s %s\n", start, name, program.Fields[operand[0]])
		case width > 0:
			fmt.Fprintf(&out, "%04d  %s %v\n", start, name, operand)
		default:
			fmt.Fprintf(&out, "%04d  %s\n", start, name)
		}
	}
	return out.String()
}
