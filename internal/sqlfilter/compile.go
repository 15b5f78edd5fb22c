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
	"fmt"
	"math"
)

// Program is a compiled bytecode routine plus the side tables its LCS/
// LDx opcodes index into: original_source/dds/src/include/bytecode.h's
// BCProgram narrowed to what this interpreter needs (no separate
// start/buffer split, since Go slices already carry their own bounds).
type Program struct {
	Code    []byte
	Strings []string
	Fields  []string
	NParams int
}

type compiler struct {
	code    []byte
	strings []string
	fields  map[string]int
	fieldsOrdered []string
	maxParam int
}

func newCompiler() *compiler {
	return &compiler{fields: make(map[string]int)}
}

func (c *compiler) emit(op Op)               { c.code = append(c.code, byte(op)) }
func (c *compiler) emitByte(b byte)           { c.code = append(c.code, b) }
func (c *compiler) emitI64(op Op, v int64) {
	if v >= -64 && v <= 63 {
		c.emitByte(byte(v & 0x7f))
		return
	}
	c.emit(opLCL)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	c.code = append(c.code, buf[:]...)
}

func (c *compiler) emitFloat(v float64) {
	c.emit(opLCD)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	c.code = append(c.code, buf[:]...)
}

func (c *compiler) emitString(s string) {
	c.emit(opLCS)
	c.emitByte(byte(c.internString(s)))
}

func (c *compiler) internString(s string) int {
	for i, existing := range c.strings {
		if existing == s {
			return i
		}
	}
	c.strings = append(c.strings, s)
	return len(c.strings) - 1
}

func (c *compiler) fieldIndex(name string) int {
	if i, ok := c.fields[name]; ok {
		return i
	}
	i := len(c.fieldsOrdered)
	c.fields[name] = i
	c.fieldsOrdered = append(c.fieldsOrdered, name)
	return i
}

// compileMatch turns a condition AST into a match Program: evaluating
// it against a FieldSource and a parameter list pushes exactly one 0/1
// cell onto the stack, returned via RETC.
func compileMatch(cond exprNode) (*Program, error) {
	c := newCompiler()
	if err := c.compileBool(cond); err != nil {
		return nil, err
	}
	c.emit(opRETC)
	return c.finish(), nil
}

// compileOrder turns an ORDER BY column list into an order Program:
// each column is loaded and, past the first, concatenated onto the
// running key via opCONCAT, and the composite Cell is returned via
// RET. An empty column list compiles to a program that always returns
// the same constant key (stable, order-preserving no-op).
func compileOrder(columns []string) (*Program, error) {
	c := newCompiler()
	if len(columns) == 0 {
		c.emitI64(opLCL, 0)
	} else {
		for i, name := range columns {
			c.emitLoadField(name)
			if i > 0 {
				c.emit(opCONCAT)
			}
		}
	}
	c.emit(opRET)
	return c.finish(), nil
}

func (c *compiler) finish() *Program {
	return &Program{
		Code:    c.code,
		Strings: c.strings,
		Fields:  c.fieldsOrdered,
		NParams: c.maxParam,
	}
}

func (c *compiler) emitLoadField(name string) {
	// Field width is unknown until runtime (FieldSource reports its
	// own Cell.Kind); opLDI is used as a generic "load named field"
	// marker and the interpreter trusts whatever Kind FieldSource
	// hands back rather than coercing to the opcode's nominal width.
	c.emit(opLDI)
	c.emitByte(byte(c.fieldIndex(name)))
}

func (c *compiler) compileValue(v valueNode) error {
	switch n := v.(type) {
	case fieldRef:
		c.emitLoadField(n.name)
	case literalValue:
		switch n.cell.Kind {
		case CellInt:
			c.emitI64(opLCL, n.cell.I)
		case CellFloat:
			c.emitFloat(n.cell.F)
		case CellString:
			c.emitString(n.cell.S)
		default:
			return fmt.Errorf("sqlfilter: unsupported literal kind %v", n.cell.Kind)
		}
	case paramRef:
		if n.idx+1 > c.maxParam {
			c.maxParam = n.idx + 1
		}
		c.emit(opLPAR)
		c.emitByte(byte(n.idx))
	default:
		return fmt.Errorf("sqlfilter: unknown value node %T", v)
	}
	return nil
}

// compileBool emits code that leaves exactly one 0/1 cell on the stack.
func (c *compiler) compileBool(n exprNode) error {
	switch e := n.(type) {
	case trueNode:
		c.emitI64(opLCL, 1)
		return nil

	case andNode:
		if err := c.compileBool(e.left); err != nil {
			return err
		}
		if err := c.compileBool(e.right); err != nil {
			return err
		}
		c.emit(opAND)
		return nil

	case orNode:
		if err := c.compileBool(e.left); err != nil {
			return err
		}
		if err := c.compileBool(e.right); err != nil {
			return err
		}
		c.emit(opOR)
		return nil

	case notNode:
		if err := c.compileBool(e.x); err != nil {
			return err
		}
		c.emit(opNOTB)
		return nil

	case cmpNode:
		if err := c.compileValue(e.left); err != nil {
			return err
		}
		if err := c.compileValue(e.right); err != nil {
			return err
		}
		switch e.op {
		case tkEq:
			c.emit(opCMPEQ)
		case tkNe:
			c.emit(opCMPNE)
		case tkGt:
			c.emit(opCMPGT)
		case tkGe:
			c.emit(opCMPGE)
		case tkLt:
			c.emit(opCMPLT)
		case tkLe:
			c.emit(opCMPLE)
		default:
			return fmt.Errorf("sqlfilter: unsupported comparison operator")
		}
		return nil

	case betweenNode:
		if err := c.compileValue(e.val); err != nil {
			return err
		}
		if err := c.compileValue(e.lo); err != nil {
			return err
		}
		if err := c.compileValue(e.hi); err != nil {
			return err
		}
		c.emit(opBTW)
		if e.negate {
			c.emit(opNOTB)
		}
		return nil

	case likeNode:
		if err := c.compileValue(e.val); err != nil {
			return err
		}
		if err := c.compileValue(e.pattern); err != nil {
			return err
		}
		c.emit(opLIKE)
		if e.negate {
			c.emit(opNOTB)
		}
		return nil
	}
	return fmt.Errorf("sqlfilter: unknown expression node %T", n)
}
