// Package chunk implements the Chunk bytecode container (spec §4.B): an
// opaque byte vector plus a constant pool addressed by 16-bit indices, and
// the variable-length u16 operand encoding used for every register index,
// constant-pool index, and jump target in the instruction stream.
//
// Grounded on the teacher's internal/vm/chunk.go (funvibe/funxy), generalized
// from a fixed 2-byte constant index to the spec's variable-length scheme
// and extended with fixed 8-byte little-endian encode/decode for LOAD_INT /
// LOAD_FLOAT immediates.
package chunk

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/lazypaws/meowvm/internal/value"
)

// Chunk is `{code, constant_pool}` (spec §4.B). SourceName threads through
// for backtraces (spec §7: "each frame's proto source name").
type Chunk struct {
	Code       []byte
	Constants  []value.Value
	SourceName string
}

func New(sourceName string) *Chunk {
	return &Chunk{
		Code:       make([]byte, 0, 64),
		Constants:  make([]value.Value, 0, 8),
		SourceName: sourceName,
	}
}

// AppendByte appends a single opcode or raw byte.
func (c *Chunk) AppendByte(b byte) int {
	c.Code = append(c.Code, b)
	return len(c.Code) - 1
}

// AppendVarU16 appends an unsigned 16-bit value using the spec's
// variable-length encoding: values <= 0x7F take one byte with the top bit
// clear; larger values take two bytes, with the low 7 bits in byte0 (top bit
// set) and the remaining 9 bits in byte1 — i.e.
// full value == (byte0 & 0x7F) | (byte1 << 7).
func (c *Chunk) AppendVarU16(v uint16) {
	if v <= 0x7F {
		c.Code = append(c.Code, byte(v))
		return
	}
	low := byte(v&0x7F) | 0x80
	high := byte(v >> 7)
	c.Code = append(c.Code, low, high)
}

// PatchVarU16At overwrites a var-u16 slot written with a placeholder, in
// place, preserving the original 1-byte/2-byte width recorded by the caller
// (the text parser always reserves 2 bytes for forward jump targets, per
// spec §4.E, so patching always writes the 2-byte form).
func (c *Chunk) PatchVarU16At(offset int, v uint16) {
	low := byte(v&0x7F) | 0x80
	high := byte(v >> 7)
	c.Code[offset] = low
	c.Code[offset+1] = high
}

// AppendPlaceholderU16 always writes the 2-byte placeholder form, for code sites
// (forward jumps) that must be patched later at a known fixed width.
func (c *Chunk) AppendPlaceholderU16() int {
	pos := len(c.Code)
	c.Code = append(c.Code, 0x80, 0) // low=0|cont bit, high=0 -> decodes to 0
	return pos
}

// DecodeVarU16 reads one variable-length u16 starting at offset, returning
// the value and the number of bytes consumed (1 or 2).
func DecodeVarU16(code []byte, offset int) (uint16, int) {
	b0 := code[offset]
	if b0&0x80 == 0 {
		return uint16(b0), 1
	}
	b1 := code[offset+1]
	return uint16(b0&0x7F) | (uint16(b1) << 7), 2
}

// AppendI64 / AppendU64 / AppendF64 write fixed 8-byte little-endian
// encodings (spec §4.B), regardless of host endianness.
func (c *Chunk) AppendI64(v int64)   { c.AppendU64(uint64(v)) }
func (c *Chunk) AppendF64(v float64) { c.AppendU64(math.Float64bits(v)) }
func (c *Chunk) AppendU64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	c.Code = append(c.Code, buf[:]...)
}

func DecodeI64(code []byte, offset int) int64 {
	return int64(DecodeU64(code, offset))
}

func DecodeF64(code []byte, offset int) float64 {
	return math.Float64frombits(DecodeU64(code, offset))
}

func DecodeU64(code []byte, offset int) uint64 {
	return binary.LittleEndian.Uint64(code[offset : offset+8])
}

// AddConstant appends to the constant pool and returns its index. The pool
// is addressed with 16-bit indices (spec §4.B); more than 65536 constants
// in one function is a link error the caller is expected to catch.
func (c *Chunk) AddConstant(v value.Value) (uint16, error) {
	if len(c.Constants) >= 0x10000 {
		return 0, fmt.Errorf("chunk: constant pool overflow (max 65536 entries)")
	}
	c.Constants = append(c.Constants, v)
	return uint16(len(c.Constants) - 1), nil
}

// Constant fetches the constant at idx, bounds-checked.
func (c *Chunk) Constant(idx uint16) (value.Value, error) {
	if int(idx) >= len(c.Constants) {
		return value.Null(), fmt.Errorf("chunk: constant index %d out of range (pool size %d)", idx, len(c.Constants))
	}
	return c.Constants[idx], nil
}

func (c *Chunk) Len() int { return len(c.Code) }
