package transport

import (
	"errors"
	"math"
)

// WordOrder selects how two (or more) consecutive 16-bit registers are
// combined into a wider scalar. Modbus itself only defines the register as
// the atomic unit; which register holds the most significant half of a
// multi-register value, and which byte within a register is most
// significant, is a PLC-vendor convention. The four names below follow the
// common industry shorthand where each letter is a byte of the 32-bit value
// 0x12345678 (A=0x12, B=0x34, C=0x56, D=0x78).
type WordOrder uint8

const (
	// ABCD is big-endian bytes, high word first: registers (0x1234, 0x5678) -> 0x12345678.
	ABCD WordOrder = iota
	// BADC is little-endian bytes within each word, high word first: registers (0x3412, 0x7856) -> 0x12345678.
	BADC
	// CDAB is big-endian bytes, low word first: registers (0x5678, 0x1234) -> 0x12345678.
	CDAB
	// DCBA is little-endian bytes, low word first (true little-endian): registers (0x7856, 0x3412) -> 0x12345678.
	DCBA
)

// ErrEmptyRegisters is returned when a word-order decode is attempted on a zero-length register slice.
var ErrEmptyRegisters = errors.New("transport: no registers to decode")

// ErrRegisterCount is returned when a word-order decode receives the wrong number of registers for the target width.
var ErrRegisterCount = errors.New("transport: unexpected register count")

func swapBytes(r uint16) uint16 {
	return r<<8 | r>>8
}

// DecodeUint32 assembles two registers into a uint32 per the given word order.
func DecodeUint32(r0, r1 uint16, order WordOrder) (uint32, error) {
	hi, lo := r0, r1
	switch order {
	case ABCD:
		// hi, lo as given
	case BADC:
		hi, lo = swapBytes(r0), swapBytes(r1)
	case CDAB:
		hi, lo = r1, r0
	case DCBA:
		hi, lo = swapBytes(r1), swapBytes(r0)
	default:
		return 0, errors.New("transport: unknown word order")
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

// DecodeInt32 is DecodeUint32 with a bit-cast to int32.
func DecodeInt32(r0, r1 uint16, order WordOrder) (int32, error) {
	u, err := DecodeUint32(r0, r1, order)
	if err != nil {
		return 0, err
	}
	return int32(u), nil
}

// DecodeFloat32 is DecodeUint32 with an IEEE-754 bit-cast to float32.
func DecodeFloat32(r0, r1 uint16, order WordOrder) (float32, error) {
	u, err := DecodeUint32(r0, r1, order)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// DecodeUint64 assembles 1 to 4 registers into a uint64 per the given word order.
//
// For DCBA/BADC (little-endian word order), register i occupies bit
// position i*16 of the result, regardless of how many registers are given.
// For ABCD/CDAB (big-endian word order), the first register occupies the
// most-significant 16 bits of the count-word-wide value.
func DecodeUint64(registers []uint16, order WordOrder) (uint64, error) {
	n := len(registers)
	if n == 0 {
		return 0, ErrEmptyRegisters
	}
	if n > 4 {
		return 0, ErrRegisterCount
	}

	littleEndianWords := order == DCBA || order == BADC
	byteSwap := order == BADC || order == DCBA

	var out uint64
	for i, reg := range registers {
		w := reg
		if byteSwap {
			w = swapBytes(w)
		}
		var shift uint
		if littleEndianWords {
			shift = uint(i) * 16
		} else {
			shift = uint(n-1-i) * 16
		}
		out |= uint64(w) << shift
	}
	return out, nil
}

// DecodeInt64 is DecodeUint64 with a bit-cast to int64 (registers must total 4).
func DecodeInt64(registers []uint16, order WordOrder) (int64, error) {
	if len(registers) != 4 {
		return 0, ErrRegisterCount
	}
	u, err := DecodeUint64(registers, order)
	if err != nil {
		return 0, err
	}
	return int64(u), nil
}

// DecodeFloat64 is DecodeUint64 with an IEEE-754 bit-cast to float64 (registers must total 4).
func DecodeFloat64(registers []uint16, order WordOrder) (float64, error) {
	if len(registers) != 4 {
		return 0, ErrRegisterCount
	}
	u, err := DecodeUint64(registers, order)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}
