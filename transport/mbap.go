package transport

import "errors"

// ErrProtocolID is returned when an MBAP header's protocol id field is not 0.
var ErrProtocolID = errors.New("transport: mbap protocol id must be 0")

// ErrMBAPLength is returned when an MBAP header's length field is outside the valid 2..254 range.
var ErrMBAPLength = errors.New("transport: mbap length field out of range")

// MBAPFrame is one decoded Modbus TCP application data unit.
type MBAPFrame struct {
	TransactionID uint16
	UnitID        uint8
	PDU           []byte
}

// EncodeMBAP builds a complete MBAP ADU: 7-byte header followed by the PDU.
func EncodeMBAP(transactionID uint16, unitID uint8, pdu []byte) []byte {
	out := make([]byte, 7+len(pdu))
	PutU16BE(out, 0, transactionID)
	PutU16BE(out, 2, 0) // protocol id
	PutU16BE(out, 4, uint16(1+len(pdu)))
	out[6] = unitID
	copy(out[7:], pdu)
	return out
}

// MBAPDecoder accumulates bytes from a TCP stream and yields complete frames.
// It is not safe for concurrent use; callers serialize access the same way they serialize reads.
type MBAPDecoder struct {
	buf []byte
}

// Feed appends newly read bytes to the decoder's internal buffer.
func (d *MBAPDecoder) Feed(data []byte) {
	d.buf = append(d.buf, data...)
}

// Next tries to pull one complete frame out of the buffered bytes. ok is false when more bytes
// are needed; err is non-nil when the buffered bytes cannot be a valid MBAP header.
func (d *MBAPDecoder) Next() (frame MBAPFrame, ok bool, err error) {
	if len(d.buf) < 6 {
		return MBAPFrame{}, false, nil
	}
	protocolID, _ := ReadU16BE(d.buf, 2)
	if protocolID != 0 {
		return MBAPFrame{}, false, ErrProtocolID
	}
	length, _ := ReadU16BE(d.buf, 4)
	if length < 2 || length > 254 {
		return MBAPFrame{}, false, ErrMBAPLength
	}
	total := 6 + int(length)
	if len(d.buf) < total {
		return MBAPFrame{}, false, nil
	}
	transactionID, _ := ReadU16BE(d.buf, 0)
	unitID := d.buf[6]
	pdu := make([]byte, total-7)
	copy(pdu, d.buf[7:total])

	remaining := make([]byte, len(d.buf)-total)
	copy(remaining, d.buf[total:])
	d.buf = remaining

	return MBAPFrame{TransactionID: transactionID, UnitID: unitID, PDU: pdu}, true, nil
}
