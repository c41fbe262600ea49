package transport

import "errors"

// ErrNeedMore is returned by TryParseRTU when the buffered bytes do not yet contain a complete candidate frame.
var ErrNeedMore = errors.New("transport: need more bytes")

// ErrBadFrame is returned by TryParseRTU when a complete candidate frame's CRC does not validate.
var ErrBadFrame = errors.New("transport: rtu frame crc mismatch")

// EncodeRTU builds a complete RTU ADU: unit id, PDU, then little-endian CRC16 over both.
func EncodeRTU(unitID uint8, pdu []byte) []byte {
	body := make([]byte, 1+len(pdu))
	body[0] = unitID
	copy(body[1:], pdu)
	return CRC16LE(body, body)
}

// RTUFrame is one parsed Modbus RTU application data unit, CRC already verified.
type RTUFrame struct {
	UnitID uint8
	PDU    []byte
}

// TryParseRTU attempts to parse exactly one ADU starting at the front of buf.
//
// The RTU wire format has no length prefix; frame boundaries are established by the transport's
// inter-frame silent interval (>= 3.5 character times), which is a line-timing concern external to
// this function. Callers accumulate bytes during one silent-interval window and then call this once
// per candidate frame.
//
// Returns (frame, consumed, nil) on success, (zero, 0, ErrNeedMore) if buf is too short to contain
// any valid frame, or (zero, 0, ErrBadFrame) if buf looks like a complete frame but the CRC does
// not match.
func TryParseRTU(buf []byte) (frame RTUFrame, consumed int, err error) {
	// minimum RTU frame: 1 unit id + 1 function code + 2 CRC
	if len(buf) < 4 {
		return RTUFrame{}, 0, ErrNeedMore
	}
	if !VerifyCRC16(buf) {
		return RTUFrame{}, 0, ErrBadFrame
	}
	pdu := make([]byte, len(buf)-3)
	copy(pdu, buf[1:len(buf)-2])
	return RTUFrame{UnitID: buf[0], PDU: pdu}, len(buf), nil
}
