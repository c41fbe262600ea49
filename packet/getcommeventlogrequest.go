package packet

import (
	"math/rand/v2"
)

// GetCommEventLogRequestTCP is TCP Request for Get Comm Event Log function (FC=12, 0x0C)
type GetCommEventLogRequestTCP struct {
	MBAPHeader
	GetCommEventLogRequest
}

// GetCommEventLogRequestRTU is RTU Request for Get Comm Event Log function (FC=12, 0x0C)
type GetCommEventLogRequestRTU struct {
	GetCommEventLogRequest
}

// GetCommEventLogRequest is Request for Get Comm Event Log function (FC=12, 0x0C)
type GetCommEventLogRequest struct {
	UnitID uint8
}

// NewGetCommEventLogRequestTCP creates new instance of Get Comm Event Log TCP request
func NewGetCommEventLogRequestTCP(unitID uint8) (*GetCommEventLogRequestTCP, error) {
	return &GetCommEventLogRequestTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: 1 + rand.N(uint16(65534)), // #nosec G404
			ProtocolID:    0,
		},
		GetCommEventLogRequest: GetCommEventLogRequest{
			UnitID: unitID,
		},
	}, nil
}

// NewGetCommEventLogRequestRTU creates new instance of Get Comm Event Log RTU request
func NewGetCommEventLogRequestRTU(unitID uint8) (*GetCommEventLogRequestRTU, error) {
	return &GetCommEventLogRequestRTU{
		GetCommEventLogRequest: GetCommEventLogRequest{
			UnitID: unitID,
		},
	}, nil
}

// Bytes returns GetCommEventLogRequestTCP packet as bytes form
func (r GetCommEventLogRequestTCP) Bytes() []byte {
	length := uint16(2)
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.GetCommEventLogRequest.bytes(result[6 : 6+length])
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r GetCommEventLogRequestTCP) ExpectedResponseLength() int {
	// response = 6 header len + 1 unitID + 1 fc + 1 byte count + 2 status + 2 event count + 2 message count + N events
	return 6 + 9 // at least this amount
}

// ParseGetCommEventLogRequestTCP parses given bytes into GetCommEventLogRequestTCP
func ParseGetCommEventLogRequestTCP(data []byte) (*GetCommEventLogRequestTCP, error) {
	header, err := ParseMBAPHeader(data)
	if err != nil {
		return nil, err
	}
	unitID := data[6]
	if data[7] != FunctionGetCommEventLog {
		tmpErr := NewErrorParseTCP(ErrIllegalFunction, "received function code in packet is not 0x0C")
		tmpErr.Packet.TransactionID = header.TransactionID
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionGetCommEventLog
		return nil, tmpErr
	}
	return &GetCommEventLogRequestTCP{
		MBAPHeader: header,
		GetCommEventLogRequest: GetCommEventLogRequest{
			UnitID: unitID,
		},
	}, nil
}

// Bytes returns GetCommEventLogRequestRTU packet as bytes form
func (r GetCommEventLogRequestRTU) Bytes() []byte {
	result := make([]byte, 2+2)
	bytes := r.GetCommEventLogRequest.bytes(result)
	crc := CRC16(bytes[:2])
	result[2] = uint8(crc)
	result[3] = uint8(crc >> 8)
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r GetCommEventLogRequestRTU) ExpectedResponseLength() int {
	// 1 unitID + 1 fc + 1 byte count + 2 status + 2 event count + 2 message count + N events + 2 CRC
	return 11 // at least this amount
}

// ParseGetCommEventLogRequestRTU parses given bytes into GetCommEventLogRequestRTU
// Does not check CRC
func ParseGetCommEventLogRequestRTU(data []byte) (*GetCommEventLogRequestRTU, error) {
	dLen := len(data)
	if dLen != 4 && dLen != 2 { // with or without CRC bytes
		return nil, NewErrorParseRTU(ErrServerFailure, "invalid data length to be valid packet")
	}
	unitID := data[0]
	if data[1] != FunctionGetCommEventLog {
		tmpErr := NewErrorParseRTU(ErrIllegalFunction, "received function code in packet is not 0x0C")
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionGetCommEventLog
		return nil, tmpErr
	}
	return &GetCommEventLogRequestRTU{
		GetCommEventLogRequest: GetCommEventLogRequest{
			UnitID: unitID,
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r GetCommEventLogRequest) FunctionCode() uint8 {
	return FunctionGetCommEventLog
}

// Bytes returns GetCommEventLogRequest packet as bytes form
func (r GetCommEventLogRequest) Bytes() []byte {
	return r.bytes(make([]byte, 2))
}

func (r GetCommEventLogRequest) bytes(bytes []byte) []byte {
	bytes[0] = r.UnitID
	bytes[1] = FunctionGetCommEventLog
	return bytes
}
