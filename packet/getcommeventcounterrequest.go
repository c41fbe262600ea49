package packet

import (
	"math/rand/v2"
)

// GetCommEventCounterRequestTCP is TCP Request for Get Comm Event Counter function (FC=11, 0x0B)
type GetCommEventCounterRequestTCP struct {
	MBAPHeader
	GetCommEventCounterRequest
}

// GetCommEventCounterRequestRTU is RTU Request for Get Comm Event Counter function (FC=11, 0x0B)
type GetCommEventCounterRequestRTU struct {
	GetCommEventCounterRequest
}

// GetCommEventCounterRequest is Request for Get Comm Event Counter function (FC=11, 0x0B)
type GetCommEventCounterRequest struct {
	UnitID uint8
}

// NewGetCommEventCounterRequestTCP creates new instance of Get Comm Event Counter TCP request
func NewGetCommEventCounterRequestTCP(unitID uint8) (*GetCommEventCounterRequestTCP, error) {
	return &GetCommEventCounterRequestTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: 1 + rand.N(uint16(65534)), // #nosec G404
			ProtocolID:    0,
		},
		GetCommEventCounterRequest: GetCommEventCounterRequest{
			UnitID: unitID,
		},
	}, nil
}

// NewGetCommEventCounterRequestRTU creates new instance of Get Comm Event Counter RTU request
func NewGetCommEventCounterRequestRTU(unitID uint8) (*GetCommEventCounterRequestRTU, error) {
	return &GetCommEventCounterRequestRTU{
		GetCommEventCounterRequest: GetCommEventCounterRequest{
			UnitID: unitID,
		},
	}, nil
}

// Bytes returns GetCommEventCounterRequestTCP packet as bytes form
func (r GetCommEventCounterRequestTCP) Bytes() []byte {
	length := uint16(2)
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.GetCommEventCounterRequest.bytes(result[6 : 6+length])
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r GetCommEventCounterRequestTCP) ExpectedResponseLength() int {
	// response = 6 header len + 1 unitID + 1 fc + 2 status + 2 event count
	return 6 + 6
}

// ParseGetCommEventCounterRequestTCP parses given bytes into GetCommEventCounterRequestTCP
func ParseGetCommEventCounterRequestTCP(data []byte) (*GetCommEventCounterRequestTCP, error) {
	header, err := ParseMBAPHeader(data)
	if err != nil {
		return nil, err
	}
	unitID := data[6]
	if data[7] != FunctionGetCommEventCounter {
		tmpErr := NewErrorParseTCP(ErrIllegalFunction, "received function code in packet is not 0x0B")
		tmpErr.Packet.TransactionID = header.TransactionID
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionGetCommEventCounter
		return nil, tmpErr
	}
	return &GetCommEventCounterRequestTCP{
		MBAPHeader: header,
		GetCommEventCounterRequest: GetCommEventCounterRequest{
			UnitID: unitID,
		},
	}, nil
}

// Bytes returns GetCommEventCounterRequestRTU packet as bytes form
func (r GetCommEventCounterRequestRTU) Bytes() []byte {
	result := make([]byte, 2+2)
	bytes := r.GetCommEventCounterRequest.bytes(result)
	crc := CRC16(bytes[:2])
	result[2] = uint8(crc)
	result[3] = uint8(crc >> 8)
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r GetCommEventCounterRequestRTU) ExpectedResponseLength() int {
	// 1 unitID + 1 fc + 2 status + 2 event count + 2 CRC
	return 8
}

// ParseGetCommEventCounterRequestRTU parses given bytes into GetCommEventCounterRequestRTU
// Does not check CRC
func ParseGetCommEventCounterRequestRTU(data []byte) (*GetCommEventCounterRequestRTU, error) {
	dLen := len(data)
	if dLen != 4 && dLen != 2 { // with or without CRC bytes
		return nil, NewErrorParseRTU(ErrServerFailure, "invalid data length to be valid packet")
	}
	unitID := data[0]
	if data[1] != FunctionGetCommEventCounter {
		tmpErr := NewErrorParseRTU(ErrIllegalFunction, "received function code in packet is not 0x0B")
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionGetCommEventCounter
		return nil, tmpErr
	}
	return &GetCommEventCounterRequestRTU{
		GetCommEventCounterRequest: GetCommEventCounterRequest{
			UnitID: unitID,
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r GetCommEventCounterRequest) FunctionCode() uint8 {
	return FunctionGetCommEventCounter
}

// Bytes returns GetCommEventCounterRequest packet as bytes form
func (r GetCommEventCounterRequest) Bytes() []byte {
	return r.bytes(make([]byte, 2))
}

func (r GetCommEventCounterRequest) bytes(bytes []byte) []byte {
	bytes[0] = r.UnitID
	bytes[1] = FunctionGetCommEventCounter
	return bytes
}
