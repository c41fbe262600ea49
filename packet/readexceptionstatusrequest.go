package packet

import (
	"math/rand/v2"
)

// ReadExceptionStatusRequestTCP is TCP Request for Read Exception Status function (FC=07, 0x07)
//
// Example packet: 0x81 0x80 0x00 0x00 0x00 0x02 0x10 0x07
// 0x81 0x80 - transaction id (0,1)
// 0x00 0x00 - protocol id (2,3)
// 0x00 0x02 - number of bytes in the message (PDU = ProtocolDataUnit) to follow (4,5)
// 0x10 - unit id (6)
// 0x07 - function code (7)
type ReadExceptionStatusRequestTCP struct {
	MBAPHeader
	ReadExceptionStatusRequest
}

// ReadExceptionStatusRequestRTU is RTU Request for Read Exception Status function (FC=07, 0x07)
//
// Example packet: 0x10 0x07 0xc2 0x78
// 0x10 - unit id (0)
// 0x07 - function code (1)
// 0xc2 0x78 - CRC16 (2,3)
type ReadExceptionStatusRequestRTU struct {
	ReadExceptionStatusRequest
}

// ReadExceptionStatusRequest is Request for Read Exception Status function (FC=07, 0x07)
type ReadExceptionStatusRequest struct {
	UnitID uint8
}

// NewReadExceptionStatusRequestTCP creates new instance of Read Exception Status TCP request
func NewReadExceptionStatusRequestTCP(unitID uint8) (*ReadExceptionStatusRequestTCP, error) {
	return &ReadExceptionStatusRequestTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: 1 + rand.N(uint16(65534)), // #nosec G404
			ProtocolID:    0,
		},
		ReadExceptionStatusRequest: ReadExceptionStatusRequest{
			UnitID: unitID,
		},
	}, nil
}

// NewReadExceptionStatusRequestRTU creates new instance of Read Exception Status RTU request
func NewReadExceptionStatusRequestRTU(unitID uint8) (*ReadExceptionStatusRequestRTU, error) {
	return &ReadExceptionStatusRequestRTU{
		ReadExceptionStatusRequest: ReadExceptionStatusRequest{
			UnitID: unitID,
		},
	}, nil
}

// Bytes returns ReadExceptionStatusRequestTCP packet as bytes form
func (r ReadExceptionStatusRequestTCP) Bytes() []byte {
	length := uint16(2)
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.ReadExceptionStatusRequest.bytes(result[6 : 6+length])
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r ReadExceptionStatusRequestTCP) ExpectedResponseLength() int {
	// response = 6 header len + 1 unitID + 1 fc + 1 status byte
	return 6 + 3
}

// ParseReadExceptionStatusRequestTCP parses given bytes into ReadExceptionStatusRequestTCP
func ParseReadExceptionStatusRequestTCP(data []byte) (*ReadExceptionStatusRequestTCP, error) {
	header, err := ParseMBAPHeader(data)
	if err != nil {
		return nil, err
	}
	unitID := data[6]
	if data[7] != FunctionReadExceptionStatus {
		tmpErr := NewErrorParseTCP(ErrIllegalFunction, "received function code in packet is not 0x07")
		tmpErr.Packet.TransactionID = header.TransactionID
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionReadExceptionStatus
		return nil, tmpErr
	}
	return &ReadExceptionStatusRequestTCP{
		MBAPHeader: header,
		ReadExceptionStatusRequest: ReadExceptionStatusRequest{
			UnitID: unitID,
		},
	}, nil
}

// Bytes returns ReadExceptionStatusRequestRTU packet as bytes form
func (r ReadExceptionStatusRequestRTU) Bytes() []byte {
	result := make([]byte, 2+2)
	bytes := r.ReadExceptionStatusRequest.bytes(result)
	crc := CRC16(bytes[:2])
	result[2] = uint8(crc)
	result[3] = uint8(crc >> 8)
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r ReadExceptionStatusRequestRTU) ExpectedResponseLength() int {
	// 1 unitID + 1 fc + 1 status byte + 2 CRC
	return 5
}

// ParseReadExceptionStatusRequestRTU parses given bytes into ReadExceptionStatusRequestRTU
// Does not check CRC
func ParseReadExceptionStatusRequestRTU(data []byte) (*ReadExceptionStatusRequestRTU, error) {
	dLen := len(data)
	if dLen != 4 && dLen != 2 { // with or without CRC bytes
		return nil, NewErrorParseRTU(ErrServerFailure, "invalid data length to be valid packet")
	}
	unitID := data[0]
	if data[1] != FunctionReadExceptionStatus {
		tmpErr := NewErrorParseRTU(ErrIllegalFunction, "received function code in packet is not 0x07")
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionReadExceptionStatus
		return nil, tmpErr
	}
	return &ReadExceptionStatusRequestRTU{
		ReadExceptionStatusRequest: ReadExceptionStatusRequest{
			UnitID: unitID,
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r ReadExceptionStatusRequest) FunctionCode() uint8 {
	return FunctionReadExceptionStatus
}

// Bytes returns ReadExceptionStatusRequest packet as bytes form
func (r ReadExceptionStatusRequest) Bytes() []byte {
	return r.bytes(make([]byte, 2))
}

func (r ReadExceptionStatusRequest) bytes(bytes []byte) []byte {
	bytes[0] = r.UnitID
	bytes[1] = FunctionReadExceptionStatus
	return bytes
}
