package packet

import (
	"encoding/binary"
	"math/rand/v2"
)

// MaskWriteRegisterRequestTCP is TCP Request for Mask Write Register function (FC=22, 0x16)
//
// Result = (Current Contents AND And_Mask) OR (Or_Mask AND (NOT And_Mask))
type MaskWriteRegisterRequestTCP struct {
	MBAPHeader
	MaskWriteRegisterRequest
}

// MaskWriteRegisterRequestRTU is RTU Request for Mask Write Register function (FC=22, 0x16)
type MaskWriteRegisterRequestRTU struct {
	MaskWriteRegisterRequest
}

// MaskWriteRegisterRequest is Request for Mask Write Register function (FC=22, 0x16)
type MaskWriteRegisterRequest struct {
	UnitID  uint8
	Address uint16
	AndMask uint16
	OrMask  uint16
}

// NewMaskWriteRegisterRequestTCP creates new instance of Mask Write Register TCP request
func NewMaskWriteRegisterRequestTCP(unitID uint8, address uint16, andMask uint16, orMask uint16) (*MaskWriteRegisterRequestTCP, error) {
	return &MaskWriteRegisterRequestTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: 1 + rand.N(uint16(65534)), // #nosec G404
			ProtocolID:    0,
		},
		MaskWriteRegisterRequest: MaskWriteRegisterRequest{
			UnitID:  unitID,
			Address: address,
			AndMask: andMask,
			OrMask:  orMask,
		},
	}, nil
}

// NewMaskWriteRegisterRequestRTU creates new instance of Mask Write Register RTU request
func NewMaskWriteRegisterRequestRTU(unitID uint8, address uint16, andMask uint16, orMask uint16) (*MaskWriteRegisterRequestRTU, error) {
	return &MaskWriteRegisterRequestRTU{
		MaskWriteRegisterRequest: MaskWriteRegisterRequest{
			UnitID:  unitID,
			Address: address,
			AndMask: andMask,
			OrMask:  orMask,
		},
	}, nil
}

// Bytes returns MaskWriteRegisterRequestTCP packet as bytes form
func (r MaskWriteRegisterRequestTCP) Bytes() []byte {
	length := uint16(8)
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.MaskWriteRegisterRequest.bytes(result[6 : 6+length])
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r MaskWriteRegisterRequestTCP) ExpectedResponseLength() int {
	// response is an echo of the request: 6 header len + 1 unitID + 1 fc + 2 address + 2 andMask + 2 orMask
	return 6 + 8
}

// ParseMaskWriteRegisterRequestTCP parses given bytes into MaskWriteRegisterRequestTCP
func ParseMaskWriteRegisterRequestTCP(data []byte) (*MaskWriteRegisterRequestTCP, error) {
	header, err := ParseMBAPHeader(data)
	if err != nil {
		return nil, err
	}
	unitID := data[6]
	if data[7] != FunctionMaskWriteRegister {
		tmpErr := NewErrorParseTCP(ErrIllegalFunction, "received function code in packet is not 0x16")
		tmpErr.Packet.TransactionID = header.TransactionID
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionMaskWriteRegister
		return nil, tmpErr
	}
	if len(data) != 14 {
		tmpErr := NewErrorParseTCP(ErrServerFailure, "received data length too short to be valid packet")
		tmpErr.Packet.TransactionID = header.TransactionID
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionMaskWriteRegister
		return nil, tmpErr
	}
	return &MaskWriteRegisterRequestTCP{
		MBAPHeader: header,
		MaskWriteRegisterRequest: MaskWriteRegisterRequest{
			UnitID:  unitID,
			Address: binary.BigEndian.Uint16(data[8:10]),
			AndMask: binary.BigEndian.Uint16(data[10:12]),
			OrMask:  binary.BigEndian.Uint16(data[12:14]),
		},
	}, nil
}

// Bytes returns MaskWriteRegisterRequestRTU packet as bytes form
func (r MaskWriteRegisterRequestRTU) Bytes() []byte {
	result := make([]byte, 8+2)
	bytes := r.MaskWriteRegisterRequest.bytes(result)
	crc := CRC16(bytes[:8])
	result[8] = uint8(crc)
	result[9] = uint8(crc >> 8)
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r MaskWriteRegisterRequestRTU) ExpectedResponseLength() int {
	return 8 + 2
}

// ParseMaskWriteRegisterRequestRTU parses given bytes into MaskWriteRegisterRequestRTU
// Does not check CRC
func ParseMaskWriteRegisterRequestRTU(data []byte) (*MaskWriteRegisterRequestRTU, error) {
	dLen := len(data)
	if dLen != 10 && dLen != 8 { // with or without CRC bytes
		return nil, NewErrorParseRTU(ErrServerFailure, "invalid data length to be valid packet")
	}
	unitID := data[0]
	if data[1] != FunctionMaskWriteRegister {
		tmpErr := NewErrorParseRTU(ErrIllegalFunction, "received function code in packet is not 0x16")
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionMaskWriteRegister
		return nil, tmpErr
	}
	return &MaskWriteRegisterRequestRTU{
		MaskWriteRegisterRequest: MaskWriteRegisterRequest{
			UnitID:  unitID,
			Address: binary.BigEndian.Uint16(data[2:4]),
			AndMask: binary.BigEndian.Uint16(data[4:6]),
			OrMask:  binary.BigEndian.Uint16(data[6:8]),
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r MaskWriteRegisterRequest) FunctionCode() uint8 {
	return FunctionMaskWriteRegister
}

// Bytes returns MaskWriteRegisterRequest packet as bytes form
func (r MaskWriteRegisterRequest) Bytes() []byte {
	return r.bytes(make([]byte, 8))
}

func (r MaskWriteRegisterRequest) bytes(bytes []byte) []byte {
	bytes[0] = r.UnitID
	bytes[1] = FunctionMaskWriteRegister
	binary.BigEndian.PutUint16(bytes[2:4], r.Address)
	binary.BigEndian.PutUint16(bytes[4:6], r.AndMask)
	binary.BigEndian.PutUint16(bytes[6:8], r.OrMask)
	return bytes
}
