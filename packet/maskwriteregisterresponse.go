package packet

import (
	"encoding/binary"
	"errors"
)

// MaskWriteRegisterResponseTCP is TCP Response for Mask Write Register (FC=22) 0x16
//
// Normal response is an echo of the request.
type MaskWriteRegisterResponseTCP struct {
	MBAPHeader
	MaskWriteRegisterResponse
}

// MaskWriteRegisterResponseRTU is RTU Response for Mask Write Register (FC=22) 0x16
type MaskWriteRegisterResponseRTU struct {
	MaskWriteRegisterResponse
}

// MaskWriteRegisterResponse is Response for Mask Write Register (FC=22) 0x16
type MaskWriteRegisterResponse struct {
	UnitID  uint8
	Address uint16
	AndMask uint16
	OrMask  uint16
}

// Bytes returns MaskWriteRegisterResponseTCP packet as bytes form
func (r MaskWriteRegisterResponseTCP) Bytes() []byte {
	length := uint16(8)
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.MaskWriteRegisterResponse.bytes(result[6:])
	return result
}

// ParseMaskWriteRegisterResponseTCP parses given bytes into MaskWriteRegisterResponseTCP
func ParseMaskWriteRegisterResponseTCP(data []byte) (*MaskWriteRegisterResponseTCP, error) {
	if len(data) != 14 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	return &MaskWriteRegisterResponseTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: binary.BigEndian.Uint16(data[0:2]),
			ProtocolID:    0,
		},
		MaskWriteRegisterResponse: MaskWriteRegisterResponse{
			UnitID: data[6],
			// fc (7)
			Address: binary.BigEndian.Uint16(data[8:10]),
			AndMask: binary.BigEndian.Uint16(data[10:12]),
			OrMask:  binary.BigEndian.Uint16(data[12:14]),
		},
	}, nil
}

// Bytes returns MaskWriteRegisterResponseRTU packet as bytes form
func (r MaskWriteRegisterResponseRTU) Bytes() []byte {
	result := make([]byte, 8+2)
	bytes := r.MaskWriteRegisterResponse.bytes(result)
	crc := CRC16(bytes[:8])
	result[8] = uint8(crc)
	result[9] = uint8(crc >> 8)
	return result
}

// ParseMaskWriteRegisterResponseRTU parses given bytes into MaskWriteRegisterResponseRTU
func ParseMaskWriteRegisterResponseRTU(data []byte) (*MaskWriteRegisterResponseRTU, error) {
	if len(data) != 10 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	return &MaskWriteRegisterResponseRTU{
		MaskWriteRegisterResponse: MaskWriteRegisterResponse{
			UnitID: data[0],
			// fc (1)
			Address: binary.BigEndian.Uint16(data[2:4]),
			AndMask: binary.BigEndian.Uint16(data[4:6]),
			OrMask:  binary.BigEndian.Uint16(data[6:8]),
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r MaskWriteRegisterResponse) FunctionCode() uint8 {
	return FunctionMaskWriteRegister
}

// Bytes returns MaskWriteRegisterResponse packet as bytes form
func (r MaskWriteRegisterResponse) Bytes() []byte {
	return r.bytes(make([]byte, 8))
}

func (r MaskWriteRegisterResponse) bytes(data []byte) []byte {
	data[0] = r.UnitID
	data[1] = FunctionMaskWriteRegister
	binary.BigEndian.PutUint16(data[2:4], r.Address)
	binary.BigEndian.PutUint16(data[4:6], r.AndMask)
	binary.BigEndian.PutUint16(data[6:8], r.OrMask)
	return data
}
