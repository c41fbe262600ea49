package packet

import (
	"encoding/binary"
	"errors"
)

// GetCommEventCounterResponseTCP is TCP Response for Get Comm Event Counter (FC=11) 0x0B
//
// 0x00 0x00 or 0xFF 0xFF - status (still busy or not busy) (8,9)
// 0x00 0x00 - event count, incremented on every successfully completed request (10,11)
type GetCommEventCounterResponseTCP struct {
	MBAPHeader
	GetCommEventCounterResponse
}

// GetCommEventCounterResponseRTU is RTU Response for Get Comm Event Counter (FC=11) 0x0B
type GetCommEventCounterResponseRTU struct {
	GetCommEventCounterResponse
}

// GetCommEventCounterResponse is Response for Get Comm Event Counter (FC=11) 0x0B
type GetCommEventCounterResponse struct {
	UnitID     uint8
	Status     uint16
	EventCount uint16
}

// Bytes returns GetCommEventCounterResponseTCP packet as bytes form
func (r GetCommEventCounterResponseTCP) Bytes() []byte {
	length := uint16(6)
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.GetCommEventCounterResponse.bytes(result[6:])
	return result
}

// ParseGetCommEventCounterResponseTCP parses given bytes into GetCommEventCounterResponseTCP
func ParseGetCommEventCounterResponseTCP(data []byte) (*GetCommEventCounterResponseTCP, error) {
	if len(data) != 12 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	return &GetCommEventCounterResponseTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: binary.BigEndian.Uint16(data[0:2]),
			ProtocolID:    0,
		},
		GetCommEventCounterResponse: GetCommEventCounterResponse{
			UnitID: data[6],
			// fc (7)
			Status:     binary.BigEndian.Uint16(data[8:10]),
			EventCount: binary.BigEndian.Uint16(data[10:12]),
		},
	}, nil
}

// Bytes returns GetCommEventCounterResponseRTU packet as bytes form
func (r GetCommEventCounterResponseRTU) Bytes() []byte {
	result := make([]byte, 6+2)
	bytes := r.GetCommEventCounterResponse.bytes(result)
	crc := CRC16(bytes[:6])
	result[6] = uint8(crc)
	result[7] = uint8(crc >> 8)
	return result
}

// ParseGetCommEventCounterResponseRTU parses given bytes into GetCommEventCounterResponseRTU
func ParseGetCommEventCounterResponseRTU(data []byte) (*GetCommEventCounterResponseRTU, error) {
	if len(data) != 8 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	return &GetCommEventCounterResponseRTU{
		GetCommEventCounterResponse: GetCommEventCounterResponse{
			UnitID: data[0],
			// fc (1)
			Status:     binary.BigEndian.Uint16(data[2:4]),
			EventCount: binary.BigEndian.Uint16(data[4:6]),
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r GetCommEventCounterResponse) FunctionCode() uint8 {
	return FunctionGetCommEventCounter
}

// Bytes returns GetCommEventCounterResponse packet as bytes form
func (r GetCommEventCounterResponse) Bytes() []byte {
	return r.bytes(make([]byte, 6))
}

func (r GetCommEventCounterResponse) bytes(data []byte) []byte {
	data[0] = r.UnitID
	data[1] = FunctionGetCommEventCounter
	binary.BigEndian.PutUint16(data[2:4], r.Status)
	binary.BigEndian.PutUint16(data[4:6], r.EventCount)
	return data
}
