package packet

import (
	"encoding/binary"
	"errors"
)

// GetCommEventLogResponseTCP is TCP Response for Get Comm Event Log (FC=12) 0x0C
//
// 0x.. - byte count of everything following this field (8)
// 0x00 0x00 or 0xFF 0xFF - status (still busy or not busy) (9,10)
// 0x00 0x00 - event count (11,12)
// 0x00 0x00 - message count (13,14)
// N bytes - events, oldest-to-newest, device specific meaning (15..)
type GetCommEventLogResponseTCP struct {
	MBAPHeader
	GetCommEventLogResponse
}

// GetCommEventLogResponseRTU is RTU Response for Get Comm Event Log (FC=12) 0x0C
type GetCommEventLogResponseRTU struct {
	GetCommEventLogResponse
}

// GetCommEventLogResponse is Response for Get Comm Event Log (FC=12) 0x0C
type GetCommEventLogResponse struct {
	UnitID       uint8
	Status       uint16
	EventCount   uint16
	MessageCount uint16
	Events       []byte
}

func (r GetCommEventLogResponse) byteCount() uint8 {
	// status (2) + event count (2) + message count (2) + events (N)
	return uint8(6 + len(r.Events))
}

func (r GetCommEventLogResponse) len() uint16 {
	// unit id (1) + fc (1) + byte count (1) + byteCount()
	return 3 + uint16(r.byteCount())
}

// Bytes returns GetCommEventLogResponseTCP packet as bytes form
func (r GetCommEventLogResponseTCP) Bytes() []byte {
	length := r.GetCommEventLogResponse.len()
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.GetCommEventLogResponse.bytes(result[6:])
	return result
}

// ParseGetCommEventLogResponseTCP parses given bytes into GetCommEventLogResponseTCP
func ParseGetCommEventLogResponseTCP(data []byte) (*GetCommEventLogResponseTCP, error) {
	dLen := len(data)
	if dLen < 15 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	byteCount := int(data[8])
	if dLen != 9+byteCount {
		return nil, errors.New("received data length does not match byte count in packet")
	}
	events := make([]byte, byteCount-6)
	copy(events, data[15:9+byteCount])
	return &GetCommEventLogResponseTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: binary.BigEndian.Uint16(data[0:2]),
			ProtocolID:    0,
		},
		GetCommEventLogResponse: GetCommEventLogResponse{
			UnitID: data[6],
			// fc (7), byte count (8)
			Status:       binary.BigEndian.Uint16(data[9:11]),
			EventCount:   binary.BigEndian.Uint16(data[11:13]),
			MessageCount: binary.BigEndian.Uint16(data[13:15]),
			Events:       events,
		},
	}, nil
}

// Bytes returns GetCommEventLogResponseRTU packet as bytes form
func (r GetCommEventLogResponseRTU) Bytes() []byte {
	length := r.len()
	result := make([]byte, length+2)
	bytes := r.GetCommEventLogResponse.bytes(result)
	crc := CRC16(bytes[:length])
	result[length] = uint8(crc)
	result[length+1] = uint8(crc >> 8)
	return result
}

// ParseGetCommEventLogResponseRTU parses given bytes into GetCommEventLogResponseRTU
func ParseGetCommEventLogResponseRTU(data []byte) (*GetCommEventLogResponseRTU, error) {
	dLen := len(data)
	if dLen < 11 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	byteCount := int(data[2])
	if dLen != 3+byteCount+2 {
		return nil, errors.New("received data length does not match byte count in packet")
	}
	events := make([]byte, byteCount-6)
	copy(events, data[9:3+byteCount])
	return &GetCommEventLogResponseRTU{
		GetCommEventLogResponse: GetCommEventLogResponse{
			UnitID: data[0],
			// fc (1), byte count (2)
			Status:       binary.BigEndian.Uint16(data[3:5]),
			EventCount:   binary.BigEndian.Uint16(data[5:7]),
			MessageCount: binary.BigEndian.Uint16(data[7:9]),
			Events:       events,
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r GetCommEventLogResponse) FunctionCode() uint8 {
	return FunctionGetCommEventLog
}

// Bytes returns GetCommEventLogResponse packet as bytes form
func (r GetCommEventLogResponse) Bytes() []byte {
	return r.bytes(make([]byte, r.len()))
}

func (r GetCommEventLogResponse) bytes(data []byte) []byte {
	data[0] = r.UnitID
	data[1] = FunctionGetCommEventLog
	data[2] = r.byteCount()
	binary.BigEndian.PutUint16(data[3:5], r.Status)
	binary.BigEndian.PutUint16(data[5:7], r.EventCount)
	binary.BigEndian.PutUint16(data[7:9], r.MessageCount)
	copy(data[9:], r.Events)
	return data
}
