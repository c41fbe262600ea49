package packet

import (
	"encoding/binary"
	"errors"
)

// WriteFileRecordResponseTCP is TCP Response for Write File Record (FC=21) 0x15
//
// Normal response is an echo of the request.
type WriteFileRecordResponseTCP struct {
	MBAPHeader
	WriteFileRecordResponse
}

// WriteFileRecordResponseRTU is RTU Response for Write File Record (FC=21) 0x15
type WriteFileRecordResponseRTU struct {
	WriteFileRecordResponse
}

// WriteFileRecordResponse is Response for Write File Record (FC=21) 0x15
type WriteFileRecordResponse struct {
	UnitID  uint8
	SubReqs []WriteFileSubRequest
}

func (r WriteFileRecordResponse) byteCount() uint8 {
	n := uint8(0)
	for _, s := range r.SubReqs {
		n += uint8(s.len())
	}
	return n
}

func (r WriteFileRecordResponse) len() uint16 {
	return uint16(3 + int(r.byteCount()))
}

// Bytes returns WriteFileRecordResponseTCP packet as bytes form
func (r WriteFileRecordResponseTCP) Bytes() []byte {
	length := r.WriteFileRecordResponse.len()
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.WriteFileRecordResponse.bytes(result[6:])
	return result
}

// ParseWriteFileRecordResponseTCP parses given bytes into WriteFileRecordResponseTCP
func ParseWriteFileRecordResponseTCP(data []byte) (*WriteFileRecordResponseTCP, error) {
	dLen := len(data)
	if dLen < 9 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	byteCount := int(data[8])
	if dLen != 9+byteCount {
		return nil, errors.New("received data length does not match byte count in packet")
	}
	subs, err := parseWriteFileSubRequests(data[9:], byteCount)
	if err != nil {
		return nil, err
	}
	return &WriteFileRecordResponseTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: binary.BigEndian.Uint16(data[0:2]),
			ProtocolID:    0,
		},
		WriteFileRecordResponse: WriteFileRecordResponse{
			UnitID: data[6],
			// fc (7), byte count (8)
			SubReqs: subs,
		},
	}, nil
}

// Bytes returns WriteFileRecordResponseRTU packet as bytes form
func (r WriteFileRecordResponseRTU) Bytes() []byte {
	length := r.len()
	result := make([]byte, length+2)
	bytes := r.WriteFileRecordResponse.bytes(result)
	crc := CRC16(bytes[:length])
	result[length] = uint8(crc)
	result[length+1] = uint8(crc >> 8)
	return result
}

// ParseWriteFileRecordResponseRTU parses given bytes into WriteFileRecordResponseRTU
func ParseWriteFileRecordResponseRTU(data []byte) (*WriteFileRecordResponseRTU, error) {
	dLen := len(data)
	if dLen < 5 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	byteCount := int(data[2])
	if dLen != 3+byteCount+2 {
		return nil, errors.New("received data length does not match byte count in packet")
	}
	subs, err := parseWriteFileSubRequests(data[3:], byteCount)
	if err != nil {
		return nil, err
	}
	return &WriteFileRecordResponseRTU{
		WriteFileRecordResponse: WriteFileRecordResponse{
			UnitID: data[0],
			// fc (1), byte count (2)
			SubReqs: subs,
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r WriteFileRecordResponse) FunctionCode() uint8 {
	return FunctionWriteFileRecord
}

// Bytes returns WriteFileRecordResponse packet as bytes form
func (r WriteFileRecordResponse) Bytes() []byte {
	return r.bytes(make([]byte, r.len()))
}

func (r WriteFileRecordResponse) bytes(data []byte) []byte {
	data[0] = r.UnitID
	data[1] = FunctionWriteFileRecord
	data[2] = r.byteCount()
	offset := 3
	for _, s := range r.SubReqs {
		s.bytes(data[offset : offset+s.len()])
		offset += s.len()
	}
	return data
}
