package packet

import (
	"encoding/binary"
	"errors"
)

// ReadFileSubResponse is one sub-response within a Read File Record response, holding the register
// data that was read from one record of one extended memory file.
type ReadFileSubResponse struct {
	Data []byte // register values as raw bytes, 2 bytes per register
}

func (s ReadFileSubResponse) len() int {
	// data length byte (1) + reference type (1) + data (N)
	return 2 + len(s.Data)
}

func (s ReadFileSubResponse) bytes(dst []byte) {
	dst[0] = uint8(1 + len(s.Data)) // reference type byte + data, per spec section 6.14
	dst[1] = FileRecordReferenceType
	copy(dst[2:], s.Data)
}

// ReadFileRecordResponseTCP is TCP Response for Read File Record (FC=20) 0x14
type ReadFileRecordResponseTCP struct {
	MBAPHeader
	ReadFileRecordResponse
}

// ReadFileRecordResponseRTU is RTU Response for Read File Record (FC=20) 0x14
type ReadFileRecordResponseRTU struct {
	ReadFileRecordResponse
}

// ReadFileRecordResponse is Response for Read File Record (FC=20) 0x14
type ReadFileRecordResponse struct {
	UnitID  uint8
	SubResp []ReadFileSubResponse
}

func (r ReadFileRecordResponse) byteCount() uint8 {
	n := 0
	for _, s := range r.SubResp {
		n += s.len()
	}
	return uint8(n)
}

func (r ReadFileRecordResponse) len() uint16 {
	return uint16(3 + int(r.byteCount()))
}

// Bytes returns ReadFileRecordResponseTCP packet as bytes form
func (r ReadFileRecordResponseTCP) Bytes() []byte {
	length := r.ReadFileRecordResponse.len()
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.ReadFileRecordResponse.bytes(result[6:])
	return result
}

func parseReadFileSubResponses(data []byte, byteCount int) ([]ReadFileSubResponse, error) {
	if len(data) < byteCount {
		return nil, errors.New("received data shorter than byte count in packet")
	}
	var subs []ReadFileSubResponse
	offset := 0
	for offset < byteCount {
		if offset+2 > byteCount {
			return nil, errors.New("sub-response list is truncated")
		}
		dataLen := int(data[offset]) - 1 // data length byte includes the reference type byte
		if dataLen < 0 || offset+2+dataLen > byteCount {
			return nil, errors.New("sub-response data is truncated")
		}
		value := make([]byte, dataLen)
		copy(value, data[offset+2:offset+2+dataLen])
		subs = append(subs, ReadFileSubResponse{Data: value})
		offset += 2 + dataLen
	}
	return subs, nil
}

// ParseReadFileRecordResponseTCP parses given bytes into ReadFileRecordResponseTCP
func ParseReadFileRecordResponseTCP(data []byte) (*ReadFileRecordResponseTCP, error) {
	dLen := len(data)
	if dLen < 9 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	byteCount := int(data[8])
	if dLen != 9+byteCount {
		return nil, errors.New("received data length does not match byte count in packet")
	}
	subs, err := parseReadFileSubResponses(data[9:], byteCount)
	if err != nil {
		return nil, err
	}
	return &ReadFileRecordResponseTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: binary.BigEndian.Uint16(data[0:2]),
			ProtocolID:    0,
		},
		ReadFileRecordResponse: ReadFileRecordResponse{
			UnitID: data[6],
			// fc (7), byte count (8)
			SubResp: subs,
		},
	}, nil
}

// Bytes returns ReadFileRecordResponseRTU packet as bytes form
func (r ReadFileRecordResponseRTU) Bytes() []byte {
	length := r.len()
	result := make([]byte, length+2)
	bytes := r.ReadFileRecordResponse.bytes(result)
	crc := CRC16(bytes[:length])
	result[length] = uint8(crc)
	result[length+1] = uint8(crc >> 8)
	return result
}

// ParseReadFileRecordResponseRTU parses given bytes into ReadFileRecordResponseRTU
func ParseReadFileRecordResponseRTU(data []byte) (*ReadFileRecordResponseRTU, error) {
	dLen := len(data)
	if dLen < 5 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	byteCount := int(data[2])
	if dLen != 3+byteCount+2 {
		return nil, errors.New("received data length does not match byte count in packet")
	}
	subs, err := parseReadFileSubResponses(data[3:], byteCount)
	if err != nil {
		return nil, err
	}
	return &ReadFileRecordResponseRTU{
		ReadFileRecordResponse: ReadFileRecordResponse{
			UnitID: data[0],
			// fc (1), byte count (2)
			SubResp: subs,
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r ReadFileRecordResponse) FunctionCode() uint8 {
	return FunctionReadFileRecord
}

// Bytes returns ReadFileRecordResponse packet as bytes form
func (r ReadFileRecordResponse) Bytes() []byte {
	return r.bytes(make([]byte, r.len()))
}

func (r ReadFileRecordResponse) bytes(data []byte) []byte {
	data[0] = r.UnitID
	data[1] = FunctionReadFileRecord
	data[2] = r.byteCount()
	offset := 3
	for _, s := range r.SubResp {
		s.bytes(data[offset : offset+s.len()])
		offset += s.len()
	}
	return data
}
