package packet

import (
	"encoding/binary"
	"errors"
	"math/rand/v2"
)

// FileRecordReferenceType is the reference type byte used in Read/Write File Record sub-requests.
// The Modbus spec fixes it at 6 for all current devices.
const FileRecordReferenceType = uint8(6)

// ReadFileSubRequest is one sub-request within a Read File Record request, addressing a range of
// registers inside one record of one extended memory file.
type ReadFileSubRequest struct {
	FileNumber   uint16
	RecordNumber uint16
	RecordLength uint16 // quantity of registers to read
}

func (s ReadFileSubRequest) bytes(dst []byte) {
	dst[0] = FileRecordReferenceType
	binary.BigEndian.PutUint16(dst[1:3], s.FileNumber)
	binary.BigEndian.PutUint16(dst[3:5], s.RecordNumber)
	binary.BigEndian.PutUint16(dst[5:7], s.RecordLength)
}

// ReadFileRecordRequestTCP is TCP Request for Read File Record function (FC=20, 0x14)
type ReadFileRecordRequestTCP struct {
	MBAPHeader
	ReadFileRecordRequest
}

// ReadFileRecordRequestRTU is RTU Request for Read File Record function (FC=20, 0x14)
type ReadFileRecordRequestRTU struct {
	ReadFileRecordRequest
}

// ReadFileRecordRequest is Request for Read File Record function (FC=20, 0x14)
type ReadFileRecordRequest struct {
	UnitID  uint8
	SubReqs []ReadFileSubRequest
}

func (r ReadFileRecordRequest) byteCount() uint8 {
	return uint8(len(r.SubReqs) * 7)
}

// NewReadFileRecordRequestTCP creates new instance of Read File Record TCP request
func NewReadFileRecordRequestTCP(unitID uint8, subReqs []ReadFileSubRequest) (*ReadFileRecordRequestTCP, error) {
	if len(subReqs) == 0 {
		return nil, errors.New("at least one sub-request is required")
	}
	return &ReadFileRecordRequestTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: 1 + rand.N(uint16(65534)), // #nosec G404
			ProtocolID:    0,
		},
		ReadFileRecordRequest: ReadFileRecordRequest{
			UnitID:  unitID,
			SubReqs: subReqs,
		},
	}, nil
}

// NewReadFileRecordRequestRTU creates new instance of Read File Record RTU request
func NewReadFileRecordRequestRTU(unitID uint8, subReqs []ReadFileSubRequest) (*ReadFileRecordRequestRTU, error) {
	if len(subReqs) == 0 {
		return nil, errors.New("at least one sub-request is required")
	}
	return &ReadFileRecordRequestRTU{
		ReadFileRecordRequest: ReadFileRecordRequest{
			UnitID:  unitID,
			SubReqs: subReqs,
		},
	}, nil
}

// Bytes returns ReadFileRecordRequestTCP packet as bytes form
func (r ReadFileRecordRequestTCP) Bytes() []byte {
	length := uint16(3) + uint16(r.byteCount())
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.ReadFileRecordRequest.bytes(result[6:])
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r ReadFileRecordRequestTCP) ExpectedResponseLength() int {
	// variable length, depends on returned record data; at least header + unitID + fc + byte count
	return 6 + 3
}

// ParseReadFileRecordRequestTCP parses given bytes into ReadFileRecordRequestTCP
func ParseReadFileRecordRequestTCP(data []byte) (*ReadFileRecordRequestTCP, error) {
	header, err := ParseMBAPHeader(data)
	if err != nil {
		return nil, err
	}
	unitID := data[6]
	if data[7] != FunctionReadFileRecord {
		tmpErr := NewErrorParseTCP(ErrIllegalFunction, "received function code in packet is not 0x14")
		tmpErr.Packet.TransactionID = header.TransactionID
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionReadFileRecord
		return nil, tmpErr
	}
	subReqs, err := parseReadFileSubRequests(data[8:], int(data[8]))
	if err != nil {
		return nil, err
	}
	return &ReadFileRecordRequestTCP{
		MBAPHeader: header,
		ReadFileRecordRequest: ReadFileRecordRequest{
			UnitID:  unitID,
			SubReqs: subReqs,
		},
	}, nil
}

func parseReadFileSubRequests(data []byte, byteCount int) ([]ReadFileSubRequest, error) {
	// data[0] holds byteCount itself, sub-requests start at data[1]
	body := data[1:]
	if len(body) < byteCount || byteCount%7 != 0 {
		return nil, errors.New("received byte count does not match sub-request list length")
	}
	n := byteCount / 7
	subReqs := make([]ReadFileSubRequest, n)
	for i := 0; i < n; i++ {
		off := i * 7
		// body[off] is reference type, assumed to be FileRecordReferenceType
		subReqs[i] = ReadFileSubRequest{
			FileNumber:   binary.BigEndian.Uint16(body[off+1 : off+3]),
			RecordNumber: binary.BigEndian.Uint16(body[off+3 : off+5]),
			RecordLength: binary.BigEndian.Uint16(body[off+5 : off+7]),
		}
	}
	return subReqs, nil
}

// Bytes returns ReadFileRecordRequestRTU packet as bytes form
func (r ReadFileRecordRequestRTU) Bytes() []byte {
	length := 3 + int(r.byteCount())
	result := make([]byte, length+2)
	bytes := r.ReadFileRecordRequest.bytes(result)
	crc := CRC16(bytes[:length])
	result[length] = uint8(crc)
	result[length+1] = uint8(crc >> 8)
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r ReadFileRecordRequestRTU) ExpectedResponseLength() int {
	return 3 + 2
}

// ParseReadFileRecordRequestRTU parses given bytes into ReadFileRecordRequestRTU
// Does not check CRC
func ParseReadFileRecordRequestRTU(data []byte) (*ReadFileRecordRequestRTU, error) {
	if len(data) < 3 {
		return nil, NewErrorParseRTU(ErrServerFailure, "invalid data length to be valid packet")
	}
	unitID := data[0]
	if data[1] != FunctionReadFileRecord {
		tmpErr := NewErrorParseRTU(ErrIllegalFunction, "received function code in packet is not 0x14")
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionReadFileRecord
		return nil, tmpErr
	}
	subReqs, err := parseReadFileSubRequests(data[2:], int(data[2]))
	if err != nil {
		return nil, err
	}
	return &ReadFileRecordRequestRTU{
		ReadFileRecordRequest: ReadFileRecordRequest{
			UnitID:  unitID,
			SubReqs: subReqs,
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r ReadFileRecordRequest) FunctionCode() uint8 {
	return FunctionReadFileRecord
}

// Bytes returns ReadFileRecordRequest packet as bytes form
func (r ReadFileRecordRequest) Bytes() []byte {
	return r.bytes(make([]byte, 3+r.byteCount()))
}

func (r ReadFileRecordRequest) bytes(data []byte) []byte {
	data[0] = r.UnitID
	data[1] = FunctionReadFileRecord
	data[2] = r.byteCount()
	offset := 3
	for _, s := range r.SubReqs {
		s.bytes(data[offset : offset+7])
		offset += 7
	}
	return data
}
