package packet

import (
	"encoding/binary"
	"errors"
	"math/rand/v2"
)

// WriteFileSubRequest is one sub-request within a Write File Record request, carrying the register
// data to write into one record of one extended memory file.
type WriteFileSubRequest struct {
	FileNumber   uint16
	RecordNumber uint16
	Data         []byte // register values as raw bytes, 2 bytes per register
}

func (s WriteFileSubRequest) recordLength() uint16 {
	return uint16(len(s.Data) / 2)
}

func (s WriteFileSubRequest) len() int {
	return 7 + len(s.Data)
}

func (s WriteFileSubRequest) bytes(dst []byte) {
	dst[0] = FileRecordReferenceType
	binary.BigEndian.PutUint16(dst[1:3], s.FileNumber)
	binary.BigEndian.PutUint16(dst[3:5], s.RecordNumber)
	binary.BigEndian.PutUint16(dst[5:7], s.recordLength())
	copy(dst[7:], s.Data)
}

// WriteFileRecordRequestTCP is TCP Request for Write File Record function (FC=21, 0x15)
type WriteFileRecordRequestTCP struct {
	MBAPHeader
	WriteFileRecordRequest
}

// WriteFileRecordRequestRTU is RTU Request for Write File Record function (FC=21, 0x15)
type WriteFileRecordRequestRTU struct {
	WriteFileRecordRequest
}

// WriteFileRecordRequest is Request for Write File Record function (FC=21, 0x15)
type WriteFileRecordRequest struct {
	UnitID  uint8
	SubReqs []WriteFileSubRequest
}

func (r WriteFileRecordRequest) byteCount() uint8 {
	n := 0
	for _, s := range r.SubReqs {
		n += s.len()
	}
	return uint8(n)
}

// NewWriteFileRecordRequestTCP creates new instance of Write File Record TCP request
func NewWriteFileRecordRequestTCP(unitID uint8, subReqs []WriteFileSubRequest) (*WriteFileRecordRequestTCP, error) {
	if len(subReqs) == 0 {
		return nil, errors.New("at least one sub-request is required")
	}
	return &WriteFileRecordRequestTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: 1 + rand.N(uint16(65534)), // #nosec G404
			ProtocolID:    0,
		},
		WriteFileRecordRequest: WriteFileRecordRequest{
			UnitID:  unitID,
			SubReqs: subReqs,
		},
	}, nil
}

// NewWriteFileRecordRequestRTU creates new instance of Write File Record RTU request
func NewWriteFileRecordRequestRTU(unitID uint8, subReqs []WriteFileSubRequest) (*WriteFileRecordRequestRTU, error) {
	if len(subReqs) == 0 {
		return nil, errors.New("at least one sub-request is required")
	}
	return &WriteFileRecordRequestRTU{
		WriteFileRecordRequest: WriteFileRecordRequest{
			UnitID:  unitID,
			SubReqs: subReqs,
		},
	}, nil
}

// Bytes returns WriteFileRecordRequestTCP packet as bytes form
func (r WriteFileRecordRequestTCP) Bytes() []byte {
	length := uint16(3) + uint16(r.byteCount())
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.WriteFileRecordRequest.bytes(result[6:])
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r WriteFileRecordRequestTCP) ExpectedResponseLength() int {
	// normal response is an echo of the request
	return 6 + 3 + int(r.byteCount())
}

func parseWriteFileSubRequests(data []byte, byteCount int) ([]WriteFileSubRequest, error) {
	if len(data) < byteCount {
		return nil, errors.New("received data shorter than byte count in packet")
	}
	var subs []WriteFileSubRequest
	offset := 0
	for offset < byteCount {
		if offset+7 > byteCount {
			return nil, errors.New("sub-request list is truncated")
		}
		recordLength := int(binary.BigEndian.Uint16(data[offset+5 : offset+7]))
		dataLen := recordLength * 2
		if offset+7+dataLen > byteCount {
			return nil, errors.New("sub-request data is truncated")
		}
		value := make([]byte, dataLen)
		copy(value, data[offset+7:offset+7+dataLen])
		subs = append(subs, WriteFileSubRequest{
			FileNumber:   binary.BigEndian.Uint16(data[offset+1 : offset+3]),
			RecordNumber: binary.BigEndian.Uint16(data[offset+3 : offset+5]),
			Data:         value,
		})
		offset += 7 + dataLen
	}
	return subs, nil
}

// ParseWriteFileRecordRequestTCP parses given bytes into WriteFileRecordRequestTCP
func ParseWriteFileRecordRequestTCP(data []byte) (*WriteFileRecordRequestTCP, error) {
	header, err := ParseMBAPHeader(data)
	if err != nil {
		return nil, err
	}
	unitID := data[6]
	if data[7] != FunctionWriteFileRecord {
		tmpErr := NewErrorParseTCP(ErrIllegalFunction, "received function code in packet is not 0x15")
		tmpErr.Packet.TransactionID = header.TransactionID
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionWriteFileRecord
		return nil, tmpErr
	}
	byteCount := int(data[8])
	subReqs, err := parseWriteFileSubRequests(data[9:], byteCount)
	if err != nil {
		return nil, err
	}
	return &WriteFileRecordRequestTCP{
		MBAPHeader: header,
		WriteFileRecordRequest: WriteFileRecordRequest{
			UnitID:  unitID,
			SubReqs: subReqs,
		},
	}, nil
}

// Bytes returns WriteFileRecordRequestRTU packet as bytes form
func (r WriteFileRecordRequestRTU) Bytes() []byte {
	length := 3 + int(r.byteCount())
	result := make([]byte, length+2)
	bytes := r.WriteFileRecordRequest.bytes(result)
	crc := CRC16(bytes[:length])
	result[length] = uint8(crc)
	result[length+1] = uint8(crc >> 8)
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r WriteFileRecordRequestRTU) ExpectedResponseLength() int {
	return 3 + int(r.byteCount()) + 2
}

// ParseWriteFileRecordRequestRTU parses given bytes into WriteFileRecordRequestRTU
// Does not check CRC
func ParseWriteFileRecordRequestRTU(data []byte) (*WriteFileRecordRequestRTU, error) {
	if len(data) < 3 {
		return nil, NewErrorParseRTU(ErrServerFailure, "invalid data length to be valid packet")
	}
	unitID := data[0]
	if data[1] != FunctionWriteFileRecord {
		tmpErr := NewErrorParseRTU(ErrIllegalFunction, "received function code in packet is not 0x15")
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionWriteFileRecord
		return nil, tmpErr
	}
	byteCount := int(data[2])
	subReqs, err := parseWriteFileSubRequests(data[3:], byteCount)
	if err != nil {
		return nil, err
	}
	return &WriteFileRecordRequestRTU{
		WriteFileRecordRequest: WriteFileRecordRequest{
			UnitID:  unitID,
			SubReqs: subReqs,
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r WriteFileRecordRequest) FunctionCode() uint8 {
	return FunctionWriteFileRecord
}

// Bytes returns WriteFileRecordRequest packet as bytes form
func (r WriteFileRecordRequest) Bytes() []byte {
	return r.bytes(make([]byte, 3+r.byteCount()))
}

func (r WriteFileRecordRequest) bytes(data []byte) []byte {
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
