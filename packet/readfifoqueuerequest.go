package packet

import (
	"encoding/binary"
	"math/rand/v2"
)

// ReadFIFOQueueRequestTCP is TCP Request for Read FIFO Queue function (FC=24, 0x18)
type ReadFIFOQueueRequestTCP struct {
	MBAPHeader
	ReadFIFOQueueRequest
}

// ReadFIFOQueueRequestRTU is RTU Request for Read FIFO Queue function (FC=24, 0x18)
type ReadFIFOQueueRequestRTU struct {
	ReadFIFOQueueRequest
}

// ReadFIFOQueueRequest is Request for Read FIFO Queue function (FC=24, 0x18)
type ReadFIFOQueueRequest struct {
	UnitID             uint8
	FIFOPointerAddress uint16
}

// NewReadFIFOQueueRequestTCP creates new instance of Read FIFO Queue TCP request
func NewReadFIFOQueueRequestTCP(unitID uint8, fifoPointerAddress uint16) (*ReadFIFOQueueRequestTCP, error) {
	return &ReadFIFOQueueRequestTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: 1 + rand.N(uint16(65534)), // #nosec G404
			ProtocolID:    0,
		},
		ReadFIFOQueueRequest: ReadFIFOQueueRequest{
			UnitID:             unitID,
			FIFOPointerAddress: fifoPointerAddress,
		},
	}, nil
}

// NewReadFIFOQueueRequestRTU creates new instance of Read FIFO Queue RTU request
func NewReadFIFOQueueRequestRTU(unitID uint8, fifoPointerAddress uint16) (*ReadFIFOQueueRequestRTU, error) {
	return &ReadFIFOQueueRequestRTU{
		ReadFIFOQueueRequest: ReadFIFOQueueRequest{
			UnitID:             unitID,
			FIFOPointerAddress: fifoPointerAddress,
		},
	}, nil
}

// Bytes returns ReadFIFOQueueRequestTCP packet as bytes form
func (r ReadFIFOQueueRequestTCP) Bytes() []byte {
	length := uint16(4)
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.ReadFIFOQueueRequest.bytes(result[6 : 6+length])
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r ReadFIFOQueueRequestTCP) ExpectedResponseLength() int {
	// response = 6 header + 1 unitID + 1 fc + 2 byte count + 2 fifo count, up to 31 registers can follow
	return 6 + 6
}

// ParseReadFIFOQueueRequestTCP parses given bytes into ReadFIFOQueueRequestTCP
func ParseReadFIFOQueueRequestTCP(data []byte) (*ReadFIFOQueueRequestTCP, error) {
	header, err := ParseMBAPHeader(data)
	if err != nil {
		return nil, err
	}
	unitID := data[6]
	if data[7] != FunctionReadFIFOQueue {
		tmpErr := NewErrorParseTCP(ErrIllegalFunction, "received function code in packet is not 0x18")
		tmpErr.Packet.TransactionID = header.TransactionID
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionReadFIFOQueue
		return nil, tmpErr
	}
	if len(data) != 10 {
		tmpErr := NewErrorParseTCP(ErrServerFailure, "received data length too short to be valid packet")
		tmpErr.Packet.TransactionID = header.TransactionID
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionReadFIFOQueue
		return nil, tmpErr
	}
	return &ReadFIFOQueueRequestTCP{
		MBAPHeader: header,
		ReadFIFOQueueRequest: ReadFIFOQueueRequest{
			UnitID:             unitID,
			FIFOPointerAddress: binary.BigEndian.Uint16(data[8:10]),
		},
	}, nil
}

// Bytes returns ReadFIFOQueueRequestRTU packet as bytes form
func (r ReadFIFOQueueRequestRTU) Bytes() []byte {
	result := make([]byte, 4+2)
	bytes := r.ReadFIFOQueueRequest.bytes(result)
	crc := CRC16(bytes[:4])
	result[4] = uint8(crc)
	result[5] = uint8(crc >> 8)
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r ReadFIFOQueueRequestRTU) ExpectedResponseLength() int {
	return 6 + 2
}

// ParseReadFIFOQueueRequestRTU parses given bytes into ReadFIFOQueueRequestRTU
// Does not check CRC
func ParseReadFIFOQueueRequestRTU(data []byte) (*ReadFIFOQueueRequestRTU, error) {
	dLen := len(data)
	if dLen != 6 && dLen != 4 { // with or without CRC bytes
		return nil, NewErrorParseRTU(ErrServerFailure, "invalid data length to be valid packet")
	}
	unitID := data[0]
	if data[1] != FunctionReadFIFOQueue {
		tmpErr := NewErrorParseRTU(ErrIllegalFunction, "received function code in packet is not 0x18")
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionReadFIFOQueue
		return nil, tmpErr
	}
	return &ReadFIFOQueueRequestRTU{
		ReadFIFOQueueRequest: ReadFIFOQueueRequest{
			UnitID:             unitID,
			FIFOPointerAddress: binary.BigEndian.Uint16(data[2:4]),
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r ReadFIFOQueueRequest) FunctionCode() uint8 {
	return FunctionReadFIFOQueue
}

// Bytes returns ReadFIFOQueueRequest packet as bytes form
func (r ReadFIFOQueueRequest) Bytes() []byte {
	return r.bytes(make([]byte, 4))
}

func (r ReadFIFOQueueRequest) bytes(bytes []byte) []byte {
	bytes[0] = r.UnitID
	bytes[1] = FunctionReadFIFOQueue
	binary.BigEndian.PutUint16(bytes[2:4], r.FIFOPointerAddress)
	return bytes
}
