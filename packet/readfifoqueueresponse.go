package packet

import (
	"encoding/binary"
	"errors"
)

// ReadFIFOQueueResponseTCP is TCP Response for Read FIFO Queue (FC=24) 0x18
//
// 0x.. 0x.. - byte count of everything following this field, includes fifo count field (8,9)
// 0x.. 0x.. - fifo count, 0 to 31 registers (10,11)
// N * 2 bytes - fifo register values, oldest-to-newest (12..)
type ReadFIFOQueueResponseTCP struct {
	MBAPHeader
	ReadFIFOQueueResponse
}

// ReadFIFOQueueResponseRTU is RTU Response for Read FIFO Queue (FC=24) 0x18
type ReadFIFOQueueResponseRTU struct {
	ReadFIFOQueueResponse
}

// ReadFIFOQueueResponse is Response for Read FIFO Queue (FC=24) 0x18
type ReadFIFOQueueResponse struct {
	UnitID  uint8
	FIFOIDs []uint16
}

func (r ReadFIFOQueueResponse) byteCount() uint16 {
	// fifo count (2) + fifo values (N*2)
	return uint16(2 + len(r.FIFOIDs)*2)
}

func (r ReadFIFOQueueResponse) len() uint16 {
	// unit id (1) + fc (1) + byte count (2) + byteCount()
	return 4 + r.byteCount()
}

// Bytes returns ReadFIFOQueueResponseTCP packet as bytes form
func (r ReadFIFOQueueResponseTCP) Bytes() []byte {
	length := r.ReadFIFOQueueResponse.len()
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.ReadFIFOQueueResponse.bytes(result[6:])
	return result
}

// ParseReadFIFOQueueResponseTCP parses given bytes into ReadFIFOQueueResponseTCP
func ParseReadFIFOQueueResponseTCP(data []byte) (*ReadFIFOQueueResponseTCP, error) {
	dLen := len(data)
	if dLen < 12 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	byteCount := int(binary.BigEndian.Uint16(data[8:10]))
	if dLen != 8+byteCount {
		return nil, errors.New("received data length does not match byte count in packet")
	}
	fifoCount := int(binary.BigEndian.Uint16(data[10:12]))
	if 2+fifoCount*2 != byteCount {
		return nil, errors.New("fifo count does not match byte count in packet")
	}
	fifoIDs := make([]uint16, fifoCount)
	for i := 0; i < fifoCount; i++ {
		fifoIDs[i] = binary.BigEndian.Uint16(data[12+i*2 : 14+i*2])
	}
	return &ReadFIFOQueueResponseTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: binary.BigEndian.Uint16(data[0:2]),
			ProtocolID:    0,
		},
		ReadFIFOQueueResponse: ReadFIFOQueueResponse{
			UnitID: data[6],
			// fc (7), byte count (8,9), fifo count (10,11)
			FIFOIDs: fifoIDs,
		},
	}, nil
}

// Bytes returns ReadFIFOQueueResponseRTU packet as bytes form
func (r ReadFIFOQueueResponseRTU) Bytes() []byte {
	length := r.len()
	result := make([]byte, length+2)
	bytes := r.ReadFIFOQueueResponse.bytes(result)
	crc := CRC16(bytes[:length])
	result[length] = uint8(crc)
	result[length+1] = uint8(crc >> 8)
	return result
}

// ParseReadFIFOQueueResponseRTU parses given bytes into ReadFIFOQueueResponseRTU
func ParseReadFIFOQueueResponseRTU(data []byte) (*ReadFIFOQueueResponseRTU, error) {
	dLen := len(data)
	if dLen < 8 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	byteCount := int(binary.BigEndian.Uint16(data[2:4]))
	if dLen != 2+byteCount+2 {
		return nil, errors.New("received data length does not match byte count in packet")
	}
	fifoCount := int(binary.BigEndian.Uint16(data[4:6]))
	if 2+fifoCount*2 != byteCount {
		return nil, errors.New("fifo count does not match byte count in packet")
	}
	fifoIDs := make([]uint16, fifoCount)
	for i := 0; i < fifoCount; i++ {
		fifoIDs[i] = binary.BigEndian.Uint16(data[6+i*2 : 8+i*2])
	}
	return &ReadFIFOQueueResponseRTU{
		ReadFIFOQueueResponse: ReadFIFOQueueResponse{
			UnitID: data[0],
			// fc (1), byte count (2,3), fifo count (4,5)
			FIFOIDs: fifoIDs,
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r ReadFIFOQueueResponse) FunctionCode() uint8 {
	return FunctionReadFIFOQueue
}

// Bytes returns ReadFIFOQueueResponse packet as bytes form
func (r ReadFIFOQueueResponse) Bytes() []byte {
	return r.bytes(make([]byte, r.len()))
}

func (r ReadFIFOQueueResponse) bytes(data []byte) []byte {
	data[0] = r.UnitID
	data[1] = FunctionReadFIFOQueue
	binary.BigEndian.PutUint16(data[2:4], r.byteCount())
	binary.BigEndian.PutUint16(data[4:6], uint16(len(r.FIFOIDs)))
	for i, id := range r.FIFOIDs {
		binary.BigEndian.PutUint16(data[6+i*2:8+i*2], id)
	}
	return data
}
