package packet

import (
	"encoding/binary"
	"errors"
)

// DeviceIDObject is a single (id, value) object returned by a Read Device Identification response,
// e.g. object 0x00 is VendorName, 0x01 is ProductCode, 0x02 is MajorMinorRevision.
type DeviceIDObject struct {
	ID    uint8
	Value []byte
}

func (o DeviceIDObject) len() int {
	return 2 + len(o.Value) // id (1) + length (1) + value (N)
}

// ReadDeviceIdentificationResponseTCP is TCP Response for Read Device Identification (FC=43/0x2B, MEI type 0x0E)
type ReadDeviceIdentificationResponseTCP struct {
	MBAPHeader
	ReadDeviceIdentificationResponse
}

// ReadDeviceIdentificationResponseRTU is RTU Response for Read Device Identification (FC=43/0x2B, MEI type 0x0E)
type ReadDeviceIdentificationResponseRTU struct {
	ReadDeviceIdentificationResponse
}

// ReadDeviceIdentificationResponse is Response for Read Device Identification (FC=43/0x2B, MEI type 0x0E)
type ReadDeviceIdentificationResponse struct {
	UnitID          uint8
	ReadDeviceID    uint8
	ConformityLevel uint8
	MoreFollows     bool
	NextObjectID    uint8
	Objects         []DeviceIDObject
}

func (r ReadDeviceIdentificationResponse) objectsLen() int {
	n := 0
	for _, o := range r.Objects {
		n += o.len()
	}
	return n
}

func (r ReadDeviceIdentificationResponse) len() uint16 {
	// unitID(1) + fc(1) + meiType(1) + readDeviceID(1) + conformity(1) + moreFollows(1) + nextObjectID(1) + numberOfObjects(1) + objects(N)
	return uint16(8 + r.objectsLen())
}

// Bytes returns ReadDeviceIdentificationResponseTCP packet as bytes form
func (r ReadDeviceIdentificationResponseTCP) Bytes() []byte {
	length := r.ReadDeviceIdentificationResponse.len()
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.ReadDeviceIdentificationResponse.bytes(result[6:])
	return result
}

func parseDeviceIDObjects(data []byte, count int) ([]DeviceIDObject, error) {
	objects := make([]DeviceIDObject, 0, count)
	offset := 0
	for i := 0; i < count; i++ {
		if offset+2 > len(data) {
			return nil, errors.New("device identification object list is truncated")
		}
		id := data[offset]
		objLen := int(data[offset+1])
		if offset+2+objLen > len(data) {
			return nil, errors.New("device identification object value is truncated")
		}
		value := make([]byte, objLen)
		copy(value, data[offset+2:offset+2+objLen])
		objects = append(objects, DeviceIDObject{ID: id, Value: value})
		offset += 2 + objLen
	}
	return objects, nil
}

// ParseReadDeviceIdentificationResponseTCP parses given bytes into ReadDeviceIdentificationResponseTCP
func ParseReadDeviceIdentificationResponseTCP(data []byte) (*ReadDeviceIdentificationResponseTCP, error) {
	dLen := len(data)
	if dLen < 14 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	numberOfObjects := int(data[13])
	objects, err := parseDeviceIDObjects(data[14:], numberOfObjects)
	if err != nil {
		return nil, err
	}
	return &ReadDeviceIdentificationResponseTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: binary.BigEndian.Uint16(data[0:2]),
			ProtocolID:    0,
		},
		ReadDeviceIdentificationResponse: ReadDeviceIdentificationResponse{
			UnitID: data[6],
			// fc (7), mei type (8)
			ReadDeviceID:    data[9],
			ConformityLevel: data[10],
			MoreFollows:     data[11] != 0,
			NextObjectID:    data[12],
			Objects:         objects,
		},
	}, nil
}

// Bytes returns ReadDeviceIdentificationResponseRTU packet as bytes form
func (r ReadDeviceIdentificationResponseRTU) Bytes() []byte {
	length := r.len()
	result := make([]byte, length+2)
	bytes := r.ReadDeviceIdentificationResponse.bytes(result)
	crc := CRC16(bytes[:length])
	result[length] = uint8(crc)
	result[length+1] = uint8(crc >> 8)
	return result
}

// ParseReadDeviceIdentificationResponseRTU parses given bytes into ReadDeviceIdentificationResponseRTU
func ParseReadDeviceIdentificationResponseRTU(data []byte) (*ReadDeviceIdentificationResponseRTU, error) {
	dLen := len(data)
	if dLen < 10 {
		return nil, errors.New("received data length too short to be valid packet")
	}
	numberOfObjects := int(data[7])
	objects, err := parseDeviceIDObjects(data[8:dLen-2], numberOfObjects)
	if err != nil {
		return nil, err
	}
	return &ReadDeviceIdentificationResponseRTU{
		ReadDeviceIdentificationResponse: ReadDeviceIdentificationResponse{
			UnitID: data[0],
			// fc (1), mei type (2)
			ReadDeviceID:    data[3],
			ConformityLevel: data[4],
			MoreFollows:     data[5] != 0,
			NextObjectID:    data[6],
			Objects:         objects,
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r ReadDeviceIdentificationResponse) FunctionCode() uint8 {
	return FunctionEncapsulatedInterfaceTransport
}

// Bytes returns ReadDeviceIdentificationResponse packet as bytes form
func (r ReadDeviceIdentificationResponse) Bytes() []byte {
	return r.bytes(make([]byte, r.len()))
}

func (r ReadDeviceIdentificationResponse) bytes(data []byte) []byte {
	data[0] = r.UnitID
	data[1] = FunctionEncapsulatedInterfaceTransport
	data[2] = MEITypeReadDeviceIdentification
	data[3] = r.ReadDeviceID
	data[4] = r.ConformityLevel
	if r.MoreFollows {
		data[5] = 0xFF
	} else {
		data[5] = 0x00
	}
	data[6] = r.NextObjectID
	data[7] = uint8(len(r.Objects))
	offset := 8
	for _, o := range r.Objects {
		data[offset] = o.ID
		data[offset+1] = uint8(len(o.Value))
		copy(data[offset+2:], o.Value)
		offset += o.len()
	}
	return data
}
