package packet

import (
	"math/rand/v2"
)

// Read Device Identification access / category codes (Modbus Application Protocol spec, section 6.21).
const (
	// ReadDeviceIDCodeBasic requests the mandatory basic device identification objects (0x00-0x02), streamed one packet at a time.
	ReadDeviceIDCodeBasic = uint8(1)
	// ReadDeviceIDCodeRegular requests the regular device identification objects (0x00-0x06).
	ReadDeviceIDCodeRegular = uint8(2)
	// ReadDeviceIDCodeExtended requests all, including optional, device identification objects.
	ReadDeviceIDCodeExtended = uint8(3)
	// ReadDeviceIDCodeSpecific requests one specific object, named by ObjectID in the request.
	ReadDeviceIDCodeSpecific = uint8(4)
)

// ReadDeviceIdentificationRequestTCP is TCP Request for Read Device Identification (FC=43/0x2B, MEI type 0x0E)
type ReadDeviceIdentificationRequestTCP struct {
	MBAPHeader
	ReadDeviceIdentificationRequest
}

// ReadDeviceIdentificationRequestRTU is RTU Request for Read Device Identification (FC=43/0x2B, MEI type 0x0E)
type ReadDeviceIdentificationRequestRTU struct {
	ReadDeviceIdentificationRequest
}

// ReadDeviceIdentificationRequest is Request for Read Device Identification (FC=43/0x2B, MEI type 0x0E)
type ReadDeviceIdentificationRequest struct {
	UnitID       uint8
	ReadDeviceID uint8 // one of ReadDeviceIDCodeBasic/Regular/Extended/Specific
	ObjectID     uint8 // object to start streaming from, or the specific object id when ReadDeviceID is ReadDeviceIDCodeSpecific
}

// NewReadDeviceIdentificationRequestTCP creates new instance of Read Device Identification TCP request
func NewReadDeviceIdentificationRequestTCP(unitID uint8, readDeviceID uint8, objectID uint8) (*ReadDeviceIdentificationRequestTCP, error) {
	return &ReadDeviceIdentificationRequestTCP{
		MBAPHeader: MBAPHeader{
			TransactionID: 1 + rand.N(uint16(65534)), // #nosec G404
			ProtocolID:    0,
		},
		ReadDeviceIdentificationRequest: ReadDeviceIdentificationRequest{
			UnitID:       unitID,
			ReadDeviceID: readDeviceID,
			ObjectID:     objectID,
		},
	}, nil
}

// NewReadDeviceIdentificationRequestRTU creates new instance of Read Device Identification RTU request
func NewReadDeviceIdentificationRequestRTU(unitID uint8, readDeviceID uint8, objectID uint8) (*ReadDeviceIdentificationRequestRTU, error) {
	return &ReadDeviceIdentificationRequestRTU{
		ReadDeviceIdentificationRequest: ReadDeviceIdentificationRequest{
			UnitID:       unitID,
			ReadDeviceID: readDeviceID,
			ObjectID:     objectID,
		},
	}, nil
}

// Bytes returns ReadDeviceIdentificationRequestTCP packet as bytes form
func (r ReadDeviceIdentificationRequestTCP) Bytes() []byte {
	length := uint16(5)
	result := make([]byte, tcpMBAPHeaderLen+length)
	r.MBAPHeader.bytes(result[0:6], length)
	r.ReadDeviceIdentificationRequest.bytes(result[6 : 6+length])
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r ReadDeviceIdentificationRequestTCP) ExpectedResponseLength() int {
	// variable length response (object list), at least header + unitID + fc + mei type + readDeviceID + conformity
	// + moreFollows + nextObjectID + numberOfObjects
	return 6 + 8
}

// ParseReadDeviceIdentificationRequestTCP parses given bytes into ReadDeviceIdentificationRequestTCP
func ParseReadDeviceIdentificationRequestTCP(data []byte) (*ReadDeviceIdentificationRequestTCP, error) {
	header, err := ParseMBAPHeader(data)
	if err != nil {
		return nil, err
	}
	unitID := data[6]
	if data[7] != FunctionEncapsulatedInterfaceTransport {
		tmpErr := NewErrorParseTCP(ErrIllegalFunction, "received function code in packet is not 0x2B")
		tmpErr.Packet.TransactionID = header.TransactionID
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionEncapsulatedInterfaceTransport
		return nil, tmpErr
	}
	if len(data) != 11 {
		tmpErr := NewErrorParseTCP(ErrServerFailure, "received data length too short to be valid packet")
		tmpErr.Packet.TransactionID = header.TransactionID
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionEncapsulatedInterfaceTransport
		return nil, tmpErr
	}
	if data[8] != MEITypeReadDeviceIdentification {
		tmpErr := NewErrorParseTCP(ErrIllegalFunction, "received MEI type in packet is not 0x0E")
		tmpErr.Packet.TransactionID = header.TransactionID
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionEncapsulatedInterfaceTransport
		return nil, tmpErr
	}
	return &ReadDeviceIdentificationRequestTCP{
		MBAPHeader: header,
		ReadDeviceIdentificationRequest: ReadDeviceIdentificationRequest{
			UnitID:       unitID,
			ReadDeviceID: data[9],
			ObjectID:     data[10],
		},
	}, nil
}

// Bytes returns ReadDeviceIdentificationRequestRTU packet as bytes form
func (r ReadDeviceIdentificationRequestRTU) Bytes() []byte {
	result := make([]byte, 5+2)
	bytes := r.ReadDeviceIdentificationRequest.bytes(result)
	crc := CRC16(bytes[:5])
	result[5] = uint8(crc)
	result[6] = uint8(crc >> 8)
	return result
}

// ExpectedResponseLength returns length of bytes that valid response to this request would be
func (r ReadDeviceIdentificationRequestRTU) ExpectedResponseLength() int {
	return 8 + 2
}

// ParseReadDeviceIdentificationRequestRTU parses given bytes into ReadDeviceIdentificationRequestRTU
// Does not check CRC
func ParseReadDeviceIdentificationRequestRTU(data []byte) (*ReadDeviceIdentificationRequestRTU, error) {
	dLen := len(data)
	if dLen != 7 && dLen != 5 { // with or without CRC bytes
		return nil, NewErrorParseRTU(ErrServerFailure, "invalid data length to be valid packet")
	}
	unitID := data[0]
	if data[1] != FunctionEncapsulatedInterfaceTransport {
		tmpErr := NewErrorParseRTU(ErrIllegalFunction, "received function code in packet is not 0x2B")
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionEncapsulatedInterfaceTransport
		return nil, tmpErr
	}
	if data[2] != MEITypeReadDeviceIdentification {
		tmpErr := NewErrorParseRTU(ErrIllegalFunction, "received MEI type in packet is not 0x0E")
		tmpErr.Packet.UnitID = unitID
		tmpErr.Packet.Function = FunctionEncapsulatedInterfaceTransport
		return nil, tmpErr
	}
	return &ReadDeviceIdentificationRequestRTU{
		ReadDeviceIdentificationRequest: ReadDeviceIdentificationRequest{
			UnitID:       unitID,
			ReadDeviceID: data[3],
			ObjectID:     data[4],
		},
	}, nil
}

// FunctionCode returns function code of this request
func (r ReadDeviceIdentificationRequest) FunctionCode() uint8 {
	return FunctionEncapsulatedInterfaceTransport
}

// Bytes returns ReadDeviceIdentificationRequest packet as bytes form
func (r ReadDeviceIdentificationRequest) Bytes() []byte {
	return r.bytes(make([]byte, 5))
}

func (r ReadDeviceIdentificationRequest) bytes(bytes []byte) []byte {
	bytes[0] = r.UnitID
	bytes[1] = FunctionEncapsulatedInterfaceTransport
	bytes[2] = MEITypeReadDeviceIdentification
	bytes[3] = r.ReadDeviceID
	bytes[4] = r.ObjectID
	return bytes
}
