package modbus

import "github.com/modbusgo/client/packet"

// BuilderDefaults are the values a Builder stamps onto Fields: AddField fills them in wherever the
// field leaves them at the zero value, and the Bit/Coil/Byte/... convenience constructors in
// bfield.go always set them. Add and AddAll append fields as they are.
type BuilderDefaults struct {
	ServerAddress string
	FunctionCode  uint8
	UnitID        uint8
	Protocol      ProtocolType
	Interval      Duration
}

// Builder accumulates Field definitions and groups them into the minimal set of requests needed
// to read them all, via the splitter's address-range batching.
type Builder struct {
	config BuilderDefaults
	fields Fields
}

// NewRequestBuilder creates a Builder defaulting every field to the given server address and unit id.
func NewRequestBuilder(serverAddress string, unitID uint8) *Builder {
	return NewRequestBuilderWithConfig(BuilderDefaults{ServerAddress: serverAddress, UnitID: unitID})
}

// NewRequestBuilderWithConfig creates a Builder with the given field defaults.
func NewRequestBuilderWithConfig(defaults BuilderDefaults) *Builder {
	return &Builder{config: defaults, fields: make(Fields, 0)}
}

// AddField appends field to the builder, filling in ServerAddress/FunctionCode/UnitID/Protocol/
// RequestInterval from the builder's defaults wherever the field leaves them at the zero value.
func (b *Builder) AddField(field Field) *Builder {
	if field.ServerAddress == "" {
		field.ServerAddress = b.config.ServerAddress
	}
	if field.FunctionCode == 0 {
		field.FunctionCode = b.config.FunctionCode
	}
	if field.UnitID == 0 {
		field.UnitID = b.config.UnitID
	}
	if field.Protocol == protocolAny {
		field.Protocol = b.config.Protocol
	}
	if field.RequestInterval == 0 {
		field.RequestInterval = b.config.Interval
	}
	b.fields = append(b.fields, field)
	return b
}

// AddAll appends fields to the builder as-is, without applying the builder's defaults.
func (b *Builder) AddAll(fields Fields) *Builder {
	b.fields = append(b.fields, fields...)
	return b
}

// Split groups the builder's fields into requests without forcing a common function code or
// protocol: fields that already carry their own FunctionCode/Protocol are grouped accordingly.
func (b *Builder) Split() ([]BuilderRequest, error) {
	return split(b.fields, 0, protocolAny)
}

// ReadCoilsTCP groups the builder's coil fields into FC1 Modbus TCP requests.
func (b *Builder) ReadCoilsTCP() ([]BuilderRequest, error) {
	return split(b.fields, packet.FunctionReadCoils, ProtocolTCP)
}

// ReadCoilsRTU groups the builder's coil fields into FC1 Modbus RTU requests.
func (b *Builder) ReadCoilsRTU() ([]BuilderRequest, error) {
	return split(b.fields, packet.FunctionReadCoils, ProtocolRTU)
}

// ReadDiscreteInputsTCP groups the builder's coil fields into FC2 Modbus TCP requests.
func (b *Builder) ReadDiscreteInputsTCP() ([]BuilderRequest, error) {
	return split(b.fields, packet.FunctionReadDiscreteInputs, ProtocolTCP)
}

// ReadDiscreteInputsRTU groups the builder's coil fields into FC2 Modbus RTU requests.
func (b *Builder) ReadDiscreteInputsRTU() ([]BuilderRequest, error) {
	return split(b.fields, packet.FunctionReadDiscreteInputs, ProtocolRTU)
}

// ReadHoldingRegistersTCP groups the builder's register fields into FC3 Modbus TCP requests.
func (b *Builder) ReadHoldingRegistersTCP() ([]BuilderRequest, error) {
	return split(b.fields, packet.FunctionReadHoldingRegisters, ProtocolTCP)
}

// ReadHoldingRegistersRTU groups the builder's register fields into FC3 Modbus RTU requests.
func (b *Builder) ReadHoldingRegistersRTU() ([]BuilderRequest, error) {
	return split(b.fields, packet.FunctionReadHoldingRegisters, ProtocolRTU)
}

// ReadInputRegistersTCP groups the builder's register fields into FC4 Modbus TCP requests.
func (b *Builder) ReadInputRegistersTCP() ([]BuilderRequest, error) {
	return split(b.fields, packet.FunctionReadInputRegisters, ProtocolTCP)
}

// ReadInputRegistersRTU groups the builder's register fields into FC4 Modbus RTU requests.
func (b *Builder) ReadInputRegistersRTU() ([]BuilderRequest, error) {
	return split(b.fields, packet.FunctionReadInputRegisters, ProtocolRTU)
}
