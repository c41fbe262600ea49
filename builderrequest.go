package modbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/modbusgo/client/packet"
)

// BuilderRequest is one request produced by the splitter together with the metadata (which server,
// which fields it covers) needed to extract values back out of its response.
type BuilderRequest struct {
	packet.Request

	ServerAddress   string
	UnitID          uint8
	StartAddress    uint16
	Protocol        ProtocolType
	RequestInterval time.Duration

	Fields Fields
}

// ErrorFieldExtractHadError is returned by ExtractFields (when continueOnExtractionErrors is true)
// to signal that one or more fields in the returned slice carry a non-nil FieldValue.Error.
var ErrorFieldExtractHadError = errors.New("field extraction had one or more errors, check individual FieldValue.Error")

// FieldValue is one Field's value (or extraction error) pulled out of a response.
type FieldValue struct {
	Field Field
	Value any
	Error error
}

// registersResponse is satisfied by the register-oriented response types (FC3/FC4/FC23), which
// already expose AsRegisters from packet.
type registersResponse interface {
	AsRegisters(startAddress uint16) (*packet.Registers, error)
}

// coilsResponse is satisfied by the coil-oriented response types (FC1/FC2).
type coilsResponse interface {
	IsCoilSet(startAddress uint16, coilAddress uint16) (bool, error)
}

// AsRegisters extracts resp's data as packet.Registers anchored at this request's StartAddress.
func (rr BuilderRequest) AsRegisters(resp registersResponse) (*packet.Registers, error) {
	return resp.AsRegisters(rr.StartAddress)
}

// ExtractFields extracts every field this request was built for out of resp. When
// continueOnExtractionErrors is false, extraction stops at the first failing field and that error
// is returned directly. When true, extraction continues over every field, each failing field's
// FieldValue.Error is set, and ErrorFieldExtractHadError is returned alongside the full slice so the
// caller can tell at a glance that something needs a closer look.
func (rr BuilderRequest) ExtractFields(resp packet.Response, continueOnExtractionErrors bool) ([]FieldValue, error) {
	var registers *packet.Registers
	if regResp, ok := resp.(registersResponse); ok {
		regs, err := regResp.AsRegisters(rr.StartAddress)
		if err != nil {
			return nil, err
		}
		registers = regs
	}
	coils, _ := resp.(coilsResponse)

	hadError := false
	result := make([]FieldValue, 0, len(rr.Fields))
	for _, f := range rr.Fields {
		fv := FieldValue{Field: f}

		var value any
		var err error
		switch {
		case f.Type == FieldTypeCoil && coils != nil:
			value, err = coils.IsCoilSet(rr.StartAddress, f.Address)
		case f.Type == FieldTypeCoil:
			err = errors.New("response does not support coil extraction")
		case registers != nil:
			value, err = f.ExtractFrom(registers)
		default:
			err = errors.New("response does not support register extraction")
		}

		if err != nil {
			hadError = true
			if !continueOnExtractionErrors {
				return nil, fmt.Errorf("field extraction failed. name: %s err: %w", f.Name, err)
			}
			fv.Error = err
		} else {
			fv.Value = value
		}
		result = append(result, fv)
	}
	if hadError {
		return result, ErrorFieldExtractHadError
	}
	return result, nil
}
