package elefantpg

import (
	"fmt"

	"github.com/elefantpg/elefantpg-go/pgtype"
	"github.com/elefantpg/elefantpg-go/protocol"
)

// Param is a single bind parameter for the extended query flow. Value holds
// the already-encoded wire representation in Format; nil means SQL NULL
// (spec.md section 4.2 "a parameter value of absent encodes as length -1").
type Param struct {
	Value  []byte
	Format protocol.FormatCode
}

// NewParam encodes value through its Codec.ToBinary and wraps the result as
// a binary-format bind parameter.
func NewParam(value pgtype.Codec) (Param, error) {
	if value.IsNull() {
		return Param{Value: nil, Format: protocol.FormatBinary}, nil
	}

	encoded, err := value.ToBinary(nil)
	if err != nil {
		return Param{}, fmt.Errorf("encoding bind parameter: %w", err)
	}
	return Param{Value: encoded, Format: protocol.FormatBinary}, nil
}

// Text wraps a plain string as a text-format bind parameter, useful for
// callers that don't need a Codec round-trip.
func Text(s string) Param {
	return Param{Value: []byte(s), Format: protocol.FormatText}
}

// Null is the absent bind parameter.
func Null() Param {
	return Param{Value: nil, Format: protocol.FormatBinary}
}
