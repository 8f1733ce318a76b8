package pgtype

import (
	"github.com/google/uuid"
)

// UUID decodes/encodes the Postgres uuid type using google/uuid, matching
// the original driver's use of a dedicated uuid library for this type
// rather than hand-rolled parsing (spec.md section 4.7 "UUID binary").
type UUID struct {
	uuid.UUID
}

func (v *UUID) Accepts(oid OID) bool { return oid == OIDUUID }

func (v *UUID) FromBinary(data []byte, field Field) error {
	if len(data) != 16 {
		return typeMismatch(field, 16, len(data))
	}
	copy(v.UUID[:], data)
	return nil
}

func (v *UUID) FromText(data string, field Field) error {
	id, err := uuid.Parse(data)
	if err != nil {
		return parseErr(field, err)
	}
	v.UUID = id
	return nil
}

func (v *UUID) FromNull(field Field) error { return DefaultFromNull(field) }

func (v *UUID) ToBinary(out []byte) ([]byte, error) {
	return append(out, v.UUID[:]...), nil
}

func (v *UUID) IsNull() bool { return false }
