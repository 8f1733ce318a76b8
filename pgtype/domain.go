package pgtype

// Domain wraps an underlying Codec to model a Postgres domain alias: decoding
// is delegated to Inner, but Accepts checks the domain's own oid instead of
// Inner's (spec.md section 4.7 "Domain alias").
type Domain struct {
	OID   OID
	Inner Codec
}

func (d *Domain) Accepts(oid OID) bool { return oid == d.OID }

func (d *Domain) FromBinary(data []byte, field Field) error { return d.Inner.FromBinary(data, field) }

func (d *Domain) FromText(data string, field Field) error { return d.Inner.FromText(data, field) }

func (d *Domain) FromNull(field Field) error { return d.Inner.FromNull(field) }

func (d *Domain) ToBinary(out []byte) ([]byte, error) { return d.Inner.ToBinary(out) }

func (d *Domain) IsNull() bool { return d.Inner.IsNull() }
