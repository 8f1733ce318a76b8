package pgtype

// Nullable wraps any Codec to model a SQL-nullable column (spec.md section
// 4.7 "Nullable wrapper"): Accepts delegates to Inner, FromNull succeeds by
// marking the value absent instead of erroring, and ToBinary is skipped
// entirely when Valid is false.
type Nullable[T Codec] struct {
	Inner T
	Valid bool
}

func (n *Nullable[T]) Accepts(oid OID) bool { return n.Inner.Accepts(oid) }

func (n *Nullable[T]) FromBinary(data []byte, field Field) error {
	if err := n.Inner.FromBinary(data, field); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n *Nullable[T]) FromText(data string, field Field) error {
	if err := n.Inner.FromText(data, field); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// FromNull marks the value absent instead of erroring, overriding the
// default from_null behaviour.
func (n *Nullable[T]) FromNull(field Field) error {
	n.Valid = false
	return nil
}

func (n *Nullable[T]) ToBinary(out []byte) ([]byte, error) {
	if !n.Valid {
		return out, nil
	}
	return n.Inner.ToBinary(out)
}

func (n *Nullable[T]) IsNull() bool { return !n.Valid }
