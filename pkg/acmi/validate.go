package acmi

import (
	"fmt"
	"strings"
)

// Validate reports whether r survives an Encode/DecodeLine round trip. It
// rejects the reserved names T (object properties) and Event (global keys),
// object updates addressed to the global id, events whose parameter count
// does not match their kind, and carriage returns anywhere in the text,
// since readers strip a trailing one as part of a CRLF line ending.
func Validate(r Record) error {
	switch r := r.(type) {
	case GlobalProperty:
		if r.Key == eventKey {
			return fmt.Errorf("%w: global key %q is reserved for events", ErrUnencodable, r.Key)
		}
		return noCR(string(r.Key), r.Value)
	case Update:
		if r.ID == GlobalID {
			return fmt.Errorf("%w: object update for the global id", ErrUnencodable)
		}
		return ValidateProperties(r.Props)
	case Event:
		arity, ok := r.Kind.Arity()
		if !ok {
			return fmt.Errorf("%w: unknown event kind %q", ErrUnencodable, r.Kind)
		}
		if len(r.Params) != arity {
			return fmt.Errorf("%w: %s takes %d parameters, got %d", ErrUnencodable, r.Kind, arity, len(r.Params))
		}
		if err := noCR(r.Params...); err != nil {
			return err
		}
		return noCR(r.Text)
	case Frame, Remove:
		return nil
	case nil:
		return fmt.Errorf("%w: nil record", ErrUnencodable)
	default:
		return fmt.Errorf("%w: unknown record type %T", ErrUnencodable, r)
	}
}

// ValidateProperties applies the Update rules of Validate to a property list.
func ValidateProperties(props PropertyList) error {
	for _, p := range props {
		if p.Name == coordsName {
			return fmt.Errorf("%w: property name %q is reserved for coordinates", ErrUnencodable, p.Name)
		}
		if err := noCR(p.Name, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func noCR(fields ...string) error {
	for _, f := range fields {
		if strings.IndexByte(f, '\r') >= 0 {
			return fmt.Errorf("%w: carriage return in %q", ErrUnencodable, f)
		}
	}
	return nil
}
