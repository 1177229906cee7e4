package acmi

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// CoordField identifies one component of the T= property.
type CoordField uint16

const (
	FieldLongitude CoordField = 1 << iota
	FieldLatitude
	FieldAltitude
	FieldRoll
	FieldPitch
	FieldYaw
	FieldU
	FieldV
	FieldHeading
)

const (
	positionFields    = FieldLongitude | FieldLatitude | FieldAltitude
	orientationFields = FieldRoll | FieldPitch | FieldYaw
	localFields       = FieldU | FieldV
)

// The four layouts ACMI 2.x accepts for T=, keyed by field count.
var coordLayouts = map[int][]CoordField{
	3: {FieldLongitude, FieldLatitude, FieldAltitude},
	5: {FieldLongitude, FieldLatitude, FieldAltitude, FieldU, FieldV},
	6: {FieldLongitude, FieldLatitude, FieldAltitude, FieldRoll, FieldPitch, FieldYaw},
	9: {FieldLongitude, FieldLatitude, FieldAltitude, FieldRoll, FieldPitch, FieldYaw, FieldU, FieldV, FieldHeading},
}

// Coords is an object's pose. Every component is optional; unset
// components render as empty fields. Coords values are comparable.
type Coords struct {
	vals [9]float64
	set  CoordField
}

// Position returns Coords with longitude, latitude (degrees) and altitude (meters) set.
func Position(lon, lat, alt float64) Coords {
	var c Coords
	return c.With(FieldLongitude, lon).With(FieldLatitude, lat).With(FieldAltitude, alt)
}

// WithOrientation sets roll, pitch and yaw in degrees.
func (c Coords) WithOrientation(roll, pitch, yaw float64) Coords {
	return c.With(FieldRoll, roll).With(FieldPitch, pitch).With(FieldYaw, yaw)
}

// WithLocal sets the native flat-world offset pair in meters.
func (c Coords) WithLocal(u, v float64) Coords {
	return c.With(FieldU, u).With(FieldV, v)
}

// WithHeading sets the heading in degrees.
func (c Coords) WithHeading(heading float64) Coords {
	return c.With(FieldHeading, heading)
}

// With returns a copy of c with a single field set.
func (c Coords) With(f CoordField, v float64) Coords {
	c.vals[fieldIndex(f)] = v
	c.set |= f
	return c
}

// Without returns a copy of c with f cleared.
func (c Coords) Without(f CoordField) Coords {
	c.vals[fieldIndex(f)] = 0
	c.set &^= f
	return c
}

// Get returns the value of f and whether it is set.
func (c Coords) Get(f CoordField) (float64, bool) {
	if c.set&f == 0 {
		return 0, false
	}
	return c.vals[fieldIndex(f)], true
}

// Has reports whether every field in f is set.
func (c Coords) Has(f CoordField) bool {
	return c.set&f == f
}

// Fields returns the set of present components.
func (c Coords) Fields() CoordField {
	return c.set
}

func fieldIndex(f CoordField) int {
	if f == 0 || f&(f-1) != 0 || f > FieldHeading {
		panic(fmt.Sprintf("acmi: invalid coordinate field %#x", uint16(f)))
	}
	return bits.TrailingZeros16(uint16(f))
}

// layout picks the shortest ACMI layout able to carry the set fields.
func (c Coords) layout() []CoordField {
	switch {
	case c.set&^positionFields == 0:
		return coordLayouts[3]
	case c.set&^(positionFields|localFields) == 0:
		return coordLayouts[5]
	case c.set&^(positionFields|orientationFields) == 0:
		return coordLayouts[6]
	default:
		return coordLayouts[9]
	}
}

func (c Coords) appendTo(dst []byte) []byte {
	for i, f := range c.layout() {
		if i > 0 {
			dst = append(dst, '|')
		}
		if v, ok := c.Get(f); ok {
			dst = strconv.AppendFloat(dst, v, 'f', -1, 64)
		}
	}
	return dst
}

// String renders the T= value, without the "T=" prefix.
func (c Coords) String() string {
	return string(c.appendTo(nil))
}

// ParseCoords parses a T= value.
func ParseCoords(s string) (Coords, error) {
	parts := strings.Split(s, "|")
	layout, ok := coordLayouts[len(parts)]
	if !ok {
		return Coords{}, fmt.Errorf("%w: %d fields in %q", ErrInvalidCoordinateFormat, len(parts), s)
	}

	var c Coords
	for i, raw := range parts {
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Coords{}, fmt.Errorf("%w: coordinate %q", ErrInvalidNumeric, raw)
		}
		c = c.With(layout[i], v)
	}
	return c, nil
}
