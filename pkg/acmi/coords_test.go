package acmi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoords_IncrementalAltitudeKeepsFullField(t *testing.T) {
	c := Position(10, 20, 1000)
	first := Update{ID: 0x42, Coords: &c}
	assert.Equal(t, "42,T=10|20|1000", first.String())

	moved := c.With(FieldAltitude, 1200)
	later := Update{ID: 0x42, Coords: &moved}
	assert.Equal(t, "42,T=10|20|1200", later.String())
}

func TestCoords_Accessors(t *testing.T) {
	c := Position(1, 2, 3).WithOrientation(4, 5, 6)

	v, ok := c.Get(FieldPitch)
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)

	_, ok = c.Get(FieldU)
	assert.False(t, ok)

	assert.True(t, c.Has(positionFields|orientationFields))
	assert.False(t, c.Has(FieldHeading))

	c = c.Without(FieldRoll)
	_, ok = c.Get(FieldRoll)
	assert.False(t, ok)
	assert.Equal(t, positionFields|FieldPitch|FieldYaw, c.Fields())
}

func TestCoords_Comparable(t *testing.T) {
	a := Position(1, 2, 3)
	b := Position(1, 2, 3)
	assert.True(t, a == b)

	assert.True(t, a.Without(FieldLatitude) == Coords{}.With(FieldLongitude, 1).With(FieldAltitude, 3))
}

func TestCoords_InvalidFieldPanics(t *testing.T) {
	assert.Panics(t, func() { Coords{}.With(FieldLongitude|FieldLatitude, 1) })
	assert.Panics(t, func() { Coords{}.With(0, 1) })
}

func TestParseCoords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Coords
	}{
		{"three fields", "10|20|1000", Position(10, 20, 1000)},
		{"altitude only", "||1200", Coords{}.With(FieldAltitude, 1200)},
		{"five fields", "1|2|3|4|5", Position(1, 2, 3).WithLocal(4, 5)},
		{"six fields", "1|2|3|4|5|6", Position(1, 2, 3).WithOrientation(4, 5, 6)},
		{"nine fields sparse", "1|2|3|||||9|", Position(1, 2, 3).With(FieldV, 9)},
		{"negative and fractional", "-0.5|45.125|-10", Position(-0.5, 45.125, -10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoords(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCoords_Errors(t *testing.T) {
	for _, input := range []string{"", "1|2", "1|2|3|4", "1|2|3|4|5|6|7", "1|2|3|4|5|6|7|8|9|10"} {
		_, err := ParseCoords(input)
		assert.ErrorIs(t, err, ErrInvalidCoordinateFormat, input)
	}

	_, err := ParseCoords("1|north|3")
	assert.ErrorIs(t, err, ErrInvalidNumeric)
}

func TestCoords_ShortestLayout(t *testing.T) {
	tests := []struct {
		name   string
		coords Coords
		want   string
	}{
		{"empty", Coords{}, "||"},
		{"position", Position(1, 2, 3), "1|2|3"},
		{"local without orientation", Position(1, 2, 3).WithLocal(4, 5), "1|2|3|4|5"},
		{"orientation without local", Position(1, 2, 3).WithOrientation(4, 5, 6), "1|2|3|4|5|6"},
		{"orientation and local", Position(1, 2, 3).WithOrientation(4, 5, 6).WithLocal(7, 8), "1|2|3|4|5|6|7|8|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.coords.String())
		})
	}
}
