package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Position is a point in any planar or geographic system.
type Position struct {
	X, Y, Z float64
}

// ParsePosition parses "x,y" or "x,y,z".
func ParsePosition(s string) (Position, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return Position{}, ErrInvalidCoordinates
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Position{}, ErrInvalidCoordinates
		}
		vals[i] = v
	}
	return Position{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// Projection maps host-local metric offsets (east, north) around a
// reference origin to WGS84 longitude and latitude. Offsets are scaled to
// Web Mercator (EPSG:3857) at the origin's latitude, so distances near the
// origin stay true.
type Projection struct {
	originX, originY float64
	scale            float64
	toWGS84          func(x, y, z float64) (float64, float64, float64)
}

// NewProjection creates a projection around (refLon, refLat).
func NewProjection(refLon, refLat float64) (Projection, error) {
	if math.Abs(refLat) >= 85 || math.Abs(refLon) > 180 {
		return Projection{}, ErrInvalidCoordinates
	}
	epsg := wgs84.EPSG()
	x, y, _ := epsg.Transform(4326, 3857)(refLon, refLat, 0)
	return Projection{
		originX: x,
		originY: y,
		scale:   1 / math.Cos(refLat*math.Pi/180),
		toWGS84: epsg.Transform(3857, 4326),
	}, nil
}

// ToWGS84 converts a local offset in metres to longitude and latitude.
func (p Projection) ToWGS84(east, north float64) (lon, lat float64) {
	lon, lat, _ = p.toWGS84(p.originX+east*p.scale, p.originY+north*p.scale, 0)
	return lon, lat
}
