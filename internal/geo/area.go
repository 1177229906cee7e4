package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Area is a polygon in WGS84 longitude/latitude that objects must stay in.
type Area struct {
	poly geom.Polygon
}

// ParseArea parses a JSON ring of [lon,lat] pairs into an Area.
// Input format: "[[lon1,lat1],[lon2,lat2],...]"
func ParseArea(input string) (Area, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return Area{}, fmt.Errorf("failed to parse area JSON: %w", err)
	}
	return NewArea(coords)
}

// NewArea builds an Area from at least three [lon,lat] pairs. The ring is
// closed automatically.
func NewArea(coords [][]float64) (Area, error) {
	if len(coords) < 3 {
		return Area{}, fmt.Errorf("area must have at least 3 points, got %d", len(coords))
	}

	flat := make([]float64, 0, (len(coords)+1)*2)
	for i, c := range coords {
		if len(c) < 2 {
			return Area{}, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		flat = append(flat, c[0], c[1])
	}
	first, last := coords[0], coords[len(coords)-1]
	if first[0] != last[0] || first[1] != last[1] {
		flat = append(flat, first[0], first[1])
	}

	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{ring})
	if err := poly.Validate(); err != nil {
		return Area{}, fmt.Errorf("invalid area polygon: %w", err)
	}
	return Area{poly: poly}, nil
}

// IsZero reports whether a is unset. A zero Area contains everything.
func (a Area) IsZero() bool {
	return a.poly.IsEmpty()
}

// Contains reports whether (lon, lat) lies inside or on the boundary.
func (a Area) Contains(lon, lat float64) bool {
	if a.IsZero() {
		return true
	}
	pt := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: lon, Y: lat}, Type: geom.DimXY})
	return geom.Intersects(a.poly.AsGeometry(), pt.AsGeometry())
}

// WKT returns the area in well-known text.
func (a Area) WKT() string {
	return a.poly.AsText()
}
