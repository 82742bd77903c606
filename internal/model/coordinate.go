package model

import (
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Coordinate is a WGS84 (EPSG:4326) position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the coordinate is the unset (0,0) value. The
// simulator never operates at null island, so (0,0) doubles as "missing".
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// MapPoint projects the coordinate to EPSG:3857 as a geometry point.
// Positions are persisted in 3857 so map layers can consume the store
// without reprojecting, and because SQLite has no spatial awareness and
// round-trips the point through its inherent WKB Scan/Value functions.
func (c Coordinate) MapPoint() geom.Point {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(c.Lng, c.Lat, 0)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Type: geom.DimXY,
	})
}
