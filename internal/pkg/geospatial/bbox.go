package geospatial

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/gemfoundation/exposure/internal/core/domain"
)

// SRID of every coordinate handled by the exposure database.
const SRID = 4326

// Bounds converts a box into go-geom bounds (x = longitude, y = latitude).
func Bounds(box domain.BoundingBox) *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(box.MinLng(), box.MinLat(), box.MaxLng(), box.MaxLat())
}

// AreaSqDeg returns the planar area of the box in square degrees.
func AreaSqDeg(box domain.BoundingBox) float64 {
	b := Bounds(box)
	return (b.Max(0) - b.Min(0)) * (b.Max(1) - b.Min(1))
}

// Polygon returns the box as a closed counter-clockwise ring.
func Polygon(box domain.BoundingBox) *geom.Polygon {
	b := Bounds(box)
	minX, minY, maxX, maxY := b.Min(0), b.Min(1), b.Max(0), b.Max(1)
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{minX, minY},
		{maxX, minY},
		{maxX, maxY},
		{minX, maxY},
		{minX, minY},
	}}).SetSRID(SRID)
}

// WKT renders the box polygon for ST_GeomFromText.
func WKT(box domain.BoundingBox) (string, error) {
	s, err := wkt.Marshal(Polygon(box))
	if err != nil {
		return "", fmt.Errorf("encode bbox wkt: %w", err)
	}
	return s, nil
}

// CacheKey identifies a box to four decimal places (~11 m).
func CacheKey(box domain.BoundingBox) string {
	return fmt.Sprintf("%.4f:%.4f:%.4f:%.4f", box.MinLat(), box.MinLng(), box.MaxLat(), box.MaxLng())
}
