package domain

import "strconv"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox is the rectangle a user drew on the map, given by two opposite
// corners. The corners are not normalised: lat1 may be north of lat2.
type BoundingBox struct {
	Lat1 float64 `json:"lat1" validate:"latitude"`
	Lng1 float64 `json:"lng1" validate:"longitude"`
	Lat2 float64 `json:"lat2" validate:"latitude"`
	Lng2 float64 `json:"lng2" validate:"longitude"`
}

// MinLng returns the western edge of the box.
func (b BoundingBox) MinLng() float64 { return min(b.Lng1, b.Lng2) }

// MaxLng returns the eastern edge of the box.
func (b BoundingBox) MaxLng() float64 { return max(b.Lng1, b.Lng2) }

// MinLat returns the southern edge of the box.
func (b BoundingBox) MinLat() float64 { return min(b.Lat1, b.Lat2) }

// MaxLat returns the northern edge of the box.
func (b BoundingBox) MaxLat() float64 { return max(b.Lat1, b.Lat2) }

// String formats the box the way it is echoed back to users.
func (b BoundingBox) String() string {
	return "(lat1=" + FormatFloat(b.Lat1) + ", lng1=" + FormatFloat(b.Lng1) + "), " +
		"(lat2=" + FormatFloat(b.Lat2) + ", lng2=" + FormatFloat(b.Lng2) + ")"
}

// FormatFloat renders a float with the shortest exact representation.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
