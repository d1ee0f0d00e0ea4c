package usecases

import (
	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/pkg/geospatial"
)

// DefaultMaxExportAreaSqDeg is the largest box that may be exported, e.g. 2 x 2 degrees.
const DefaultMaxExportAreaSqDeg = 4.0

// ValidateExportArea returns an *domain.InvalidBoundingBoxError when the
// box is larger than maxArea square degrees.
func ValidateExportArea(box domain.BoundingBox, maxArea float64) error {
	area := geospatial.AreaSqDeg(box)
	if area > maxArea {
		return &domain.InvalidBoundingBoxError{Box: box, Area: area, MaxArea: maxArea}
	}
	return nil
}
