package usecases

import (
	"context"
	"encoding/json"

	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/ports"
	"github.com/gemfoundation/exposure/internal/pkg/geospatial"
)

// adminLevelsTTL is how long available admin levels stay cached, in seconds.
const adminLevelsTTL = 600

// FormService backs the export forms.
type FormService struct {
	repo  ports.ExposureRepository
	cache ports.CacheService
}

// NewFormService creates a new FormService. cache may be nil.
func NewFormService(repo ports.ExposureRepository, cache ports.CacheService) *FormService {
	return &FormService{repo: repo, cache: cache}
}

// AvailableAdminLevels returns the admin levels with grid data inside the box.
func (s *FormService) AvailableAdminLevels(ctx context.Context, box domain.BoundingBox) ([]domain.AdminLevel, error) {
	cacheKey := "forms:admin_levels:" + geospatial.CacheKey(box)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var levels []domain.AdminLevel
			if err := json.Unmarshal(data, &levels); err == nil {
				return levels, nil
			}
		}
	}

	levels, err := s.repo.AvailableAdminLevels(ctx, box)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(levels); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, adminLevelsTTL)
		}
	}
	return levels, nil
}
