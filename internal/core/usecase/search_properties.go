package usecase

import (
	"bytes"
	"context"
	"fmt"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/attrfilter"
	"search-analytics-service/internal/core/availability"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"search-analytics-service/internal/core/spatial"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SearchSettings tunes the search. Zero values fall back to defaults.
type SearchSettings struct {
	Pages          PageSettings
	Order          domain.SortOrder
	Workers        int
	StorageTimeout time.Duration
}

type SearchPropertiesUseCase struct {
	properties   port.PropertyStoragePort
	availability *availability.Calculator
	filters      *attrfilter.Engine
	settings     SearchSettings
}

func NewSearchPropertiesUseCase(
	properties port.PropertyStoragePort,
	calculator *availability.Calculator,
	filters *attrfilter.Engine,
	settings SearchSettings,
) *SearchPropertiesUseCase {
	if !settings.Order.Valid() {
		settings.Order = domain.SortByRatingDesc
	}
	if settings.Workers <= 0 {
		settings.Workers = 8
	}
	return &SearchPropertiesUseCase{
		properties:   properties,
		availability: calculator,
		filters:      filters,
		settings:     settings,
	}
}

type candidate struct {
	property   domain.Property
	distanceKm *float64
	unitID     *uuid.UUID
}

func (uc *SearchPropertiesUseCase) Execute(ctx context.Context, query domain.SearchQuery) (*domain.PaginatedResult[domain.PropertyResult], error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":  "SearchProperties",
		"page":      query.Page,
		"page_size": query.PageSize,
		"filters":   len(query.Filters),
	})

	ucLogger.Info("Use case started", nil)

	// --- Step 1: validation, before any storage access
	page, size, err := uc.validate(query)
	if err != nil {
		ucLogger.Warn("Invalid search query", port.Fields{"error": err.Error()})
		return nil, err
	}

	// --- Step 2: candidates by region or the whole active catalog
	candidates, err := uc.loadCandidates(ctx, query.Region)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}
	ucLogger.Debug("Candidates loaded", port.Fields{"count": len(candidates)})

	// --- Step 3: attribute filters
	matched := candidates[:0]
	for _, c := range candidates {
		if uc.filters.MatchesQuery(&c.property, query) {
			matched = append(matched, c)
		}
	}

	// --- Step 4: availability for the requested dates
	if query.Dates != nil {
		matched, err = uc.keepAvailable(ctx, matched, *query.Dates)
		if err != nil {
			ucLogger.Error("Availability check failed", err, nil)
			return nil, err
		}
	}

	// --- Step 5: ordering and pagination
	uc.sort(matched, query.Region != nil)

	results := make([]domain.PropertyResult, 0, len(matched))
	for _, c := range matched {
		results = append(results, toResult(c))
	}
	pageResult := paginate(results, page, size)

	ucLogger.Info("Use case finished successfully", port.Fields{
		"total_found":   pageResult.TotalCount,
		"items_on_page": len(pageResult.Items),
	})
	return pageResult, nil
}

func (uc *SearchPropertiesUseCase) validate(query domain.SearchQuery) (int, int, error) {
	page, size, err := normalizePage(query.Page, query.PageSize, uc.settings.Pages)
	if err != nil {
		return 0, 0, err
	}
	if query.Region != nil {
		if err := query.Region.Validate(); err != nil {
			return 0, 0, err
		}
	}
	if query.Dates != nil {
		if err := query.Dates.Validate(); err != nil {
			return 0, 0, err
		}
	}
	if err := uc.filters.Validate(query.Filters); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func (uc *SearchPropertiesUseCase) loadCandidates(ctx context.Context, region *domain.GeoRegion) ([]candidate, error) {
	callCtx, cancel := uc.storageContext(ctx)
	defer cancel()

	if region == nil {
		properties, err := uc.properties.GetActiveProperties(callCtx)
		if err != nil {
			return nil, fmt.Errorf("load active properties: %w", err)
		}
		out := make([]candidate, 0, len(properties))
		for _, p := range properties {
			if p.IsActive() {
				out = append(out, candidate{property: p})
			}
		}
		return out, nil
	}

	box := spatial.BoundingBoxFor(region.Center, region.RadiusKm)
	properties, err := uc.properties.GetPropertiesInBoundingBox(callCtx, box)
	if err != nil {
		return nil, fmt.Errorf("load properties in bounding box: %w", err)
	}

	byID := make(map[uuid.UUID]domain.Property, len(properties))
	for _, p := range properties {
		if p.IsActive() {
			byID[p.ID] = p
		}
	}
	hits := spatial.NewIndexFromProperties(properties).QueryRadius(region.Center, region.RadiusKm)

	out := make([]candidate, 0, len(hits))
	for _, h := range hits {
		p, ok := byID[h.ID]
		if !ok {
			continue
		}
		distance := h.DistanceKm
		out = append(out, candidate{property: p, distanceKm: &distance})
	}
	return out, nil
}

// keepAvailable checks candidates concurrently with a bounded number of workers.
// The first storage error cancels the remaining checks.
func (uc *SearchPropertiesUseCase) keepAvailable(ctx context.Context, candidates []candidate, stay domain.DateRange) ([]candidate, error) {
	found := make([]*uuid.UUID, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.settings.Workers)
	for i := range candidates {
		i := i
		g.Go(func() error {
			callCtx, cancel := uc.storageContext(gctx)
			units, err := uc.properties.GetUnitsByProperty(callCtx, candidates[i].property.ID)
			cancel()
			if err != nil {
				return fmt.Errorf("load units of property %s: %w", candidates[i].property.ID, err)
			}

			unit, err := uc.availability.FirstAvailableUnit(gctx, units, stay)
			if err != nil {
				return err
			}
			if unit != nil {
				id := unit.ID
				found[i] = &id
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]candidate, 0, len(candidates))
	for i, c := range candidates {
		if found[i] != nil {
			c.unitID = found[i]
			out = append(out, c)
		}
	}
	return out, nil
}

// sort orders by distance when a region was given, otherwise by the configured order.
// Ties are broken by property id so that equal queries give equal pages.
func (uc *SearchPropertiesUseCase) sort(candidates []candidate, byDistance bool) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if byDistance && a.distanceKm != nil && b.distanceKm != nil && *a.distanceKm != *b.distanceKm {
			return *a.distanceKm < *b.distanceKm
		}
		if !byDistance {
			switch uc.settings.Order {
			case domain.SortByRatingDesc:
				if a.property.Rating != b.property.Rating {
					return a.property.Rating > b.property.Rating
				}
			case domain.SortByNewest:
				if !a.property.CreatedAt.Equal(b.property.CreatedAt) {
					return a.property.CreatedAt.After(b.property.CreatedAt)
				}
			case domain.SortByTitleAsc:
				ta, tb := strings.ToLower(a.property.Title), strings.ToLower(b.property.Title)
				if ta != tb {
					return ta < tb
				}
			}
		}
		return bytes.Compare(a.property.ID[:], b.property.ID[:]) < 0
	})
}

func (uc *SearchPropertiesUseCase) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.settings.StorageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, uc.settings.StorageTimeout)
}

func toResult(c candidate) domain.PropertyResult {
	return domain.PropertyResult{
		PropertyID:      c.property.ID,
		PropertyTypeID:  c.property.PropertyTypeID,
		Title:           c.property.Title,
		Address:         c.property.Address,
		Location:        c.property.Location,
		Geohash:         spatial.Geohash(c.property.Location),
		Rating:          c.property.Rating,
		DistanceKm:      c.distanceKm,
		AvailableUnitID: c.unitID,
	}
}
