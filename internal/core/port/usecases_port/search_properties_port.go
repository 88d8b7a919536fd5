package usecases_port

import (
	"context"
	"search-analytics-service/internal/core/domain"
)

type SearchPropertiesUseCase interface {
	Execute(ctx context.Context, query domain.SearchQuery) (*domain.PaginatedResult[domain.PropertyResult], error)
}
