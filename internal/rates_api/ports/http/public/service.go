package public

import (
	"context"

	"github.com/langowen/ratesconverter/internal/entities"
	"github.com/langowen/ratesconverter/internal/rates_api/service"
)

type Service interface {
	LatestRates(ctx context.Context, base string) (service.Result[string], error)
	Convert(ctx context.Context, req entities.ConversionRequest) (service.Result[string], error)
	HistoricalRates(ctx context.Context, req entities.HistoricalRatesRequest) (service.Result[service.HistoricalPage], error)
}
