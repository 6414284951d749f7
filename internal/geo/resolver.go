// Package geo answers "how far is this address from the office, and what
// does the drive cost" for the pricing engine.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/notarypros/booking-service/internal/pricing"
	"github.com/notarypros/booking-service/pkg/logging"
)

var ErrAddressUnresolvable = errors.New("geo: address unresolvable")

type DistanceProvider interface {
	DrivingMiles(ctx context.Context, origin, destination string) (float64, error)
}

// AreaConfig describes the service area around the base location.
type AreaConfig struct {
	BaseLocation    string
	FreeRadiusMiles float64
	MaxRadiusMiles  float64
	PerMileRate     decimal.Decimal
}

func DefaultAreaConfig() AreaConfig {
	return AreaConfig{
		BaseLocation:    "Texas City, TX 77591",
		FreeRadiusMiles: 30,
		MaxRadiusMiles:  50,
		PerMileRate:     decimal.RequireFromString("0.50"),
	}
}

// Resolver implements pricing.ServiceAreaResolver.
type Resolver struct {
	cfg      AreaConfig
	provider DistanceProvider
	cache    *DistanceCache
	logger   *logging.Logger
}

// NewResolver builds a resolver. cache may be nil.
func NewResolver(cfg AreaConfig, provider DistanceProvider, cache *DistanceCache, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{cfg: cfg, provider: provider, cache: cache, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, loc pricing.Location) (pricing.AreaInfo, error) {
	destination := loc.Address()
	if destination == "" {
		return pricing.AreaInfo{}, fmt.Errorf("%w: empty address", ErrAddressUnresolvable)
	}
	key := normalizeAddress(destination)

	miles, ok := r.cache.Get(ctx, key)
	if !ok {
		var err error
		miles, err = r.provider.DrivingMiles(ctx, r.cfg.BaseLocation, destination)
		if err != nil {
			return pricing.AreaInfo{}, err
		}
		r.cache.Set(ctx, key, miles)
	}

	return r.cfg.Quote(miles), nil
}

// Quote applies the radius rules to a driving distance.
func (c AreaConfig) Quote(miles float64) pricing.AreaInfo {
	info := pricing.AreaInfo{
		IsWithinArea:  miles <= c.MaxRadiusMiles,
		DistanceMiles: math.Round(miles*10) / 10,
		TravelFee:     decimal.Zero,
	}
	if extra := miles - c.FreeRadiusMiles; extra > 0 {
		info.TravelFee = decimal.NewFromFloat(extra).Mul(c.PerMileRate).Round(2)
	}
	return info
}

func normalizeAddress(addr string) string {
	return strings.Join(strings.Fields(strings.ToLower(addr)), " ")
}
