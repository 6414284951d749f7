package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Config holds the rate table and fee knobs.
type Config struct {
	Rates                 map[string]decimal.Decimal
	IncludedDocuments     int
	ExtraDocumentFee      decimal.Decimal
	RushSurcharge         decimal.Decimal
	EmergencySurcharge    decimal.Decimal
	FirstTimeDiscountRate decimal.Decimal
	DepositThreshold      decimal.Decimal
	DepositPercentage     decimal.Decimal
	MinimumDeposit        decimal.Decimal
}

// DefaultRates is the standard operating price list, keyed by service type.
func DefaultRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"NOTARY_STANDARD":            decimal.NewFromInt(75),
		"NOTARY_PREMIUM":             decimal.NewFromInt(100),
		"LOAN_SIGNING":               decimal.NewFromInt(150),
		"REMOTE_ONLINE_NOTARIZATION": decimal.NewFromInt(25),
		"MOBILE_NOTARY":              decimal.NewFromInt(100),
		"WITNESS_SERVICE":            decimal.NewFromInt(50),
		"DOCUMENT_PREP":              decimal.NewFromInt(75),
	}
}

func DefaultConfig() Config {
	return Config{
		Rates:                 DefaultRates(),
		IncludedDocuments:     3,
		ExtraDocumentFee:      decimal.NewFromInt(5),
		RushSurcharge:         decimal.RequireFromString("0.5"),
		EmergencySurcharge:    decimal.NewFromInt(1),
		FirstTimeDiscountRate: decimal.RequireFromString("0.10"),
		DepositThreshold:      decimal.NewFromInt(100),
		DepositPercentage:     decimal.RequireFromString("0.5"),
		MinimumDeposit:        decimal.NewFromInt(25),
	}
}

func (c Config) baseRate(serviceType string) (decimal.Decimal, bool) {
	rate, ok := c.Rates[strings.ToUpper(strings.TrimSpace(serviceType))]
	return rate, ok
}
