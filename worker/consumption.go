package worker

import (
	"math"
	"math/bits"

	"github.com/kedgaks/golos/ledger"
	"github.com/kedgaks/golos/protocol"
)

// MonthSeconds is the length of the month consumption is normalized to.
const MonthSeconds = 30 * 24 * 60 * 60

// mulDiv returns a*b/c truncated, computed on 128 bits. ok is false when the
// quotient does not fit 64 bits.
func mulDiv(a, b, c uint64) (q uint64, ok bool) {
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, false
	}
	q, _ = bits.Div64(hi, lo, c)
	return q, true
}

func paymentsPeriod(t Techspec) uint64 {
	return uint64(t.PaymentsInterval) * uint64(t.PaymentsCount)
}

// MonthConsumption is the techspec's total cost spread over a 30 day month:
// cost * min(month, period) / period, where period is the whole payment plan.
func MonthConsumption(t Techspec) protocol.Asset {
	cost := t.SpecificationCost.Add(t.DevelopmentCost)
	period := paymentsPeriod(t)
	if period == 0 || cost.Amount <= 0 {
		return protocol.Asset{Symbol: cost.Symbol}
	}
	q, _ := mulDiv(uint64(cost.Amount), min(period, MonthSeconds), period)
	return protocol.Asset{Amount: int64(q), Symbol: cost.Symbol}
}

// canAfford reports whether the fund revenue covers the aggregate month
// consumption plus mc, both projected over the techspec's payment period.
func canAfford(fund ledger.Fund, mc protocol.Asset, period uint64) bool {
	consumption, ok := mulDiv(uint64(max(fund.ConsumptionPerMonth.Amount, 0))+uint64(max(mc.Amount, 0)), period, MonthSeconds)
	if !ok {
		return false
	}
	revenue, ok := mulDiv(uint64(max(fund.RevenuePerMonth.Amount, 0)), period, MonthSeconds)
	if !ok {
		revenue = math.MaxUint64
	}
	return consumption <= revenue
}
