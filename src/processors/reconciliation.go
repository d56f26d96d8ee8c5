// backend/src/processors/reconciliation.go
package processors

import (
	"time"

	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/utils"
)

// LedgerInput is everything one reconciliation walk needs: the client, that
// client's movements only, the aggregated period returns at one
// granularity, and the resolved tax/split settings.
type LedgerInput struct {
	Client      models.Client
	Movements   []models.CapitalMovement
	Periods     []models.PeriodStats
	Granularity Granularity
	Settings    models.Settings
}

// Ledger is the result of one reconciliation walk.
type Ledger struct {
	Breakdown      []models.PeriodBreakdown
	CurrentCapital float64
	TotalReturns   float64
}

// BuildLedger walks the periods in ascending order, carrying one running
// capital figure:
//
//	anchor        = starting_capital + all-time contributions − withdrawals
//	per period:   capital += net contributions of the period
//	              gain     = capital × return% / 100
//	              afterTax = gain × (1 − tax_rate)   (losses are scaled too)
//	              capital += afterTax × investor_share
//
// Only the investor's share compounds into the ledger; the trader's share
// is reported but never added. The first period starts from the anchor, not
// the client's literal starting capital, because movements dated before the
// first trading period have already changed the account.
func BuildLedger(in LedgerInput) Ledger {
	var totalContributions, totalWithdrawals float64
	for _, m := range in.Movements {
		switch m.Type {
		case models.MovementContribution:
			totalContributions += m.Amount
		case models.MovementWithdrawal:
			totalWithdrawals += m.Amount
		}
	}

	current := in.Client.StartingCapital + totalContributions - totalWithdrawals
	if len(in.Periods) == 0 {
		return Ledger{CurrentCapital: current}
	}

	// Bucket this client's movements into the same periods as the returns.
	contribByPeriod := map[string]float64{}
	withdrawByPeriod := map[string]float64{}
	for _, m := range in.Movements {
		key := PeriodOf(m.Date, in.Granularity).Key
		switch m.Type {
		case models.MovementContribution:
			contribByPeriod[key] += m.Amount
		case models.MovementWithdrawal:
			withdrawByPeriod[key] += m.Amount
		}
	}

	// The aggregator emits periods already sorted, but the walk's
	// correctness depends on it, so re-sort defensively by period start.
	periods := make([]models.PeriodStats, len(in.Periods))
	copy(periods, in.Periods)
	sortStatsByStart(periods, in.Granularity)

	ledger := Ledger{CurrentCapital: current}
	for _, p := range periods {
		contributions := contribByPeriod[p.Period]
		withdrawals := withdrawByPeriod[p.Period]
		net := contributions - withdrawals

		starting := ledger.CurrentCapital
		afterContrib := starting + net

		gain := afterContrib * (p.ReturnPct / 100)
		profitAfterTax := gain * (1 - in.Settings.TaxRate)
		investorShare := profitAfterTax * in.Settings.InvestorShare
		traderShare := profitAfterTax * in.Settings.TraderShare

		ledger.CurrentCapital = afterContrib + investorShare
		ledger.TotalReturns += profitAfterTax

		ledger.Breakdown = append(ledger.Breakdown, models.PeriodBreakdown{
			Period:                    p.Period,
			Label:                     p.Label,
			StartingCapital:           utils.RoundFloat(starting, 2),
			Contributions:             utils.RoundFloat(contributions, 2),
			Withdrawals:               utils.RoundFloat(withdrawals, 2),
			NetContributions:          utils.RoundFloat(net, 2),
			CapitalAfterContributions: utils.RoundFloat(afterContrib, 2),
			ReturnPct:                 p.ReturnPct,
			ProfitAfterTax:            utils.RoundFloat(profitAfterTax, 2),
			InvestorShare:             utils.RoundFloat(investorShare, 2),
			TraderShare:               utils.RoundFloat(traderShare, 2),
			EndingCapital:             utils.RoundFloat(ledger.CurrentCapital, 2),
		})
	}

	return ledger
}

// sortStatsByStart orders period stats by the start date encoded in the
// period key.
func sortStatsByStart(stats []models.PeriodStats, g Granularity) {
	starts := make([]time.Time, len(stats))
	for i, s := range stats {
		starts[i] = periodStartOf(s.Period, g)
	}
	// Insertion sort keeps already-ordered input cheap and stable.
	for i := 1; i < len(stats); i++ {
		for j := i; j > 0 && starts[j].Before(starts[j-1]); j-- {
			stats[j], stats[j-1] = stats[j-1], stats[j]
			starts[j], starts[j-1] = starts[j-1], starts[j]
		}
	}
}

// periodStartOf parses the start date out of a period key. Unparseable keys
// sort to the zero time rather than failing.
func periodStartOf(key string, g Granularity) time.Time {
	if g == GranularityMonthly {
		if t, err := time.Parse("2006-01", key); err == nil {
			return t
		}
		return time.Time{}
	}
	if idx := len("2006-01-02"); len(key) >= idx {
		if t, err := time.Parse("2006-01-02", key[:idx]); err == nil {
			return t
		}
	}
	return time.Time{}
}
