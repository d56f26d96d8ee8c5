// backend/src/processors/capital_resolver.go
package processors

import (
	"time"

	"github.com/username/fundfolio/backend/src/models"
)

// CapitalResolver answers "what was the total pooled trading capital for
// this period". An explicit monthly override wins; otherwise the default is
// the sum of every client's starting capital (active or not) plus net
// movements dated on or before the end of the period, across all clients.
// The denominator represents the whole pool, not one client's share.
type CapitalResolver struct {
	Clients   []models.Client
	Movements []models.CapitalMovement
	Overrides []models.MonthlyCapitalOverride
}

// MonthlyCapital returns the capital denominator for a calendar month
// keyed "YYYY-MM".
func (r CapitalResolver) MonthlyCapital(month string) float64 {
	for _, o := range r.Overrides {
		if o.Month == month {
			return o.TotalCapital
		}
	}
	monthStart, err := time.Parse("2006-01", month)
	if err != nil {
		// Unparseable period labels fall back to the all-time pool.
		return r.pooledCapital(time.Time{}, false)
	}
	return r.pooledCapital(MonthOf(monthStart).End, true)
}

// BiweeklyCapital returns the capital denominator for a 14-day period. The
// monthly override table is reused: an override applies when its
// month-start date falls inside the requested period. Without a match the
// same pooled default applies, bounded by the period end.
func (r CapitalResolver) BiweeklyCapital(p Period) float64 {
	for _, o := range r.Overrides {
		monthStart, err := time.Parse("2006-01", o.Month)
		if err != nil {
			continue
		}
		if BiweekOf(monthStart).Key == p.Key {
			return o.TotalCapital
		}
	}
	return r.pooledCapital(p.End, true)
}

// CapitalFor resolves the denominator for any aggregator period.
func (r CapitalResolver) CapitalFor(p Period, g Granularity) float64 {
	if g == GranularityBiweekly {
		return r.BiweeklyCapital(p)
	}
	return r.MonthlyCapital(p.Key)
}

// pooledCapital sums all clients' starting capital plus net movements. When
// bounded, only movements dated on or before the cutoff count.
func (r CapitalResolver) pooledCapital(cutoff time.Time, bounded bool) float64 {
	var total float64
	for _, c := range r.Clients {
		total += c.StartingCapital
	}
	for _, m := range r.Movements {
		if bounded && dateOnly(m.Date).After(cutoff) {
			continue
		}
		switch m.Type {
		case models.MovementContribution:
			total += m.Amount
		case models.MovementWithdrawal:
			total -= m.Amount
		}
	}
	return total
}
