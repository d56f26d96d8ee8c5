// backend/src/processors/period_aggregator.go
package processors

import (
	"time"

	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/utils"
)

// FilterFromStartDate keeps only trades sold on or after the client's
// investment start date. A nil start date keeps everything.
func FilterFromStartDate(trades []models.Trade, start *time.Time) []models.Trade {
	if start == nil {
		return trades
	}
	cutoff := dateOnly(*start)
	var filtered []models.Trade
	for _, t := range trades {
		if !dateOnly(t.SellDate).Before(cutoff) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// AggregatePeriods buckets trades by sell date into periods of the given
// granularity and computes per-period P&L statistics. The return percentage
// is measured against the resolver's pooled capital for the period, never
// against position size; a zero denominator yields a 0% return, not an
// error. The cumulative return is a running sum of period returns, an
// additive series kept for compatibility with historical figures and never
// compounded.
func AggregatePeriods(trades []models.Trade, g Granularity, resolver CapitalResolver) []models.PeriodStats {
	if len(trades) == 0 {
		return nil
	}

	buckets := map[string][]models.Trade{}
	periods := map[string]Period{}
	for _, t := range trades {
		p := PeriodOf(t.SellDate, g)
		buckets[p.Key] = append(buckets[p.Key], t)
		periods[p.Key] = p
	}

	ordered := make([]Period, 0, len(periods))
	for _, p := range periods {
		ordered = append(ordered, p)
	}
	sortPeriods(ordered)

	var stats []models.PeriodStats
	var cumulative float64
	for _, p := range ordered {
		bucket := buckets[p.Key]

		var totalPL, winPctSum, lossPctSum float64
		var wins, losses int
		for _, t := range bucket {
			totalPL += t.ProfitLoss()
			if t.WinLoss() == models.WinLossWin {
				wins++
				winPctSum += t.ReturnPct()
			} else {
				losses++
				lossPctSum += t.ReturnPct()
			}
		}

		avgWinPct := 0.0
		if wins > 0 {
			avgWinPct = winPctSum / float64(wins)
		}
		avgLossPct := 0.0
		if losses > 0 {
			avgLossPct = lossPctSum / float64(losses)
		}

		capital := resolver.CapitalFor(p, g)
		returnPct := utils.RoundFloat(utils.SafePct(totalPL, capital), 2)
		cumulative += returnPct

		stats = append(stats, models.PeriodStats{
			Period:           p.Key,
			Label:            p.Label,
			TotalPL:          utils.RoundFloat(totalPL, 2),
			TotalTrades:      len(bucket),
			WinningTrades:    wins,
			WinRate:          utils.RoundFloat(utils.SafePct(float64(wins), float64(len(bucket))), 2),
			AvgWinPct:        utils.RoundFloat(avgWinPct, 2),
			AvgLossPct:       utils.RoundFloat(avgLossPct, 2),
			ClientCapital:    capital,
			ReturnPct:        returnPct,
			CumulativeReturn: utils.RoundFloat(cumulative, 2),
		})
	}
	return stats
}

// AggregateByPositionSize buckets trades by sell date and measures each
// period's return against total position size instead of pooled capital.
// Used for the daily and weekly series, where estimating pooled capital is
// less reliable than the actual committed capital. The cumulative column is
// a compounded growth percentage here, unlike the additive capital-based
// series.
func AggregateByPositionSize(trades []models.Trade, g Granularity) []models.PositionStats {
	if len(trades) == 0 {
		return nil
	}

	buckets := map[string][]models.Trade{}
	periods := map[string]Period{}
	for _, t := range trades {
		p := PeriodOf(t.SellDate, g)
		buckets[p.Key] = append(buckets[p.Key], t)
		periods[p.Key] = p
	}

	ordered := make([]Period, 0, len(periods))
	for _, p := range periods {
		ordered = append(ordered, p)
	}
	sortPeriods(ordered)

	var stats []models.PositionStats
	growth := 1.0
	for _, p := range ordered {
		bucket := buckets[p.Key]

		var totalPL, totalPosition float64
		var wins int
		for _, t := range bucket {
			totalPL += t.ProfitLoss()
			totalPosition += t.PositionSize()
			if t.WinLoss() == models.WinLossWin {
				wins++
			}
		}

		returnPct := utils.RoundFloat(utils.SafePct(totalPL, totalPosition), 2)
		growth *= 1 + returnPct/100

		stats = append(stats, models.PositionStats{
			Period:            p.Key,
			Label:             p.Label,
			TotalPL:           utils.RoundFloat(totalPL, 2),
			TotalPositionSize: utils.RoundFloat(totalPosition, 2),
			TotalTrades:       len(bucket),
			WinningTrades:     wins,
			WinRate:           utils.RoundFloat(utils.SafePct(float64(wins), float64(len(bucket))), 2),
			ReturnPct:         returnPct,
			CumulativeReturn:  utils.RoundFloat((growth-1)*100, 2),
		})
	}
	return stats
}

// Summarize computes the all-time strategy summary over the given trades.
// The cumulative return is taken from the monthly capital-based series so
// the headline figure matches the monthly table.
func Summarize(trades []models.Trade, resolver CapitalResolver) models.StrategySummary {
	if len(trades) == 0 {
		return models.StrategySummary{}
	}

	var totalPL, totalPosition float64
	var winSum, lossSum, winPctSum, lossPctSum float64
	var wins, losses int
	for _, t := range trades {
		pl := t.ProfitLoss()
		totalPL += pl
		totalPosition += t.PositionSize()
		if pl > 0 {
			wins++
			winSum += pl
			winPctSum += t.ReturnPct()
		} else if pl < 0 {
			losses++
			lossSum += pl
			lossPctSum += t.ReturnPct()
		}
	}

	avgWinner, avgWinnerPct := 0.0, 0.0
	if wins > 0 {
		avgWinner = winSum / float64(wins)
		avgWinnerPct = winPctSum / float64(wins)
	}
	avgLoser, avgLoserPct := 0.0, 0.0
	if losses > 0 {
		avgLoser = lossSum / float64(losses)
		avgLoserPct = lossPctSum / float64(losses)
	}

	cumulative := 0.0
	if monthly := AggregatePeriods(trades, GranularityMonthly, resolver); len(monthly) > 0 {
		cumulative = monthly[len(monthly)-1].CumulativeReturn
	}

	winning := 0
	for _, t := range trades {
		if t.WinLoss() == models.WinLossWin {
			winning++
		}
	}

	return models.StrategySummary{
		TotalTrades:       len(trades),
		WinningTrades:     winning,
		LosingTrades:      len(trades) - winning,
		WinRate:           utils.RoundFloat(utils.SafePct(float64(winning), float64(len(trades))), 2),
		TotalPL:           utils.RoundFloat(totalPL, 2),
		TotalPositionSize: utils.RoundFloat(totalPosition, 2),
		AvgWinner:         utils.RoundFloat(avgWinner, 2),
		AvgLoser:          utils.RoundFloat(avgLoser, 2),
		AvgWinnerPct:      utils.RoundFloat(avgWinnerPct, 2),
		AvgLoserPct:       utils.RoundFloat(avgLoserPct, 2),
		OverallReturn:     utils.RoundFloat(utils.SafePct(totalPL, totalPosition), 2),
		CumulativeReturn:  utils.RoundFloat(cumulative, 2),
	}
}
