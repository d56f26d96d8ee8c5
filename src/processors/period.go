// backend/src/processors/period.go
package processors

import (
	"sort"
	"time"
)

// Granularity selects how trades and movements are bucketed into periods.
type Granularity int

const (
	GranularityMonthly Granularity = iota
	GranularityBiweekly
	GranularityWeekly
	GranularityDaily
)

// biweekEpoch anchors the fixed 14-day buckets. 2001-01-01 is a Monday, so
// every bucket runs Monday through the Sunday thirteen days later.
var biweekEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// Period is one calendar bucket. Start and End are inclusive date bounds.
type Period struct {
	Key   string
	Label string
	Start time.Time
	End   time.Time
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthOf returns the calendar-month period containing t, keyed "YYYY-MM".
func MonthOf(t time.Time) Period {
	y, m, _ := t.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	key := start.Format("2006-01")
	return Period{Key: key, Label: key, Start: start, End: end}
}

// BiweekOf returns the fixed 14-day period containing t, keyed
// "YYYY-MM-DD/YYYY-MM-DD" (start/end).
func BiweekOf(t time.Time) Period {
	d := dateOnly(t)
	days := int(d.Sub(biweekEpoch).Hours() / 24)
	idx := days / 14
	if days < 0 && days%14 != 0 {
		idx--
	}
	start := biweekEpoch.AddDate(0, 0, idx*14)
	end := start.AddDate(0, 0, 13)
	return Period{
		Key:   start.Format("2006-01-02") + "/" + end.Format("2006-01-02"),
		Label: start.Format("Jan 02"),
		Start: start,
		End:   end,
	}
}

// WeekOf returns the fixed 7-day period containing t, aligned to the same
// Monday epoch as the biweekly buckets.
func WeekOf(t time.Time) Period {
	d := dateOnly(t)
	days := int(d.Sub(biweekEpoch).Hours() / 24)
	idx := days / 7
	if days < 0 && days%7 != 0 {
		idx--
	}
	start := biweekEpoch.AddDate(0, 0, idx*7)
	end := start.AddDate(0, 0, 6)
	return Period{
		Key:   start.Format("2006-01-02") + "/" + end.Format("2006-01-02"),
		Label: start.Format("Jan 02"),
		Start: start,
		End:   end,
	}
}

// DayOf returns the single-day period containing t.
func DayOf(t time.Time) Period {
	d := dateOnly(t)
	return Period{
		Key:   d.Format("2006-01-02"),
		Label: d.Format("Jan 02"),
		Start: d,
		End:   d,
	}
}

// PeriodOf buckets t at the given granularity.
func PeriodOf(t time.Time, g Granularity) Period {
	switch g {
	case GranularityBiweekly:
		return BiweekOf(t)
	case GranularityWeekly:
		return WeekOf(t)
	case GranularityDaily:
		return DayOf(t)
	default:
		return MonthOf(t)
	}
}

// sortPeriods orders periods by ascending start date. Order correctness is
// load-bearing for the reconciliation walk: each step depends on the
// previous period's ending capital.
func sortPeriods(periods []Period) {
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Start.Before(periods[j].Start)
	})
}
