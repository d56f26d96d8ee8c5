package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fundfolio/backend/src/models"
)

var defaultSettings = models.Settings{
	TaxRate:       0.25,
	TraderShare:   0.40,
	InvestorShare: 0.60,
}

func TestBuildLedger(t *testing.T) {
	t.Run("single profitable month", func(t *testing.T) {
		ledger := BuildLedger(LedgerInput{
			Client:      models.Client{ClientID: "alice", StartingCapital: 10000},
			Periods:     []models.PeriodStats{{Period: "2024-01", Label: "2024-01", ReturnPct: 10}},
			Granularity: GranularityMonthly,
			Settings:    defaultSettings,
		})

		require.Len(t, ledger.Breakdown, 1)
		row := ledger.Breakdown[0]

		// 10000 * 10% = 1000 gain, 750 after 25% tax, investor keeps 60%.
		assert.InDelta(t, 10000, row.StartingCapital, 1e-9)
		assert.InDelta(t, 750, row.ProfitAfterTax, 1e-9)
		assert.InDelta(t, 450, row.InvestorShare, 1e-9)
		assert.InDelta(t, 300, row.TraderShare, 1e-9)
		assert.InDelta(t, 10450, row.EndingCapital, 1e-9)
		assert.InDelta(t, 10450, ledger.CurrentCapital, 1e-9)
		assert.InDelta(t, 750, ledger.TotalReturns, 1e-9)
	})

	t.Run("losses are taxed and compound negatively", func(t *testing.T) {
		ledger := BuildLedger(LedgerInput{
			Client:      models.Client{ClientID: "alice", StartingCapital: 10000},
			Periods:     []models.PeriodStats{{Period: "2024-01", ReturnPct: -10}},
			Granularity: GranularityMonthly,
			Settings:    defaultSettings,
		})

		require.Len(t, ledger.Breakdown, 1)
		row := ledger.Breakdown[0]

		// -1000 gain scales by (1 - tax_rate); no floor at zero.
		assert.InDelta(t, -750, row.ProfitAfterTax, 1e-9)
		assert.InDelta(t, -450, row.InvestorShare, 1e-9)
		assert.InDelta(t, 9550, row.EndingCapital, 1e-9)
	})

	t.Run("contribution is anchored and applied in its period", func(t *testing.T) {
		ledger := BuildLedger(LedgerInput{
			Client: models.Client{ClientID: "alice", StartingCapital: 10000},
			Movements: []models.CapitalMovement{
				{ClientID: "alice", Date: date(2024, time.February, 5), Type: models.MovementContribution, Amount: 2000},
			},
			Periods: []models.PeriodStats{
				{Period: "2024-01", ReturnPct: 10},
				{Period: "2024-02", ReturnPct: 10},
			},
			Granularity: GranularityMonthly,
			Settings:    defaultSettings,
		})

		require.Len(t, ledger.Breakdown, 2)

		// The walk starts from the anchor: starting capital plus all-time
		// net movements, even though the contribution lands in February.
		first := ledger.Breakdown[0]
		assert.InDelta(t, 12000, first.StartingCapital, 1e-9)
		assert.InDelta(t, 0, first.NetContributions, 1e-9)
		assert.InDelta(t, 900, first.ProfitAfterTax, 1e-9)
		assert.InDelta(t, 12540, first.EndingCapital, 1e-9)

		second := ledger.Breakdown[1]
		assert.InDelta(t, 12540, second.StartingCapital, 1e-9)
		assert.InDelta(t, 2000, second.Contributions, 1e-9)
		assert.InDelta(t, 14540, second.CapitalAfterContributions, 1e-9)
		assert.InDelta(t, 1090.5, second.ProfitAfterTax, 1e-9)
		assert.InDelta(t, 15194.3, second.EndingCapital, 1e-9)

		assert.InDelta(t, 15194.3, ledger.CurrentCapital, 1e-9)
		assert.InDelta(t, 1990.5, ledger.TotalReturns, 1e-9)
	})

	t.Run("rows chain and the split conserves profit", func(t *testing.T) {
		ledger := BuildLedger(LedgerInput{
			Client: models.Client{ClientID: "alice", StartingCapital: 25000},
			Movements: []models.CapitalMovement{
				{ClientID: "alice", Date: date(2024, time.February, 1), Type: models.MovementWithdrawal, Amount: 3000},
			},
			Periods: []models.PeriodStats{
				{Period: "2024-01", ReturnPct: 4.5},
				{Period: "2024-02", ReturnPct: -1.2},
				{Period: "2024-03", ReturnPct: 2.7},
			},
			Granularity: GranularityMonthly,
			Settings:    defaultSettings,
		})

		require.Len(t, ledger.Breakdown, 3)
		for i := 1; i < len(ledger.Breakdown); i++ {
			assert.InDelta(t, ledger.Breakdown[i-1].EndingCapital, ledger.Breakdown[i].StartingCapital, 0.01,
				"period %s must start where %s ended", ledger.Breakdown[i].Period, ledger.Breakdown[i-1].Period)
		}
		for _, row := range ledger.Breakdown {
			assert.InDelta(t, row.ProfitAfterTax, row.InvestorShare+row.TraderShare, 0.01, "period %s", row.Period)
		}
	})

	t.Run("periods are walked in ascending order regardless of input order", func(t *testing.T) {
		ledger := BuildLedger(LedgerInput{
			Client: models.Client{ClientID: "alice", StartingCapital: 10000},
			Periods: []models.PeriodStats{
				{Period: "2024-03", ReturnPct: 1},
				{Period: "2024-01", ReturnPct: 1},
				{Period: "2024-02", ReturnPct: 1},
			},
			Granularity: GranularityMonthly,
			Settings:    defaultSettings,
		})

		require.Len(t, ledger.Breakdown, 3)
		assert.Equal(t, "2024-01", ledger.Breakdown[0].Period)
		assert.Equal(t, "2024-02", ledger.Breakdown[1].Period)
		assert.Equal(t, "2024-03", ledger.Breakdown[2].Period)
	})

	t.Run("empty trade history leaves the anchor unchanged", func(t *testing.T) {
		ledger := BuildLedger(LedgerInput{
			Client: models.Client{ClientID: "alice", StartingCapital: 10000},
			Movements: []models.CapitalMovement{
				{ClientID: "alice", Date: date(2024, time.January, 5), Type: models.MovementContribution, Amount: 500},
				{ClientID: "alice", Date: date(2024, time.March, 5), Type: models.MovementWithdrawal, Amount: 200},
			},
			Granularity: GranularityMonthly,
			Settings:    defaultSettings,
		})

		assert.Empty(t, ledger.Breakdown)
		assert.InDelta(t, 10300, ledger.CurrentCapital, 1e-9)
		assert.Zero(t, ledger.TotalReturns)
	})

	t.Run("biweekly walk buckets movements by biweek", func(t *testing.T) {
		p := BiweekOf(date(2024, time.March, 15))
		ledger := BuildLedger(LedgerInput{
			Client: models.Client{ClientID: "alice", StartingCapital: 10000},
			Movements: []models.CapitalMovement{
				{ClientID: "alice", Date: p.Start.AddDate(0, 0, 3), Type: models.MovementContribution, Amount: 1000},
			},
			Periods:     []models.PeriodStats{{Period: p.Key, Label: p.Label, ReturnPct: 5}},
			Granularity: GranularityBiweekly,
			Settings:    defaultSettings,
		})

		require.Len(t, ledger.Breakdown, 1)
		assert.InDelta(t, 1000, ledger.Breakdown[0].Contributions, 1e-9)
		assert.InDelta(t, 12000, ledger.Breakdown[0].CapitalAfterContributions, 1e-9)
	})
}
