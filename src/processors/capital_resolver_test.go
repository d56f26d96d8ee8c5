package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/username/fundfolio/backend/src/models"
)

func TestMonthlyCapital(t *testing.T) {
	clients := []models.Client{
		{ClientID: "alice", StartingCapital: 10000},
		{ClientID: "bob", StartingCapital: 5000, Active: false},
	}
	movements := []models.CapitalMovement{
		{ClientID: "alice", Date: date(2024, time.February, 10), Type: models.MovementContribution, Amount: 2000},
		{ClientID: "bob", Date: date(2024, time.March, 5), Type: models.MovementWithdrawal, Amount: 1000},
		{ClientID: "alice", Date: date(2024, time.June, 1), Type: models.MovementContribution, Amount: 500},
	}

	t.Run("pooled default sums all clients regardless of active flag", func(t *testing.T) {
		r := CapitalResolver{Clients: clients, Movements: movements}

		// January predates every movement.
		assert.InDelta(t, 15000, r.MonthlyCapital("2024-01"), 1e-9)
		// February includes the contribution.
		assert.InDelta(t, 17000, r.MonthlyCapital("2024-02"), 1e-9)
		// March includes the withdrawal too; the June movement is excluded.
		assert.InDelta(t, 16000, r.MonthlyCapital("2024-03"), 1e-9)
	})

	t.Run("override wins verbatim", func(t *testing.T) {
		r := CapitalResolver{
			Clients:   clients,
			Movements: movements,
			Overrides: []models.MonthlyCapitalOverride{{Month: "2024-03", TotalCapital: 50000}},
		}

		assert.InDelta(t, 50000, r.MonthlyCapital("2024-03"), 1e-9)
		// Other months still use the pooled default.
		assert.InDelta(t, 17000, r.MonthlyCapital("2024-02"), 1e-9)
	})

	t.Run("removing an override reverts to the pooled default", func(t *testing.T) {
		withOverride := CapitalResolver{
			Clients:   clients,
			Movements: movements,
			Overrides: []models.MonthlyCapitalOverride{{Month: "2024-03", TotalCapital: 50000}},
		}
		without := CapitalResolver{Clients: clients, Movements: movements}

		assert.InDelta(t, 50000, withOverride.MonthlyCapital("2024-03"), 1e-9)
		assert.InDelta(t, 16000, without.MonthlyCapital("2024-03"), 1e-9)
	})
}

func TestBiweeklyCapital(t *testing.T) {
	clients := []models.Client{{ClientID: "alice", StartingCapital: 10000}}

	t.Run("override applies to the biweek containing the month start", func(t *testing.T) {
		r := CapitalResolver{
			Clients:   clients,
			Overrides: []models.MonthlyCapitalOverride{{Month: "2024-03", TotalCapital: 42000}},
		}

		containing := BiweekOf(date(2024, time.March, 1))
		assert.InDelta(t, 42000, r.BiweeklyCapital(containing), 1e-9)

		next := BiweekOf(containing.End.AddDate(0, 0, 1))
		assert.InDelta(t, 10000, r.BiweeklyCapital(next), 1e-9)
	})

	t.Run("pooled default bounded by period end", func(t *testing.T) {
		p := BiweekOf(date(2024, time.March, 15))
		r := CapitalResolver{
			Clients: clients,
			Movements: []models.CapitalMovement{
				{ClientID: "alice", Date: p.End, Type: models.MovementContribution, Amount: 1000},
				{ClientID: "alice", Date: p.End.AddDate(0, 0, 1), Type: models.MovementContribution, Amount: 999},
			},
		}

		assert.InDelta(t, 11000, r.BiweeklyCapital(p), 1e-9)
	})
}
