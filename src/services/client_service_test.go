package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/security"
)

func TestUpsertClient(t *testing.T) {
	db, _, flowService := newTestServices(t)
	clientService := NewClientService(db, flowService)

	start := mustDate(t, "2024-01-01")
	require.NoError(t, clientService.UpsertClient(models.Client{
		ClientID:            "alice",
		Name:                "Alice",
		StartingCapital:     10000,
		InvestmentStartDate: &start,
		Active:              true,
	}, "secret-password"))

	saved, err := clientService.GetClient("alice")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "Alice", saved.Name)
	require.NotNil(t, saved.InvestmentStartDate)
	assert.NoError(t, security.CheckPassword(saved.PasswordHash, "secret-password"))

	// Updating without a password keeps the stored hash.
	require.NoError(t, clientService.UpsertClient(models.Client{
		ClientID:        "alice",
		Name:            "Alice Updated",
		StartingCapital: 12000,
		Active:          true,
	}, ""))

	updated, err := clientService.GetClient("alice")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Alice Updated", updated.Name)
	assert.NoError(t, security.CheckPassword(updated.PasswordHash, "secret-password"))

	// Missing client resolves to nil, not an error.
	missing, err := clientService.GetClient("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAddMovementValidation(t *testing.T) {
	db, _, flowService := newTestServices(t)
	clientService := NewClientService(db, flowService)
	seedClient(t, db, "alice", 10000, "")

	_, err := clientService.AddMovement(models.CapitalMovement{
		ClientID: "alice", Date: mustDate(t, "2024-01-15"), Type: "transfer", Amount: 100,
	})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = clientService.AddMovement(models.CapitalMovement{
		ClientID: "alice", Date: mustDate(t, "2024-01-15"), Type: models.MovementContribution, Amount: -5,
	})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = clientService.AddMovement(models.CapitalMovement{
		ClientID: "ghost", Date: mustDate(t, "2024-01-15"), Type: models.MovementContribution, Amount: 100,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	movement, err := clientService.AddMovement(models.CapitalMovement{
		ClientID: "alice", Date: mustDate(t, "2024-01-15"), Type: models.MovementContribution, Amount: 100,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, movement.ID)
}

func TestDeleteClientCascades(t *testing.T) {
	db, settingsService, flowService := newTestServices(t)
	clientService := NewClientService(db, flowService)
	seedClient(t, db, "alice", 10000, "")

	_, err := clientService.AddMovement(models.CapitalMovement{
		ClientID: "alice", Date: mustDate(t, "2024-01-15"), Type: models.MovementContribution, Amount: 100,
	})
	require.NoError(t, err)

	rate := 0.10
	_, err = settingsService.UpdateClient("alice", models.SettingsUpdate{TaxRate: &rate})
	require.NoError(t, err)

	require.NoError(t, clientService.DeleteClient("alice"))

	movements, err := clientService.ListMovements("alice")
	require.NoError(t, err)
	assert.Empty(t, movements)

	settings, err := settingsService.Resolve("alice")
	require.NoError(t, err)
	assert.InDelta(t, models.DefaultTaxRate, settings.TaxRate, 1e-9)

	assert.ErrorIs(t, clientService.DeleteClient("alice"), ErrNotFound)
}

func TestMonthlyOverrides(t *testing.T) {
	db, _, flowService := newTestServices(t)
	clientService := NewClientService(db, flowService)

	assert.ErrorIs(t, clientService.SetMonthlyOverride(models.MonthlyCapitalOverride{
		Month: "March 2024", TotalCapital: 50000,
	}), ErrValidationFailed)

	require.NoError(t, clientService.SetMonthlyOverride(models.MonthlyCapitalOverride{
		Month: "2024-03", TotalCapital: 50000,
	}))
	// Upsert replaces the value for the same month.
	require.NoError(t, clientService.SetMonthlyOverride(models.MonthlyCapitalOverride{
		Month: "2024-03", TotalCapital: 60000,
	}))

	overrides, err := clientService.ListMonthlyOverrides()
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.InDelta(t, 60000, overrides[0].TotalCapital, 1e-9)

	require.NoError(t, clientService.DeleteMonthlyOverride("2024-03"))
	assert.ErrorIs(t, clientService.DeleteMonthlyOverride("2024-03"), ErrNotFound)
}
