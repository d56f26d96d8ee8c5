package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fundfolio/backend/src/models"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestSettingsResolve(t *testing.T) {
	t.Run("hard defaults with an empty store", func(t *testing.T) {
		_, settingsService, _ := newTestServices(t)

		settings, err := settingsService.Resolve("alice")
		require.NoError(t, err)
		assert.Equal(t, models.DefaultSettings(), settings)
	})

	t.Run("client override falls back field by field", func(t *testing.T) {
		_, settingsService, _ := newTestServices(t)

		_, err := settingsService.UpdateGlobal(models.SettingsUpdate{TaxRate: floatPtr(0.30)})
		require.NoError(t, err)
		_, err = settingsService.UpdateClient("alice", models.SettingsUpdate{InvestorShare: floatPtr(0.70)})
		require.NoError(t, err)

		settings, err := settingsService.Resolve("alice")
		require.NoError(t, err)

		// tax_rate comes from the global layer, the shares from the client
		// layer.
		assert.InDelta(t, 0.30, settings.TaxRate, 1e-9)
		assert.InDelta(t, 0.70, settings.InvestorShare, 1e-9)
		assert.InDelta(t, 0.30, settings.TraderShare, 1e-9)

		// Another client sees only the global layer.
		other, err := settingsService.Resolve("bob")
		require.NoError(t, err)
		assert.InDelta(t, 0.30, other.TaxRate, 1e-9)
		assert.InDelta(t, models.DefaultInvestorShare, other.InvestorShare, 1e-9)
	})

	t.Run("setting one share recomputes the complement", func(t *testing.T) {
		_, settingsService, _ := newTestServices(t)

		settings, err := settingsService.UpdateGlobal(models.SettingsUpdate{TraderShare: floatPtr(0.45)})
		require.NoError(t, err)
		assert.InDelta(t, 0.45, settings.TraderShare, 1e-9)
		assert.InDelta(t, 0.55, settings.InvestorShare, 1e-9)
	})

	t.Run("rates outside the unit interval are rejected", func(t *testing.T) {
		_, settingsService, _ := newTestServices(t)

		_, err := settingsService.UpdateGlobal(models.SettingsUpdate{TaxRate: floatPtr(1.5)})
		assert.ErrorIs(t, err, ErrValidationFailed)

		_, err = settingsService.UpdateGlobal(models.SettingsUpdate{InvestorShare: floatPtr(-0.1)})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("shares that do not sum to one are rejected", func(t *testing.T) {
		_, settingsService, _ := newTestServices(t)

		_, err := settingsService.UpdateGlobal(models.SettingsUpdate{
			TraderShare:   floatPtr(0.5),
			InvestorShare: floatPtr(0.6),
		})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("boolean toggles are global only", func(t *testing.T) {
		_, settingsService, _ := newTestServices(t)

		_, err := settingsService.UpdateGlobal(models.SettingsUpdate{AutoRemoveDayTrades: boolPtr(false)})
		require.NoError(t, err)

		// A client update carrying a toggle silently ignores it.
		_, err = settingsService.UpdateClient("alice", models.SettingsUpdate{
			TaxRate:             floatPtr(0.10),
			AutoRemoveDayTrades: boolPtr(true),
		})
		require.NoError(t, err)

		settings, err := settingsService.Resolve("alice")
		require.NoError(t, err)
		assert.False(t, settings.AutoRemoveDayTrades)
		assert.InDelta(t, 0.10, settings.TaxRate, 1e-9)
	})

	t.Run("deleting overrides reverts the client to global", func(t *testing.T) {
		_, settingsService, _ := newTestServices(t)

		_, err := settingsService.UpdateClient("alice", models.SettingsUpdate{TaxRate: floatPtr(0.05)})
		require.NoError(t, err)
		require.NoError(t, settingsService.DeleteClientOverrides("alice"))

		settings, err := settingsService.Resolve("alice")
		require.NoError(t, err)
		assert.InDelta(t, models.DefaultTaxRate, settings.TaxRate, 1e-9)
	})

	t.Run("global scope cannot be addressed as a client", func(t *testing.T) {
		_, settingsService, _ := newTestServices(t)

		_, err := settingsService.UpdateClient("global", models.SettingsUpdate{TaxRate: floatPtr(0.1)})
		assert.ErrorIs(t, err, ErrValidationFailed)
		assert.ErrorIs(t, settingsService.DeleteClientOverrides(""), ErrValidationFailed)
	})
}
