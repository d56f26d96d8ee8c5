package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/parsers"
	"github.com/username/fundfolio/backend/src/parsers/tradelog"
)

func init() {
	parsers.Register("tradelog", tradelog.NewParser())
}

const sampleLog = "buy_date,sell_date,stock,buy_price,sell_price,quantity\n" +
	"2024-01-05,2024-01-10,AAPL,100,110,10\n" +
	"2024-01-08,2024-01-12,MSFT,400,390,5\n"

func TestImportTrades(t *testing.T) {
	t.Run("imports parsed rows and records history", func(t *testing.T) {
		db, settingsService, flowService := newTestServices(t)
		tradeService := NewTradeService(db, settingsService, flowService)

		summary, err := tradeService.ImportTrades(strings.NewReader(sampleLog), "tradelog", "log.csv", int64(len(sampleLog)))
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Imported)
		assert.Zero(t, summary.Duplicates)

		trades, err := tradeService.ListTrades()
		require.NoError(t, err)
		assert.Len(t, trades, 2)

		history, err := tradeService.ImportHistory()
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "log.csv", history[0].Filename)
		assert.Equal(t, 2, history[0].ImportedCount)
	})

	t.Run("re-importing the same file changes nothing", func(t *testing.T) {
		db, settingsService, flowService := newTestServices(t)
		tradeService := NewTradeService(db, settingsService, flowService)

		_, err := tradeService.ImportTrades(strings.NewReader(sampleLog), "tradelog", "log.csv", 0)
		require.NoError(t, err)

		summary, err := tradeService.ImportTrades(strings.NewReader(sampleLog), "tradelog", "log.csv", 0)
		require.NoError(t, err)
		assert.Zero(t, summary.Imported)
		assert.Equal(t, 2, summary.Duplicates)

		trades, err := tradeService.ListTrades()
		require.NoError(t, err)
		assert.Len(t, trades, 2)
	})

	t.Run("duplicates within one batch keep the first occurrence", func(t *testing.T) {
		db, settingsService, flowService := newTestServices(t)
		tradeService := NewTradeService(db, settingsService, flowService)

		log := sampleLog + "2024-01-05,2024-01-10,AAPL,100,110,10\n"
		summary, err := tradeService.ImportTrades(strings.NewReader(log), "tradelog", "log.csv", 0)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Imported)
		assert.Equal(t, 1, summary.Duplicates)
	})

	t.Run("day trades removed when the global toggle is on", func(t *testing.T) {
		db, settingsService, flowService := newTestServices(t)
		tradeService := NewTradeService(db, settingsService, flowService)

		log := sampleLog + "2024-01-15,2024-01-15,NVDA,500,510,2\n"
		summary, err := tradeService.ImportTrades(strings.NewReader(log), "tradelog", "log.csv", 0)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Imported)
		assert.Equal(t, 1, summary.DayTradesRemoved)
	})

	t.Run("day trades kept when the toggle is off", func(t *testing.T) {
		db, settingsService, flowService := newTestServices(t)
		tradeService := NewTradeService(db, settingsService, flowService)

		off := false
		_, err := settingsService.UpdateGlobal(models.SettingsUpdate{AutoRemoveDayTrades: &off})
		require.NoError(t, err)

		log := sampleLog + "2024-01-15,2024-01-15,NVDA,500,510,2\n"
		summary, err := tradeService.ImportTrades(strings.NewReader(log), "tradelog", "log.csv", 0)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Imported)
		assert.Zero(t, summary.DayTradesRemoved)
	})

	t.Run("unknown source fails as a parsing error", func(t *testing.T) {
		db, settingsService, flowService := newTestServices(t)
		tradeService := NewTradeService(db, settingsService, flowService)

		_, err := tradeService.ImportTrades(strings.NewReader(sampleLog), "nope", "log.csv", 0)
		assert.ErrorIs(t, err, ErrParsingFailed)
	})
}

func TestRemoveTradesByReturnPct(t *testing.T) {
	db, settingsService, flowService := newTestServices(t)
	tradeService := NewTradeService(db, settingsService, flowService)

	// AAPL +10%, MSFT -2.5%.
	_, err := tradeService.ImportTrades(strings.NewReader(sampleLog), "tradelog", "log.csv", 0)
	require.NoError(t, err)

	removed, err := tradeService.RemoveTradesByReturnPct("aapl", 10, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	trades, err := tradeService.ListTrades()
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "MSFT", trades[0].Stock)

	// Outside tolerance removes nothing.
	removed, err = tradeService.RemoveTradesByReturnPct("MSFT", 10, 0.01)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestDeleteAllTrades(t *testing.T) {
	db, settingsService, flowService := newTestServices(t)
	tradeService := NewTradeService(db, settingsService, flowService)

	_, err := tradeService.ImportTrades(strings.NewReader(sampleLog), "tradelog", "log.csv", 0)
	require.NoError(t, err)
	require.NoError(t, tradeService.DeleteAllTrades())

	trades, err := tradeService.ListTrades()
	require.NoError(t, err)
	assert.Empty(t, trades)
}
