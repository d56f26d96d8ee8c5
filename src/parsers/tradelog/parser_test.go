package tradelog

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fundfolio/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestParse(t *testing.T) {
	parser := NewParser()

	t.Run("parses canonical headers", func(t *testing.T) {
		csv := "buy_date,sell_date,stock,buy_price,sell_price,quantity\n" +
			"2024-01-05,2024-01-10,aapl,100.50,110.25,10\n"

		result, err := parser.Parse(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, result.Trades, 1)
		assert.Zero(t, result.SkippedRows)

		trade := result.Trades[0]
		assert.Equal(t, "AAPL", trade.Stock)
		assert.Equal(t, "2024-01-05", trade.BuyDate.Format("2006-01-02"))
		assert.Equal(t, "2024-01-10", trade.SellDate.Format("2006-01-02"))
		assert.InDelta(t, 100.50, trade.BuyPrice, 1e-9)
		assert.InDelta(t, 110.25, trade.SellPrice, 1e-9)
		assert.InDelta(t, 10, trade.Quantity, 1e-9)
	})

	t.Run("accepts spaced and cased header aliases", func(t *testing.T) {
		csv := "Buy Date,Sell Date,Stock,Buy Price,Sell Price,Quantity\n" +
			"2024-01-05,2024-01-10,MSFT,400,410,5\n"

		result, err := parser.Parse(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, result.Trades, 1)
		assert.Equal(t, "MSFT", result.Trades[0].Stock)
	})

	t.Run("reports exactly which columns are missing", func(t *testing.T) {
		csv := "buy_date,stock,buy_price\n2024-01-05,AAPL,100\n"

		_, err := parser.Parse(strings.NewReader(csv))
		require.Error(t, err)

		var missingErr *MissingColumnsError
		require.ErrorAs(t, err, &missingErr)
		assert.ElementsMatch(t, []string{"sell_date", "sell_price", "quantity"}, missingErr.Columns)
	})

	t.Run("skips and counts malformed rows", func(t *testing.T) {
		csv := "buy_date,sell_date,stock,buy_price,sell_price,quantity\n" +
			"2024-01-05,2024-01-10,AAPL,100,110,10\n" +
			"not-a-date,2024-01-10,AAPL,100,110,10\n" +
			"2024-01-05,2024-01-10,AAPL,abc,110,10\n" +
			"2024-01-05,2024-01-10,AAPL,0,110,10\n" +
			"2024-01-05,2024-01-10,,100,110,10\n"

		result, err := parser.Parse(strings.NewReader(csv))
		require.NoError(t, err)
		assert.Len(t, result.Trades, 1)
		assert.Equal(t, 4, result.SkippedRows)
	})

	t.Run("strips currency formatting from numbers", func(t *testing.T) {
		csv := "buy_date,sell_date,stock,buy_price,sell_price,quantity\n" +
			`2024-01-05,2024-01-10,AAPL,"$1,100.50","$1,210.00",10` + "\n"

		result, err := parser.Parse(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, result.Trades, 1)
		assert.InDelta(t, 1100.50, result.Trades[0].BuyPrice, 1e-9)
		assert.InDelta(t, 1210.00, result.Trades[0].SellPrice, 1e-9)
	})

	t.Run("accepts alternate date layouts", func(t *testing.T) {
		csv := "buy_date,sell_date,stock,buy_price,sell_price,quantity\n" +
			"05-01-2024,2024/01/10,AAPL,100,110,10\n"

		result, err := parser.Parse(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, result.Trades, 1)
		assert.Equal(t, "2024-01-05", result.Trades[0].BuyDate.Format("2006-01-02"))
		assert.Equal(t, "2024-01-10", result.Trades[0].SellDate.Format("2006-01-02"))
	})
}
