// backend/src/parsers/tradelog/parser.go
package tradelog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/parsers"
)

// Canonical column names of a trade log. Header variants like "Buy Date"
// or "sell_price" are accepted; an import is rejected if any canonical
// column cannot be resolved.
var canonicalColumns = []string{"buy_date", "sell_date", "stock", "buy_price", "sell_price", "quantity"}

// aliasKeys maps the normalized form of a header (lowercased, with all
// non-alphanumeric characters stripped) to its canonical column name.
var aliasKeys = map[string]string{
	"buydate":   "buy_date",
	"selldate":  "sell_date",
	"stock":     "stock",
	"buyprice":  "buy_price",
	"sellprice": "sell_price",
	"quantity":  "quantity",
}

// MissingColumnsError reports exactly which canonical columns could not be
// resolved from the file's headers.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s. Accepted headers include: Buy Date, Sell Date, Stock, Buy Price, Sell Price, Quantity",
		strings.Join(e.Columns, ", "))
}

// TradeLogParser implements the parsers.Parser interface for generic
// round-trip trade logs.
type TradeLogParser struct{}

// NewParser creates a new instance of the TradeLogParser.
func NewParser() *TradeLogParser {
	return &TradeLogParser{}
}

func normalizeHeader(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// dateLayouts accepted for buy/sell dates, tried in order.
var dateLayouts = []string{"2006-01-02", "02-01-2006", "01/02/2006", "2006/01/02"}

func parseDate(s string) (time.Time, error) {
	cleaned := strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseNumber(s string) (float64, error) {
	cleaned := strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\""))
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	return strconv.ParseFloat(cleaned, 64)
}

// Parse reads a trade-log CSV and converts its rows into trades. Rows with
// unparseable dates or numbers, or a non-positive buy price, are skipped
// and counted; they never abort the import.
func (p *TradeLogParser) Parse(file io.Reader) (*parsers.Result, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields per record

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("tradelog parser: failed to read CSV header: %w", err)
	}

	// Resolve header aliases to canonical column indexes.
	columnIndex := map[string]int{}
	for i, h := range header {
		if canonical, ok := aliasKeys[normalizeHeader(h)]; ok {
			if _, seen := columnIndex[canonical]; !seen {
				columnIndex[canonical] = i
			}
		}
	}

	var missing []string
	for _, col := range canonicalColumns {
		if _, ok := columnIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tradelog parser: failed to read all CSV records: %w", err)
	}

	result := &parsers.Result{}
	maxIdx := 0
	for _, idx := range columnIndex {
		if idx > maxIdx {
			maxIdx = idx
		}
	}

	for rowNum, record := range records {
		if len(record) <= maxIdx {
			result.SkippedRows++
			continue
		}

		buyDate, errBuy := parseDate(record[columnIndex["buy_date"]])
		sellDate, errSell := parseDate(record[columnIndex["sell_date"]])
		if errBuy != nil || errSell != nil {
			logger.L.Debug("Tradelog parser: skipping row with invalid date", "row", rowNum+2)
			result.SkippedRows++
			continue
		}

		buyPrice, errBP := parseNumber(record[columnIndex["buy_price"]])
		sellPrice, errSP := parseNumber(record[columnIndex["sell_price"]])
		quantity, errQ := parseNumber(record[columnIndex["quantity"]])
		if errBP != nil || errSP != nil || errQ != nil {
			logger.L.Debug("Tradelog parser: skipping row with invalid number", "row", rowNum+2)
			result.SkippedRows++
			continue
		}

		// Guard the return_pct division.
		if buyPrice <= 0 {
			logger.L.Debug("Tradelog parser: skipping row with non-positive buy price", "row", rowNum+2, "buyPrice", buyPrice)
			result.SkippedRows++
			continue
		}

		stock := strings.ToUpper(strings.TrimSpace(record[columnIndex["stock"]]))
		if stock == "" {
			result.SkippedRows++
			continue
		}

		result.Trades = append(result.Trades, models.Trade{
			BuyDate:   buyDate,
			SellDate:  sellDate,
			Stock:     stock,
			BuyPrice:  buyPrice,
			SellPrice: sellPrice,
			Quantity:  quantity,
		})
	}

	return result, nil
}
